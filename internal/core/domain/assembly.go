package domain

import "time"

type Assembly struct {
	ID          int64
	Aircraft    Aircraft
	Parts       []Part
	AssembledBy UserRef
	AssembledAt time.Time
	Notes       string
	IsComplete  bool
}

func (a Assembly) PartIDs() []int64 {
	ids := make([]int64, len(a.Parts))
	for i, p := range a.Parts {
		ids[i] = p.ID
	}
	return ids
}

type CreateAssemblyInput struct {
	AircraftID     int64
	PartIDs        []int64
	Notes          string
	IdempotencyKey string
}

// Dashboard holds the headline counters shown on the landing page.
type Dashboard struct {
	CompletedAssemblies int
	Parts               int
	Teams               int
	Assemblies          int
}
