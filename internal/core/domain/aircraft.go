package domain

import "time"

type Aircraft struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Requirement is the number of parts of one type consumed by a single
// assembly of an aircraft.
type Requirement struct {
	ID       int64
	Aircraft Aircraft
	PartType PartType
	Quantity int
	Notes    string
}
