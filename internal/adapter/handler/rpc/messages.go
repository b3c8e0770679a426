package rpc

type CreateAssemblyRequest struct {
	AircraftID     int64   `json:"aircraft_id"`
	PartIDs        []int64 `json:"part_ids"`
	Notes          string  `json:"notes,omitempty"`
	IdempotencyKey string  `json:"idempotency_key,omitempty"`
}

type AssemblyIDRequest struct {
	ID int64 `json:"id"`
}

type Part struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	PartType string `json:"part_type"`
	Aircraft string `json:"aircraft"`
	IsUsed   bool   `json:"is_used"`
}

type Assembly struct {
	ID          int64  `json:"id"`
	Aircraft    string `json:"aircraft"`
	AssembledBy string `json:"assembled_by"`
	// AssembledAt is RFC 3339.
	AssembledAt string `json:"assembled_at"`
	Notes       string `json:"notes"`
	IsComplete  bool   `json:"is_complete"`
	Parts       []Part `json:"parts"`
}

type Empty struct{}
