package domain

import "time"

const (
	StockStatusEmpty    = "Stok Yok"
	StockStatusCritical = "Kritik Seviye"
	StockStatusOK       = "Yeterli"
)

// Inventory is the stock counter for one (part type, aircraft) pairing.
// Quantity is derived from part lifecycle events and is never set by clients.
type Inventory struct {
	ID              int64
	PartType        PartType
	Aircraft        Aircraft
	Quantity        int
	MinimumQuantity int
	UpdatedAt       time.Time
}

func (i Inventory) StockStatus() string {
	if i.Quantity <= 0 {
		return StockStatusEmpty
	}
	if i.Quantity < i.MinimumQuantity {
		return StockStatusCritical
	}
	return StockStatusOK
}

// InventoryKey identifies an inventory row.
type InventoryKey struct {
	PartTypeID int64
	AircraftID int64
}

// InventoryDrift describes a row whose stored quantity disagreed with the
// unused part count during reconciliation.
type InventoryDrift struct {
	Key      InventoryKey
	Stored   int
	Computed int
}

// MissingPart is a shortfall against one aircraft requirement.
type MissingPart struct {
	PartType string `json:"part"`
	Quantity int    `json:"quantity"`
}
