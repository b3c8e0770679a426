package domain

import "time"

const (
	PartStatusUsed    = "Kullanıldı"
	PartStatusInStock = "Stokta"
)

type PartType struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// UserRef is the subset of a user carried on parts and assemblies.
type UserRef struct {
	ID       int64
	Username string
	FullName string
	TeamName string
}

func (u UserRef) String() string {
	team := u.TeamName
	if team == "" {
		team = NoTeamLabel
	}
	return u.FullName + " - " + team
}

// Part is a single manufactured unit. It starts unused and is consumed by
// at most one assembly.
type Part struct {
	ID        int64
	Name      string
	PartType  PartType
	Aircraft  Aircraft
	CreatedBy UserRef
	IsUsed    bool
	CreatedAt time.Time
}

func (p Part) Status() string {
	if p.IsUsed {
		return PartStatusUsed
	}
	return PartStatusInStock
}

func (p Part) InventoryKey() InventoryKey {
	return InventoryKey{PartTypeID: p.PartType.ID, AircraftID: p.Aircraft.ID}
}
