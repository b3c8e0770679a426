package handler

import (
	"time"

	"github.com/rl1809/aircraft-factory/internal/core/domain"
	"github.com/rl1809/aircraft-factory/internal/core/service"
)

// TimeLayout renders timestamps as day.month.year hour:minute.
const TimeLayout = "02.01.2006 15:04"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(TimeLayout)
}

type namedJSON struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type errorJSON struct {
	Error string `json:"error"`
}

type messageJSON struct {
	Message string `json:"message"`
}

type listJSON[T any] struct {
	Draw            int `json:"draw"`
	RecordsTotal    int `json:"recordsTotal"`
	RecordsFiltered int `json:"recordsFiltered"`
	Data            []T `json:"data"`
}

func toList[E, T any](page domain.Page[E], conv func(E) T) listJSON[T] {
	out := listJSON[T]{
		Draw:            page.Draw,
		RecordsTotal:    page.Total,
		RecordsFiltered: page.Filtered,
		Data:            make([]T, len(page.Items)),
	}
	for i, item := range page.Items {
		out.Data[i] = conv(item)
	}
	return out
}

func mapSlice[E, T any](items []E, conv func(E) T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = conv(item)
	}
	return out
}

type partJSON struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Type         namedJSON `json:"type"`
	AircraftType namedJSON `json:"aircraft_type"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    string    `json:"created_at"`
	IsUsed       bool      `json:"is_used"`
	Status       string    `json:"status"`
}

func toPart(p domain.Part) partJSON {
	return partJSON{
		ID:           p.ID,
		Name:         p.Name,
		Type:         namedJSON{ID: p.PartType.ID, Name: p.PartType.Name},
		AircraftType: namedJSON{ID: p.Aircraft.ID, Name: p.Aircraft.Name},
		CreatedBy:    p.CreatedBy.String(),
		CreatedAt:    formatTime(p.CreatedAt),
		IsUsed:       p.IsUsed,
		Status:       p.Status(),
	}
}

type availablePartJSON struct {
	ID   int64     `json:"id"`
	Name string    `json:"name"`
	Type namedJSON `json:"type"`
}

func toAvailablePart(p domain.Part) availablePartJSON {
	return availablePartJSON{ID: p.ID, Name: p.Name, Type: namedJSON{ID: p.PartType.ID, Name: p.PartType.Name}}
}

type assemblyJSON struct {
	ID           int64      `json:"id"`
	AircraftType namedJSON  `json:"aircraft_type"`
	Parts        []partJSON `json:"parts"`
	AssembledBy  string     `json:"assembled_by"`
	AssembledAt  string     `json:"assembled_at"`
	Notes        string     `json:"notes"`
	IsComplete   bool       `json:"is_complete"`
}

func toAssembly(a domain.Assembly) assemblyJSON {
	return assemblyJSON{
		ID:           a.ID,
		AircraftType: namedJSON{ID: a.Aircraft.ID, Name: a.Aircraft.Name},
		Parts:        mapSlice(a.Parts, toPart),
		AssembledBy:  a.AssembledBy.String(),
		AssembledAt:  formatTime(a.AssembledAt),
		Notes:        a.Notes,
		IsComplete:   a.IsComplete,
	}
}

type inventoryJSON struct {
	ID              int64     `json:"id"`
	PartType        namedJSON `json:"part_type"`
	AircraftType    namedJSON `json:"aircraft_type"`
	Quantity        int       `json:"quantity"`
	MinimumQuantity int       `json:"minimum_quantity"`
	UpdatedAt       string    `json:"updated_at"`
	Status          string    `json:"status"`
}

func toInventory(i domain.Inventory) inventoryJSON {
	return inventoryJSON{
		ID:              i.ID,
		PartType:        namedJSON{ID: i.PartType.ID, Name: i.PartType.Name},
		AircraftType:    namedJSON{ID: i.Aircraft.ID, Name: i.Aircraft.Name},
		Quantity:        i.Quantity,
		MinimumQuantity: i.MinimumQuantity,
		UpdatedAt:       formatTime(i.UpdatedAt),
		Status:          i.StockStatus(),
	}
}

type requirementJSON struct {
	ID           int64     `json:"id"`
	AircraftType int64     `json:"aircraft_type"`
	PartType     namedJSON `json:"part_type"`
	Quantity     int       `json:"quantity"`
}

func toRequirement(r domain.Requirement) requirementJSON {
	return requirementJSON{
		ID:           r.ID,
		AircraftType: r.Aircraft.ID,
		PartType:     namedJSON{ID: r.PartType.ID, Name: r.PartType.Name},
		Quantity:     r.Quantity,
	}
}

type teamJSON struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	IsAssemblyTeam bool   `json:"is_assembly_team"`
	PartType       *int64 `json:"part_type"`
}

func toTeam(t domain.Team) teamJSON {
	return teamJSON{ID: t.ID, Name: t.Name, IsAssemblyTeam: t.IsAssemblyTeam, PartType: t.PartTypeID}
}

type userJSON struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	FullName    string    `json:"full_name"`
	Team        *teamJSON `json:"team"`
	Permissions []string  `json:"permissions"`
	CanAssemble bool      `json:"can_assemble"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
}

func toUser(u domain.User) userJSON {
	caps := service.ResolveCapabilities(u)
	out := userJSON{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		FullName:    u.FullName(),
		Permissions: caps.Permissions(),
		CanAssemble: caps.CanAssemble(),
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
	}
	if u.Team != nil {
		t := toTeam(*u.Team)
		out.Team = &t
	}
	return out
}

type dashboardJSON struct {
	TotalAircrafts  int `json:"total_aircrafts"`
	TotalParts      int `json:"total_parts"`
	TotalTeams      int `json:"total_teams"`
	TotalAssemblies int `json:"total_assemblies"`
}

type tokensJSON struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type loginJSON struct {
	Message string     `json:"message"`
	Tokens  tokensJSON `json:"tokens"`
	User    userJSON   `json:"user"`
}

// Request bodies.

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type createPartRequest struct {
	Name         string `json:"name"`
	Type         int64  `json:"type"`
	AircraftType int64  `json:"aircraft_type"`
}

type createAssemblyRequest struct {
	AircraftType int64   `json:"aircraft_type"`
	Parts        []int64 `json:"parts"`
	Notes        string  `json:"notes"`
}

type inventoryPatchRequest struct {
	MinimumQuantity *int `json:"minimum_quantity"`
}

type userRequest struct {
	Username        *string `json:"username"`
	Email           *string `json:"email"`
	Password        *string `json:"password"`
	ConfirmPassword *string `json:"confirm_password"`
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	TeamID          *int64  `json:"team_id"`
	IsActive        *bool   `json:"is_active"`
	IsSuperuser     *bool   `json:"is_superuser"`
}

func (r userRequest) input() domain.UserInput {
	return domain.UserInput{
		Username:        r.Username,
		Email:           r.Email,
		Password:        r.Password,
		ConfirmPassword: r.ConfirmPassword,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		TeamID:          r.TeamID,
		IsActive:        r.IsActive,
		IsSuperuser:     r.IsSuperuser,
	}
}
