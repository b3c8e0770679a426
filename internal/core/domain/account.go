package domain

import "time"

// Permission tags granted to teams.
const (
	PermViewInventory   = "view_inventory"
	PermManageInventory = "manage_inventory"
	PermViewAssembly    = "view_assembly"
	PermManageAssembly  = "manage_assembly"
	PermViewTeams       = "view_teams"
	PermManageTeams     = "manage_teams"
	PermViewUsers       = "view_users"
	PermManageUsers     = "manage_users"
	PermViewPart        = "view_part"
	PermCreatePart      = "create_part"
	PermUpdatePart      = "update_part"
	PermDeletePart      = "delete_part"
)

const NoTeamLabel = "Takım Atanmamış"

// PermissionDescriptions lists every known tag with its display text.
var PermissionDescriptions = map[string]string{
	PermViewInventory:   "Envanter Görüntüleme",
	PermManageInventory: "Envanter Yönetimi",
	PermViewAssembly:    "Montaj Görüntüleme",
	PermManageAssembly:  "Montaj Yönetimi",
	PermViewTeams:       "Takım Görüntüleme",
	PermManageTeams:     "Takım Yönetimi",
	PermViewUsers:       "Kullanıcı Görüntüleme",
	PermManageUsers:     "Kullanıcı Yönetimi",
	PermViewPart:        "Parça Görüntüleme",
	PermCreatePart:      "Parça Oluşturma",
	PermUpdatePart:      "Parça Güncelleme",
	PermDeletePart:      "Parça Silme",
}

// Team groups users. A producing team is responsible for one part type; an
// assembly team has no part type.
type Team struct {
	ID             int64
	Name           string
	PartTypeID     *int64
	IsAssemblyTeam bool
	Permissions    []string
	CreatedAt      time.Time
}

func (t Team) DisplayName() string {
	if t.IsAssemblyTeam {
		return "Montaj Takımı"
	}
	return t.Name
}

type User struct {
	ID           int64
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Team         *Team
	IsActive     bool
	IsSuperuser  bool
	CreatedAt    time.Time
}

func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

func (u User) Ref() UserRef {
	ref := UserRef{ID: u.ID, Username: u.Username, FullName: u.FullName()}
	if u.Team != nil {
		ref.TeamName = u.Team.DisplayName()
	}
	return ref
}

// UserInput carries create and partial update fields. Nil pointers are left
// untouched on update.
type UserInput struct {
	Username        *string
	Email           *string
	Password        *string
	ConfirmPassword *string
	FirstName       *string
	LastName        *string
	TeamID          *int64
	IsActive        *bool
	IsSuperuser     *bool
}
