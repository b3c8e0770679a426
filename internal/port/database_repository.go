package port

import (
	"context"
	"errors"

	"github.com/rl1809/aircraft-factory/internal/core/domain"
)

var (
	// ErrDuplicate is wrapped by writes that hit a unique constraint.
	ErrDuplicate = errors.New("duplicate key")

	// ErrReferenced is returned when a row cannot be deleted because other
	// rows still point at it.
	ErrReferenced = errors.New("row is still referenced")

	// ErrOptimisticLock is returned when a conditional write lost a race
	// with another transaction.
	ErrOptimisticLock = errors.New("optimistic lock conflict")
)

// Lookups return (nil, nil) when the row does not exist.

type CatalogRepository interface {
	GetAircraft(ctx context.Context, id int64) (*domain.Aircraft, error)
	GetPartType(ctx context.Context, id int64) (*domain.PartType, error)
	ListAircraft(ctx context.Context) ([]domain.Aircraft, error)
	ListPartTypes(ctx context.Context) ([]domain.PartType, error)

	// ListRequirements returns the requirement rows of one aircraft, or of
	// every aircraft when aircraftID is zero.
	ListRequirements(ctx context.Context, aircraftID int64) ([]domain.Requirement, error)

	EnsurePartType(ctx context.Context, name string) (domain.PartType, error)
	EnsureAircraft(ctx context.Context, name string) (domain.Aircraft, error)
	EnsureRequirement(ctx context.Context, aircraftID, partTypeID int64, quantity int) error
}

type PartRepository interface {
	CreatePart(ctx context.Context, part *domain.Part) error
	GetPart(ctx context.Context, id int64) (*domain.Part, error)

	// LockUnusedParts fetches the unused parts among ids, locking their rows
	// for the rest of the transaction where the database supports it.
	LockUnusedParts(ctx context.Context, ids []int64) ([]domain.Part, error)

	// SetPartsUsed flips is_used on every id whose flag currently differs
	// from used and returns the number of rows changed.
	SetPartsUsed(ctx context.Context, ids []int64, used bool) (int64, error)

	DeletePart(ctx context.Context, id int64) error
	ListParts(ctx context.Context, scope domain.Scope, q domain.ListQuery) (domain.Page[domain.Part], error)
	ListAvailableParts(ctx context.Context, aircraftID, partTypeID int64) ([]domain.Part, error)
	CountUnusedParts(ctx context.Context) (map[domain.InventoryKey]int, error)
	CountParts(ctx context.Context) (int, error)
}

type InventoryRepository interface {
	// AdjustInventory adds delta to the row for key, creating it first when
	// it does not exist.
	AdjustInventory(ctx context.Context, key domain.InventoryKey, delta int) error
	SetInventoryQuantity(ctx context.Context, key domain.InventoryKey, quantity int) error
	GetInventory(ctx context.Context, id int64) (*domain.Inventory, error)
	UpdateMinimumQuantity(ctx context.Context, id int64, minimum int) error
	ListInventory(ctx context.Context, scope domain.Scope, q domain.ListQuery) (domain.Page[domain.Inventory], error)
	InventoryQuantities(ctx context.Context) (map[domain.InventoryKey]int, error)
}

type AssemblyRepository interface {
	// CreateAssembly inserts the assembly row and its part links.
	CreateAssembly(ctx context.Context, assembly *domain.Assembly) error
	GetAssembly(ctx context.Context, id int64) (*domain.Assembly, error)
	DeleteAssembly(ctx context.Context, id int64) error
	ListAssemblies(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Assembly], error)
	CountAssemblies(ctx context.Context, completedOnly bool) (int, error)
}

type AccountRepository interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateUser(ctx context.Context, user domain.User) error
	DeleteUser(ctx context.Context, id int64) error
	ListUsers(ctx context.Context, q domain.ListQuery) (domain.Page[domain.User], error)

	GetTeam(ctx context.Context, id int64) (*domain.Team, error)
	ListTeams(ctx context.Context) ([]domain.Team, error)
	CountTeams(ctx context.Context) (int, error)

	EnsurePermission(ctx context.Context, name, description string) error
	// EnsureTeam finds the team by name or creates it, then grants the
	// team's permissions.
	EnsureTeam(ctx context.Context, team domain.Team) (domain.Team, error)
}

type Repository interface {
	CatalogRepository
	PartRepository
	InventoryRepository
	AssemblyRepository
	AccountRepository
}

type DatabaseRepository interface {
	Repository

	// WithinTx runs fn inside one transaction. Any error returned by fn
	// rolls back every write made through the repository it receives.
	WithinTx(ctx context.Context, fn func(tx Repository) error) error
}
