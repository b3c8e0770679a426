package service

import (
	"context"
	"fmt"

	"github.com/rl1809/aircraft-factory/internal/core/domain"
	"github.com/rl1809/aircraft-factory/internal/port"
)

// Reference data loaded by the seed command.
var (
	SeedPartTypes = []string{"Gövde", "Kanat", "Aviyonik", "Kuyruk"}
	SeedAircraft  = []string{"TB2", "TB3", "AKINCI", "KIZILELMA"}

	// SeedRequirements is the per-assembly part count of every seeded aircraft.
	SeedRequirements = map[string]int{"Gövde": 1, "Kanat": 2, "Aviyonik": 1, "Kuyruk": 1}
)

const AssemblyTeamName = "Montaj Takımı"

var (
	assemblyPermissions = []string{domain.PermViewAssembly, domain.PermManageAssembly}
	partPermissions     = []string{
		domain.PermViewPart, domain.PermCreatePart, domain.PermUpdatePart,
		domain.PermDeletePart, domain.PermViewInventory,
	}
)

// ProducingTeamName is the team responsible for producing partType.
func ProducingTeamName(partType string) string {
	return partType + " Takımı"
}

type SeedUser struct {
	Username  string `yaml:"username"`
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Team      string `yaml:"team"`
	Superuser bool   `yaml:"superuser"`
}

type SeedReport struct {
	PartTypes    int
	Aircraft     int
	Teams        int
	CreatedUsers []string
}

type Seeder struct {
	db     port.DatabaseRepository
	hasher port.PasswordHasher
}

func NewSeeder(db port.DatabaseRepository, hasher port.PasswordHasher) *Seeder {
	return &Seeder{db: db, hasher: hasher}
}

// Run loads reference data and the given users. Existing rows are kept, so
// running it twice changes nothing.
func (s *Seeder) Run(ctx context.Context, users []SeedUser) (SeedReport, error) {
	var report SeedReport
	err := s.db.WithinTx(ctx, func(tx port.Repository) error {
		for tag, desc := range domain.PermissionDescriptions {
			if err := tx.EnsurePermission(ctx, tag, desc); err != nil {
				return err
			}
		}

		partTypes := make(map[string]domain.PartType, len(SeedPartTypes))
		for _, name := range SeedPartTypes {
			pt, err := tx.EnsurePartType(ctx, name)
			if err != nil {
				return err
			}
			partTypes[name] = pt
		}
		report.PartTypes = len(partTypes)

		teams := make(map[string]domain.Team)
		team, err := tx.EnsureTeam(ctx, domain.Team{
			Name:           AssemblyTeamName,
			IsAssemblyTeam: true,
			Permissions:    assemblyPermissions,
		})
		if err != nil {
			return err
		}
		teams[team.Name] = team
		for _, name := range SeedPartTypes {
			ptID := partTypes[name].ID
			team, err := tx.EnsureTeam(ctx, domain.Team{
				Name:        ProducingTeamName(name),
				PartTypeID:  &ptID,
				Permissions: partPermissions,
			})
			if err != nil {
				return err
			}
			teams[team.Name] = team
		}
		report.Teams = len(teams)

		for _, name := range SeedAircraft {
			aircraft, err := tx.EnsureAircraft(ctx, name)
			if err != nil {
				return err
			}
			for _, ptName := range SeedPartTypes {
				if err := tx.EnsureRequirement(ctx, aircraft.ID, partTypes[ptName].ID, SeedRequirements[ptName]); err != nil {
					return err
				}
			}
		}
		report.Aircraft = len(SeedAircraft)

		for _, u := range users {
			created, err := s.ensureUser(ctx, tx, u, teams)
			if err != nil {
				return fmt.Errorf("seed user %s: %w", u.Username, err)
			}
			if created {
				report.CreatedUsers = append(report.CreatedUsers, u.Username)
			}
		}
		return nil
	})
	if err != nil {
		return SeedReport{}, fmt.Errorf("seed: %w", err)
	}
	return report, nil
}

func (s *Seeder) ensureUser(ctx context.Context, tx port.Repository, u SeedUser, teams map[string]domain.Team) (bool, error) {
	if u.Username == "" || u.Password == "" {
		return false, nil
	}
	existing, err := tx.GetUserByUsername(ctx, u.Username)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	hash, err := s.hasher.Hash(u.Password)
	if err != nil {
		return false, err
	}
	user := domain.User{
		Username:     u.Username,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: hash,
		IsActive:     true,
		IsSuperuser:  u.Superuser,
	}
	if u.Team != "" {
		team, ok := teams[u.Team]
		if !ok {
			return false, fmt.Errorf("unknown team %q", u.Team)
		}
		user.Team = &team
	}
	if err := tx.CreateUser(ctx, &user); err != nil {
		return false, err
	}
	return true, nil
}
