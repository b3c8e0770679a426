package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rl1809/aircraft-factory/internal/core/domain"
	"github.com/rl1809/aircraft-factory/internal/port"
)

const maxPartNameLength = 100

type CreatePartInput struct {
	Name       string
	PartTypeID int64
	AircraftID int64
}

type PartService struct {
	db port.DatabaseRepository
}

func NewPartService(db port.DatabaseRepository) *PartService {
	return &PartService{db: db}
}

func (s *PartService) CreatePart(ctx context.Context, caps Capabilities, in CreatePartInput) (*domain.Part, error) {
	if err := caps.Require(domain.PermCreatePart); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Validationf("part name is required")
	}
	if utf8.RuneCountInString(name) > maxPartNameLength {
		return nil, domain.Validationf("part name cannot exceed %d characters", maxPartNameLength)
	}

	if !caps.Superuser() {
		if !caps.HasTeam() {
			return nil, domain.Permissionf("user has no team")
		}
		if caps.User.Team.IsAssemblyTeam {
			return nil, domain.Permissionf("the assembly team cannot produce parts")
		}
	}
	if !caps.CanProducePart(in.PartTypeID) {
		return nil, domain.Permissionf("your team cannot produce this part type")
	}

	var created *domain.Part
	err := s.db.WithinTx(ctx, func(tx port.Repository) error {
		pt, err := tx.GetPartType(ctx, in.PartTypeID)
		if err != nil {
			return err
		}
		if pt == nil {
			return domain.NotFoundf("part type %d not found", in.PartTypeID)
		}
		aircraft, err := tx.GetAircraft(ctx, in.AircraftID)
		if err != nil {
			return err
		}
		if aircraft == nil {
			return domain.NotFoundf("aircraft %d not found", in.AircraftID)
		}

		part := domain.Part{
			Name:      name,
			PartType:  *pt,
			Aircraft:  *aircraft,
			CreatedBy: caps.User.Ref(),
		}
		if err := tx.CreatePart(ctx, &part); err != nil {
			return err
		}
		if err := tx.AdjustInventory(ctx, part.InventoryKey(), 1); err != nil {
			return err
		}
		created = &part
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// DeletePart removes an unused part. Used parts belong to an assembly and
// must be released by deleting that assembly first.
func (s *PartService) DeletePart(ctx context.Context, caps Capabilities, id int64) error {
	if err := caps.Require(domain.PermDeletePart); err != nil {
		return err
	}
	return s.db.WithinTx(ctx, func(tx port.Repository) error {
		part, err := tx.GetPart(ctx, id)
		if err != nil {
			return err
		}
		if part == nil {
			return domain.NotFoundf("part %d not found", id)
		}
		if part.IsUsed {
			return domain.Conflictf("used parts cannot be deleted")
		}
		if !caps.CanProducePart(part.PartType.ID) {
			return domain.Permissionf("you can only delete parts of your own team")
		}
		if err := tx.DeletePart(ctx, id); err != nil {
			return err
		}
		return tx.AdjustInventory(ctx, part.InventoryKey(), -1)
	})
}

func (s *PartService) GetPart(ctx context.Context, caps Capabilities, id int64) (*domain.Part, error) {
	if err := caps.Require(domain.PermViewPart); err != nil {
		return nil, err
	}
	scope, err := caps.PartScope()
	if err != nil {
		return nil, err
	}
	part, err := s.db.GetPart(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get part: %w", err)
	}
	if part == nil || (scope.Restricted && part.PartType.ID != scope.PartTypeID) {
		return nil, domain.NotFoundf("part %d not found", id)
	}
	return part, nil
}

func (s *PartService) ListParts(ctx context.Context, caps Capabilities, q domain.ListQuery) (domain.Page[domain.Part], error) {
	if err := caps.Require(domain.PermViewPart); err != nil {
		return domain.Page[domain.Part]{}, err
	}
	scope, err := caps.PartScope()
	if err != nil {
		return domain.Page[domain.Part]{}, err
	}
	return s.db.ListParts(ctx, scope, q.Normalize())
}
