package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rl1809/aircraft-factory/internal/core/domain"
	"github.com/rl1809/aircraft-factory/internal/port"
)

// ErrDuplicateRequest is returned when an idempotency key was already used.
var ErrDuplicateRequest = errors.New("duplicate request")

type AssemblyService struct {
	db    port.DatabaseRepository
	cache port.CacheRepository
}

// NewAssemblyService wires the assembly workflow. cache may be nil, in which
// case idempotency keys are ignored.
func NewAssemblyService(db port.DatabaseRepository, cache port.CacheRepository) *AssemblyService {
	return &AssemblyService{db: db, cache: cache}
}

// ValidateSelection checks a part selection against the aircraft's
// requirements. parts holds the unused parts found for requested; a length
// mismatch means some ids were missing or already consumed. On success the
// selected count per part type id is returned.
func ValidateSelection(aircraft domain.Aircraft, requirements []domain.Requirement, requested []int64, parts []domain.Part) (map[int64]int, error) {
	if len(parts) != len(requested) {
		return nil, domain.Validationf("some parts were not found or have already been used")
	}

	selected := make(map[int64]int)
	for _, p := range parts {
		if p.IsUsed {
			return nil, domain.Validationf("part %s has already been used", p.Name)
		}
		if p.Aircraft.ID != aircraft.ID {
			return nil, domain.Validationf("part %s is not suitable for aircraft %s", p.Name, aircraft.Name)
		}
		selected[p.PartType.ID]++
	}

	for _, r := range requirements {
		if got := selected[r.PartType.ID]; got != r.Quantity {
			return nil, domain.Validationf("%d %s parts are required for %s, %d selected",
				r.Quantity, r.PartType.Name, aircraft.Name, got)
		}
	}
	return selected, nil
}

func checkSelection(ids []int64) error {
	if len(ids) == 0 {
		return domain.Validationf("at least one part must be selected")
	}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return domain.Validationf("part %d was selected more than once", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// CreateAssembly consumes the selected parts into a new assembly. Every
// check and write happens in one transaction so two requests racing for
// the same part cannot both succeed.
func (s *AssemblyService) CreateAssembly(ctx context.Context, caps Capabilities, in domain.CreateAssemblyInput) (*domain.Assembly, error) {
	if err := caps.Require(domain.PermManageAssembly); err != nil {
		return nil, err
	}
	if !caps.CanAssemble() {
		if !caps.HasTeam() {
			return nil, domain.Permissionf("user has no team")
		}
		return nil, domain.Permissionf("only the assembly team can assemble aircraft")
	}
	if in.AircraftID <= 0 {
		return nil, domain.Validationf("aircraft is required")
	}
	if err := checkSelection(in.PartIDs); err != nil {
		return nil, err
	}

	idempotencyKey := ""
	if in.IdempotencyKey != "" && s.cache != nil {
		idempotencyKey = fmt.Sprintf("assembly:%d:%s", caps.User.ID, in.IdempotencyKey)
		ok, err := s.cache.SetIdempotency(ctx, idempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return nil, ErrDuplicateRequest
		}
	}

	var created *domain.Assembly
	err := s.db.WithinTx(ctx, func(tx port.Repository) error {
		aircraft, err := tx.GetAircraft(ctx, in.AircraftID)
		if err != nil {
			return err
		}
		if aircraft == nil {
			return domain.NotFoundf("aircraft %d not found", in.AircraftID)
		}

		reqs, err := tx.ListRequirements(ctx, aircraft.ID)
		if err != nil {
			return err
		}
		parts, err := tx.LockUnusedParts(ctx, in.PartIDs)
		if err != nil {
			return err
		}
		if _, err := ValidateSelection(*aircraft, reqs, in.PartIDs, parts); err != nil {
			return err
		}

		assembly := domain.Assembly{
			Aircraft:    *aircraft,
			Parts:       parts,
			AssembledBy: caps.User.Ref(),
			Notes:       in.Notes,
			IsComplete:  true,
		}
		if err := tx.CreateAssembly(ctx, &assembly); err != nil {
			return err
		}
		if err := transitionParts(ctx, tx, parts, true); err != nil {
			return err
		}

		created, err = tx.GetAssembly(ctx, assembly.ID)
		return err
	})
	if err != nil {
		if idempotencyKey != "" {
			_ = s.cache.ReleaseIdempotency(context.WithoutCancel(ctx), idempotencyKey)
		}
		return nil, err
	}
	return created, nil
}

// DeleteAssembly removes an assembly and returns its parts to stock.
func (s *AssemblyService) DeleteAssembly(ctx context.Context, caps Capabilities, id int64) error {
	if err := caps.Require(domain.PermManageAssembly); err != nil {
		return err
	}
	return s.db.WithinTx(ctx, func(tx port.Repository) error {
		assembly, err := tx.GetAssembly(ctx, id)
		if err != nil {
			return err
		}
		if assembly == nil {
			return domain.NotFoundf("assembly %d not found", id)
		}

		var used []domain.Part
		for _, p := range assembly.Parts {
			if p.IsUsed {
				used = append(used, p)
			}
		}
		if err := tx.DeleteAssembly(ctx, id); err != nil {
			return err
		}
		return transitionParts(ctx, tx, used, false)
	})
}

func (s *AssemblyService) GetAssembly(ctx context.Context, caps Capabilities, id int64) (*domain.Assembly, error) {
	if err := caps.Require(domain.PermViewAssembly); err != nil {
		return nil, err
	}
	assembly, err := s.db.GetAssembly(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get assembly: %w", err)
	}
	if assembly == nil {
		return nil, domain.NotFoundf("assembly %d not found", id)
	}
	return assembly, nil
}

func (s *AssemblyService) ListAssemblies(ctx context.Context, caps Capabilities, q domain.ListQuery) (domain.Page[domain.Assembly], error) {
	if err := caps.Require(domain.PermViewAssembly); err != nil {
		return domain.Page[domain.Assembly]{}, err
	}
	return s.db.ListAssemblies(ctx, q.Normalize())
}
