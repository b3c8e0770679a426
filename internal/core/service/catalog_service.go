package service

import (
	"context"
	"fmt"

	"github.com/rl1809/aircraft-factory/internal/core/domain"
	"github.com/rl1809/aircraft-factory/internal/port"
)

type CatalogService struct {
	db port.DatabaseRepository
}

func NewCatalogService(db port.DatabaseRepository) *CatalogService {
	return &CatalogService{db: db}
}

// Requirements lists the part types and quantities one assembly of the
// aircraft consumes.
func (s *CatalogService) Requirements(ctx context.Context, caps Capabilities, aircraftID int64) ([]domain.Requirement, error) {
	if err := caps.Require(domain.PermViewAssembly); err != nil {
		return nil, err
	}
	aircraft, err := s.db.GetAircraft(ctx, aircraftID)
	if err != nil {
		return nil, fmt.Errorf("get aircraft: %w", err)
	}
	if aircraft == nil {
		return nil, domain.NotFoundf("aircraft %d not found", aircraftID)
	}
	return s.db.ListRequirements(ctx, aircraft.ID)
}

// AvailableParts lists unused parts that could go into an assembly of the
// aircraft.
func (s *CatalogService) AvailableParts(ctx context.Context, caps Capabilities, aircraftID, partTypeID int64) ([]domain.Part, error) {
	if err := caps.Require(domain.PermViewAssembly); err != nil {
		return nil, err
	}
	return s.db.ListAvailableParts(ctx, aircraftID, partTypeID)
}

func (s *CatalogService) ListAircraft(ctx context.Context) ([]domain.Aircraft, error) {
	return s.db.ListAircraft(ctx)
}

func (s *CatalogService) ListPartTypes(ctx context.Context) ([]domain.PartType, error) {
	return s.db.ListPartTypes(ctx)
}

func (s *CatalogService) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	var (
		d   domain.Dashboard
		err error
	)
	if d.CompletedAssemblies, err = s.db.CountAssemblies(ctx, true); err != nil {
		return d, fmt.Errorf("count completed assemblies: %w", err)
	}
	if d.Assemblies, err = s.db.CountAssemblies(ctx, false); err != nil {
		return d, fmt.Errorf("count assemblies: %w", err)
	}
	if d.Parts, err = s.db.CountParts(ctx); err != nil {
		return d, fmt.Errorf("count parts: %w", err)
	}
	if d.Teams, err = s.db.CountTeams(ctx); err != nil {
		return d, fmt.Errorf("count teams: %w", err)
	}
	return d, nil
}
