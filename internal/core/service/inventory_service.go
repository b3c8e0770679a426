package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/rl1809/aircraft-factory/internal/core/domain"
	"github.com/rl1809/aircraft-factory/internal/port"
)

type InventoryService struct {
	db port.DatabaseRepository
}

func NewInventoryService(db port.DatabaseRepository) *InventoryService {
	return &InventoryService{db: db}
}

// transitionParts flips parts into the used state (or back) and moves the
// inventory ledger by one for each part that changed. Callers pass only
// parts currently in the opposite state; a short row count means another
// transaction got there first.
func transitionParts(ctx context.Context, tx port.Repository, parts []domain.Part, used bool) error {
	if len(parts) == 0 {
		return nil
	}

	ids := make([]int64, len(parts))
	groups := make(map[domain.InventoryKey]int)
	for i, p := range parts {
		ids[i] = p.ID
		groups[p.InventoryKey()]++
	}

	changed, err := tx.SetPartsUsed(ctx, ids, used)
	if err != nil {
		return fmt.Errorf("update parts: %w", err)
	}
	if changed != int64(len(ids)) {
		return &domain.Error{Kind: domain.ErrConflict, Message: "some parts were changed by another request, please retry"}
	}

	sign := 1
	if used {
		sign = -1
	}
	for _, key := range sortedKeys(groups) {
		if err := tx.AdjustInventory(ctx, key, sign*groups[key]); err != nil {
			return fmt.Errorf("adjust inventory: %w", err)
		}
	}
	return nil
}

// Keys are applied in a fixed order so concurrent transactions lock
// inventory rows in the same sequence.
func sortedKeys(m map[domain.InventoryKey]int) []domain.InventoryKey {
	keys := make([]domain.InventoryKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].PartTypeID != keys[j].PartTypeID {
			return keys[i].PartTypeID < keys[j].PartTypeID
		}
		return keys[i].AircraftID < keys[j].AircraftID
	})
	return keys
}

func (s *InventoryService) GetInventory(ctx context.Context, id int64) (*domain.Inventory, error) {
	inv, err := s.db.GetInventory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	if inv == nil {
		return nil, domain.NotFoundf("inventory %d not found", id)
	}
	return inv, nil
}

func (s *InventoryService) ListInventory(ctx context.Context, caps Capabilities, q domain.ListQuery) (domain.Page[domain.Inventory], error) {
	if err := caps.Require(domain.PermViewInventory); err != nil {
		return domain.Page[domain.Inventory]{}, err
	}
	scope, err := caps.PartScope()
	if err != nil {
		return domain.Page[domain.Inventory]{}, err
	}
	return s.db.ListInventory(ctx, scope, q.Normalize())
}

// UpdateMinimumQuantity changes the reorder threshold. Quantity itself is
// never writable from outside.
func (s *InventoryService) UpdateMinimumQuantity(ctx context.Context, caps Capabilities, id int64, minimum int) (*domain.Inventory, error) {
	if err := caps.Require(domain.PermManageInventory); err != nil {
		return nil, err
	}
	if minimum < 0 {
		return nil, domain.Validationf("minimum quantity cannot be negative")
	}

	var updated *domain.Inventory
	err := s.db.WithinTx(ctx, func(tx port.Repository) error {
		inv, err := tx.GetInventory(ctx, id)
		if err != nil {
			return err
		}
		if inv == nil {
			return domain.NotFoundf("inventory %d not found", id)
		}
		if err := tx.UpdateMinimumQuantity(ctx, id, minimum); err != nil {
			return err
		}
		inv.MinimumQuantity = minimum
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// MissingParts reports, per aircraft name, every required part type whose
// unused stock is below the per-assembly requirement.
func (s *InventoryService) MissingParts(ctx context.Context, caps Capabilities) (map[string][]domain.MissingPart, error) {
	if err := caps.Require(domain.PermViewInventory); err != nil {
		return nil, err
	}

	reqs, err := s.db.ListRequirements(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("list requirements: %w", err)
	}
	stock, err := s.db.CountUnusedParts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count parts: %w", err)
	}

	out := make(map[string][]domain.MissingPart)
	for _, r := range reqs {
		key := domain.InventoryKey{PartTypeID: r.PartType.ID, AircraftID: r.Aircraft.ID}
		if short := r.Quantity - stock[key]; short > 0 {
			out[r.Aircraft.Name] = append(out[r.Aircraft.Name], domain.MissingPart{
				PartType: r.PartType.Name,
				Quantity: short,
			})
		}
	}
	return out, nil
}

// Reconcile rewrites every stored quantity that disagrees with the number
// of unused parts and returns what it changed.
func (s *InventoryService) Reconcile(ctx context.Context) ([]domain.InventoryDrift, error) {
	var drifts []domain.InventoryDrift
	err := s.db.WithinTx(ctx, func(tx port.Repository) error {
		computed, err := tx.CountUnusedParts(ctx)
		if err != nil {
			return err
		}
		stored, err := tx.InventoryQuantities(ctx)
		if err != nil {
			return err
		}

		all := make(map[domain.InventoryKey]int, len(stored))
		for k := range stored {
			all[k] = 0
		}
		for k := range computed {
			all[k] = 0
		}

		for _, key := range sortedKeys(all) {
			have, want := stored[key], computed[key]
			if _, exists := stored[key]; exists && have == want {
				continue
			}
			if err := tx.SetInventoryQuantity(ctx, key, want); err != nil {
				return err
			}
			if have != want {
				drifts = append(drifts, domain.InventoryDrift{Key: key, Stored: have, Computed: want})
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile inventory: %w", err)
	}
	return drifts, nil
}
