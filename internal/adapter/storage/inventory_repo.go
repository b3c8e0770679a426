package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/aircraft-factory/internal/core/domain"
)

const inventoryColumns = `i.id, i.quantity, i.minimum_quantity, i.updated_at,
	pt.id, pt.name, pt.created_at,
	a.id, a.name, a.created_at`

const inventoryFrom = `FROM inventory i
	JOIN part_types pt ON pt.id = i.part_type_id
	JOIN aircraft a ON a.id = i.aircraft_id`

var inventoryList = listSpec{
	from:     inventoryFrom,
	columns:  []string{"pt.name", "a.name", "i.quantity", "i.minimum_quantity", "i.updated_at"},
	fallback: "pt.name",
	search:   []string{"pt.name", "a.name"},
}

func scanInventory(row rowScanner) (domain.Inventory, error) {
	var inv domain.Inventory
	err := row.Scan(
		&inv.ID, &inv.Quantity, &inv.MinimumQuantity, &inv.UpdatedAt,
		&inv.PartType.ID, &inv.PartType.Name, &inv.PartType.CreatedAt,
		&inv.Aircraft.ID, &inv.Aircraft.Name, &inv.Aircraft.CreatedAt,
	)
	return inv, err
}

func (s *SQLStore) AdjustInventory(ctx context.Context, key domain.InventoryKey, delta int) error {
	if delta == 0 {
		return nil
	}

	updated, err := s.addInventory(ctx, key, delta)
	if err != nil || updated {
		return err
	}

	_, err = s.insert(ctx, `
		INSERT INTO inventory (part_type_id, aircraft_id, quantity, minimum_quantity, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		key.PartTypeID, key.AircraftID, delta, 1, s.now(),
	)
	if err == nil {
		return nil
	}
	if !s.dialect.IsUniqueViolation(err) {
		return fmt.Errorf("insert inventory: %w", err)
	}

	// created concurrently
	updated, err = s.addInventory(ctx, key, delta)
	if err != nil {
		return err
	}
	if !updated {
		return ErrOptimisticLock
	}
	return nil
}

func (s *SQLStore) addInventory(ctx context.Context, key domain.InventoryKey, delta int) (bool, error) {
	result, err := s.exec(ctx, `
		UPDATE inventory
		SET quantity = quantity + ?, updated_at = ?
		WHERE part_type_id = ? AND aircraft_id = ?`,
		delta, s.now(), key.PartTypeID, key.AircraftID,
	)
	if err != nil {
		return false, fmt.Errorf("update inventory: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (s *SQLStore) SetInventoryQuantity(ctx context.Context, key domain.InventoryKey, quantity int) error {
	result, err := s.exec(ctx, `
		UPDATE inventory SET quantity = ?, updated_at = ?
		WHERE part_type_id = ? AND aircraft_id = ?`,
		quantity, s.now(), key.PartTypeID, key.AircraftID,
	)
	if err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows > 0 {
		return nil
	}

	_, err = s.insert(ctx, `
		INSERT INTO inventory (part_type_id, aircraft_id, quantity, minimum_quantity, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		key.PartTypeID, key.AircraftID, quantity, 1, s.now(),
	)
	if err != nil {
		return fmt.Errorf("insert inventory: %w", err)
	}
	return nil
}

func (s *SQLStore) GetInventory(ctx context.Context, id int64) (*domain.Inventory, error) {
	inv, err := scanInventory(s.queryRow(ctx, "SELECT "+inventoryColumns+" "+inventoryFrom+" WHERE i.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	return &inv, nil
}

func (s *SQLStore) UpdateMinimumQuantity(ctx context.Context, id int64, minimum int) error {
	_, err := s.exec(ctx, `UPDATE inventory SET minimum_quantity = ?, updated_at = ? WHERE id = ?`,
		minimum, s.now(), id)
	if err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}
	return nil
}

func (s *SQLStore) ListInventory(ctx context.Context, scope domain.Scope, q domain.ListQuery) (domain.Page[domain.Inventory], error) {
	var conds []condition
	if scope.Restricted {
		conds = append(conds, condition{sql: "i.part_type_id = ?", args: []any{scope.PartTypeID}})
	}

	page := domain.Page[domain.Inventory]{Draw: q.Draw, Items: []domain.Inventory{}}
	total, filtered, err := s.page(ctx, inventoryList, conds, q, inventoryColumns, func(rows *sql.Rows) error {
		inv, err := scanInventory(rows)
		if err != nil {
			return err
		}
		page.Items = append(page.Items, inv)
		return nil
	})
	if err != nil {
		return page, fmt.Errorf("list inventory: %w", err)
	}
	page.Total, page.Filtered = total, filtered
	return page, nil
}

func (s *SQLStore) InventoryQuantities(ctx context.Context) (map[domain.InventoryKey]int, error) {
	rows, err := s.query(ctx, `SELECT part_type_id, aircraft_id, quantity FROM inventory`)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.InventoryKey]int)
	for rows.Next() {
		var key domain.InventoryKey
		var n int
		if err := rows.Scan(&key.PartTypeID, &key.AircraftID, &n); err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		out[key] = n
	}
	return out, rows.Err()
}
