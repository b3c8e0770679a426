package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/aircraft-factory/internal/core/domain"
)

func (s *SQLStore) GetAircraft(ctx context.Context, id int64) (*domain.Aircraft, error) {
	var a domain.Aircraft
	err := s.queryRow(ctx, `SELECT id, name, created_at FROM aircraft WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query aircraft: %w", err)
	}
	return &a, nil
}

func (s *SQLStore) GetPartType(ctx context.Context, id int64) (*domain.PartType, error) {
	var pt domain.PartType
	err := s.queryRow(ctx, `SELECT id, name, created_at FROM part_types WHERE id = ?`, id).
		Scan(&pt.ID, &pt.Name, &pt.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query part type: %w", err)
	}
	return &pt, nil
}

func (s *SQLStore) ListAircraft(ctx context.Context) ([]domain.Aircraft, error) {
	rows, err := s.query(ctx, `SELECT id, name, created_at FROM aircraft ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query aircraft: %w", err)
	}
	defer rows.Close()

	var out []domain.Aircraft
	for rows.Next() {
		var a domain.Aircraft
		if err := rows.Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan aircraft: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListPartTypes(ctx context.Context) ([]domain.PartType, error) {
	rows, err := s.query(ctx, `SELECT id, name, created_at FROM part_types ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query part types: %w", err)
	}
	defer rows.Close()

	var out []domain.PartType
	for rows.Next() {
		var pt domain.PartType
		if err := rows.Scan(&pt.ID, &pt.Name, &pt.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan part type: %w", err)
		}
		out = append(out, pt)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListRequirements(ctx context.Context, aircraftID int64) ([]domain.Requirement, error) {
	query := `
		SELECT r.id, r.quantity, COALESCE(r.notes, ''), a.id, a.name, a.created_at, pt.id, pt.name, pt.created_at
		FROM aircraft_requirements r
		JOIN aircraft a ON a.id = r.aircraft_id
		JOIN part_types pt ON pt.id = r.part_type_id`
	var args []any
	if aircraftID != 0 {
		query += ` WHERE r.aircraft_id = ?`
		args = append(args, aircraftID)
	}
	query += ` ORDER BY a.name, pt.name`

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query requirements: %w", err)
	}
	defer rows.Close()

	var out []domain.Requirement
	for rows.Next() {
		var r domain.Requirement
		if err := rows.Scan(&r.ID, &r.Quantity, &r.Notes,
			&r.Aircraft.ID, &r.Aircraft.Name, &r.Aircraft.CreatedAt,
			&r.PartType.ID, &r.PartType.Name, &r.PartType.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan requirement: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) EnsurePartType(ctx context.Context, name string) (domain.PartType, error) {
	var pt domain.PartType
	err := s.queryRow(ctx, `SELECT id, name, created_at FROM part_types WHERE name = ?`, name).
		Scan(&pt.ID, &pt.Name, &pt.CreatedAt)
	if err == nil {
		return pt, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return pt, fmt.Errorf("query part type: %w", err)
	}

	pt = domain.PartType{Name: name, CreatedAt: s.now()}
	pt.ID, err = s.insert(ctx, `INSERT INTO part_types (name, created_at) VALUES (?, ?)`, pt.Name, pt.CreatedAt)
	if err != nil {
		return pt, fmt.Errorf("insert part type: %w", err)
	}
	return pt, nil
}

func (s *SQLStore) EnsureAircraft(ctx context.Context, name string) (domain.Aircraft, error) {
	var a domain.Aircraft
	err := s.queryRow(ctx, `SELECT id, name, created_at FROM aircraft WHERE name = ?`, name).
		Scan(&a.ID, &a.Name, &a.CreatedAt)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return a, fmt.Errorf("query aircraft: %w", err)
	}

	a = domain.Aircraft{Name: name, CreatedAt: s.now()}
	a.ID, err = s.insert(ctx, `INSERT INTO aircraft (name, created_at) VALUES (?, ?)`, a.Name, a.CreatedAt)
	if err != nil {
		return a, fmt.Errorf("insert aircraft: %w", err)
	}
	return a, nil
}

// EnsureRequirement creates the requirement when absent; an existing
// quantity is left as configured.
func (s *SQLStore) EnsureRequirement(ctx context.Context, aircraftID, partTypeID int64, quantity int) error {
	n, err := s.count(ctx, `SELECT COUNT(*) FROM aircraft_requirements WHERE aircraft_id = ? AND part_type_id = ?`,
		aircraftID, partTypeID)
	if err != nil {
		return fmt.Errorf("query requirement: %w", err)
	}
	if n > 0 {
		return nil
	}

	now := s.now()
	_, err = s.insert(ctx, `
		INSERT INTO aircraft_requirements (aircraft_id, part_type_id, quantity, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		aircraftID, partTypeID, quantity, "", now, now,
	)
	if err != nil {
		return fmt.Errorf("insert requirement: %w", err)
	}
	return nil
}
