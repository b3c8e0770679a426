package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/aircraft-factory/internal/core/domain"
)

const partColumns = `p.id, p.name, p.is_used, p.created_at,
	pt.id, pt.name, pt.created_at,
	a.id, a.name, a.created_at,
	u.id, u.username, u.first_name, u.last_name, t.name, t.is_assembly_team`

const partFrom = `FROM parts p
	JOIN part_types pt ON pt.id = p.part_type_id
	JOIN aircraft a ON a.id = p.aircraft_id
	JOIN users u ON u.id = p.created_by
	LEFT JOIN teams t ON t.id = u.team_id`

var partList = listSpec{
	from:     partFrom,
	columns:  []string{"p.name", "pt.name", "a.name", "u.username", "p.created_at", "p.is_used"},
	fallback: "p.name",
	search:   []string{"p.name", "pt.name", "a.name"},
}

type rowScanner interface {
	Scan(dest ...any) error
}

// userRefColumns scans u.id, u.username, u.first_name, u.last_name, t.name,
// t.is_assembly_team into a UserRef.
type userRefColumns struct {
	first, last string
	teamName    sql.NullString
	assembly    sql.NullBool
}

func (c *userRefColumns) dest(ref *domain.UserRef) []any {
	return []any{&ref.ID, &ref.Username, &c.first, &c.last, &c.teamName, &c.assembly}
}

func (c *userRefColumns) finish(ref *domain.UserRef) {
	u := domain.User{FirstName: c.first, LastName: c.last}
	ref.FullName = u.FullName()
	if c.teamName.Valid {
		ref.TeamName = domain.Team{Name: c.teamName.String, IsAssemblyTeam: c.assembly.Bool}.DisplayName()
	}
}

func scanPart(row rowScanner) (domain.Part, error) {
	var p domain.Part
	var cols userRefColumns
	dest := []any{
		&p.ID, &p.Name, &p.IsUsed, &p.CreatedAt,
		&p.PartType.ID, &p.PartType.Name, &p.PartType.CreatedAt,
		&p.Aircraft.ID, &p.Aircraft.Name, &p.Aircraft.CreatedAt,
	}
	if err := row.Scan(append(dest, cols.dest(&p.CreatedBy)...)...); err != nil {
		return p, err
	}
	cols.finish(&p.CreatedBy)
	return p, nil
}

func (s *SQLStore) scanParts(ctx context.Context, query string, args ...any) ([]domain.Part, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query parts: %w", err)
	}
	defer rows.Close()

	var out []domain.Part
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			return nil, fmt.Errorf("scan part: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreatePart(ctx context.Context, part *domain.Part) error {
	if part.CreatedAt.IsZero() {
		part.CreatedAt = s.now()
	}
	id, err := s.insert(ctx, `
		INSERT INTO parts (name, part_type_id, aircraft_id, created_by, is_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		part.Name, part.PartType.ID, part.Aircraft.ID, part.CreatedBy.ID, part.IsUsed, part.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert part: %w", err)
	}
	part.ID = id
	return nil
}

func (s *SQLStore) GetPart(ctx context.Context, id int64) (*domain.Part, error) {
	p, err := scanPart(s.queryRow(ctx, "SELECT "+partColumns+" "+partFrom+" WHERE p.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query part: %w", err)
	}
	return &p, nil
}

func (s *SQLStore) LockUnusedParts(ctx context.Context, ids []int64) ([]domain.Part, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	in := placeholders(len(ids))
	args := append(int64Args(ids), false)

	if s.dialect.lockSuffix != "" {
		rows, err := s.query(ctx, "SELECT id FROM parts WHERE id IN ("+in+") AND is_used = ?"+s.dialect.lockSuffix, args...)
		if err != nil {
			return nil, fmt.Errorf("lock parts: %w", err)
		}
		rows.Close()
	}

	return s.scanParts(ctx, "SELECT "+partColumns+" "+partFrom+" WHERE p.id IN ("+in+") AND p.is_used = ? ORDER BY p.id", args...)
}

func (s *SQLStore) SetPartsUsed(ctx context.Context, ids []int64, used bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := append([]any{used}, int64Args(ids)...)
	args = append(args, !used)

	result, err := s.exec(ctx, "UPDATE parts SET is_used = ? WHERE id IN ("+placeholders(len(ids))+") AND is_used = ?", args...)
	if err != nil {
		return 0, fmt.Errorf("update parts: %w", err)
	}
	return result.RowsAffected()
}

func (s *SQLStore) DeletePart(ctx context.Context, id int64) error {
	if _, err := s.exec(ctx, `DELETE FROM parts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete part: %w", err)
	}
	return nil
}

func (s *SQLStore) ListParts(ctx context.Context, scope domain.Scope, q domain.ListQuery) (domain.Page[domain.Part], error) {
	var conds []condition
	if scope.Restricted {
		conds = append(conds, condition{sql: "p.part_type_id = ?", args: []any{scope.PartTypeID}})
	}

	page := domain.Page[domain.Part]{Draw: q.Draw, Items: []domain.Part{}}
	total, filtered, err := s.page(ctx, partList, conds, q, partColumns, func(rows *sql.Rows) error {
		p, err := scanPart(rows)
		if err != nil {
			return err
		}
		page.Items = append(page.Items, p)
		return nil
	})
	if err != nil {
		return page, fmt.Errorf("list parts: %w", err)
	}
	page.Total, page.Filtered = total, filtered
	return page, nil
}

func (s *SQLStore) ListAvailableParts(ctx context.Context, aircraftID, partTypeID int64) ([]domain.Part, error) {
	return s.scanParts(ctx, "SELECT "+partColumns+" "+partFrom+`
		WHERE p.aircraft_id = ? AND p.part_type_id = ? AND p.is_used = ?
		ORDER BY p.created_at DESC, p.id DESC`,
		aircraftID, partTypeID, false,
	)
}

func (s *SQLStore) CountUnusedParts(ctx context.Context) (map[domain.InventoryKey]int, error) {
	rows, err := s.query(ctx, `
		SELECT part_type_id, aircraft_id, COUNT(*)
		FROM parts WHERE is_used = ?
		GROUP BY part_type_id, aircraft_id`, false)
	if err != nil {
		return nil, fmt.Errorf("count unused parts: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.InventoryKey]int)
	for rows.Next() {
		var key domain.InventoryKey
		var n int
		if err := rows.Scan(&key.PartTypeID, &key.AircraftID, &n); err != nil {
			return nil, fmt.Errorf("scan part count: %w", err)
		}
		out[key] = n
	}
	return out, rows.Err()
}

func (s *SQLStore) CountParts(ctx context.Context) (int, error) {
	n, err := s.count(ctx, `SELECT COUNT(*) FROM parts`)
	if err != nil {
		return 0, fmt.Errorf("count parts: %w", err)
	}
	return n, nil
}
