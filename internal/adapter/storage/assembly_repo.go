package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/aircraft-factory/internal/core/domain"
)

const assemblyColumns = `asm.id, asm.assembled_at, COALESCE(asm.notes, ''), asm.is_complete,
	a.id, a.name, a.created_at,
	u.id, u.username, u.first_name, u.last_name, t.name, t.is_assembly_team`

const assemblyFrom = `FROM assemblies asm
	JOIN aircraft a ON a.id = asm.aircraft_id
	JOIN users u ON u.id = asm.assembled_by
	LEFT JOIN teams t ON t.id = u.team_id`

var assemblyList = listSpec{
	from:     assemblyFrom,
	columns:  []string{"a.name", "u.username", "asm.assembled_at", "asm.is_complete"},
	fallback: "asm.assembled_at",
	search:   []string{"a.name", "u.username", "COALESCE(asm.notes, '')"},
}

func scanAssembly(row rowScanner) (domain.Assembly, error) {
	var asm domain.Assembly
	var cols userRefColumns
	dest := []any{
		&asm.ID, &asm.AssembledAt, &asm.Notes, &asm.IsComplete,
		&asm.Aircraft.ID, &asm.Aircraft.Name, &asm.Aircraft.CreatedAt,
	}
	if err := row.Scan(append(dest, cols.dest(&asm.AssembledBy)...)...); err != nil {
		return asm, err
	}
	cols.finish(&asm.AssembledBy)
	return asm, nil
}

func (s *SQLStore) CreateAssembly(ctx context.Context, asm *domain.Assembly) error {
	if asm.AssembledAt.IsZero() {
		asm.AssembledAt = s.now()
	}
	id, err := s.insert(ctx, `
		INSERT INTO assemblies (aircraft_id, assembled_by, assembled_at, notes, is_complete)
		VALUES (?, ?, ?, ?, ?)`,
		asm.Aircraft.ID, asm.AssembledBy.ID, asm.AssembledAt, asm.Notes, asm.IsComplete,
	)
	if err != nil {
		return fmt.Errorf("insert assembly: %w", err)
	}
	asm.ID = id

	for _, part := range asm.Parts {
		if _, err := s.exec(ctx, `INSERT INTO assembly_parts (assembly_id, part_id) VALUES (?, ?)`, id, part.ID); err != nil {
			return fmt.Errorf("attach part %d: %w", part.ID, err)
		}
	}
	return nil
}

func (s *SQLStore) GetAssembly(ctx context.Context, id int64) (*domain.Assembly, error) {
	asm, err := scanAssembly(s.queryRow(ctx, "SELECT "+assemblyColumns+" "+assemblyFrom+" WHERE asm.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query assembly: %w", err)
	}

	parts, err := s.assemblyParts(ctx, []int64{asm.ID})
	if err != nil {
		return nil, err
	}
	asm.Parts = parts[asm.ID]
	return &asm, nil
}

// assemblyParts loads the member parts of each assembly, newest first.
func (s *SQLStore) assemblyParts(ctx context.Context, ids []int64) (map[int64][]domain.Part, error) {
	out := make(map[int64][]domain.Part, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.query(ctx, "SELECT ap.assembly_id, "+partColumns+" "+partFrom+`
		JOIN assembly_parts ap ON ap.part_id = p.id
		WHERE ap.assembly_id IN (`+placeholders(len(ids))+`)
		ORDER BY p.created_at DESC, p.id DESC`,
		int64Args(ids)...,
	)
	if err != nil {
		return nil, fmt.Errorf("query assembly parts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var assemblyID int64
		p, err := scanPart(prefixScanner{row: rows, prefix: &assemblyID})
		if err != nil {
			return nil, fmt.Errorf("scan assembly part: %w", err)
		}
		out[assemblyID] = append(out[assemblyID], p)
	}
	return out, rows.Err()
}

// prefixScanner prepends one destination to every Scan call.
type prefixScanner struct {
	row    rowScanner
	prefix any
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.row.Scan(append([]any{p.prefix}, dest...)...)
}

func (s *SQLStore) DeleteAssembly(ctx context.Context, id int64) error {
	if _, err := s.exec(ctx, `DELETE FROM assembly_parts WHERE assembly_id = ?`, id); err != nil {
		return fmt.Errorf("detach parts: %w", err)
	}
	if _, err := s.exec(ctx, `DELETE FROM assemblies WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete assembly: %w", err)
	}
	return nil
}

func (s *SQLStore) ListAssemblies(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Assembly], error) {
	page := domain.Page[domain.Assembly]{Draw: q.Draw, Items: []domain.Assembly{}}
	total, filtered, err := s.page(ctx, assemblyList, nil, q, assemblyColumns, func(rows *sql.Rows) error {
		asm, err := scanAssembly(rows)
		if err != nil {
			return err
		}
		page.Items = append(page.Items, asm)
		return nil
	})
	if err != nil {
		return page, fmt.Errorf("list assemblies: %w", err)
	}
	page.Total, page.Filtered = total, filtered

	ids := make([]int64, len(page.Items))
	for i, asm := range page.Items {
		ids[i] = asm.ID
	}
	parts, err := s.assemblyParts(ctx, ids)
	if err != nil {
		return page, err
	}
	for i := range page.Items {
		page.Items[i].Parts = parts[page.Items[i].ID]
	}
	return page, nil
}

func (s *SQLStore) CountAssemblies(ctx context.Context, completedOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM assemblies`
	var args []any
	if completedOnly {
		query += ` WHERE is_complete = ?`
		args = append(args, true)
	}
	n, err := s.count(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("count assemblies: %w", err)
	}
	return n, nil
}
