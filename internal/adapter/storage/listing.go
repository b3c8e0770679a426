package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/rl1809/aircraft-factory/internal/core/domain"
)

// listSpec describes a grid listing over one table and its joins.
type listSpec struct {
	// from is the FROM clause including joins.
	from string
	// columns are the orderable expressions addressed by ListQuery.OrderColumn.
	columns []string
	// fallback is used when OrderColumn is out of range.
	fallback string
	// search lists the expressions matched against the search text.
	search []string
}

type condition struct {
	sql  string
	args []any
}

const likeEscape = "!"

// likePattern builds a case-insensitive substring pattern. The term is NFC
// normalized so composed and decomposed Turkish characters match alike.
func likePattern(term string) string {
	term = strings.ToLower(norm.NFC.String(strings.TrimSpace(term)))
	term = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_").Replace(term)
	return "%" + term + "%"
}

func searchCondition(exprs []string, term string) (condition, bool) {
	if strings.TrimSpace(term) == "" || len(exprs) == 0 {
		return condition{}, false
	}
	pattern := likePattern(term)
	parts := make([]string, len(exprs))
	args := make([]any, len(exprs))
	for i, expr := range exprs {
		parts[i] = fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '%s'", expr, likeEscape)
		args[i] = pattern
	}
	return condition{sql: "(" + strings.Join(parts, " OR ") + ")", args: args}, true
}

func whereClause(conds []condition) (string, []any) {
	if len(conds) == 0 {
		return "", nil
	}
	parts := make([]string, len(conds))
	var args []any
	for i, c := range conds {
		parts[i] = c.sql
		args = append(args, c.args...)
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

func (l listSpec) orderBy(q domain.ListQuery) string {
	col := l.fallback
	if q.OrderColumn >= 0 && q.OrderColumn < len(l.columns) {
		col = l.columns[q.OrderColumn]
	}
	dir := "ASC"
	if q.Descending {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", col, dir)
}

// page counts the scoped and searched rows, then scans one page of selected
// columns through scan.
func (s *SQLStore) page(ctx context.Context, list listSpec, scope []condition, q domain.ListQuery, selectCols string, scan func(*sql.Rows) error) (total, filtered int, err error) {
	where, args := whereClause(scope)
	total, err = s.count(ctx, "SELECT COUNT(*) "+list.from+where, args...)
	if err != nil {
		return 0, 0, fmt.Errorf("count rows: %w", err)
	}

	conds := scope
	if c, ok := searchCondition(list.search, q.Search); ok {
		conds = append(append([]condition{}, scope...), c)
		where, args = whereClause(conds)
		filtered, err = s.count(ctx, "SELECT COUNT(*) "+list.from+where, args...)
		if err != nil {
			return 0, 0, fmt.Errorf("count filtered rows: %w", err)
		}
	} else {
		filtered = total
	}

	query := "SELECT " + selectCols + " " + list.from + where + list.orderBy(q) + " LIMIT ? OFFSET ?"
	rows, err := s.query(ctx, query, append(args, q.Length, q.Start)...)
	if err != nil {
		return 0, 0, fmt.Errorf("query page: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return 0, 0, fmt.Errorf("scan row: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, 0, fmt.Errorf("iterate rows: %w", err)
	}
	return total, filtered, nil
}
