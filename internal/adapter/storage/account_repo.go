package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/aircraft-factory/internal/core/domain"
	"github.com/rl1809/aircraft-factory/internal/port"
)

const userColumns = `u.id, u.username, u.email, u.first_name, u.last_name, u.password_hash,
	u.is_active, u.is_superuser, u.created_at,
	t.id, t.name, t.part_type_id, t.is_assembly_team, t.created_at`

const userFrom = `FROM users u
	LEFT JOIN teams t ON t.id = u.team_id`

var userList = listSpec{
	from:     userFrom,
	columns:  []string{"u.username", "u.email", "t.name", "u.is_superuser"},
	fallback: "u.username",
	search:   []string{"u.username", "u.email", "u.first_name", "u.last_name"},
}

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	var (
		teamID     sql.NullInt64
		teamName   sql.NullString
		partTypeID sql.NullInt64
		assembly   sql.NullBool
		teamAt     sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash,
		&u.IsActive, &u.IsSuperuser, &u.CreatedAt,
		&teamID, &teamName, &partTypeID, &assembly, &teamAt,
	)
	if err != nil {
		return u, err
	}
	if teamID.Valid {
		u.Team = &domain.Team{
			ID:             teamID.Int64,
			Name:           teamName.String,
			PartTypeID:     int64Ptr(partTypeID),
			IsAssemblyTeam: assembly.Bool,
			CreatedAt:      teamAt.Time,
		}
	}
	return u, nil
}

// teamPermissions returns the permission tags of each team.
func (s *SQLStore) teamPermissions(ctx context.Context, teamIDs []int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(teamIDs))
	if len(teamIDs) == 0 {
		return out, nil
	}

	rows, err := s.query(ctx, `
		SELECT l.team_id, tp.name
		FROM team_permission_links l
		JOIN team_permissions tp ON tp.id = l.permission_id
		WHERE l.team_id IN (`+placeholders(len(teamIDs))+`)
		ORDER BY tp.name`,
		int64Args(teamIDs)...,
	)
	if err != nil {
		return nil, fmt.Errorf("query team permissions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var teamID int64
		var name string
		if err := rows.Scan(&teamID, &name); err != nil {
			return nil, fmt.Errorf("scan team permission: %w", err)
		}
		out[teamID] = append(out[teamID], name)
	}
	return out, rows.Err()
}

func (s *SQLStore) attachPermissions(ctx context.Context, users []domain.User) error {
	var ids []int64
	seen := make(map[int64]bool)
	for _, u := range users {
		if u.Team != nil && !seen[u.Team.ID] {
			seen[u.Team.ID] = true
			ids = append(ids, u.Team.ID)
		}
	}
	perms, err := s.teamPermissions(ctx, ids)
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].Team != nil {
			users[i].Team.Permissions = perms[users[i].Team.ID]
		}
	}
	return nil
}

func (s *SQLStore) getUser(ctx context.Context, where string, arg any) (*domain.User, error) {
	u, err := scanUser(s.queryRow(ctx, "SELECT "+userColumns+" "+userFrom+" WHERE "+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	users := []domain.User{u}
	if err := s.attachPermissions(ctx, users); err != nil {
		return nil, err
	}
	return &users[0], nil
}

func (s *SQLStore) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.getUser(ctx, "u.id = ?", id)
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.getUser(ctx, "u.username = ?", username)
}

func teamIDOf(u domain.User) *int64 {
	if u.Team == nil {
		return nil
	}
	return &u.Team.ID
}

func (s *SQLStore) CreateUser(ctx context.Context, user *domain.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	id, err := s.insert(ctx, `
		INSERT INTO users (username, email, first_name, last_name, password_hash, team_id, is_active, is_superuser, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Username, user.Email, user.FirstName, user.LastName, user.PasswordHash,
		nullInt64(teamIDOf(*user)), user.IsActive, user.IsSuperuser, user.CreatedAt,
	)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return fmt.Errorf("insert user: %w", port.ErrDuplicate)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID = id
	return nil
}

func (s *SQLStore) UpdateUser(ctx context.Context, user domain.User) error {
	_, err := s.exec(ctx, `
		UPDATE users
		SET username = ?, email = ?, first_name = ?, last_name = ?, password_hash = ?,
			team_id = ?, is_active = ?, is_superuser = ?
		WHERE id = ?`,
		user.Username, user.Email, user.FirstName, user.LastName, user.PasswordHash,
		nullInt64(teamIDOf(user)), user.IsActive, user.IsSuperuser, user.ID,
	)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return fmt.Errorf("update user: %w", port.ErrDuplicate)
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// DeleteUser refuses to remove users that produced parts or assemblies.
func (s *SQLStore) DeleteUser(ctx context.Context, id int64) error {
	refs, err := s.count(ctx, `
		SELECT (SELECT COUNT(*) FROM parts WHERE created_by = ?)
			+ (SELECT COUNT(*) FROM assemblies WHERE assembled_by = ?)`, id, id)
	if err != nil {
		return fmt.Errorf("count user references: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("delete user: %w", port.ErrReferenced)
	}

	if _, err := s.exec(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (s *SQLStore) ListUsers(ctx context.Context, q domain.ListQuery) (domain.Page[domain.User], error) {
	page := domain.Page[domain.User]{Draw: q.Draw, Items: []domain.User{}}
	total, filtered, err := s.page(ctx, userList, nil, q, userColumns, func(rows *sql.Rows) error {
		u, err := scanUser(rows)
		if err != nil {
			return err
		}
		page.Items = append(page.Items, u)
		return nil
	})
	if err != nil {
		return page, fmt.Errorf("list users: %w", err)
	}
	page.Total, page.Filtered = total, filtered

	if err := s.attachPermissions(ctx, page.Items); err != nil {
		return page, err
	}
	return page, nil
}

const teamColumns = `t.id, t.name, t.part_type_id, t.is_assembly_team, t.created_at`

func scanTeam(row rowScanner) (domain.Team, error) {
	var t domain.Team
	var partTypeID sql.NullInt64
	if err := row.Scan(&t.ID, &t.Name, &partTypeID, &t.IsAssemblyTeam, &t.CreatedAt); err != nil {
		return t, err
	}
	t.PartTypeID = int64Ptr(partTypeID)
	return t, nil
}

func (s *SQLStore) GetTeam(ctx context.Context, id int64) (*domain.Team, error) {
	t, err := scanTeam(s.queryRow(ctx, "SELECT "+teamColumns+" FROM teams t WHERE t.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query team: %w", err)
	}

	perms, err := s.teamPermissions(ctx, []int64{t.ID})
	if err != nil {
		return nil, err
	}
	t.Permissions = perms[t.ID]
	return &t, nil
}

func (s *SQLStore) ListTeams(ctx context.Context) ([]domain.Team, error) {
	rows, err := s.query(ctx, "SELECT "+teamColumns+" FROM teams t ORDER BY t.name")
	if err != nil {
		return nil, fmt.Errorf("query teams: %w", err)
	}
	defer rows.Close()

	var teams []domain.Team
	var ids []int64
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate teams: %w", err)
	}
	rows.Close()

	perms, err := s.teamPermissions(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range teams {
		teams[i].Permissions = perms[teams[i].ID]
	}
	return teams, nil
}

func (s *SQLStore) CountTeams(ctx context.Context) (int, error) {
	n, err := s.count(ctx, `SELECT COUNT(*) FROM teams`)
	if err != nil {
		return 0, fmt.Errorf("count teams: %w", err)
	}
	return n, nil
}

func (s *SQLStore) EnsurePermission(ctx context.Context, name, description string) error {
	n, err := s.count(ctx, `SELECT COUNT(*) FROM team_permissions WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("query permission: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.insert(ctx, `INSERT INTO team_permissions (name, description) VALUES (?, ?)`, name, description); err != nil {
		return fmt.Errorf("insert permission: %w", err)
	}
	return nil
}

func (s *SQLStore) EnsureTeam(ctx context.Context, team domain.Team) (domain.Team, error) {
	existing, err := scanTeam(s.queryRow(ctx, "SELECT "+teamColumns+" FROM teams t WHERE t.name = ?", team.Name))
	switch {
	case err == nil:
		existing.Permissions = team.Permissions
		team = existing
	case errors.Is(err, sql.ErrNoRows):
		team.CreatedAt = s.now()
		team.ID, err = s.insert(ctx, `
			INSERT INTO teams (name, part_type_id, is_assembly_team, created_at)
			VALUES (?, ?, ?, ?)`,
			team.Name, nullInt64(team.PartTypeID), team.IsAssemblyTeam, team.CreatedAt,
		)
		if err != nil {
			if s.dialect.IsUniqueViolation(err) {
				return team, fmt.Errorf("insert team: %w", port.ErrDuplicate)
			}
			return team, fmt.Errorf("insert team: %w", err)
		}
	default:
		return team, fmt.Errorf("query team: %w", err)
	}

	for _, name := range team.Permissions {
		var permID int64
		err := s.queryRow(ctx, `SELECT id FROM team_permissions WHERE name = ?`, name).Scan(&permID)
		if errors.Is(err, sql.ErrNoRows) {
			return team, fmt.Errorf("grant %s: unknown permission", name)
		}
		if err != nil {
			return team, fmt.Errorf("query permission: %w", err)
		}

		n, err := s.count(ctx, `SELECT COUNT(*) FROM team_permission_links WHERE team_id = ? AND permission_id = ?`, team.ID, permID)
		if err != nil {
			return team, fmt.Errorf("query permission link: %w", err)
		}
		if n > 0 {
			continue
		}
		if _, err := s.exec(ctx, `INSERT INTO team_permission_links (team_id, permission_id) VALUES (?, ?)`, team.ID, permID); err != nil {
			return team, fmt.Errorf("grant %s: %w", name, err)
		}
	}

	perms, err := s.teamPermissions(ctx, []int64{team.ID})
	if err != nil {
		return team, err
	}
	team.Permissions = perms[team.ID]
	return team, nil
}
