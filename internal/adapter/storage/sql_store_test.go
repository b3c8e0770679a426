package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/aircraft-factory/internal/core/domain"
	"github.com/rl1809/aircraft-factory/internal/port"
)

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "factory.db")
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)

	store, err := Open(context.Background(), DriverSQLite, dsn, PoolOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func getMySQLStore(t *testing.T) *SQLStore {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/aircraft_test?parseTime=true"
	}

	store, err := Open(context.Background(), DriverMySQL, dsn, PoolOptions{MaxOpenConns: 10})
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

type fixture struct {
	wing, body domain.PartType
	tb2, tb3   domain.Aircraft
	team       domain.Team
	user       domain.User
}

func newFixture(t *testing.T, s *SQLStore) fixture {
	t.Helper()
	ctx := context.Background()
	var f fixture
	var err error

	f.wing, err = s.EnsurePartType(ctx, "Kanat")
	require.NoError(t, err)
	f.body, err = s.EnsurePartType(ctx, "Gövde")
	require.NoError(t, err)
	f.tb2, err = s.EnsureAircraft(ctx, "TB2")
	require.NoError(t, err)
	f.tb3, err = s.EnsureAircraft(ctx, "TB3")
	require.NoError(t, err)

	require.NoError(t, s.EnsurePermission(ctx, domain.PermViewPart, "view"))
	require.NoError(t, s.EnsurePermission(ctx, domain.PermCreatePart, "create"))
	f.team, err = s.EnsureTeam(ctx, domain.Team{
		Name:        "Kanat Takımı",
		PartTypeID:  &f.wing.ID,
		Permissions: []string{domain.PermViewPart, domain.PermCreatePart},
	})
	require.NoError(t, err)

	f.user = domain.User{Username: "kanat", FirstName: "Kanat", LastName: "Usta", PasswordHash: "x", IsActive: true, Team: &f.team}
	require.NoError(t, s.CreateUser(ctx, &f.user))
	return f
}

func (f fixture) part(t *testing.T, s *SQLStore, name string, pt domain.PartType, a domain.Aircraft) domain.Part {
	t.Helper()
	p := domain.Part{Name: name, PartType: pt, Aircraft: a, CreatedBy: f.user.Ref()}
	require.NoError(t, s.CreatePart(context.Background(), &p))
	return p
}

func TestRebind(t *testing.T) {
	q := "SELECT * FROM parts WHERE id IN (" + placeholders(3) + ") AND name = '?'"

	assert.Equal(t, q, MySQL.Rebind(q))
	assert.Equal(t, q, SQLite.Rebind(q))
	assert.Equal(t, "SELECT * FROM parts WHERE id IN ($1, $2, $3) AND name = '?'", Postgres.Rebind(q))
}

func TestDialectFor(t *testing.T) {
	for name, want := range map[string]string{
		"mysql": DriverMySQL, "postgresql": DriverPostgres, "pgx": DriverPostgres, "SQLite3": DriverSQLite,
	} {
		d, err := DialectFor(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, d.Name)
	}

	_, err := DialectFor("oracle")
	assert.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newSQLiteStore(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestCatalog(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	f := newFixture(t, s)

	again, err := s.EnsureAircraft(ctx, "TB2")
	require.NoError(t, err)
	assert.Equal(t, f.tb2.ID, again.ID)

	require.NoError(t, s.EnsureRequirement(ctx, f.tb2.ID, f.wing.ID, 2))
	require.NoError(t, s.EnsureRequirement(ctx, f.tb2.ID, f.body.ID, 1))
	// existing quantity is kept
	require.NoError(t, s.EnsureRequirement(ctx, f.tb2.ID, f.wing.ID, 5))

	reqs, err := s.ListRequirements(ctx, f.tb2.ID)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	byType := map[string]int{}
	for _, r := range reqs {
		assert.Equal(t, "TB2", r.Aircraft.Name)
		byType[r.PartType.Name] = r.Quantity
	}
	assert.Equal(t, map[string]int{"Kanat": 2, "Gövde": 1}, byType)

	all, err := s.ListRequirements(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	missing, err := s.GetAircraft(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWithinTx_RollsBack(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	f := newFixture(t, s)

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx port.Repository) error {
		p := domain.Part{Name: "K-1", PartType: f.wing, Aircraft: f.tb2, CreatedBy: f.user.Ref()}
		if err := tx.CreatePart(ctx, &p); err != nil {
			return err
		}
		if err := tx.AdjustInventory(ctx, p.InventoryKey(), 1); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := s.CountParts(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	stock, err := s.InventoryQuantities(ctx)
	require.NoError(t, err)
	assert.Empty(t, stock)
}

func TestParts_LockAndFlip(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	f := newFixture(t, s)

	p1 := f.part(t, s, "K-1", f.wing, f.tb2)
	p2 := f.part(t, s, "K-2", f.wing, f.tb2)

	got, err := s.GetPart(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kanat Usta - Kanat Takımı", got.CreatedBy.String())
	assert.Equal(t, domain.PartStatusInStock, got.Status())

	changed, err := s.SetPartsUsed(ctx, []int64{p1.ID}, true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, changed)

	// already used rows are not touched again
	changed, err = s.SetPartsUsed(ctx, []int64{p1.ID, p2.ID}, true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, changed)

	unused, err := s.LockUnusedParts(ctx, []int64{p1.ID, p2.ID})
	require.NoError(t, err)
	assert.Empty(t, unused)

	changed, err = s.SetPartsUsed(ctx, []int64{p1.ID, p2.ID}, false)
	require.NoError(t, err)
	assert.EqualValues(t, 2, changed)

	unused, err = s.LockUnusedParts(ctx, []int64{p2.ID, p1.ID, 404})
	require.NoError(t, err)
	require.Len(t, unused, 2)
	assert.Equal(t, p1.ID, unused[0].ID)

	counts, err := s.CountUnusedParts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[p1.InventoryKey()])
}

func TestListParts_ScopeSearchAndPaging(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	f := newFixture(t, s)

	for i := 1; i <= 12; i++ {
		f.part(t, s, fmt.Sprintf("Kanat-%02d", i), f.wing, f.tb2)
	}
	f.part(t, s, "Gövde-01", f.body, f.tb3)

	page, err := s.ListParts(ctx, domain.Scope{}, domain.ListQuery{Draw: 3}.Normalize())
	require.NoError(t, err)
	assert.Equal(t, 3, page.Draw)
	assert.Equal(t, 13, page.Total)
	assert.Equal(t, 13, page.Filtered)
	assert.Len(t, page.Items, domain.DefaultPageLength)

	page, err = s.ListParts(ctx, domain.Scope{Restricted: true, PartTypeID: f.wing.ID},
		domain.ListQuery{Start: 10, Length: 10}.Normalize())
	require.NoError(t, err)
	assert.Equal(t, 12, page.Total)
	assert.Len(t, page.Items, 2)

	page, err = s.ListParts(ctx, domain.Scope{}, domain.ListQuery{Search: "tb3"}.Normalize())
	require.NoError(t, err)
	assert.Equal(t, 13, page.Total)
	assert.Equal(t, 1, page.Filtered)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Gövde-01", page.Items[0].Name)

	page, err = s.ListParts(ctx, domain.Scope{}, domain.ListQuery{OrderColumn: 0, Descending: true, Length: 1}.Normalize())
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Kanat-12", page.Items[0].Name)

	// LIKE wildcards in the search text are literal
	page, err = s.ListParts(ctx, domain.Scope{}, domain.ListQuery{Search: "%"}.Normalize())
	require.NoError(t, err)
	assert.Zero(t, page.Filtered)
}

func TestAdjustInventory(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	f := newFixture(t, s)
	key := domain.InventoryKey{PartTypeID: f.wing.ID, AircraftID: f.tb2.ID}

	require.NoError(t, s.AdjustInventory(ctx, key, 1))
	require.NoError(t, s.AdjustInventory(ctx, key, 2))
	require.NoError(t, s.AdjustInventory(ctx, key, -1))

	stock, err := s.InventoryQuantities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stock[key])

	page, err := s.ListInventory(ctx, domain.Scope{}, domain.ListQuery{}.Normalize())
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	inv := page.Items[0]
	assert.Equal(t, "Kanat", inv.PartType.Name)
	assert.Equal(t, 1, inv.MinimumQuantity)
	assert.Equal(t, domain.StockStatusOK, inv.StockStatus())

	require.NoError(t, s.UpdateMinimumQuantity(ctx, inv.ID, 5))
	got, err := s.GetInventory(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StockStatusCritical, got.StockStatus())

	require.NoError(t, s.SetInventoryQuantity(ctx, key, 0))
	got, err = s.GetInventory(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StockStatusEmpty, got.StockStatus())

	scoped, err := s.ListInventory(ctx, domain.Scope{Restricted: true, PartTypeID: f.body.ID}, domain.ListQuery{}.Normalize())
	require.NoError(t, err)
	assert.Zero(t, scoped.Total)
}

func TestAssemblies(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	f := newFixture(t, s)

	p1 := f.part(t, s, "K-1", f.wing, f.tb2)
	p2 := f.part(t, s, "G-1", f.body, f.tb2)

	asm := domain.Assembly{
		Aircraft:    f.tb2,
		Parts:       []domain.Part{p1, p2},
		AssembledBy: f.user.Ref(),
		Notes:       "first",
		IsComplete:  true,
	}
	require.NoError(t, s.CreateAssembly(ctx, &asm))
	require.NotZero(t, asm.ID)

	got, err := s.GetAssembly(ctx, asm.ID)
	require.NoError(t, err)
	assert.Equal(t, "TB2", got.Aircraft.Name)
	assert.Equal(t, "first", got.Notes)
	assert.ElementsMatch(t, []int64{p1.ID, p2.ID}, got.PartIDs())

	page, err := s.ListAssemblies(ctx, domain.ListQuery{Search: "FIRST"}.Normalize())
	require.NoError(t, err)
	assert.Equal(t, 1, page.Filtered)
	require.Len(t, page.Items, 1)
	assert.Len(t, page.Items[0].Parts, 2)

	n, err := s.CountAssemblies(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.DeleteAssembly(ctx, asm.ID))
	got, err = s.GetAssembly(ctx, asm.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAccounts(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	f := newFixture(t, s)

	got, err := s.GetUserByUsername(ctx, "kanat")
	require.NoError(t, err)
	require.NotNil(t, got.Team)
	assert.Equal(t, f.team.ID, got.Team.ID)
	assert.ElementsMatch(t, []string{domain.PermViewPart, domain.PermCreatePart}, got.Team.Permissions)

	dup := domain.User{Username: "kanat", PasswordHash: "x", IsActive: true}
	assert.ErrorIs(t, s.CreateUser(ctx, &dup), port.ErrDuplicate)

	loner := domain.User{Username: "loner", Email: "loner@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, s.CreateUser(ctx, &loner))
	page, err := s.ListUsers(ctx, domain.ListQuery{Search: "example.com"}.Normalize())
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Equal(t, 1, page.Filtered)
	assert.Nil(t, page.Items[0].Team)

	loner.FirstName = "Lone"
	loner.Team = &f.team
	require.NoError(t, s.UpdateUser(ctx, loner))
	got, err = s.GetUser(ctx, loner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lone", got.FullName())
	require.NotNil(t, got.Team)

	f.part(t, s, "K-1", f.wing, f.tb2)
	assert.ErrorIs(t, s.DeleteUser(ctx, f.user.ID), port.ErrReferenced)
	require.NoError(t, s.DeleteUser(ctx, loner.ID))
	got, err = s.GetUser(ctx, loner.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	teams, err := s.ListTeams(ctx)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	again, err := s.EnsureTeam(ctx, domain.Team{Name: "Kanat Takımı", Permissions: []string{domain.PermViewPart}})
	require.NoError(t, err)
	assert.Equal(t, f.team.ID, again.ID)
}

// Two transactions racing for the same parts: the conditional update lets
// exactly one of them flip the rows.
func TestSetPartsUsed_Concurrent(t *testing.T) {
	s := getMySQLStore(t)
	ctx := context.Background()
	cleanMySQL(t, s.DB())
	f := newFixture(t, s)
	p := f.part(t, s, "K-race", f.wing, f.tb2)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithinTx(ctx, func(tx port.Repository) error {
				parts, err := tx.LockUnusedParts(ctx, []int64{p.ID})
				if err != nil || len(parts) == 0 {
					return errors.New("lost")
				}
				n, err := tx.SetPartsUsed(ctx, []int64{p.ID}, true)
				if err != nil || n != 1 {
					return errors.New("lost")
				}
				return nil
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func cleanMySQL(t *testing.T, db *sql.DB) {
	for _, table := range []string{
		"assembly_parts", "assemblies", "inventory", "parts", "users",
		"team_permission_links", "teams", "team_permissions", "aircraft_requirements", "aircraft", "part_types",
	} {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("cleanup %s failed: %v", table, err)
		}
	}
}
