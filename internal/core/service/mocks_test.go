package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/aircraft-factory/internal/adapter/storage"
	"github.com/rl1809/aircraft-factory/internal/core/domain"
)

// Mock CacheRepository
type mockCacheRepo struct {
	idempotencySet map[string]bool
	revoked        map[string]time.Duration
	released       []string
	failSet        bool
	mu             sync.Mutex
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{
		idempotencySet: make(map[string]bool),
		revoked:        make(map[string]time.Duration),
	}
}

func (m *mockCacheRepo) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSet {
		return false, errors.New("cache down")
	}
	if m.idempotencySet[key] {
		return false, nil
	}
	m.idempotencySet[key] = true
	return true, nil
}

func (m *mockCacheRepo) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.idempotencySet, key)
	m.released = append(m.released, key)
	return nil
}

func (m *mockCacheRepo) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tokenID] = ttl
	return nil
}

func (m *mockCacheRepo) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[tokenID]
	return ok, nil
}

// Mock TokenService. Tokens look like "<kind>:<user>:<n>".
type mockTokens struct {
	issued map[string]domain.TokenClaims
	n      int
	mu     sync.Mutex
}

func newMockTokens() *mockTokens {
	return &mockTokens{issued: make(map[string]domain.TokenClaims)}
}

func (m *mockTokens) issue(userID int64, kind domain.TokenKind, ttl time.Duration) string {
	m.n++
	token := fmt.Sprintf("%s:%d:%d", kind, userID, m.n)
	m.issued[token] = domain.TokenClaims{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		ExpiresAt: time.Now().Add(ttl),
	}
	return token
}

func (m *mockTokens) Issue(userID int64) (domain.TokenPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.TokenPair{
		Access:  m.issue(userID, domain.TokenAccess, time.Hour),
		Refresh: m.issue(userID, domain.TokenRefresh, 24*time.Hour),
	}, nil
}

func (m *mockTokens) IssueAccess(userID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.issue(userID, domain.TokenAccess, time.Hour), nil
}

func (m *mockTokens) Validate(token string, kind domain.TokenKind) (domain.TokenClaims, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	claims, ok := m.issued[token]
	if !ok || claims.Kind != kind {
		return domain.TokenClaims{}, errors.New("invalid token")
	}
	return claims, nil
}

// plainHasher stores passwords with a fixed prefix.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }

func (plainHasher) Compare(hash, password string) bool {
	return strings.TrimPrefix(hash, "plain:") == password && strings.HasPrefix(hash, "plain:")
}

// env is a seeded SQLite database plus one user per seeded team.
type env struct {
	store    *storage.SQLStore
	aircraft map[string]domain.Aircraft
	types    map[string]domain.PartType
	users    map[string]domain.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", filepath.Join(t.TempDir(), "svc.db"))
	store, err := storage.Open(ctx, storage.DriverSQLite, dsn, storage.PoolOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(ctx))
	return seedEnv(t, store)
}

// seedEnv seeds an empty, migrated store.
func seedEnv(t *testing.T, store *storage.SQLStore) *env {
	t.Helper()
	ctx := context.Background()
	users := []SeedUser{
		{Username: "admin", Password: "admin", FirstName: "Super", LastName: "User", Superuser: true, Team: ProducingTeamName("Gövde")},
		{Username: "montaj", Password: "montaj", FirstName: "Montaj", LastName: "Kullanıcısı", Team: AssemblyTeamName},
		{Username: "loner", Password: "loner"},
	}
	for _, pt := range SeedPartTypes {
		users = append(users, SeedUser{Username: strings.ToLower(pt), Password: "pw", FirstName: pt, Team: ProducingTeamName(pt)})
	}
	_, err := NewSeeder(store, plainHasher{}).Run(ctx, users)
	require.NoError(t, err)

	e := &env{
		store:    store,
		aircraft: map[string]domain.Aircraft{},
		types:    map[string]domain.PartType{},
		users:    map[string]domain.User{},
	}
	aircraft, err := store.ListAircraft(ctx)
	require.NoError(t, err)
	for _, a := range aircraft {
		e.aircraft[a.Name] = a
	}
	types, err := store.ListPartTypes(ctx)
	require.NoError(t, err)
	for _, pt := range types {
		e.types[pt.Name] = pt
	}
	for _, u := range users {
		got, err := store.GetUserByUsername(ctx, u.Username)
		require.NoError(t, err)
		e.users[u.Username] = *got
	}
	return e
}

func (e *env) caps(username string) Capabilities {
	return ResolveCapabilities(e.users[username])
}

// produce creates n parts of partType for aircraft through the part service
// as the producing team's user.
func (e *env) produce(t *testing.T, partType, aircraft string, n int) []domain.Part {
	t.Helper()
	svc := NewPartService(e.store)
	caps := e.caps(strings.ToLower(partType))
	var out []domain.Part
	for i := 0; i < n; i++ {
		p, err := svc.CreatePart(context.Background(), caps, CreatePartInput{
			Name:       fmt.Sprintf("%s-%s-%d", aircraft, partType, i+1),
			PartTypeID: e.types[partType].ID,
			AircraftID: e.aircraft[aircraft].ID,
		})
		require.NoError(t, err)
		out = append(out, *p)
	}
	return out
}

// fullSet produces exactly one assembly's worth of parts for aircraft.
func (e *env) fullSet(t *testing.T, aircraft string) []int64 {
	t.Helper()
	var ids []int64
	for _, pt := range SeedPartTypes {
		for _, p := range e.produce(t, pt, aircraft, SeedRequirements[pt]) {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func (e *env) stock(t *testing.T, partType, aircraft string) int {
	t.Helper()
	q, err := e.store.InventoryQuantities(context.Background())
	require.NoError(t, err)
	return q[domain.InventoryKey{PartTypeID: e.types[partType].ID, AircraftID: e.aircraft[aircraft].ID}]
}
