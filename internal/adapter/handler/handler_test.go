package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/aircraft-factory/internal/adapter/auth"
	"github.com/rl1809/aircraft-factory/internal/adapter/storage"
	"github.com/rl1809/aircraft-factory/internal/core/domain"
	"github.com/rl1809/aircraft-factory/internal/core/service"
)

// stack is a fully wired application on a temporary SQLite database.
type stack struct {
	store    *storage.SQLStore
	tokens   *auth.JWTService
	svc      Services
	metrics  *Metrics
	server   *httptest.Server
	client   *http.Client
	aircraft map[string]int64
	types    map[string]int64
	users    map[string]domain.User
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", filepath.Join(t.TempDir(), "http.db"))
	store, err := storage.Open(ctx, storage.DriverSQLite, dsn, storage.PoolOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(ctx))

	hasher := auth.BcryptHasher{Cost: bcrypt.MinCost}
	users := []service.SeedUser{
		{Username: "admin", Password: "admin", Superuser: true},
		{Username: "montaj", Password: "montaj", Team: service.AssemblyTeamName},
		{Username: "loner", Password: "loner"},
	}
	for _, pt := range service.SeedPartTypes {
		users = append(users, service.SeedUser{Username: strings.ToLower(pt), Password: "pw", FirstName: pt, Team: service.ProducingTeamName(pt)})
	}
	_, err = service.NewSeeder(store, hasher).Run(ctx, users)
	require.NoError(t, err)

	tokens := auth.NewJWTService("test-secret", time.Hour, 24*time.Hour)
	cache := storage.NewMemoryCache()
	s := &stack{
		store:  store,
		tokens: tokens,
		svc: Services{
			Accounts:   service.NewAccountService(store, cache, tokens, hasher),
			Parts:      service.NewPartService(store),
			Inventory:  service.NewInventoryService(store),
			Assemblies: service.NewAssemblyService(store, cache),
			Catalog:    service.NewCatalogService(store),
		},
		metrics:  NewMetrics(),
		aircraft: map[string]int64{},
		types:    map[string]int64{},
		users:    map[string]domain.User{},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHTTPHandler(s.svc, Options{AccessTTL: time.Hour}, logger, s.metrics)
	s.server = httptest.NewServer(h.Routes())
	t.Cleanup(s.server.Close)
	s.client = &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}

	aircraft, err := store.ListAircraft(ctx)
	require.NoError(t, err)
	for _, a := range aircraft {
		s.aircraft[a.Name] = a.ID
	}
	types, err := store.ListPartTypes(ctx)
	require.NoError(t, err)
	for _, pt := range types {
		s.types[pt.Name] = pt.ID
	}
	for _, u := range users {
		got, err := store.GetUserByUsername(ctx, u.Username)
		require.NoError(t, err)
		s.users[u.Username] = *got
	}
	return s
}

func (s *stack) token(t *testing.T, username string) string {
	t.Helper()
	pair, err := s.tokens.Issue(s.users[username].ID)
	require.NoError(t, err)
	return pair.Access
}

// do sends a JSON request. An empty token sends no credentials.
func (s *stack) do(t *testing.T, method, path, token string, body any, header ...string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func decodeInto[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func (s *stack) createPart(t *testing.T, username, partType, aircraft string) partJSON {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/part/", s.token(t, username), createPartRequest{
		Name:         partType + " " + aircraft,
		Type:         s.types[partType],
		AircraftType: s.aircraft[aircraft],
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	return decodeInto[partJSON](t, body)
}

// fullSet produces one assembly's worth of parts for aircraft.
func (s *stack) fullSet(t *testing.T, aircraft string) []int64 {
	t.Helper()
	var ids []int64
	for _, pt := range service.SeedPartTypes {
		for i := 0; i < service.SeedRequirements[pt]; i++ {
			ids = append(ids, s.createPart(t, strings.ToLower(pt), pt, aircraft).ID)
		}
	}
	return ids
}

func TestHealthAndMetrics(t *testing.T) {
	s := newStack(t)

	resp, body := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))

	resp, body = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `aircraft_http_requests_total{code="200",method="GET",route="GET /health"} 1`)
}

func TestLogin(t *testing.T) {
	s := newStack(t)

	resp, body := s.do(t, http.MethodPost, "/accounts/login/", "", loginRequest{Username: "montaj", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"error":"invalid username or password"}`, string(body))

	resp, body = s.do(t, http.MethodPost, "/accounts/login/", "", loginRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = s.do(t, http.MethodPost, "/accounts/login/", "", loginRequest{Username: "montaj", Password: "montaj"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	got := decodeInto[loginJSON](t, body)
	assert.NotEmpty(t, got.Tokens.Access)
	assert.NotEmpty(t, got.Tokens.Refresh)
	assert.Equal(t, "montaj", got.User.Username)
	assert.True(t, got.User.CanAssemble)
	assert.ElementsMatch(t, []string{domain.PermViewAssembly, domain.PermManageAssembly}, got.User.Permissions)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == accessCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, got.Tokens.Access, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 3600, cookie.MaxAge)
}

func TestAccessGate(t *testing.T) {
	s := newStack(t)
	kanat := s.token(t, "kanat")

	resp, _ := s.do(t, http.MethodGet, "/part/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/part/", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := s.do(t, http.MethodGet, "/accounts/user/", kanat, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, string(body), domain.PermManageUsers)

	// Browsers carry the cookie and get redirects instead of JSON.
	browser := func(path string, cookie string) *http.Response {
		req, err := http.NewRequest(http.MethodGet, s.server.URL+path, nil)
		require.NoError(t, err)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: accessCookie, Value: cookie})
		}
		resp, err := s.client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	resp = browser("/part/", "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/accounts/login/?next=%2Fpart%2F", resp.Header.Get("Location"))

	resp = browser("/accounts/user/", kanat)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/permission-denied/", resp.Header.Get("Location"))

	resp = browser("/part/", kanat)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestParts(t *testing.T) {
	s := newStack(t)
	kanat := s.token(t, "kanat")

	part := s.createPart(t, "kanat", "Kanat", "TB2")
	assert.Equal(t, "Kanat", part.Type.Name)
	assert.Equal(t, "TB2", part.AircraftType.Name)
	assert.Equal(t, domain.PartStatusInStock, part.Status)
	assert.Equal(t, "Kanat - Kanat Takımı", part.CreatedBy)

	// Wrong team for the part type.
	resp, _ := s.do(t, http.MethodPost, "/part/", kanat, createPartRequest{
		Name: "gövde", Type: s.types["Gövde"], AircraftType: s.aircraft["TB2"],
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := s.do(t, http.MethodPost, "/part/", kanat, createPartRequest{
		Name: " ", Type: s.types["Kanat"], AircraftType: s.aircraft["TB2"],
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	resp, body = s.do(t, http.MethodGet, fmt.Sprintf("/part/%d/", part.ID), kanat, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, part.ID, decodeInto[partJSON](t, body).ID)

	// The avionics team cannot see wing parts.
	resp, _ = s.do(t, http.MethodGet, fmt.Sprintf("/part/%d/", part.ID), s.token(t, "aviyonik"), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/part/abc/", kanat, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(t, http.MethodDelete, fmt.Sprintf("/part/%d/", part.ID), kanat, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, fmt.Sprintf("/part/%d/", part.ID), kanat, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListParts_Paging(t *testing.T) {
	s := newStack(t)
	for _, aircraft := range []string{"TB2", "TB3", "AKINCI"} {
		s.createPart(t, "kanat", "Kanat", aircraft)
	}
	s.createPart(t, "kuyruk", "Kuyruk", "TB2")

	resp, body := s.do(t, http.MethodGet, "/part/?draw=4&start=0&length=2", s.token(t, "kanat"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decodeInto[listJSON[partJSON]](t, body)
	assert.Equal(t, 4, page.Draw)
	assert.Equal(t, 3, page.RecordsTotal)
	assert.Equal(t, 3, page.RecordsFiltered)
	assert.Len(t, page.Data, 2)

	resp, body = s.do(t, http.MethodGet, "/part/?search_value=akinci", s.token(t, "admin"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page = decodeInto[listJSON[partJSON]](t, body)
	assert.Equal(t, 4, page.RecordsTotal)
	assert.Equal(t, 1, page.RecordsFiltered)
}

func TestAssemblyLifecycle(t *testing.T) {
	s := newStack(t)
	montaj := s.token(t, "montaj")
	ids := s.fullSet(t, "TB2")

	resp, body := s.do(t, http.MethodPost, "/assembly/", montaj, createAssemblyRequest{
		AircraftType: s.aircraft["TB2"],
		Parts:        ids,
		Notes:        "ilk montaj",
	}, "Idempotency-Key", "req-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	created := decodeInto[assemblyJSON](t, body)
	assert.Equal(t, "TB2", created.AircraftType.Name)
	assert.True(t, created.IsComplete)
	assert.Len(t, created.Parts, len(ids))
	assert.Equal(t, "ilk montaj", created.Notes)
	for _, p := range created.Parts {
		assert.True(t, p.IsUsed)
	}

	resp, _ = s.do(t, http.MethodPost, "/assembly/", montaj, createAssemblyRequest{
		AircraftType: s.aircraft["TB2"],
		Parts:        ids,
	}, "Idempotency-Key", "req-1")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Parts already used are a business-rule rejection.
	resp, body = s.do(t, http.MethodPost, "/assembly/", montaj, createAssemblyRequest{
		AircraftType: s.aircraft["TB2"],
		Parts:        ids,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "error")

	resp, body = s.do(t, http.MethodGet, "/assembly/", montaj, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decodeInto[listJSON[assemblyJSON]](t, body).RecordsTotal)

	resp, body = s.do(t, http.MethodGet, "/", montaj, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, dashboardJSON{TotalAircrafts: 1, TotalParts: len(ids), TotalTeams: 5, TotalAssemblies: 1},
		decodeInto[dashboardJSON](t, body))

	resp, _ = s.do(t, http.MethodDelete, fmt.Sprintf("/assembly/%d/", created.ID), montaj, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = s.do(t, http.MethodGet, fmt.Sprintf("/part/%d/", ids[0]), s.token(t, "admin"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decodeInto[partJSON](t, body).IsUsed)

	_, body = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Contains(t, string(body), `aircraft_assembly_attempts_total{outcome="success",transport="http"} 1`)
	assert.Contains(t, string(body), `aircraft_assembly_attempts_total{outcome="duplicate",transport="http"} 1`)
}

func TestCreateAssembly_Rejections(t *testing.T) {
	s := newStack(t)
	ids := s.fullSet(t, "TB2")

	tests := []struct {
		name   string
		user   string
		body   createAssemblyRequest
		status int
	}{
		{"producer cannot assemble", "kanat", createAssemblyRequest{AircraftType: s.aircraft["TB2"], Parts: ids}, http.StatusForbidden},
		{"missing parts", "montaj", createAssemblyRequest{AircraftType: s.aircraft["TB2"], Parts: ids[:4]}, http.StatusBadRequest},
		{"wrong aircraft", "montaj", createAssemblyRequest{AircraftType: s.aircraft["TB3"], Parts: ids}, http.StatusBadRequest},
		{"no parts", "montaj", createAssemblyRequest{AircraftType: s.aircraft["TB2"]}, http.StatusBadRequest},
		{"unknown aircraft", "montaj", createAssemblyRequest{AircraftType: 999, Parts: ids}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := s.do(t, http.MethodPost, "/assembly/", s.token(t, tt.user), tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
			assert.NotEmpty(t, decodeInto[errorJSON](t, body).Error)
		})
	}
}

func TestCatalogEndpoints(t *testing.T) {
	s := newStack(t)
	montaj := s.token(t, "montaj")
	part := s.createPart(t, "kanat", "Kanat", "TB3")

	resp, body := s.do(t, http.MethodGet, fmt.Sprintf("/aircraft/%d/requirements/", s.aircraft["TB3"]), montaj, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reqs := decodeInto[[]requirementJSON](t, body)
	assert.Len(t, reqs, len(service.SeedPartTypes))

	resp, _ = s.do(t, http.MethodGet, "/aircraft/999/requirements/", montaj, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	path := fmt.Sprintf("/aircraft/%d/part_type/%d/available_parts/", s.aircraft["TB3"], s.types["Kanat"])
	resp, body = s.do(t, http.MethodGet, path, montaj, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	available := decodeInto[[]availablePartJSON](t, body)
	require.Len(t, available, 1)
	assert.Equal(t, part.ID, available[0].ID)
}

func TestInventoryEndpoints(t *testing.T) {
	s := newStack(t)
	s.createPart(t, "kanat", "Kanat", "TB2")
	admin := s.token(t, "admin")

	resp, body := s.do(t, http.MethodGet, "/inventory/?search_value=kanat&length=100", s.token(t, "kanat"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decodeInto[listJSON[inventoryJSON]](t, body)
	var row inventoryJSON
	for _, r := range page.Data {
		assert.Equal(t, "Kanat", r.PartType.Name)
		if r.AircraftType.Name == "TB2" {
			row = r
		}
	}
	require.NotZero(t, row.ID)
	assert.Equal(t, 1, row.Quantity)

	resp, _ = s.do(t, http.MethodPatch, fmt.Sprintf("/inventory/%d/", row.ID), s.token(t, "kanat"), inventoryPatchRequest{MinimumQuantity: ptr(5)})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPatch, fmt.Sprintf("/inventory/%d/", row.ID), admin, inventoryPatchRequest{MinimumQuantity: ptr(-1)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = s.do(t, http.MethodPatch, fmt.Sprintf("/inventory/%d/", row.ID), admin, inventoryPatchRequest{MinimumQuantity: ptr(5)})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	updated := decodeInto[inventoryJSON](t, body)
	assert.Equal(t, 5, updated.MinimumQuantity)
	assert.Equal(t, domain.StockStatusCritical, updated.Status)

	resp, body = s.do(t, http.MethodGet, fmt.Sprintf("/inventory/%d/", row.ID), s.token(t, "montaj"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, decodeInto[inventoryJSON](t, body).MinimumQuantity)

	resp, body = s.do(t, http.MethodGet, "/inventory/missing/", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	missing := decodeInto[map[string][]domain.MissingPart](t, body)
	assert.Contains(t, missing, "TB2")
}

func TestUserEndpoints(t *testing.T) {
	s := newStack(t)
	admin := s.token(t, "admin")

	resp, body := s.do(t, http.MethodPost, "/accounts/user/", admin, userRequest{
		Username:        ptr("yeni"),
		Email:           ptr("yeni@example.com"),
		Password:        ptr("secret1"),
		ConfirmPassword: ptr("secret2"),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	resp, body = s.do(t, http.MethodPost, "/accounts/user/", admin, userRequest{
		Username:        ptr("yeni"),
		Email:           ptr("yeni@example.com"),
		Password:        ptr("secret1"),
		ConfirmPassword: ptr("secret1"),
		FirstName:       ptr("Yeni"),
		LastName:        ptr("Üye"),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	created := decodeInto[userJSON](t, body)
	assert.Equal(t, "Yeni Üye", created.FullName)
	assert.Nil(t, created.Team)

	resp, body = s.do(t, http.MethodPut, fmt.Sprintf("/accounts/user/%d/", created.ID), admin, userRequest{
		TeamID: ptr(s.users["kanat"].Team.ID),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	updated := decodeInto[userJSON](t, body)
	require.NotNil(t, updated.Team)
	assert.Contains(t, updated.Permissions, domain.PermCreatePart)

	resp, _ = s.do(t, http.MethodPost, "/accounts/login/", "", loginRequest{Username: "yeni", Password: "secret1"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = s.do(t, http.MethodGet, "/accounts/user/", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, len(s.users)+1, decodeInto[listJSON[userJSON]](t, body).RecordsTotal)

	resp, body = s.do(t, http.MethodGet, "/accounts/teams/", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeInto[[]teamJSON](t, body), len(service.SeedPartTypes)+1)

	resp, _ = s.do(t, http.MethodDelete, fmt.Sprintf("/accounts/user/%d/", s.users["admin"].ID), admin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodDelete, fmt.Sprintf("/accounts/user/%d/", created.ID), admin, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, fmt.Sprintf("/accounts/user/%d/", created.ID), admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRefreshAndLogout(t *testing.T) {
	s := newStack(t)

	resp, body := s.do(t, http.MethodPost, "/accounts/login/", "", loginRequest{Username: "kanat", Password: "pw"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decodeInto[loginJSON](t, body)

	resp, _ = s.do(t, http.MethodPost, "/accounts/token/refresh/", "", refreshRequest{Refresh: login.Tokens.Access})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = s.do(t, http.MethodPost, "/accounts/token/refresh/", "", refreshRequest{Refresh: login.Tokens.Refresh})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	refreshed := decodeInto[tokensJSON](t, body)
	assert.NotEmpty(t, refreshed.Access)
	assert.Empty(t, refreshed.Refresh)

	resp, _ = s.do(t, http.MethodPost, "/accounts/logout/", login.Tokens.Access, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/part/", login.Tokens.Access, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/part/", refreshed.Access, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestParseListQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/part/?draw=2&search_value=+kanat+&order_column=3&order_dir=DESC&start=20&length=500", nil)
	q := parseListQuery(req)
	assert.Equal(t, domain.ListQuery{
		Draw:        2,
		Search:      "kanat",
		OrderColumn: 3,
		Descending:  true,
		Start:       20,
		Length:      domain.MaxPageLength,
	}, q)

	q = parseListQuery(httptest.NewRequest(http.MethodGet, "/part/?length=x", nil))
	assert.Equal(t, 1, q.Draw)
	assert.Equal(t, domain.DefaultPageLength, q.Length)
}

func ptr[T any](v T) *T { return &v }
