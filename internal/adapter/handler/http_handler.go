package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rl1809/aircraft-factory/internal/core/domain"
	"github.com/rl1809/aircraft-factory/internal/core/service"
)

// Services groups the use cases the HTTP surface exposes.
type Services struct {
	Accounts   *service.AccountService
	Parts      *service.PartService
	Inventory  *service.InventoryService
	Assemblies *service.AssemblyService
	Catalog    *service.CatalogService
}

type Options struct {
	// AccessTTL is the lifetime of the access_token cookie set on login.
	AccessTTL     time.Duration
	SecureCookies bool
}

type HTTPHandler struct {
	accounts   *service.AccountService
	parts      *service.PartService
	inventory  *service.InventoryService
	assemblies *service.AssemblyService
	catalog    *service.CatalogService
	opts       Options
	logger     *slog.Logger
	metrics    *Metrics
}

func NewHTTPHandler(svc Services, opts Options, logger *slog.Logger, metrics *Metrics) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandler{
		accounts:   svc.Accounts,
		parts:      svc.Parts,
		inventory:  svc.Inventory,
		assemblies: svc.Assemblies,
		catalog:    svc.Catalog,
		opts:       opts,
		logger:     logger,
		metrics:    metrics,
	}
}

// Routes returns the complete HTTP surface wrapped in logging and metrics.
func (h *HTTPHandler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.HealthCheck)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}
	mux.HandleFunc("GET /permission-denied/{$}", h.permissionDenied)

	mux.HandleFunc("POST /accounts/login/{$}", h.login)
	mux.Handle("POST /accounts/logout/{$}", h.authed(h.logout))
	mux.HandleFunc("POST /accounts/token/refresh/{$}", h.refresh)
	mux.Handle("GET /accounts/user/{$}", h.gated(domain.PermManageUsers, h.listUsers))
	mux.Handle("POST /accounts/user/{$}", h.gated(domain.PermManageUsers, h.createUser))
	mux.Handle("GET /accounts/user/{id}/{$}", h.authed(h.getUser))
	mux.Handle("PUT /accounts/user/{id}/{$}", h.gated(domain.PermManageUsers, h.updateUser))
	mux.Handle("DELETE /accounts/user/{id}/{$}", h.gated(domain.PermManageUsers, h.deleteUser))
	mux.Handle("GET /accounts/teams/{$}", h.gated(domain.PermManageUsers, h.listTeams))

	mux.Handle("GET /{$}", h.authed(h.dashboard))

	mux.Handle("GET /inventory/{$}", h.gated(domain.PermViewInventory, h.listInventory))
	mux.Handle("GET /inventory/missing/{$}", h.gated(domain.PermViewInventory, h.missingParts))
	mux.Handle("GET /inventory/{id}/{$}", h.authed(h.getInventory))
	mux.Handle("PATCH /inventory/{id}/{$}", h.gated(domain.PermManageInventory, h.patchInventory))

	mux.Handle("GET /part/{$}", h.gated(domain.PermViewPart, h.listParts))
	mux.Handle("POST /part/{$}", h.gated(domain.PermCreatePart, h.createPart))
	mux.Handle("GET /part/{id}/{$}", h.gated(domain.PermViewPart, h.getPart))
	mux.Handle("DELETE /part/{id}/{$}", h.gated(domain.PermDeletePart, h.deletePart))

	mux.Handle("GET /assembly/{$}", h.gated(domain.PermViewAssembly, h.listAssemblies))
	mux.Handle("POST /assembly/{$}", h.gated(domain.PermManageAssembly, h.createAssembly))
	mux.Handle("GET /assembly/{id}/{$}", h.gated(domain.PermViewAssembly, h.getAssembly))
	mux.Handle("DELETE /assembly/{id}/{$}", h.gated(domain.PermManageAssembly, h.deleteAssembly))

	mux.Handle("GET /aircraft/{aircraft_id}/requirements/{$}", h.gated(domain.PermViewAssembly, h.requirements))
	mux.Handle("GET /aircraft/{aircraft_id}/part_type/{part_type_id}/available_parts/{$}",
		h.gated(domain.PermViewAssembly, h.availableParts))

	return h.instrument(h.recoverer(mux))
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) permissionDenied(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusForbidden, errorJSON{Error: "you do not have permission to view this page"})
}

// fail writes the mapped error. Only unexpected failures are logged here;
// expected rejections are part of normal traffic.
func (h *HTTPHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := httpStatus(err)
	if status == http.StatusInternalServerError {
		user := ""
		if info := infoFrom(r.Context()); info != nil {
			user = info.user
		}
		h.logger.ErrorContext(r.Context(), op+" failed",
			slog.String("user", user),
			slog.String("path", r.URL.Path),
			slog.String("detail", err.Error()),
		)
	}
	writeJSON(w, status, errorJSON{Error: msg})
}

func caller(r *http.Request) service.Capabilities {
	caps, _ := service.CapabilitiesFrom(r.Context())
	return caps
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return domain.Validationf("invalid request body")
	}
	return nil
}

// pathID parses a numeric path value. Anything else cannot name a row.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NotFoundf("not found")
	}
	return id, nil
}

func parseListQuery(r *http.Request) domain.ListQuery {
	q := r.URL.Query()
	atoi := func(key string) int {
		n, _ := strconv.Atoi(q.Get(key))
		return n
	}
	return domain.ListQuery{
		Draw:        atoi("draw"),
		Search:      strings.TrimSpace(q.Get("search_value")),
		OrderColumn: atoi("order_column"),
		Descending:  strings.EqualFold(q.Get("order_dir"), "desc"),
		Start:       atoi("start"),
		Length:      atoi("length"),
	}.Normalize()
}

// Accounts.

func (h *HTTPHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "login", err)
		return
	}
	user, pair, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.WarnContext(r.Context(), "login rejected",
			slog.String("user", req.Username),
			slog.String("path", r.URL.Path),
			slog.String("detail", err.Error()),
		)
		h.fail(w, r, "login", err)
		return
	}
	if info := infoFrom(r.Context()); info != nil {
		info.user = user.Username
	}

	http.SetCookie(w, &http.Cookie{
		Name:     accessCookie,
		Value:    pair.Access,
		Path:     "/",
		MaxAge:   int(h.opts.AccessTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginJSON{
		Message: "login successful",
		Tokens:  tokensJSON{Access: pair.Access, Refresh: pair.Refresh},
		User:    toUser(*user),
	})
}

func (h *HTTPHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Logout(r.Context(), bearerToken(r)); err != nil {
		h.fail(w, r, "logout", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, messageJSON{Message: "logout successful"})
}

func (h *HTTPHandler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "refresh", err)
		return
	}
	if req.Refresh == "" {
		h.fail(w, r, "refresh", domain.Validationf("refresh token is required"))
		return
	}
	access, err := h.accounts.Refresh(r.Context(), req.Refresh)
	if err != nil {
		h.fail(w, r, "refresh", err)
		return
	}
	writeJSON(w, http.StatusOK, tokensJSON{Access: access})
}

func (h *HTTPHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := h.accounts.ListUsers(r.Context(), caller(r), parseListQuery(r))
	if err != nil {
		h.fail(w, r, "list users", err)
		return
	}
	writeJSON(w, http.StatusOK, toList(page, toUser))
}

func (h *HTTPHandler) createUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "create user", err)
		return
	}
	user, err := h.accounts.CreateUser(r.Context(), caller(r), req.input())
	if err != nil {
		h.fail(w, r, "create user", err)
		return
	}
	h.logger.InfoContext(r.Context(), "user created",
		slog.String("user", caller(r).User.Username),
		slog.String("path", r.URL.Path),
		slog.String("detail", user.Username),
	)
	writeJSON(w, http.StatusCreated, toUser(*user))
}

func (h *HTTPHandler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, "get user", err)
		return
	}
	user, err := h.accounts.GetUser(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(*user))
}

func (h *HTTPHandler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, "update user", err)
		return
	}
	var req userRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "update user", err)
		return
	}
	user, err := h.accounts.UpdateUser(r.Context(), caller(r), id, req.input())
	if err != nil {
		h.fail(w, r, "update user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(*user))
}

func (h *HTTPHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, "delete user", err)
		return
	}
	if err := h.accounts.DeleteUser(r.Context(), caller(r), id); err != nil {
		h.fail(w, r, "delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) listTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.accounts.ListTeams(r.Context(), caller(r))
	if err != nil {
		h.fail(w, r, "list teams", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(teams, toTeam))
}

// Dashboard and inventory.

func (h *HTTPHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.catalog.Dashboard(r.Context())
	if err != nil {
		h.fail(w, r, "dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardJSON{
		TotalAircrafts:  d.CompletedAssemblies,
		TotalParts:      d.Parts,
		TotalTeams:      d.Teams,
		TotalAssemblies: d.Assemblies,
	})
}

func (h *HTTPHandler) listInventory(w http.ResponseWriter, r *http.Request) {
	page, err := h.inventory.ListInventory(r.Context(), caller(r), parseListQuery(r))
	if err != nil {
		h.fail(w, r, "list inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, toList(page, toInventory))
}

func (h *HTTPHandler) missingParts(w http.ResponseWriter, r *http.Request) {
	missing, err := h.inventory.MissingParts(r.Context(), caller(r))
	if err != nil {
		h.fail(w, r, "missing parts", err)
		return
	}
	writeJSON(w, http.StatusOK, missing)
}

func (h *HTTPHandler) getInventory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, "get inventory", err)
		return
	}
	inv, err := h.inventory.GetInventory(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, toInventory(*inv))
}

func (h *HTTPHandler) patchInventory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, "update inventory", err)
		return
	}
	var req inventoryPatchRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "update inventory", err)
		return
	}
	if req.MinimumQuantity == nil {
		h.fail(w, r, "update inventory", domain.Validationf("minimum_quantity is required"))
		return
	}
	inv, err := h.inventory.UpdateMinimumQuantity(r.Context(), caller(r), id, *req.MinimumQuantity)
	if err != nil {
		h.fail(w, r, "update inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, toInventory(*inv))
}

// Parts.

func (h *HTTPHandler) listParts(w http.ResponseWriter, r *http.Request) {
	page, err := h.parts.ListParts(r.Context(), caller(r), parseListQuery(r))
	if err != nil {
		h.fail(w, r, "list parts", err)
		return
	}
	writeJSON(w, http.StatusOK, toList(page, toPart))
}

func (h *HTTPHandler) createPart(w http.ResponseWriter, r *http.Request) {
	var req createPartRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "create part", err)
		return
	}
	part, err := h.parts.CreatePart(r.Context(), caller(r), service.CreatePartInput{
		Name:       req.Name,
		PartTypeID: req.Type,
		AircraftID: req.AircraftType,
	})
	if err != nil {
		h.fail(w, r, "create part", err)
		return
	}
	h.logger.InfoContext(r.Context(), "part created",
		slog.String("user", caller(r).User.Username),
		slog.String("path", r.URL.Path),
		slog.String("detail", part.PartType.Name+"/"+part.Aircraft.Name),
	)
	writeJSON(w, http.StatusCreated, toPart(*part))
}

func (h *HTTPHandler) getPart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, "get part", err)
		return
	}
	part, err := h.parts.GetPart(r.Context(), caller(r), id)
	if err != nil {
		h.fail(w, r, "get part", err)
		return
	}
	writeJSON(w, http.StatusOK, toPart(*part))
}

func (h *HTTPHandler) deletePart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, "delete part", err)
		return
	}
	if err := h.parts.DeletePart(r.Context(), caller(r), id); err != nil {
		h.fail(w, r, "delete part", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Assemblies.

func (h *HTTPHandler) listAssemblies(w http.ResponseWriter, r *http.Request) {
	page, err := h.assemblies.ListAssemblies(r.Context(), caller(r), parseListQuery(r))
	if err != nil {
		h.fail(w, r, "list assemblies", err)
		return
	}
	writeJSON(w, http.StatusOK, toList(page, toAssembly))
}

func (h *HTTPHandler) createAssembly(w http.ResponseWriter, r *http.Request) {
	var req createAssemblyRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "create assembly", err)
		return
	}
	caps := caller(r)
	assembly, err := h.assemblies.CreateAssembly(r.Context(), caps, domain.CreateAssemblyInput{
		AircraftID:     req.AircraftType,
		PartIDs:        req.Parts,
		Notes:          req.Notes,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	h.metrics.observeAssembly("http", err)
	if err != nil {
		h.logger.WarnContext(r.Context(), "assembly rejected",
			slog.String("user", caps.User.Username),
			slog.String("path", r.URL.Path),
			slog.String("detail", err.Error()),
		)
		h.fail(w, r, "create assembly", err)
		return
	}
	h.logger.InfoContext(r.Context(), "assembly created",
		slog.String("user", caps.User.Username),
		slog.String("path", r.URL.Path),
		slog.String("detail", assembly.Aircraft.Name),
		slog.Int64("assembly_id", assembly.ID),
	)
	writeJSON(w, http.StatusCreated, toAssembly(*assembly))
}

func (h *HTTPHandler) getAssembly(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, "get assembly", err)
		return
	}
	assembly, err := h.assemblies.GetAssembly(r.Context(), caller(r), id)
	if err != nil {
		h.fail(w, r, "get assembly", err)
		return
	}
	writeJSON(w, http.StatusOK, toAssembly(*assembly))
}

func (h *HTTPHandler) deleteAssembly(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, "delete assembly", err)
		return
	}
	if err := h.assemblies.DeleteAssembly(r.Context(), caller(r), id); err != nil {
		h.fail(w, r, "delete assembly", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Catalog.

func (h *HTTPHandler) requirements(w http.ResponseWriter, r *http.Request) {
	aircraftID, err := pathID(r, "aircraft_id")
	if err != nil {
		h.fail(w, r, "requirements", err)
		return
	}
	reqs, err := h.catalog.Requirements(r.Context(), caller(r), aircraftID)
	if err != nil {
		h.fail(w, r, "requirements", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(reqs, toRequirement))
}

func (h *HTTPHandler) availableParts(w http.ResponseWriter, r *http.Request) {
	aircraftID, err := pathID(r, "aircraft_id")
	if err != nil {
		h.fail(w, r, "available parts", err)
		return
	}
	partTypeID, err := pathID(r, "part_type_id")
	if err != nil {
		h.fail(w, r, "available parts", err)
		return
	}
	parts, err := h.catalog.AvailableParts(r.Context(), caller(r), aircraftID, partTypeID)
	if err != nil {
		h.fail(w, r, "available parts", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(parts, toAvailablePart))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
