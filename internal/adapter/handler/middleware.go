package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/aircraft-factory/internal/core/service"
)

const (
	accessCookie    = "access_token"
	loginPath       = "/accounts/login/"
	deniedPath      = "/permission-denied/"
	requestIDHeader = "X-Request-ID"
)

// requestInfo is filled in as a request passes through the middleware so
// the access log can name the caller.
type requestInfo struct {
	id   string
	user string
}

type requestInfoKey struct{}

func infoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(*requestInfo)
	return info
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument assigns a request id, logs one line per request and records
// metrics. It wraps the whole mux.
func (h *HTTPHandler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		info := &requestInfo{id: r.Header.Get(requestIDHeader)}
		if info.id == "" {
			info.id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, info.id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		r = r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info))
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		h.metrics.observeRequest(r.Pattern, r.Method, rec.status, elapsed)

		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		h.logger.LogAttrs(r.Context(), level, "request",
			slog.String("request_id", info.id),
			slog.String("user", info.user),
			slog.String("path", r.URL.Path),
			slog.String("detail", r.Method),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", elapsed),
		)
	})
}

// wantsJSON distinguishes API callers from browsers. Browsers are
// redirected on authentication and permission failures instead.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Content-Type"), "application/json") ||
		strings.Contains(r.Header.Get("Accept"), "application/json") ||
		r.URL.Query().Get("format") == "json" ||
		r.Header.Get("Authorization") != ""
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(accessCookie); err == nil {
		return c.Value
	}
	return ""
}

// authenticate resolves the caller once and stores its capabilities in the
// request context.
func (h *HTTPHandler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caps, err := h.accounts.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			status, msg := httpStatus(err)
			if status == http.StatusInternalServerError {
				h.logger.ErrorContext(r.Context(), "authentication failed",
					slog.String("path", r.URL.Path), slog.String("detail", err.Error()))
			}
			if wantsJSON(r) || status != http.StatusUnauthorized {
				writeJSON(w, status, errorJSON{Error: msg})
				return
			}
			http.Redirect(w, r, loginPath+"?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return
		}

		if info := infoFrom(r.Context()); info != nil {
			info.user = caps.User.Username
		}
		next.ServeHTTP(w, r.WithContext(service.WithCapabilities(r.Context(), caps)))
	})
}

// require gates a handler on one permission tag. It must run after
// authenticate.
func (h *HTTPHandler) require(tag string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caps, _ := service.CapabilitiesFrom(r.Context())
		if !caps.Has(tag) {
			h.logger.WarnContext(r.Context(), "permission denied",
				slog.String("user", caps.User.Username),
				slog.String("path", r.URL.Path),
				slog.String("detail", tag),
			)
			if wantsJSON(r) {
				writeJSON(w, http.StatusForbidden, errorJSON{Error: "you do not have the " + tag + " permission"})
				return
			}
			http.Redirect(w, r, deniedPath, http.StatusFound)
			return
		}
		next(w, r)
	})
}

func (h *HTTPHandler) authed(fn http.HandlerFunc) http.Handler {
	return h.authenticate(fn)
}

func (h *HTTPHandler) gated(tag string, fn http.HandlerFunc) http.Handler {
	return h.authenticate(h.require(tag, fn))
}

// recoverer turns a panic into a 500.
func (h *HTTPHandler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				h.logger.ErrorContext(r.Context(), "panic serving request",
					slog.String("path", r.URL.Path), slog.Any("detail", v))
				writeJSON(w, http.StatusInternalServerError, errorJSON{Error: internalMessage})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
