package handler

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/aircraft-factory/internal/core/domain"
	"github.com/rl1809/aircraft-factory/internal/core/service"
)

const internalMessage = "internal error"

// httpStatus maps a service error to a status code and the message shown to
// the caller. Business-rule conflicts are reported as 400 like validation
// failures; only a replayed idempotency key is a 409.
func httpStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrDuplicateRequest):
		return http.StatusConflict, "duplicate request"
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrConflict):
		return http.StatusBadRequest, domain.Message(err, "invalid request")
	case errors.Is(err, domain.ErrPermission):
		return http.StatusForbidden, domain.Message(err, "permission denied")
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, domain.Message(err, "not found")
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, domain.Message(err, "authentication required")
	}
	return http.StatusInternalServerError, internalMessage
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, service.ErrDuplicateRequest):
		return status.Error(codes.AlreadyExists, "duplicate request")
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, domain.Message(err, "invalid request"))
	case errors.Is(err, domain.ErrConflict):
		return status.Error(codes.FailedPrecondition, domain.Message(err, "conflict"))
	case errors.Is(err, domain.ErrPermission):
		return status.Error(codes.PermissionDenied, domain.Message(err, "permission denied"))
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, domain.Message(err, "not found"))
	case errors.Is(err, domain.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, domain.Message(err, "authentication required"))
	}
	return status.Error(codes.Internal, internalMessage)
}

// outcome labels an error for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, service.ErrDuplicateRequest):
		return "duplicate"
	case errors.Is(err, domain.ErrValidation):
		return "rejected"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrPermission), errors.Is(err, domain.ErrUnauthenticated):
		return "denied"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	}
	return "error"
}
