package handler

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/aircraft-factory/internal/adapter/handler/rpc"
	"github.com/rl1809/aircraft-factory/internal/core/domain"
	"github.com/rl1809/aircraft-factory/internal/core/service"
)

type GRPCHandler struct {
	assemblies *service.AssemblyService
	logger     *slog.Logger
	metrics    *Metrics
}

func NewGRPCHandler(assemblies *service.AssemblyService, logger *slog.Logger, metrics *Metrics) *GRPCHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCHandler{assemblies: assemblies, logger: logger, metrics: metrics}
}

var _ rpc.AssemblyServiceServer = (*GRPCHandler)(nil)

func (h *GRPCHandler) CreateAssembly(ctx context.Context, req *rpc.CreateAssemblyRequest) (*rpc.Assembly, error) {
	caps, _ := service.CapabilitiesFrom(ctx)
	assembly, err := h.assemblies.CreateAssembly(ctx, caps, domain.CreateAssemblyInput{
		AircraftID:     req.AircraftID,
		PartIDs:        req.PartIDs,
		Notes:          req.Notes,
		IdempotencyKey: req.IdempotencyKey,
	})
	h.metrics.observeAssembly("grpc", err)
	if err != nil {
		h.logger.WarnContext(ctx, "assembly rejected",
			slog.String("user", caps.User.Username),
			slog.String("path", rpc.CreateAssemblyMethod),
			slog.String("detail", err.Error()),
		)
		return nil, grpcError(err)
	}
	return toRPCAssembly(*assembly), nil
}

func (h *GRPCHandler) DeleteAssembly(ctx context.Context, req *rpc.AssemblyIDRequest) (*rpc.Empty, error) {
	caps, _ := service.CapabilitiesFrom(ctx)
	if err := h.assemblies.DeleteAssembly(ctx, caps, req.ID); err != nil {
		return nil, grpcError(err)
	}
	return &rpc.Empty{}, nil
}

func (h *GRPCHandler) GetAssembly(ctx context.Context, req *rpc.AssemblyIDRequest) (*rpc.Assembly, error) {
	caps, _ := service.CapabilitiesFrom(ctx)
	assembly, err := h.assemblies.GetAssembly(ctx, caps, req.ID)
	if err != nil {
		return nil, grpcError(err)
	}
	return toRPCAssembly(*assembly), nil
}

func toRPCAssembly(a domain.Assembly) *rpc.Assembly {
	out := &rpc.Assembly{
		ID:          a.ID,
		Aircraft:    a.Aircraft.Name,
		AssembledBy: a.AssembledBy.String(),
		AssembledAt: a.AssembledAt.UTC().Format(time.RFC3339),
		Notes:       a.Notes,
		IsComplete:  a.IsComplete,
		Parts:       make([]rpc.Part, len(a.Parts)),
	}
	for i, p := range a.Parts {
		out.Parts[i] = rpc.Part{
			ID:       p.ID,
			Name:     p.Name,
			PartType: p.PartType.Name,
			Aircraft: p.Aircraft.Name,
			IsUsed:   p.IsUsed,
		}
	}
	return out
}

// AuthInterceptor resolves the bearer token in the authorization metadata
// and stores the caller's capabilities in the context.
func AuthInterceptor(accounts *service.AccountService) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		var token string
		if values := md.Get("authorization"); len(values) > 0 {
			token, _ = strings.CutPrefix(values[0], "Bearer ")
		}
		if token == "" {
			return nil, status.Error(codes.Unauthenticated, "authentication credentials were not provided")
		}
		caps, err := accounts.Authenticate(ctx, token)
		if err != nil {
			return nil, grpcError(err)
		}
		return next(service.WithCapabilities(ctx, caps), req)
	}
}

// LoggingInterceptor logs one line per call. It must run before
// AuthInterceptor to see rejected credentials.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		level := slog.LevelInfo
		code := status.Code(err)
		if code == codes.Internal || code == codes.Unknown {
			level = slog.LevelError
		}
		logger.LogAttrs(ctx, level, "rpc",
			slog.String("path", info.FullMethod),
			slog.String("detail", code.String()),
			slog.Duration("elapsed", time.Since(start)),
		)
		return resp, err
	}
}
