package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/aircraft-factory/internal/adapter/auth"
	"github.com/rl1809/aircraft-factory/internal/adapter/storage"
	"github.com/rl1809/aircraft-factory/internal/core/domain"
	"github.com/rl1809/aircraft-factory/internal/core/service"
	"github.com/rl1809/aircraft-factory/internal/port"
)

const (
	aircraftName  = "TB2"
	partSets      = 5
	totalRequests = 50
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	store, cleanup, err := openStore(ctx)
	if err != nil {
		logger.Error("open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer cleanup()

	cache, closeCache := openCache(ctx, logger)
	defer closeCache()

	if err := store.Migrate(ctx); err != nil {
		logger.Error("migrate", slog.Any("error", err))
		os.Exit(1)
	}

	runID := uuid.NewString()[:8]
	users := []service.SeedUser{{Username: "stress-montaj-" + runID, Password: "x", Team: service.AssemblyTeamName}}
	for _, pt := range service.SeedPartTypes {
		users = append(users, service.SeedUser{Username: "stress-" + pt + "-" + runID, Password: "x", Team: service.ProducingTeamName(pt)})
	}
	if _, err := service.NewSeeder(store, auth.BcryptHasher{Cost: 4}).Run(ctx, users); err != nil {
		logger.Error("seed", slog.Any("error", err))
		os.Exit(1)
	}

	aircraft, err := findAircraft(ctx, store)
	if err != nil {
		logger.Error("find aircraft", slog.Any("error", err))
		os.Exit(1)
	}

	// Each set is exactly one assembly's worth of parts.
	parts := service.NewPartService(store)
	sets := make([][]int64, partSets)
	for i := range sets {
		for _, pt := range service.SeedPartTypes {
			caps, err := capsFor(ctx, store, "stress-"+pt+"-"+runID)
			if err != nil {
				logger.Error("load producer", slog.Any("error", err))
				os.Exit(1)
			}
			for n := 0; n < service.SeedRequirements[pt]; n++ {
				p, err := parts.CreatePart(ctx, caps, service.CreatePartInput{
					Name:       fmt.Sprintf("%s-%s-%d-%d", runID, pt, i, n),
					PartTypeID: *caps.User.Team.PartTypeID,
					AircraftID: aircraft.ID,
				})
				if err != nil {
					logger.Error("create part", slog.Any("error", err))
					os.Exit(1)
				}
				sets[i] = append(sets[i], p.ID)
			}
		}
	}

	assembler, err := capsFor(ctx, store, "stress-montaj-"+runID)
	if err != nil {
		logger.Error("load assembler", slog.Any("error", err))
		os.Exit(1)
	}
	assemblies := service.NewAssemblyService(store, cache)

	var successCount, rejectCount, errorCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	// Every set is requested by totalRequests/partSets goroutines at once.
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := assemblies.CreateAssembly(ctx, assembler, domain.CreateAssemblyInput{
				AircraftID:     aircraft.ID,
				PartIDs:        sets[n%partSets],
				IdempotencyKey: uuid.NewString(),
			})
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrConflict):
				rejectCount.Add(1)
			default:
				errorCount.Add(1)
				logger.Error("assembly attempt", slog.Any("error", err))
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success, rejected, failed := successCount.Load(), rejectCount.Load(), errorCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Database:         %s\n", store.Dialect().Name)
	fmt.Printf("Part Sets:        %d\n", partSets)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Assembled:        %d\n", success)
	fmt.Printf("Rejected:         %d\n", rejected)
	fmt.Printf("Errors:           %d\n", failed)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == partSets && rejected == totalRequests-partSets {
		fmt.Printf("PASS: Exactly %d assemblies succeeded, %d were rejected\n", partSets, totalRequests-partSets)
	} else {
		fmt.Printf("FAIL: Expected %d assembled/%d rejected, got %d/%d (%d errors)\n",
			partSets, totalRequests-partSets, success, rejected, failed)
	}

	drifts, err := service.NewInventoryService(store).Reconcile(ctx)
	if err != nil {
		logger.Error("reconcile", slog.Any("error", err))
		os.Exit(1)
	}
	if len(drifts) == 0 {
		fmt.Println("PASS: Inventory matches unused parts")
	} else {
		fmt.Printf("FAIL: %d inventory rows drifted from the unused part count\n", len(drifts))
	}
}

// openStore uses DB_DRIVER and DB_DSN when set, otherwise a throwaway
// SQLite file.
func openStore(ctx context.Context) (*storage.SQLStore, func(), error) {
	driver, dsn := os.Getenv("DB_DRIVER"), os.Getenv("DB_DSN")
	var tmp string
	if driver == "" {
		dir, err := os.MkdirTemp("", "aircraft-stress-")
		if err != nil {
			return nil, nil, err
		}
		tmp = dir
		driver = storage.DriverSQLite
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", filepath.Join(dir, "stress.db"))
	}
	store, err := storage.Open(ctx, driver, dsn, storage.PoolOptions{MaxOpenConns: 50, MaxIdleConns: 25})
	if err != nil {
		os.RemoveAll(tmp)
		return nil, nil, err
	}
	return store, func() {
		store.Close()
		if tmp != "" {
			os.RemoveAll(tmp)
		}
	}, nil
}

func openCache(ctx context.Context, logger *slog.Logger) (port.CacheRepository, func()) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return storage.NewMemoryCache(), func() {}
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, using in-process cache", slog.Any("error", err))
		rdb.Close()
		return storage.NewMemoryCache(), func() {}
	}
	return storage.NewRedisAdapter(rdb), func() { rdb.Close() }
}

func findAircraft(ctx context.Context, db port.DatabaseRepository) (domain.Aircraft, error) {
	all, err := db.ListAircraft(ctx)
	if err != nil {
		return domain.Aircraft{}, err
	}
	for _, a := range all {
		if a.Name == aircraftName {
			return a, nil
		}
	}
	return domain.Aircraft{}, fmt.Errorf("aircraft %s not seeded", aircraftName)
}

func capsFor(ctx context.Context, db port.DatabaseRepository, username string) (service.Capabilities, error) {
	user, err := db.GetUserByUsername(ctx, username)
	if err != nil {
		return service.Capabilities{}, err
	}
	if user == nil {
		return service.Capabilities{}, fmt.Errorf("user %s not seeded", username)
	}
	return service.ResolveCapabilities(*user), nil
}
