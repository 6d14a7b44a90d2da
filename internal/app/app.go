package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MarkoPoloResearchLab/reflections/internal/catalog"
	"github.com/MarkoPoloResearchLab/reflections/internal/httpapi"
	"github.com/MarkoPoloResearchLab/reflections/internal/logging"
	"github.com/MarkoPoloResearchLab/reflections/internal/metrics"
	"github.com/MarkoPoloResearchLab/reflections/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/reflections/internal/store/memstore"
	"github.com/MarkoPoloResearchLab/reflections/internal/store/pgstore"
	"github.com/MarkoPoloResearchLab/reflections/internal/summary"
	"github.com/MarkoPoloResearchLab/reflections/pkg/journal"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Runtime is the wired journal with every collaborator a command may need.
type Runtime struct {
	Service         *journal.Service
	Catalog         *catalog.Catalog
	Summarizer      *summary.Summarizer
	Audit           *gormstore.AuditLog
	Metrics         *metrics.Recorder
	Watcher         journal.Watcher
	OperationLogger journal.OperationLogger
	Logger          *zap.Logger
	kvStore         journal.KeyValueStore
	closers         []func() error
}

// AuditReport compares the gold recorded in the audit table with the stored balance.
type AuditReport struct {
	RecordedGold int64
	GoldBalance  int
	Consistent   bool
	Records      []gormstore.OperationRecord
}

// Open validates cfg, opens the configured backend and wires the journal service.
// now may be nil to use the wall clock.
func Open(ctx context.Context, cfg Config, logger *zap.Logger, now func() time.Time) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	location, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	formatter, err := journal.NewDateFormatter(cfg.Locale)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	shop, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	runtime := &Runtime{Catalog: shop, Logger: logger}
	if err := runtime.openStores(ctx, cfg); err != nil {
		_ = runtime.Close()
		return nil, err
	}

	runtime.Metrics = metrics.NewRecorder()
	runtime.OperationLogger = logging.Combine(
		logging.NewZapOperationLogger(logger),
		runtime.Metrics,
		runtime.Audit,
	)
	service, err := journal.NewService(
		runtime.kvStore,
		now,
		journal.WithLocation(location),
		journal.WithDateFormatter(formatter),
		journal.WithOperationLogger(runtime.OperationLogger),
	)
	if err != nil {
		_ = runtime.Close()
		return nil, fmt.Errorf("journal service init: %w", err)
	}
	runtime.Service = service

	var remote summary.Remote
	if cfg.SummaryURL != "" {
		client, err := summary.NewClient(cfg.SummaryURL, cfg.SummaryAPIKey, cfg.SummaryTimeout)
		if err != nil {
			_ = runtime.Close()
			return nil, err
		}
		remote = client
	}
	runtime.Summarizer = summary.NewSummarizer(remote, cfg.SummaryRecent, logger)
	return runtime, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}

// memoryDatabaseURL backs the audit log of the memory driver; nothing outlives the process.
const memoryDatabaseURL = ":memory:"

func (runtime *Runtime) openStores(ctx context.Context, cfg Config) error {
	databaseURL := cfg.DatabaseURL
	if cfg.StoreDriver == DriverMemory {
		databaseURL = memoryDatabaseURL
	}
	db, cleanup, _, err := openDatabase(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	runtime.closers = append(runtime.closers, cleanup)
	if err := gormstore.Migrate(db); err != nil {
		return err
	}
	runtime.Audit = gormstore.NewAuditLog(db, func(err error) {
		runtime.Logger.Warn("audit record failed", zap.Error(err))
	})

	switch cfg.StoreDriver {
	case DriverPgx:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("pgx pool open: %w", err)
		}
		runtime.closers = append(runtime.closers, func() error {
			pool.Close()
			return nil
		})
		store := pgstore.New(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		runtime.kvStore = store
		runtime.Watcher = store
	case DriverMemory:
		store := memstore.New()
		runtime.kvStore = store
		runtime.Watcher = store
	default:
		store := gormstore.New(db,
			gormstore.WithPollInterval(cfg.WatchInterval),
			gormstore.WithPollErrorHandler(func(err error) {
				runtime.Logger.Warn("state poll failed", zap.Error(err))
			}),
		)
		runtime.kvStore = store
		runtime.Watcher = store
	}
	return nil
}

// HTTPDependencies returns the collaborators of the HTTP facade.
func (runtime *Runtime) HTTPDependencies() httpapi.Dependencies {
	return httpapi.Dependencies{
		Service:         runtime.Service,
		Catalog:         runtime.Catalog,
		Summarizer:      runtime.Summarizer,
		Watcher:         runtime.Watcher,
		Metrics:         runtime.Metrics.Handler(),
		OperationLogger: runtime.OperationLogger,
		Logger:          runtime.Logger,
	}
}

// CheckAudit loads the newest audit records and checks that the gold they account for
// matches the stored balance.
func (runtime *Runtime) CheckAudit(ctx context.Context, limit int) (AuditReport, error) {
	snapshot, err := runtime.Service.Snapshot(ctx)
	if err != nil {
		return AuditReport{}, err
	}
	recorded, err := runtime.Audit.SumGoldDelta(ctx)
	if err != nil {
		return AuditReport{}, err
	}
	records, err := runtime.Audit.List(ctx, limit)
	if err != nil {
		return AuditReport{}, err
	}
	return AuditReport{
		RecordedGold: recorded,
		GoldBalance:  snapshot.Display.GoldBalance,
		Consistent:   recorded == int64(snapshot.Display.GoldBalance),
		Records:      records,
	}, nil
}

// Close releases every backend connection.
func (runtime *Runtime) Close() error {
	var errs []error
	for index := len(runtime.closers) - 1; index >= 0; index-- {
		if err := runtime.closers[index](); err != nil {
			errs = append(errs, err)
		}
	}
	runtime.closers = nil
	return errors.Join(errs...)
}
