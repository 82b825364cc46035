package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/PabloGalante/taskbot/internal/adapters/calendar"
	firestorestore "github.com/PabloGalante/taskbot/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/taskbot/internal/adapters/storage/memory"
	mongostore "github.com/PabloGalante/taskbot/internal/adapters/storage/mongo"
	sqlitestore "github.com/PabloGalante/taskbot/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/taskbot/internal/app/conversation"
	"github.com/PabloGalante/taskbot/internal/app/tasks"
	"github.com/PabloGalante/taskbot/internal/config"
	"github.com/PabloGalante/taskbot/internal/domain"
	"github.com/PabloGalante/taskbot/internal/observability"
)

// app is the wired service graph shared by the commands.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	store  domain.Store
	tasks  *tasks.Manager
	conv   *conversation.Service
	closer func() error
}

func (a *app) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer()
}

// newApp loads the config and wires storage, the calendar mirror and the
// conversation service. Logs go to logOut.
func newApp(ctx context.Context, logOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	observability.Setup(logOut, cfg.LogFormat, cfg.LogLevel)
	log := observability.WithFields("mode", cfg.Mode, "version", Version)

	store, closer, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	opts := []tasks.Option{
		tasks.WithLocation(cfg.Location),
		tasks.WithListLimit(cfg.ListLimit),
	}
	if cfg.Calendar.Enabled {
		cal, err := calendar.New(ctx, cfg.Calendar.CredentialsFile, cfg.Calendar.CalendarID, cfg.Location)
		if err != nil {
			if closer != nil {
				_ = closer()
			}
			return nil, fmt.Errorf("error initializing calendar mirror: %w", err)
		}
		log.Info("calendar mirror enabled", "calendar_id", cfg.Calendar.CalendarID)
		opts = append(opts, tasks.WithCalendar(cal))
	}

	m := tasks.NewManager(store, opts...)
	return &app{
		cfg:    cfg,
		log:    log,
		store:  store,
		tasks:  m,
		conv:   conversation.NewService(m),
		closer: closer,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (domain.Store, func() error, error) {
	switch cfg.StorageBackend {
	case config.BackendFirestore:
		log.Info("using Firestore storage", "project", cfg.GCPProjectID)
		s, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("error initializing Firestore store: %w", err)
		}
		return s, s.Close, nil

	case config.BackendMongo:
		log.Info("using MongoDB storage", "database", cfg.MongoDatabase)
		s, err := mongostore.NewStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, fmt.Errorf("error initializing Mongo store: %w", err)
		}
		return s, s.Close, nil

	case config.BackendSQLite:
		log.Info("using SQLite storage", "path", cfg.SQLitePath)
		s, err := sqlitestore.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("error initializing SQLite store: %w", err)
		}
		return s, s.Close, nil

	default:
		log.Info("using in-memory storage")
		return memstore.NewStore(), nil, nil
	}
}
