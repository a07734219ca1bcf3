package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/riskibarqy/cricket-ingest/db/migrations"
	"github.com/riskibarqy/cricket-ingest/internal/config"
	"github.com/riskibarqy/cricket-ingest/internal/platform/logging"
)

const dbPingTimeout = 10 * time.Second

// OpenDB opens the traced Postgres pool and applies embedded migrations
// when MIGRATE_ON_START is set. Connections carry runID in application_name.
func OpenDB(ctx context.Context, cfg config.Config, runID string, logger *logging.Logger) (*sqlx.DB, error) {
	dbURL := storeDBURL(cfg.DBURL, dbURLOptions{
		DisablePreparedBinary: cfg.DBDisablePreparedBinary,
		ApplicationName:       runApplicationName(cfg.ServiceName, runID),
	})

	if cfg.MigrateOnStart {
		if err := migrations.Up(dbURL); err != nil {
			return nil, fmt.Errorf("migrate on start: %w", err)
		}
		logger.Info("migrations applied on start")
	}

	db, err := otelsqlx.Open("postgres", dbURL,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(dbURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxOpenConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("postgres connected", "db_name", dbNameFromURL(dbURL), "max_open_conns", cfg.DBMaxOpenConns)
	return db, nil
}
