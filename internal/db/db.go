package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"saasan/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

const defaultURL = "sqlite://saasan.db"

// Open connects to the database named by url. postgres:// and postgresql://
// URLs use the postgres driver; sqlite:// (or an empty url) uses pure-Go
// SQLite.
func Open(url string, maxOpenConns int) (*gorm.DB, error) {
	if url == "" {
		url = defaultURL
		slog.Warn("database url not set, falling back to local sqlite", "url", url)
	}

	var (
		dialector gorm.Dialector
		isSQLite  bool
	)
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		dialector = postgres.Open(url)
	case strings.HasPrefix(url, "sqlite://"):
		dialector = sqlite.Open(sqliteDSN(strings.TrimPrefix(url, "sqlite://")))
		isSQLite = true
	default:
		return nil, fmt.Errorf("unsupported database url %q: must start with postgres:// or sqlite://", url)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := gdb.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("enable gorm tracing: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if isSQLite {
		// SQLite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		if maxOpenConns <= 0 {
			maxOpenConns = 20
		}
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetMaxIdleConns(maxOpenConns / 2)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("database connection established", "dialect", gdb.Dialector.Name())
	return gdb, nil
}

// sqliteDSN turns foreign keys on for every connection the pool opens.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

// Migrate creates or updates every table the service owns.
func Migrate(gdb *gorm.DB) error {
	err := gdb.AutoMigrate(
		&models.Report{},
		&models.Vote{},
		&models.Evidence{},
		&models.StatusUpdate{},
		&models.Politician{},
		&models.MajorCase{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	slog.Info("database migration completed")
	return nil
}

// Ping is used by the health endpoint.
func Ping(ctx context.Context, gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
