package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-checkout/migrations"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// PersistenceConfig satisfies the go-persistence-bun config contract.
type PersistenceConfig struct {
	Driver      string        `koanf:"driver" mapstructure:"driver"`
	DSN         string        `koanf:"dsn" mapstructure:"dsn"`
	Debug       bool          `koanf:"debug" mapstructure:"debug"`
	PingTimeout time.Duration `koanf:"ping_timeout" mapstructure:"ping_timeout"`
	Migrate     bool          `koanf:"migrate" mapstructure:"migrate"`
}

func (c PersistenceConfig) GetDebug() bool {
	return c.Debug
}

func (c PersistenceConfig) GetDriver() string {
	return c.Driver
}

func (c PersistenceConfig) GetServer() string {
	return c.DSN
}

func (c PersistenceConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

func (c PersistenceConfig) GetOtelIdentifier() string {
	return "go-checkout"
}

// Open connects the attempt ledger database and, when cfg.Migrate is set,
// applies the embedded migrations for the configured driver.
func Open(ctx context.Context, cfg PersistenceConfig) (*persistence.Client, error) {
	driver := strings.TrimSpace(strings.ToLower(cfg.Driver))
	cfg.Driver = driver
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlstore: dsn is required")
	}
	dialect, migrationDialect, err := resolveDialect(driver)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(cfg, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}
	if !cfg.Migrate {
		return client, nil
	}

	_, err = migrations.Register(ctx, func(_ context.Context, source migrations.Source) error {
		client.RegisterSQLMigrations(source.FS)
		return nil
	}, migrationDialect)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return client, nil
}

func resolveDialect(driver string) (schema.Dialect, string, error) {
	switch driver {
	case DriverPostgres:
		return pgdialect.New(), migrations.DialectPostgres, nil
	case DriverSQLite:
		return sqlitedialect.New(), migrations.DialectSQLite, nil
	default:
		return nil, "", fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
}
