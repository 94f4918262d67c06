package database

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Connect opens a pooled connection for the configured driver and verifies it with a ping.
// The returned *gorm.DB is safe for concurrent use; callers scope individual
// operations with WithContext or Transaction and never hold a raw connection.
func Connect(cfg Config) (*gorm.DB, error) {
	db, err := open(cfg, false)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout(cfg))
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Open prepares the pool without touching the server. The first query, or an
// explicit ping, establishes the connection. It is used for the legacy source,
// whose reachability is checked inside the run so that an outage still ends
// in a recorded, failed run.
func Open(cfg Config) (*gorm.DB, error) {
	return open(cfg, true)
}

func open(cfg Config, lazy bool) (*gorm.DB, error) {
	dialector, err := dialector(cfg, lazy)
	if err != nil {
		return nil, err
	}

	// Suppress GORM logging; the reconciler logs its own structured events.
	// TranslateError maps driver duplicate-key errors onto gorm.ErrDuplicatedKey.
	gormConfig := &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		TranslateError:       true,
		DisableAutomaticPing: lazy,
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 20
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 || maxIdle > maxOpen {
		maxIdle = maxOpen
	}
	// SQLite allows a single writer and in-memory databases are per connection.
	if driverName(cfg) == DriverSQLite {
		maxOpen, maxIdle = 1, 1
	}

	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func pingTimeout(cfg Config) time.Duration {
	if cfg.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(cfg.TimeoutSeconds) * time.Second
}

// Close releases the pool behind db. It is a no-op for nil.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Dialector builds the GORM dialector for cfg without opening a connection.
func Dialector(cfg Config) (gorm.Dialector, error) {
	return dialector(cfg, false)
}

// dialector builds the dialector. A lazy MySQL dialector skips the version
// query gorm otherwise runs while initializing.
func dialector(cfg Config, lazy bool) (gorm.Dialector, error) {
	dsn := cfg.DSN
	switch driverName(cfg) {
	case DriverMySQL:
		if dsn == "" {
			dsn = mysqlDSN(cfg)
		}
		return mysql.New(mysql.Config{DSN: dsn, SkipInitializeWithVersion: lazy}), nil
	case DriverPostgres:
		if dsn == "" {
			dsn = postgresDSN(cfg)
		}
		return postgres.Open(dsn), nil
	case DriverSQLite:
		if dsn == "" {
			dsn = cfg.Name
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}
}

func driverName(cfg Config) string {
	d := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if d == "" {
		d = DriverPostgres
	}
	return d
}

func mysqlDSN(cfg Config) string {
	// Special characters in the password must be URL encoded for the mysql driver.
	userInfo := url.UserPassword(cfg.User, cfg.Password).String()
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	port := cfg.Port
	if port <= 0 {
		port = 3306
	}
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		userInfo, cfg.Host, port, cfg.Name, timeout, timeout, timeout)
}

func postgresDSN(cfg Config) string {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	port := cfg.Port
	if port <= 0 {
		port = 5432
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, port),
		Path:     "/" + cfg.Name,
		RawQuery: fmt.Sprintf("sslmode=disable&connect_timeout=%d", timeout),
	}
	return u.String()
}
