package pricing

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates a named in-memory SQLite database.
func setupTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	clean := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name() + "_" + name)
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", clean)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// setupTarget creates the pricing tables with INR, JPY and KWD metadata.
func setupTarget(t *testing.T) *gorm.DB {
	t.Helper()
	db := setupTestDB(t, "target")
	require.NoError(t, db.AutoMigrate(&PriceRecord{}, &IdentityMapping{}, &CurrencyMeta{}, &CurrencyAlias{}))
	require.NoError(t, db.Create([]CurrencyMeta{
		{Code: "INR", DecimalDigits: 2},
		{Code: "JPY", DecimalDigits: 0},
		{Code: "KWD", DecimalDigits: 3},
	}).Error)
	require.NoError(t, db.Create([]CurrencyAlias{
		{Alias: "Rs", CanonicalCode: "INR"},
		{Alias: "inr ", CanonicalCode: "INR"},
	}).Error)
	return db
}

// setupSource creates a legacy products table.
func setupSource(t *testing.T) *gorm.DB {
	t.Helper()
	db := setupTestDB(t, "source")
	require.NoError(t, db.Exec(`CREATE TABLE products (
		id INTEGER PRIMARY KEY,
		price TEXT,
		discount_price TEXT
	)`).Error)
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

// setupUnreachableSource returns a lazily opened source whose first ping is refused.
func setupUnreachableSource(t *testing.T) *gorm.DB {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	return gormDB
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string { return &s }
