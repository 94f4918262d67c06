package orders

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite store with the order tables.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	clean := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", clean)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&Order{}, &OrderLine{}, &ShippingProfileLink{}, &ShippingMethodAssignment{},
		&ReservationItem{}, &CatalogProduct{}, &ShippingOption{},
	))
	return db
}

// seedBrokenOrder creates order O1 in region R1 with line1 = 3 x P1, where P1
// is declared with profile SP1 but not linked, no method is assigned and
// nothing is reserved.
func seedBrokenOrder(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&Order{ID: "O1", RegionID: "R1", CreatedAt: time.Now()}).Error)
	require.NoError(t, db.Create(&OrderLine{ID: "line1", OrderID: "O1", ProductID: "P1", Quantity: 3, Position: 1}).Error)
	require.NoError(t, db.Create(&CatalogProduct{ID: "P1", ShippingProfileID: strPtr("SP1")}).Error)
	require.NoError(t, db.Create([]ShippingOption{
		{ID: "SO-return", RegionID: "R1", ShippingProfileID: "SP1", Amount: 100, IsReturn: true},
		{ID: "SO-express", RegionID: "R1", ShippingProfileID: "SP1", Amount: 1500},
		{ID: "SO-standard", RegionID: "R1", ShippingProfileID: "SP1", Amount: 500},
		{ID: "SO-elsewhere", RegionID: "R2", ShippingProfileID: "SP1", Amount: 50},
	}).Error)
}

func newTestRepairer(db *gorm.DB) *Repairer {
	r := NewRepairer(db, NewGormCatalog(db, ""), NewGormShipping(db))
	r.RunID = "run-1"
	return r
}

func reservedQuantity(t *testing.T, db *gorm.DB, lineID string) int {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&ReservationItem{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("order_line_id = ?", lineID).
		Scan(&n).Error)
	return int(n)
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
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

func strPtr(s string) *string { return &s }

func check(t *testing.T, db *gorm.DB, orderID string) []string {
	t.Helper()
	vs, err := NewChecker(db).Check(context.Background(), orderID)
	require.NoError(t, err)
	return Strings(vs)
}
