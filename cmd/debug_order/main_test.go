package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"commerce-reconciler/feature/orders"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T, models ...interface{}) *gorm.DB {
	t.Helper()
	clean := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", clean)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models...))
	return db
}

func TestPrintLines(t *testing.T) {
	t.Run("prints reserved quantity and profile", func(t *testing.T) {
		db := setupTestDB(t, &orders.OrderLine{}, &orders.ShippingProfileLink{}, &orders.ReservationItem{})
		require.NoError(t, db.Create(&orders.OrderLine{ID: "line1", OrderID: "O1", ProductID: "P1", Quantity: 3, Position: 1}).Error)
		require.NoError(t, db.Create(&orders.ShippingProfileLink{ProductID: "P1", ProfileID: "SP1"}).Error)
		require.NoError(t, db.Create(&orders.ReservationItem{ID: "r1", OrderLineID: "line1", Quantity: 2}).Error)

		var out bytes.Buffer
		require.NoError(t, printLines(&out, db, "O1"))
		assert.Equal(t, "line1 product=P1 qty=3 reserved=2 profile=SP1\n", out.String())
	})

	t.Run("reservation query failure is reported", func(t *testing.T) {
		db := setupTestDB(t, &orders.OrderLine{}, &orders.ShippingProfileLink{})
		require.NoError(t, db.Create(&orders.OrderLine{ID: "line1", OrderID: "O1", ProductID: "P1", Quantity: 3, Position: 1}).Error)

		var out bytes.Buffer
		err := printLines(&out, db, "O1")
		assert.ErrorContains(t, err, "failed to sum reservations for line1")
		assert.Empty(t, out.String())
	})
}
