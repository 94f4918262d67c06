package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"commerce-reconciler/core/lock"
	"commerce-reconciler/core/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockLocker struct{ mock.Mock }

func (m *mockLocker) Obtain(ctx context.Context, key string) (lock.Releaser, error) {
	args := m.Called(ctx, key)
	if r := args.Get(0); r != nil {
		return r.(lock.Releaser), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLocker) Close() error { return nil }

type mockReleaser struct{ mock.Mock }

func (m *mockReleaser) Release(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func runRepair(t *testing.T, db *gorm.DB, orderID string, dryRun bool, locker lock.Locker) *reconcile.Summary {
	t.Helper()
	runCfg := reconcile.Config{
		DryRun:               dryRun,
		Workers:              1,
		RetryAttempts:        2,
		RetryInitialInterval: time.Millisecond,
		MaxReportedChanges:   -1,
	}
	adapter := NewRepairAdapter(db, Config{MaxPasses: 3, PageSize: 2}, NewGormCatalog(db, ""), NewGormShipping(db), locker, zap.NewNop())
	adapter.OrderID = orderID
	summary, err := reconcile.NewDriver(runCfg, zap.NewNop()).Run(context.Background(), adapter)
	require.NoError(t, err)
	return summary
}

func TestRepairAdapter(t *testing.T) {
	t.Run("repairs and converges", func(t *testing.T) {
		db := setupTestDB(t)
		seedBrokenOrder(t, db)

		summary := runRepair(t, db, "O1", false, nil)
		assert.Equal(t, reconcile.ModeOrderRepair, summary.Mode)
		assert.True(t, summary.Clean())
		assert.Equal(t, 1, summary.Counts.Processed)
		assert.Equal(t, 3, summary.Counts.Created)
		assert.Len(t, summary.Changes, 3)
		assert.Empty(t, check(t, db, "O1"))

		again := runRepair(t, db, "O1", false, nil)
		assert.True(t, again.Clean())
		assert.Equal(t, 0, again.Counts.Created)
		assert.Equal(t, 1, again.Counts.Unchanged)
	})

	t.Run("scans every order", func(t *testing.T) {
		db := setupTestDB(t)
		seedBrokenOrder(t, db)
		for _, id := range []string{"O2", "O3"} {
			require.NoError(t, db.Create(&Order{ID: id, RegionID: "R1"}).Error)
			require.NoError(t, db.Create(&OrderLine{ID: id + "-line", OrderID: id, ProductID: "P1", Quantity: 1}).Error)
		}

		summary := runRepair(t, db, "", false, nil)
		assert.True(t, summary.Clean())
		assert.Equal(t, 3, summary.Counts.Processed)
		for _, id := range []string{"O1", "O2", "O3"} {
			assert.Empty(t, check(t, db, id), id)
		}
	})

	t.Run("dry-run writes nothing", func(t *testing.T) {
		db := setupTestDB(t)
		seedBrokenOrder(t, db)

		summary := runRepair(t, db, "O1", true, nil)
		assert.True(t, summary.DryRun)
		assert.True(t, summary.Clean())
		assert.Equal(t, 3, summary.Counts.Created)
		assert.Len(t, check(t, db, "O1"), 3)
	})

	t.Run("excess reservation is unresolved", func(t *testing.T) {
		db := setupTestDB(t)
		seedBrokenOrder(t, db)
		require.NoError(t, db.Create(&ReservationItem{ID: "big", OrderLineID: "line1", Quantity: 5}).Error)

		summary := runRepair(t, db, "O1", false, nil)
		assert.Equal(t, reconcile.StateCompleted, summary.State)
		assert.False(t, summary.Clean())
		assert.Equal(t, 1, summary.ExitCode())
		require.Len(t, summary.Unresolved, 1)
		assert.Equal(t, "O1", summary.Unresolved[0].Key)
		assert.Equal(t, []string{"ExcessReservation(line1, 2)"}, summary.Unresolved[0].Violations)
	})

	t.Run("unresolvable profile is a failed unit", func(t *testing.T) {
		db := setupTestDB(t)
		seedBrokenOrder(t, db)
		require.NoError(t, db.Create(&OrderLine{ID: "line2", OrderID: "O1", ProductID: "P-unknown", Quantity: 1, Position: 2}).Error)

		summary := runRepair(t, db, "O1", false, nil)
		assert.Equal(t, reconcile.StateCompleted, summary.State)
		assert.Equal(t, 1, summary.Counts.Failed)
		require.Len(t, summary.Failures, 1)
		assert.Contains(t, summary.Failures[0].Error, "shipping profile unresolvable")
	})

	t.Run("failure after a landed write keeps the write and verifies the order", func(t *testing.T) {
		db := setupTestDB(t)
		require.NoError(t, db.Create(&Order{ID: "O9", RegionID: "R9", CreatedAt: time.Now()}).Error)
		require.NoError(t, db.Create(&OrderLine{ID: "l9", OrderID: "O9", ProductID: "P9", Quantity: 2, Position: 1}).Error)
		require.NoError(t, db.Create(&CatalogProduct{ID: "P9", ShippingProfileID: strPtr("SP9")}).Error)

		summary := runRepair(t, db, "O9", false, nil)
		assert.Equal(t, reconcile.StateCompleted, summary.State)
		assert.Equal(t, 1, summary.Counts.Created)
		assert.Len(t, summary.Changes, 1)
		assert.Equal(t, 1, summary.Counts.Failed)
		require.Len(t, summary.Failures, 1)
		assert.Contains(t, summary.Failures[0].Error, "shipping method unresolvable")
		assert.Equal(t, int64(1), countRows(t, db, &ShippingProfileLink{}))

		require.Len(t, summary.Unresolved, 1)
		assert.Equal(t, "O9", summary.Unresolved[0].Key)
		assert.Equal(t, []string{"MissingShippingMethod", "IncompleteReservation(l9, 2)"}, summary.Unresolved[0].Violations)
	})

	t.Run("held lock skips the order", func(t *testing.T) {
		db := setupTestDB(t)
		seedBrokenOrder(t, db)
		locker := new(mockLocker)
		locker.On("Obtain", mock.Anything, "commerce-reconciler:order:O1").Return(nil, lock.ErrNotObtained)

		summary := runRepair(t, db, "O1", false, locker)
		assert.Equal(t, 1, summary.Counts.Skipped)
		assert.Equal(t, 1, summary.SkipReasons[SkipLocked])
		assert.Len(t, check(t, db, "O1"), 3)
		locker.AssertExpectations(t)
	})

	t.Run("lock is released after repair", func(t *testing.T) {
		db := setupTestDB(t)
		seedBrokenOrder(t, db)
		releaser := new(mockReleaser)
		releaser.On("Release", mock.Anything).Return(nil).Once()
		locker := new(mockLocker)
		locker.On("Obtain", mock.Anything, "commerce-reconciler:order:O1").Return(releaser, nil)

		summary := runRepair(t, db, "O1", false, locker)
		assert.True(t, summary.Clean())
		releaser.AssertExpectations(t)
	})

	t.Run("lock backend down still repairs", func(t *testing.T) {
		db := setupTestDB(t)
		seedBrokenOrder(t, db)
		locker := new(mockLocker)
		locker.On("Obtain", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

		summary := runRepair(t, db, "O1", false, locker)
		assert.True(t, summary.Clean())
		assert.Empty(t, check(t, db, "O1"))
	})
}

func TestRepairAdapterPrepare(t *testing.T) {
	db := setupTestDB(t)
	adapter := NewRepairAdapter(db, Config{}, NewGormCatalog(db, ""), NewGormShipping(db), nil, nil)
	adapter.OrderID = "missing"

	err := adapter.Prepare(context.Background(), reconcile.RunInfo{ID: "r"})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
