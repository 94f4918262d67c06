package orders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	t.Run("broken order reports violations in dependency order", func(t *testing.T) {
		db := setupTestDB(t)
		seedBrokenOrder(t, db)

		assert.Equal(t, []string{
			"MissingShippingProfile(P1)",
			"MissingShippingMethod",
			"IncompleteReservation(line1, 3)",
		}, check(t, db, "O1"))
	})

	t.Run("clean order reports nothing", func(t *testing.T) {
		db := setupTestDB(t)
		seedBrokenOrder(t, db)
		require.NoError(t, db.Create(&ShippingProfileLink{ProductID: "P1", ProfileID: "SP1"}).Error)
		require.NoError(t, db.Create(&ShippingMethodAssignment{ID: "a1", OrderID: "O1", MethodID: "SO-standard"}).Error)
		require.NoError(t, db.Create([]ReservationItem{
			{ID: "r1", OrderLineID: "line1", Quantity: 1},
			{ID: "r2", OrderLineID: "line1", Quantity: 2},
		}).Error)

		vs, err := NewChecker(db).Check(context.Background(), "O1")
		require.NoError(t, err)
		assert.NotNil(t, vs)
		assert.Empty(t, vs)
	})

	t.Run("excess reservation", func(t *testing.T) {
		db := setupTestDB(t)
		seedBrokenOrder(t, db)
		require.NoError(t, db.Create(&ShippingProfileLink{ProductID: "P1", ProfileID: "SP1"}).Error)
		require.NoError(t, db.Create(&ShippingMethodAssignment{ID: "a1", OrderID: "O1", MethodID: "SO-standard"}).Error)
		require.NoError(t, db.Create(&ReservationItem{ID: "r1", OrderLineID: "line1", Quantity: 5}).Error)

		assert.Equal(t, []string{"ExcessReservation(line1, 2)"}, check(t, db, "O1"))
	})

	t.Run("products shared by lines are reported once", func(t *testing.T) {
		db := setupTestDB(t)
		seedBrokenOrder(t, db)
		require.NoError(t, db.Create(&OrderLine{ID: "line2", OrderID: "O1", ProductID: "P1", Quantity: 1, Position: 2}).Error)

		assert.Equal(t, []string{
			"MissingShippingProfile(P1)",
			"MissingShippingMethod",
			"IncompleteReservation(line1, 3)",
			"IncompleteReservation(line2, 1)",
		}, check(t, db, "O1"))
	})

	t.Run("unknown order", func(t *testing.T) {
		db := setupTestDB(t)

		_, err := NewChecker(db).Check(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestViolationString(t *testing.T) {
	assert.Equal(t, "MissingShippingProfile(P9)", MissingShippingProfile("P9").String())
	assert.Equal(t, "MissingShippingMethod", MissingShippingMethod().String())
	assert.Equal(t, "IncompleteReservation(l, 2)", IncompleteReservation("l", 2).String())
	assert.Equal(t, "ExcessReservation(l, 1)", ExcessReservation("l", 1).String())
	assert.Equal(t, []string{}, Strings(nil))
}
