package orders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormCatalog(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	require.NoError(t, db.Create([]CatalogProduct{
		{ID: "P1", ShippingProfileID: strPtr("SP1")},
		{ID: "P2"},
	}).Error)

	t.Run("declared profile", func(t *testing.T) {
		profile, err := NewGormCatalog(db, "").ShippingProfile(ctx, "P1")
		require.NoError(t, err)
		assert.Equal(t, "SP1", profile)
	})

	t.Run("fallback for undeclared and unknown products", func(t *testing.T) {
		catalog := NewGormCatalog(db, "SP-default")
		for _, id := range []string{"P2", "P404"} {
			profile, err := catalog.ShippingProfile(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "SP-default", profile)
		}
	})

	t.Run("unresolvable without fallback", func(t *testing.T) {
		_, err := NewGormCatalog(db, "").ShippingProfile(ctx, "P2")
		assert.ErrorIs(t, err, ErrProfileUnresolvable)
	})

	t.Run("lookups are cached", func(t *testing.T) {
		catalog := NewGormCatalog(db, "")
		_, err := catalog.ShippingProfile(ctx, "P1")
		require.NoError(t, err)

		require.NoError(t, db.Model(&CatalogProduct{}).Where("id = ?", "P1").Update("shipping_profile_id", "SP9").Error)
		profile, err := catalog.ShippingProfile(ctx, "P1")
		require.NoError(t, err)
		assert.Equal(t, "SP1", profile)
	})
}

func TestGormShipping(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	seedBrokenOrder(t, db)
	require.NoError(t, db.Create(&ShippingOption{ID: "SO-other-profile", RegionID: "R1", ShippingProfileID: "SP2", Amount: 10}).Error)
	order := Order{ID: "O1", RegionID: "R1"}

	t.Run("cheapest outbound option of the order's profiles", func(t *testing.T) {
		method, err := NewGormShipping(db).ShippingMethod(ctx, order, []string{"SP1"})
		require.NoError(t, err)
		assert.Equal(t, "SO-standard", method)
	})

	t.Run("no profiles", func(t *testing.T) {
		_, err := NewGormShipping(db).ShippingMethod(ctx, order, nil)
		assert.ErrorIs(t, err, ErrShippingMethodUnresolvable)
	})

	t.Run("no option in region", func(t *testing.T) {
		_, err := NewGormShipping(db).ShippingMethod(ctx, Order{ID: "O9", RegionID: "R3"}, []string{"SP1"})
		assert.ErrorIs(t, err, ErrShippingMethodUnresolvable)
	})
}
