package orders

import (
	"context"
	"errors"
	"fmt"

	"commerce-reconciler/core/reconcile"

	"gorm.io/gorm"
)

var (
	// ErrProfileUnresolvable means no shipping profile can be determined for a product.
	ErrProfileUnresolvable = errors.New("shipping profile unresolvable")
	// ErrShippingMethodUnresolvable means no shipping option fits the order.
	ErrShippingMethodUnresolvable = errors.New("shipping method unresolvable")
)

// CatalogResolver tells which shipping profile a product declares.
type CatalogResolver interface {
	ShippingProfile(ctx context.Context, productID string) (string, error)
}

// ShippingResolver picks the shipping method for an order whose products are
// linked to profileIDs.
type ShippingResolver interface {
	ShippingMethod(ctx context.Context, order Order, profileIDs []string) (string, error)
}

// GormCatalog resolves profiles from catalog_products, falling back to a default profile.
type GormCatalog struct {
	db       *gorm.DB
	fallback string
	cache    reconcile.Memo[string]
}

// NewGormCatalog creates a catalog resolver. fallback may be empty.
func NewGormCatalog(db *gorm.DB, fallback string) *GormCatalog {
	return &GormCatalog{db: db, fallback: fallback}
}

// ShippingProfile returns the declared profile of productID. Lookups are cached for the run.
func (c *GormCatalog) ShippingProfile(ctx context.Context, productID string) (string, error) {
	return c.cache.Get(ctx, productID, func(ctx context.Context) (string, error) {
		var products []CatalogProduct
		if err := c.db.WithContext(ctx).Where("id = ?", productID).Limit(1).Find(&products).Error; err != nil {
			return "", fmt.Errorf("failed to look up product %s: %w", productID, err)
		}
		if len(products) == 1 && products[0].ShippingProfileID != nil && *products[0].ShippingProfileID != "" {
			return *products[0].ShippingProfileID, nil
		}
		if c.fallback != "" {
			return c.fallback, nil
		}
		return "", fmt.Errorf("%w: product %s", ErrProfileUnresolvable, productID)
	})
}

// GormShipping picks the cheapest outbound shipping option of the order's region
// that serves one of the order's profiles.
type GormShipping struct {
	db *gorm.DB
}

// NewGormShipping creates a shipping resolver.
func NewGormShipping(db *gorm.DB) *GormShipping {
	return &GormShipping{db: db}
}

// ShippingMethod returns the id of the chosen shipping option.
func (s *GormShipping) ShippingMethod(ctx context.Context, order Order, profileIDs []string) (string, error) {
	if len(profileIDs) == 0 {
		return "", fmt.Errorf("%w: order %s has no linked profiles", ErrShippingMethodUnresolvable, order.ID)
	}

	var options []ShippingOption
	err := s.db.WithContext(ctx).
		Where("region_id = ? AND is_return = ? AND shipping_profile_id IN ?", order.RegionID, false, profileIDs).
		Order("amount, id").
		Limit(1).
		Find(&options).Error
	if err != nil {
		return "", fmt.Errorf("failed to look up shipping options: %w", err)
	}
	if len(options) == 0 {
		return "", fmt.Errorf("%w: order %s in region %q", ErrShippingMethodUnresolvable, order.ID, order.RegionID)
	}
	return options[0].ID, nil
}
