package orders

// Config holds order-repair options.
type Config struct {
	// DefaultShippingProfileID is linked when the catalog declares no profile for a product.
	// Empty makes such products unresolvable.
	DefaultShippingProfileID string `mapstructure:"default_shipping_profile_id" default:""`
	// MaxPasses bounds the repair-then-check loop per order.
	MaxPasses int `mapstructure:"max_passes" default:"3"`
	// PageSize is the number of order ids fetched per keyset page.
	PageSize int `mapstructure:"page_size" default:"500"`
}
