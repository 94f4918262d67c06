package pricing

import "strings"

// Config holds price-sync options.
type Config struct {
	// Profile selects the legacy schema layout (default, opencart, prestashop).
	Profile string `mapstructure:"profile" default:"default"`
	// Table overrides the profile's product table.
	Table string `mapstructure:"table" default:""`
	// IDColumn overrides the external product id column.
	IDColumn string `mapstructure:"id_column" default:""`
	// PriceColumn overrides the base price column.
	PriceColumn string `mapstructure:"price_column" default:""`
	// DiscountColumn overrides the discount price column. "-" disables discounts.
	DiscountColumn string `mapstructure:"discount_column" default:""`
	// CurrencyColumn overrides the per-row currency column.
	CurrencyColumn string `mapstructure:"currency_column" default:""`
	// PageSize is the number of source rows fetched per keyset page.
	PageSize int `mapstructure:"page_size" default:"500"`
	// Currency is the currency of source prices when rows carry none.
	Currency string `mapstructure:"currency" default:""`
	// DiscountPriceListID is the price list discount prices are written to.
	// Empty skips discount prices.
	DiscountPriceListID string `mapstructure:"discount_price_list_id" default:""`
}

// SourceProfile maps the logical source fields onto a legacy schema.
type SourceProfile struct {
	// Table is the product table holding prices.
	Table string

	// Columns maps logical field names to actual column names.
	// A missing or empty entry means the schema has no such column.
	Columns map[string]string
}

// Logical source fields.
const (
	ColID       = "id"
	ColPrice    = "price"
	ColDiscount = "discount_price"
	ColCurrency = "currency"
)

// DefaultProfile is a plain products table with a nullable discount_price column.
func DefaultProfile() SourceProfile {
	return SourceProfile{
		Table: "products",
		Columns: map[string]string{
			ColID:       "id",
			ColPrice:    "price",
			ColDiscount: "discount_price",
		},
	}
}

// OpenCartProfile reads oc_product. Specials live in a separate table and are not synced.
func OpenCartProfile() SourceProfile {
	return SourceProfile{
		Table: "oc_product",
		Columns: map[string]string{
			ColID:    "product_id",
			ColPrice: "price",
		},
	}
}

// PrestaShopProfile reads ps_product.
func PrestaShopProfile() SourceProfile {
	return SourceProfile{
		Table: "ps_product",
		Columns: map[string]string{
			ColID:    "id_product",
			ColPrice: "price",
		},
	}
}

// GetProfileByName returns the profile for a legacy platform name.
func GetProfileByName(name string) SourceProfile {
	switch strings.ToLower(name) {
	case "opencart":
		return OpenCartProfile()
	case "prestashop":
		return PrestaShopProfile()
	default:
		return DefaultProfile()
	}
}

// SourceProfile resolves the configured profile with column overrides applied.
func (c Config) SourceProfile() SourceProfile {
	p := GetProfileByName(c.Profile)
	cols := make(map[string]string, len(p.Columns)+1)
	for k, v := range p.Columns {
		cols[k] = v
	}

	if c.Table != "" {
		p.Table = c.Table
	}
	override := func(field, value string) {
		switch value {
		case "":
		case "-":
			delete(cols, field)
		default:
			cols[field] = value
		}
	}
	override(ColID, c.IDColumn)
	override(ColPrice, c.PriceColumn)
	override(ColDiscount, c.DiscountColumn)
	override(ColCurrency, c.CurrencyColumn)

	p.Columns = cols
	return p
}

// Column returns the column for field, or "" when the schema has none.
func (p SourceProfile) Column(field string) string {
	return p.Columns[field]
}
