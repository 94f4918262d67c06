package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExternalProductRow is one product price as stored in the legacy database.
type ExternalProductRow struct {
	ExternalProductID string
	Price             decimal.Decimal
	DiscountPrice     *decimal.Decimal
	// Currency is the row's raw currency code. Empty means the configured source currency.
	Currency string
}

// Key identifies the row in logs and reports.
func (r ExternalProductRow) Key() string { return r.ExternalProductID }

// IdentityMapping links an external product id to an internal variant id.
type IdentityMapping struct {
	ExternalProductID string `gorm:"column:external_product_id;primaryKey;size:64"`
	VariantID         string `gorm:"column:variant_id;size:64;not null;uniqueIndex"`
}

// TableName returns the table name for IdentityMapping.
func (IdentityMapping) TableName() string { return "variant_identity_mappings" }

// CurrencyMeta holds the precision of a canonical currency.
type CurrencyMeta struct {
	Code          string `gorm:"column:code;primaryKey;size:8"`
	DecimalDigits int32  `gorm:"column:decimal_digits;not null"`
}

// TableName returns the table name for CurrencyMeta.
func (CurrencyMeta) TableName() string { return "currency_meta" }

// CurrencyAlias collapses a variant spelling of a currency onto its canonical code.
type CurrencyAlias struct {
	Alias         string `gorm:"column:alias;primaryKey;size:16"`
	CanonicalCode string `gorm:"column:canonical_code;size:8;not null"`
}

// TableName returns the table name for CurrencyAlias.
func (CurrencyAlias) TableName() string { return "currency_aliases" }

// PriceRecord is a price in the target store. At most one record exists per
// (variant, currency, price list); PriceListKey mirrors PriceListID with ""
// for the default list so the unique index also covers NULL lists.
type PriceRecord struct {
	ID               string    `gorm:"column:id;primaryKey;size:36"`
	VariantID        string    `gorm:"column:variant_id;size:64;not null;uniqueIndex:ux_price_records_key,priority:1"`
	CurrencyCode     string    `gorm:"column:currency_code;size:8;not null;uniqueIndex:ux_price_records_key,priority:2"`
	PriceListID      *string   `gorm:"column:price_list_id;size:64"`
	PriceListKey     string    `gorm:"column:price_list_key;size:64;not null;uniqueIndex:ux_price_records_key,priority:3"`
	AmountMinorUnits int64     `gorm:"column:amount_minor_units;not null"`
	UpdatedByRun     string    `gorm:"column:updated_by_run;size:36"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

// TableName returns the table name for PriceRecord.
func (PriceRecord) TableName() string { return "price_records" }

// PriceKey is the identity of a PriceRecord.
type PriceKey struct {
	VariantID    string
	CurrencyCode string
	PriceListID  *string
}

// Key returns the identity of r.
func (r PriceRecord) Key() PriceKey {
	return PriceKey{VariantID: r.VariantID, CurrencyCode: r.CurrencyCode, PriceListID: r.PriceListID}
}

// listKey is the non-null form of the price list used by the unique index.
func (k PriceKey) listKey() string {
	if k.PriceListID == nil {
		return ""
	}
	return *k.PriceListID
}

func (k PriceKey) String() string {
	list := "default"
	if k.PriceListID != nil {
		list = *k.PriceListID
	}
	return k.VariantID + "/" + k.CurrencyCode + "/" + list
}
