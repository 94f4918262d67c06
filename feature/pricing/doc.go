// Package pricing implements the price-sync mode: it copies product prices from a
// legacy commerce database into the target store's price records.
//
// The pipeline per source row is
//
//	Extractor -> IdentityIndex -> CurrencySnapshot -> Upserter
//
// # Source profiles
//
// Legacy schemas differ in table and column names. A SourceProfile maps the logical
// fields (id, price, discount price, currency) onto one schema; Config selects a
// profile by name and may override single columns. Rows are read in keyset pages
// ordered by id, so a sync can be resumed from the last delivered row.
//
// # Identity and currency
//
// IdentityIndex and CurrencySnapshot are loaded once per run and never refreshed.
// Unmapped rows are skipped; ambiguous mappings are excluded. Amounts are converted
// to integer minor units with shopspring/decimal and banker's rounding; a currency
// without metadata stops the run because no precision is safe to assume.
//
// # Upserts
//
// Every PriceRecord is applied in its own transaction: read the key (locked where the
// dialect allows), then insert, update or leave it. A duplicate-key error on insert
// means a concurrent run created the key first; the record is re-applied through the
// update path. Dry-run performs the same reads and reports the same decisions.
package pricing
