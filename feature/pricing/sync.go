package pricing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"commerce-reconciler/core/reconcile"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Skip reasons reported by the price sync.
const (
	SkipUnmapped          = "unmapped"
	SkipMalformed         = "malformed"
	SkipDiscountListUnset = "discount_list_unset"
)

// SyncAdapter runs the price-sync mode: extract, map identity, normalize
// currency and upsert, one source row per unit.
type SyncAdapter struct {
	source *gorm.DB
	target *gorm.DB
	cfg    Config
	run    reconcile.Config
	logger *zap.Logger

	extractor  *Extractor
	identity   *IdentityIndex
	currencies *CurrencySnapshot
	upserter   *Upserter
	currency   string

	mu     sync.Mutex
	sample []sampled
}

type sampled struct {
	record   PriceRecord
	decision Decision
}

// NewSyncAdapter creates the price-sync adapter.
func NewSyncAdapter(source, target *gorm.DB, cfg Config, run reconcile.Config, logger *zap.Logger) *SyncAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncAdapter{source: source, target: target, cfg: cfg, run: run, logger: logger}
}

// Mode returns reconcile.ModePriceSync.
func (a *SyncAdapter) Mode() reconcile.Mode { return reconcile.ModePriceSync }

// Prepare checks the source and snapshots identities and currencies.
func (a *SyncAdapter) Prepare(ctx context.Context, run reconcile.RunInfo) error {
	a.extractor = NewExtractor(a.source, a.cfg.SourceProfile(), a.cfg.PageSize)
	if err := a.extractor.Ping(ctx); err != nil {
		return err
	}
	a.extractor.Retry = func(ctx context.Context, op func(context.Context) error) error {
		return reconcile.Retry(ctx, a.run, op)
	}

	currencies, err := LoadCurrencySnapshot(ctx, a.target)
	if err != nil {
		return err
	}
	identity, err := LoadIdentityIndex(ctx, a.target)
	if err != nil {
		return err
	}
	for _, c := range identity.Conflicts() {
		a.logger.Warn("Ambiguous identity mapping excluded",
			zap.String("external_product_id", c.ExternalProductID),
			zap.String("variant_id", c.VariantID))
	}

	if a.cfg.Currency == "" && a.cfg.SourceProfile().Column(ColCurrency) == "" {
		return errors.New("pricing.currency must be set when the source has no currency column")
	}
	if a.cfg.Currency != "" {
		a.currency = currencies.Canonicalize(a.cfg.Currency)
		if _, err := currencies.Digits(a.currency); err != nil {
			return err
		}
	}

	a.currencies = currencies
	a.identity = identity
	a.upserter = NewUpserter(a.target, currencies)
	a.upserter.RunID = run.ID

	a.logger.Info("Price sync prepared",
		zap.Int("mappings", identity.Len()),
		zap.Int("currencies", currencies.Len()),
		zap.String("currency", a.currency))
	return nil
}

// Scan emits every source row, malformed rows included so they are counted.
func (a *SyncAdapter) Scan(ctx context.Context, emit func(reconcile.Unit) error) error {
	a.extractor.OnMalformed = func(id string, err error) error {
		a.logger.Warn("Malformed source row", zap.String("external_product_id", id), zap.Error(err))
		return emit(MalformedRow{ID: id, Err: err})
	}
	_, err := a.extractor.Each(ctx, Cursor{}, func(row ExternalProductRow) error {
		return emit(row)
	})
	return err
}

// Apply maps, normalizes and upserts one source row.
func (a *SyncAdapter) Apply(ctx context.Context, unit reconcile.Unit, dryRun bool) (reconcile.Outcome, error) {
	switch u := unit.(type) {
	case MalformedRow:
		return reconcile.Outcome{}, reconcile.Skip(SkipMalformed, u.Err)
	case ExternalProductRow:
		return a.applyRow(ctx, u, dryRun)
	}
	return reconcile.Outcome{}, fmt.Errorf("unexpected unit %T", unit)
}

func (a *SyncAdapter) applyRow(ctx context.Context, row ExternalProductRow, dryRun bool) (reconcile.Outcome, error) {
	var out reconcile.Outcome

	variantID, ok := a.identity.Resolve(row.ExternalProductID)
	if !ok {
		return out, reconcile.Skip(SkipUnmapped, fmt.Errorf("%w: %s", reconcile.ErrMappingNotFound, row.ExternalProductID))
	}

	records, skipped, err := a.Records(row, variantID)
	if err != nil {
		return out, err
	}
	out.Skip(SkipDiscountListUnset, skipped)

	for _, rec := range records {
		var decision Decision
		err := reconcile.Retry(ctx, a.run, func(ctx context.Context) error {
			var aerr error
			decision, aerr = a.upserter.ApplyOne(ctx, rec, dryRun)
			return aerr
		})
		if err != nil {
			if reconcile.Fatal(err) {
				return out, err
			}
			out.Failures = append(out.Failures, reconcile.Failure{Key: rec.Key().String(), Error: err.Error()})
			continue
		}

		switch decision {
		case DecisionCreate:
			out.Created++
		case DecisionUpdate:
			out.Updated++
		case DecisionUnchanged:
			out.Unchanged++
		}
		if decision != DecisionUnchanged {
			out.Changes = append(out.Changes, reconcile.Change{
				Key:    rec.Key().String(),
				Action: string(decision),
				Detail: fmt.Sprintf("amount_minor_units=%d", rec.AmountMinorUnits),
			})
		}
		a.remember(rec, decision)
	}
	return out, nil
}

// Records builds the price records for row: the base price on the default
// list and, when a sale list is configured, the discount price on it. The
// second result counts discount prices left out for lack of a sale list.
func (a *SyncAdapter) Records(row ExternalProductRow, variantID string) ([]PriceRecord, int, error) {
	code := a.currency
	if row.Currency != "" {
		code = a.currencies.Canonicalize(row.Currency)
	}

	base, err := a.record(variantID, code, nil, row.Price)
	if err != nil {
		return nil, 0, err
	}
	records := []PriceRecord{base}

	if row.DiscountPrice == nil {
		return records, 0, nil
	}
	if a.cfg.DiscountPriceListID == "" {
		return records, 1, nil
	}
	listID := a.cfg.DiscountPriceListID
	sale, err := a.record(variantID, code, &listID, *row.DiscountPrice)
	if err != nil {
		return nil, 0, err
	}
	return append(records, sale), 0, nil
}

func (a *SyncAdapter) record(variantID, code string, listID *string, amount decimal.Decimal) (PriceRecord, error) {
	minor, err := a.currencies.ToMinorUnits(amount, code)
	if err != nil {
		return PriceRecord{}, err
	}
	return PriceRecord{
		VariantID:        variantID,
		CurrencyCode:     code,
		PriceListID:      listID,
		AmountMinorUnits: minor,
	}, nil
}

func (a *SyncAdapter) remember(rec PriceRecord, decision Decision) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.sample) < a.run.VerifySample {
		a.sample = append(a.sample, sampled{record: rec, decision: decision})
	}
}

// Verify re-diffs the sampled records. After a real run every sampled record
// must be unchanged; after a dry run the diff must still be the one reported.
func (a *SyncAdapter) Verify(ctx context.Context, dryRun bool) ([]reconcile.Unresolved, error) {
	a.mu.Lock()
	sample := append([]sampled(nil), a.sample...)
	a.mu.Unlock()

	var unresolved []reconcile.Unresolved
	for _, s := range sample {
		got, err := a.upserter.Diff(ctx, s.record)
		if err != nil {
			return nil, err
		}
		want := DecisionUnchanged
		if dryRun {
			want = s.decision
		}
		if got != want {
			unresolved = append(unresolved, reconcile.Unresolved{
				Key:        s.record.Key().String(),
				Violations: []string{fmt.Sprintf("expected %s, re-diff says %s", want, got)},
			})
		}
	}
	a.logger.Debug("Verified price sample", zap.Int("sampled", len(sample)), zap.Int("unresolved", len(unresolved)))
	return unresolved, nil
}
