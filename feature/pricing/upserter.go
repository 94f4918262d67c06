package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"commerce-reconciler/core/database"
	"commerce-reconciler/core/reconcile"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Decision is what applying a record does to the store.
type Decision string

const (
	DecisionCreate    Decision = "create"
	DecisionUpdate    Decision = "update"
	DecisionUnchanged Decision = "unchanged"
)

// ApplyResult aggregates a batch of ApplyOne calls.
type ApplyResult struct {
	Created   int
	Updated   int
	Unchanged int
	Skipped   int
	Failed    int
	Errors    []RecordError
}

// RecordError is the failure of a single record.
type RecordError struct {
	Key PriceKey
	Err error
}

// Upserter writes price records idempotently, one transaction per record.
type Upserter struct {
	db         *gorm.DB
	currencies *CurrencySnapshot

	// RunID is stamped on every written record.
	RunID string

	now func() time.Time
}

// NewUpserter creates an upserter on the target store.
func NewUpserter(db *gorm.DB, currencies *CurrencySnapshot) *Upserter {
	return &Upserter{db: db, currencies: currencies, now: time.Now}
}

// Apply applies records in order. A failing record is counted and does not
// roll back the ones before it. Records with an unknown currency are rejected
// before anything is written.
func (u *Upserter) Apply(ctx context.Context, records []PriceRecord, dryRun bool) (ApplyResult, error) {
	var res ApplyResult
	for _, rec := range records {
		if _, err := u.currencies.Digits(rec.CurrencyCode); err != nil {
			return res, err
		}
	}

	for _, rec := range records {
		if rec.VariantID == "" {
			res.Skipped++
			continue
		}
		decision, err := u.ApplyOne(ctx, rec, dryRun)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return res, err
			}
			res.Failed++
			res.Errors = append(res.Errors, RecordError{Key: rec.Key(), Err: err})
			continue
		}
		switch decision {
		case DecisionCreate:
			res.Created++
		case DecisionUpdate:
			res.Updated++
		case DecisionUnchanged:
			res.Unchanged++
		}
	}
	return res, nil
}

// ApplyOne applies a single record in its own transaction. In dry-run it only
// reads and reports the decision a real apply would make.
func (u *Upserter) ApplyOne(ctx context.Context, rec PriceRecord, dryRun bool) (Decision, error) {
	if _, err := u.currencies.Digits(rec.CurrencyCode); err != nil {
		return "", err
	}
	if dryRun {
		return u.Diff(ctx, rec)
	}

	decision, err := u.upsert(ctx, rec)
	if database.IsUniqueViolation(err) {
		// Another run created the key between our read and insert; it exists now,
		// so a second pass takes the update path.
		decision, err = u.upsert(ctx, rec)
	}
	if err != nil {
		if database.IsUniqueViolation(err) {
			return "", fmt.Errorf("%w: %s: %w", reconcile.ErrConstraintViolation, rec.Key(), err)
		}
		return "", fmt.Errorf("failed to apply %s: %w", rec.Key(), err)
	}
	return decision, nil
}

// Diff returns the decision for rec without writing.
func (u *Upserter) Diff(ctx context.Context, rec PriceRecord) (Decision, error) {
	existing, err := find(u.db.WithContext(ctx), rec.Key(), false)
	if err != nil {
		return "", err
	}
	return decide(existing, rec), nil
}

// Lookup returns the stored record for key, or nil.
func (u *Upserter) Lookup(ctx context.Context, key PriceKey) (*PriceRecord, error) {
	return find(u.db.WithContext(ctx), key, false)
}

func (u *Upserter) upsert(ctx context.Context, rec PriceRecord) (Decision, error) {
	var decision Decision
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := find(tx, rec.Key(), true)
		if err != nil {
			return err
		}

		decision = decide(existing, rec)
		now := u.now()
		switch decision {
		case DecisionCreate:
			row := PriceRecord{
				ID:               uuid.NewString(),
				VariantID:        rec.VariantID,
				CurrencyCode:     rec.CurrencyCode,
				PriceListID:      rec.PriceListID,
				PriceListKey:     rec.Key().listKey(),
				AmountMinorUnits: rec.AmountMinorUnits,
				UpdatedByRun:     u.RunID,
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			return tx.Create(&row).Error
		case DecisionUpdate:
			return tx.Model(&PriceRecord{}).
				Where("id = ?", existing.ID).
				Updates(map[string]any{
					"amount_minor_units": rec.AmountMinorUnits,
					"updated_by_run":     u.RunID,
					"updated_at":         now,
				}).Error
		}
		return nil
	})
	return decision, err
}

func decide(existing *PriceRecord, rec PriceRecord) Decision {
	switch {
	case existing == nil:
		return DecisionCreate
	case existing.AmountMinorUnits != rec.AmountMinorUnits:
		return DecisionUpdate
	default:
		return DecisionUnchanged
	}
}

// find reads the record for key. With lock set the row is locked for the
// rest of the transaction on dialects that support row locks.
func find(db *gorm.DB, key PriceKey, lock bool) (*PriceRecord, error) {
	query := db.Where("variant_id = ? AND currency_code = ? AND price_list_key = ?",
		key.VariantID, key.CurrencyCode, key.listKey())
	if lock && db.Dialector.Name() != database.DriverSQLite {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var rec PriceRecord
	err := query.Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read price record %s: %w", key, err)
	}
	return &rec, nil
}
