package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"commerce-reconciler/core/lock"
	"commerce-reconciler/core/reconcile"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Skip reasons reported by the order repair.
const (
	SkipLocked        = "locked"
	SkipOrderNotFound = "order_not_found"
)

// OrderRef is the unit of the order-repair mode.
type OrderRef string

// Key identifies the order in logs and reports.
func (o OrderRef) Key() string { return string(o) }

// RepairAdapter runs the order-repair mode: check every targeted order and
// repair it until it converges or the pass budget is spent.
type RepairAdapter struct {
	db       *gorm.DB
	cfg      Config
	checker  *Checker
	repairer *Repairer
	locker   lock.Locker
	logger   *zap.Logger

	// OrderID restricts the run to one order. Empty targets all orders.
	OrderID string

	mu      sync.Mutex
	touched map[string][]Violation // order id -> violations left (dry-run plan)
}

// NewRepairAdapter creates the order-repair adapter. locker may be nil.
func NewRepairAdapter(db *gorm.DB, cfg Config, catalog CatalogResolver, shipping ShippingResolver, locker lock.Locker, logger *zap.Logger) *RepairAdapter {
	if locker == nil {
		locker = lock.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RepairAdapter{
		db:       db,
		cfg:      cfg,
		checker:  NewChecker(db),
		repairer: NewRepairer(db, catalog, shipping),
		locker:   locker,
		logger:   logger,
		touched:  make(map[string][]Violation),
	}
}

// Mode returns reconcile.ModeOrderRepair.
func (a *RepairAdapter) Mode() reconcile.Mode { return reconcile.ModeOrderRepair }

// Prepare checks the target store and the targeted order.
func (a *RepairAdapter) Prepare(ctx context.Context, run reconcile.RunInfo) error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("target store unreachable: %w", err)
	}
	a.repairer.RunID = run.ID

	if a.OrderID != "" {
		var n int64
		if err := a.db.WithContext(ctx).Model(&Order{}).Where("id = ?", a.OrderID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, a.OrderID)
		}
	}
	return nil
}

// Scan emits the targeted order, or every order in id order.
func (a *RepairAdapter) Scan(ctx context.Context, emit func(reconcile.Unit) error) error {
	if a.OrderID != "" {
		return emit(OrderRef(a.OrderID))
	}

	pageSize := a.cfg.PageSize
	if pageSize <= 0 {
		pageSize = 500
	}
	after := ""
	for {
		var ids []string
		query := a.db.WithContext(ctx).Model(&Order{}).Order("id").Limit(pageSize)
		if after != "" {
			query = query.Where("id > ?", after)
		}
		if err := query.Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("failed to list orders: %w", err)
		}
		for _, id := range ids {
			if err := emit(OrderRef(id)); err != nil {
				return err
			}
		}
		if len(ids) < pageSize {
			return nil
		}
		after = ids[len(ids)-1]
	}
}

// Apply checks one order and repairs it.
func (a *RepairAdapter) Apply(ctx context.Context, unit reconcile.Unit, dryRun bool) (reconcile.Outcome, error) {
	var out reconcile.Outcome
	orderID := unit.Key()

	release, err := a.locker.Obtain(ctx, "commerce-reconciler:order:"+orderID)
	switch {
	case errors.Is(err, lock.ErrNotObtained):
		return out, reconcile.Skip(SkipLocked, err)
	case err != nil:
		a.logger.Warn("Order lock unavailable, repairing without it", zap.String("order_id", orderID), zap.Error(err))
	default:
		defer func() {
			if rerr := release.Release(context.WithoutCancel(ctx)); rerr != nil {
				a.logger.Debug("Failed to release order lock", zap.String("order_id", orderID), zap.Error(rerr))
			}
		}()
	}

	violations, err := a.checker.Check(ctx, orderID)
	if errors.Is(err, ErrOrderNotFound) {
		return out, reconcile.Skip(SkipOrderNotFound, err)
	}
	if err != nil {
		return out, err
	}
	if len(violations) == 0 {
		out.Unchanged = 1
		return out, nil
	}
	a.logger.Debug("Order violates invariants", zap.String("order_id", orderID), zap.Strings("violations", Strings(violations)))

	passes := a.cfg.MaxPasses
	if passes <= 0 {
		passes = 1
	}
	remaining := violations
	for pass := 1; pass <= passes; pass++ {
		res, err := a.repairer.RepairOrder(ctx, orderID, dryRun)
		if res != nil {
			a.collect(&out, orderID, res.Actions)
		}
		if err != nil {
			// Writes from earlier steps may have landed; verification still
			// owes this order a check.
			a.touch(orderID, remaining)
			return out, err
		}
		remaining = res.Remaining
		if dryRun || len(remaining) == 0 || len(res.Actions) == 0 {
			break
		}
	}

	if out.Created == 0 {
		out.Unchanged = 1
	}

	a.touch(orderID, remaining)
	return out, nil
}

// touch queues the order for verification with the violations expected to remain.
func (a *RepairAdapter) touch(orderID string, remaining []Violation) {
	a.mu.Lock()
	a.touched[orderID] = remaining
	a.mu.Unlock()
}

func (a *RepairAdapter) collect(out *reconcile.Outcome, orderID string, actions []Action) {
	for _, act := range actions {
		out.Created++
		out.Changes = append(out.Changes, reconcile.Change{
			Key:    orderID,
			Action: act.Step,
			Detail: act.Key + " " + act.Detail,
		})
	}
}

// Verify re-checks every order the run repaired. In dry-run nothing was
// written, so the violations the plan could not cover are reported instead.
func (a *RepairAdapter) Verify(ctx context.Context, dryRun bool) ([]reconcile.Unresolved, error) {
	a.mu.Lock()
	ids := make([]string, 0, len(a.touched))
	for id := range a.touched {
		ids = append(ids, id)
	}
	planned := make(map[string][]Violation, len(a.touched))
	for id, vs := range a.touched {
		planned[id] = vs
	}
	a.mu.Unlock()
	sort.Strings(ids)

	var unresolved []reconcile.Unresolved
	for _, id := range ids {
		remaining := planned[id]
		if !dryRun {
			var err error
			remaining, err = a.checker.Check(ctx, id)
			if err != nil {
				return nil, err
			}
		}
		if len(remaining) > 0 {
			unresolved = append(unresolved, reconcile.Unresolved{Key: id, Violations: Strings(remaining)})
		}
	}
	return unresolved, nil
}
