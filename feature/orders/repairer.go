package orders

import (
	"context"
	"fmt"
	"time"

	"commerce-reconciler/core/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repair steps, in the only order they may run.
const (
	StepLinkShippingProfile  = "link_shipping_profile"
	StepAssignShippingMethod = "assign_shipping_method"
	StepReserveInventory     = "reserve_inventory"
)

// Action is one write a repair made, or would make in dry-run.
type Action struct {
	Step   string `json:"step"`
	Key    string `json:"key"`
	Detail string `json:"detail"`
}

// RepairResult is the outcome of one RepairOrder call.
type RepairResult struct {
	Actions []Action
	// Remaining lists the violations left after the repair.
	Remaining []Violation
}

// Repairer restores the fulfillment invariants of an order.
type Repairer struct {
	db       *gorm.DB
	catalog  CatalogResolver
	shipping ShippingResolver

	// RunID is stamped on created reservations.
	RunID string

	now func() time.Time
}

// NewRepairer creates a repairer on the target store.
func NewRepairer(db *gorm.DB, catalog CatalogResolver, shipping ShippingResolver) *Repairer {
	return &Repairer{db: db, catalog: catalog, shipping: shipping, now: time.Now}
}

type repairStep func(ctx context.Context, st *orderState, dryRun bool) ([]Action, error)

// RepairOrder runs the repair steps profiles -> method -> reservations for
// orderID, each in its own transaction. Every step checks before it acts, so
// repairing a clean order writes nothing. In dry-run nothing is written and
// the result describes the planned actions and what they would leave behind.
func (r *Repairer) RepairOrder(ctx context.Context, orderID string, dryRun bool) (*RepairResult, error) {
	st, err := loadState(r.db.WithContext(ctx), orderID)
	if err != nil {
		return nil, err
	}

	res := &RepairResult{}
	for _, step := range []repairStep{r.ensureShippingProfiles, r.ensureShippingMethod, r.ensureReservations} {
		actions, err := step(ctx, st, dryRun)
		res.Actions = append(res.Actions, actions...)
		if err != nil {
			return res, fmt.Errorf("repair %s: %w", orderID, err)
		}
	}

	if dryRun {
		res.Remaining = st.violations()
		return res, nil
	}

	after, err := loadState(r.db.WithContext(ctx), orderID)
	if err != nil {
		return res, err
	}
	res.Remaining = after.violations()
	return res, nil
}

// ensureShippingProfiles links every product of the order that has no link yet.
// Profiles are resolved before the transaction opens.
func (r *Repairer) ensureShippingProfiles(ctx context.Context, st *orderState, dryRun bool) ([]Action, error) {
	missing := st.missingProfiles()
	if len(missing) == 0 {
		return nil, nil
	}

	links := make([]ShippingProfileLink, 0, len(missing))
	for _, productID := range missing {
		profileID, err := r.catalog.ShippingProfile(ctx, productID)
		if err != nil {
			return nil, err
		}
		links = append(links, ShippingProfileLink{ProductID: productID, ProfileID: profileID})
	}

	if dryRun {
		actions := make([]Action, 0, len(links))
		for _, link := range links {
			actions = append(actions, Action{Step: StepLinkShippingProfile, Key: link.ProductID, Detail: link.ProfileID})
			st.links[link.ProductID] = link.ProfileID
		}
		return actions, nil
	}

	var actions []Action
	err := r.transaction(ctx, func(tx *gorm.DB) error {
		actions = nil
		for _, link := range links {
			var n int64
			if err := tx.Model(&ShippingProfileLink{}).Where("product_id = ?", link.ProductID).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				continue
			}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
			actions = append(actions, Action{Step: StepLinkShippingProfile, Key: link.ProductID, Detail: link.ProfileID})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, link := range links {
		if _, ok := st.links[link.ProductID]; !ok {
			st.links[link.ProductID] = link.ProfileID
		}
	}
	return actions, nil
}

// ensureShippingMethod assigns a method when the order has none. An existing
// assignment is never replaced.
func (r *Repairer) ensureShippingMethod(ctx context.Context, st *orderState, dryRun bool) ([]Action, error) {
	if st.method != "" {
		return nil, nil
	}

	methodID, err := r.shipping.ShippingMethod(ctx, st.order, st.profileIDs())
	if err != nil {
		return nil, err
	}

	if dryRun {
		st.method = methodID
		return []Action{{Step: StepAssignShippingMethod, Key: st.order.ID, Detail: methodID}}, nil
	}

	var actions []Action
	err = r.transaction(ctx, func(tx *gorm.DB) error {
		actions = nil
		var n int64
		if err := tx.Model(&ShippingMethodAssignment{}).Where("order_id = ?", st.order.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		assignment := ShippingMethodAssignment{
			ID:        uuid.NewString(),
			OrderID:   st.order.ID,
			MethodID:  methodID,
			CreatedAt: r.now(),
		}
		if err := tx.Create(&assignment).Error; err != nil {
			return err
		}
		actions = []Action{{Step: StepAssignShippingMethod, Key: st.order.ID, Detail: methodID}}
		return nil
	})
	if err != nil {
		return nil, err
	}

	st.method = methodID
	return actions, nil
}

// ensureReservations reserves exactly the shortfall of every under-reserved
// line. Line rows are locked so concurrent runs cannot both fill the same gap.
func (r *Repairer) ensureReservations(ctx context.Context, st *orderState, dryRun bool) ([]Action, error) {
	var short []OrderLine
	for _, l := range st.lines {
		if st.reserved[l.ID] < l.Quantity {
			short = append(short, l)
		}
	}
	if len(short) == 0 {
		return nil, nil
	}

	if dryRun {
		actions := make([]Action, 0, len(short))
		for _, l := range short {
			missing := l.Quantity - st.reserved[l.ID]
			actions = append(actions, reserveAction(l.ID, missing))
			st.reserved[l.ID] += missing
		}
		return actions, nil
	}

	var actions []Action
	created := make(map[string]int)
	err := r.transaction(ctx, func(tx *gorm.DB) error {
		actions = nil
		created = make(map[string]int)

		ids := make([]string, len(short))
		for i, l := range short {
			ids[i] = l.ID
		}
		var locked []OrderLine
		if err := lockRows(tx).Where("id IN ?", ids).Order("id").Find(&locked).Error; err != nil {
			return err
		}

		for _, l := range locked {
			var reserved int64
			err := tx.Model(&ReservationItem{}).
				Select("COALESCE(SUM(quantity), 0)").
				Where("order_line_id = ?", l.ID).
				Scan(&reserved).Error
			if err != nil {
				return err
			}
			missing := l.Quantity - int(reserved)
			if missing <= 0 {
				continue
			}
			item := ReservationItem{
				ID:          uuid.NewString(),
				OrderLineID: l.ID,
				Quantity:    missing,
				RunID:       r.RunID,
				CreatedAt:   r.now(),
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			created[l.ID] = missing
			actions = append(actions, reserveAction(l.ID, missing))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for lineID, n := range created {
		st.reserved[lineID] += n
	}
	return actions, nil
}

func reserveAction(lineID string, qty int) Action {
	return Action{Step: StepReserveInventory, Key: lineID, Detail: fmt.Sprintf("quantity=%d", qty)}
}

// transaction runs fn in a transaction. A unique violation means a concurrent
// run wrote the same row first; fn runs once more so its existence checks see it.
func (r *Repairer) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := r.db.WithContext(ctx).Transaction(fn)
	if database.IsUniqueViolation(err) {
		err = r.db.WithContext(ctx).Transaction(fn)
	}
	return err
}

func lockRows(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == database.DriverSQLite {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
