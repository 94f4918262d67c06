package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"
)

// ErrOrderNotFound is returned for an order id the target store does not know.
var ErrOrderNotFound = errors.New("order not found")

// Checker reports which fulfillment invariants an order violates.
type Checker struct {
	db *gorm.DB
}

// NewChecker creates a checker on the target store.
func NewChecker(db *gorm.DB) *Checker {
	return &Checker{db: db}
}

// Check returns the violations of orderID in dependency order: shipping
// profile links, then the shipping method, then reservations. An empty
// result means the order is clean.
func (c *Checker) Check(ctx context.Context, orderID string) ([]Violation, error) {
	st, err := loadState(c.db.WithContext(ctx), orderID)
	if err != nil {
		return nil, err
	}
	return st.violations(), nil
}

// orderState is everything the invariants are evaluated on.
type orderState struct {
	order    Order
	lines    []OrderLine
	links    map[string]string // product id -> profile id
	method   string
	reserved map[string]int // line id -> reserved quantity
}

func loadState(db *gorm.DB, orderID string) (*orderState, error) {
	st := &orderState{
		links:    make(map[string]string),
		reserved: make(map[string]int),
	}

	err := db.Where("id = ?", orderID).Take(&st.order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}

	if err := db.Where("order_id = ?", orderID).Order("position, id").Find(&st.lines).Error; err != nil {
		return nil, fmt.Errorf("failed to load lines of %s: %w", orderID, err)
	}

	if products := st.productIDs(); len(products) > 0 {
		var links []ShippingProfileLink
		if err := db.Where("product_id IN ?", products).Find(&links).Error; err != nil {
			return nil, fmt.Errorf("failed to load shipping profile links: %w", err)
		}
		for _, l := range links {
			st.links[l.ProductID] = l.ProfileID
		}
	}

	var assignments []ShippingMethodAssignment
	if err := db.Where("order_id = ?", orderID).Limit(1).Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to load shipping method of %s: %w", orderID, err)
	}
	if len(assignments) > 0 {
		st.method = assignments[0].MethodID
	}

	if len(st.lines) > 0 {
		lineIDs := make([]string, len(st.lines))
		for i, l := range st.lines {
			lineIDs[i] = l.ID
		}
		var sums []struct {
			OrderLineID string
			Reserved    int
		}
		err := db.Model(&ReservationItem{}).
			Select("order_line_id, SUM(quantity) AS reserved").
			Where("order_line_id IN ?", lineIDs).
			Group("order_line_id").
			Scan(&sums).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load reservations of %s: %w", orderID, err)
		}
		for _, s := range sums {
			st.reserved[s.OrderLineID] = s.Reserved
		}
	}

	return st, nil
}

// productIDs returns the distinct products of the order in line order.
func (s *orderState) productIDs() []string {
	seen := make(map[string]bool, len(s.lines))
	var ids []string
	for _, l := range s.lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			ids = append(ids, l.ProductID)
		}
	}
	return ids
}

func (s *orderState) missingProfiles() []string {
	var missing []string
	for _, p := range s.productIDs() {
		if _, ok := s.links[p]; !ok {
			missing = append(missing, p)
		}
	}
	return missing
}

// profileIDs returns the distinct linked profiles of the order's products, sorted.
func (s *orderState) profileIDs() []string {
	set := make(map[string]bool)
	for _, p := range s.productIDs() {
		if profile, ok := s.links[p]; ok {
			set[profile] = true
		}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *orderState) violations() []Violation {
	vs := []Violation{}
	for _, p := range s.missingProfiles() {
		vs = append(vs, MissingShippingProfile(p))
	}
	if s.method == "" {
		vs = append(vs, MissingShippingMethod())
	}
	for _, l := range s.lines {
		if r := s.reserved[l.ID]; r < l.Quantity {
			vs = append(vs, IncompleteReservation(l.ID, l.Quantity-r))
		}
	}
	for _, l := range s.lines {
		if r := s.reserved[l.ID]; r > l.Quantity {
			vs = append(vs, ExcessReservation(l.ID, r-l.Quantity))
		}
	}
	return vs
}
