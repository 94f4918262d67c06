package orders

import "fmt"

// ViolationKind names a fulfillment invariant.
type ViolationKind string

const (
	KindMissingShippingProfile ViolationKind = "missing_shipping_profile"
	KindMissingShippingMethod  ViolationKind = "missing_shipping_method"
	KindIncompleteReservation  ViolationKind = "incomplete_reservation"
	KindExcessReservation      ViolationKind = "excess_reservation"
)

// Violation is one broken invariant of an order.
type Violation struct {
	Kind      ViolationKind `json:"kind"`
	ProductID string        `json:"product_id,omitempty"`
	LineID    string        `json:"line_id,omitempty"`
	// Quantity is the missing quantity of an incomplete reservation or the
	// surplus of an excess one.
	Quantity int `json:"quantity,omitempty"`
}

// MissingShippingProfile reports a product without a shipping profile link.
func MissingShippingProfile(productID string) Violation {
	return Violation{Kind: KindMissingShippingProfile, ProductID: productID}
}

// MissingShippingMethod reports an order without a shipping method.
func MissingShippingMethod() Violation {
	return Violation{Kind: KindMissingShippingMethod}
}

// IncompleteReservation reports a line reserved for less than its quantity.
func IncompleteReservation(lineID string, missing int) Violation {
	return Violation{Kind: KindIncompleteReservation, LineID: lineID, Quantity: missing}
}

// ExcessReservation reports a line reserved for more than its quantity.
func ExcessReservation(lineID string, excess int) Violation {
	return Violation{Kind: KindExcessReservation, LineID: lineID, Quantity: excess}
}

func (v Violation) String() string {
	switch v.Kind {
	case KindMissingShippingProfile:
		return fmt.Sprintf("MissingShippingProfile(%s)", v.ProductID)
	case KindMissingShippingMethod:
		return "MissingShippingMethod"
	case KindIncompleteReservation:
		return fmt.Sprintf("IncompleteReservation(%s, %d)", v.LineID, v.Quantity)
	case KindExcessReservation:
		return fmt.Sprintf("ExcessReservation(%s, %d)", v.LineID, v.Quantity)
	}
	return string(v.Kind)
}

// Strings formats violations for reports.
func Strings(vs []Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out
}
