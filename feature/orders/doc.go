// Package orders implements the order-repair mode: it finds orders whose
// fulfillment state is incomplete and repairs them in place.
//
// An order is clean when every product on it is linked to a shipping profile,
// the order has exactly one shipping method, and every line is reserved for
// exactly its quantity. Checker reports the violations; Repairer fixes them in
// the order profiles, shipping method, reservations, because each step depends
// on the one before. Every step re-reads inside its own transaction and only
// writes what is still missing, so running a repair twice is a no-op.
//
// Excess reservations are reported but never released.
package orders
