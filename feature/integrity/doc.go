// Package integrity checks the environment a reconciliation run depends on.
//
// # Checks Provided
//
//   - Target schema: every table the engine reads or writes exists with the columns its model names.
//   - Source schema: the legacy table has every column the configured source profile maps.
//   - Reports: the report bucket and its per-mode folders exist (fixable).
package integrity
