package pricing

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"
)

// IdentityIndex resolves external product ids to internal variant ids in O(1).
// It is built once per run.
type IdentityIndex struct {
	byExternal map[string]string
	conflicts  []IdentityMapping
}

// LoadIdentityIndex reads variant_identity_mappings from the target store.
func LoadIdentityIndex(ctx context.Context, db *gorm.DB) (*IdentityIndex, error) {
	var mappings []IdentityMapping
	if err := db.WithContext(ctx).Find(&mappings).Error; err != nil {
		return nil, fmt.Errorf("failed to load identity mappings: %w", err)
	}
	return NewIdentityIndex(mappings), nil
}

// NewIdentityIndex indexes mappings. A mapping whose external id or variant id
// appears more than once is ambiguous; every mapping involved is excluded and
// reported by Conflicts, so the affected rows resolve to not found.
func NewIdentityIndex(mappings []IdentityMapping) *IdentityIndex {
	externals := make(map[string]int, len(mappings))
	variants := make(map[string]int, len(mappings))
	for _, m := range mappings {
		externals[m.ExternalProductID]++
		variants[m.VariantID]++
	}

	ix := &IdentityIndex{byExternal: make(map[string]string, len(mappings))}
	for _, m := range mappings {
		if m.ExternalProductID == "" || m.VariantID == "" ||
			externals[m.ExternalProductID] > 1 || variants[m.VariantID] > 1 {
			ix.conflicts = append(ix.conflicts, m)
			continue
		}
		ix.byExternal[m.ExternalProductID] = m.VariantID
	}

	sort.Slice(ix.conflicts, func(i, j int) bool {
		if ix.conflicts[i].ExternalProductID == ix.conflicts[j].ExternalProductID {
			return ix.conflicts[i].VariantID < ix.conflicts[j].VariantID
		}
		return ix.conflicts[i].ExternalProductID < ix.conflicts[j].ExternalProductID
	})
	return ix
}

// Resolve returns the variant mapped to externalID.
func (ix *IdentityIndex) Resolve(externalID string) (string, bool) {
	v, ok := ix.byExternal[externalID]
	return v, ok
}

// Len returns the number of usable mappings.
func (ix *IdentityIndex) Len() int { return len(ix.byExternal) }

// Conflicts returns the mappings excluded for ambiguity.
func (ix *IdentityIndex) Conflicts() []IdentityMapping { return ix.conflicts }
