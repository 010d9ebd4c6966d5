package allocation

import (
	"sort"

	"batchline/internal/domain/ledger"
)

// SelectionPolicy orders allocation candidates. Whatever the policy,
// creation order is the final tie-break so proposals stay reproducible
// and auditable.
type SelectionPolicy string

const (
	// PolicyCreationOrder walks oldest batches first.
	PolicyCreationOrder SelectionPolicy = "creation_order"

	// PolicyLargestFirst walks largest remaining quantity first, which
	// minimizes the number of batches touched per allocation.
	PolicyLargestFirst SelectionPolicy = "largest_first"
)

// Valid reports whether p is a known policy.
func (p SelectionPolicy) Valid() bool {
	switch p {
	case PolicyCreationOrder, PolicyLargestFirst:
		return true
	}
	return false
}

// order arranges candidates for the greedy walk. Candidates arrive from
// the ledger in creation order; a stable sort preserves that order
// between equals.
func (p SelectionPolicy) order(candidates []*ledger.Batch) []*ledger.Batch {
	if p != PolicyLargestFirst {
		return candidates
	}
	ordered := make([]*ledger.Batch, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].RemainingQuantity.GreaterThan(ordered[j].RemainingQuantity)
	})
	return ordered
}
