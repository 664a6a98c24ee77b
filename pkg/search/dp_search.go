package search

import (
	"fmt"

	"github.com/aleksaelezovic/joinopt/pkg/joinorder"
	"github.com/aleksaelezovic/joinopt/pkg/pattern"
)

// DPSearch is exhaustive dynamic-programming search: every round expands
// every surviving plan by every compatible pattern, and survivors that
// reach the same set of joined triple patterns, in whatever order (same
// K1), are deduplicated down to the cheaper of the two.
type DPSearch struct {
	Estimator CardinalityEstimator
}

func NewDPSearch(estimator CardinalityEstimator) *DPSearch {
	return &DPSearch{Estimator: estimator}
}

// NextRound expands every plan in oldPlans by one pattern, estimates each
// candidate, and deduplicates by K1, keeping the cheaper plan on a
// collision.
func (s *DPSearch) NextRound(query *pattern.Query, oldPlans map[pattern.ID]*joinorder.JoinOrder) (map[pattern.ID]*joinorder.JoinOrder, error) {
	newPlans := map[pattern.ID]*joinorder.JoinOrder{}
	for _, old := range oldPlans {
		for _, candidate := range Expand(query, old) {
			if err := s.Estimator.Estimate(candidate); err != nil {
				return nil, fmt.Errorf("search: estimating candidate plan: %w", err)
			}
			k1 := candidate.K1()
			if existing, ok := newPlans[k1]; !ok || candidate.Cost() < existing.Cost() {
				newPlans[k1] = candidate
			}
		}
	}
	return newPlans, nil
}

// Run explores every round up to query.Size() and returns the cheapest
// surviving plan.
func (s *DPSearch) Run(query *pattern.Query) (*joinorder.JoinOrder, error) {
	plans := map[pattern.ID]*joinorder.JoinOrder{{}: joinorder.Root()}
	for round := 0; round < query.Size(); round++ {
		next, err := s.NextRound(query, plans)
		if err != nil {
			return nil, err
		}
		plans = next
	}
	best := pickBest(plans)
	if best == nil {
		return nil, fmt.Errorf("search: no plan found for query %q", query.Name)
	}
	return best, nil
}
