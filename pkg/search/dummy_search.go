package search

import (
	"fmt"

	"github.com/aleksaelezovic/joinopt/pkg/joinorder"
	"github.com/aleksaelezovic/joinopt/pkg/pattern"
)

// DummySearch is the no-search baseline: it always takes the first
// candidate Expand offers, in query pattern order, without ever consulting
// an estimator. It exists to measure how much a cost-based search actually
// buys over "whatever order the query happened to be written in".
type DummySearch struct {
	// Estimator is accepted for interface symmetry with the other search
	// algorithms but never consulted.
	Estimator CardinalityEstimator
}

func NewDummySearch(estimator CardinalityEstimator) *DummySearch {
	return &DummySearch{Estimator: estimator}
}

func (s *DummySearch) Run(query *pattern.Query) (*joinorder.JoinOrder, error) {
	jo := joinorder.Root()
	for jo.Size() < query.Size() {
		candidates := Expand(query, jo)
		if len(candidates) == 0 {
			return nil, fmt.Errorf("search: no compatible pattern to extend a join order of size %d", jo.Size())
		}
		jo = candidates[0]
	}
	return jo, nil
}
