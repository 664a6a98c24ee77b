package search

import (
	"fmt"

	"github.com/aleksaelezovic/joinopt/pkg/joinorder"
	"github.com/aleksaelezovic/joinopt/pkg/pattern"
)

// GreedySearch is beam search: each round keeps only the BeamSize cheapest
// plans before expanding further, trading optimality for a search space
// that stays linear in query size instead of exponential.
type GreedySearch struct {
	*DPSearch
	BeamSize int
}

// NewGreedySearch builds a GreedySearch with the given beam width. A
// beamSize of 0 or less uses the reference default of 5.
func NewGreedySearch(estimator CardinalityEstimator, beamSize int) *GreedySearch {
	if beamSize <= 0 {
		beamSize = 5
	}
	return &GreedySearch{DPSearch: NewDPSearch(estimator), BeamSize: beamSize}
}

// NextRound runs the full DP expansion/estimation/dedup step, then keeps
// only the BeamSize cheapest survivors.
func (s *GreedySearch) NextRound(query *pattern.Query, oldBeam map[pattern.ID]*joinorder.JoinOrder) (map[pattern.ID]*joinorder.JoinOrder, error) {
	merged, err := s.DPSearch.NextRound(query, oldBeam)
	if err != nil {
		return nil, err
	}
	ranked := sortedByCost(merged)

	limit := s.BeamSize
	if limit > len(ranked) {
		limit = len(ranked)
	}
	newBeam := make(map[pattern.ID]*joinorder.JoinOrder, limit)
	for _, plan := range ranked[:limit] {
		newBeam[plan.K1()] = plan
	}
	return newBeam, nil
}

func (s *GreedySearch) Run(query *pattern.Query) (*joinorder.JoinOrder, error) {
	beam := map[pattern.ID]*joinorder.JoinOrder{{}: joinorder.Root()}
	for round := 0; round < query.Size(); round++ {
		next, err := s.NextRound(query, beam)
		if err != nil {
			return nil, err
		}
		beam = next
	}
	best := pickBest(beam)
	if best == nil {
		return nil, fmt.Errorf("search: no plan found for query %q", query.Name)
	}
	return best, nil
}
