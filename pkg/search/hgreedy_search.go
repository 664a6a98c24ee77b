package search

import (
	"fmt"
	"sort"

	"github.com/aleksaelezovic/joinopt/pkg/joinorder"
	"github.com/aleksaelezovic/joinopt/pkg/pattern"
)

// HGreedySearch is beam search with a path-diversity injection: plans that
// introduce a distinct property-path atom (distinct K2) not yet
// represented in the beam get pulled to the front, up to BeamExtra extra
// slots, even if a cheaper plan without a new path atom would otherwise
// have edged them out. This keeps walk-based estimation from fixating on
// a single path atom across rounds.
type HGreedySearch struct {
	*DPSearch
	BeamSize  int
	BeamExtra int
}

func NewHGreedySearch(estimator CardinalityEstimator, beamSize, beamExtra int) *HGreedySearch {
	if beamSize <= 0 {
		beamSize = 5
	}
	if beamExtra <= 0 {
		beamExtra = 1
	}
	return &HGreedySearch{DPSearch: NewDPSearch(estimator), BeamSize: beamSize, BeamExtra: beamExtra}
}

type rankedPlan struct {
	plan *joinorder.JoinOrder
	rank int
}

func (s *HGreedySearch) NextRound(query *pattern.Query, oldBeam map[pattern.ID]*joinorder.JoinOrder) (map[pattern.ID]*joinorder.JoinOrder, error) {
	merged, err := s.DPSearch.NextRound(query, oldBeam)
	if err != nil {
		return nil, err
	}
	ranked := sortedByCost(merged)

	var buffer []rankedPlan
	seen := map[pattern.ID]struct{}{}
	beamSize := s.BeamSize

	for position, plan := range ranked {
		k2 := plan.K2()
		if !k2.IsZero() {
			if _, already := seen[k2]; !already && len(seen) < s.BeamExtra {
				buffer = append(buffer, rankedPlan{plan, -1})
				seen[k2] = struct{}{}
				if position >= beamSize {
					beamSize++
				}
				continue
			}
		}
		buffer = append(buffer, rankedPlan{plan, position})
	}

	sort.SliceStable(buffer, func(i, j int) bool { return buffer[i].rank < buffer[j].rank })

	limit := beamSize
	if limit > len(buffer) {
		limit = len(buffer)
	}
	newBeam := make(map[pattern.ID]*joinorder.JoinOrder, limit)
	for _, entry := range buffer[:limit] {
		newBeam[entry.plan.K1()] = entry.plan
	}
	return newBeam, nil
}

func (s *HGreedySearch) Run(query *pattern.Query) (*joinorder.JoinOrder, error) {
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
