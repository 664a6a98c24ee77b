// Package search implements the join-order search algorithms: given a
// parsed query and a cardinality estimator, explore the space of
// compatible left-deep join orders and return the cheapest one found.
package search

import (
	"bytes"
	"sort"
	"strings"

	"github.com/aleksaelezovic/joinopt/pkg/joinorder"
	"github.com/aleksaelezovic/joinopt/pkg/pattern"
)

// CardinalityEstimator fills in a join order node's Cardinality (and,
// where supported, Epsilon/Support/EstimationTime) fields given the plan
// built so far. Implementations live in pkg/estimator.
type CardinalityEstimator interface {
	Estimate(order *joinorder.JoinOrder) error
}

// Algorithm is the common contract every search strategy satisfies: given
// a query, return the single join order it judges best.
type Algorithm interface {
	Run(query *pattern.Query) (*joinorder.JoinOrder, error)
}

// Expand returns every join order one step compatible-extension away from
// jo: at the root, every plain atom (and every path atom with fewer than
// two variables, which can only be walked in one fixed direction) becomes
// a starting candidate; at any node, every pattern not already on the
// chain and compatible with its bound variables becomes a candidate (both
// gearings for a path atom when both endpoints are already bound); and
// every candidate is then extended with any filter it newly satisfies.
func Expand(query *pattern.Query, jo *joinorder.JoinOrder) []*joinorder.JoinOrder {
	var candidates []*joinorder.JoinOrder

	for _, p := range query.Patterns {
		if jo.IsRoot() {
			switch {
			case !p.More:
				candidates = append(candidates, jo.Extend(p, joinorder.GearingNone, true))
			case len(p.Variables()) < 2:
				gearing := joinorder.GearingReverse
				if !strings.HasPrefix(p.Subject, "?") {
					gearing = joinorder.GearingForward
				}
				candidates = append(candidates, jo.Extend(p, gearing, true))
			}
		}

		if !jo.Contains(p) && jo.Compatible(p) {
			if p.More {
				vars := jo.Variables()
				if _, ok := vars[p.Subject]; ok {
					candidates = append(candidates, jo.Extend(p, joinorder.GearingForward, true))
				}
				if _, ok := vars[p.Object]; ok {
					candidates = append(candidates, jo.Extend(p, joinorder.GearingReverse, true))
				}
			} else {
				candidates = append(candidates, jo.Extend(p, joinorder.GearingNone, true))
			}
		}
	}

	for i, candidate := range candidates {
		for _, f := range query.Filters {
			if !candidate.Contains(f) && candidate.Compatible(f) {
				candidate = candidate.Extend(f, joinorder.GearingNone, true)
				candidates[i] = candidate
			}
		}
	}

	return candidates
}

// sortedByCost returns plans ordered by ascending cost, with pattern id
// (K1) as a deterministic tiebreak. The reference implementation relies on
// Python dict insertion order to break cost ties reproducibly; Go maps
// make no such guarantee, so an explicit secondary key is used instead
// (see DESIGN.md).
func sortedByCost(plans map[pattern.ID]*joinorder.JoinOrder) []*joinorder.JoinOrder {
	out := make([]*joinorder.JoinOrder, 0, len(plans))
	for _, p := range plans {
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Cost() != out[j].Cost() {
			return out[i].Cost() < out[j].Cost()
		}
		ki, kj := out[i].K1(), out[j].K1()
		return bytes.Compare(ki[:], kj[:]) < 0
	})
	return out
}

// pickBest returns the minimum-cost plan among a final round's survivors,
// with a deterministic tiebreak on K1. This replaces the reference
// implementation's dict.popitem() (return whichever plan happened to be
// inserted last), a documented deviation — see DESIGN.md.
func pickBest(plans map[pattern.ID]*joinorder.JoinOrder) *joinorder.JoinOrder {
	ranked := sortedByCost(plans)
	if len(ranked) == 0 {
		return nil
	}
	return ranked[0]
}
