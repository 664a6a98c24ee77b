package search

import (
	"testing"

	"github.com/aleksaelezovic/joinopt/pkg/joinorder"
	"github.com/aleksaelezovic/joinopt/pkg/pattern"
)

// constantEstimator assigns a fixed cardinality to every plan it estimates,
// letting tests exercise search control flow without a real adapter.
type constantEstimator struct {
	cardinality float64
}

func (e *constantEstimator) Estimate(order *joinorder.JoinOrder) error {
	order.Cardinality = e.cardinality
	order.Support = 1.0
	return nil
}

func twoHopQuery() *pattern.Query {
	p1 := pattern.NewTriplePattern("?a", "http://ex.org/knows", "?b", false, false)
	p2 := pattern.NewTriplePattern("?b", "http://ex.org/likes", "?c", false, false)
	return &pattern.Query{Name: "two-hop", Patterns: []*pattern.TriplePattern{p1, p2}}
}

func TestExpand_RootOffersEveryPlainAtomTwice(t *testing.T) {
	q := twoHopQuery()
	root := joinorder.Root()
	candidates := Expand(q, root)
	// Each plain atom is offered once by the root-specific branch and once
	// by the general compatible-extension branch (see Expand's doc
	// comment and DESIGN.md) — both are harmless duplicates, deduplicated
	// by K1 in DPSearch.NextRound.
	if len(candidates) != 4 {
		t.Fatalf("expected 4 raw candidates (2 patterns x 2 branches), got %d", len(candidates))
	}
}

func TestDPSearch_Run_FindsCompletePlan(t *testing.T) {
	q := twoHopQuery()
	s := NewDPSearch(&constantEstimator{cardinality: 10})

	plan, err := s.Run(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Size() != 2 {
		t.Fatalf("expected a complete plan of size 2, got %d", plan.Size())
	}
	if len(plan.Variables()) != 3 {
		t.Errorf("expected 3 distinct variables bound, got %d", len(plan.Variables()))
	}
}

func TestGreedySearch_Run_RespectsBeamWidth(t *testing.T) {
	q := twoHopQuery()
	s := NewGreedySearch(&constantEstimator{cardinality: 10}, 1)

	plan, err := s.Run(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Size() != 2 {
		t.Fatalf("expected a complete plan of size 2, got %d", plan.Size())
	}
}

func TestHGreedySearch_Run(t *testing.T) {
	q := twoHopQuery()
	s := NewHGreedySearch(&constantEstimator{cardinality: 10}, 1, 1)

	plan, err := s.Run(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Size() != 2 {
		t.Fatalf("expected a complete plan of size 2, got %d", plan.Size())
	}
}

func TestDummySearch_Run_TakesFirstCandidate(t *testing.T) {
	q := twoHopQuery()
	s := NewDummySearch(nil)

	plan, err := s.Run(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Size() != 2 {
		t.Fatalf("expected a complete plan of size 2, got %d", plan.Size())
	}
	// DummySearch never estimates, so cardinalities stay at their zero value.
	if plan.Cardinality != 0 {
		t.Errorf("expected DummySearch to leave cardinality unset, got %v", plan.Cardinality)
	}
}
