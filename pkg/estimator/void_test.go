package estimator

import (
	"math"
	"testing"

	"github.com/aleksaelezovic/joinopt/pkg/joinorder"
	"github.com/aleksaelezovic/joinopt/pkg/pattern"
)

func TestVoidEstimator_SingleBoundAtom(t *testing.T) {
	db := newFakeAdapter()
	db.cardinalities[[3]string{"x", "p", "y"}] = 42

	tp := pattern.NewTriplePattern("x", "p", "y", false, false)
	order := joinorder.Root().Extend(tp, joinorder.GearingNone, true)

	est := NewVoidEstimator(db, true, nil)
	if err := est.Estimate(order); err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	// The lone atom contributes log10p1(42) = log10(43); no variable is
	// shared, so nothing divides it.
	if want := math.Log10(43); math.Abs(order.Cardinality-want) > 1e-9 {
		t.Errorf("Cardinality = %v, want %v", order.Cardinality, want)
	}
	if order.Support != 1.0 {
		t.Errorf("Support = %v, want 1.0", order.Support)
	}
}

func TestVoidEstimator_StarJoinDividesBySharedVariable(t *testing.T) {
	db := newFakeAdapter()
	db.cardinalities[[3]string{"", "p1", "o1"}] = 9
	db.cardinalities[[3]string{"", "p2", "o2"}] = 99

	tp1 := pattern.NewTriplePattern("?s", "p1", "o1", false, false)
	tp2 := pattern.NewTriplePattern("?s", "p2", "o2", false, false)
	chain := joinorder.Root().Extend(tp1, joinorder.GearingNone, true)
	order := chain.Extend(tp2, joinorder.GearingNone, true)

	est := NewVoidEstimator(db, true, nil)
	if err := est.Estimate(order); err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if math.Abs(order.Cardinality-1.0) > 1e-9 {
		t.Errorf("Cardinality = %v, want 1.0 (log10p1(9)*log10p1(99) / max(log10p1(9),log10p1(99)))", order.Cardinality)
	}
}

func TestVoidEstimator_PathAtomDividedByDistinctSubjects(t *testing.T) {
	db := newFakeAdapter()
	db.cardinalities[[3]string{"", "p", ""}] = 99
	db.distinctSubj["p"] = 9

	tp := pattern.NewTriplePattern("x", "p", "?o", false, true) // path atom, "+"
	order := joinorder.Root().Extend(tp, joinorder.GearingNone, true)

	est := NewVoidEstimator(db, true, nil)
	if err := est.Estimate(order); err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	// cardinality for the one atom: safeDivide(log10p1(99/9ish? no: raw cardinality
	// division happens before log10p1) -- path atom divides raw 99 by 9 = 11,
	// then log10p1(11) = log10(12).
	want := math.Log10(12)
	if math.Abs(order.Cardinality-want) > 1e-9 {
		t.Errorf("Cardinality = %v, want %v", order.Cardinality, want)
	}
}
