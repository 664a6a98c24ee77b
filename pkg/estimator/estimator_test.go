package estimator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/aleksaelezovic/joinopt/pkg/joinorder"
	"github.com/aleksaelezovic/joinopt/pkg/pattern"
)

func TestSafeDivide(t *testing.T) {
	if got := safeDivide(10, 2); got != 5 {
		t.Errorf("safeDivide(10,2) = %v, want 5", got)
	}
	if got := safeDivide(10, 0); got != 10 {
		t.Errorf("safeDivide(10,0) = %v, want 10 (unchanged, not +Inf)", got)
	}
	if got := safeDivide(10, -1); got != 10 {
		t.Errorf("safeDivide(10,-1) = %v, want 10", got)
	}
}

func TestLog10p1(t *testing.T) {
	if got := log10p1(0); got != 0 {
		t.Errorf("log10p1(0) = %v, want 0", got)
	}
	if got := log10p1(99); math.Abs(got-2) > 1e-9 {
		t.Errorf("log10p1(99) = %v, want 2", got)
	}
}

func TestRelaxForEstimation_PlainAtomUntouched(t *testing.T) {
	root := joinorder.Root()
	tp := pattern.NewTriplePattern("?s", "p", "o", false, false)
	order := root.Extend(tp, joinorder.GearingNone, true)

	relaxed := relaxForEstimation(order, true, rand.New(rand.NewSource(1)))
	if relaxed != order {
		t.Errorf("relaxForEstimation should return the same node for a plain atom, got a different node")
	}
}

func TestRelaxForEstimation_ForwardPathAtomRelaxesObject(t *testing.T) {
	root := joinorder.Root()
	first := pattern.NewTriplePattern("x", "p1", "?s", false, false)
	chain := root.Extend(first, joinorder.GearingNone, true)
	path := pattern.NewTriplePattern("?s", "p2", "y", false, true)
	order := chain.Extend(path, joinorder.GearingForward, true)

	relaxed := relaxForEstimation(order, true, rand.New(rand.NewSource(1)))
	if relaxed == order {
		t.Fatalf("relaxForEstimation should substitute a new node for a forward-geared path atom")
	}
	tp, ok := relaxed.Pattern().(*pattern.TriplePattern)
	if !ok {
		t.Fatalf("relaxed pattern is not a TriplePattern")
	}
	if tp.Object == "y" {
		t.Errorf("relaxed pattern's object should no longer be the bound constant, got %q", tp.Object)
	}
	if relaxed.Previous() != chain {
		t.Errorf("relaxed node should extend the same previous chain")
	}
}

func TestRelaxForEstimation_DisabledByFlag(t *testing.T) {
	root := joinorder.Root()
	first := pattern.NewTriplePattern("x", "p1", "?s", false, false)
	chain := root.Extend(first, joinorder.GearingNone, true)
	path := pattern.NewTriplePattern("?s", "p2", "y", false, true)
	order := chain.Extend(path, joinorder.GearingForward, true)

	relaxed := relaxForEstimation(order, false, rand.New(rand.NewSource(1)))
	if relaxed != order {
		t.Errorf("relaxForEstimation should be a no-op when relaxStars is false")
	}
}
