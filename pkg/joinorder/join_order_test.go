package joinorder

import (
	"math/rand"
	"testing"

	"github.com/aleksaelezovic/joinopt/pkg/pattern"
)

func TestJoinOrder_ExtendAndDecompose(t *testing.T) {
	p1 := pattern.NewTriplePattern("?s", "http://ex.org/p1", "?o", false, false)
	p2 := pattern.NewTriplePattern("?o", "http://ex.org/p2", "?z", false, false)

	root := Root()
	n1 := root.Extend(p1, GearingNone, true)
	n1.Cardinality = 10
	n2 := n1.Extend(p2, GearingNone, true)
	n2.Cardinality = 5

	chain := n2.Decompose()
	if len(chain) != 2 {
		t.Fatalf("expected chain of 2, got %d", len(chain))
	}
	if n2.Size() != 2 {
		t.Errorf("expected size 2, got %d", n2.Size())
	}
	if len(root.Children()) != 1 {
		t.Errorf("expected root to have 1 child, got %d", len(root.Children()))
	}
}

func TestJoinOrder_Cost(t *testing.T) {
	p1 := pattern.NewTriplePattern("?s", "http://ex.org/p1", "?o", false, false)
	p2 := pattern.NewTriplePattern("?o", "http://ex.org/p2", "?z", false, false)

	root := Root()
	n1 := root.Extend(p1, GearingNone, true)
	n1.Cardinality = 10
	n2 := n1.Extend(p2, GearingNone, true)
	n2.Cardinality = 5

	if got := n1.Cost(); got != 10 {
		t.Errorf("n1.Cost() = %v, want 10", got)
	}
	// n1.Cost() + max(n1.Cardinality, n2.Cardinality) = 10 + 10.
	if got := n2.Cost(); got != 20 {
		t.Errorf("n2.Cost() = %v, want 20", got)
	}
}

func TestJoinOrder_K0_OrderIndependent(t *testing.T) {
	p1 := pattern.NewTriplePattern("?s", "http://ex.org/p1", "?o", false, false)
	p2 := pattern.NewTriplePattern("?o", "http://ex.org/p2", "?z", false, false)

	root := Root()
	orderA := root.Extend(p1, GearingNone, false).Extend(p2, GearingNone, false)
	orderB := root.Extend(p2, GearingNone, false).Extend(p1, GearingNone, false)

	if orderA.K0() != orderB.K0() {
		t.Errorf("expected K0 to be order-independent, got %x vs %x", orderA.K0(), orderB.K0())
	}
}

func TestJoinOrder_K1_OrderIndependent(t *testing.T) {
	p1 := pattern.NewTriplePattern("?s", "http://ex.org/p1", "?o", false, false)
	p2 := pattern.NewTriplePattern("?o", "http://ex.org/p2", "?z", false, false)

	root := Root()
	orderA := root.Extend(p1, GearingNone, false).Extend(p2, GearingNone, false)
	orderB := root.Extend(p2, GearingNone, false).Extend(p1, GearingNone, false)

	if orderA.K1() != orderB.K1() {
		t.Errorf("expected XOR fold to be commutative across the same pattern set, got %x vs %x", orderA.K1(), orderB.K1())
	}
}

func TestJoinOrder_K2_OnlyPathAtoms(t *testing.T) {
	plain := pattern.NewTriplePattern("?s", "http://ex.org/p1", "?o", false, false)
	path := pattern.NewTriplePattern("?o", "http://ex.org/p2", "?z", false, true)

	root := Root()
	n1 := root.Extend(plain, GearingNone, false)
	if !n1.K2().IsZero() {
		t.Errorf("expected K2 to ignore plain atoms")
	}
	n2 := n1.Extend(path, GearingNone, false)
	if n2.K2().IsZero() {
		t.Errorf("expected K2 to fold in path atoms")
	}
}

func TestJoinOrder_Compatible(t *testing.T) {
	p1 := pattern.NewTriplePattern("?s", "http://ex.org/p1", "?o", false, false)
	p2 := pattern.NewTriplePattern("?o", "http://ex.org/p2", "?z", false, false)
	p3 := pattern.NewTriplePattern("?unrelated1", "http://ex.org/p3", "?unrelated2", false, false)

	root := Root()
	if !root.Compatible(p1) {
		t.Errorf("expected empty chain to accept any triple pattern")
	}

	n1 := root.Extend(p1, GearingNone, true)
	n1.Cardinality = 1
	if !n1.Compatible(p2) {
		t.Errorf("expected p2 (shares ?o) to be compatible")
	}
	if n1.Compatible(p3) {
		t.Errorf("expected p3 (disjoint variables) to be incompatible")
	}
}

func TestJoinOrder_Contains(t *testing.T) {
	p1 := pattern.NewTriplePattern("?s", "http://ex.org/p1", "?o", false, false)
	p2 := pattern.NewTriplePattern("?o", "http://ex.org/p2", "?z", false, false)

	root := Root()
	n1 := root.Extend(p1, GearingNone, true)

	if !n1.Contains(p1) {
		t.Errorf("expected chain to contain p1")
	}
	if n1.Contains(p2) {
		t.Errorf("expected chain to not contain p2")
	}
}

func TestJoinOrder_Stringify(t *testing.T) {
	p1 := pattern.NewTriplePattern("?s", "http://ex.org/p1", "?o", false, false)
	root := Root()
	n1 := root.Extend(p1, GearingNone, true)
	n1.Cardinality = 1

	rng := rand.New(rand.NewSource(1))
	got := n1.Stringify("", rng)
	want := "DEFINE sql:select-option \"order\" SELECT DISTINCT * WHERE {\n\t?s <http://ex.org/p1> ?o .\n}"
	if got != want {
		t.Errorf("Stringify() = %q, want %q", got, want)
	}
}
