package pattern

import (
	"math/rand"
	"testing"
)

func TestNewTriplePattern_StableID(t *testing.T) {
	a := NewTriplePattern("?s", "http://ex.org/p", "?o", false, false)
	b := NewTriplePattern("?s", "http://ex.org/p", "?o", false, false)
	if a.ID() != b.ID() {
		t.Fatalf("expected identical content to produce identical ids, got %x vs %x", a.ID(), b.ID())
	}

	c := NewTriplePattern("?s", "http://ex.org/p", "?o", true, true)
	if a.ID() == c.ID() {
		t.Fatalf("expected different quantifiers to change the id")
	}
}

func TestTriplePattern_Variables(t *testing.T) {
	p := NewTriplePattern("?s", "http://ex.org/knows", "?o", false, false)
	vars := p.Variables()
	if _, ok := vars["?s"]; !ok {
		t.Errorf("expected ?s in variables")
	}
	if _, ok := vars["?o"]; !ok {
		t.Errorf("expected ?o in variables")
	}
	if len(vars) != 2 {
		t.Errorf("expected exactly 2 variables, got %d", len(vars))
	}
}

func TestTriplePattern_ToTuple(t *testing.T) {
	p := NewTriplePattern("?s", "http://ex.org/knows", "http://ex.org/bob", false, false)
	tup := p.ToTuple()
	if tup.HS != "" {
		t.Errorf("expected empty header for variable subject, got %q", tup.HS)
	}
	if tup.HP != "http://ex.org/knows" {
		t.Errorf("expected bound predicate header, got %q", tup.HP)
	}
	if tup.HO != "http://ex.org/bob" {
		t.Errorf("expected bound object header, got %q", tup.HO)
	}
}

func TestTriplePattern_RelaxSubject_Memoized(t *testing.T) {
	p := NewTriplePattern("http://ex.org/alice", "http://ex.org/knows", "?o", false, false)
	rng := rand.New(rand.NewSource(42))

	r1 := p.RelaxSubject(rng)
	r2 := p.RelaxSubject(rng)
	if r1 != r2 {
		t.Fatalf("expected RelaxSubject to be memoized, got distinct patterns")
	}
	if r1.Predicate != p.Predicate || r1.Object != p.Object {
		t.Errorf("relaxation must preserve predicate and object")
	}
	if r1.Subject == p.Subject {
		t.Errorf("expected subject to be replaced by a fresh variable")
	}
}

func TestTriplePattern_Stringify_PlainAtom(t *testing.T) {
	p := NewTriplePattern("?s", "http://ex.org/p", "?o", false, false)
	got := p.Stringify("")
	want := "?s <http://ex.org/p> ?o"
	if got != want {
		t.Errorf("Stringify() = %q, want %q", got, want)
	}
}

func TestTriplePattern_Stringify_VirtuosoPathAtom(t *testing.T) {
	p := NewTriplePattern("?s", "http://ex.org/p", "?o", true, true)
	got := p.Stringify("virtuoso")
	want := "?s <http://ex.org/p> ?o OPTION(TRANSITIVE, t_distinct, t_min(0))"
	if got != want {
		t.Errorf("Stringify(virtuoso) = %q, want %q", got, want)
	}
}

func TestTriplePattern_Stringify_SparqlPathAtom(t *testing.T) {
	p := NewTriplePattern("?s", "http://ex.org/p", "?o", false, true)
	got := p.Stringify("")
	want := "?s <http://ex.org/p>+ ?o"
	if got != want {
		t.Errorf("Stringify() = %q, want %q", got, want)
	}
}
