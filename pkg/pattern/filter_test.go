package pattern

import "testing"

// fakeResolver is a trivial TermResolver for expression-evaluation tests.
type fakeResolver struct {
	termsByID map[int64]string
	idsByTerm map[string]int64
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{termsByID: map[int64]string{}, idsByTerm: map[string]int64{}}
}

func (r *fakeResolver) add(id int64, term string) {
	r.termsByID[id] = term
	r.idsByTerm[term] = id
}

func (r *fakeResolver) GetTerm(id int64) (string, error) { return r.termsByID[id], nil }
func (r *fakeResolver) GetTermID(term string) (int64, error) { return r.idsByTerm[term], nil }

func TestTermExpr_Eval_Variable(t *testing.T) {
	db := newFakeResolver()
	e := NewTermExpr("?x")
	mu := Mapping{"?x": "hello"}

	got, err := e.Eval(mu, db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello" {
		t.Errorf("got %v, want hello", got)
	}
}

func TestTermExpr_Eval_TypedInteger(t *testing.T) {
	db := newFakeResolver()
	e := NewTermExpr("?x")
	mu := Mapping{"?x": `"42"^^<` + XSDIntegerIRI + ">"}

	got, err := e.Eval(mu, db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("got %v (%T), want int 42", got, got)
	}
}

func TestRelationalExpr_Eval(t *testing.T) {
	db := newFakeResolver()
	e := NewRelationalExpr(NewTermExpr("?x"), "<", NewTermExpr("?y"))
	mu := Mapping{"?x": `"1"^^<` + XSDIntegerIRI + ">", "?y": `"2"^^<` + XSDIntegerIRI + ">"}

	got, err := e.Eval(mu, db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != true {
		t.Errorf("got %v, want true", got)
	}
}

func TestAndOrExpr_ShortCircuit(t *testing.T) {
	db := newFakeResolver()
	tru := NewRelationalExpr(NewTermExpr("a"), "=", NewTermExpr("a"))
	fls := NewRelationalExpr(NewTermExpr("a"), "=", NewTermExpr("b"))

	and := NewAndExpr(tru, fls)
	got, err := and.Eval(Mapping{}, db)
	if err != nil || got != false {
		t.Errorf("AND: got %v, err %v, want false", got, err)
	}

	or := NewOrExpr(fls, tru)
	got, err = or.Eval(Mapping{}, db)
	if err != nil || got != true {
		t.Errorf("OR: got %v, err %v, want true", got, err)
	}
}

func TestEqExpr_ResolvesIDSpace(t *testing.T) {
	db := newFakeResolver()
	db.add(7, "http://ex.org/bob")

	e := NewEqExpr("?x", "http://ex.org/bob")
	mu := Mapping{"?x": int64(7)}

	got, err := e.Eval(mu, db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != true {
		t.Errorf("got %v, want true", got)
	}
}

func TestMultiset_ToFilter_SingleVarSingleRow(t *testing.T) {
	m := NewMultiset([]string{"?x"}, []map[string]string{{"?x": "http://ex.org/a"}})
	f := m.ToFilter()
	db := newFakeResolver()

	ok, err := f.Eval(Mapping{"?x": "http://ex.org/a"}, db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Errorf("expected filter to hold for matching binding")
	}

	ok, err = f.Eval(Mapping{"?x": "http://ex.org/b"}, db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Errorf("expected filter to reject non-matching binding")
	}
}

func TestFilter_Variables(t *testing.T) {
	f := NewFilter(NewRelationalExpr(NewTermExpr("?x"), "=", NewTermExpr("?y")))
	vars := f.Variables()
	if _, ok := vars["?x"]; !ok {
		t.Errorf("expected ?x in filter variables")
	}
	if _, ok := vars["?y"]; !ok {
		t.Errorf("expected ?y in filter variables")
	}
}
