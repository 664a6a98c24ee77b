package estimator

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/aleksaelezovic/joinopt/pkg/joinorder"
	"github.com/aleksaelezovic/joinopt/pkg/pattern"
)

// fakeEndpoint records the last query it was asked to count and returns a
// pre-programmed count or error.
type fakeEndpoint struct {
	lastQuery   string
	count       int64
	err         error
	fallbackHit bool
}

func (f *fakeEndpoint) Execute(ctx context.Context, query string, spy *Spy, forceOrder bool, timeout time.Duration) (sparqlResults, error) {
	return sparqlResults{}, nil
}

func (f *fakeEndpoint) Count(ctx context.Context, query string, spy *Spy, forceOrder, distinct bool, timeout time.Duration) (int64, error) {
	if query == "SELECT * WHERE { ?s ?p ?o }" {
		f.fallbackHit = true
		return 0, nil
	}
	f.lastQuery = query
	if f.err != nil {
		return 0, f.err
	}
	return f.count, nil
}

func TestExactCountEstimator_HappyPath(t *testing.T) {
	ep := &fakeEndpoint{count: 17}
	est := NewExactCountEstimator(ep, rand.New(rand.NewSource(1)))

	tp := pattern.NewTriplePattern("x", "p", "?o", false, false)
	order := joinorder.Root().Extend(tp, joinorder.GearingNone, true)

	if err := est.Estimate(order); err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if order.Cardinality != 17 {
		t.Errorf("Cardinality = %v, want 17", order.Cardinality)
	}
	if order.Support != 1.0 {
		t.Errorf("Support = %v, want 1.0", order.Support)
	}
	if ep.fallbackHit {
		t.Errorf("fallback query should not have been used on the happy path")
	}
	if strings.Contains(ep.lastQuery, "DEFINE sql:select-option") {
		t.Errorf("rewritten query should not keep the DEFINE/DISTINCT projection header: %q", ep.lastQuery)
	}
	if !strings.HasPrefix(strings.TrimSpace(ep.lastQuery), "SELECT * WHERE") {
		t.Errorf("rewritten query should start with a plain SELECT * WHERE: %q", ep.lastQuery)
	}
}

func TestExactCountEstimator_ErrorFallsBackToWildcardQuery(t *testing.T) {
	ep := &fakeEndpoint{err: errTest{}}
	est := NewExactCountEstimator(ep, rand.New(rand.NewSource(1)))

	tp := pattern.NewTriplePattern("x", "p", "?o", false, false)
	order := joinorder.Root().Extend(tp, joinorder.GearingNone, true)

	if err := est.Estimate(order); err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if !ep.fallbackHit {
		t.Errorf("fallback query should have been used after an error")
	}
	if order.Support != 0.0 {
		t.Errorf("Support = %v, want 0.0 after falling back", order.Support)
	}
}

func TestExactCountEstimator_SkipsTrailingFilter(t *testing.T) {
	ep := &fakeEndpoint{count: 5}
	est := NewExactCountEstimator(ep, rand.New(rand.NewSource(1)))

	tp := pattern.NewTriplePattern("?s", "p", "?o", false, false)
	chain := joinorder.Root().Extend(tp, joinorder.GearingNone, true)
	filter := pattern.NewFilter(pattern.NewTermExpr("?o"))
	order := chain.Extend(filter, joinorder.GearingNone, true)

	if err := est.Estimate(order); err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if order.Cardinality != 5 {
		t.Errorf("Cardinality = %v, want 5", order.Cardinality)
	}
}

type errTest struct{}

func (errTest) Error() string { return "boom" }
