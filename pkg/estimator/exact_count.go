package estimator

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/aleksaelezovic/joinopt/pkg/joinorder"
)

// ExactCountEstimator estimates a join order's cardinality by sending it,
// rewritten into a plain SELECT * WHERE query with its join order forced,
// to a live SPARQL endpoint and counting the results. It is the most
// accurate of the three estimators and the most expensive, so callers
// reach for it only to double-check a search algorithm's final candidate,
// not during the search itself.
type ExactCountEstimator struct {
	Endpoint   Endpoint
	Timeout    time.Duration
	RelaxStars bool
	Rand       *rand.Rand
}

// NewExactCountEstimator constructs an ExactCountEstimator against
// endpoint, matching the reference's 5-second default timeout and
// star-relaxation-on default.
func NewExactCountEstimator(endpoint Endpoint, rng *rand.Rand) *ExactCountEstimator {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &ExactCountEstimator{Endpoint: endpoint, Timeout: 5 * time.Second, RelaxStars: true, Rand: rng}
}

var tDirectionSuffixes = []string{", t_direction 1", ", t_direction 2"}

// Estimate fills in order.Cardinality/Support/EstimationTime by querying
// e.Endpoint for the exact count of order's result set. A trailing filter
// node is skipped back over to the nearest triple-pattern ancestor first
// (filters render as part of the same query body the triple chain does, so
// they don't need their own relaxation/gearing handling). On a timeout or
// any query error, it falls back to a plain "SELECT * WHERE { ?s ?p ?o }"
// probe with Support 0, exactly matching the reference's fallback.
func (e *ExactCountEstimator) Estimate(order *joinorder.JoinOrder) error {
	start := time.Now()

	plan := order
	for !plan.Pattern().IsTriple() {
		plan = plan.Previous()
	}
	plan = relaxForEstimation(plan, e.RelaxStars, e.Rand)

	query := plan.Stringify("virtuoso", e.Rand)
	query = rewriteToPlainSelect(query)

	ctx := context.Background()
	spy := NewSpy()
	cardinality, err := e.Endpoint.Count(ctx, query, spy, true, false, e.Timeout)

	support := 1.0
	if err != nil || spy.GetDefault("", "status", "") == "timeout" {
		fallbackSpy := NewSpy()
		cardinality, err = e.Endpoint.Count(ctx, "SELECT * WHERE { ?s ?p ?o }", fallbackSpy, false, false, 0)
		if err != nil {
			return err
		}
		support = 0.0
	}

	order.Cardinality = float64(cardinality)
	order.Support = support
	order.EstimationTime = time.Since(start).Seconds()
	return nil
}

// rewriteToPlainSelect strips a stringified plan's
// `DEFINE sql:select-option "order" SELECT DISTINCT *` projection header
// down to a plain `SELECT *`, and removes every t_direction hint — both
// are relevant only to Virtuoso's own query planner, not to counting rows,
// and count() already rewrites the projection itself into a COUNT(*).
func rewriteToPlainSelect(query string) string {
	parts := strings.SplitN(query, "WHERE", 2)
	if len(parts) == 2 {
		query = "SELECT * WHERE" + parts[1]
	}
	for _, suffix := range tDirectionSuffixes {
		query = strings.ReplaceAll(query, suffix, "")
	}
	return query
}
