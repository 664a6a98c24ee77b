// Package estimator implements the cardinality estimators the search
// algorithms in pkg/search consult when scoring a candidate join order:
// a closed-form VoID-statistics estimator, a random-walk sampling
// estimator, and an exact-count estimator that probes a live SPARQL
// endpoint. All three satisfy search.CardinalityEstimator.
package estimator

import (
	"math"
	"math/rand"

	"github.com/aleksaelezovic/joinopt/pkg/joinorder"
	"github.com/aleksaelezovic/joinopt/pkg/pattern"
)

// relaxForEstimation implements the reference's star-relaxation plan
// substitution: a path atom ("+"/"*") walked from one bound endpoint
// (order.Gearing() is GearingForward or GearingReverse — set by
// search.Expand when the atom was added to the chain) is estimated by
// first relaxing its still-bound endpoint into a fresh variable. The
// relaxed pattern replaces the last node (built via Extend with
// remember=false, so it doesn't pollute the real chain's memoized
// children); the estimator then walks plan.GetPatterns() instead of
// order.GetPatterns().
//
// order.Gearing() is GearingNone for every plain atom (gearing is only
// ever set to Forward/Reverse for path atoms in search.Expand), so this
// never touches plain atoms. A path atom that is the first atom of its
// chain (order.Size() == 1) keeps its Forward/Reverse gearing from
// search.Expand but is left unrelaxed too — only a later path atom with
// a bound endpoint gets relaxed.
func relaxForEstimation(order *joinorder.JoinOrder, relaxStars bool, rng *rand.Rand) *joinorder.JoinOrder {
	if order.Gearing() == joinorder.GearingNone || order.Size() == 1 || !relaxStars {
		return order
	}
	tp, ok := order.Pattern().(*pattern.TriplePattern)
	if !ok {
		return order
	}
	if order.Gearing() == joinorder.GearingForward {
		relaxed := tp.RelaxObject(rng)
		return order.Previous().Extend(relaxed, joinorder.GearingForward, false)
	}
	relaxed := tp.RelaxSubject(rng)
	return order.Previous().Extend(relaxed, joinorder.GearingReverse, false)
}

// safeDivide divides numerator by denominator, but returns numerator
// unchanged when denominator is non-positive instead of dividing by
// zero. The reference's distinct_subjects/distinct_objects return 0 for
// a predicate with no VoID partition (a documented, faithfully-preserved
// quirk — see internal/adapter's DistinctSubjects/DistinctObjects), and
// the reference itself divides by that 0 unguarded; this estimator
// instead treats "no partition statistics" as "no adjustment available"
// rather than crashing or producing +Inf.
func safeDivide(numerator, denominator float64) float64 {
	if denominator <= 0 {
		return numerator
	}
	return numerator / denominator
}

// log10p1 is log10(x+1), used throughout these estimators so a
// zero-cardinality atom contributes 0 to a log-space product instead of
// -Inf.
func log10p1(x float64) float64 {
	return math.Log10(x + 1)
}
