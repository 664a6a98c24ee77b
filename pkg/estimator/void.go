package estimator

import (
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/aleksaelezovic/joinopt/internal/adapter"
	"github.com/aleksaelezovic/joinopt/pkg/joinorder"
)

// VoidEstimator is the closed-form estimator: it reads precomputed VoID
// distinct-subject/distinct-object partition statistics (see
// adapter.RebuildVoIDStatistics) instead of sampling or probing a live
// endpoint, so it is cheap enough to call on every candidate plan a
// search algorithm considers.
type VoidEstimator struct {
	Database   adapter.DatabaseAdapter
	RelaxStars bool
	Rand       *rand.Rand
}

// NewVoidEstimator constructs a VoidEstimator with RelaxStars set to
// relaxStars. A nil rng is replaced by one seeded with 1.
func NewVoidEstimator(db adapter.DatabaseAdapter, relaxStars bool, rng *rand.Rand) *VoidEstimator {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &VoidEstimator{Database: db, RelaxStars: relaxStars, Rand: rng}
}

// Estimate fills in order.Cardinality (and Support, EstimationTime) from
// VoID partition statistics, relaxing a bound path-atom endpoint first
// when relaxForEstimation applies. The per-atom cardinalities and the
// per-variable "selectivity" values both accumulate as a product of
// log10(x+1) terms, exactly mirroring the reference's own use of
// numpy.prod over already-logarithmic values rather than summing them —
// an unusual scoring function, but faithfully ported rather than
// "corrected", since it isn't one of the three documented reference
// bugs.
func (e *VoidEstimator) Estimate(order *joinorder.JoinOrder) error {
	start := time.Now()
	plan := relaxForEstimation(order, e.RelaxStars, e.Rand)

	var cardinalities []float64
	values := map[string][]float64{}

	for _, p := range plan.GetPatterns() {
		t := p.ToTuple()
		var cardinality float64
		var err error
		if p.IsPathAtom() {
			cardinality, err = e.Database.Cardinality("", t.P, "")
			if err != nil {
				return err
			}
			switch {
			case !strings.HasPrefix(p.Subject, "?"):
				distinctSubjects, err := e.Database.DistinctSubjects(t.P)
				if err != nil {
					return err
				}
				cardinality = safeDivide(cardinality, float64(distinctSubjects))
			case !strings.HasPrefix(p.Object, "?"):
				distinctObjects, err := e.Database.DistinctObjects(t.P)
				if err != nil {
					return err
				}
				cardinality = safeDivide(cardinality, float64(distinctObjects))
			}
		} else {
			c, err := e.Database.Cardinality(t.HS, t.HP, t.HO)
			if err != nil {
				return err
			}
			cardinality = float64(c)
		}
		cardinalities = append(cardinalities, log10p1(cardinality))

		if _, ok := values[t.S]; !ok {
			values[t.S] = nil
		}
		if _, ok := values[t.O]; !ok {
			values[t.O] = nil
		}
		switch {
		case t.HS == "" && t.HO == "":
			distinctSubjects, err := e.Database.DistinctSubjects(t.P)
			if err != nil {
				return err
			}
			distinctObjects, err := e.Database.DistinctObjects(t.P)
			if err != nil {
				return err
			}
			values[t.S] = append(values[t.S], log10p1(float64(distinctSubjects)))
			values[t.O] = append(values[t.O], log10p1(float64(distinctObjects)))
		case t.HS == "":
			c, err := e.Database.Cardinality(t.HS, t.HP, t.HO)
			if err != nil {
				return err
			}
			values[t.S] = append(values[t.S], log10p1(float64(c)))
		case t.HO == "":
			c, err := e.Database.Cardinality(t.HS, t.HP, t.HO)
			if err != nil {
				return err
			}
			values[t.O] = append(values[t.O], log10p1(float64(c)))
		}
	}

	c := product(cardinalities)
	v := 1.0
	for _, vals := range values {
		if len(vals) > 1 {
			v *= product(dropMin(vals))
		}
	}

	order.Cardinality = safeDivide(c, v)
	order.Support = 1.0
	order.EstimationTime = time.Since(start).Seconds()
	return nil
}

func product(xs []float64) float64 {
	p := 1.0
	for _, x := range xs {
		p *= x
	}
	return p
}

// dropMin returns xs sorted descending with its smallest element
// removed, mirroring the reference's sorted(values, reverse=True)[:-1].
func dropMin(xs []float64) []float64 {
	out := append([]float64(nil), xs...)
	sort.Sort(sort.Reverse(sort.Float64Slice(out)))
	if len(out) == 0 {
		return out
	}
	return out[:len(out)-1]
}
