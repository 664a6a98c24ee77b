package estimator

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/aleksaelezovic/joinopt/internal/adapter"
	"github.com/aleksaelezovic/joinopt/pkg/joinorder"
	"github.com/aleksaelezovic/joinopt/pkg/pattern"
	"github.com/aleksaelezovic/joinopt/pkg/search"
)

// RandomWalksEstimator estimates a join order's cardinality by performing
// NumWalks independent random walks over its pattern chain, sampling a
// concrete binding at each triple atom from Database and accumulating a
// per-walk match probability. Property-path atoms are walked as a
// bounded random closure instead of a single sample.
//
// The reference implementation (random_walks.py) keeps two near-
// duplicate method families — one operating on term strings, one on
// term ids — purely because Python has no way to express "this code
// works for either" short of writing it twice. Go's type parameters do
// that directly: computeWalks and computeClosure below are written once,
// generic over the header type H (string for the string-space walk, the
// adapter's int64 term id for the id-space walk), using H's own zero
// value as the "unbound" sentinel exactly as the reference's ''/0 do.
type RandomWalksEstimator struct {
	Database          adapter.DatabaseAdapter
	NumWalks          int
	MaxDepth          int
	Confidence        float64
	RelaxStars        bool
	OptimizeWalkPlans bool
	Rand              *rand.Rand

	walkPlanCache    map[pattern.ID]*joinorder.JoinOrder
	walksCacheString map[*joinorder.JoinOrder][]walk
	walksCacheID     map[*joinorder.JoinOrder][]walk
}

// NewRandomWalksEstimator constructs a RandomWalksEstimator with the
// reference's defaults (1000 walks, max depth 5, 95% confidence, star
// relaxation and walk-plan optimization both enabled).
func NewRandomWalksEstimator(db adapter.DatabaseAdapter, rng *rand.Rand) *RandomWalksEstimator {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &RandomWalksEstimator{
		Database:          db,
		NumWalks:          1000,
		MaxDepth:          5,
		Confidence:        0.95,
		RelaxStars:        true,
		OptimizeWalkPlans: true,
		Rand:              rng,
		walkPlanCache:     map[pattern.ID]*joinorder.JoinOrder{},
		walksCacheString:  map[*joinorder.JoinOrder][]walk{},
		walksCacheID:      map[*joinorder.JoinOrder][]walk{},
	}
}

// walk is one random walk's running state: Proba is its accumulated
// match probability (0 once the walk has failed to match), Mu its
// variable bindings so far (string-space values are term strings,
// id-space values are int64 term ids), and Group a string key derived
// from every path-atom depth sampled along the way, used to group walks
// with comparable semantics together before averaging.
type walk struct {
	Proba float64
	Mu    pattern.Mapping
	Group string
}

// headerZero is satisfied by the two header types random walks are
// computed over: string (string-space) and int64 (id-space, the
// adapter's own term id). Both types' zero value is the domain's
// "unbound" sentinel, mirroring the reference's ''/0.
type headerZero interface {
	~string | ~int64
}

func mergeMapping(base, overlay pattern.Mapping) pattern.Mapping {
	out := make(pattern.Mapping, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// applyTuple is the generic counterpart of the reference's apply(): s/o
// are the pattern's raw subject/object fields (a variable name string,
// or — in id-space — a bound term id), hs/ho their headers. Whichever of
// s/o is a variable name already bound in mu is resolved to its bound
// value, and its header updated to match, so a later hop in the same
// walk sees it as fixed.
func applyTuple[H headerZero](mu pattern.Mapping, s, o any, hs, ho H) (as, ao any, ahs, aho H) {
	as, ahs = s, hs
	if key, ok := s.(string); ok {
		if v, found := mu[key]; found {
			as, ahs = v, v.(H)
		}
	}
	ao, aho = o, ho
	if key, ok := o.(string); ok {
		if v, found := mu[key]; found {
			ao, aho = v, v.(H)
		}
	}
	return
}

func filterWalks(f *pattern.Filter, x []walk, db pattern.TermResolver) ([]walk, error) {
	y := make([]walk, len(x))
	for i, w := range x {
		if w.Proba == 0 {
			y[i] = w
			continue
		}
		ok, err := f.Eval(w.Mu, db)
		if err != nil {
			return nil, err
		}
		if ok {
			y[i] = w
		} else {
			y[i] = walk{0, w.Mu, w.Group}
		}
	}
	return y, nil
}

// tupleFunc resolves a triple pattern to its (subject, object, headers)
// view in a given domain; sampleFunc draws one binding for its unbound
// position(s) from the database in that same domain.
type tupleFunc[H headerZero] func(tp *pattern.TriplePattern) (s, o any, hs, hp, ho H, err error)
type sampleFunc[H headerZero] func(sVar, oVar string, hs, hp, ho H, rng *rand.Rand) (map[string]H, int64, error)

// computeWalks recursively walks jo's chain from the root, memoized per
// node by pointer identity: jo's structurally-shared prefixes (two plans
// sharing the same first k atoms point at the same *joinorder.JoinOrder
// nodes) are walked exactly once, mirroring the reference's
// @lru_cache(maxsize=None) keyed on the join_order object itself.
func computeWalks[H headerZero](
	e *RandomWalksEstimator,
	cache map[*joinorder.JoinOrder][]walk,
	jo *joinorder.JoinOrder,
	tupleOf tupleFunc[H],
	sampleOne sampleFunc[H],
) ([]walk, error) {
	if cached, ok := cache[jo]; ok {
		return cached, nil
	}
	if jo.Previous() == nil {
		out := make([]walk, e.NumWalks)
		for i := range out {
			out[i] = walk{Proba: 1, Mu: pattern.Mapping{}}
		}
		cache[jo] = out
		return out, nil
	}

	x, err := computeWalks(e, cache, jo.Previous(), tupleOf, sampleOne)
	if err != nil {
		return nil, err
	}

	var y []walk
	switch p := jo.Pattern().(type) {
	case *pattern.Filter:
		y, err = filterWalks(p, x, e.Database)
		if err != nil {
			return nil, err
		}
	case *pattern.TriplePattern:
		if p.IsPathAtom() {
			y, err = computeClosure(e, jo, x, tupleOf, sampleOne)
			if err != nil {
				return nil, err
			}
		} else {
			s, o, hs, hp, ho, tErr := tupleOf(p)
			if tErr != nil {
				return nil, tErr
			}
			y = make([]walk, len(x))
			for i, w := range x {
				if w.Proba == 0 {
					y[i] = w
					continue
				}
				as, ao, ahs, aho := applyTuple(w.Mu, s, o, hs, ho)
				sVar, _ := as.(string)
				oVar, _ := ao.(string)
				bindings, cardinality, sErr := sampleOne(sVar, oVar, ahs, hp, aho, e.Rand)
				if sErr != nil {
					return nil, sErr
				}
				muc := make(pattern.Mapping, len(bindings))
				for k, v := range bindings {
					muc[k] = v
				}
				y[i] = walk{w.Proba * float64(cardinality), mergeMapping(w.Mu, muc), w.Group}
			}
		}
	default:
		return nil, fmt.Errorf("estimator: unsupported pattern type %T in join order chain", p)
	}

	cache[jo] = y
	return y, nil
}

// pathNode is one step of a property-path closure walk: the node
// reached, and the walk's accumulated probability at that point.
type pathNode struct {
	node  any
	proba float64
}

// computeClosure performs the bounded random walk a property-path atom
// needs: starting from its already-bound endpoint, it samples one
// outgoing (or incoming, depending on gearing) edge at a time, stopping
// on a repeated node (a cycle — the path is killed, matching the
// reference's any(node == muc['?node'] for node, _ in path) check) or
// once it has gone as deep as the smallest of MaxDepth, highest and the
// depth this walk drew. highest grows across the whole input batch as deeper paths
// are discovered, exactly mirroring the reference's single shared
// `highest` local threaded across the entire X loop.
func computeClosure[H headerZero](
	e *RandomWalksEstimator,
	jo *joinorder.JoinOrder,
	x []walk,
	tupleOf tupleFunc[H],
	sampleOne sampleFunc[H],
) ([]walk, error) {
	tp := jo.Pattern().(*pattern.TriplePattern)
	s, o, hs, hp, ho, err := tupleOf(tp)
	if err != nil {
		return nil, err
	}
	if jo.Gearing() == joinorder.GearingReverse {
		s, o = o, s
		hs, ho = ho, hs
	}

	var zero H
	lowest := 1
	if tp.Zero {
		lowest = 0
	}
	highest := 1

	y := make([]walk, len(x))
	for i, w := range x {
		depth := lowest
		if highest > lowest {
			depth = lowest + e.Rand.Intn(highest-lowest+1)
		}
		group := fmt.Sprintf("%s%d", w.Group, depth)

		if w.Proba == 0 {
			y[i] = walk{0, w.Mu, group}
			continue
		}

		var source any
		if hs == zero {
			key, _ := s.(string)
			v, ok := w.Mu[key]
			if !ok {
				return nil, fmt.Errorf("estimator: path atom's bound endpoint %q was never resolved by an earlier atom", key)
			}
			source = v
		} else {
			source = hs
		}

		path := []pathNode{{source, w.Proba}}
		yProba := w.Proba
		maxDepth := minInt(e.MaxDepth, minInt(highest, depth))

		for yProba > 0 && len(path) <= maxDepth {
			var sVar, oVar string
			var ths, tho H
			last := path[len(path)-1].node
			if jo.Gearing() == joinorder.GearingForward {
				ths, tho = last.(H), zero
				oVar = "?node"
			} else {
				ths, tho = zero, last.(H)
				sVar = "?node"
			}
			muc, cardinality, sErr := sampleOne(sVar, oVar, ths, hp, tho, e.Rand)
			if sErr != nil {
				return nil, sErr
			}
			yProba *= float64(cardinality)
			if yProba <= 0 {
				break
			}
			node, ok := muc["?node"]
			if !ok {
				yProba = 0
				break
			}
			cyclic := false
			for _, pn := range path {
				if pn.node == any(node) {
					cyclic = true
					break
				}
			}
			if cyclic {
				yProba = 0
			} else {
				path = append(path, pathNode{node, yProba})
			}
		}

		if len(path) > highest {
			highest = len(path)
		}

		if depth >= len(path) {
			y[i] = walk{0, w.Mu, group}
			continue
		}

		node, yProba := path[depth].node, path[depth].proba
		var target any = zero
		if ho == zero {
			key, _ := o.(string)
			if v, ok := w.Mu[key]; ok {
				target = v
			}
		} else {
			target = ho
		}

		switch {
		case target == any(zero):
			key, _ := o.(string)
			newMu := mergeMapping(w.Mu, pattern.Mapping{key: node})
			y[i] = walk{yProba, newMu, group}
		case node == target:
			y[i] = walk{yProba, w.Mu, group}
		default:
			y[i] = walk{0, w.Mu, group}
		}
	}
	return y, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// stringSpaceTuple and idSpaceTuple adapt TriplePattern.ToTuple/ToIDTuple
// and Adapter.Sample/IDSample to the tupleFunc/sampleFunc shapes
// computeWalks and computeClosure are generic over.
func stringSpaceTuple(tp *pattern.TriplePattern) (s, o any, hs, hp, ho string, err error) {
	t := tp.ToTuple()
	return t.S, t.O, t.HS, t.HP, t.HO, nil
}

func (e *RandomWalksEstimator) idSpaceTuple(tp *pattern.TriplePattern) (s, o any, hs, hp, ho int64, err error) {
	t, err := tp.ToIDTuple(e.Database)
	if err != nil {
		return nil, nil, 0, 0, 0, err
	}
	return t.S, t.O, t.HS, t.HP, t.HO, nil
}

func (e *RandomWalksEstimator) sampleStringSpace(sVar, oVar string, hs, hp, ho string, rng *rand.Rand) (map[string]string, int64, error) {
	return e.Database.Sample(sVar, oVar, hs, hp, ho, rng)
}

func (e *RandomWalksEstimator) sampleIDSpace(sVar, oVar string, hs, hp, ho int64, rng *rand.Rand) (map[string]int64, int64, error) {
	return e.Database.IDSample(sVar, oVar, hs, hp, ho, rng)
}

// computeWalksFor dispatches to the string-space or id-space walk
// computation based on join_order.first's headers, exactly as the
// reference's compute_walks does — both domains share jo's pattern
// chain, they differ only in which accessors of Database they call.
func (e *RandomWalksEstimator) computeWalksFor(jo *joinorder.JoinOrder) ([]walk, error) {
	first, ok := jo.First().(*pattern.TriplePattern)
	if !ok {
		return nil, fmt.Errorf("estimator: join order's first pattern is not a triple pattern")
	}
	t := first.ToTuple()
	if t.HS == "" && t.HO == "" {
		return computeWalks(e, e.walksCacheString, jo, stringSpaceTuple, e.sampleStringSpace)
	}
	return computeWalks(e, e.walksCacheID, jo, e.idSpaceTuple, e.sampleIDSpace)
}

// computeSupport is the fraction of a walk's accumulated match
// probability actually realized, capped at 1 per walk before averaging.
func computeSupport(walks []walk) float64 {
	if len(walks) == 0 {
		return 0
	}
	var total float64
	for _, w := range walks {
		total += math.Min(1, w.Proba)
	}
	return total / float64(len(walks))
}

// processWalks groups walks by their Group key (every group shares the
// same sequence of path-atom depths sampled, so its walks are directly
// comparable) and for every group with more than one member, adds its
// mean probability to the cardinality estimate and a Student's-t
// confidence half-width to epsilon. A group with a single walk
// contributes nothing to either — ported exactly from the reference,
// which has the same behavior (an n<=1 group's `if n > 1` never fires).
func (e *RandomWalksEstimator) processWalks(walks []walk) (cardinality, epsilon float64) {
	groups := map[string][]float64{}
	for _, w := range walks {
		groups[w.Group] = append(groups[w.Group], w.Proba)
	}
	for _, probas := range groups {
		n := len(probas)
		if n <= 1 {
			continue
		}
		mean, stddev := meanAndStddev(probas)
		se := stddev / math.Sqrt(float64(n))
		t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}
		z := t.Quantile((1 + e.Confidence) / 2)
		cardinality += mean
		epsilon += z * se
	}
	return cardinality, epsilon
}

func meanAndStddev(xs []float64) (mean, stddev float64) {
	n := float64(len(xs))
	for _, x := range xs {
		mean += x
	}
	mean /= n
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	if len(xs) > 1 {
		stddev = math.Sqrt(sumSq / (n - 1))
	}
	return mean, stddev
}

// optimizeWalkPlan re-optimizes the (possibly star-relaxed) walk plan
// with a cheap VoID-estimator-driven beam search before walking it, so
// the walk spends its samples on a plan that at least orders atoms by a
// closed-form cost estimate rather than whatever order the original
// search algorithm happened to produce. Memoized by K1, matching the
// reference's self._cache keyed on join_order.k1.
func (e *RandomWalksEstimator) optimizeWalkPlan(walkPlan *joinorder.JoinOrder) (*joinorder.JoinOrder, error) {
	k1 := walkPlan.K1()
	if cached, ok := e.walkPlanCache[k1]; ok {
		return cached, nil
	}
	query := &pattern.Query{Patterns: walkPlan.GetPatterns(), Filters: walkPlan.GetFilters()}
	voidEstimator := NewVoidEstimator(e.Database, e.RelaxStars, e.Rand)
	optimizer := search.NewHGreedySearch(voidEstimator, 1, 1)
	optimized, err := optimizer.Run(query)
	if err != nil {
		return nil, err
	}
	e.walkPlanCache[k1] = optimized
	return optimized, nil
}

// Estimate fills in order.Cardinality, Epsilon and Support. A
// single-atom, non-path plan is answered exactly via one Cardinality
// call (support 1.0, no walking needed); everything else goes through
// star relaxation, optional walk-plan optimization, and the random walk
// itself.
func (e *RandomWalksEstimator) Estimate(order *joinorder.JoinOrder) error {
	start := time.Now()
	tp, isTriple := order.Pattern().(*pattern.TriplePattern)

	if order.Size() == 1 && isTriple && !tp.IsPathAtom() {
		t := tp.ToTuple()
		cardinality, err := e.Database.Cardinality(t.HS, t.HP, t.HO)
		if err != nil {
			return err
		}
		order.Cardinality = float64(cardinality)
		order.Support = 1.0
		order.EstimationTime = time.Since(start).Seconds()
		return nil
	}

	walkPlan := relaxForEstimation(order, e.RelaxStars, e.Rand)
	if e.OptimizeWalkPlans {
		optimized, err := e.optimizeWalkPlan(walkPlan)
		if err != nil {
			return err
		}
		walkPlan = optimized
	}

	walks, err := e.computeWalksFor(walkPlan)
	if err != nil {
		return err
	}
	cardinality, epsilon := e.processWalks(walks)
	order.Cardinality = cardinality
	order.Epsilon = epsilon
	order.Support = computeSupport(walks)
	order.EstimationTime = time.Since(start).Seconds()
	return nil
}
