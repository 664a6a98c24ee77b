// Package joinorder implements the JoinOrder plan node: a persistent,
// structurally-shared chain of pattern extensions representing one
// candidate join ordering of a basic graph pattern query.
//
// A JoinOrder is built bottom-up by repeated Extend calls starting from
// Root(); each node holds exactly one pattern (a triple pattern or a
// filter) plus a pointer to the previous node, so distinct orderings that
// share a prefix share the underlying nodes instead of copying them.
package joinorder

import (
	"bytes"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/aleksaelezovic/joinopt/pkg/pattern"
)

// Gearing values record which direction a property-path atom was walked
// in, mirroring the hint a query engine is told to apply when the atom is
// rendered back out.
const (
	GearingNone    = 0
	GearingForward = 1
	GearingReverse = 2
)

// JoinOrder is one node of a candidate join order. The root node (built by
// Root) carries no pattern and no previous node; every other node extends
// exactly one previous node with exactly one pattern.
type JoinOrder struct {
	pattern  pattern.Pattern
	gearing  int
	previous *JoinOrder
	children []*JoinOrder

	Cardinality    float64
	Epsilon        float64
	Support        float64
	EstimationTime float64

	k0Set bool
	k0    pattern.ID
	k1Set bool
	k1    pattern.ID
	k2Set bool
	k2    pattern.ID
	sizeSet bool
	size    int
	firstSet bool
	first    pattern.Pattern
	rootSet  bool
	root     *JoinOrder
	variablesSet bool
	variables    map[string]struct{}
}

// Root returns a fresh join order with no pattern: the starting point every
// candidate plan is built up from via Extend.
func Root() *JoinOrder {
	return &JoinOrder{}
}

func (j *JoinOrder) Pattern() pattern.Pattern { return j.pattern }
func (j *JoinOrder) Gearing() int             { return j.gearing }
func (j *JoinOrder) Previous() *JoinOrder     { return j.previous }
func (j *JoinOrder) Children() []*JoinOrder   { return j.children }
func (j *JoinOrder) IsRoot() bool             { return j.previous == nil }

// Cost is the plan's estimated execution cost: the classic "sum of
// intermediate-result sizes" join cost model, where each extension costs
// the larger of the running result and the newly-joined pattern's own
// cardinality.
func (j *JoinOrder) Cost() float64 {
	if j.previous == nil {
		return j.Cardinality
	}
	prevCardinality := j.previous.Cardinality
	thisCardinality := j.Cardinality
	if prevCardinality > thisCardinality {
		return j.previous.Cost() + prevCardinality
	}
	return j.previous.Cost() + thisCardinality
}

// K0 is a hash of the full, order-independent set of triple pattern ids
// this plan covers: two join orders with the same k0 cover the same
// patterns regardless of the order they were joined in.
func (j *JoinOrder) K0() pattern.ID {
	if j.k0Set {
		return j.k0
	}
	patterns := j.GetPatterns()
	ids := make([][16]byte, len(patterns))
	for i, p := range patterns {
		ids[i] = p.ID()
	}
	sort.Slice(ids, func(i, k int) bool { return bytes.Compare(ids[i][:], ids[k][:]) < 0 })

	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, "%x", id)
	}
	j.k0 = pattern.Hash128(b.String())
	j.k0Set = true
	return j.k0
}

// K1 is the XOR-fold of every triple pattern id on the chain: an
// order-independent identity cheaper to compute incrementally than K0, used
// to dedup join orders that reach the same set of triple patterns via
// different children.
func (j *JoinOrder) K1() pattern.ID {
	if j.k1Set {
		return j.k1
	}
	if j.previous == nil {
		j.k1Set = true
		return j.k1
	}
	if j.pattern.IsTriple() {
		j.k1 = j.pattern.ID().Xor(j.previous.K1())
	} else {
		j.k1 = j.previous.K1()
	}
	j.k1Set = true
	return j.k1
}

// K2 is the XOR-fold of only the path-atom ("+"/"*") pattern ids on the
// chain, used by HGreedySearch to favor plans that diversify which
// property-path atoms have been walked.
func (j *JoinOrder) K2() pattern.ID {
	if j.k2Set {
		return j.k2
	}
	if j.previous == nil {
		j.k2Set = true
		return j.k2
	}
	tp, ok := j.pattern.(*pattern.TriplePattern)
	if ok && tp.IsPathAtom() {
		j.k2 = j.pattern.ID().Xor(j.previous.K2())
	} else {
		j.k2 = j.previous.K2()
	}
	j.k2Set = true
	return j.k2
}

// Size is the number of triple pattern atoms (not filters) on the chain.
func (j *JoinOrder) Size() int {
	if j.sizeSet {
		return j.size
	}
	if j.previous == nil {
		j.sizeSet = true
		return 0
	}
	if j.pattern.IsTriple() {
		j.size = 1 + j.previous.Size()
	} else {
		j.size = j.previous.Size()
	}
	j.sizeSet = true
	return j.size
}

// First returns the pattern at the bottom of the chain (the first one
// joined). It is only meaningful on a non-root node.
func (j *JoinOrder) First() pattern.Pattern {
	if j.firstSet {
		return j.first
	}
	if j.previous.pattern == nil {
		j.first = j.pattern
	} else {
		j.first = j.previous.First()
	}
	j.firstSet = true
	return j.first
}

// RootOf returns the root sentinel this chain was built from.
func (j *JoinOrder) RootOf() *JoinOrder {
	if j.rootSet {
		return j.root
	}
	if j.previous == nil {
		j.root = j
	} else {
		j.root = j.previous.RootOf()
	}
	j.rootSet = true
	return j.root
}

// Variables is the set of variable names bound by any triple pattern on
// the chain.
func (j *JoinOrder) Variables() map[string]struct{} {
	if j.variablesSet {
		return j.variables
	}
	if j.previous == nil {
		j.variables = map[string]struct{}{}
		j.variablesSet = true
		return j.variables
	}
	if j.pattern.IsTriple() {
		prev := j.previous.Variables()
		merged := make(map[string]struct{}, len(prev)+len(j.pattern.Variables()))
		for v := range prev {
			merged[v] = struct{}{}
		}
		for v := range j.pattern.Variables() {
			merged[v] = struct{}{}
		}
		j.variables = merged
	} else {
		j.variables = j.previous.Variables()
	}
	j.variablesSet = true
	return j.variables
}

// GetPatterns returns the triple patterns on the chain, in join order.
func (j *JoinOrder) GetPatterns() []*pattern.TriplePattern {
	if j.previous == nil {
		return nil
	}
	if j.pattern.IsTriple() {
		return append(j.previous.GetPatterns(), j.pattern.(*pattern.TriplePattern))
	}
	return j.previous.GetPatterns()
}

// GetFilters returns the filters on the chain, in join order.
func (j *JoinOrder) GetFilters() []*pattern.Filter {
	if j.previous == nil {
		return nil
	}
	if j.pattern.IsFilter() {
		return append(j.previous.GetFilters(), j.pattern.(*pattern.Filter))
	}
	return j.previous.GetFilters()
}

// Compatible reports whether pattern could validly extend this chain: a
// triple pattern is compatible with an empty chain, or with a non-empty
// one it shares at least one variable with; a filter is compatible only
// once every variable it mentions is already bound.
func (j *JoinOrder) Compatible(p pattern.Pattern) bool {
	if _, ok := p.(*pattern.TriplePattern); ok {
		if j.Size() == 0 {
			return true
		}
		return intersects(j.Variables(), p.Variables())
	}
	return isSuperset(j.Variables(), p.Variables())
}

func intersects(a, b map[string]struct{}) bool {
	for v := range b {
		if _, ok := a[v]; ok {
			return true
		}
	}
	return false
}

func isSuperset(a, b map[string]struct{}) bool {
	for v := range b {
		if _, ok := a[v]; !ok {
			return false
		}
	}
	return true
}

// Extend returns a new node appending pattern to this chain. When remember
// is true, the new node is also recorded as a child of this node (used so
// a previously-explored prefix can be revisited without rebuilding it).
func (j *JoinOrder) Extend(p pattern.Pattern, gearing int, remember bool) *JoinOrder {
	child := &JoinOrder{pattern: p, gearing: gearing, previous: j}
	if remember {
		j.children = append(j.children, child)
	}
	return child
}

// Decompose returns every node from the first extension of the root up to
// and including j, in join order.
func (j *JoinOrder) Decompose() []*JoinOrder {
	if j.previous == nil {
		return nil
	}
	return append(j.previous.Decompose(), j)
}

// Contains reports whether p (by id) already appears somewhere on the
// chain.
func (j *JoinOrder) Contains(p pattern.Pattern) bool {
	if j.previous == nil {
		return false
	}
	if j.pattern.ID() == p.ID() {
		return true
	}
	return j.previous.Contains(p)
}

// Stringify renders the full plan as a query string for the named target
// engine ("virtuoso" or "blazegraph"), including the gearing hints and
// t_direction / star-relaxation rendering a property-path atom needs when
// it is walked against a bound endpoint. rng supplies the randomness star
// relaxation needs to pick a fresh relaxed variable name.
func (j *JoinOrder) Stringify(target string, rng *rand.Rand) string {
	var lines []string
	for _, node := range j.Decompose() {
		rendered := node.pattern.Stringify(target)
		tp, isPathAtom := node.pattern.(*pattern.TriplePattern)
		isPathAtom = isPathAtom && tp.IsPathAtom()

		switch {
		case !isPathAtom:
			lines = append(lines, "\t"+rendered+" .")
		case target == "blazegraph":
			lines = append(lines, "\t"+rendered+" .")
			if node.gearing == GearingForward {
				lines = append(lines, `	hint:Prior hint:gearing "forward" .`)
			} else {
				lines = append(lines, `	hint:Prior hint:gearing "reverse" .`)
			}
		case node.gearing == GearingForward:
			if !strings.HasPrefix(tp.Object, "?") {
				relaxed := tp.RelaxObject(rng)
				pat := relaxed.Stringify(target)
				lines = append(lines, fmt.Sprintf("\t%s, t_direction 1) .", dropLastChar(pat)))
				expr := fmt.Sprintf("IRI(%s) = <%s>", relaxed.Object, tp.Object)
				lines = append(lines, fmt.Sprintf("\tFILTER (%s) .", expr))
			} else {
				lines = append(lines, fmt.Sprintf("\t%s, t_direction 1) .", dropLastChar(rendered)))
			}
		default:
			if !strings.HasPrefix(tp.Subject, "?") {
				relaxed := tp.RelaxSubject(rng)
				pat := relaxed.Stringify(target)
				lines = append(lines, fmt.Sprintf("\t%s, t_direction 2) .", dropLastChar(pat)))
				expr := fmt.Sprintf("IRI(%s) = <%s>", relaxed.Subject, tp.Subject)
				lines = append(lines, fmt.Sprintf("\tFILTER (%s) .", expr))
			} else {
				lines = append(lines, fmt.Sprintf("\t%s, t_direction 2) .", dropLastChar(rendered)))
			}
		}
	}

	body := strings.Join(lines, "\n")
	if target == "blazegraph" {
		body = "\thint:Query hint:optimizer \"None\" .\n" + body
		return fmt.Sprintf("SELECT DISTINCT * WHERE {\n%s\n}", body)
	}
	return fmt.Sprintf("DEFINE sql:select-option \"order\" SELECT DISTINCT * WHERE {\n%s\n}", body)
}

// dropLastChar strips the closing ")" of a path atom's OPTION(TRANSITIVE,
// ...) rendering so a ", t_direction N)" suffix can re-close it, mirroring
// the reference engine's own string surgery for this rendering.
func dropLastChar(s string) string {
	if s == "" {
		return s
	}
	return s[:len(s)-1]
}

func (j *JoinOrder) String() string {
	var lines []string
	for _, node := range j.Decompose() {
		lines = append(lines, "\t"+node.pattern.String()+" .")
	}
	return fmt.Sprintf("SELECT DISTINCT * WHERE {\n%s\n}", strings.Join(lines, "\n"))
}

// NodeReport is a single row of Summarize's plan-tree report.
type NodeReport struct {
	Depth       int
	Pattern     string
	Gearing     int
	Cardinality float64
	Cost        float64
}

// Summarize reports the cardinality/cost estimates of every node on leaf's
// chain, from the first joined pattern to leaf, in join order. Other
// branches of the plan tree (Children) are not visited. It gives the CLI's
// demo command a human-readable view of a chosen plan without reaching
// into JoinOrder internals.
func Summarize(leaf *JoinOrder) []NodeReport {
	nodes := leaf.Decompose()
	reports := make([]NodeReport, 0, len(nodes))
	for i, n := range nodes {
		reports = append(reports, NodeReport{
			Depth:       i + 1,
			Pattern:     n.pattern.String(),
			Gearing:     n.gearing,
			Cardinality: n.Cardinality,
			Cost:        n.Cost(),
		})
	}
	return reports
}
