package pattern

import (
	"fmt"
	"math/rand"
	"strings"
)

// TriplePattern is a single (subject, predicate, object) atom of a basic
// graph pattern, optionally quantified into a property-path atom (Zero,
// More) for "predicate*" / "predicate+" style traversal.
//
// Its id is a stable 128-bit hash of its own textual content, not a random
// identifier: two TriplePattern values built from the same three terms and
// the same quantifiers always compare equal, which is what lets JoinOrder
// hash keys (k0/k1/k2) be computed purely from a pattern's content.
type TriplePattern struct {
	id ID

	Subject   string
	Predicate string
	Object    string

	// Zero and More encode the property-path quantifier: Zero=false,
	// More=false is a plain triple atom; Zero=false, More=true is "+";
	// Zero=true, More=true is "*". Zero=true, More=false never occurs.
	Zero bool
	More bool

	variables map[string]struct{}

	relaxedSubject     *TriplePattern
	relaxedSubjectDone bool
	relaxedObject      *TriplePattern
	relaxedObjectDone  bool
}

// NewTriplePattern builds a TriplePattern, deriving its stable id from the
// subject/predicate/object/quantifier content.
func NewTriplePattern(subject, predicate, object string, zero, more bool) *TriplePattern {
	p := &TriplePattern{
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
		Zero:      zero,
		More:      more,
	}
	p.id = Hash128(fmt.Sprintf("%s|%s|%s|%t|%t", subject, predicate, object, zero, more))
	return p
}

func (p *TriplePattern) ID() ID            { return p.id }
func (p *TriplePattern) IsTriple() bool    { return true }
func (p *TriplePattern) IsFilter() bool    { return false }
func (p *TriplePattern) IsPathAtom() bool  { return p.More }
func (p *TriplePattern) IsPlainAtom() bool { return !p.More }

// Variables returns the set of variable names (terms starting with "?")
// among subject, predicate and object.
func (p *TriplePattern) Variables() map[string]struct{} {
	if p.variables != nil {
		return p.variables
	}
	vars := map[string]struct{}{}
	for _, term := range [3]string{p.Subject, p.Predicate, p.Object} {
		if strings.HasPrefix(term, "?") {
			vars[term] = struct{}{}
		}
	}
	p.variables = vars
	return vars
}

// Tuple is the (term, header) view of a pattern: S/P/O hold the term as
// written (variable name or constant), HS/HP/HO hold the same value when
// bound, or "" when the position is a variable. It is the unit the search
// and estimation machinery pattern-matches on to tell bound atoms apart
// from fully- or partially-unbound ones.
type Tuple struct {
	S, P, O    string
	HS, HP, HO string
}

// ToTuple returns the string-space (term, header) view of the pattern.
func (p *TriplePattern) ToTuple() Tuple {
	t := Tuple{S: p.Subject, P: p.Predicate, O: p.Object}
	if !strings.HasPrefix(p.Subject, "?") {
		t.HS = p.Subject
	}
	if !strings.HasPrefix(p.Predicate, "?") {
		t.HP = p.Predicate
	}
	if !strings.HasPrefix(p.Object, "?") {
		t.HO = p.Object
	}
	return t
}

// IDTuple is the id-space counterpart of Tuple: S/P/O hold either the
// variable name (a string, when the position is unbound) or the resolved
// term id (an int64, when it's bound); HS/HP/HO hold that same id when
// bound, or 0 when the position is a variable.
type IDTuple struct {
	S, P, O    any
	HS, HP, HO int64
}

// ToIDTuple resolves p's bound positions to term ids via db, leaving
// variable positions as their variable name. Used by id-space random
// walks, where every bound position has already been resolved once and
// walking should not keep re-resolving term strings on every step.
func (p *TriplePattern) ToIDTuple(db TermResolver) (IDTuple, error) {
	var t IDTuple
	var err error
	if t.S, t.HS, err = resolveIDTuplePosition(p.Subject, db.GetTermID); err != nil {
		return IDTuple{}, err
	}
	if t.P, t.HP, err = resolveIDTuplePosition(p.Predicate, db.GetTermID); err != nil {
		return IDTuple{}, err
	}
	if t.O, t.HO, err = resolveIDTuplePosition(p.Object, db.GetTermID); err != nil {
		return IDTuple{}, err
	}
	return t, nil
}

func resolveIDTuplePosition(term string, getTermID func(string) (int64, error)) (any, int64, error) {
	if strings.HasPrefix(term, "?") {
		return term, 0, nil
	}
	id, err := getTermID(term)
	if err != nil {
		return nil, 0, err
	}
	return id, id, nil
}

// RelaxSubject returns a copy of p with the subject replaced by a fresh
// variable, used by "star relaxation": sampling/probing a path atom from an
// already-bound endpoint by first unbinding it and later re-checking
// equality with a post-filter. The relaxed pattern is memoized: repeated
// calls return the same TriplePattern instance (and hence the same id),
// matching a single relaxation decision per pattern for the lifetime of a
// query plan.
func (p *TriplePattern) RelaxSubject(rng *rand.Rand) *TriplePattern {
	if p.relaxedSubjectDone {
		return p.relaxedSubject
	}
	v := fmt.Sprintf("?v%d", rng.Intn(1001))
	p.relaxedSubject = NewTriplePattern(v, p.Predicate, p.Object, p.Zero, p.More)
	p.relaxedSubjectDone = true
	return p.relaxedSubject
}

// RelaxObject is the object-side counterpart of RelaxSubject.
func (p *TriplePattern) RelaxObject(rng *rand.Rand) *TriplePattern {
	if p.relaxedObjectDone {
		return p.relaxedObject
	}
	v := fmt.Sprintf("?v%d", rng.Intn(1001))
	p.relaxedObject = NewTriplePattern(p.Subject, p.Predicate, v, p.Zero, p.More)
	p.relaxedObjectDone = true
	return p.relaxedObject
}

func formatTerm(term string) string {
	if strings.HasPrefix(term, "?") {
		return term
	}
	if strings.HasPrefix(term, "http") {
		return "<" + term + ">"
	}
	return term
}

// Stringify renders the atom body (no trailing period — callers join atoms
// with their own punctuation) for inclusion in a query sent to an external
// engine. Only "virtuoso" path atoms get special treatment, rendered with
// Virtuoso's OPTION(TRANSITIVE) pragma; everything else is its plain
// property-path form.
func (p *TriplePattern) Stringify(target string) string {
	if target == "virtuoso" && p.More {
		s, pred, o := formatTerm(p.Subject), formatTerm(p.Predicate), formatTerm(p.Object)
		min := 1
		if p.Zero {
			min = 0
		}
		return fmt.Sprintf("%s %s %s OPTION(TRANSITIVE, t_distinct, t_min(%d))", s, pred, o, min)
	}
	return p.String()
}

func (p *TriplePattern) String() string {
	quantifier := ""
	if p.More {
		quantifier = "+"
		if p.Zero {
			quantifier = "*"
		}
	}
	return fmt.Sprintf("%s <%s>%s %s", formatTerm(p.Subject), p.Predicate, quantifier, formatTerm(p.Object))
}
