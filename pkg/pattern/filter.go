package pattern

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Mapping is a set of variable bindings produced while walking or
// materializing a plan. A bound value is either a term string (string-space
// walking) or a numeric term id (id-space walking) — Expression.Eval
// resolves either one via the supplied TermResolver.
type Mapping map[string]any

// TermResolver is the minimal lookup contract Expression evaluation needs
// from a database adapter: turning an id back into its term string, and a
// term string into its id.
type TermResolver interface {
	GetTerm(id int64) (string, error)
	GetTermID(term string) (int64, error)
}

// Expression is a node of a filter's boolean expression tree.
type Expression interface {
	Variables() map[string]struct{}
	Eval(mu Mapping, db TermResolver) (any, error)
	String() string
}

func asTermString(term any, db TermResolver) (string, error) {
	if id, ok := term.(int64); ok {
		s, err := db.GetTerm(id)
		if err != nil {
			return "", err
		}
		return s, nil
	}
	s, ok := term.(string)
	if !ok {
		return "", fmt.Errorf("pattern: unexpected bound value type %T", term)
	}
	return s, nil
}

// TermExpr evaluates to a variable's binding, or to its own literal text
// when it is a constant. "value"^^<datatype> literals with an integer
// datatype are promoted to int so relational comparisons work numerically.
type TermExpr struct {
	Term string
}

func NewTermExpr(term string) *TermExpr { return &TermExpr{Term: term} }

func (e *TermExpr) Variables() map[string]struct{} {
	if strings.HasPrefix(e.Term, "?") {
		return map[string]struct{}{e.Term: {}}
	}
	return map[string]struct{}{}
}

func (e *TermExpr) Eval(mu Mapping, db TermResolver) (any, error) {
	var bound any = e.Term
	if v, ok := mu[e.Term]; ok {
		bound = v
	}

	ts, err := asTermString(bound, db)
	if err != nil {
		return nil, err
	}

	if idx := strings.Index(ts, "^^"); idx >= 0 {
		value := ts[:idx]
		datatype := ts[idx+2:]
		if datatype == "<"+XSDIntegerIRI+">" && len(value) >= 2 {
			if n, err := strconv.Atoi(strings.Trim(value, `"`)); err == nil {
				return n, nil
			}
		}
	}
	return ts, nil
}

func (e *TermExpr) String() string { return formatTerm(e.Term) }

// XSDIntegerIRI is the datatype IRI TermExpr checks to promote a typed
// literal to a Go int for relational comparisons.
const XSDIntegerIRI = "http://www.w3.org/2001/XMLSchema#integer"

// STRExpr wraps an inner expression with SPARQL's STR(): forces the result
// back to its plain string form.
type STRExpr struct {
	Inner Expression
}

func NewSTRExpr(inner Expression) *STRExpr { return &STRExpr{Inner: inner} }

func (e *STRExpr) Variables() map[string]struct{} { return e.Inner.Variables() }

func (e *STRExpr) Eval(mu Mapping, db TermResolver) (any, error) {
	v, err := e.Inner.Eval(mu, db)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("%v", v), nil
}

func (e *STRExpr) String() string { return fmt.Sprintf("STR(%s)", e.Inner) }

// NotExpr negates a boolean sub-expression.
type NotExpr struct {
	Inner Expression
}

func NewNotExpr(inner Expression) *NotExpr { return &NotExpr{Inner: inner} }

func (e *NotExpr) Variables() map[string]struct{} { return e.Inner.Variables() }

func (e *NotExpr) Eval(mu Mapping, db TermResolver) (any, error) {
	v, err := e.Inner.Eval(mu, db)
	if err != nil {
		return nil, err
	}
	b, ok := v.(bool)
	if !ok {
		return nil, fmt.Errorf("pattern: NOT applied to non-boolean %v", v)
	}
	return !b, nil
}

func (e *NotExpr) String() string { return fmt.Sprintf("!(%s)", e.Inner) }

// RelationalExpr is a binary comparison: =, <, >, <=, >=.
type RelationalExpr struct {
	Left, Right Expression
	Operator    string
}

func NewRelationalExpr(left Expression, operator string, right Expression) *RelationalExpr {
	return &RelationalExpr{Left: left, Operator: operator, Right: right}
}

func (e *RelationalExpr) Variables() map[string]struct{} {
	return union(e.Left.Variables(), e.Right.Variables())
}

func (e *RelationalExpr) Eval(mu Mapping, db TermResolver) (any, error) {
	l, err := e.Left.Eval(mu, db)
	if err != nil {
		return nil, err
	}
	r, err := e.Right.Eval(mu, db)
	if err != nil {
		return nil, err
	}
	return compareValues(l, r, e.Operator)
}

func compareValues(l, r any, op string) (bool, error) {
	switch lv := l.(type) {
	case int:
		rv, ok := r.(int)
		if !ok {
			if op == "=" {
				return false, nil
			}
			return false, fmt.Errorf("pattern: type mismatch in comparison: %T vs %T", l, r)
		}
		return compareOrdered(lv, rv, op)
	case string:
		rv, ok := r.(string)
		if !ok {
			if op == "=" {
				return false, nil
			}
			return false, fmt.Errorf("pattern: type mismatch in comparison: %T vs %T", l, r)
		}
		return compareOrdered(lv, rv, op)
	default:
		return false, fmt.Errorf("pattern: unsupported comparison operand type %T", l)
	}
}

func compareOrdered[T int | string](l, r T, op string) (bool, error) {
	switch op {
	case "=":
		return l == r, nil
	case "<":
		return l < r, nil
	case ">":
		return l > r, nil
	case "<=":
		return l <= r, nil
	case ">=":
		return l >= r, nil
	default:
		return false, fmt.Errorf("pattern: unknown relational operator %q", op)
	}
}

func (e *RelationalExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Operator, e.Right)
}

// RegexExpr evaluates SPARQL's REGEX(expr, pattern).
type RegexExpr struct {
	Inner   Expression
	Pattern string
	re      *regexp.Regexp
}

func NewRegexExpr(inner Expression, pattern string) (*RegexExpr, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("pattern: invalid regex %q: %w", pattern, err)
	}
	return &RegexExpr{Inner: inner, Pattern: pattern, re: re}, nil
}

func (e *RegexExpr) Variables() map[string]struct{} { return e.Inner.Variables() }

func (e *RegexExpr) Eval(mu Mapping, db TermResolver) (any, error) {
	v, err := e.Inner.Eval(mu, db)
	if err != nil {
		return nil, err
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("pattern: REGEX applied to non-string %v", v)
	}
	return e.re.MatchString(s), nil
}

func (e *RegexExpr) String() string {
	return fmt.Sprintf("REGEX(%s, %q)", e.Inner, e.Pattern)
}

// OrExpr is a disjunction of sub-expressions, short-circuiting on the first
// true.
type OrExpr struct {
	Operands []Expression
}

func NewOrExpr(operands ...Expression) *OrExpr { return &OrExpr{Operands: operands} }

func (e *OrExpr) Variables() map[string]struct{} {
	out := map[string]struct{}{}
	for _, op := range e.Operands {
		out = union(out, op.Variables())
	}
	return out
}

func (e *OrExpr) Eval(mu Mapping, db TermResolver) (any, error) {
	for _, op := range e.Operands {
		v, err := op.Eval(mu, db)
		if err != nil {
			return nil, err
		}
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("pattern: OR operand evaluated to non-boolean %v", v)
		}
		if b {
			return true, nil
		}
	}
	return false, nil
}

func (e *OrExpr) String() string {
	parts := make([]string, len(e.Operands))
	for i, op := range e.Operands {
		parts[i] = op.String()
	}
	return "(" + strings.Join(parts, " || ") + ")"
}

// AndExpr is a conjunction of sub-expressions, short-circuiting on the
// first false.
type AndExpr struct {
	Operands []Expression
}

func NewAndExpr(operands ...Expression) *AndExpr { return &AndExpr{Operands: operands} }

func (e *AndExpr) Variables() map[string]struct{} {
	out := map[string]struct{}{}
	for _, op := range e.Operands {
		out = union(out, op.Variables())
	}
	return out
}

func (e *AndExpr) Eval(mu Mapping, db TermResolver) (any, error) {
	for _, op := range e.Operands {
		v, err := op.Eval(mu, db)
		if err != nil {
			return nil, err
		}
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("pattern: AND operand evaluated to non-boolean %v", v)
		}
		if !b {
			return false, nil
		}
	}
	return true, nil
}

func (e *AndExpr) String() string {
	parts := make([]string, len(e.Operands))
	for i, op := range e.Operands {
		parts[i] = op.String()
	}
	return "(" + strings.Join(parts, " && ") + ")"
}

// EqExpr compares two raw terms (variable names or constants) for typed
// equality, resolving through the database when one side is a bound id and
// the other a constant term. It is used for the post-filters star
// relaxation introduces: "the relaxed endpoint equals the original bound
// term".
type EqExpr struct {
	Left, Right string
}

func NewEqExpr(left, right string) *EqExpr { return &EqExpr{Left: left, Right: right} }

func (e *EqExpr) Variables() map[string]struct{} {
	vars := map[string]struct{}{}
	if strings.HasPrefix(e.Left, "?") {
		vars[e.Left] = struct{}{}
	}
	if strings.HasPrefix(e.Right, "?") {
		vars[e.Right] = struct{}{}
	}
	return vars
}

func (e *EqExpr) Eval(mu Mapping, db TermResolver) (any, error) {
	left, err := e.resolveSide(e.Left, e.Right, mu, db)
	if err != nil {
		return nil, err
	}
	right, err := e.resolveSide(e.Right, e.Left, mu, db)
	if err != nil {
		return nil, err
	}
	return left == right, nil
}

// resolveSide resolves one side of the comparison to a comparable value,
// matching the id-space of the other side when the other side is bound to
// a numeric id and this side is a constant term.
func (e *EqExpr) resolveSide(side, other string, mu Mapping, db TermResolver) (any, error) {
	if strings.HasPrefix(side, "?") {
		if v, ok := mu[side]; ok {
			return v, nil
		}
		return side, nil
	}
	// side is a constant. If the other side is bound to a numeric id,
	// resolve this constant to its id too so the comparison is apples to
	// apples; otherwise compare as plain strings.
	if strings.HasPrefix(other, "?") {
		if v, ok := mu[other]; ok {
			if _, isID := v.(int64); isID {
				id, err := db.GetTermID(side)
				if err != nil {
					return nil, err
				}
				return id, nil
			}
		}
	}
	return side, nil
}

func (e *EqExpr) String() string {
	return fmt.Sprintf("(%s = %s)", formatTerm(e.Left), formatTerm(e.Right))
}

func union(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

// Filter is a boolean predicate attached to a join order chain. Unlike
// TriplePattern, its id carries no content meaning beyond uniqueness: two
// filters built from identical expressions are still distinct patterns,
// matching how a query's FILTER clauses are parsed in source order.
type Filter struct {
	id        ID
	Expr      Expression
	variables map[string]struct{}
}

func NewFilter(expr Expression) *Filter {
	return &Filter{id: freshID(), Expr: expr}
}

func (f *Filter) ID() ID         { return f.id }
func (f *Filter) IsTriple() bool { return false }
func (f *Filter) IsFilter() bool { return true }

func (f *Filter) Variables() map[string]struct{} {
	if f.variables == nil {
		f.variables = f.Expr.Variables()
	}
	return f.variables
}

// Eval evaluates the filter's expression and coerces the result to bool.
func (f *Filter) Eval(mu Mapping, db TermResolver) (bool, error) {
	v, err := f.Expr.Eval(mu, db)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("pattern: filter did not evaluate to boolean: %v", v)
	}
	return b, nil
}

// Stringify renders the filter as a SPARQL FILTER(...) clause. The target
// parameter exists for interface symmetry with TriplePattern.Stringify;
// filter syntax does not vary across engines here.
func (f *Filter) Stringify(target string) string {
	return f.String()
}

func (f *Filter) String() string {
	return fmt.Sprintf("FILTER (%s)", f.Expr)
}
