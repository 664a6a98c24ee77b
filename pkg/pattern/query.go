package pattern

import "strings"

// Query is a parsed basic graph pattern query: triple patterns (plain or
// path atoms) plus the filters attached to it, VALUES multisets already
// folded into filters at parse time.
type Query struct {
	Name     string
	Patterns []*TriplePattern
	Filters  []*Filter
}

// Size returns the number of triple pattern atoms in the query, which is
// what the search algorithms treat as the query's size budget.
func (q *Query) Size() int { return len(q.Patterns) }

// Stringify renders the query as a SPARQL SELECT DISTINCT * over its
// patterns and filters, in source order.
func (q *Query) Stringify(target string) string {
	var b strings.Builder
	b.WriteString("SELECT DISTINCT * WHERE {\n")
	for _, p := range q.Patterns {
		b.WriteString("  ")
		b.WriteString(p.Stringify(target))
		b.WriteString(" .\n")
	}
	for _, f := range q.Filters {
		b.WriteString("  ")
		b.WriteString(f.Stringify(target))
		b.WriteString(" .\n")
	}
	b.WriteString("}")
	return b.String()
}

func (q *Query) String() string {
	return q.Stringify("")
}
