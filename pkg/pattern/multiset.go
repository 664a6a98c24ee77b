package pattern

// Multiset is a SPARQL VALUES block: a fixed list of variable-binding rows.
// It has no place of its own in a join order chain — ToFilter converts it
// into the equivalent disjunctive filter at parse time, and only the
// filter is ever attached to a pattern chain.
type Multiset struct {
	Variables []string
	Rows      []map[string]string
}

func NewMultiset(variables []string, rows []map[string]string) *Multiset {
	return &Multiset{Variables: variables, Rows: rows}
}

// ToFilter converts VALUES (?a ?b) { (v1 w1) (v2 w2) ... } into
// FILTER(( ?a = v1 && ?b = w1 ) || ( ?a = v2 && ?b = w2 ) || ...), collapsing
// single-variable and single-row cases to their simpler equivalent forms.
func (m *Multiset) ToFilter() *Filter {
	clauses := make([]Expression, 0, len(m.Rows))
	for _, row := range m.Rows {
		conjuncts := make([]Expression, 0, len(m.Variables))
		for _, v := range m.Variables {
			conjuncts = append(conjuncts, NewRelationalExpr(NewTermExpr(v), "=", NewTermExpr(row[v])))
		}
		clauses = append(clauses, conjunction(conjuncts))
	}
	return NewFilter(disjunction(clauses))
}

func conjunction(operands []Expression) Expression {
	if len(operands) == 1 {
		return operands[0]
	}
	return NewAndExpr(operands...)
}

func disjunction(operands []Expression) Expression {
	if len(operands) == 1 {
		return operands[0]
	}
	return NewOrExpr(operands...)
}
