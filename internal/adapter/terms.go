package adapter

import (
	"fmt"
	"strings"

	"github.com/aleksaelezovic/joinopt/pkg/rdf"
)

// ParseTermString parses the bare wire form a query or a stored dataset
// uses for a bound term — a plain IRI ("http://ex.org/alice"), a quoted
// literal ("42", optionally suffixed with @lang or ^^<datatype-iri>), or a
// blank node ("_:b1") — into an rdf.Term. It never receives a variable
// (those are resolved through a binding before reaching here).
func ParseTermString(s string) (rdf.Term, error) {
	switch {
	case strings.HasPrefix(s, "_:"):
		return rdf.NewBlankNode(s[2:]), nil
	case strings.HasPrefix(s, `"`):
		end := strings.LastIndex(s, `"`)
		if end <= 0 {
			return nil, fmt.Errorf("adapter: malformed literal %q", s)
		}
		value := s[1:end]
		rest := s[end+1:]
		switch {
		case strings.HasPrefix(rest, "@"):
			return rdf.NewLiteralWithLanguage(value, rest[1:]), nil
		case strings.HasPrefix(rest, "^^"):
			iri := strings.TrimSuffix(strings.TrimPrefix(rest[2:], "<"), ">")
			return rdf.NewLiteralWithDatatype(value, rdf.NewNamedNode(iri)), nil
		default:
			return rdf.NewLiteral(value), nil
		}
	default:
		iri := strings.TrimSuffix(strings.TrimPrefix(s, "<"), ">")
		return rdf.NewNamedNode(iri), nil
	}
}

// FormatTerm renders an rdf.Term back into the bare wire form
// ParseTermString accepts, the convention pattern.TriplePattern and the
// estimator's variable bindings use throughout.
func FormatTerm(term rdf.Term) (string, error) {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return t.IRI, nil
	case *rdf.BlankNode:
		return "_:" + t.ID, nil
	case *rdf.Literal:
		switch {
		case t.Language != "":
			return fmt.Sprintf(`"%s"@%s`, t.Value, t.Language), nil
		case t.Datatype != nil && t.Datatype.IRI != rdf.XSDString.IRI:
			return fmt.Sprintf(`"%s"^^<%s>`, t.Value, t.Datatype.IRI), nil
		default:
			return fmt.Sprintf(`"%s"`, t.Value), nil
		}
	default:
		return "", fmt.Errorf("adapter: unsupported term type %T", term)
	}
}
