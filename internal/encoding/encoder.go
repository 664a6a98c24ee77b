package encoding

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aleksaelezovic/joinopt/pkg/rdf"
	"github.com/aleksaelezovic/joinopt/pkg/store"
	"github.com/zeebo/xxh3"
)

const (
	// Maximum size for inline strings (16 bytes of UTF-8)
	MaxInlineStringSize = 16

	// Encoded term size (type byte + 16 bytes for 128-bit hash or inline data)
	EncodedTermSize = 17
)

// TermEncoder handles encoding of RDF terms (TermDecoder does the reverse)
type TermEncoder struct{}

func NewTermEncoder() *TermEncoder {
	return &TermEncoder{}
}

// Hash128 computes a 128-bit xxhash3 hash of the input string. This is the
// identity used for SPO/PSO keys and, independently, for triple-pattern ids
// in the planner (see pattern.Hash128).
func (e *TermEncoder) Hash128(s string) [16]byte {
	hash := xxh3.Hash128([]byte(s))
	var result [16]byte
	binary.BigEndian.PutUint64(result[0:8], hash.Hi)
	binary.BigEndian.PutUint64(result[8:16], hash.Lo)
	return result
}

// EncodeTerm encodes an RDF term into a fixed-size byte array.
// Returns the encoded term and, when the value must be recoverable by
// lookup rather than by reversing the encoding, a string to store in the
// id2str table.
func (e *TermEncoder) EncodeTerm(term rdf.Term) (store.EncodedTerm, *string, error) {
	var encoded store.EncodedTerm

	switch t := term.(type) {
	case *rdf.NamedNode:
		return e.encodeNamedNode(t)
	case *rdf.BlankNode:
		return e.encodeBlankNode(t)
	case *rdf.Literal:
		return e.encodeLiteral(t)
	case *rdf.DefaultGraph:
		return e.encodeDefaultGraph()
	default:
		return encoded, nil, fmt.Errorf("unknown term type: %T", term)
	}
}

func (e *TermEncoder) encodeNamedNode(node *rdf.NamedNode) (store.EncodedTerm, *string, error) {
	var encoded store.EncodedTerm
	encoded[0] = byte(rdf.TermTypeNamedNode)

	hash := e.Hash128(node.IRI)
	copy(encoded[1:], hash[:])

	return encoded, &node.IRI, nil
}

func (e *TermEncoder) encodeBlankNode(node *rdf.BlankNode) (store.EncodedTerm, *string, error) {
	var encoded store.EncodedTerm
	encoded[0] = byte(rdf.TermTypeBlankNode)

	if num, err := strconv.ParseUint(node.ID, 10, 64); err == nil {
		binary.BigEndian.PutUint64(encoded[1:9], num)
		for i := 9; i < EncodedTermSize; i++ {
			encoded[i] = 0
		}
		return encoded, nil, nil
	}

	hash := e.Hash128(node.ID)
	copy(encoded[1:], hash[:])

	return encoded, &node.ID, nil
}

func (e *TermEncoder) encodeLiteral(lit *rdf.Literal) (store.EncodedTerm, *string, error) {
	if lit.Datatype != nil {
		switch lit.Datatype.IRI {
		case rdf.XSDInteger.IRI:
			return e.encodeIntegerLiteral(lit)
		case rdf.XSDDecimal.IRI:
			return e.encodeDecimalLiteral(lit)
		case rdf.XSDDouble.IRI:
			return e.encodeDoubleLiteral(lit)
		case rdf.XSDBoolean.IRI:
			return e.encodeBooleanLiteral(lit)
		case rdf.XSDDateTime.IRI:
			return e.encodeDateTimeLiteral(lit)
		case rdf.XSDDate.IRI:
			return e.encodeDateLiteral(lit)
		default:
			// Any other datatype (custom or unrecognized) falls back to the
			// generic "value^^datatype" wire form.
			return e.encodeTypedLiteral(lit)
		}
	}

	if lit.Language != "" {
		return e.encodeLangStringLiteral(lit)
	}

	return e.encodeStringLiteral(lit)
}

func (e *TermEncoder) encodeStringLiteral(lit *rdf.Literal) (store.EncodedTerm, *string, error) {
	var encoded store.EncodedTerm
	encoded[0] = byte(rdf.TermTypeStringLiteral)

	if len(lit.Value) <= MaxInlineStringSize {
		copy(encoded[1:], []byte(lit.Value))
		for i := 1 + len(lit.Value); i < EncodedTermSize; i++ {
			encoded[i] = 0
		}
		return encoded, nil, nil
	}

	hash := e.Hash128(lit.Value)
	copy(encoded[1:], hash[:])

	return encoded, &lit.Value, nil
}

func (e *TermEncoder) encodeLangStringLiteral(lit *rdf.Literal) (store.EncodedTerm, *string, error) {
	var encoded store.EncodedTerm
	encoded[0] = byte(rdf.TermTypeLangStringLiteral)

	combined := lit.Value + "@" + lit.Language
	hash := e.Hash128(combined)
	copy(encoded[1:], hash[:])

	return encoded, &combined, nil
}

func (e *TermEncoder) encodeTypedLiteral(lit *rdf.Literal) (store.EncodedTerm, *string, error) {
	var encoded store.EncodedTerm
	encoded[0] = byte(rdf.TermTypeTypedLiteral)

	// "value"^^<type1> and "value"^^<type2> must hash differently.
	combined := lit.Value + "^^" + lit.Datatype.IRI
	hash := e.Hash128(combined)
	copy(encoded[1:], hash[:])

	return encoded, &combined, nil
}

func (e *TermEncoder) encodeIntegerLiteral(lit *rdf.Literal) (store.EncodedTerm, *string, error) {
	var encoded store.EncodedTerm
	encoded[0] = byte(rdf.TermTypeIntegerLiteral)

	value, err := strconv.ParseInt(lit.Value, 10, 64)
	if err != nil {
		return encoded, nil, fmt.Errorf("invalid integer literal: %w", err)
	}

	binary.BigEndian.PutUint64(encoded[1:9], uint64(value)) // #nosec G115 - intentional bit-pattern conversion for binary encoding
	for i := 9; i < EncodedTermSize; i++ {
		encoded[i] = 0
	}

	return encoded, nil, nil
}

func (e *TermEncoder) encodeDecimalLiteral(lit *rdf.Literal) (store.EncodedTerm, *string, error) {
	var encoded store.EncodedTerm
	encoded[0] = byte(rdf.TermTypeDecimalLiteral)

	value, err := strconv.ParseFloat(lit.Value, 64)
	if err != nil {
		return encoded, nil, fmt.Errorf("invalid decimal literal: %w", err)
	}

	binary.BigEndian.PutUint64(encoded[1:9], math.Float64bits(value))
	for i := 9; i < EncodedTermSize; i++ {
		encoded[i] = 0
	}

	return encoded, nil, nil
}

func (e *TermEncoder) encodeDoubleLiteral(lit *rdf.Literal) (store.EncodedTerm, *string, error) {
	var encoded store.EncodedTerm
	encoded[0] = byte(rdf.TermTypeDoubleLiteral)

	value, err := strconv.ParseFloat(lit.Value, 64)
	if err != nil {
		return encoded, nil, fmt.Errorf("invalid double literal: %w", err)
	}

	binary.BigEndian.PutUint64(encoded[1:9], math.Float64bits(value))
	for i := 9; i < EncodedTermSize; i++ {
		encoded[i] = 0
	}

	return encoded, nil, nil
}

func (e *TermEncoder) encodeBooleanLiteral(lit *rdf.Literal) (store.EncodedTerm, *string, error) {
	var encoded store.EncodedTerm
	encoded[0] = byte(rdf.TermTypeBooleanLiteral)

	value, err := strconv.ParseBool(lit.Value)
	if err != nil {
		return encoded, nil, fmt.Errorf("invalid boolean literal: %w", err)
	}

	if value {
		encoded[1] = 1
	} else {
		encoded[1] = 0
	}
	for i := 2; i < EncodedTermSize; i++ {
		encoded[i] = 0
	}

	return encoded, nil, nil
}

func (e *TermEncoder) encodeDateTimeLiteral(lit *rdf.Literal) (store.EncodedTerm, *string, error) {
	var encoded store.EncodedTerm
	encoded[0] = byte(rdf.TermTypeDateTimeLiteral)

	trimmedValue := strings.TrimSpace(lit.Value)
	t, err := time.Parse(time.RFC3339, trimmedValue)
	if err != nil {
		t, err = time.Parse("2006-01-02T15:04:05", trimmedValue)
		if err != nil {
			return encoded, nil, fmt.Errorf("invalid datetime literal: %w", err)
		}
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	}

	nanos := t.UnixNano()
	binary.BigEndian.PutUint64(encoded[1:9], uint64(nanos)) // #nosec G115 - intentional bit-pattern conversion for timestamp encoding
	for i := 9; i < EncodedTermSize; i++ {
		encoded[i] = 0
	}

	return encoded, nil, nil
}

func (e *TermEncoder) encodeDateLiteral(lit *rdf.Literal) (store.EncodedTerm, *string, error) {
	var encoded store.EncodedTerm
	encoded[0] = byte(rdf.TermTypeDateLiteral)

	t, err := time.Parse("2006-01-02", strings.TrimSpace(lit.Value))
	if err != nil {
		return encoded, nil, fmt.Errorf("invalid date literal: %w", err)
	}

	days := t.Unix() / 86400
	binary.BigEndian.PutUint64(encoded[1:9], uint64(days)) // #nosec G115 - intentional bit-pattern conversion for date encoding
	for i := 9; i < EncodedTermSize; i++ {
		encoded[i] = 0
	}

	return encoded, nil, nil
}

func (e *TermEncoder) encodeDefaultGraph() (store.EncodedTerm, *string, error) {
	var encoded store.EncodedTerm
	encoded[0] = byte(rdf.TermTypeDefaultGraph)

	for i := 1; i < EncodedTermSize; i++ {
		encoded[i] = 0
	}

	return encoded, nil, nil
}

// EncodeKey concatenates encoded terms into a big-endian, lexicographically
// sortable key for the SPO/PSO tables.
func (e *TermEncoder) EncodeKey(terms ...store.EncodedTerm) []byte {
	result := make([]byte, 0, len(terms)*EncodedTermSize)
	for _, term := range terms {
		result = append(result, term[:]...)
	}
	return result
}

// GetTermType extracts the type from an encoded term
func GetTermType(encoded store.EncodedTerm) rdf.TermType {
	return rdf.TermType(encoded[0])
}
