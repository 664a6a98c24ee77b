// Package pattern defines the graph-pattern building blocks a query plan is
// built from: triple patterns (with optional property-path quantifiers),
// filter expressions, and the VALUES-style multisets that get folded into
// filters at parse time.
package pattern

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/zeebo/xxh3"
)

// ID is a 128-bit identity, stable across runs for anything derived purely
// from its own content (triple patterns), and process-unique otherwise
// (filters). It is comparable and usable as a map key, and
// XOR-combines byte-wise so that join-order hash keys can be built by
// folding a chain of pattern ids together regardless of the order visited.
type ID [16]byte

// Xor returns the byte-wise XOR of id and other.
func (id ID) Xor(other ID) ID {
	var out ID
	for i := range out {
		out[i] = id[i] ^ other[i]
	}
	return out
}

// IsZero reports whether id is the zero identity, used as the "no pattern
// yet" sentinel at the root of a join order.
func (id ID) IsZero() bool {
	return id == ID{}
}

// Hash128 computes the 128-bit xxh3 hash of s as an ID. Used to derive a
// triple pattern's identity from its own textual content, independently of
// internal/encoding's term hashing (a different hash domain with a
// different lifetime).
func Hash128(s string) ID {
	h := xxh3.Hash128([]byte(s))
	var out ID
	binary.BigEndian.PutUint64(out[0:8], h.Hi)
	binary.BigEndian.PutUint64(out[8:16], h.Lo)
	return out
}

var idCounter atomic.Uint64

// freshID returns a process-unique id for patterns with no stable content
// identity of their own (filters). A counter is enough: these
// are created once per query parse, in deterministic order, and only ever
// compared by identity within the lifetime of a single query.
func freshID() ID {
	n := idCounter.Add(1)
	var out ID
	binary.BigEndian.PutUint64(out[8:16], n)
	return out
}

// Pattern is the common interface shared by triple patterns and filters:
// the two kinds of node a JoinOrder chain can carry.
type Pattern interface {
	ID() ID
	IsTriple() bool
	IsFilter() bool
	Variables() map[string]struct{}
	Stringify(target string) string
	String() string
}
