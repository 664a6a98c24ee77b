package adapter

import (
	"errors"
	"math/rand"

	"github.com/aleksaelezovic/joinopt/pkg/store"
)

// ErrPSOUnsupportedWithIDs is returned by IDSample when both the subject
// and object headers are unbound, mirroring the reference
// create_id_iterator's "PSO index not supported with IDs": id-space
// lookups only ever go through SPO, so a predicate-only id lookup (the one
// case that would need a PSO-by-id index) has nothing to query.
var ErrPSOUnsupportedWithIDs = errors.New("adapter: PSO index lookup is not supported in id space")

// match performs a single fresh scan (see the package doc on why no
// iterator/cursor is ever cached across calls) over the index selected for
// (hs, ho), counting every triple whose bound positions agree with
// hs/hp/ho. When want is >= 0, the want'th (0-indexed) match encountered is
// also captured and returned.
func (a *Adapter) match(hs, hp, ho string, want int64) (count int64, matched *[3]store.EncodedTerm, order [3]int, err error) {
	var table store.Table
	table, order = selectIndex(hs, ho)
	prefix, remaining, err := a.buildPrefix(order, [3]string{hs, hp, ho})
	if err != nil {
		return 0, nil, order, err
	}
	start, end := scanRange(prefix)

	txn, err := a.storage.Begin(false)
	if err != nil {
		return 0, nil, order, err
	}
	defer func() { _ = txn.Rollback() }() // #nosec G104 - read-only txn

	it, err := txn.Scan(table, start, end)
	if err != nil {
		return 0, nil, order, err
	}
	defer func() { _ = it.Close() }()

	for it.Next() {
		segments, splitErr := splitKey(it.Key())
		if splitErr != nil {
			return 0, nil, order, splitErr
		}
		if !a.matchesRemaining(txn, segments, order, remaining) {
			continue
		}
		if want >= 0 && count == want {
			m := segments
			matched = &m
		}
		count++
	}
	return count, matched, order, nil
}

// Cardinality returns how many stored triples match the given header
// positions ("" meaning unbound).
func (a *Adapter) Cardinality(hs, hp, ho string) (int64, error) {
	count, _, _, err := a.match(hs, hp, ho, -1)
	return count, err
}

// Sample draws one uniformly random matching triple in string space and
// returns the bindings it contributes for sVar/oVar (whichever of the
// subject/object positions is unbound), alongside the match's total
// cardinality. sVar and oVar are the pattern's own subject/object fields,
// used as the resulting mapping's keys exactly as the pattern wrote them.
func (a *Adapter) Sample(sVar, oVar, hs, hp, ho string, rng *rand.Rand) (map[string]string, int64, error) {
	count, _, order, err := a.match(hs, hp, ho, -1)
	if err != nil || count == 0 {
		return map[string]string{}, count, err
	}

	want := int64(0)
	if count > 1 {
		want = int64(rng.Int63n(count))
	}
	_, matched, _, err := a.match(hs, hp, ho, want)
	if err != nil || matched == nil {
		return map[string]string{}, count, err
	}
	bySPO := reorderBySPO(*matched, order)

	txn, err := a.storage.Begin(false)
	if err != nil {
		return nil, count, err
	}
	defer func() { _ = txn.Rollback() }()

	mapping := map[string]string{}
	// Ported verbatim from the reference sample(): when both the subject
	// and object headers are unbound (a predicate-only PSO lookup), the
	// subject variable is bound to the matched predicate rather than the
	// matched subject. Unusual, but not one of the three documented
	// reference bugs — left exactly as the original has it.
	if hs == "" {
		var value string
		if ho == "" {
			value, err = a.decodeWireTerm(txn, bySPO[1])
		} else {
			value, err = a.decodeWireTerm(txn, bySPO[0])
		}
		if err != nil {
			return nil, count, err
		}
		mapping[sVar] = value
	}
	if ho == "" {
		value, err := a.decodeWireTerm(txn, bySPO[2])
		if err != nil {
			return nil, count, err
		}
		mapping[oVar] = value
	}
	return mapping, count, nil
}

// IDSample is the id-space counterpart of Sample, used when a walk is
// already working with ids rather than term strings. Headers of 0 mean
// unbound, matching TriplePattern's to_id_tuple convention.
func (a *Adapter) IDSample(sVar, oVar string, hs, hp, ho int64, rng *rand.Rand) (map[string]int64, int64, error) {
	if hs == 0 && ho == 0 {
		return nil, 0, ErrPSOUnsupportedWithIDs
	}

	hsTerm, hpTerm, hoTerm := "", "", ""
	if hs != 0 {
		s, err := a.GetSubject(hs)
		if err != nil {
			return nil, 0, err
		}
		hsTerm = s
	}
	if hp != 0 {
		p, err := a.GetPredicate(hp)
		if err != nil {
			return nil, 0, err
		}
		hpTerm = p
	}
	if ho != 0 {
		o, err := a.GetObject(ho)
		if err != nil {
			return nil, 0, err
		}
		hoTerm = o
	}

	count, _, order, err := a.match(hsTerm, hpTerm, hoTerm, -1)
	if err != nil || count == 0 {
		return map[string]int64{}, count, err
	}
	want := int64(0)
	if count > 1 {
		want = int64(rng.Int63n(count))
	}
	_, matched, _, err := a.match(hsTerm, hpTerm, hoTerm, want)
	if err != nil || matched == nil {
		return map[string]int64{}, count, err
	}
	bySPO := reorderBySPO(*matched, order)

	txn, err := a.storage.Begin(false)
	if err != nil {
		return nil, count, err
	}
	defer func() { _ = txn.Rollback() }()

	mapping := map[string]int64{}
	if hs == 0 {
		value, err := a.decodeWireTerm(txn, bySPO[0])
		if err != nil {
			return nil, count, err
		}
		mapping[sVar] = termID(value)
	}
	if ho == 0 {
		value, err := a.decodeWireTerm(txn, bySPO[2])
		if err != nil {
			return nil, count, err
		}
		mapping[oVar] = termID(value)
	}
	return mapping, count, nil
}
