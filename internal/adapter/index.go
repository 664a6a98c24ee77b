package adapter

import (
	"fmt"

	"github.com/aleksaelezovic/joinopt/internal/encoding"
	"github.com/aleksaelezovic/joinopt/pkg/store"
)

// selectIndex mirrors the reference create_iterator's choice between the
// subject-major and predicate-major HDT files: a predicate-bound lookup
// with both subject and object unbound (the common property-path case)
// goes to the PSO table; everything else goes to SPO, since a real
// deployment ships only those two index files (plus VoID, which never
// backs a triple lookup).
func selectIndex(hs, ho string) (table store.Table, order [3]int) {
	if hs == "" && ho == "" {
		return store.TablePSO, [3]int{1, 0, 2}
	}
	return store.TableSPO, [3]int{0, 1, 2}
}

// scanRange returns the [start, end) range containing exactly the keys
// beginning with prefix. An empty prefix scans the whole table.
func scanRange(prefix []byte) (start, end []byte) {
	if len(prefix) == 0 {
		return nil, nil
	}
	end = make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return prefix, end[:i+1]
		}
	}
	// prefix is all 0xFF bytes: no finite successor key exists.
	return prefix, nil
}

// buildPrefix encodes the leading contiguous run of bound positions (in
// the chosen index's key order) into a scan prefix. Once a position is
// unbound it stops: subsequent bound positions, if any, cannot narrow the
// scan range and are instead returned in remaining for a post-filter
// during the scan (e.g. predicate+object bound but subject free — SPO has
// no index that starts with predicate, so every subject has to be walked).
func (a *Adapter) buildPrefix(order [3]int, values [3]string) (prefix []byte, remaining map[int]string, err error) {
	remaining = map[int]string{}
	stopped := false
	for _, pos := range order {
		if !stopped && values[pos] != "" {
			term, perr := ParseTermString(values[pos])
			if perr != nil {
				return nil, nil, perr
			}
			encoded, _, eerr := a.encoder.EncodeTerm(term)
			if eerr != nil {
				return nil, nil, eerr
			}
			prefix = append(prefix, encoded[:]...)
			continue
		}
		stopped = true
		if values[pos] != "" {
			remaining[pos] = values[pos]
		}
	}
	return prefix, remaining, nil
}

func splitKey(key []byte) ([3]store.EncodedTerm, error) {
	var result [3]store.EncodedTerm
	if len(key) != 3*encoding.EncodedTermSize {
		return result, fmt.Errorf("adapter: unexpected key length %d", len(key))
	}
	for i := 0; i < 3; i++ {
		copy(result[i][:], key[i*encoding.EncodedTermSize:(i+1)*encoding.EncodedTermSize])
	}
	return result, nil
}

// reorderBySPO maps key-slot-ordered segments back to subject/predicate/
// object order regardless of which index produced them.
func reorderBySPO(segments [3]store.EncodedTerm, order [3]int) [3]store.EncodedTerm {
	var bySPO [3]store.EncodedTerm
	for slot, pos := range order {
		bySPO[pos] = segments[slot]
	}
	return bySPO
}

func (a *Adapter) matchesRemaining(txn store.Transaction, segments [3]store.EncodedTerm, order [3]int, remaining map[int]string) bool {
	if len(remaining) == 0 {
		return true
	}
	bySPO := reorderBySPO(segments, order)
	for pos, want := range remaining {
		got, err := a.decodeWireTerm(txn, bySPO[pos])
		if err != nil || got != want {
			return false
		}
	}
	return true
}

// decodeWireTerm decodes an encoded term segment back into the canonical
// wire-string form, falling back to the id2str table (keyed exactly the
// way registerEncoded writes it, encoded[1:]) when the encoding can't be
// reversed from its bytes alone.
func (a *Adapter) decodeWireTerm(txn store.Transaction, encoded store.EncodedTerm) (string, error) {
	term, err := a.decoder.DecodeTerm(encoded, nil)
	if err != nil {
		raw, getErr := txn.Get(store.TableID2Str, encoded[1:])
		if getErr != nil {
			return "", getErr
		}
		str := string(raw)
		term, err = a.decoder.DecodeTerm(encoded, &str)
		if err != nil {
			return "", err
		}
	}
	return FormatTerm(term)
}
