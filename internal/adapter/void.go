package adapter

import (
	"encoding/binary"

	"github.com/aleksaelezovic/joinopt/pkg/store"
)

// voidKey returns the TableVoID key for predicate: the adapter's own
// 8-byte term id, not the 128-bit storage hash — VoID statistics are
// looked up by predicate alone, never joined against the SPO/PSO indexes,
// so there's no reason to pay for collision resistance.
func voidKey(predicate string) []byte {
	return idKey(termID(predicate))
}

func encodeVoidCounts(distinctSubjects, distinctObjects int64) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], uint64(distinctSubjects))  // #nosec G115 - counts are never negative
	binary.BigEndian.PutUint64(buf[8:16], uint64(distinctObjects)) // #nosec G115 - counts are never negative
	return buf
}

func decodeVoidCounts(buf []byte) (distinctSubjects, distinctObjects int64) {
	return int64(binary.BigEndian.Uint64(buf[0:8])), int64(binary.BigEndian.Uint64(buf[8:16])) // #nosec G115 - round-trips encodeVoidCounts
}

// DistinctSubjects and DistinctObjects answer the VoID partition stats the
// closed-form estimator reads. Faithfully preserving the reference's third
// documented quirk: a predicate with no matching VoID partition returns 0,
// not an error. Handling that 0 safely (a zero distinct-subjects count
// would otherwise divide-by-zero when used as cardinality(p)/distinctSubjects(p))
// is the caller's responsibility, not this accessor's.
func (a *Adapter) DistinctSubjects(predicate string) (int64, error) {
	subjects, _, ok, err := a.voidCounts(predicate)
	if err != nil || !ok {
		return 0, err
	}
	return subjects, nil
}

func (a *Adapter) DistinctObjects(predicate string) (int64, error) {
	_, objects, ok, err := a.voidCounts(predicate)
	if err != nil || !ok {
		return 0, err
	}
	return objects, nil
}

func (a *Adapter) voidCounts(predicate string) (distinctSubjects, distinctObjects int64, ok bool, err error) {
	txn, err := a.storage.Begin(false)
	if err != nil {
		return 0, 0, false, err
	}
	defer func() { _ = txn.Rollback() }() // #nosec G104 - read-only txn

	value, err := txn.Get(store.TableVoID, voidKey(predicate))
	if err != nil {
		if err == store.ErrNotFound {
			return 0, 0, false, nil
		}
		return 0, 0, false, err
	}
	s, o := decodeVoidCounts(value)
	return s, o, true, nil
}

// RebuildVoIDStatistics recomputes per-predicate distinct-subject and
// distinct-object counts from the current SPO contents and writes them to
// TableVoID. A real deployment ships these precomputed in a .void.hdt
// file; this is the synthetic-dataset equivalent, meant to run once after
// a bulk load rather than incrementally per insert.
func (a *Adapter) RebuildVoIDStatistics() error {
	txn, err := a.storage.Begin(false)
	if err != nil {
		return err
	}
	defer func() { _ = txn.Rollback() }() // #nosec G104 - read-only txn

	it, err := txn.Scan(store.TableSPO, nil, nil)
	if err != nil {
		return err
	}
	defer func() { _ = it.Close() }()

	type partition struct {
		subjects map[string]struct{}
		objects  map[string]struct{}
	}
	partitions := map[string]*partition{}

	for it.Next() {
		segments, err := splitKey(it.Key())
		if err != nil {
			return err
		}
		subject, err := a.decodeWireTerm(txn, segments[0])
		if err != nil {
			return err
		}
		predicate, err := a.decodeWireTerm(txn, segments[1])
		if err != nil {
			return err
		}
		object, err := a.decodeWireTerm(txn, segments[2])
		if err != nil {
			return err
		}

		p, ok := partitions[predicate]
		if !ok {
			p = &partition{subjects: map[string]struct{}{}, objects: map[string]struct{}{}}
			partitions[predicate] = p
		}
		p.subjects[subject] = struct{}{}
		p.objects[object] = struct{}{}
	}

	writeTxn, err := a.storage.Begin(true)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = writeTxn.Rollback() // #nosec G104 - rollback after an already-reported error
		}
	}()

	for predicate, p := range partitions {
		counts := encodeVoidCounts(int64(len(p.subjects)), int64(len(p.objects)))
		if err := writeTxn.Set(store.TableVoID, voidKey(predicate), counts); err != nil {
			return err
		}
	}
	if err := writeTxn.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
