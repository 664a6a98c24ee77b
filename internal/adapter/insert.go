package adapter

import (
	"github.com/aleksaelezovic/joinopt/pkg/rdf"
	"github.com/aleksaelezovic/joinopt/pkg/store"
)

// InsertTriple stores one triple into both the SPO and PSO indexes and
// registers every term it contains (by both the 128-bit storage hash and
// the adapter's own 64-bit query-facing id) in the id2str table, so later
// lookups and decodes can resolve either identity back to a wire-string.
// There is no graph dimension: a join-order optimizer for a single
// default-graph dataset has no use for one, unlike the quad store it is
// adapted from.
func (a *Adapter) InsertTriple(subject, predicate, object string) error {
	s, err := ParseTermString(subject)
	if err != nil {
		return err
	}
	p, err := ParseTermString(predicate)
	if err != nil {
		return err
	}
	o, err := ParseTermString(object)
	if err != nil {
		return err
	}

	encodedS, strS, err := a.encoder.EncodeTerm(s)
	if err != nil {
		return err
	}
	encodedP, strP, err := a.encoder.EncodeTerm(p)
	if err != nil {
		return err
	}
	encodedO, strO, err := a.encoder.EncodeTerm(o)
	if err != nil {
		return err
	}

	txn, err := a.storage.Begin(true)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = txn.Rollback() // #nosec G104 - rollback after an already-reported error
		}
	}()

	if err := registerEncoded(txn, encodedS, strS); err != nil {
		return err
	}
	if err := registerEncoded(txn, encodedP, strP); err != nil {
		return err
	}
	if err := registerEncoded(txn, encodedO, strO); err != nil {
		return err
	}
	if err := a.registerTerm(txn, subject); err != nil {
		return err
	}
	if err := a.registerTerm(txn, predicate); err != nil {
		return err
	}
	if err := a.registerTerm(txn, object); err != nil {
		return err
	}

	spoKey := a.encoder.EncodeKey(encodedS, encodedP, encodedO)
	if err := txn.Set(store.TableSPO, spoKey, nil); err != nil {
		return err
	}
	psoKey := a.encoder.EncodeKey(encodedP, encodedS, encodedO)
	if err := txn.Set(store.TablePSO, psoKey, nil); err != nil {
		return err
	}

	if err := txn.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// registerEncoded writes the hash->string entry EncodeTerm asked for,
// keyed the way decodeWireTerm looks it up (encoded[1:], the hash/inline
// portion with the leading type byte stripped) — the same convention the
// original quad store's storeString used.
func registerEncoded(txn store.Transaction, encoded store.EncodedTerm, str *string) error {
	if str == nil {
		return nil
	}
	return txn.Set(store.TableID2Str, encoded[1:], []byte(*str))
}

// InsertTriples is a convenience wrapper over InsertTriple for bulk
// loading, e.g. a synthetic demo dataset or a dump produced upstream.
func (a *Adapter) InsertTriples(triples []*rdf.Triple) error {
	for _, t := range triples {
		s, err := FormatTerm(t.Subject)
		if err != nil {
			return err
		}
		p, err := FormatTerm(t.Predicate)
		if err != nil {
			return err
		}
		o, err := FormatTerm(t.Object)
		if err != nil {
			return err
		}
		if err := a.InsertTriple(s, p, o); err != nil {
			return err
		}
	}
	return nil
}
