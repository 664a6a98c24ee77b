package estimator

import "math/rand"

// fakeAdapter is a minimal in-memory adapter.DatabaseAdapter stand-in for
// estimator tests: cardinalities/samples/distinct counts are all
// pre-programmed rather than backed by real storage.
type fakeAdapter struct {
	cardinalities map[[3]string]int64
	distinctSubj  map[string]int64
	distinctObj   map[string]int64
	termIDs       map[string]int64
	terms         map[int64]string
	sampleResult  map[string]string
	sampleCard    int64
	idSampleCard  int64
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		cardinalities: map[[3]string]int64{},
		distinctSubj:  map[string]int64{},
		distinctObj:   map[string]int64{},
		termIDs:       map[string]int64{},
		terms:         map[int64]string{},
	}
}

func (f *fakeAdapter) Cardinality(hs, hp, ho string) (int64, error) {
	return f.cardinalities[[3]string{hs, hp, ho}], nil
}

func (f *fakeAdapter) Sample(sVar, oVar, hs, hp, ho string, rng *rand.Rand) (map[string]string, int64, error) {
	return f.sampleResult, f.sampleCard, nil
}

func (f *fakeAdapter) IDSample(sVar, oVar string, hs, hp, ho int64, rng *rand.Rand) (map[string]int64, int64, error) {
	return map[string]int64{}, f.idSampleCard, nil
}

func (f *fakeAdapter) GetSubjectID(term string) (int64, error)   { return f.GetTermID(term) }
func (f *fakeAdapter) GetPredicateID(term string) (int64, error) { return f.GetTermID(term) }
func (f *fakeAdapter) GetObjectID(term string) (int64, error)    { return f.GetTermID(term) }

func (f *fakeAdapter) GetTermID(term string) (int64, error) {
	if id, ok := f.termIDs[term]; ok {
		return id, nil
	}
	id := int64(len(f.termIDs) + 1)
	f.termIDs[term] = id
	f.terms[id] = term
	return id, nil
}

func (f *fakeAdapter) GetSubject(id int64) (string, error)   { return f.GetTerm(id) }
func (f *fakeAdapter) GetPredicate(id int64) (string, error) { return f.GetTerm(id) }
func (f *fakeAdapter) GetObject(id int64) (string, error)    { return f.GetTerm(id) }

func (f *fakeAdapter) GetTerm(id int64) (string, error) {
	return f.terms[id], nil
}

func (f *fakeAdapter) DistinctSubjects(predicate string) (int64, error) {
	return f.distinctSubj[predicate], nil
}

func (f *fakeAdapter) DistinctObjects(predicate string) (int64, error) {
	return f.distinctObj[predicate], nil
}

func (f *fakeAdapter) Close() error { return nil }
