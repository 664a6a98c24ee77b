// Command joinopt is a small demo/bench harness around the join-order
// optimizer core: it builds a tiny in-process dataset, runs a search
// algorithm over a hand-built query, and prints the winning plan.
//
// There is deliberately no flag-parsing library and no SPARQL parser here
// (both are out of scope for the optimizer core — an upstream parser is
// expected to produce the pkg/pattern.Query this binary builds by hand),
// matching the teacher's own main.go, which reads os.Args directly rather
// than reaching for a CLI framework.
package main

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"text/tabwriter"
	"time"

	"github.com/aleksaelezovic/joinopt/internal/adapter"
	"github.com/aleksaelezovic/joinopt/internal/storage"
	"github.com/aleksaelezovic/joinopt/pkg/estimator"
	"github.com/aleksaelezovic/joinopt/pkg/joinorder"
	"github.com/aleksaelezovic/joinopt/pkg/pattern"
	"github.com/aleksaelezovic/joinopt/pkg/rdf"
	"github.com/aleksaelezovic/joinopt/pkg/search"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "demo":
		runDemo()
	case "bench":
		runBench()
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: joinopt <command>")
	fmt.Println("Commands:")
	fmt.Println("  demo  - optimize one sample query with the VoID and random-walks estimators")
	fmt.Println("  bench - run a small built-in query set through every search/estimator pairing")
}

const foaf = "http://xmlns.com/foaf/0.1/"

func person(name string) string { return "http://example.org/" + name }

// sampleTriples is a small synthetic social graph: enough people and
// edges that a 3-atom star-and-chain query has more than one candidate
// join order worth choosing between.
func sampleTriples() []*rdf.Triple {
	names := []string{"alice", "bob", "carol", "dave", "erin"}
	ages := map[string]int64{"alice": 30, "bob": 25, "carol": 28, "dave": 41, "erin": 33}
	knows := map[string][]string{
		"alice": {"bob", "carol"},
		"bob":   {"carol", "dave"},
		"carol": {"dave", "erin"},
		"dave":  {"erin"},
	}

	knowsPred := rdf.NewNamedNode(foaf + "knows")
	namePred := rdf.NewNamedNode(foaf + "name")
	agePred := rdf.NewNamedNode(foaf + "age")

	var triples []*rdf.Triple
	for _, name := range names {
		subject := rdf.NewNamedNode(person(name))
		triples = append(triples, rdf.NewTriple(subject, namePred, rdf.NewLiteral(name)))
		triples = append(triples, rdf.NewTriple(subject, agePred, rdf.NewIntegerLiteral(ages[name])))
		for _, target := range knows[name] {
			triples = append(triples, rdf.NewTriple(subject, knowsPred, rdf.NewNamedNode(person(target))))
		}
	}
	return triples
}

// sampleQuery returns "who knows someone, and what's that someone's
// name and age" — a 3-atom basic graph pattern in which all three atoms
// share ?acquaintance (the knows atom's object, the name and age atoms'
// subject); ?person appears only in the knows atom.
func sampleQuery() *pattern.Query {
	return &pattern.Query{
		Name: "acquaintances",
		Patterns: []*pattern.TriplePattern{
			pattern.NewTriplePattern("?person", foaf+"knows", "?acquaintance", false, false),
			pattern.NewTriplePattern("?acquaintance", foaf+"name", "?name", false, false),
			pattern.NewTriplePattern("?acquaintance", foaf+"age", "?age", false, false),
		},
	}
}

func buildDataset() (*adapter.Adapter, func(), error) {
	dir, err := os.MkdirTemp("", "joinopt-demo-*")
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { os.RemoveAll(dir) }

	badgerStorage, err := storage.NewBadgerStorage(dir)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	db := adapter.New(badgerStorage)
	if err := db.InsertTriples(sampleTriples()); err != nil {
		db.Close()
		cleanup()
		return nil, nil, err
	}
	if err := db.RebuildVoIDStatistics(); err != nil {
		db.Close()
		cleanup()
		return nil, nil, err
	}

	return db, func() { db.Close(); cleanup() }, nil
}

func runDemo() {
	db, cleanup, err := buildDataset()
	if err != nil {
		log.Fatalf("joinopt: building demo dataset: %v", err)
	}
	defer cleanup()

	query := sampleQuery()
	rng := rand.New(rand.NewSource(42))

	voidEstimator := estimator.NewVoidEstimator(db, true, rng)
	voidPlan, err := search.NewHGreedySearch(voidEstimator, 1, 1).Run(query)
	if err != nil {
		log.Fatalf("joinopt: hgreedy search with VoID estimator: %v", err)
	}
	printPlan("VoID estimator / hgreedy search", voidPlan)

	walksEstimator := estimator.NewRandomWalksEstimator(db, rng)
	walksPlan, err := search.NewDPSearch(walksEstimator).Run(query)
	if err != nil {
		log.Fatalf("joinopt: dp search with random-walks estimator: %v", err)
	}
	printPlan("random-walks estimator / dp search", walksPlan)
}

func printPlan(label string, plan *joinorder.JoinOrder) {
	fmt.Printf("\n=== %s ===\n", label)
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "depth\tpattern\tgearing\tcardinality\tcost")
	for _, n := range joinorder.Summarize(plan) {
		fmt.Fprintf(w, "%d\t%s\t%d\t%.2f\t%.2f\n", n.Depth, n.Pattern, n.Gearing, n.Cardinality, n.Cost)
	}
	w.Flush()
	fmt.Printf("final: cardinality=%.2f epsilon=%.2f support=%.3f estimation_time=%.6fs\n",
		plan.Cardinality, plan.Epsilon, plan.Support, plan.EstimationTime)
}

// benchQueries is the small built-in query set bench runs, standing in
// for the reference's directory-of-.sparql-files batch runner — there is
// no parser in this module to read .sparql files with, so the batch is a
// handful of queries built directly against pkg/pattern instead.
func benchQueries() []*pattern.Query {
	return []*pattern.Query{
		sampleQuery(),
		{
			Name: "by-age",
			Patterns: []*pattern.TriplePattern{
				pattern.NewTriplePattern("?person", foaf+"age", "?age", false, false),
				pattern.NewTriplePattern("?person", foaf+"name", "?name", false, false),
			},
		},
		{
			Name: "transitive-knows",
			Patterns: []*pattern.TriplePattern{
				pattern.NewTriplePattern(person("alice"), foaf+"knows", "?reachable", false, true),
			},
		},
	}
}

type searchFactory struct {
	name string
	new  func(estimator search.CardinalityEstimator) search.Algorithm
}

func searchFactories() []searchFactory {
	return []searchFactory{
		{"dummy", func(e search.CardinalityEstimator) search.Algorithm { return search.NewDummySearch(e) }},
		{"greedy", func(e search.CardinalityEstimator) search.Algorithm { return search.NewGreedySearch(e, 1) }},
		{"hgreedy", func(e search.CardinalityEstimator) search.Algorithm { return search.NewHGreedySearch(e, 1, 1) }},
		{"dp", func(e search.CardinalityEstimator) search.Algorithm { return search.NewDPSearch(e) }},
	}
}

func runBench() {
	db, cleanup, err := buildDataset()
	if err != nil {
		log.Fatalf("joinopt: building demo dataset: %v", err)
	}
	defer cleanup()

	rng := rand.New(rand.NewSource(42))
	estimators := map[string]search.CardinalityEstimator{
		"void":         estimator.NewVoidEstimator(db, true, rng),
		"random-walks": estimator.NewRandomWalksEstimator(db, rng),
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "query\testimator\tsearch\tcardinality\tepsilon\tsupport\telapsed")
	for _, query := range benchQueries() {
		for estimatorName, est := range estimators {
			for _, factory := range searchFactories() {
				alg := factory.new(est)
				start := time.Now()
				plan, err := alg.Run(query)
				elapsed := time.Since(start)
				if err != nil {
					fmt.Fprintf(w, "%s\t%s\t%s\tERROR\t-\t-\t%s\n", query.Name, estimatorName, factory.name, err)
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\t%.3f\t%s\n",
					query.Name, estimatorName, factory.name,
					plan.Cardinality, plan.Epsilon, plan.Support, elapsed)
			}
		}
	}
	w.Flush()
}
