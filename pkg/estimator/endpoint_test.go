package estimator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func sparqlResultsResponse(variable, value string) string {
	return `{"results":{"bindings":[{"` + variable + `":{"value":"` + value + `"}}]}}`
}

func TestVirtuoso_CountRewritesProjectionAndParsesResult(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		gotQuery = r.FormValue("query")
		w.Header().Set("Content-Type", "application/sparql-results+json")
		w.Write([]byte(sparqlResultsResponse("count", "12")))
	}))
	defer srv.Close()

	v := NewVirtuoso(srv.URL, "")
	spy := NewSpy()
	n, err := v.Count(context.Background(), `SELECT DISTINCT * WHERE {\n\t?s ?p ?o .\n}`, spy, true, false, 0)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 12 {
		t.Errorf("Count = %d, want 12", n)
	}
	if !strings.Contains(gotQuery, "SELECT (COUNT(*) AS ?count) WHERE") {
		t.Errorf("query was not rewritten into a count projection: %q", gotQuery)
	}
	if !strings.Contains(gotQuery, `sql:select-option "order"`) {
		t.Errorf("forceOrder should add Virtuoso's select-option order pragma: %q", gotQuery)
	}
	if got := spy.Get("", "status"); got != "ok" {
		t.Errorf("spy status = %v, want ok", got)
	}
}

func TestVirtuoso_TimeoutReportsZeroSupport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		w.Write([]byte(sparqlResultsResponse("count", "1")))
	}))
	defer srv.Close()

	v := NewVirtuoso(srv.URL, "")
	spy := NewSpy()
	n, err := v.Count(context.Background(), "SELECT * WHERE { ?s ?p ?o }", spy, false, false, time.Millisecond)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Errorf("Count on timeout = %d, want 0", n)
	}
	if got := spy.Get("", "status"); got != "timeout" {
		t.Errorf("spy status = %v, want timeout", got)
	}
}

func TestBlazegraph_CountAddsOptimizerHint(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotQuery = r.FormValue("query")
		w.Write([]byte(sparqlResultsResponse("count", "3")))
	}))
	defer srv.Close()

	b := NewBlazegraph(srv.URL)
	spy := NewSpy()
	n, err := b.Count(context.Background(), "SELECT DISTINCT * WHERE {\n\t?s ?p ?o .\n}", spy, true, false, 0)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
	if !strings.Contains(gotQuery, `hint:optimizer "None"`) {
		t.Errorf("forceOrder should add Blazegraph's optimizer hint: %q", gotQuery)
	}
}
