package estimator

import "testing"

func TestSpy_ReportAndGet(t *testing.T) {
	s := NewSpy()
	if s.Has("", "status") {
		t.Fatalf("fresh spy should not have any reported value")
	}
	s.Report("", "status", "ok")
	s.Report("", "num_solutions", int64(7))

	if !s.Has("", "status") {
		t.Errorf("Has should report true after Report")
	}
	if got := s.Get("", "status"); got != "ok" {
		t.Errorf("Get(status) = %v, want ok", got)
	}
	if got := s.GetDefault("", "missing", "fallback"); got != "fallback" {
		t.Errorf("GetDefault(missing) = %v, want fallback", got)
	}
}

func TestSpy_ToRowsSortsColumnsAndRows(t *testing.T) {
	s := NewSpy()
	s.Report("b", "z", 2)
	s.Report("b", "a", 1)
	s.Report("a", "z", 4)
	s.Report("a", "a", 3)

	header, rows := s.ToRows()
	if len(header) != 2 || header[0] != "a" || header[1] != "z" {
		t.Fatalf("header = %v, want [a z]", header)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %v, want 2 rows", rows)
	}
	if rows[0][0] != "3" || rows[0][1] != "4" {
		t.Errorf("row for %q = %v, want [3 4]", "a", rows[0])
	}
	if rows[1][0] != "1" || rows[1][1] != "2" {
		t.Errorf("row for %q = %v, want [1 2]", "b", rows[1])
	}
}
