package history

import (
	"testing"

	"github.com/paperlens/paperlens/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet_RoundTrip(t *testing.T) {
	// A stored entry is retrievable by its document hash
	s := openTestStore(t)
	sha := DocKey("paper text")
	e := Entry{
		DocSHA: sha,
		Result: types.AnalysisResult{ID: "r1", Summary: "sum", Evidence: types.EvidenceAssessment{Level: 2}},
	}
	if err := s.Put(e); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, found, err := s.GetByDoc(sha)
	if err != nil {
		t.Fatalf("GetByDoc failed: %v", err)
	}
	if !found {
		t.Fatal("entry not found")
	}
	if got.Result.Summary != "sum" || got.Result.Evidence.Level != 2 {
		t.Errorf("result: got %+v", got.Result)
	}
	if got.ID == "" || got.CreatedAt == "" {
		t.Errorf("ID/CreatedAt not assigned: %+v", got)
	}
}

func TestGetByDoc_Missing(t *testing.T) {
	// An unknown hash reports found=false without error
	s := openTestStore(t)
	_, found, err := s.GetByDoc(DocKey("never stored"))
	if err != nil {
		t.Fatalf("GetByDoc failed: %v", err)
	}
	if found {
		t.Error("expected found=false")
	}
}

func TestRecent_NewestFirst(t *testing.T) {
	// Recent returns entries newest first, capped at n
	s := openTestStore(t)
	stamps := []string{"2026-08-01T00:00:00Z", "2026-08-02T00:00:00Z", "2026-08-03T00:00:00Z"}
	for i, ts := range stamps {
		e := Entry{
			DocSHA:    DocKey(string(rune('a' + i))),
			CreatedAt: ts,
			Result:    types.AnalysisResult{Summary: ts},
		}
		if err := s.Put(e); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	got, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("entries: got %d, want 2", len(got))
	}
	if got[0].CreatedAt != stamps[2] || got[1].CreatedAt != stamps[1] {
		t.Errorf("order: got %s then %s", got[0].CreatedAt, got[1].CreatedAt)
	}
}

func TestRecent_DeduplicatesReanalyzedDocs(t *testing.T) {
	// Re-analyzing a document shows it once, at its newest position
	s := openTestStore(t)
	sha := DocKey("same doc")
	for _, ts := range []string{"2026-08-01T00:00:00Z", "2026-08-05T00:00:00Z"} {
		if err := s.Put(Entry{DocSHA: sha, CreatedAt: ts, Result: types.AnalysisResult{Summary: ts}}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	got, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("entries: got %d, want 1", len(got))
	}
	if got[0].Result.Summary != "2026-08-05T00:00:00Z" {
		t.Errorf("kept entry: got %q, want the newest", got[0].Result.Summary)
	}
}

func TestDocKey_Deterministic(t *testing.T) {
	// The same document always hashes to the same key
	if DocKey("x") != DocKey("x") {
		t.Error("DocKey not deterministic")
	}
	if DocKey("x") == DocKey("y") {
		t.Error("distinct documents collided")
	}
}
