package analysis

import (
	"errors"
	"testing"
)

func TestNormalize_FencedSummaryOnly(t *testing.T) {
	// Missing summary/translation leaves are replaced by locale defaults
	p, err := Normalize("```json\n{\"summary\":\"x\"}\n```", "en")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if p.Summary != "x" {
		t.Errorf("summary: got %q, want x", p.Summary)
	}
	if p.Translation != "No translation was provided." {
		t.Errorf("translation: got %q, want default", p.Translation)
	}
	if p.Evidence.Level != EvidenceLevelUnknown {
		t.Errorf("evidence level: got %d, want %d", p.Evidence.Level, EvidenceLevelUnknown)
	}
	if p.Evidence.QualityScore != 0 {
		t.Errorf("quality score: got %d, want 0", p.Evidence.QualityScore)
	}
}

func TestNormalize_FullPayloadPassesThrough(t *testing.T) {
	// Well-formed payloads keep every model-supplied value
	raw := `{
		"summary": "Trial of X.",
		"translation": "Xの試験。",
		"evidence": {
			"level": 2,
			"design": "Randomized controlled trial",
			"reason": "Adequately powered RCT.",
			"qualityScore": 8,
			"limitations": "Single-center."
		}
	}`
	p, err := Normalize(raw, "en")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if p.Summary != "Trial of X." || p.Translation != "Xの試験。" {
		t.Errorf("text fields: got %q / %q", p.Summary, p.Translation)
	}
	if p.Evidence.Level != 2 || p.Evidence.QualityScore != 8 {
		t.Errorf("evidence: got level=%d score=%d, want 2/8", p.Evidence.Level, p.Evidence.QualityScore)
	}
	if p.Evidence.Design != "Randomized controlled trial" {
		t.Errorf("design: got %q", p.Evidence.Design)
	}
}

func TestNormalize_GarbageInput(t *testing.T) {
	// Garbage input returns *MalformedResponseError carrying the raw text
	_, err := Normalize("I could not analyze this paper, sorry!", "en")
	if err == nil {
		t.Fatal("expected error for unparseable input")
	}
	var me *MalformedResponseError
	if !errors.As(err, &me) {
		t.Fatalf("error type: got %T, want *MalformedResponseError", err)
	}
	if me.Raw != "I could not analyze this paper, sorry!" {
		t.Errorf("Raw: got %q", me.Raw)
	}
}

func TestNormalize_OutOfRangeLevel(t *testing.T) {
	// Out-of-range level (outside 1-6) falls back to level 6
	p, err := Normalize(`{"summary":"s","evidence":{"level":12}}`, "en")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if p.Evidence.Level != EvidenceLevelUnknown {
		t.Errorf("level: got %d, want %d", p.Evidence.Level, EvidenceLevelUnknown)
	}
}

func TestNormalize_OutOfRangeQualityScore(t *testing.T) {
	// Out-of-range qualityScore (outside 1-10) falls back to 0
	p, err := Normalize(`{"summary":"s","evidence":{"level":3,"qualityScore":55}}`, "en")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if p.Evidence.QualityScore != 0 {
		t.Errorf("score: got %d, want 0", p.Evidence.QualityScore)
	}
	if p.Evidence.Level != 3 {
		t.Errorf("level: got %d, want 3", p.Evidence.Level)
	}
}

func TestNormalize_PartialEvidenceBackfilled(t *testing.T) {
	// Leaves missing inside evidence are individually backfilled
	p, err := Normalize(`{"summary":"s","evidence":{"level":1,"design":"Meta-analysis"}}`, "en")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if p.Evidence.Level != 1 || p.Evidence.Design != "Meta-analysis" {
		t.Errorf("supplied leaves lost: %+v", p.Evidence)
	}
	if p.Evidence.Reason == "" || p.Evidence.Limitations == "" {
		t.Errorf("missing leaves not backfilled: %+v", p.Evidence)
	}
}

func TestNormalize_JapaneseDefaults(t *testing.T) {
	// The ja locale table supplies ja default strings
	p, err := Normalize(`{"summary":"s"}`, "ja")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if p.Translation != "翻訳は提供されませんでした。" {
		t.Errorf("translation default: got %q", p.Translation)
	}
	if p.Evidence.Design != "不明" {
		t.Errorf("design default: got %q", p.Evidence.Design)
	}
}

func TestNormalize_UnknownLangFallsBackToEnglish(t *testing.T) {
	// Unmapped languages use the en defaults table
	p, err := Normalize(`{"summary":"s"}`, "fr")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if p.Translation != "No translation was provided." {
		t.Errorf("translation default: got %q", p.Translation)
	}
}

func TestStripFences_JSONFence(t *testing.T) {
	// Removes a ```json opening fence and closing ```
	got := StripFences("```json\n{\"a\":1}\n```")
	if got != `{"a":1}` {
		t.Errorf("got %q", got)
	}
}

func TestStripFences_BareFence(t *testing.T) {
	// Removes a bare ``` fence pair
	got := StripFences("```\n{\"a\":1}\n```")
	if got != `{"a":1}` {
		t.Errorf("got %q", got)
	}
}

func TestStripFences_NoFenceUnchanged(t *testing.T) {
	// Returns trimmed input unchanged when no fence is present
	got := StripFences("  {\"a\":1}\n")
	if got != `{"a":1}` {
		t.Errorf("got %q", got)
	}
}
