package prompt

import (
	"strings"
	"testing"

	"github.com/paperlens/paperlens/internal/types"
)

func TestAnalysis_EmbedsDocumentAndSettings(t *testing.T) {
	// The document, length instruction, and target language all appear
	s := types.Settings{SummaryLength: types.SummaryDetailed, TargetLanguage: "ja"}
	p := Analysis("BODY-OF-PAPER", s)
	if !strings.Contains(p, "BODY-OF-PAPER") {
		t.Error("document text missing from prompt")
	}
	if !strings.Contains(p, "2-3 detailed paragraphs") {
		t.Error("detailed length instruction missing")
	}
	if !strings.Contains(p, `"ja"`) {
		t.Error("target language missing")
	}
}

func TestAnalysis_ConciseByDefault(t *testing.T) {
	// An unset summary length falls back to the concise instruction
	p := Analysis("doc", types.Settings{TargetLanguage: "en"})
	if !strings.Contains(p, "3-4 sentences") {
		t.Error("concise length instruction missing")
	}
}

func TestImage_TruncatesSummary(t *testing.T) {
	// The illustration prompt carries at most 200 summary runes
	long := strings.Repeat("a", 500)
	p := Image(long)
	if strings.Contains(p, strings.Repeat("a", 201)) {
		t.Error("summary not truncated")
	}
	if !strings.Contains(p, strings.Repeat("a", 200)+"...") {
		t.Error("expected 200 runes plus ellipsis")
	}
}

func TestTruncateRunes_ShortInputUnchanged(t *testing.T) {
	// Returns s unchanged when it is n runes or fewer
	if got := TruncateRunes("short", 200); got != "short" {
		t.Errorf("got %q, want short", got)
	}
}

func TestTruncateRunes_MultibyteBoundary(t *testing.T) {
	// Never splits a multibyte character
	in := strings.Repeat("研", 10)
	got := TruncateRunes(in, 4)
	if got != strings.Repeat("研", 4)+"..." {
		t.Errorf("got %q", got)
	}
}

func TestChat_EmbedsSummaryAndQuestion(t *testing.T) {
	// Both the summary context and the question appear in the prompt
	p := Chat("THE-SUMMARY", "what was the sample size?")
	if !strings.Contains(p, "THE-SUMMARY") || !strings.Contains(p, "what was the sample size?") {
		t.Errorf("prompt incomplete: %q", p)
	}
}
