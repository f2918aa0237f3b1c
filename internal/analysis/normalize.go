// Package analysis turns raw model output into a fully populated structured
// payload. The upstream model may wrap its JSON answer in prose or markdown
// code fences; normalization strips the fences, parses strictly, then
// backfills every leaf field so callers never see a missing value.
package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paperlens/paperlens/internal/types"
)

// EvidenceLevelUnknown is the sentinel level substituted when the model
// omits or mangles the evidence assessment.
const EvidenceLevelUnknown = 6

// MalformedResponseError reports model output that could not be parsed as
// the expected JSON payload. Raw carries the offending text (after fence
// stripping) for diagnostics. Distinct from network-level errors.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("analysis: malformed model response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Payload is a completed, fully backfilled analysis. Every field is
// guaranteed non-zero-value-safe: strings hold locale defaults when the
// model omitted them, and Evidence is at worst the unknown sentinel.
type Payload struct {
	Summary     string
	Translation string
	Evidence    types.EvidenceAssessment
}

// leafDefaults are the locale-appropriate substitutes for missing fields.
type leafDefaults struct {
	summary     string
	translation string
	design      string
	reason      string
	limitations string
}

var defaultsByLang = map[string]leafDefaults{
	"en": {
		summary:     "No summary was provided.",
		translation: "No translation was provided.",
		design:      "Unknown",
		reason:      "The model did not return an evidence assessment.",
		limitations: "Not specified.",
	},
	"ja": {
		summary:     "要約は提供されませんでした。",
		translation: "翻訳は提供されませんでした。",
		design:      "不明",
		reason:      "エビデンス評価が返されませんでした。",
		limitations: "記載なし。",
	},
}

func defaultsFor(lang string) leafDefaults {
	if d, ok := defaultsByLang[lang]; ok {
		return d
	}
	return defaultsByLang["en"]
}

// DefaultEvidence returns the level-6/score-0 sentinel assessment for lang.
func DefaultEvidence(lang string) types.EvidenceAssessment {
	d := defaultsFor(lang)
	return types.EvidenceAssessment{
		Level:        EvidenceLevelUnknown,
		Design:       d.design,
		Reason:       d.reason,
		QualityScore: 0,
		Limitations:  d.limitations,
	}
}

// rawPayload uses pointers so absent fields are distinguishable from empty.
type rawPayload struct {
	Summary     *string      `json:"summary"`
	Translation *string      `json:"translation"`
	Evidence    *rawEvidence `json:"evidence"`
}

type rawEvidence struct {
	Level        *int    `json:"level"`
	Design       *string `json:"design"`
	Reason       *string `json:"reason"`
	QualityScore *int    `json:"qualityScore"`
	Limitations  *string `json:"limitations"`
}

// Normalize parses raw model text into a Payload with every leaf populated.
// Unparseable input yields a *MalformedResponseError and never a partially
// populated payload.
//
// Expectations:
//   - Strips ```json fences before parsing
//   - Missing summary/translation leaves are replaced by locale defaults
//   - Missing or invalid evidence is replaced by the level-6/score-0 sentinel
//   - Out-of-range level (outside 1-6) falls back to level 6
//   - Out-of-range qualityScore (outside 1-10) falls back to 0
//   - Garbage input returns *MalformedResponseError carrying the raw text
func Normalize(raw, lang string) (Payload, error) {
	d := defaultsFor(lang)
	cleaned := StripFences(raw)

	var rp rawPayload
	if err := json.Unmarshal([]byte(cleaned), &rp); err != nil {
		return Payload{}, &MalformedResponseError{Raw: cleaned, Err: err}
	}

	p := Payload{
		Summary:     d.summary,
		Translation: d.translation,
		Evidence:    DefaultEvidence(lang),
	}
	if rp.Summary != nil && *rp.Summary != "" {
		p.Summary = *rp.Summary
	}
	if rp.Translation != nil && *rp.Translation != "" {
		p.Translation = *rp.Translation
	}
	if rp.Evidence != nil {
		e := rp.Evidence
		if e.Level != nil && *e.Level >= 1 && *e.Level <= EvidenceLevelUnknown {
			p.Evidence.Level = *e.Level
		}
		if e.Design != nil && *e.Design != "" {
			p.Evidence.Design = *e.Design
		}
		if e.Reason != nil && *e.Reason != "" {
			p.Evidence.Reason = *e.Reason
		}
		if e.QualityScore != nil && *e.QualityScore >= 1 && *e.QualityScore <= 10 {
			p.Evidence.QualityScore = *e.QualityScore
		}
		if e.Limitations != nil && *e.Limitations != "" {
			p.Evidence.Limitations = *e.Limitations
		}
	}
	return p, nil
}

// StripFences removes markdown code fences (```json ... ```) wrapping model
// output and trims surrounding whitespace.
//
// Expectations:
//   - Removes a ```json opening fence and closing ```
//   - Removes a bare ``` fence pair
//   - Returns trimmed input unchanged when no fence is present
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		// Remove opening fence line
		idx := strings.Index(s, "\n")
		if idx != -1 {
			s = s[idx+1:]
		}
		// Remove closing fence
		if i := strings.LastIndex(s, "```"); i != -1 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}
