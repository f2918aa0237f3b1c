// Package prompt owns every prompt sent to the generative service. Keeping
// the text in one place makes the orchestration layer's remote contract
// reviewable without digging through call sites.
package prompt

import (
	"fmt"
	"strings"

	"github.com/paperlens/paperlens/internal/types"
)

// imagePromptRunes caps how much of the summary seeds the illustration
// prompt. Truncation happens on a rune boundary so multibyte summaries are
// never cut mid-character.
const imagePromptRunes = 200

// Analysis builds the structured-JSON analysis prompt for document. The
// reply schema mirrors what analysis.Normalize expects.
func Analysis(document string, s types.Settings) string {
	length := "3-4 sentences"
	if s.SummaryLength == types.SummaryDetailed {
		length = "2-3 detailed paragraphs"
	}
	lang := s.TargetLanguage
	if lang == "" {
		lang = "en"
	}
	return fmt.Sprintf(`You are an expert reviewer of academic papers.
Read the paper text below and reply with ONLY a JSON object, no prose and no code fences, with this exact shape:

{
  "summary": "summary of the paper in %s",
  "translation": "the summary translated into the language with ISO code %q",
  "evidence": {
    "level": <integer 1-6, evidence level of the study design: 1 systematic review/meta-analysis, 2 randomized controlled trial, 3 cohort study, 4 case-control study, 5 case report/expert opinion, 6 unknown>,
    "design": "name of the study design",
    "reason": "why you assigned this level",
    "qualityScore": <integer 1-10, methodological quality>,
    "limitations": "main limitations of the study"
  }
}

Paper text:
---
%s
---`, length, lang, document)
}

// RelatedWork builds the grounded-search prompt derived from a completed
// summary.
func RelatedWork(summary string) string {
	return fmt.Sprintf(`Search the web for recent related work, follow-up studies, and critical commentary relevant to the paper summarized below. Reply with a short digest of what you find.

Paper summary:
%s`, summary)
}

// Image builds the illustration prompt from the leading part of summary.
func Image(summary string) string {
	return "A clean scientific illustration, no text or lettering, representing the following research: " + TruncateRunes(summary, imagePromptRunes)
}

// ReadAloud builds the TTS prompt for summary.
func ReadAloud(summary string) string {
	return "Read the following research summary aloud in a clear, measured tone: " + summary
}

// ChatSystem is the fixed expert-persona system instruction for follow-up
// questions.
func ChatSystem() string {
	return "You are an expert research scientist answering questions about an academic paper. Ground every answer in the paper summary you are given. If the summary does not contain the answer, say so plainly instead of speculating."
}

// Chat builds the follow-up question prompt, embedding the summary as
// context for the question.
func Chat(summary, question string) string {
	return fmt.Sprintf("Paper summary:\n%s\n\nQuestion: %s", summary, question)
}

// TruncateRunes shortens s to at most n runes, appending an ellipsis when
// anything was cut.
//
// Expectations:
//   - Returns s unchanged when it is n runes or fewer
//   - Never splits a multibyte character
//   - Appends "..." when truncated
func TruncateRunes(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "..."
}
