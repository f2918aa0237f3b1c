// Package ui renders analysis results and chat transcripts as plain text
// for the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/paperlens/paperlens/internal/types"
)

// DefaultWidth is used when the terminal width is unknown.
const DefaultWidth = 80

var evidenceLabels = map[int]string{
	1: "systematic review / meta-analysis",
	2: "randomized controlled trial",
	3: "cohort study",
	4: "case-control study",
	5: "case report / expert opinion",
	6: "unknown",
}

// EvidenceLabel names an evidence level for display.
func EvidenceLabel(level int) string {
	if l, ok := evidenceLabels[level]; ok {
		return l
	}
	return evidenceLabels[6]
}

// RenderResult formats a completed analysis, wrapped to width columns.
func RenderResult(r *types.AnalysisResult, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	var sb strings.Builder

	sb.WriteString("Summary\n")
	sb.WriteString(Wrap(r.Summary, width))
	sb.WriteString("\n")

	if r.Translation != "" {
		sb.WriteString("\nTranslation\n")
		sb.WriteString(Wrap(r.Translation, width))
		sb.WriteString("\n")
	}

	e := r.Evidence
	sb.WriteString("\nEvidence\n")
	fmt.Fprintf(&sb, "  level %d (%s)", e.Level, EvidenceLabel(e.Level))
	if e.QualityScore > 0 {
		fmt.Fprintf(&sb, ", quality %d/10", e.QualityScore)
	}
	sb.WriteString("\n")
	if e.Design != "" {
		sb.WriteString(indent(Wrap("design: "+e.Design, width-2)))
	}
	if e.Reason != "" {
		sb.WriteString(indent(Wrap("reason: "+e.Reason, width-2)))
	}
	if e.Limitations != "" {
		sb.WriteString(indent(Wrap("limitations: "+e.Limitations, width-2)))
	}

	if r.Related != nil {
		sb.WriteString("\nRelated work\n")
		sb.WriteString(Wrap(r.Related.Text, width))
		sb.WriteString("\n")
		sb.WriteString(RenderSources(r.Related.Sources))
	}
	return sb.String()
}

// RenderSources lists grounding attributions in their original order.
func RenderSources(sources []types.Source) string {
	var sb strings.Builder
	for i, s := range sources {
		title := s.Title
		if title == "" {
			title = s.URI
		}
		fmt.Fprintf(&sb, "  [%d] %s", i+1, title)
		if s.URI != "" && s.Title != "" {
			sb.WriteString(" <" + s.URI + ">")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderChat formats the transcript with role prefixes.
func RenderChat(messages []types.ChatMessage, width int) string {
	var sb strings.Builder
	for _, m := range messages {
		prefix := "you: "
		if m.Role == types.RoleModel {
			prefix = "ai:  "
		}
		sb.WriteString(prefix)
		sb.WriteString(Wrap(m.Text, width-len(prefix)))
		sb.WriteString("\n")
	}
	return sb.String()
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n") + "\n"
}

// Wrap breaks s into lines of at most width display columns, breaking on
// spaces where possible. CJK characters count as two columns.
//
// Expectations:
//   - Lines never exceed width display columns
//   - Breaks on spaces when a word fits on the next line
//   - Hard-breaks unbroken runs longer than a whole line
//   - Double-width runes count as two columns
func Wrap(s string, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}

	var out, line, word strings.Builder
	lineWidth, wordWidth := 0, 0

	breakLine := func() {
		out.WriteString(line.String())
		out.WriteString("\n")
		line.Reset()
		lineWidth = 0
	}
	flushWord := func() {
		if word.Len() == 0 {
			return
		}
		if lineWidth > 0 && lineWidth+1+wordWidth > width {
			breakLine()
		}
		if lineWidth > 0 {
			line.WriteString(" ")
			lineWidth++
		}
		line.WriteString(word.String())
		lineWidth += wordWidth
		word.Reset()
		wordWidth = 0
	}

	for _, r := range s {
		switch {
		case r == '\n':
			flushWord()
			breakLine()
		case r == ' ':
			flushWord()
		default:
			rw := runewidth.RuneWidth(r)
			if wordWidth+rw > width {
				// Unbroken run longer than a whole line: hard-break it.
				flushWord()
				if lineWidth > 0 {
					breakLine()
				}
			}
			word.WriteRune(r)
			wordWidth += rw
		}
	}
	flushWord()
	out.WriteString(line.String())
	return strings.TrimRight(out.String(), "\n ")
}
