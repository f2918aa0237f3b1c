package types

// Role identifies the author of a chat transcript entry.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ChatMessage is one entry in the follow-up chat transcript.
// The transcript is append-only: entries are never mutated or reordered,
// and it is cleared only by starting a fresh session.
type ChatMessage struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// SummaryLength selects how verbose the generated summary should be.
type SummaryLength string

const (
	SummaryConcise  SummaryLength = "concise"
	SummaryDetailed SummaryLength = "detailed"
)

// Settings are the user-editable knobs read by prompt building.
// They live in memory for the duration of a session; there is no store.
type Settings struct {
	SummaryLength    SummaryLength `yaml:"summary_length" json:"summaryLength"`
	VoiceID          string        `yaml:"voice" json:"voiceId"`
	WebSearchEnabled bool          `yaml:"web_search" json:"webSearchEnabled"`
	TargetLanguage   string        `yaml:"target_language" json:"targetLanguage"`
}

// EvidenceAssessment rates the rigor of the analyzed study.
// Level is a 1-6 ordinal (1 = systematic review, 6 = unknown) assigned by
// the model, not computed locally. A missing or invalid assessment is
// replaced by the level-6/score-0 sentinel, never left nil.
type EvidenceAssessment struct {
	Level        int    `json:"level"`
	Design       string `json:"design"`
	Reason       string `json:"reason"`
	QualityScore int    `json:"qualityScore"`
	Limitations  string `json:"limitations"`
}

// Source is one grounding attribution returned by a web-search-augmented call.
type Source struct {
	URI   string `json:"uri,omitempty"`
	Title string `json:"title,omitempty"`
}

// RelatedInfo is the web-grounded related-work digest. Sources keep the
// grounding service's attribution order and may be empty.
type RelatedInfo struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

// AnalysisResult is the structured output of one completed analysis.
// It is replaced wholesale on each successful Analyze; Related is merged in
// asynchronously afterwards, guarded by ID so a stale related-work response
// never lands on a newer result.
type AnalysisResult struct {
	ID          string             `json:"id"`
	Summary     string             `json:"summary"`
	Translation string             `json:"translation"`
	Evidence    EvidenceAssessment `json:"evidence"`
	Related     *RelatedInfo       `json:"related,omitempty"`
}
