// Package session coordinates the ordered sequence of remote operations for
// one analysis session: analyze (chaining into a best-effort related-work
// search), follow-up questions, image generation, and speech synthesis.
//
// A Session is an explicit object rather than ambient global state so
// multiple independent sessions can coexist in tests. It is the single
// writer of its AnalysisResult: Analyze replaces it wholesale, and the
// related-work handler merges only the Related field, guarded by result ID
// so a stale response never lands on a newer analysis.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paperlens/paperlens/internal/analysis"
	"github.com/paperlens/paperlens/internal/gemini"
	"github.com/paperlens/paperlens/internal/history"
	"github.com/paperlens/paperlens/internal/prompt"
	"github.com/paperlens/paperlens/internal/types"
	"github.com/paperlens/paperlens/internal/wav"
)

const defaultStatusTTL = 5 * time.Second

// ErrBusy is returned when a primary operation is requested while another
// is still in flight. Operations are not queued.
var ErrBusy = errors.New("session: another operation is in flight")

// ErrNoAnalysis is returned by operations that need a completed analysis.
var ErrNoAnalysis = errors.New("session: no analysis available yet")

// Generator is the remote-call port, implemented by gemini.Client.
type Generator interface {
	GenerateContent(ctx context.Context, r gemini.GenerateRequest) (*gemini.GenerateResponse, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
	GenerateSpeech(ctx context.Context, prompt, voiceID string) (pcmBase64 string, sampleRate int, err error)
}

// AudioPlayer plays an encoded WAV buffer, blocking until done.
type AudioPlayer interface {
	Play(ctx context.Context, wavData []byte) error
}

// Cache stores completed analyses keyed by document hash.
type Cache interface {
	GetByDoc(docSHA string) (history.Entry, bool, error)
	Put(e history.Entry) error
}

// Options carries the optional collaborators. Zero values are valid: no
// cache means every analyze hits the service, no player disables playback.
type Options struct {
	Cache     Cache
	Player    AudioPlayer
	StatusTTL time.Duration // status auto-clear delay; 5s when zero
}

type Session struct {
	gen  Generator
	opts Options

	// ctx is the session lifetime; cancelling it suppresses in-flight
	// background completion handlers after teardown.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	settings  types.Settings
	result    *types.AnalysisResult
	docSHA    string
	chat      []types.ChatMessage
	image     []byte
	loading   bool
	playing   bool
	status    string
	statusGen int
}

// New creates a Session living under ctx.
func New(ctx context.Context, gen Generator, settings types.Settings, opts Options) *Session {
	if opts.StatusTTL <= 0 {
		opts.StatusTTL = defaultStatusTTL
	}
	sctx, cancel := context.WithCancel(ctx)
	return &Session{gen: gen, opts: opts, settings: settings, ctx: sctx, cancel: cancel}
}

// Close tears the session down: in-flight background work is cancelled and
// awaited so no state updates happen after disposal.
func (s *Session) Close() {
	s.cancel()
	s.wg.Wait()
}

// Wait blocks until background work (the related-work search) settles.
func (s *Session) Wait() { s.wg.Wait() }

// begin claims the shared loading gate. Exactly one primary operation may
// be in flight at a time.
func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return ErrBusy
	}
	s.loading = true
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

// setStatus publishes a transient user-visible message that auto-clears
// after the configured delay unless a newer message replaced it.
func (s *Session) setStatus(msg string) {
	s.mu.Lock()
	s.status = msg
	s.statusGen++
	gen := s.statusGen
	s.mu.Unlock()

	time.AfterFunc(s.opts.StatusTTL, func() {
		s.mu.Lock()
		if s.statusGen == gen {
			s.status = ""
		}
		s.mu.Unlock()
	})
}

// Analyze runs the structured analysis of document. On success the session
// result is replaced wholesale, the chat transcript is cleared, and, when
// web search is enabled, the related-work search is chained asynchronously
// without blocking Analyze's completion. On any failure the prior result is
// left untouched. An identical document already in the cache is served
// without a remote call. The returned value is a snapshot; use Result()
// after Wait() to observe the merged related-work digest.
func (s *Session) Analyze(ctx context.Context, document string) (*types.AnalysisResult, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	docSHA := history.DocKey(document)
	if s.opts.Cache != nil {
		if e, ok, err := s.opts.Cache.GetByDoc(docSHA); err != nil {
			log.Printf("[SESSION] cache lookup failed: %v", err)
		} else if ok {
			res := e.Result
			s.mu.Lock()
			s.result = &res
			s.docSHA = docSHA
			s.chat = nil
			s.mu.Unlock()
			out := res
			return &out, nil
		}
	}

	s.mu.Lock()
	settings := s.settings
	s.mu.Unlock()

	resp, err := s.gen.GenerateContent(ctx, gemini.GenerateRequest{
		Prompt:   prompt.Analysis(document, settings),
		JSONMode: true,
	})
	if err != nil {
		s.setStatus("Analysis failed: " + err.Error())
		return nil, err
	}

	payload, err := analysis.Normalize(resp.Text, settings.TargetLanguage)
	if err != nil {
		s.setStatus("The model returned an unreadable analysis. Please try again.")
		return nil, err
	}

	res := &types.AnalysisResult{
		ID:          uuid.New().String(),
		Summary:     payload.Summary,
		Translation: payload.Translation,
		Evidence:    payload.Evidence,
	}

	s.mu.Lock()
	s.result = res
	s.docSHA = docSHA
	s.chat = nil
	s.mu.Unlock()

	s.storeResult()

	// Snapshot before chaining the search: it merges into s.result later.
	out := *res

	if settings.WebSearchEnabled {
		s.wg.Add(1)
		go s.searchRelated(res.ID, res.Summary)
	}

	return &out, nil
}

// searchRelated is the best-effort second leg of Analyze. Every failure is
// logged and swallowed: related work must never block or fail the primary
// flow. The merge is skipped when the session result has moved on.
func (s *Session) searchRelated(resultID, summary string) {
	defer s.wg.Done()

	resp, err := s.gen.GenerateContent(s.ctx, gemini.GenerateRequest{
		Prompt:    prompt.RelatedWork(summary),
		WebSearch: true,
	})
	if err != nil {
		log.Printf("[SESSION] related-work search failed: %v", err)
		return
	}

	rel := &types.RelatedInfo{Text: resp.Text, Sources: resp.Sources}

	s.mu.Lock()
	if s.result == nil || s.result.ID != resultID {
		s.mu.Unlock()
		log.Printf("[SESSION] dropping stale related-work response for result %s", resultID)
		return
	}
	s.result.Related = rel
	s.mu.Unlock()

	s.storeResult()
}

// storeResult writes the current result snapshot to the cache, best-effort.
func (s *Session) storeResult() {
	if s.opts.Cache == nil {
		return
	}
	s.mu.Lock()
	if s.result == nil {
		s.mu.Unlock()
		return
	}
	e := history.Entry{ID: s.result.ID, DocSHA: s.docSHA, Result: *s.result}
	s.mu.Unlock()

	if err := s.opts.Cache.Put(e); err != nil {
		log.Printf("[SESSION] cache store failed: %v", err)
	}
}

// AskQuestion appends the user turn, asks the model with the summary as
// grounding context, and appends the model turn. On failure the model turn
// is a localized apology so the transcript never shows a dangling user
// question; the underlying error is still returned for logging.
func (s *Session) AskQuestion(ctx context.Context, question string) (string, error) {
	if err := s.begin(); err != nil {
		return "", err
	}
	defer s.end()

	s.mu.Lock()
	if s.result == nil {
		s.mu.Unlock()
		return "", ErrNoAnalysis
	}
	summary := s.result.Summary
	lang := s.settings.TargetLanguage
	s.chat = append(s.chat, types.ChatMessage{Role: types.RoleUser, Text: question})
	s.mu.Unlock()

	resp, err := s.gen.GenerateContent(ctx, gemini.GenerateRequest{
		Prompt:    prompt.Chat(summary, question),
		System:    prompt.ChatSystem(),
		WebSearch: true,
	})

	var answer string
	if err != nil {
		answer = apologyFor(lang)
	} else {
		answer = resp.Text
	}

	s.mu.Lock()
	s.chat = append(s.chat, types.ChatMessage{Role: types.RoleModel, Text: answer})
	s.mu.Unlock()

	return answer, err
}

var apologies = map[string]string{
	"en": "Sorry, I could not answer that question right now. Please try again.",
	"ja": "申し訳ありません。現在この質問に回答できません。もう一度お試しください。",
}

func apologyFor(lang string) string {
	if a, ok := apologies[lang]; ok {
		return a
	}
	return apologies["en"]
}

// GenerateImage creates an illustration from the leading part of the
// current summary. Success replaces the single latest-image slot; failure
// leaves any prior image untouched and surfaces a status message.
func (s *Session) GenerateImage(ctx context.Context) ([]byte, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	s.mu.Lock()
	if s.result == nil {
		s.mu.Unlock()
		return nil, ErrNoAnalysis
	}
	summary := s.result.Summary
	s.mu.Unlock()

	img, err := s.gen.GenerateImage(ctx, prompt.Image(summary))
	if err != nil {
		s.setStatus("Image generation failed: " + err.Error())
		return nil, err
	}

	s.mu.Lock()
	s.image = img
	s.mu.Unlock()
	return img, nil
}

// Synthesize runs the TTS call for the current summary and returns the
// encoded WAV without playing it.
func (s *Session) Synthesize(ctx context.Context) ([]byte, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()
	return s.synthesize(ctx)
}

func (s *Session) synthesize(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if s.result == nil {
		s.mu.Unlock()
		return nil, ErrNoAnalysis
	}
	summary := s.result.Summary
	voice := s.settings.VoiceID
	s.mu.Unlock()

	pcm, rate, err := s.gen.GenerateSpeech(ctx, prompt.ReadAloud(summary), voice)
	if err != nil {
		s.setStatus("Speech synthesis failed: " + err.Error())
		return nil, err
	}

	data, err := wav.Encode(pcm, rate)
	if err != nil {
		s.setStatus("The synthesized audio could not be decoded.")
		return nil, err
	}
	return data, nil
}

// SynthesizeSpeech synthesizes the summary and starts playback. Only one
// playback may be active: a second invocation while one is in flight is a
// no-op, not queued. A decoding failure aborts and resets the playing gate.
func (s *Session) SynthesizeSpeech(ctx context.Context) error {
	s.mu.Lock()
	if s.playing {
		s.mu.Unlock()
		return nil
	}
	s.playing = true
	s.mu.Unlock()

	clearPlaying := func() {
		s.mu.Lock()
		s.playing = false
		s.mu.Unlock()
	}

	if err := s.begin(); err != nil {
		clearPlaying()
		return err
	}

	data, err := s.synthesize(ctx)
	s.end()
	if err != nil {
		clearPlaying()
		return err
	}

	if s.opts.Player == nil {
		clearPlaying()
		return errors.New("session: no audio player configured")
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer clearPlaying()
		if err := s.opts.Player.Play(s.ctx, data); err != nil {
			log.Printf("[SESSION] playback failed: %v", err)
			s.setStatus("Audio playback failed.")
		}
	}()
	return nil
}

// UpdateSettings replaces the session settings. Takes effect on the next
// operation; in-flight work keeps the settings it started with.
func (s *Session) UpdateSettings(settings types.Settings) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
}

// Settings returns a copy of the current settings.
func (s *Session) Settings() types.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Result returns a snapshot of the current analysis, or nil before the
// first successful Analyze.
func (s *Session) Result() *types.AnalysisResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	out := *s.result
	return &out
}

// Chat returns a copy of the transcript.
func (s *Session) Chat() []types.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.ChatMessage, len(s.chat))
	copy(out, s.chat)
	return out
}

// Image returns the latest generated image, or nil.
func (s *Session) Image() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.image
}

// Status returns the current transient status message, or "".
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Playing reports whether speech playback is active.
func (s *Session) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}
