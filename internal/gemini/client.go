// Package gemini is a hand-rolled HTTP client for the Generative Language
// REST API: text generation (optionally JSON-mode or web-search grounded),
// Imagen prediction, and TTS synthesis. Rate limiting (HTTP 429) is absorbed
// locally with bounded exponential backoff; all other failures surface as
// typed errors for the session layer to translate.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paperlens/paperlens/internal/types"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// maxAttempts bounds one logical call: the first attempt plus up to
	// four retries after 429 responses, waiting 1, 2, 4, 8 then 16 seconds.
	// The counter resets per logical call.
	maxAttempts = 5

	defaultSampleRate = 24000
)

// ErrMissingAPIKey is returned by every remote call when no credential is
// configured. It is never retried.
var ErrMissingAPIKey = errors.New("gemini: GEMINI_API_KEY not set")

// TransportError reports a non-2xx response that survived backoff, with the
// response body kept for diagnostics.
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gemini: HTTP %d: %s", e.StatusCode, e.Body)
}

// RateLimited reports whether the failure was a rate limit that exhausted
// the retry budget.
func (e *TransportError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Config carries the connection knobs. Zero fields fall back to defaults;
// APIKey has no default and gates every call.
type Config struct {
	APIKey     string
	BaseURL    string
	TextModel  string
	ImageModel string
	TTSModel   string
}

// Client calls the generative service. Safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	textModel  string
	imageModel string
	ttsModel   string
	httpClient *http.Client

	// sleep is the backoff delay hook; injectable so tests run without
	// wall-clock waits. Honors ctx so session teardown cancels a retry
	// mid-wait.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Client from cfg, applying defaults for unset fields.
func New(cfg Config) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		ttsModel:   cfg.TTSModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		sleep:      sleepCtx,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.textModel == "" {
		c.textModel = "gemini-2.5-flash"
	}
	if c.imageModel == "" {
		c.imageModel = "imagen-3.0-generate-002"
	}
	if c.ttsModel == "" {
		c.ttsModel = "gemini-2.5-flash-preview-tts"
	}
	return c
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// post sends payload to path, retrying on 429 with exponential backoff.
// After the final attempt the last failing status and body are returned
// rather than an error, so callers inspect the status themselves. Network
// failures are not retried.
func (c *Client) post(ctx context.Context, path string, payload any) (int, []byte, error) {
	if c.apiKey == "" {
		return 0, nil, ErrMissingAPIKey
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("gemini: marshal request: %w", err)
	}
	url := c.baseURL + path

	var status int
	var respBody []byte
	for attempt := 0; attempt < maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return 0, nil, fmt.Errorf("gemini: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return 0, nil, fmt.Errorf("gemini: http request: %w", err)
		}
		respBody, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return 0, nil, fmt.Errorf("gemini: read response: %w", err)
		}
		status = resp.StatusCode

		if status != http.StatusTooManyRequests || attempt == maxAttempts-1 {
			break
		}
		if err := c.sleep(ctx, time.Duration(1<<attempt)*time.Second); err != nil {
			return 0, nil, fmt.Errorf("gemini: backoff interrupted: %w", err)
		}
	}
	return status, respBody, nil
}

// GenerateRequest describes one text-generation call.
type GenerateRequest struct {
	Prompt    string
	System    string // optional system instruction
	JSONMode  bool   // request a structured JSON reply
	WebSearch bool   // attach the google-search grounding tool
}

// GenerateResponse is the text answer plus any grounding attributions, in
// the service's attribution order.
type GenerateResponse struct {
	Text    string
	Sources []types.Source
}

// GenerateContent runs one text-generation call against the configured text
// model.
func (c *Client) GenerateContent(ctx context.Context, r GenerateRequest) (*GenerateResponse, error) {
	req := generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: r.Prompt}}}},
	}
	if r.System != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: r.System}}}
	}
	if r.JSONMode {
		req.GenerationConfig = &generationConfig{ResponseMIMEType: "application/json"}
	}
	if r.WebSearch {
		req.Tools = []tool{{GoogleSearch: &googleSearch{}}}
	}

	status, body, err := c.post(ctx, "/models/"+c.textModel+":generateContent", req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &TransportError{StatusCode: status, Body: clip(string(body), 512)}
	}

	var gr generateContentResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, fmt.Errorf("gemini: unmarshal response: %w", err)
	}
	if len(gr.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: no candidates in response")
	}

	cand := gr.Candidates[0]
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}

	out := &GenerateResponse{Text: sb.String()}
	if cand.GroundingMetadata != nil {
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk.Web == nil {
				continue
			}
			out.Sources = append(out.Sources, types.Source{URI: chunk.Web.URI, Title: chunk.Web.Title})
		}
	}
	return out, nil
}

// GenerateImage runs one Imagen prediction and returns the decoded raster
// bytes of the first prediction.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	req := predictRequest{
		Instances:  []predictInstance{{Prompt: prompt}},
		Parameters: predictParameters{SampleCount: 1},
	}

	status, body, err := c.post(ctx, "/models/"+c.imageModel+":predict", req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &TransportError{StatusCode: status, Body: clip(string(body), 512)}
	}

	var pr predictResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("gemini: unmarshal prediction: %w", err)
	}
	if len(pr.Predictions) == 0 || pr.Predictions[0].BytesBase64Encoded == "" {
		return nil, fmt.Errorf("gemini: no image in prediction response")
	}

	img, err := base64.StdEncoding.DecodeString(pr.Predictions[0].BytesBase64Encoded)
	if err != nil {
		return nil, fmt.Errorf("gemini: decode image bytes: %w", err)
	}
	return img, nil
}

// GenerateSpeech synthesizes prompt with the given prebuilt voice and
// returns the inline base64 PCM plus its sample rate. The rate is read from
// the returned mime type (audio/L16;codec=pcm;rate=24000), defaulting to
// 24000 when absent.
func (c *Client) GenerateSpeech(ctx context.Context, prompt, voiceID string) (string, int, error) {
	req := generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: voiceID},
				},
			},
		},
	}

	status, body, err := c.post(ctx, "/models/"+c.ttsModel+":generateContent", req)
	if err != nil {
		return "", 0, err
	}
	if status != http.StatusOK {
		return "", 0, &TransportError{StatusCode: status, Body: clip(string(body), 512)}
	}

	var gr generateContentResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return "", 0, fmt.Errorf("gemini: unmarshal response: %w", err)
	}
	for _, cand := range gr.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				return p.InlineData.Data, sampleRateFromMime(p.InlineData.MimeType), nil
			}
		}
	}
	return "", 0, fmt.Errorf("gemini: no audio in response")
}

// sampleRateFromMime extracts the rate parameter from an audio mime type
// like "audio/L16;codec=pcm;rate=24000".
//
// Expectations:
//   - Parses the rate= parameter when present
//   - Falls back to 24000 when the parameter is missing or malformed
func sampleRateFromMime(mime string) int {
	for _, param := range strings.Split(mime, ";") {
		param = strings.TrimSpace(param)
		if v, ok := strings.CutPrefix(param, "rate="); ok {
			if rate, err := strconv.Atoi(v); err == nil && rate > 0 {
				return rate
			}
		}
	}
	return defaultSampleRate
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
