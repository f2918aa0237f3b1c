// Package config loads the YAML configuration file and applies defaults.
// The API key is deliberately not part of the file: it comes from the
// GEMINI_API_KEY environment variable (optionally via .env) so credentials
// never land in config checked into dotfiles.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/paperlens/paperlens/internal/types"
)

// Models names the remote model for each operation kind.
type Models struct {
	Text  string `yaml:"text"`
	Image string `yaml:"image"`
	TTS   string `yaml:"tts"`
}

type Config struct {
	Settings types.Settings `yaml:"settings"`
	Models   Models         `yaml:"models"`
	BaseURL  string         `yaml:"base_url"`
	CacheDir string         `yaml:"cache_dir"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Settings: types.Settings{
			SummaryLength:    types.SummaryConcise,
			VoiceID:          "Kore",
			WebSearchEnabled: true,
			TargetLanguage:   "en",
		},
		Models: Models{
			Text:  "gemini-2.5-flash",
			Image: "imagen-3.0-generate-002",
			TTS:   "gemini-2.5-flash-preview-tts",
		},
		CacheDir: filepath.Join(home, ".cache", "paperlens"),
	}
}

// Load reads path and overlays it on the defaults. A missing file is not an
// error: the defaults are returned so the CLI works with zero setup.
//
// Expectations:
//   - Missing file returns Default() without error
//   - Set fields override defaults; unset fields keep them
//   - Invalid YAML is an error
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var in Config
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if in.Settings.SummaryLength != "" {
		cfg.Settings.SummaryLength = in.Settings.SummaryLength
	}
	if in.Settings.VoiceID != "" {
		cfg.Settings.VoiceID = in.Settings.VoiceID
	}
	if in.Settings.TargetLanguage != "" {
		cfg.Settings.TargetLanguage = in.Settings.TargetLanguage
	}
	// Booleans can't distinguish unset from false in YAML, so web search is
	// controlled by an explicit tri-state key.
	cfg.Settings.WebSearchEnabled = in.Settings.WebSearchEnabled || !hasKey(data, "web_search")
	if in.Models.Text != "" {
		cfg.Models.Text = in.Models.Text
	}
	if in.Models.Image != "" {
		cfg.Models.Image = in.Models.Image
	}
	if in.Models.TTS != "" {
		cfg.Models.TTS = in.Models.TTS
	}
	if in.BaseURL != "" {
		cfg.BaseURL = in.BaseURL
	}
	if in.CacheDir != "" {
		cfg.CacheDir = in.CacheDir
	}
	return cfg, nil
}

// hasKey reports whether the raw YAML document mentions key at all, so a
// boolean default survives only when the key is genuinely absent.
func hasKey(data []byte, key string) bool {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return false
	}
	return mapHasKey(doc, key)
}

func mapHasKey(doc map[string]any, key string) bool {
	for k, v := range doc {
		if k == key {
			return true
		}
		if child, ok := v.(map[string]any); ok && mapHasKey(child, key) {
			return true
		}
	}
	return false
}

// APIKey reads the credential from the environment. An empty result is not
// fatal here: the transport surfaces a configuration error on the first
// remote call instead.
func APIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}
