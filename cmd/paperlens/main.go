package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/paperlens/paperlens/internal/config"
	"github.com/paperlens/paperlens/internal/gemini"
	"github.com/paperlens/paperlens/internal/history"
	"github.com/paperlens/paperlens/internal/player"
	"github.com/paperlens/paperlens/internal/prompt"
	"github.com/paperlens/paperlens/internal/session"
	"github.com/paperlens/paperlens/internal/types"
	"github.com/paperlens/paperlens/internal/ui"
)

var version = "v0.1.0" // Overwritten at build time

var (
	configPath string
	language   string
	voiceID    string
	detailed   bool
	noWeb      bool
	noCache    bool
)

func main() {
	// Load env
	_ = godotenv.Load(".env")

	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "paperlens",
		Short: "AI-assisted reading of research papers",
		Long: `paperlens summarizes research papers, grades their strength of
evidence, finds related work, and answers follow-up questions. Papers are
read from a file argument or from stdin.`,
		SilenceUsage: true,
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	home, _ := os.UserHomeDir()
	defaultConfig := filepath.Join(home, ".config", "paperlens", "config.yaml")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfig, "Path to config file")
	rootCmd.PersistentFlags().StringVar(&language, "lang", "", "Target language for summaries (e.g. en, ja)")
	rootCmd.PersistentFlags().StringVar(&voiceID, "voice", "", "Voice for read-aloud synthesis")
	rootCmd.PersistentFlags().BoolVar(&detailed, "detailed", false, "Produce a detailed summary instead of a concise one")
	rootCmd.PersistentFlags().BoolVar(&noWeb, "no-web", false, "Skip the related-work web search")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "Bypass the analysis cache")

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newAskCmd(),
		newImageCmd(),
		newSpeakCmd(),
		newHistoryCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("paperlens version %s\n", version)
		},
	}
}

// app bundles the wired collaborators for one command invocation.
type app struct {
	cfg   *config.Config
	sess  *session.Session
	store *history.Store
}

// newApp loads the config, applies flag overrides, and wires the session.
// The returned cleanup tears the session down and closes the history store.
func newApp(ctx context.Context) (*app, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if language != "" {
		cfg.Settings.TargetLanguage = language
	}
	if voiceID != "" {
		cfg.Settings.VoiceID = voiceID
	}
	if detailed {
		cfg.Settings.SummaryLength = types.SummaryDetailed
	}
	if noWeb {
		cfg.Settings.WebSearchEnabled = false
	}

	client := gemini.New(gemini.Config{
		APIKey:     config.APIKey(),
		BaseURL:    cfg.BaseURL,
		TextModel:  cfg.Models.Text,
		ImageModel: cfg.Models.Image,
		TTSModel:   cfg.Models.TTS,
	})

	opts := session.Options{Player: player.New()}
	var store *history.Store
	if !noCache {
		if st, err := history.Open(filepath.Join(cfg.CacheDir, "history")); err != nil {
			fmt.Fprintf(os.Stderr, "warning: history cache unavailable: %v\n", err)
		} else {
			store = st
			opts.Cache = st
		}
	}

	sess := session.New(ctx, client, cfg.Settings, opts)
	cleanup := func() {
		sess.Close()
		if store != nil {
			store.Close()
		}
	}
	return &app{cfg: cfg, sess: sess, store: store}, cleanup, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// readDocument reads the paper text from the file argument, or from stdin
// when no argument (or "-") is given.
func readDocument(args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", fmt.Errorf("empty document: pass a file or pipe text on stdin")
	}
	return string(data), nil
}

func newSpinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond)
	s.Suffix = " " + suffix
	return s
}

func printSuccess(msg string) {
	color.New(color.FgGreen).Printf("✓ %s\n", msg)
}

func printWarn(msg string) {
	color.New(color.FgYellow).Printf("! %s\n", msg)
}

// analyze runs the analysis with spinner feedback and waits for the
// related-work search to settle before returning the merged result.
func analyze(ctx context.Context, a *app, document string) (*types.AnalysisResult, error) {
	s := newSpinner("Analyzing paper...")
	s.Start()
	_, err := a.sess.Analyze(ctx, document)
	s.Stop()
	if err != nil {
		return nil, err
	}
	printSuccess("Analysis complete")

	if a.sess.Settings().WebSearchEnabled {
		s = newSpinner("Searching for related work...")
		s.Start()
		a.sess.Wait()
		s.Stop()
		if a.sess.Result().Related != nil {
			printSuccess("Related work found")
		} else {
			printWarn("Related work search returned nothing")
		}
	}
	return a.sess.Result(), nil
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [FILE]",
		Short: "Summarize a paper and grade its strength of evidence",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			document, err := readDocument(args)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			a, cleanup, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := analyze(ctx, a, document)
			if err != nil {
				return err
			}
			fmt.Println()
			fmt.Println(ui.RenderResult(res, ui.DefaultWidth))
			return nil
		},
	}
}

func newImageCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "image [FILE]",
		Short: "Generate an illustration for a paper's summary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			document, err := readDocument(args)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			a, cleanup, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if _, err := analyze(ctx, a, document); err != nil {
				return err
			}

			s := newSpinner("Generating image...")
			s.Start()
			img, err := a.sess.GenerateImage(ctx)
			s.Stop()
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, img, 0o644); err != nil {
				return err
			}
			printSuccess("Image written to " + outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "paperlens.png", "Output image path")
	return cmd
}

func newSpeakCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "speak [FILE]",
		Short: "Read a paper's summary aloud",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			document, err := readDocument(args)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			a, cleanup, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if _, err := analyze(ctx, a, document); err != nil {
				return err
			}

			s := newSpinner("Synthesizing speech...")
			s.Start()
			if outPath != "" {
				data, err := a.sess.Synthesize(ctx)
				s.Stop()
				if err != nil {
					return err
				}
				if err := os.WriteFile(outPath, data, 0o644); err != nil {
					return err
				}
				printSuccess("Audio written to " + outPath)
				return nil
			}
			err = a.sess.SynthesizeSpeech(ctx)
			s.Stop()
			if err != nil {
				return err
			}
			printSuccess("Playing...")
			a.sess.Wait()
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write a WAV file instead of playing")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent analyses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			store, err := history.Open(filepath.Join(cfg.CacheDir, "history"))
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No analyses yet.")
				return nil
			}
			bold := color.New(color.Bold)
			for _, e := range entries {
				bold.Printf("%s  %s\n", e.CreatedAt, ui.EvidenceLabel(e.Result.Evidence.Level))
				fmt.Printf("  %s\n", prompt.TruncateRunes(e.Result.Summary, 100))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum entries to show")
	return cmd
}
