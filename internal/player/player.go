// Package player plays a WAV buffer through whichever command-line audio
// player the host system has installed.
package player

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// candidates are tried in order; the first binary found on PATH wins.
// afplay covers macOS, paplay/aplay Linux audio stacks, ffplay the rest.
var candidates = [][]string{
	{"afplay"},
	{"paplay"},
	{"aplay", "-q"},
	{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
}

// Player writes WAV bytes to a temp file and shells out to a system player.
type Player struct {
	// lookPath is exec.LookPath, replaceable in tests.
	lookPath func(string) (string, error)
}

func New() *Player {
	return &Player{lookPath: exec.LookPath}
}

// Play blocks until playback finishes or ctx is cancelled. The temp file is
// removed afterwards.
func (p *Player) Play(ctx context.Context, wavData []byte) error {
	bin, args, err := p.resolve()
	if err != nil {
		return err
	}

	f, err := os.CreateTemp("", "paperlens-*.wav")
	if err != nil {
		return fmt.Errorf("player: temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(wavData); err != nil {
		f.Close()
		return fmt.Errorf("player: write %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("player: close %s: %w", filepath.Base(path), err)
	}

	cmd := exec.CommandContext(ctx, bin, append(args, path)...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("player: %s: %w", bin, err)
	}
	return nil
}

// resolve picks the first available player binary.
//
// Expectations:
//   - Candidates are probed in declared order
//   - Returns the binary's extra args alongside its name
//   - Errors when no candidate is installed
func (p *Player) resolve() (string, []string, error) {
	for _, cand := range candidates {
		if _, err := p.lookPath(cand[0]); err == nil {
			return cand[0], cand[1:], nil
		}
	}
	return "", nil, fmt.Errorf("player: no audio player found (tried afplay, paplay, aplay, ffplay)")
}
