package audio

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pepperlife/animcore/internal/playback"
	"github.com/pepperlife/animcore/internal/process"
)

// Argument placeholders expanded in player command lines.
const (
	placeholderFile   = "{file}"
	placeholderVolume = "{volume}"
)

// Options configures a LocalPlayer.
type Options struct {
	// Players maps a lowercase extension including the dot (".wav") to argv.
	Players map[string][]string

	// StopTimeout bounds the wait after SIGTERM before the player is killed.
	StopTimeout time.Duration

	// Logger is optional; it also receives the player's output at debug level.
	Logger process.Logger
}

// LocalPlayer plays one file at a time through an external player process.
//
// Thread Safety: All methods are safe for concurrent use.
type LocalPlayer struct {
	opts Options

	mu      sync.Mutex
	handle  playback.AudioHandle
	current *process.Manager
}

var _ playback.AudioPlayer = (*LocalPlayer)(nil)

// NewLocalPlayer creates a LocalPlayer.
func NewLocalPlayer(opts Options) *LocalPlayer {
	players := make(map[string][]string, len(opts.Players))
	for ext, argv := range opts.Players {
		players[strings.ToLower(ext)] = argv
	}
	opts.Players = players
	return &LocalPlayer{opts: opts}
}

// PlayFile starts the player for path and returns without waiting for it.
//
// Parameters:
//   - ctx: Bounds the process start only
//   - path: Audio file; it must exist
//   - volume: 0..1, substituted for {volume} as a percentage
//   - pan: Not supported by command-line players; ignored
//
// Returns:
//   - playback.AudioHandle: Handle for Stop
//   - error: ErrUnsupportedFormat, ErrAlreadyRunning, a stat error, or a start failure
func (p *LocalPlayer) PlayFile(ctx context.Context, path string, volume, _ float64) (playback.AudioHandle, error) {
	argv, ok := p.opts.Players[strings.ToLower(filepath.Ext(path))]
	if !ok || len(argv) == 0 {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("audio file: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil && p.current.IsRunning() {
		return "", fmt.Errorf("%w: %s", ErrAlreadyRunning, p.handle)
	}

	args := expandArgs(argv[1:], path, volume)
	handle := playback.AudioHandle(uuid.New().String())
	mgr := process.NewManager(process.Config{
		Name:            filepath.Base(argv[0]),
		Binary:          argv[0],
		Args:            args,
		GracefulTimeout: p.opts.StopTimeout,
	})
	if p.opts.Logger != nil {
		mgr.SetLogger(p.opts.Logger)
	}
	if err := mgr.Start(ctx); err != nil {
		return "", err
	}

	p.handle = handle
	p.current = mgr
	if p.opts.Logger != nil {
		p.opts.Logger.Debug("audio playback started",
			"handle", string(handle),
			"player", argv[0],
			"pid", mgr.PID(),
		)
	}
	return handle, nil
}

// Stop stops the playback identified by handle. A playback that already
// finished stops without error.
func (p *LocalPlayer) Stop(_ context.Context, handle playback.AudioHandle) error {
	p.mu.Lock()
	if p.current == nil || handle != p.handle {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownHandle, handle)
	}
	mgr := p.current
	p.current = nil
	p.handle = ""
	p.mu.Unlock()

	err := mgr.Stop()
	if p.opts.Logger != nil {
		stats := mgr.Stats()
		p.opts.Logger.Debug("audio playback stopped",
			"handle", string(handle),
			"player", stats.Name,
			"runtime", stats.Runtime,
		)
	}
	return err
}

// expandArgs substitutes placeholders and appends path when {file} is absent.
func expandArgs(args []string, path string, volume float64) []string {
	percent := strconv.Itoa(int(math.Round(math.Max(0, math.Min(1, volume)) * 100)))
	out := make([]string, 0, len(args)+1)
	hasFile := false
	for _, a := range args {
		if strings.Contains(a, placeholderFile) {
			hasFile = true
			a = strings.ReplaceAll(a, placeholderFile, path)
		}
		out = append(out, strings.ReplaceAll(a, placeholderVolume, percent))
	}
	if !hasFile {
		out = append(out, path)
	}
	return out
}
