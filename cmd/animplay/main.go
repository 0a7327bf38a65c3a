// Command animplay plays keyframe animations on a Pepper or NAO robot.
//
// It resolves an animation file, descriptor or directory, parses it,
// normalises its units against the robot's joint limits, and drives the
// robot through the NAOqi MQTT bridge. Every run is recorded in the local
// SQLite history, announced on MQTT and, when enabled, written to InfluxDB.
//
// Usage:
//
//	animplay [--config FILE] play PATH [--audio FILE]
//	animplay [--config FILE] history [ID] [--limit N]
//	animplay inspect PATH [--audio FILE]
//	animplay version
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// configEnvVar overrides defaultConfigPath.
const configEnvVar = "ANIMCORE_CONFIG"

// errAborted marks a playback that ran but did not succeed.
var errAborted = errors.New("playback aborted")

func main() {
	// Cancelling the context stops the robot and aborts the run
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// execute runs the command line and returns the process exit code.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - args: Command-line arguments without the program name
//   - stdout, stderr: Output streams
//
// Returns:
//   - int: 0 on success, 1 on any failure including an aborted playback
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
