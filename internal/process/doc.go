// Package process supervises short-lived child processes.
//
// animcore uses it to run an external audio player for the length of one
// playback: the player is started when interpolation begins and stopped
// during cleanup, or left to finish on its own.
//
// Features:
//   - Start in a dedicated process group so Stop reaches every child
//   - Graceful stop: SIGTERM, then SIGKILL after a timeout
//   - Wait with context cancellation and an exit callback
//   - stdout/stderr forwarded to the debug log
//
// Example usage:
//
//	mgr := process.NewManager(process.Config{
//	    Name:            "aplay",
//	    Binary:          "aplay",
//	    Args:            []string{"-q", "/anims/wave.wav"},
//	    GracefulTimeout: 2 * time.Second,
//	})
//
//	if err := mgr.Start(ctx); err != nil {
//	    return err
//	}
//	defer mgr.Stop()
package process
