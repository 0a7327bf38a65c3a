// Package logging provides structured logging for animcore.
//
// It wraps Go's log/slog so every component (resolver, player, robot bridge,
// CLI) emits the same shape of entry.
//
// # Features
//
//   - JSON output for unattended robots, text output for the bench
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Optional append-only log file
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stderr"   # stdout, stderr, file
//	  file:
//	    path: "./logs/animcore.log"
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	defer logger.Close()
//	player.SetLogger(logger.Component("player"))
//	logger.Info("playback finished", "session_id", id, "status", "succeeded")
//
// Packages below infrastructure never import this package directly; they
// declare a small Logger interface that *Logger satisfies.
package logging
