package main

import (
	"context"
	"errors"
	"fmt"

	_ "github.com/pepperlife/animcore/migrations"

	"github.com/pepperlife/animcore/internal/audio"
	"github.com/pepperlife/animcore/internal/infrastructure/config"
	"github.com/pepperlife/animcore/internal/infrastructure/database"
	"github.com/pepperlife/animcore/internal/infrastructure/influxdb"
	"github.com/pepperlife/animcore/internal/infrastructure/logging"
	"github.com/pepperlife/animcore/internal/infrastructure/mqtt"
	"github.com/pepperlife/animcore/internal/playback"
)

// Audio backends selectable in playback.audio_backend.
const (
	audioBackendRobot = "robot"
	audioBackendLocal = "local"
	audioBackendNone  = "none"
)

// eventCompleted is the playback event published after every run.
const eventCompleted = "completed"

// openHistory opens and migrates the history database.
//
// Returns:
//   - *database.DB: Open database, nil when history is disabled
//   - playback.Repository: Repository over it, nil when disabled
//   - error: Open or migration failure
func openHistory(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (*database.DB, playback.Repository, error) {
	db, err := database.Open(cfg)
	if errors.Is(err, database.ErrDisabled) {
		log.Info("playback history disabled")
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Debug("database ready", "path", db.Path())

	return db, playback.NewSQLiteRepository(db.DB), nil
}

// connectTelemetry connects to InfluxDB when enabled. A disabled or
// unreachable server yields nil: telemetry never blocks playback.
func connectTelemetry(cfg config.InfluxDBConfig, log *logging.Logger) *influxdb.Client {
	client, err := influxdb.Connect(cfg)
	if errors.Is(err, influxdb.ErrDisabled) {
		return nil
	}
	if err != nil {
		log.Warn("InfluxDB unavailable, telemetry disabled", "url", cfg.URL, "error", err)
		return nil
	}
	client.SetOnError(func(err error) {
		log.Warn("InfluxDB write error", "error", err)
	})
	log.Debug("InfluxDB connected", "url", cfg.URL, "bucket", cfg.Bucket)
	return client
}

// audioPlayer selects the audio collaborator.
//
// Parameters:
//   - cfg: Application configuration
//   - robotAudio: The robot's own audio service
//   - log: Logger for local player processes
//
// Returns:
//   - playback.AudioPlayer: nil for the "none" backend
//   - error: Unknown backend
func audioPlayer(cfg *config.Config, robotAudio playback.AudioPlayer, log *logging.Logger) (playback.AudioPlayer, error) {
	switch cfg.Playback.AudioBackend {
	case audioBackendRobot, "":
		return robotAudio, nil
	case audioBackendLocal:
		return audio.NewLocalPlayer(audio.Options{
			Players:     cfg.Audio.Players,
			StopTimeout: cfg.Audio.StopTimeout,
			Logger:      log.Component("audio"),
		}), nil
	case audioBackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", cfg.Playback.AudioBackend)
	}
}

// playbackOptions maps the configuration onto the player's options.
func playbackOptions(cfg *config.Config) playback.Options {
	return playback.Options{
		Robot:          cfg.Robot.Name,
		WakeUp:         cfg.Robot.WakeUp,
		GuardServices:  cfg.Robot.GuardServices,
		NeutralPosture: cfg.Robot.NeutralPosture,
		PostureSpeed:   cfg.Robot.PostureSpeed,
		Boost: playback.BoostOptions{
			Enabled:   cfg.Playback.Boost.Enabled,
			Speed:     cfg.Playback.Boost.Speed,
			MinLeadIn: cfg.Playback.Boost.MinLeadIn,
		},
		Preposition: playback.PrepositionOptions{
			Enabled:     cfg.Playback.Preposition.Enabled,
			Speed:       cfg.Playback.Preposition.Speed,
			GuardBand:   cfg.Playback.Preposition.GuardBand,
			Settle:      cfg.Playback.Preposition.Settle,
			WaitTimeout: cfg.Playback.Preposition.WaitTimeout,
		},
		ClampEpsilon:      cfg.Playback.ClampEpsilon,
		IdleTimeout:       cfg.Playback.IdleTimeout,
		CleanupTimeout:    cfg.Playback.CleanupTimeout,
		SpeechBeforeGuard: cfg.Playback.SpeechBeforeGuard,
		XARSpeedFactor:    cfg.Playback.XARSpeedFactor,
		AudioVolume:       cfg.Playback.AudioVolume,
		AudioPan:          cfg.Playback.AudioPan,
		EventTopic:        mqtt.Topics{}.PlaybackEvent(cfg.Robot.Name, eventCompleted),
	}
}
