package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pepperlife/animcore/internal/bridges/naoqi"
	"github.com/pepperlife/animcore/internal/infrastructure/mqtt"
	"github.com/pepperlife/animcore/internal/playback"
)

func newPlayCmd(root *rootOptions) *cobra.Command {
	var audioOverride string

	cmd := &cobra.Command{
		Use:   "play PATH",
		Short: "Play an animation on the robot",
		Long: `Play an animation on the robot.

PATH may be a .qianim or .xar file, a .pml project, a directory holding one
of them, or a name without extension. Audio with the same base name is
played alongside unless --audio names another file or directory.

The command exits 1 when the run aborts. The robot is returned to its
neutral posture and its idle behaviours are restored either way.

Examples:
  animplay play animations/wave.qianim
  animplay play behaviors/dance --audio music/dance.ogg
  animplay -c /etc/animcore/config.yaml play hello`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), root, args[0], audioOverride, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&audioOverride, "audio", "a", "", "audio file or directory to play with the animation")
	return cmd
}

// runPlay connects the infrastructure, plays one animation and reports the
// outcome. Deferred Close calls run in reverse order: bridge, InfluxDB,
// MQTT, database, logger.
func runPlay(ctx context.Context, root *rootOptions, path, audioOverride string, out io.Writer) error {
	cfg, log, err := root.load()
	if err != nil {
		return err
	}
	defer log.Close() //nolint:errcheck // Nothing useful to do on exit

	db, repo, err := openHistory(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	mqttClient.SetLogger(log.Component("mqtt"))
	defer func() {
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	var metrics playback.MetricsWriter
	if influxClient := connectTelemetry(cfg.InfluxDB, log); influxClient != nil {
		defer influxClient.Close() //nolint:errcheck // Close flushes; it never fails
		metrics = influxClient
	}

	bridge, err := naoqi.NewBridge(naoqi.Options{
		MQTT:    mqttClient,
		Robot:   cfg.Robot.Name,
		Timeout: cfg.Robot.RequestTimeout,
		QoS:     byte(cfg.MQTT.QoS), //nolint:gosec // QoS validated to 0..2 by config
		Logger:  log.Component("naoqi"),
	})
	if err != nil {
		return fmt.Errorf("creating NAOqi bridge: %w", err)
	}
	if err := bridge.Start(); err != nil {
		return fmt.Errorf("starting NAOqi bridge: %w", err)
	}
	defer func() {
		if closeErr := bridge.Close(); closeErr != nil {
			log.Error("error closing NAOqi bridge", "error", closeErr)
		}
	}()

	robot := bridge.Robot()
	robot.Audio, err = audioPlayer(cfg, robot.Audio, log)
	if err != nil {
		return err
	}

	player := playback.NewPlayer(robot, playbackOptions(cfg), repo, mqttClient, metrics, log.Component("playback"))
	outcome := player.Play(ctx, path, audioOverride)

	renderOutcome(out, path, outcome)
	if outcome.Succeeded() {
		return nil
	}
	if outcome.Reason == nil {
		return errAborted
	}
	return fmt.Errorf("%w: %w", errAborted, outcome.Reason)
}
