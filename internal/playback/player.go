package playback

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pepperlife/animcore/internal/normalize"
	"github.com/pepperlife/animcore/internal/resolver"
	"github.com/pepperlife/animcore/internal/timeline"
)

// MeasurementPlayback is the telemetry measurement written after each run.
const MeasurementPlayback = "playback"

// recordTimeout bounds history, event and telemetry writes after a run.
const recordTimeout = 5 * time.Second

// Player is the top-level playback entry point.
//
// It resolves, parses and normalises an animation, runs it through the
// Sequencer, then records the execution, publishes an event and writes a
// telemetry point. The three sinks are optional.
//
// Thread Safety: Play is safe for concurrent use; calls are serialised.
type Player struct {
	mu      sync.Mutex
	robot   Robot
	opts    Options
	seq     *Sequencer
	repo    Repository
	events  EventPublisher
	metrics MetricsWriter
	logger  Logger
}

// NewPlayer creates a Player.
//
// Parameters:
//   - robot: Robot collaborators; only Motion is required to move
//   - opts: Playback options
//   - repo: Execution history (may be nil)
//   - events: Event publisher (may be nil, or disabled by an empty EventTopic)
//   - metrics: Telemetry writer (may be nil)
//   - logger: Logger instance (may be nil)
func NewPlayer(robot Robot, opts Options, repo Repository, events EventPublisher, metrics MetricsWriter, logger Logger) *Player {
	if logger == nil {
		logger = noopLogger{}
	}
	opts = opts.withDefaults()
	return &Player{
		robot:   robot,
		opts:    opts,
		seq:     NewSequencer(robot, opts, logger),
		repo:    repo,
		events:  events,
		metrics: metrics,
		logger:  logger,
	}
}

// Play plays the animation designated by path.
//
// Failures before the guard engages (resolution, parsing, duplicate
// actuators) leave the robot untouched. Later failures go through cleanup
// first. Play never returns an error and never panics; the result is
// reported in the Outcome.
//
// Parameters:
//   - ctx: Cancelling it stops the robot and aborts the run
//   - path: Animation file, descriptor, directory or extension-less name
//   - audioOverride: Explicit audio file or directory, or ""
//
// Returns:
//   - Outcome: Status, stage reached, reason and warnings
func (p *Player) Play(ctx context.Context, path, audioOverride string) (out Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	exec := &Execution{
		ID:         GenerateID(),
		Robot:      p.opts.Robot,
		SourcePath: path,
		Format:     timeline.FormatUnknown.String(),
		Status:     StatusRunning,
		Stage:      StageIdle,
		StartedAt:  start.UTC(),
	}
	if p.repo != nil {
		if err := p.repo.CreateExecution(ctx, exec); err != nil {
			p.logger.Error("failed to create execution record", "error", err)
			// Continue: playing matters more than recording it
		}
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic during playback", "execution_id", exec.ID, "stage", exec.Stage, "panic", r)
			out = Outcome{
				Status: StatusAborted,
				Reason: fmt.Errorf("%w: %v", ErrPanic, r),
				Stage:  exec.Stage,
			}
		}
		out.ExecutionID = exec.ID
		p.finish(ctx, exec, out, start)
	}()

	return p.play(ctx, exec, path, audioOverride)
}

func (p *Player) play(ctx context.Context, exec *Execution, path, audioOverride string) Outcome {
	exec.Stage = StageResolve
	src, err := resolver.Resolve(path, audioOverride)
	if err != nil {
		return p.abort(exec, err)
	}
	exec.Format = src.Format.String()
	exec.AudioPath = src.AudioPath
	p.logger.Info("animation resolved",
		"execution_id", exec.ID,
		"path", src.PrimaryPath,
		"format", exec.Format,
		"audio", src.AudioPath,
		"descriptor", src.DescriptorPath,
	)

	exec.Stage = StageParse
	data, err := os.ReadFile(src.PrimaryPath)
	if err != nil {
		return p.abort(exec, fmt.Errorf("reading animation: %w", err))
	}

	var limits timeline.LimitsSource
	if p.robot.Motion != nil {
		limits = p.robot.Motion
	}

	plan := Plan{SessionID: exec.ID, AudioPath: src.AudioPath}
	switch {
	case src.Format == timeline.FormatXAR:
		b, parseErr := timeline.ParseXAR(ctx, data, timeline.XAROptions{
			SpeedFactor: p.opts.XARSpeedFactor,
			Limits:      limits,
		})
		if parseErr != nil {
			return p.abort(exec, parseErr)
		}
		if b.DuplicateCurves > 0 || len(b.Slowed) > 0 {
			p.logger.Info("behavior graph adjusted",
				"execution_id", exec.ID,
				"duplicate_curves", b.DuplicateCurves,
				"slowed", b.Slowed,
				"unclamped", b.Unclamped,
			)
		}
		plan.Timeline = b.Timeline
		plan.Speech = b.Speech
		exec.UnitMode = normalize.UnitRadians.String()
	case src.Format.IsQiAnim():
		tl, parseErr := timeline.ParseQiAnim(data, src.Format)
		if parseErr != nil {
			return p.abort(exec, parseErr)
		}
		if dupErr := tl.CheckUnique(); dupErr != nil {
			return p.abort(exec, dupErr)
		}

		exec.Stage = StageNormalize
		report, normErr := normalize.Normalize(ctx, tl, limits, normalize.Options{Epsilon: p.opts.ClampEpsilon})
		if normErr != nil {
			return p.abort(exec, normErr)
		}
		exec.UnitMode = report.Unit.String()
		exec.Clamped = report.Clamped
		p.logger.Info("timeline normalised",
			"execution_id", exec.ID,
			"unit", report.Unit.String(),
			"basis", string(report.Basis),
			"clamped", report.Clamped,
			"no_limits", report.NoLimits,
		)
		plan.Timeline = tl
	default:
		return p.abort(exec, fmt.Errorf("%w: unsupported format %s", timeline.ErrParse, src.Format))
	}
	exec.Joints = len(plan.Timeline.Curves)

	return p.seq.Run(ctx, plan)
}

func (p *Player) abort(exec *Execution, err error) Outcome {
	p.logger.Error("playback aborted", "execution_id", exec.ID, "stage", exec.Stage, "error", err)
	return Outcome{Status: StatusAborted, Reason: err, Stage: exec.Stage}
}

// finish completes the execution record and notifies the sinks.
func (p *Player) finish(ctx context.Context, exec *Execution, out Outcome, start time.Time) {
	now := time.Now().UTC()
	exec.Status = out.Status
	exec.Stage = out.Stage
	exec.Warnings = out.Warnings
	if out.Reason != nil {
		exec.Error = out.Reason.Error()
	}
	exec.CompletedAt = &now
	exec.DurationMS = time.Since(start).Milliseconds()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if p.repo != nil {
		if err := p.repo.UpdateExecution(ctx, exec); err != nil {
			p.logger.Error("failed to update execution record", "execution_id", exec.ID, "error", err)
		}
	}
	p.publish(exec)
	p.writeMetrics(exec, now)

	p.logger.Info("playback finished",
		"execution_id", exec.ID,
		"status", string(exec.Status),
		"stage", string(exec.Stage),
		"warnings", len(exec.Warnings),
		"duration_ms", exec.DurationMS,
	)
}

func (p *Player) publish(exec *Execution) {
	if p.events == nil || p.opts.EventTopic == "" {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"execution_id": exec.ID,
		"robot":        exec.Robot,
		"source":       exec.SourcePath,
		"format":       exec.Format,
		"status":       exec.Status,
		"stage":        exec.Stage,
		"error":        exec.Error,
		"duration_ms":  exec.DurationMS,
		"timestamp":    exec.CompletedAt.Format(time.RFC3339),
	})
	if err != nil {
		p.logger.Error("failed to marshal playback event", "error", err)
		return
	}
	if err := p.events.Publish(p.opts.EventTopic, payload, 1, false); err != nil {
		p.logger.Warn("failed to publish playback event", "topic", p.opts.EventTopic, "error", err)
	}
}

func (p *Player) writeMetrics(exec *Execution, at time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.WritePointWithTime(MeasurementPlayback,
		map[string]string{
			"robot":  exec.Robot,
			"format": exec.Format,
			"status": string(exec.Status),
			"stage":  string(exec.Stage),
		},
		map[string]interface{}{
			"duration_ms": exec.DurationMS,
			"joints":      exec.Joints,
			"clamped":     exec.Clamped,
			"warnings":    len(exec.Warnings),
		},
		at,
	)
}
