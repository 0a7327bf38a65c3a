package naoqi

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/pepperlife/animcore/internal/playback"
	"github.com/pepperlife/animcore/internal/timeline"
)

// Extra time granted to calls that block on the robot, on top of the
// request timeout.
const (
	idleBudget    = 30 * time.Second
	speechBudget  = 60 * time.Second
	postureBudget = 30 * time.Second
)

// ─── Motion ─────────────────────────────────────────────────────────────────

// JointLimits returns the joint's angle and velocity limits.
// Unknown joints return an error wrapping timeline.ErrLimitsUnavailable.
func (b *Bridge) JointLimits(ctx context.Context, joint string) (timeline.Limits, error) {
	data, err := b.call(ctx, ServiceMotion, "get_limits", map[string]any{"joint": joint}, 0)
	if err != nil {
		return timeline.Limits{}, err
	}
	res := gjson.ParseBytes(data)
	lo, hi := res.Get("min"), res.Get("max")
	if !lo.Exists() || !hi.Exists() {
		return timeline.Limits{}, fmt.Errorf("%w: limits of %s missing min or max", ErrInvalidResponse, joint)
	}
	return timeline.Limits{
		Min:         lo.Float(),
		Max:         hi.Float(),
		MaxVelocity: res.Get("max_velocity").Float(),
	}, nil
}

// SetAngles starts a non-blocking move.
func (b *Bridge) SetAngles(ctx context.Context, names []string, angles []float64, speed float64) error {
	_, err := b.call(ctx, ServiceMotion, "set_angles", map[string]any{
		"names":  names,
		"angles": angles,
		"speed":  speed,
	}, 0)
	return err
}

// Interpolate runs a blocking timed interpolation. The exchange may last as
// long as the latest key time plus the request timeout.
func (b *Bridge) Interpolate(ctx context.Context, names []string, values, times [][]float64, absolute bool) error {
	_, err := b.call(ctx, ServiceMotion, "angle_interpolation", map[string]any{
		"names":    names,
		"angles":   values,
		"times":    times,
		"absolute": absolute,
	}, latestTime(times))
	return err
}

// StopMove stops the current move.
func (b *Bridge) StopMove(ctx context.Context) error {
	_, err := b.call(ctx, ServiceMotion, "stop_move", nil, 0)
	return err
}

// WaitUntilIdle blocks until the robot reports no running motion task.
func (b *Bridge) WaitUntilIdle(ctx context.Context) error {
	_, err := b.call(ctx, ServiceMotion, "wait_until_idle", nil, idleBudget)
	return err
}

// WakeUp turns the motors on.
func (b *Bridge) WakeUp(ctx context.Context) error {
	_, err := b.call(ctx, ServiceMotion, "wake_up", nil, idleBudget)
	return err
}

// latestTime returns the largest key time, as a duration.
func latestTime(times [][]float64) time.Duration {
	var latest float64
	for _, ts := range times {
		if n := len(ts); n > 0 && ts[n-1] > latest {
			latest = ts[n-1]
		}
	}
	return time.Duration(latest * float64(time.Second))
}

// ─── Behaviour ──────────────────────────────────────────────────────────────

// Enabled reports whether an autonomous service is enabled. Services without
// an enable toggle return an error wrapping playback.ErrUnsupported.
func (b *Bridge) Enabled(ctx context.Context, service string) (bool, error) {
	return b.boolQuery(ctx, "get_enabled", service, "enabled")
}

// SetEnabled enables or disables an autonomous service.
func (b *Bridge) SetEnabled(ctx context.Context, service string, enabled bool) error {
	_, err := b.call(ctx, ServiceBehavior, "set_enabled", map[string]any{"service": service, "enabled": enabled}, 0)
	return err
}

// Paused reports whether an autonomous service is paused.
func (b *Bridge) Paused(ctx context.Context, service string) (bool, error) {
	return b.boolQuery(ctx, "get_paused", service, "paused")
}

// SetPaused pauses or resumes an autonomous service.
func (b *Bridge) SetPaused(ctx context.Context, service string, paused bool) error {
	_, err := b.call(ctx, ServiceBehavior, "set_paused", map[string]any{"service": service, "paused": paused}, 0)
	return err
}

func (b *Bridge) boolQuery(ctx context.Context, method, service, field string) (bool, error) {
	data, err := b.call(ctx, ServiceBehavior, method, map[string]any{"service": service}, 0)
	if err != nil {
		return false, err
	}
	v := gjson.GetBytes(data, field)
	if !v.IsBool() {
		return false, fmt.Errorf("%w: %s of %s is not a boolean", ErrInvalidResponse, field, service)
	}
	return v.Bool(), nil
}

// ─── Speech ─────────────────────────────────────────────────────────────────

// Say speaks text and returns once it has been spoken.
func (b *Bridge) Say(ctx context.Context, text string) error {
	_, err := b.call(ctx, ServiceSpeech, "say", map[string]any{"text": text}, speechBudget)
	return err
}

// SayAsync queues text and returns immediately.
func (b *Bridge) SayAsync(ctx context.Context, text string) error {
	_, err := b.call(ctx, ServiceSpeech, "say_async", map[string]any{"text": text}, 0)
	return err
}

// ─── Audio ──────────────────────────────────────────────────────────────────

// PlayFile starts playing a file stored on the robot. The returned handle is
// the robot's playback task ID.
func (b *Bridge) PlayFile(ctx context.Context, path string, volume, pan float64) (playback.AudioHandle, error) {
	data, err := b.call(ctx, ServiceAudio, "play_file", map[string]any{
		"path":   path,
		"volume": volume,
		"pan":    pan,
	}, 0)
	if err != nil {
		return "", err
	}
	id := gjson.GetBytes(data, "id")
	if !id.Exists() {
		return "", fmt.Errorf("%w: play_file returned no task id", ErrInvalidResponse)
	}
	return playback.AudioHandle(id.String()), nil
}

// Stop stops the audio task identified by handle.
func (b *Bridge) Stop(ctx context.Context, handle playback.AudioHandle) error {
	_, err := b.call(ctx, ServiceAudio, "stop", map[string]any{"id": string(handle)}, 0)
	return err
}

// ─── Posture ────────────────────────────────────────────────────────────────

// GoToPosture moves to a predefined posture. A posture the robot could not
// reach is reported as ErrRemote.
func (b *Bridge) GoToPosture(ctx context.Context, name string, speed float64) error {
	data, err := b.call(ctx, ServicePosture, "go_to_posture", map[string]any{"name": name, "speed": speed}, postureBudget)
	if err != nil {
		return err
	}
	if reached := gjson.GetBytes(data, "reached"); reached.Exists() && !reached.Bool() {
		return fmt.Errorf("%w: posture %s not reached", ErrRemote, name)
	}
	return nil
}
