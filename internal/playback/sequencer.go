package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pepperlife/animcore/internal/timeline"
)

// Plan is the input of one Sequencer run.
type Plan struct {
	// SessionID tags log lines; a new ID is generated when empty.
	SessionID string

	// Timeline must already be in radians and clamped. Run works on a copy,
	// so the lead-in shift never shows in the caller's timeline.
	Timeline *timeline.Timeline

	// Speech is spoken in order; blocking sentences are awaited.
	Speech []timeline.SpeechAction

	// AudioPath is played from the moment interpolation starts; empty for none.
	AudioPath string
}

// Sequencer runs the motion protocol for one timeline at a time.
//
// Thread Safety: Run must not be called concurrently. Player serialises it.
type Sequencer struct {
	robot  Robot
	opts   Options
	logger Logger
}

// NewSequencer creates a Sequencer.
//
// Parameters:
//   - robot: Robot collaborators; only Motion is required
//   - opts: Sequencing options; zero speeds and timeouts take defaults
//   - logger: Logger instance (may be nil)
func NewSequencer(robot Robot, opts Options, logger Logger) *Sequencer {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Sequencer{robot: robot, opts: opts.withDefaults(), logger: logger}
}

// session is the state of one Run.
type session struct {
	id       string
	stage    Stage
	warnings []string
	audio    *audioTask
	logger   Logger
}

func (s *session) warn(msg string, err error) {
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	s.warnings = append(s.warnings, msg)
	s.logger.Warn(msg, "session_id", s.id, "stage", s.stage)
}

func (s *session) abort(err error) Outcome {
	s.logger.Error("playback aborted", "session_id", s.id, "stage", s.stage, "error", err)
	return Outcome{Status: StatusAborted, Reason: err, Stage: s.stage, Warnings: s.warnings}
}

func (s *session) succeed() Outcome {
	s.stage = StageComplete
	return Outcome{Status: StatusSucceeded, Stage: s.stage, Warnings: s.warnings}
}

// Run plays plan on the robot.
//
// An invalid timeline (duplicate actuators, a curve breaking the key
// invariants), an empty one and a missing motion controller abort the run
// at StageValidate before any robot call. A plan with speech but no curves
// is spoken without engaging the guard. Once the guard is engaged, cleanup
// always runs before Run returns, whatever happened in between.
//
// Parameters:
//   - ctx: Cancelling it stops the robot and aborts the run
//   - plan: Timeline, speech and audio to play
//
// Returns:
//   - Outcome: Succeeded, or Aborted with the stage and wrapped reason
func (q *Sequencer) Run(ctx context.Context, plan Plan) Outcome {
	sess := &session{id: plan.SessionID, stage: StageValidate, logger: q.logger}
	if sess.id == "" {
		sess.id = GenerateID()
	}

	tl := plan.Timeline
	if tl == nil || len(tl.Curves) == 0 {
		if len(plan.Speech) == 0 {
			return sess.abort(ErrNoCurves)
		}
		return q.speakOnly(ctx, sess, plan.Speech)
	}
	if err := tl.Validate(); err != nil {
		return sess.abort(err)
	}
	if q.robot.Motion == nil {
		return sess.abort(ErrMotionUnavailable)
	}

	if q.opts.SpeechBeforeGuard {
		q.speak(ctx, sess, plan.Speech)
	}
	plan.Timeline = tl.Clone()
	return q.run(ctx, sess, plan)
}

func (q *Sequencer) run(ctx context.Context, sess *session, plan Plan) (out Outcome) {
	tl := plan.Timeline
	motion := q.robot.Motion

	sess.stage = StageGuard
	q.wake(ctx, sess)
	g := newGuard(q.robot.Behavior, q.opts.GuardServices, q.logger)
	g.engage(ctx)
	q.logger.Info("playback guard engaged",
		"session_id", sess.id,
		"suspended", g.suspended(),
		"joints", len(tl.Curves),
		"duration_s", tl.Duration(),
	)
	defer func() {
		q.cleanup(ctx, sess, g)
		out.Warnings = sess.warnings
	}()

	if !q.opts.SpeechBeforeGuard {
		q.speak(ctx, sess, plan.Speech)
	}
	if err := ctx.Err(); err != nil {
		return sess.abort(err)
	}

	boosted := false
	if q.opts.Boost.Enabled {
		sess.stage = StageBoost
		if err := motion.SetAngles(ctx, tl.Names(), tl.FirstValues(), q.opts.Boost.Speed); err != nil {
			sess.warn("start boost failed", err)
		} else {
			boosted = true
		}
	}

	if boosted && q.opts.Boost.MinLeadIn > 0 {
		sess.stage = StageLeadIn
		if earliest := tl.EarliestTime(); earliest < q.opts.Boost.MinLeadIn {
			shift := q.opts.Boost.MinLeadIn - earliest
			tl.Shift(shift)
			q.logger.Debug("lead-in shift applied", "session_id", sess.id, "shift_s", shift)
		}
	}

	if q.opts.Preposition.Enabled {
		sess.stage = StagePreposition
		if err := q.preposition(ctx, sess, tl); err != nil {
			return sess.abort(err)
		}
	}
	if err := ctx.Err(); err != nil {
		return sess.abort(err)
	}

	sess.stage = StageInterpolate
	sess.audio = q.startAudio(ctx, sess, plan.AudioPath)
	names, values, times := tl.Triple()
	start := time.Now()
	err := q.interpolate(ctx, sess, names, values, times)
	q.stopResidual(ctx, sess)
	q.logger.Debug("interpolation returned", "session_id", sess.id, "elapsed_ms", time.Since(start).Milliseconds())

	if ctxErr := ctx.Err(); ctxErr != nil {
		return sess.abort(ctxErr)
	}
	if err != nil {
		return sess.abort(fmt.Errorf("%w: interpolating: %w", ErrMotionCommand, err))
	}
	return sess.succeed()
}

// speakOnly plays a behavior graph without curves. Nothing moves, so the
// guard stays off.
func (q *Sequencer) speakOnly(ctx context.Context, sess *session, actions []timeline.SpeechAction) Outcome {
	q.logger.Info("speech-only playback", "session_id", sess.id, "sentences", len(actions))
	q.speak(ctx, sess, actions)
	if err := ctx.Err(); err != nil {
		return sess.abort(err)
	}
	return sess.succeed()
}

// wake wakes the robot when configured and supported.
func (q *Sequencer) wake(ctx context.Context, sess *session) {
	if !q.opts.WakeUp {
		return
	}
	w, ok := q.robot.Motion.(Waker)
	if !ok {
		return
	}
	if err := w.WakeUp(ctx); err != nil {
		sess.warn("wake up failed", err)
	}
}

// speak runs the behaviour-graph sentences in document order.
func (q *Sequencer) speak(ctx context.Context, sess *session, actions []timeline.SpeechAction) {
	if len(actions) == 0 {
		return
	}
	if q.robot.Speech == nil {
		sess.warn(fmt.Sprintf("speech unavailable, %d sentence(s) skipped", len(actions)), nil)
		return
	}
	for _, a := range actions {
		if ctx.Err() != nil {
			return
		}
		if a.Text == "" {
			continue
		}
		var err error
		if a.Blocking {
			err = q.robot.Speech.Say(ctx, a.Annotated())
		} else {
			err = q.robot.Speech.SayAsync(ctx, a.Annotated())
		}
		if err != nil {
			sess.warn("speech failed", err)
		}
	}
}

// preposition moves every joint to its first key, one joint at a time.
// Joint failures are retried once with a wider margin, then skipped.
// Only a cancelled context is returned.
func (q *Sequencer) preposition(ctx context.Context, sess *session, tl *timeline.Timeline) error {
	opts := q.opts.Preposition
	margin := q.opts.ClampEpsilon + opts.GuardBand
	retryMargin := q.opts.ClampEpsilon + 2*opts.GuardBand

	for _, c := range tl.Curves {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := c.Actuator
		target := q.safeTarget(ctx, name, c.Values[0], margin)
		err := q.robot.Motion.SetAngles(ctx, []string{name}, []float64{target}, opts.Speed)
		if err != nil {
			retry := q.safeTarget(ctx, name, c.Values[0], retryMargin)
			if retryErr := q.robot.Motion.SetAngles(ctx, []string{name}, []float64{retry}, opts.Speed); retryErr != nil {
				sess.warn("pre-position skipped "+name, fmt.Errorf("%w: %w", ErrMotionCommand, errors.Join(err, retryErr)))
				continue
			}
		}
		if err := sleepContext(ctx, opts.Settle); err != nil {
			return err
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, opts.WaitTimeout)
	defer cancel()
	if err := q.robot.Motion.WaitUntilIdle(waitCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sess.warn("pre-position did not settle", err)
	}
	return nil
}

// safeTarget clamps value inside the joint's limits by margin. Limits are
// queried on every call; unknown limits leave value unchanged.
func (q *Sequencer) safeTarget(ctx context.Context, joint string, value, margin float64) float64 {
	lim, err := q.robot.Motion.JointLimits(ctx, joint)
	if err != nil {
		return value
	}
	return lim.Clamp(value, margin)
}

// interpolate runs the blocking interpolation. A watcher stops the robot if
// ctx is cancelled while the call is in flight.
func (q *Sequencer) interpolate(ctx context.Context, sess *session, names []string, values, times [][]float64) error {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.opts.IdleTimeout)
			defer cancel()
			if err := q.robot.Motion.StopMove(stopCtx); err != nil {
				q.logger.Error("failed to stop motion after cancellation", "session_id", sess.id, "error", err)
			}
		case <-done:
		}
	}()

	defer func() {
		close(done)
		wg.Wait()
	}()
	return q.robot.Motion.Interpolate(ctx, names, values, times, true)
}

// stopResidual stops any task left after interpolation and waits for idle.
func (q *Sequencer) stopResidual(ctx context.Context, sess *session) {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.opts.IdleTimeout)
	defer cancel()
	if err := q.robot.Motion.StopMove(stopCtx); err != nil {
		sess.warn("stop after interpolation failed", err)
	}
	if err := q.robot.Motion.WaitUntilIdle(stopCtx); err != nil {
		sess.warn("motion did not settle after interpolation", err)
	}
}

// cleanup stops audio, waits for motion, restores the guard and returns to
// the neutral posture. It ignores the caller's cancellation.
func (q *Sequencer) cleanup(parent context.Context, sess *session, g *guard) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), q.opts.CleanupTimeout)
	defer cancel()

	q.stopAudio(ctx, sess)

	idleCtx, idleCancel := context.WithTimeout(ctx, q.opts.IdleTimeout)
	if err := q.robot.Motion.WaitUntilIdle(idleCtx); err != nil {
		sess.warn("motion did not settle before cleanup", err)
	}
	idleCancel()

	g.restore(ctx)

	if q.robot.Posture != nil && q.opts.NeutralPosture != "" {
		if err := q.robot.Posture.GoToPosture(ctx, q.opts.NeutralPosture, q.opts.PostureSpeed); err != nil {
			sess.warn("neutral posture failed", err)
		}
	}
	q.logger.Info("playback cleanup complete", "session_id", sess.id, "restored", g.suspended())
}

// sleepContext pauses for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
