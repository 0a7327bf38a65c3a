package playback

import (
	"context"
	"fmt"
)

// audioTask is an audio playback started in the background.
// handle and err are written once before done is closed.
type audioTask struct {
	path   string
	done   chan struct{}
	handle AudioHandle
	err    error
}

// startAudio launches path on the audio collaborator without waiting.
// A missing path or collaborator plays nothing.
func (q *Sequencer) startAudio(ctx context.Context, sess *session, path string) *audioTask {
	if path == "" {
		return nil
	}
	if q.robot.Audio == nil {
		q.logger.Debug("no audio player, playing without sound", "session_id", sess.id, "audio", path)
		return nil
	}

	t := &audioTask{path: path, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		t.handle, t.err = q.robot.Audio.PlayFile(ctx, path, q.opts.AudioVolume, q.opts.AudioPan)
	}()
	q.logger.Debug("audio started", "session_id", sess.id, "audio", path)
	return t
}

// stopAudio stops the session's audio by handle. Failures are warnings.
func (q *Sequencer) stopAudio(ctx context.Context, sess *session) {
	t := sess.audio
	if t == nil {
		return
	}
	select {
	case <-t.done:
	case <-ctx.Done():
		sess.warn("audio start still pending at cleanup", fmt.Errorf("%w: %w", ErrAudio, ctx.Err()))
		return
	}
	if t.err != nil {
		sess.warn("audio playback failed", fmt.Errorf("%w: %w", ErrAudio, t.err))
		return
	}
	if t.handle == "" {
		return
	}
	if err := q.robot.Audio.Stop(ctx, t.handle); err != nil {
		sess.warn("audio stop failed", fmt.Errorf("%w: %w", ErrAudio, err))
	}
}
