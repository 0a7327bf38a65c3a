// Package playback drives one animation on the robot from a path on disk.
//
// A Player resolves the path, parses the animation, normalises its units
// and limits, then hands the timeline to the Sequencer, which runs the
// motion protocol against the robot collaborators:
//
//	┌────────────────────────────────────────────────────────────┐
//	│                    Player (player.go)                      │
//	│  resolve → parse → normalise → sequence → record/publish   │
//	│  ┌──────────────────────────────────────────────────────┐  │
//	│  │              Sequencer (sequencer.go)                │  │
//	│  │  0. duplicate actuator check (no motor command yet)  │  │
//	│  │  1. guard: snapshot and suspend idle behaviours      │  │
//	│  │  2. start boost: one slow move to the first keys     │  │
//	│  │  3. lead-in shift: keep a minimum first key time     │  │
//	│  │  4. pre-position: one joint at a time                │  │
//	│  │  5. interpolate: one blocking call, audio starts     │  │
//	│  │  6. cleanup: stop audio, restore guard, posture      │  │
//	│  └──────────────────────────────────────────────────────┘  │
//	└────────────────────────────────────────────────────────────┘
//
// Cleanup always runs once the guard is engaged, on a context detached from
// the caller's cancellation and bounded by Options.CleanupTimeout.
//
// # Outcome
//
// Play never returns an error. It returns an Outcome whose Status is
// StatusSucceeded or StatusAborted; Reason carries the wrapped cause and
// Stage the step the run reached.
//
// # Thread Safety
//
// Player serialises calls to Play. A Sequencer must not run two plans at
// once because the guard snapshot belongs to a single session.
package playback
