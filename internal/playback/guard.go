package playback

import (
	"context"
	"errors"
)

// toggle records how a service was suspended.
type toggle int

const (
	toggleNone toggle = iota
	toggleEnabled
	togglePaused
)

// serviceState is the snapshot of one autonomous service.
type serviceState struct {
	name string
	via  toggle

	// prior is the enabled flag (toggleEnabled) or the paused flag
	// (togglePaused) read before the service was suspended.
	prior bool
}

// guard suspends autonomous idle behaviours for one session and restores
// them afterwards. Services whose state could not be read are left alone,
// so restore touches exactly the services engage changed.
type guard struct {
	behavior BehaviorService
	services []string
	logger   Logger

	snapshot []serviceState
	engaged  bool
}

func newGuard(behavior BehaviorService, services []string, logger Logger) *guard {
	return &guard{behavior: behavior, services: services, logger: logger}
}

// engage snapshots every service then suspends it. Failures are logged per
// service and never returned.
func (g *guard) engage(ctx context.Context) {
	g.engaged = true
	if g.behavior == nil {
		return
	}
	for _, name := range g.services {
		st, ok := g.read(ctx, name)
		if !ok {
			continue
		}
		var err error
		switch st.via {
		case toggleEnabled:
			err = g.behavior.SetEnabled(ctx, name, false)
		case togglePaused:
			err = g.behavior.SetPaused(ctx, name, true)
		}
		if err != nil {
			g.logger.Warn("failed to suspend autonomous service", "service", name, "error", err)
			continue
		}
		g.snapshot = append(g.snapshot, st)
	}
}

// read prefers the enabled toggle and falls back to pause.
func (g *guard) read(ctx context.Context, name string) (serviceState, bool) {
	enabled, errEnabled := g.behavior.Enabled(ctx, name)
	if errEnabled == nil {
		return serviceState{name: name, via: toggleEnabled, prior: enabled}, true
	}
	paused, errPaused := g.behavior.Paused(ctx, name)
	if errPaused == nil {
		return serviceState{name: name, via: togglePaused, prior: paused}, true
	}
	g.logger.Warn("autonomous service state unknown, leaving it running",
		"service", name, "error", errors.Join(errEnabled, errPaused))
	return serviceState{}, false
}

// restore writes every snapshot value back, in snapshot order. It is safe
// to call more than once; only the first call has an effect.
func (g *guard) restore(ctx context.Context) {
	if !g.engaged {
		return
	}
	g.engaged = false
	for _, st := range g.snapshot {
		var err error
		switch st.via {
		case toggleEnabled:
			err = g.behavior.SetEnabled(ctx, st.name, st.prior)
		case togglePaused:
			err = g.behavior.SetPaused(ctx, st.name, st.prior)
		}
		if err != nil {
			g.logger.Error("failed to restore autonomous service", "service", st.name, "error", err)
		}
	}
}

// suspended returns the names of the services engage changed.
func (g *guard) suspended() []string {
	names := make([]string, len(g.snapshot))
	for i, st := range g.snapshot {
		names[i] = st.name
	}
	return names
}
