package main

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/pepperlife/animcore/internal/infrastructure/database"
	"github.com/pepperlife/animcore/internal/playback"
)

// Colours match the terminal theme used across our CLIs.
var (
	colorPrimary = lipgloss.Color("#00ff9f")
	colorFailure = lipgloss.Color("#ff5f87")
	colorDim     = lipgloss.Color("#6e7681")
)

// shortIDLen is how much of an execution ID the history table shows.
const shortIDLen = 8

// styles are bound to one writer so colour is dropped when it is not a terminal.
type styles struct {
	table   *lipgloss.Renderer
	ok      lipgloss.Style
	fail    lipgloss.Style
	label   lipgloss.Style
	dim     lipgloss.Style
	heading lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		table:   r,
		ok:      r.NewStyle().Bold(true).Foreground(colorPrimary),
		fail:    r.NewStyle().Bold(true).Foreground(colorFailure),
		label:   r.NewStyle().Bold(true).Width(12),
		dim:     r.NewStyle().Foreground(colorDim),
		heading: r.NewStyle().Bold(true).Foreground(colorPrimary).Padding(0, 1),
	}
}

func (s styles) status(st playback.Status) string {
	switch st {
	case playback.StatusSucceeded:
		return s.ok.Render(string(st))
	case playback.StatusAborted:
		return s.fail.Render(string(st))
	default:
		return s.dim.Render(string(st))
	}
}

func (s styles) field(w io.Writer, label string, value any) {
	writeLine(w, "%s %v", s.label.Render(label+":"), value)
}

func (s styles) newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(s.table.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.heading
			}
			return s.table.NewStyle().Padding(0, 1)
		})
}

// ─── Playback ───────────────────────────────────────────────────────────────

func renderOutcome(w io.Writer, path string, out playback.Outcome) {
	s := newStyles(w)
	writeLine(w, "%s %s", s.status(out.Status), filepath.Base(path))
	if out.Reason != nil {
		s.field(w, "Stage", out.Stage)
		s.field(w, "Reason", out.Reason)
	}
	for _, warning := range out.Warnings {
		s.field(w, "Warning", warning)
	}
	if out.ExecutionID != "" {
		writeLine(w, "%s", s.dim.Render("execution "+out.ExecutionID))
	}
}

// ─── History ────────────────────────────────────────────────────────────────

func renderHistory(w io.Writer, execs []playback.Execution) {
	s := newStyles(w)
	if len(execs) == 0 {
		writeLine(w, "%s", s.dim.Render("no playback runs recorded"))
		return
	}

	t := s.newTable("ID", "STARTED", "STATUS", "STAGE", "FORMAT", "JOINTS", "DURATION", "SOURCE")
	for _, e := range execs {
		t.Row(
			shortID(e.ID),
			e.StartedAt.Local().Format(time.DateTime),
			s.status(e.Status),
			string(e.Stage),
			e.Format,
			strconv.Itoa(e.Joints),
			formatMillis(e.DurationMS),
			filepath.Base(e.SourcePath),
		)
	}
	writeLine(w, "%s", t.String())
}

func renderExecution(w io.Writer, e *playback.Execution) {
	s := newStyles(w)
	s.field(w, "ID", e.ID)
	s.field(w, "Robot", e.Robot)
	s.field(w, "Status", s.status(e.Status))
	s.field(w, "Stage", e.Stage)
	s.field(w, "Source", e.SourcePath)
	s.field(w, "Format", e.Format)
	if e.AudioPath != "" {
		s.field(w, "Audio", e.AudioPath)
	}
	if e.UnitMode != "" {
		s.field(w, "Units", e.UnitMode)
	}
	s.field(w, "Joints", e.Joints)
	s.field(w, "Clamped", e.Clamped)
	s.field(w, "Started", e.StartedAt.Local().Format(time.DateTime))
	if e.CompletedAt != nil {
		s.field(w, "Duration", formatMillis(e.DurationMS))
	}
	if e.Error != "" {
		s.field(w, "Error", s.fail.Render(e.Error))
	}
	for _, warning := range e.Warnings {
		s.field(w, "Warning", warning)
	}
}

func renderMigrations(w io.Writer, path string, applied []database.MigrationRecord, pending []database.Migration) {
	s := newStyles(w)
	s.field(w, "Database", path)

	t := s.newTable("VERSION", "STATE", "APPLIED")
	for _, r := range applied {
		t.Row(r.Version, s.ok.Render("applied"), r.AppliedAt.Local().Format(time.DateTime))
	}
	for _, m := range pending {
		t.Row(m.Version, s.fail.Render("pending"), m.Name)
	}
	writeLine(w, "%s", t.String())
}

// ─── Inspect ────────────────────────────────────────────────────────────────

func renderInspection(w io.Writer, in *inspection) {
	s := newStyles(w)
	s.field(w, "Format", in.Source.Format)
	s.field(w, "File", in.Source.PrimaryPath)
	if in.Source.DescriptorPath != "" {
		s.field(w, "Descriptor", in.Source.DescriptorPath)
	}
	if in.Source.HasAudio() {
		s.field(w, "Audio", in.Source.AudioPath)
	} else {
		s.field(w, "Audio", s.dim.Render("none"))
	}
	s.field(w, "Joints", len(in.Timeline.Curves))
	s.field(w, "Duration", fmt.Sprintf("%.3fs", in.Timeline.Duration()))
	if len(in.FrameRates) > 0 {
		s.field(w, "Frame rates", in.FrameRates)
	}
	if in.DuplicateCurves > 0 {
		s.field(w, "Duplicates", in.DuplicateCurves)
	}

	t := s.newTable("ACTUATOR", "KEYS", "FIRST", "LAST", "MIN", "MAX")
	for _, c := range in.Timeline.Curves {
		if c.Len() == 0 {
			continue
		}
		t.Row(
			c.Actuator,
			strconv.Itoa(c.Len()),
			fmt.Sprintf("%.3f", c.Times[0]),
			fmt.Sprintf("%.3f", c.Times[c.Len()-1]),
			fmt.Sprintf("%.4f", slices.Min(c.Values)),
			fmt.Sprintf("%.4f", slices.Max(c.Values)),
		)
	}
	writeLine(w, "%s", t.String())

	for i, sp := range in.Speech {
		mode := "async"
		if sp.Blocking {
			mode = "blocking"
		}
		writeLine(w, "%s %q %s", s.label.Render(fmt.Sprintf("Say #%d:", i+1)), sp.Text, s.dim.Render(mode))
	}
}

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

func formatMillis(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}
