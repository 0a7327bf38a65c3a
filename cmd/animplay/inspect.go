package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pepperlife/animcore/internal/resolver"
	"github.com/pepperlife/animcore/internal/timeline"
)

// inspection summarises a resolved and parsed animation.
type inspection struct {
	Source   resolver.Source
	Timeline *timeline.Timeline

	// Behaviour-graph only.
	Speech          []timeline.SpeechAction
	FrameRates      []float64
	DuplicateCurves int
}

func newInspectCmd() *cobra.Command {
	var audioOverride string

	cmd := &cobra.Command{
		Use:   "inspect PATH",
		Short: "Resolve and parse an animation without a robot",
		Long: `Resolve and parse an animation without connecting to a robot.

Prints the detected format, the files involved, and every actuator curve.
Units are not converted: that needs the robot's joint limits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := inspectAnimation(cmd.Context(), args[0], audioOverride)
			if err != nil {
				return err
			}
			renderInspection(cmd.OutOrStdout(), in)
			return nil
		},
	}
	cmd.Flags().StringVarP(&audioOverride, "audio", "a", "", "audio file or directory to resolve instead of discovery")
	return cmd
}

// inspectAnimation resolves and parses path the way play does, minus the
// robot: behaviour graphs are not clamped and QiAnim units are left as read.
func inspectAnimation(ctx context.Context, path, audioOverride string) (*inspection, error) {
	src, err := resolver.Resolve(path, audioOverride)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(src.PrimaryPath)
	if err != nil {
		return nil, fmt.Errorf("reading animation: %w", err)
	}

	in := &inspection{Source: src}
	if src.Format == timeline.FormatXAR {
		b, err := timeline.ParseXAR(ctx, data, timeline.XAROptions{})
		if err != nil {
			return nil, err
		}
		in.Timeline = b.Timeline
		in.Speech = b.Speech
		in.FrameRates = b.FrameRates
		in.DuplicateCurves = b.DuplicateCurves
		return in, nil
	}

	tl, err := timeline.ParseQiAnim(data, src.Format)
	if err != nil {
		return nil, err
	}
	if err := tl.CheckUnique(); err != nil {
		return nil, err
	}
	in.Timeline = tl
	return in, nil
}

// writeLine writes one formatted line, ignoring write errors on the terminal.
func writeLine(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...) //nolint:errcheck // Terminal output
}
