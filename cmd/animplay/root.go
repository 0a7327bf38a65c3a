package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/pepperlife/animcore/internal/infrastructure/config"
	"github.com/pepperlife/animcore/internal/infrastructure/logging"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string

	// explicit is set when the path came from --config or the environment.
	explicit bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "animplay",
		Short: "Play keyframe animations on a Pepper or NAO robot",
		Long: `animplay plays QiAnim timelines (.qianim, JSON or XML) and Choregraphe
behaviour graphs (.xar, or a .pml project) on a robot reached through the
NAOqi MQTT bridge.

The robot's idle behaviours are suspended for the duration of a run and
restored afterwards, whatever the outcome.

Configuration is read from configs/config.yaml, the file named by
ANIMCORE_CONFIG, or --config. ANIMCORE_* variables override single keys.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			opts.explicit = cmd.Flags().Changed("config") || os.Getenv(configEnvVar) != ""
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", configPath(), "configuration file")

	cmd.AddCommand(
		newPlayCmd(opts),
		newHistoryCmd(opts),
		newDBCmd(opts),
		newInspectCmd(),
		newVersionCmd(),
	)
	return cmd
}

// configPath returns the configuration file path.
// Uses ANIMCORE_CONFIG environment variable if set, otherwise default.
func configPath() string {
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}

// load reads the configuration and builds the logger.
//
// A missing default file falls back to built-in defaults; a missing file
// named explicitly is an error.
func (o *rootOptions) load() (*config.Config, *logging.Logger, error) {
	path := o.configPath
	if !o.explicit {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version)
	log.Debug("configuration loaded", "path", path)
	return cfg, log, nil
}
