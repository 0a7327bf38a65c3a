package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for animcore.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Robot    RobotConfig    `yaml:"robot"`
	Playback PlaybackConfig `yaml:"playback"`
	Audio    AudioConfig    `yaml:"audio"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// RobotConfig describes the robot the player drives.
type RobotConfig struct {
	// Name identifies the robot in MQTT topics, history rows and telemetry tags.
	Name string `yaml:"name"`

	// RequestTimeout bounds a single request/response exchange with the robot bridge.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// WakeUp asks the motion controller to wake the robot before the guard engages.
	WakeUp bool `yaml:"wake_up"`

	// GuardServices are the autonomous idle-behaviour services suspended for
	// the duration of a playback, in the order they are suspended.
	GuardServices []string `yaml:"guard_services"`

	// NeutralPosture is the posture reached at the end of every playback.
	// Empty disables the final posture step.
	NeutralPosture string `yaml:"neutral_posture"`

	// PostureSpeed is the speed fraction used for the neutral posture.
	PostureSpeed float64 `yaml:"posture_speed"`
}

// PlaybackConfig tunes the motion sequencer.
type PlaybackConfig struct {
	Boost       BoostConfig       `yaml:"boost"`
	Preposition PrepositionConfig `yaml:"preposition"`

	// ClampEpsilon is the inward margin applied by the normaliser.
	ClampEpsilon float64 `yaml:"clamp_epsilon"`

	// IdleTimeout bounds every wait-until-idle after interpolation and in cleanup.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// CleanupTimeout bounds the whole cleanup stage.
	CleanupTimeout time.Duration `yaml:"cleanup_timeout"`

	// SpeechBeforeGuard runs behaviour-graph speech before idle behaviours are
	// suspended. When false, speech runs once the guard is engaged.
	SpeechBeforeGuard bool `yaml:"speech_before_guard"`

	// XARSpeedFactor multiplies behaviour-graph key times: 0.5 plays twice as fast.
	XARSpeedFactor float64 `yaml:"xar_speed_factor"`

	// AudioBackend selects the audio collaborator: "robot", "local" or "none".
	AudioBackend string  `yaml:"audio_backend"`
	AudioVolume  float64 `yaml:"audio_volume"`
	AudioPan     float64 `yaml:"audio_pan"`
}

// BoostConfig controls the start boost and lead-in shift.
type BoostConfig struct {
	Enabled bool    `yaml:"enabled"`
	Speed   float64 `yaml:"speed"`

	// MinLeadIn is the minimum first keyframe time, in seconds, kept after a boost.
	MinLeadIn float64 `yaml:"min_lead_in"`
}

// PrepositionConfig controls sequential pre-positioning.
type PrepositionConfig struct {
	Enabled bool    `yaml:"enabled"`
	Speed   float64 `yaml:"speed"`

	// GuardBand is an extra inward margin, in radians, on top of ClampEpsilon.
	GuardBand float64 `yaml:"guard_band"`

	// Settle is the pause after each joint command.
	Settle time.Duration `yaml:"settle"`

	// WaitTimeout bounds the wait for motion completion after the last joint.
	WaitTimeout time.Duration `yaml:"wait_timeout"`
}

// AudioConfig configures the local audio backend.
type AudioConfig struct {
	// Players maps a lowercase file extension to the player argv.
	// The literal "{file}" in any argument is replaced by the audio path;
	// when absent the path is appended.
	Players map[string][]string `yaml:"players"`

	// StopTimeout bounds the wait after SIGTERM before the player is killed.
	StopTimeout time.Duration `yaml:"stop_timeout"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path string `yaml:"path"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults), skipped when path is empty
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ANIMCORE_SECTION_KEY
// For example: ANIMCORE_DATABASE_PATH, ANIMCORE_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file, or "" for defaults only
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %q does not exist: %w", path, err)
			}
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults for a Pepper robot.
func Default() *Config {
	return &Config{
		Robot: RobotConfig{
			Name:           "pepper",
			RequestTimeout: 5 * time.Second,
			WakeUp:         true,
			GuardServices: []string{
				"ALSpeakingMovement",
				"ALListeningMovement",
				"ALBackgroundMovement",
				"ALAutonomousBlinking",
				"ALBasicAwareness",
			},
			NeutralPosture: "Stand",
			PostureSpeed:   0.5,
		},
		Playback: PlaybackConfig{
			Boost: BoostConfig{
				Enabled:   true,
				Speed:     0.25,
				MinLeadIn: 0.6,
			},
			Preposition: PrepositionConfig{
				Enabled:     true,
				Speed:       0.15,
				GuardBand:   0.01,
				Settle:      120 * time.Millisecond,
				WaitTimeout: 2 * time.Second,
			},
			ClampEpsilon:      1e-4,
			IdleTimeout:       5 * time.Second,
			CleanupTimeout:    15 * time.Second,
			SpeechBeforeGuard: true,
			XARSpeedFactor:    1.0,
			AudioBackend:      "robot",
			AudioVolume:       1.0,
			AudioPan:          0.0,
		},
		Audio: AudioConfig{
			Players: map[string][]string{
				".wav": {"aplay", "-q", "{file}"},
				".mp3": {"mpg123", "-q", "{file}"},
				".ogg": {"ogg123", "-q", "{file}"},
			},
			StopTimeout: 2 * time.Second,
		},
		Database: DatabaseConfig{
			Enabled:     true,
			Path:        "./data/animcore.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "animcore",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     30,
				MaxAttempts:  0,
			},
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Org:           "animcore",
			Bucket:        "playback",
			BatchSize:     100,
			FlushInterval: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ANIMCORE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ANIMCORE_ROBOT_NAME"); v != "" {
		cfg.Robot.Name = v
	}

	if v := os.Getenv("ANIMCORE_PLAYBACK_AUDIO_BACKEND"); v != "" {
		cfg.Playback.AudioBackend = v
	}

	if v := os.Getenv("ANIMCORE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("ANIMCORE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("ANIMCORE_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("ANIMCORE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("ANIMCORE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("ANIMCORE_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
	if v := os.Getenv("ANIMCORE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("ANIMCORE_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Robot.Name == "" {
		errs = append(errs, "robot.name is required")
	}
	if c.Robot.RequestTimeout <= 0 {
		errs = append(errs, "robot.request_timeout must be positive")
	}
	if c.Robot.NeutralPosture != "" && !isFraction(c.Robot.PostureSpeed) {
		errs = append(errs, "robot.posture_speed must be in (0, 1]")
	}

	p := c.Playback
	if p.Boost.Enabled && !isFraction(p.Boost.Speed) {
		errs = append(errs, "playback.boost.speed must be in (0, 1]")
	}
	if p.Boost.MinLeadIn < 0 {
		errs = append(errs, "playback.boost.min_lead_in must not be negative")
	}
	if p.Preposition.Enabled && !isFraction(p.Preposition.Speed) {
		errs = append(errs, "playback.preposition.speed must be in (0, 1]")
	}
	if p.Preposition.GuardBand < 0 {
		errs = append(errs, "playback.preposition.guard_band must not be negative")
	}
	if p.ClampEpsilon < 0 {
		errs = append(errs, "playback.clamp_epsilon must not be negative")
	}
	if p.CleanupTimeout <= 0 {
		errs = append(errs, "playback.cleanup_timeout must be positive")
	}
	if p.XARSpeedFactor <= 0 {
		errs = append(errs, "playback.xar_speed_factor must be positive")
	}
	switch p.AudioBackend {
	case "robot", "local", "none":
	default:
		errs = append(errs, fmt.Sprintf("playback.audio_backend %q must be robot, local or none", p.AudioBackend))
	}
	if p.AudioVolume < 0 || p.AudioVolume > 1 {
		errs = append(errs, "playback.audio_volume must be in [0, 1]")
	}
	if p.AudioPan < -1 || p.AudioPan > 1 {
		errs = append(errs, "playback.audio_pan must be in [-1, 1]")
	}

	if p.AudioBackend == "local" {
		for ext, argv := range c.Audio.Players {
			if len(argv) == 0 {
				errs = append(errs, fmt.Sprintf("audio.players[%s] must name a binary", ext))
			}
		}
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func isFraction(v float64) bool {
	return v > 0 && v <= 1
}
