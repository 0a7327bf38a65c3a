// Package config loads the animplay configuration.
//
// Values are layered: built-in defaults for a Pepper robot, then the YAML
// file, then ANIMCORE_<SECTION>_<KEY> environment variables. The result is
// validated before anything connects to the robot, so an out-of-range
// speed or margin is rejected before a motor moves.
//
// Broker passwords and InfluxDB tokens belong in the environment
// (ANIMCORE_MQTT_PASSWORD, ANIMCORE_INFLUXDB_TOKEN) rather than the file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//
// Durations are Go duration strings:
//
//	playback:
//	  cleanup_timeout: 15s
//	  preposition:
//	    settle: 120ms
//
// Load("") returns the validated defaults.
package config
