// Package influxdb records playback telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes, and health checks. Each completed
// playback run becomes one point in the "animation_playback" measurement,
// tagged by robot, format, status and stage.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry is optional
//	}
//	defer client.Close()
//
//	client.SetOnError(func(err error) {
//	    log.Warn("telemetry write failed", "error", err)
//	})
//
// *Client satisfies playback.MetricsWriter.
//
// # Error Handling
//
// Connect and HealthCheck return errors directly. Writes never block or
// return errors; failures go to the SetOnError callback wrapped with
// ErrWriteFailed.
package influxdb
