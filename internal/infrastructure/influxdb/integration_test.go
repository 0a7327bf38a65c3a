//go:build integration

package influxdb_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/pepperlife/animcore/internal/infrastructure/config"
	"github.com/pepperlife/animcore/internal/infrastructure/influxdb"
)

// testConfig returns a configuration for a local InfluxDB. Override the URL
// and token with INFLUXDB_URL and INFLUXDB_TOKEN.
func testConfig() config.InfluxDBConfig {
	cfg := config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "animcore-dev-token",
		Org:           "animcore",
		Bucket:        "playback",
		BatchSize:     100,
		FlushInterval: 1,
	}
	if v := os.Getenv("INFLUXDB_URL"); v != "" {
		cfg.URL = v
	}
	if v := os.Getenv("INFLUXDB_TOKEN"); v != "" {
		cfg.Token = v
	}
	return cfg
}

func connect(t *testing.T) *influxdb.Client {
	t.Helper()
	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Skipf("InfluxDB not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestIntegration_ConnectAndHealth(t *testing.T) {
	client := connect(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestIntegration_WritePlaybackPoint(t *testing.T) {
	client := connect(t)

	var (
		mu       sync.Mutex
		writeErr error
	)
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})

	client.WritePointWithTime("animation_playback",
		map[string]string{"robot": "integration", "status": "completed", "format": "qianim"},
		map[string]interface{}{"duration_ms": int64(850), "joints": 2, "clamped": 0, "warnings": 0},
		time.Now(),
	)
	client.Flush()
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if writeErr != nil {
		t.Errorf("write error = %v", writeErr)
	}
}
