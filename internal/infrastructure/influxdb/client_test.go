package influxdb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/pepperlife/animcore/internal/infrastructure/config"
)

// fakeWriteAPI records points instead of batching them to a server.
type fakeWriteAPI struct {
	mu      sync.Mutex
	points  []*write.Point
	flushes int
}

func (f *fakeWriteAPI) WritePoint(p *write.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, p)
}

func (f *fakeWriteAPI) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
}

type fakePinger struct {
	healthy bool
	err     error
	closed  int
}

func (f *fakePinger) Ping(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return f.healthy, f.err
}

func (f *fakePinger) Close() { f.closed++ }

func newTestClient() (*Client, *fakeWriteAPI, *fakePinger) {
	w := &fakeWriteAPI{}
	p := &fakePinger{healthy: true}
	return newClient(p, w, config.InfluxDBConfig{Enabled: true}), w, p
}

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false, URL: "http://127.0.0.1:8086"})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:1",
		Token:   "t",
		Org:     "o",
		Bucket:  "b",
	})
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestWritePointWithTime(t *testing.T) {
	c, w, _ := newTestClient()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	c.WritePointWithTime("animation_playback",
		map[string]string{"robot": "pepper", "status": "completed"},
		map[string]interface{}{"duration_ms": int64(1200), "joints": 3},
		at,
	)

	if len(w.points) != 1 {
		t.Fatalf("points written = %d, want 1", len(w.points))
	}
	p := w.points[0]
	if p.Name() != "animation_playback" {
		t.Errorf("Name() = %q", p.Name())
	}
	if !p.Time().Equal(at) {
		t.Errorf("Time() = %v, want %v", p.Time(), at)
	}
	if len(p.TagList()) != 2 || len(p.FieldList()) != 2 {
		t.Errorf("tags=%d fields=%d, want 2 and 2", len(p.TagList()), len(p.FieldList()))
	}
}

func TestWritePoint_UsesCurrentTime(t *testing.T) {
	c, w, _ := newTestClient()
	before := time.Now()

	c.WritePoint("animation_playback", nil, map[string]interface{}{"joints": 1})

	if len(w.points) != 1 {
		t.Fatalf("points written = %d, want 1", len(w.points))
	}
	if w.points[0].Time().Before(before) {
		t.Errorf("Time() = %v, want >= %v", w.points[0].Time(), before)
	}
}

func TestWritePointWithTime_Rejected(t *testing.T) {
	tests := []struct {
		name        string
		measurement string
		fields      map[string]interface{}
	}{
		{name: "empty measurement", measurement: "", fields: map[string]interface{}{"v": 1}},
		{name: "no fields", measurement: "animation_playback", fields: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w, _ := newTestClient()
			var got error
			c.SetOnError(func(err error) { got = err })

			c.WritePointWithTime(tt.measurement, nil, tt.fields, time.Now())

			if len(w.points) != 0 {
				t.Errorf("points written = %d, want 0", len(w.points))
			}
			if !errors.Is(got, ErrWriteFailed) {
				t.Errorf("onError got %v, want ErrWriteFailed", got)
			}
		})
	}
}

func TestWrite_AfterCloseDropped(t *testing.T) {
	c, w, p := newTestClient()

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	c.WritePoint("animation_playback", nil, map[string]interface{}{"joints": 1})
	c.Flush()

	if len(w.points) != 0 {
		t.Errorf("points written after Close() = %d, want 0", len(w.points))
	}
	if w.flushes != 1 {
		t.Errorf("flushes = %d, want 1 (from Close only)", w.flushes)
	}
	if p.closed != 1 {
		t.Errorf("client closed %d times, want 1", p.closed)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}

func TestClose_Idempotent(t *testing.T) {
	c, w, p := newTestClient()
	for i := 0; i < 2; i++ {
		if err := c.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	}
	if w.flushes != 1 || p.closed != 1 {
		t.Errorf("flushes=%d closed=%d, want 1 and 1", w.flushes, p.closed)
	}
}

func TestClose_Nil(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() on nil client = true")
	}
	// A nil *Client still satisfies the writer interface; writes are dropped.
	c.WritePoint("animation_playback", nil, map[string]interface{}{"v": 1})
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name    string
		pinger  *fakePinger
		closed  bool
		wantErr error
	}{
		{name: "healthy", pinger: &fakePinger{healthy: true}},
		{name: "unhealthy", pinger: &fakePinger{healthy: false}, wantErr: errAny},
		{name: "ping error", pinger: &fakePinger{err: errors.New("refused")}, wantErr: errAny},
		{name: "closed", pinger: &fakePinger{healthy: true}, closed: true, wantErr: ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(tt.pinger, &fakeWriteAPI{}, config.InfluxDBConfig{})
			if tt.closed {
				c.Close() //nolint:errcheck // Test setup
			}

			err := c.HealthCheck(context.Background())
			switch {
			case tt.wantErr == nil && err != nil:
				t.Errorf("HealthCheck() error = %v, want nil", err)
			case tt.wantErr == errAny && err == nil:
				t.Error("HealthCheck() error = nil, want an error")
			case tt.wantErr != nil && tt.wantErr != errAny && !errors.Is(err, tt.wantErr):
				t.Errorf("HealthCheck() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestHealthCheck_Cancelled(t *testing.T) {
	c, _, _ := newTestClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestHandleWriteErrors(t *testing.T) {
	c, _, _ := newTestClient()
	var (
		mu  sync.Mutex
		got []error
	)
	c.SetOnError(func(err error) {
		mu.Lock()
		got = append(got, err)
		mu.Unlock()
	})

	ch := make(chan error, 2)
	ch <- errors.New("unauthorized")
	ch <- errors.New("bucket not found")
	close(ch)
	c.handleWriteErrors(ch)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("callbacks = %d, want 2", len(got))
	}
	for _, err := range got {
		if !errors.Is(err, ErrWriteFailed) {
			t.Errorf("callback error = %v, want ErrWriteFailed", err)
		}
	}
}

// errAny marks table cases that expect some error without a sentinel.
var errAny = errors.New("any error")
