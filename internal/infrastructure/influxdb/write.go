package influxdb

import (
	"fmt"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePoint writes a point stamped with the current time.
//
// Parameters:
//   - measurement: The measurement name (e.g. "animation_playback")
//   - tags: Low-cardinality indexed values such as robot and status
//   - fields: The recorded values; a point without fields is rejected
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a point with an explicit timestamp. Playback runs
// are recorded at their completion time rather than the write time.
//
// The write is non-blocking. Points written while disconnected are dropped.
// Invalid points are reported to the SetOnError callback.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	if measurement == "" {
		c.reportError(fmt.Errorf("%w: empty measurement", ErrWriteFailed))
		return
	}
	if len(fields) == 0 {
		c.reportError(fmt.Errorf("%w: %s has no fields", ErrWriteFailed, measurement))
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
