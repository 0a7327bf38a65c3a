package timeline

import "math"

const (
	// MinFirstTime is the time given to a first key that is not positive.
	MinFirstTime = 0.1

	// MinKeyStep is the gap forced between keys that are not increasing.
	MinKeyStep = 0.01

	// DefaultFPS is used when a document declares no usable frame rate.
	DefaultFPS = 25.0
)

// NormalizeTimes returns a copy of times, rounded to the millisecond, with
// the first value floored to MinFirstTime when not positive and every value
// not strictly greater than its predecessor bumped to predecessor+MinKeyStep.
func NormalizeTimes(times []float64) []float64 {
	out := make([]float64, len(times))
	for i, t := range times {
		t = roundMillis(t)
		if i == 0 {
			if t <= 0 {
				t = MinFirstTime
			}
		} else if t <= out[i-1] {
			t = roundMillis(out[i-1] + MinKeyStep)
		}
		out[i] = t
	}
	return out
}

func roundMillis(t float64) float64 {
	return math.Round(t*1000) / 1000
}

// validFPS returns fps if positive and finite, DefaultFPS otherwise.
func validFPS(fps float64) float64 {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return DefaultFPS
	}
	return fps
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}
