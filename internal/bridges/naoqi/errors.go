package naoqi

import "errors"

// Domain errors for the NAOqi bridge.
var (
	// ErrTimeout is returned when the robot does not answer a request in time.
	ErrTimeout = errors.New("naoqi: request timed out")

	// ErrRemote is returned when the robot answers with a failure.
	ErrRemote = errors.New("naoqi: remote call failed")

	// ErrInvalidResponse is returned when a response cannot be decoded.
	ErrInvalidResponse = errors.New("naoqi: invalid response")

	// ErrNotStarted is returned by calls made before Start or after Close.
	ErrNotStarted = errors.New("naoqi: bridge not started")
)
