package naoqi

import (
	"encoding/json"
	"time"
)

// Services addressed in request topics.
const (
	ServiceMotion   = "motion"
	ServiceBehavior = "behavior"
	ServiceSpeech   = "speech"
	ServiceAudio    = "audio"
	ServicePosture  = "posture"
)

// Error codes the robot agent may return.
const (
	// CodeUnsupported marks a method the target service does not implement,
	// e.g. a pause toggle on a service that can only be enabled/disabled.
	CodeUnsupported = "unsupported"

	// CodeUnknownJoint marks a joint the motion controller does not know.
	CodeUnknownJoint = "unknown_joint"
)

// RequestMessage is sent to the robot agent.
// Topic: animcore/request/{service}/{request_id}
type RequestMessage struct {
	// RequestID correlates the response.
	RequestID string `json:"request_id"`

	// Timestamp is when the request was issued (UTC).
	Timestamp time.Time `json:"timestamp"`

	// Robot is the configured robot name; agents ignore requests for other robots.
	Robot string `json:"robot"`

	// Method is the service operation, e.g. "set_angles" or "say".
	Method string `json:"method"`

	// Params holds method arguments.
	Params map[string]any `json:"params,omitempty"`
}

// ResponseMessage is sent by the robot agent.
// Topic: animcore/response/{service}/{request_id}
type ResponseMessage struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`

	// Success indicates whether the call succeeded.
	Success bool `json:"success"`

	// Data is the method result, if any.
	Data json.RawMessage `json:"data,omitempty"`

	// Error describes a failed call.
	Error *ResponseError `json:"error,omitempty"`
}

// ResponseError contains error details for failed requests.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
