package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every animcore topic.
const TopicPrefix = "animcore"

// Topics builds animcore MQTT topics.
//
// Robot collaborators are reached through a request/response pair keyed by
// service and request ID:
//
//	topics := mqtt.Topics{}
//	topics.Request("motion", "3f1c...")  // animcore/request/motion/3f1c...
//	topics.Response("motion", "3f1c...") // animcore/response/motion/3f1c...
type Topics struct{}

// Request returns the topic a robot service request is published on.
//
// Example: animcore/request/motion/0b6e4c2a
func (Topics) Request(service, requestID string) string {
	return fmt.Sprintf("%s/request/%s/%s", TopicPrefix, service, requestID)
}

// Response returns the topic the robot answers a request on.
//
// Example: animcore/response/motion/0b6e4c2a
func (Topics) Response(service, requestID string) string {
	return fmt.Sprintf("%s/response/%s/%s", TopicPrefix, service, requestID)
}

// PlaybackEvent returns the topic for playback lifecycle events.
//
// Example: animcore/playback/pepper/completed
func (Topics) PlaybackEvent(robot, event string) string {
	return fmt.Sprintf("%s/playback/%s/%s", TopicPrefix, robot, event)
}

// SystemStatus returns the retained online/offline status topic.
//
// Example: animcore/system/status
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// AllRequests matches every service request. The robot-side agent subscribes here.
//
// Pattern: animcore/request/+/+
func (Topics) AllRequests() string {
	return TopicPrefix + "/request/+/+"
}

// AllResponses matches every service response.
//
// Pattern: animcore/response/+/+
func (Topics) AllResponses() string {
	return TopicPrefix + "/response/+/+"
}

// AllPlaybackEvents matches playback events of every robot.
//
// Pattern: animcore/playback/+/+
func (Topics) AllPlaybackEvents() string {
	return TopicPrefix + "/playback/+/+"
}

// AllTopics matches all animcore traffic.
//
// Pattern: animcore/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

// ParseResponse splits a response topic into service and request ID.
//
// Returns:
//   - service, requestID: Topic components
//   - ok: false if topic is not an animcore response topic
func (Topics) ParseResponse(topic string) (service, requestID string, ok bool) {
	rest, found := strings.CutPrefix(topic, TopicPrefix+"/response/")
	if !found {
		return "", "", false
	}
	service, requestID, found = strings.Cut(rest, "/")
	if !found || service == "" || requestID == "" || strings.Contains(requestID, "/") {
		return "", "", false
	}
	return service, requestID, true
}
