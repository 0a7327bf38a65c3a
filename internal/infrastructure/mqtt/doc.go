// Package mqtt provides the MQTT client animcore uses as its message bus.
//
// The robot runs a small agent that exposes its motion, behaviour, speech,
// audio and posture services over MQTT. animcore publishes requests and
// waits for the matching response:
//
//	animcore ── animcore/request/{service}/{id} ──▶ robot agent
//	animcore ◀── animcore/response/{service}/{id} ── robot agent
//
// Playback results are published on animcore/playback/{robot}/{event}.
// The client's presence is kept on the retained animcore/system/status
// topic, with a Last Will so an unclean exit is reported as offline.
//
// # Reconnection
//
// paho reconnects with exponential backoff between the configured initial
// and maximum delays. Subscriptions are tracked and restored on every
// reconnect.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllResponses(), 1,
//	    func(topic string, payload []byte) error {
//	        return handle(topic, payload)
//	    })
//
// Tests that need a broker at 127.0.0.1:1883 are behind the integration
// build tag:
//
//	go test -tags=integration ./internal/infrastructure/mqtt/...
package mqtt
