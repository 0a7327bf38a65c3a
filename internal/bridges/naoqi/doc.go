// Package naoqi reaches the robot's NAOqi services over MQTT.
//
// A small agent running on the robot subscribes to animcore/request/+/+,
// calls the matching NAOqi proxy (ALMotion, ALAutonomousLife services,
// ALTextToSpeech, ALAudioPlayer, ALRobotPosture) and answers on the
// response topic with the same request ID:
//
//	┌──────────────┐  request/{service}/{id}   ┌──────────────┐
//	│   animcore   │──────────────────────────▶│ robot agent  │──▶ NAOqi
//	│   (Bridge)   │◀──────────────────────────│              │
//	└──────────────┘  response/{service}/{id}  └──────────────┘
//
// Bridge implements every robot collaborator the playback package needs:
// motion (with joint limits and wake-up), behaviour toggles, speech, audio
// and posture. Each call is one request/response exchange bounded by the
// configured request timeout, extended for calls that block on the robot
// such as a full interpolation.
//
// # Usage
//
//	bridge, err := naoqi.NewBridge(naoqi.Options{
//	    MQTT:    mqttClient,
//	    Robot:   cfg.Robot.Name,
//	    Timeout: cfg.Robot.RequestTimeout,
//	    Logger:  log,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := bridge.Start(); err != nil {
//	    return err
//	}
//	defer bridge.Close()
//
//	robot := bridge.Robot() // playback.Robot backed by the bridge
package naoqi
