// Package audio plays animation soundtracks on the machine running animcore.
//
// LocalPlayer implements playback.AudioPlayer by launching an external
// player (aplay, mpg123, ...) chosen by file extension and supervised by
// the process package. It is used when the robot cannot reach the audio
// file, or when the sound should come from room speakers instead of the
// robot.
//
// Player command lines come from the audio.players configuration. In each
// argument "{file}" is replaced by the audio path and "{volume}" by the
// volume in percent; the path is appended when no argument mentions
// "{file}".
package audio
