package audio

import "errors"

var (
	// ErrUnsupportedFormat is returned when no player is configured for a file extension.
	ErrUnsupportedFormat = errors.New("audio: no player for file type")

	// ErrUnknownHandle is returned by Stop for a handle this player never issued.
	ErrUnknownHandle = errors.New("audio: unknown playback handle")

	// ErrAlreadyRunning is returned by PlayFile while another file is playing.
	ErrAlreadyRunning = errors.New("audio: playback already running")
)
