package voice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var (
	ErrSpeechUnavailable = errors.New("speech unavailable")
	ErrUnknownEngine     = errors.New("unknown speech engine")
)

// Engine speaks text through a platform or vendor TTS backend.
// Speak blocks until the text has been spoken or ctx is done.
type Engine interface {
	Speak(ctx context.Context, text string) error
	Name() string
}

// Renderer is implemented by engines that can synthesize a phrase to a file
// ahead of time. Render returns the path of the (possibly cached) file.
type Renderer interface {
	Render(ctx context.Context, text string) (string, error)
}

// Player plays an audio file. Satisfied by the htgo-tts handlers.
type Player interface {
	Play(fileName string) error
}

// --- utilities for this package

func hashString(input string) string {
	hash := sha256.New()
	hash.Write([]byte(input))
	return hex.EncodeToString(hash.Sum(nil))
}
