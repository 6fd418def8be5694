package voice

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/haguro/elevenlabs-go"
)

type ElevenLabs struct {
	ApiKey  string
	VoiceID string
	Model   string
	Timeout time.Duration

	Cache  *PhraseCache
	Player Player
}

func (api *ElevenLabs) Name() string { return "elevenlabs" }

// Render converts text to speech & saves the mp3 in the phrase cache.
func (api *ElevenLabs) Render(ctx context.Context, text string) (string, error) {
	if api.ApiKey == "" {
		return "", fmt.Errorf("%w; missing elevenlabs api key", ErrSpeechUnavailable)
	}
	key := "elevenlabs|" + api.VoiceID + "|" + api.Model + "|" + text

	return api.Cache.Resolve(key, ".mp3", func(path string) error {
		timeout := api.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client := elevenlabs.NewClient(ctx, api.ApiKey, timeout)

		ttsReq := elevenlabs.TextToSpeechRequest{
			Text:    text,
			ModelID: api.Model,
		}
		audio, err := client.TextToSpeech(api.VoiceID, ttsReq)
		if err != nil {
			return fmt.Errorf("%w; failed tts; %v", ErrSpeechUnavailable, err)
		}

		if err := os.WriteFile(path, audio, 0644); err != nil {
			return fmt.Errorf("failed to write file to disk; %w", err)
		}
		return nil
	})
}

func (api *ElevenLabs) Speak(ctx context.Context, text string) error {
	file, err := api.Render(ctx, text)
	if err != nil {
		return err
	}
	return play(ctx, api.Player, file)
}
