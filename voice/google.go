package voice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	htgotts "github.com/hegedustibor/htgo-tts"
	"github.com/hegedustibor/htgo-tts/handlers"
	"github.com/sirupsen/logrus"
)

// size of the mp3 google returns when it rejects the text
const badGoogleMP3Size = 1685

// htgo-tts downloads without a context, so the call runs in the background
// and is abandoned when ctx ends.
var createSpeechFile = func(speech htgotts.Speech, text, name string) (string, error) {
	return speech.CreateSpeechFile(text, name)
}

// Google synthesizes phrases with the Google Translate voice and plays the
// downloaded mp3. Rate and volume are fixed by the service.
type Google struct {
	Language string
	Cache    *PhraseCache
	Player   Player
}

func (api *Google) Name() string { return "google" }

func (api *Google) Render(ctx context.Context, text string) (string, error) {
	return api.Cache.Resolve("google|"+api.Language+"|"+text, ".mp3", func(path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		speech := htgotts.Speech{Folder: filepath.Dir(path), Language: api.Language}
		name := strings.TrimSuffix(filepath.Base(path), ".mp3")
		file, err := download(ctx, speech, text, name)
		if err != nil {
			return err
		}

		info, err := os.Stat(file)
		if err != nil {
			return err
		}
		if info.Size() == badGoogleMP3Size {
			logrus.WithField("line", text).Infoln("htgotts returned bad MP3file")
			return errors.New("failed to gen speech - line too long")
		}
		return nil
	})
}

func download(ctx context.Context, speech htgotts.Speech, text, name string) (string, error) {
	type result struct {
		file string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		file, err := createSpeechFile(speech, text, name)
		if err == nil && ctx.Err() != nil {
			os.Remove(file) // nobody is waiting for it, don't leave a partial clip
		}
		done <- result{file, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("%w; google tts failed; %v", ErrSpeechUnavailable, r.err)
		}
		return r.file, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (api *Google) Speak(ctx context.Context, text string) error {
	file, err := api.Render(ctx, text)
	if err != nil {
		return err
	}
	return play(ctx, api.Player, file)
}

// play runs the blocking player in the background so a cancelled ctx
// releases the caller. The player itself keeps going until the clip ends.
func play(ctx context.Context, player Player, file string) error {
	if player == nil {
		player = &handlers.Native{}
	}
	errc := make(chan error, 1)
	go func() { errc <- player.Play(file) }()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("%w; failed to play %s; %v", ErrSpeechUnavailable, filepath.Base(file), err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
