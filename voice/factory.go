package voice

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hegedustibor/htgo-tts/handlers"

	"countdown/config"
)

const (
	EngineSystem     = "system"
	EngineGoogle     = "google"
	EngineElevenLabs = "elevenlabs"
	EngineSilent     = "silent"
)

// NewEngine builds the engine named by cfg.Engine. Engines that download
// audio share a PhraseCache under cfg.CacheDir, which is returned so the
// caller can close it; it is nil for engines without a cache.
func NewEngine(cfg *config.Config) (Engine, *PhraseCache, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Engine))
	if name == "" {
		name = EngineSystem
	}

	switch name {
	case EngineSilent:
		return Silent{}, nil, nil
	case EngineSystem:
		cache := NewPhraseCache(filepath.Join(cfg.CacheDir, EngineSystem), DefaultPhraseTTL)
		engine, err := NewSystem(cfg.Voice, cache)
		if err != nil {
			cache.Close()
			return nil, nil, err
		}
		return engine, cache, nil
	case EngineGoogle:
		cache := NewPhraseCache(filepath.Join(cfg.CacheDir, EngineGoogle), DefaultPhraseTTL)
		return &Google{
			Language: cfg.Voice.Language,
			Cache:    cache,
			Player:   newPlayer(cfg.Voice.Player),
		}, cache, nil
	case EngineElevenLabs:
		if cfg.ElevenLabs.APIKey == "" {
			return nil, nil, fmt.Errorf("%w; ELEVENLABS_APIKEY not set", ErrSpeechUnavailable)
		}
		cache := NewPhraseCache(filepath.Join(cfg.CacheDir, EngineElevenLabs), DefaultPhraseTTL)
		return &ElevenLabs{
			ApiKey:  cfg.ElevenLabs.APIKey,
			VoiceID: cfg.ElevenLabs.VoiceID,
			Model:   cfg.ElevenLabs.Model,
			Timeout: 30 * time.Second,
			Cache:   cache,
			Player:  newPlayer(cfg.Voice.Player),
		}, cache, nil
	default:
		return nil, nil, fmt.Errorf("%w; %q", ErrUnknownEngine, cfg.Engine)
	}
}

func newPlayer(name string) Player {
	if strings.EqualFold(name, "mplayer") {
		return &handlers.MPlayer{}
	}
	return &handlers.Native{}
}
