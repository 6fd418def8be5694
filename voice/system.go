package voice

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"countdown/config"
)

// System speaks through the speech command shipped with the OS:
// espeak-ng/espeak on linux, say on macOS and System.Speech on windows.
// Phrases already rendered into the cache are played back with the OS
// audio player instead when one is installed.
type System struct {
	Voice config.VoiceConfig
	Cache *PhraseCache

	bin    string
	player string
}

// NewSystem locates the platform speech command. It fails with
// ErrSpeechUnavailable when none is installed.
func NewSystem(voice config.VoiceConfig, cache *PhraseCache) (*System, error) {
	return newSystem(voice, cache, exec.LookPath)
}

func newSystem(voice config.VoiceConfig, cache *PhraseCache, lookPath func(string) (string, error)) (*System, error) {
	for _, name := range candidates() {
		path, err := lookPath(name)
		if err == nil {
			s := &System{Voice: voice, Cache: cache, bin: path}
			for _, p := range players() {
				if player, err := lookPath(p); err == nil {
					s.player = player
					break
				}
			}
			logrus.WithFields(logrus.Fields{"bin": path, "player": s.player}).Debug("using system speech")
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w; none of %s found in PATH", ErrSpeechUnavailable, strings.Join(candidates(), ", "))
}

func (s *System) Name() string { return "system" }

func (s *System) Speak(ctx context.Context, text string) error {
	bin, args := s.command(text)
	cmd := exec.CommandContext(ctx, bin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w; %s failed: %v: %s", ErrSpeechUnavailable, filepath.Base(bin), err, out)
	}
	return nil
}

// command plays the cached clip for text when there is one, otherwise it
// synthesizes live.
func (s *System) command(text string) (string, []string) {
	if s.Cache != nil && s.player != "" {
		if file, ok := s.Cache.Lookup(s.cacheKey(text), ".wav"); ok {
			return s.player, playArgs(s.player, file)
		}
	}
	return s.bin, s.args(text, "")
}

// Render writes the phrase to a WAV file in the phrase cache.
func (s *System) Render(ctx context.Context, text string) (string, error) {
	if s.Cache == nil {
		return "", fmt.Errorf("%w; no cache configured for rendering", ErrSpeechUnavailable)
	}
	return s.Cache.Resolve(s.cacheKey(text), ".wav", func(path string) error {
		cmd := exec.CommandContext(ctx, s.bin, s.args(text, path)...)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("failed to render speech; %v: %s", err, out)
		}
		return nil
	})
}

// cacheKey includes the voice settings so rendered clips don't leak between
// configurations sharing a cache dir.
func (s *System) cacheKey(text string) string {
	return fmt.Sprintf("system|%d|%.2f|%s|%s", s.Voice.Rate, s.Voice.Volume, s.Voice.Voice, text)
}

func (s *System) args(text, out string) []string {
	switch strings.TrimSuffix(filepath.Base(s.bin), ".exe") {
	case "say":
		return sayArgs(s.Voice, text, out)
	case "powershell", "pwsh":
		return powershellArgs(s.Voice, text, out)
	default:
		return espeakArgs(s.Voice, text, out)
	}
}

// espeakArgs maps the voice config onto espeak(-ng) flags. Amplitude runs
// from 0 to 200 with 100 as the normal level.
func espeakArgs(v config.VoiceConfig, text, out string) []string {
	args := []string{
		"-s", strconv.Itoa(v.Rate),
		"-a", strconv.Itoa(int(math.Round(v.Volume * 100))),
	}
	if v.Voice != "" {
		args = append(args, "-v", v.Voice)
	}
	if out != "" {
		args = append(args, "-w", out)
	}
	return append(args, "--", text)
}

// sayArgs maps the voice config onto macOS say. say has no volume flag on
// every release, so volume is set with an embedded speech command.
func sayArgs(v config.VoiceConfig, text, out string) []string {
	args := []string{"-r", strconv.Itoa(v.Rate)}
	if v.Voice != "" {
		args = append(args, "-v", v.Voice)
	}
	if out != "" {
		args = append(args, "-o", out, "--file-format=WAVE", "--data-format=LEI16@22050")
	}
	return append(args, fmt.Sprintf("[[volm %.2f]] %s", v.Volume, text))
}

// powershellArgs drives System.Speech. Its rate is -10..10 around roughly
// 180 wpm and its volume is 0..100.
func powershellArgs(v config.VoiceConfig, text, out string) []string {
	rate := (v.Rate - 180) / 20
	if rate < -10 {
		rate = -10
	}
	if rate > 10 {
		rate = 10
	}

	var script strings.Builder
	script.WriteString("Add-Type -AssemblyName System.Speech; ")
	script.WriteString("$s = New-Object System.Speech.Synthesis.SpeechSynthesizer; ")
	fmt.Fprintf(&script, "$s.Rate = %d; $s.Volume = %d; ", rate, int(math.Round(v.Volume*100)))
	if v.Voice != "" {
		fmt.Fprintf(&script, "$s.SelectVoice(%s); ", psQuote(v.Voice))
	}
	if out != "" {
		fmt.Fprintf(&script, "$s.SetOutputToWaveFile(%s); ", psQuote(out))
	}
	fmt.Fprintf(&script, "$s.Speak(%s); $s.Dispose()", psQuote(text))

	return []string{"-NoProfile", "-NonInteractive", "-Command", script.String()}
}

func playArgs(player, file string) []string {
	switch strings.TrimSuffix(filepath.Base(player), ".exe") {
	case "aplay":
		return []string{"-q", file}
	case "powershell", "pwsh":
		script := fmt.Sprintf("(New-Object Media.SoundPlayer %s).PlaySync()", psQuote(file))
		return []string{"-NoProfile", "-NonInteractive", "-Command", script}
	default:
		return []string{file}
	}
}

func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
