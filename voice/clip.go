package voice

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// ClipDuration returns the playing time of a WAV file.
func ClipDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return 0, fmt.Errorf("not a valid wav file: %s", path)
	}
	d, err := decoder.Duration()
	if err != nil {
		return 0, fmt.Errorf("failed to read wav duration; %w", err)
	}
	return d, nil
}
