package voice

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Silent is the engine used when speech is disabled or could not be set up.
type Silent struct{}

func (Silent) Name() string { return "silent" }

func (Silent) Speak(ctx context.Context, text string) error {
	logrus.WithField("text", text).Debug("silent engine: would say")
	return nil
}
