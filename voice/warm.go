package voice

import (
	"context"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const warmLimit = 4

// Warm renders phrases ahead of the countdown for engines that can, so the
// first announcements don't wait on synthesis. Rendered WAV clips longer
// than tick are reported since they will overlap the next announcement.
// It returns the first render error; phrases that did render stay cached.
func Warm(ctx context.Context, engine Engine, phrases []string, tick time.Duration) error {
	renderer, ok := engine.(Renderer)
	if !ok {
		return nil
	}

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(warmLimit)

	for _, phrase := range phrases {
		phrase := phrase
		group.Go(func() error {
			file, err := renderer.Render(ctx, phrase)
			if err != nil {
				return err
			}
			checkClip(file, phrase, tick)
			return nil
		})
	}

	return group.Wait()
}

func checkClip(file, phrase string, tick time.Duration) {
	if filepath.Ext(file) != ".wav" || tick <= 0 {
		return
	}
	d, err := ClipDuration(file)
	if err != nil {
		logrus.WithError(err).WithField("file", file).Debug("could not measure clip")
		return
	}
	if d > tick {
		logrus.WithFields(logrus.Fields{
			"phrase": phrase,
			"clip":   d,
			"tick":   tick,
		}).Warnln("phrase takes longer to say than a tick; announcements will lag")
	}
}
