package voice

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"countdown/countdown"
)

const (
	DefaultQueueSize   = 4
	DefaultMinInterval = 250 * time.Millisecond
)

type AnnouncerOptions struct {
	// QueueSize bounds the phrases waiting behind the one being spoken.
	// When full the oldest waiting phrase is evicted.
	QueueSize int
	// MinInterval throttles speech requests. Requests over the limit are
	// dropped. 0 disables throttling.
	MinInterval time.Duration
	Burst       int
	// FinalMessage is never throttled or evicted, and once queued it
	// replaces any counts still waiting.
	FinalMessage string
}

// Announcer speaks phrases one at a time on a background goroutine.
// Speak never blocks and never fails: speech is best effort, so problems are
// logged and the phrase is dropped.
type Announcer struct {
	engine  Engine
	limiter *rate.Limiter
	size    int
	final   string

	mu       sync.Mutex
	pending  []string
	finale   string
	busy     bool
	flushers []chan struct{}
	wake     chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	failures atomic.Int64
	dropped  atomic.Int64
}

func NewAnnouncer(engine Engine, opts AnnouncerOptions) *Announcer {
	if engine == nil {
		engine = Silent{}
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.FinalMessage == "" {
		opts.FinalMessage = countdown.DefaultFinalMessage
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Announcer{
		engine:  engine,
		limiter: rate.NewLimiter(limit, opts.Burst),
		size:    opts.QueueSize,
		final:   opts.FinalMessage,
		wake:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
	go a.worker()
	return a
}

func (a *Announcer) Speak(text string) {
	if a.ctx.Err() != nil {
		return
	}
	log := logrus.WithField("text", text)

	if text == a.final {
		a.mu.Lock()
		a.dropped.Add(int64(len(a.pending)))
		a.pending = nil // stale once the countdown is over
		a.finale = text
		a.mu.Unlock()
		a.signal()
		return
	}

	if !a.limiter.Allow() {
		a.dropped.Add(1)
		log.Warnln("speech throttled, dropping phrase")
		return
	}

	a.mu.Lock()
	if len(a.pending) >= a.size {
		log.WithField("evicted", a.pending[0]).Warnln("speech falling behind, dropping oldest phrase")
		a.pending = a.pending[1:]
		a.dropped.Add(1)
	}
	a.pending = append(a.pending, text)
	a.mu.Unlock()
	a.signal()
}

// Stop cancels the phrase being spoken and discards queued ones. Later
// Speak calls are ignored. It does not wait for the engine to return.
func (a *Announcer) Stop() {
	a.once.Do(func() {
		a.cancel()
		logrus.WithFields(logrus.Fields{
			"failures": a.failures.Load(),
			"dropped":  a.dropped.Load(),
		}).Debug("announcer stopped")
	})
}

// Drain waits until every phrase queued before the call has been spoken.
func (a *Announcer) Drain(ctx context.Context) error {
	a.mu.Lock()
	if !a.busy && len(a.pending) == 0 && a.finale == "" {
		a.mu.Unlock()
		return nil
	}
	flushed := make(chan struct{})
	a.flushers = append(a.flushers, flushed)
	a.mu.Unlock()

	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-a.ctx.Done():
		return nil
	}
}

// Failures counts phrases the engine could not speak.
func (a *Announcer) Failures() int64 { return a.failures.Load() }

// Dropped counts phrases discarded by throttling or a full queue.
func (a *Announcer) Dropped() int64 { return a.dropped.Load() }

func (a *Announcer) signal() {
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// next pops the phrase to speak, final message first. With nothing left it
// marks the worker idle and releases waiting Drain calls.
func (a *Announcer) next() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case a.finale != "":
		text := a.finale
		a.finale = ""
		a.busy = true
		return text, true
	case len(a.pending) > 0:
		text := a.pending[0]
		a.pending = a.pending[1:]
		a.busy = true
		return text, true
	}

	a.busy = false
	for _, f := range a.flushers {
		close(f)
	}
	a.flushers = nil
	return "", false
}

func (a *Announcer) worker() {
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.wake:
		}
		for a.ctx.Err() == nil {
			text, ok := a.next()
			if !ok {
				break
			}
			a.say(text)
		}
	}
}

func (a *Announcer) say(text string) {
	err := a.engine.Speak(a.ctx, text)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	a.failures.Add(1)
	logrus.
		WithError(err).
		WithField("engine", a.engine.Name()).
		WithField("text", text).
		Warnln("failed to speak")
}
