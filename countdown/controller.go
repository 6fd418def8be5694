package countdown

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Announcer is the speech capability driven by the controller.
// Speak must not block on speech completion.
type Announcer interface {
	Speak(text string)
	Stop()
}

type silent struct{}

func (silent) Speak(string) {}
func (silent) Stop()        {}

// Controller counts down once per tick, reporting every remaining value to a
// callback and forwarding threshold values to an Announcer.
type Controller struct {
	cfg       Config
	announcer Announcer

	mu  sync.Mutex // serializes Start/Stop
	st  status
	run *run
}

// run holds the signalling state of a single countdown.
type run struct {
	id       string
	callback func(int)
	log      *logrus.Entry

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
	once sync.Once

	inCallback atomic.Bool

	speakMu sync.Mutex
	halted  bool
}

func New(cfg Config, announcer Announcer) *Controller {
	if announcer == nil {
		announcer = silent{}
	}
	return &Controller{
		cfg:       cfg.withDefaults(),
		announcer: announcer,
	}
}

// Start begins a countdown of duration ticks in its own goroutine. The
// callback (optional) receives duration first and 0 last. With immediate set
// the starting value is spoken when it is an announcement threshold.
//
// Cancelling ctx has the same effect as Stop. The callback must not call
// Start; use Stop or cancel ctx to end a countdown from inside it.
func (c *Controller) Start(ctx context.Context, duration int, callback func(int), immediate bool) error {
	if duration <= 0 {
		return fmt.Errorf("%w; got %d", ErrInvalidDuration, duration)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch State(c.st.state.Load()) {
	case StateRunning, StatePaused:
		return ErrAlreadyRunning
	}
	if c.run != nil {
		<-c.run.done // previous run may still be unwinding after Stop
	}

	r := &run{
		id:       uuid.NewString(),
		callback: callback,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	r.log = logrus.WithFields(logrus.Fields{
		"run":      r.id,
		"duration": duration,
	})
	c.run = r
	c.st.setRemaining(duration)
	c.st.setState(StateRunning)

	r.log.Debug("countdown started")
	go c.loop(ctx, r, duration, immediate)
	return nil
}

// Pause freezes the countdown. The part of the current tick that had not
// elapsed is carried over to Resume.
func (c *Controller) Pause() error {
	if !c.st.state.CompareAndSwap(int32(StateRunning), int32(StatePaused)) {
		return ErrNotRunning
	}
	c.poke()
	return nil
}

func (c *Controller) Resume() error {
	if !c.st.state.CompareAndSwap(int32(StatePaused), int32(StateRunning)) {
		return ErrNotPaused
	}
	c.poke()
	return nil
}

// Stop ends the countdown. No callback or speech request starts after Stop
// returns. Calling Stop on a finished countdown does nothing.
func (c *Controller) Stop() {
	c.mu.Lock()
	r := c.run
	if !c.transition(StateStopped) {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if r == nil {
		return
	}
	c.halt(r)
	if !r.inCallback.Load() {
		<-r.done
	}
}

func (c *Controller) Snapshot() Snapshot {
	return c.st.load()
}

// Done is closed when the current countdown completes or stops. Before the
// first Start it returns a closed channel.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.run.done
}

// Wait blocks until the countdown finishes or ctx is done.
func (c *Controller) Wait(ctx context.Context) (State, error) {
	select {
	case <-c.Done():
		return c.Snapshot().State, nil
	case <-ctx.Done():
		return c.Snapshot().State, ctx.Err()
	}
}

func (c *Controller) poke() {
	c.mu.Lock()
	r := c.run
	c.mu.Unlock()
	if r == nil {
		return
	}
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// transition moves a non-terminal state to to. It reports false when the
// countdown had already completed or stopped.
func (c *Controller) transition(to State) bool {
	for {
		cur := State(c.st.state.Load())
		if cur.Terminal() {
			return false
		}
		if c.st.state.CompareAndSwap(int32(cur), int32(to)) {
			return true
		}
	}
}

func (c *Controller) halt(r *run) {
	r.once.Do(func() {
		r.speakMu.Lock()
		r.halted = true
		c.announcer.Stop()
		r.speakMu.Unlock()
		close(r.stop)
		r.log.WithField("remaining", c.st.load().Remaining).Debug("countdown stopped")
	})
}

func (c *Controller) loop(ctx context.Context, r *run, remaining int, immediate bool) {
	defer close(r.done)

	if !c.emit(r, remaining) {
		return
	}
	if immediate && c.cfg.Announces(remaining) {
		c.speak(r, c.cfg.Phrase(remaining))
	}

	tick := c.cfg.Tick
	deadline := time.Now().Add(tick)
	timer := time.NewTimer(tick)
	defer timer.Stop()

	ticks := timer.C
	var left time.Duration

	pause := func() {
		if ticks == nil {
			return
		}
		left = time.Until(deadline)
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		ticks = nil
		r.log.WithField("remaining", remaining).Debug("countdown paused")
	}

	for {
		select {
		case <-ctx.Done():
			if c.transition(StateStopped) {
				c.halt(r)
			}
			return

		case <-r.stop:
			return

		case <-r.wake:
			switch State(c.st.state.Load()) {
			case StatePaused:
				pause()
			case StateRunning:
				if ticks != nil {
					continue
				}
				if left < 0 {
					left = 0
				}
				deadline = time.Now().Add(left)
				timer.Reset(left)
				ticks = timer.C
				r.log.WithField("remaining", remaining).Debug("countdown resumed")
			}

		case <-ticks:
			if State(c.st.state.Load()) == StatePaused {
				// fired while a pause signal was in flight
				left = 0
				ticks = nil
				continue
			}

			remaining--
			c.st.setRemaining(remaining)
			if !c.emit(r, remaining) {
				return
			}

			if remaining == 0 {
				c.speak(r, c.cfg.FinalMessage)
				if c.transition(StateCompleted) {
					r.log.Debug("countdown completed")
				}
				return
			}
			if c.cfg.Announces(remaining) {
				c.speak(r, c.cfg.Phrase(remaining))
			}

			deadline = deadline.Add(tick)
			next := time.Until(deadline)
			if next < 0 {
				next = 0
			}
			timer.Reset(next)
		}
	}
}

// emit hands remaining to the callback. It reports false once the countdown
// has been stopped, including by the callback itself.
func (c *Controller) emit(r *run, remaining int) bool {
	if State(c.st.state.Load()) == StateStopped {
		return false
	}
	if r.callback != nil {
		r.inCallback.Store(true)
		r.callback(remaining)
		r.inCallback.Store(false)
	}
	return State(c.st.state.Load()) != StateStopped
}

func (c *Controller) speak(r *run, text string) {
	r.speakMu.Lock()
	defer r.speakMu.Unlock()
	if r.halted {
		return
	}
	r.log.WithField("text", text).Debug("announce")
	c.announcer.Speak(text)
}
