package countdown

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTick = 20 * time.Millisecond

type recorder struct {
	mu      sync.Mutex
	values  []int
	spoken  []string
	stopped int
}

func (r *recorder) callback(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, n)
}

func (r *recorder) Speak(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spoken = append(r.spoken, text)
}

func (r *recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped++
}

func (r *recorder) snapshot() ([]int, []string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.values...), append([]string(nil), r.spoken...), r.stopped
}

func (r *recorder) count(text string) int {
	_, spoken, _ := r.snapshot()
	n := 0
	for _, s := range spoken {
		if s == text {
			n++
		}
	}
	return n
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Tick = testTick
	return cfg
}

func waitDone(t *testing.T, c *Controller) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	state, err := c.Wait(ctx)
	require.NoError(t, err)
	return state
}

func TestCountdownEndToEnd(t *testing.T) {
	rec := &recorder{}
	c := New(testConfig(), rec)

	require.NoError(t, c.Start(context.Background(), 3, rec.callback, true))
	assert.Equal(t, StateCompleted, waitDone(t, c))

	values, spoken, stopped := rec.snapshot()
	assert.Equal(t, []int{3, 2, 1, 0}, values)
	assert.Equal(t, []string{"3", "2", "1", DefaultFinalMessage}, spoken)
	assert.Equal(t, 1, rec.count(DefaultFinalMessage))
	assert.Equal(t, 0, stopped)
	assert.Equal(t, Snapshot{Remaining: 0, State: StateCompleted}, c.Snapshot())
}

func TestCountdownSequenceStrictlyDecreasing(t *testing.T) {
	for _, d := range []int{1, 2, 5, 12} {
		rec := &recorder{}
		c := New(Config{Tick: time.Millisecond}, rec)
		require.NoError(t, c.Start(context.Background(), d, rec.callback, false))
		waitDone(t, c)

		values, _, _ := rec.snapshot()
		require.Len(t, values, d+1)
		for i, v := range values {
			assert.Equal(t, d-i, v)
		}
	}
}

func TestStartWithoutImmediateSkipsInitialPhrase(t *testing.T) {
	rec := &recorder{}
	c := New(testConfig(), rec)

	require.NoError(t, c.Start(context.Background(), 2, rec.callback, false))
	waitDone(t, c)

	_, spoken, _ := rec.snapshot()
	assert.Equal(t, []string{"1", DefaultFinalMessage}, spoken)
}

func TestAnnouncementThresholds(t *testing.T) {
	rec := &recorder{}
	cfg := Config{
		Tick:         time.Millisecond,
		AnnounceLast: 2,
		Checkpoints:  []int{5},
		FinalMessage: "liftoff",
	}
	c := New(cfg, rec)

	require.NoError(t, c.Start(context.Background(), 6, nil, true))
	waitDone(t, c)

	_, spoken, _ := rec.snapshot()
	assert.Equal(t, []string{"5", "2", "1", "liftoff"}, spoken)
}

func TestStartInvalidDuration(t *testing.T) {
	for _, d := range []int{0, -1, -100} {
		rec := &recorder{}
		c := New(testConfig(), rec)

		err := c.Start(context.Background(), d, rec.callback, true)
		assert.ErrorIs(t, err, ErrInvalidDuration)
		assert.Equal(t, StateIdle, c.Snapshot().State)

		values, spoken, _ := rec.snapshot()
		assert.Empty(t, values)
		assert.Empty(t, spoken)
	}
}

func TestStartWhileRunning(t *testing.T) {
	c := New(testConfig(), nil)
	require.NoError(t, c.Start(context.Background(), 50, nil, false))
	defer c.Stop()

	assert.ErrorIs(t, c.Start(context.Background(), 5, nil, false), ErrAlreadyRunning)
}

func TestPauseResumeFreezesRemaining(t *testing.T) {
	rec := &recorder{}
	c := New(testConfig(), rec)

	require.NoError(t, c.Start(context.Background(), 5, rec.callback, false))
	require.Eventually(t, func() bool {
		return c.Snapshot().Remaining <= 4
	}, time.Second, time.Millisecond)

	require.NoError(t, c.Pause())
	time.Sleep(testTick) // let a tick already in flight land
	frozen := c.Snapshot()
	assert.True(t, frozen.Paused())

	time.Sleep(10 * testTick)
	assert.Equal(t, frozen.Remaining, c.Snapshot().Remaining)

	require.NoError(t, c.Resume())
	assert.True(t, c.Snapshot().Running())
	assert.Equal(t, StateCompleted, waitDone(t, c))

	values, _, _ := rec.snapshot()
	assert.Equal(t, []int{5, 4, 3, 2, 1, 0}, values)
}

func TestPauseResumeErrors(t *testing.T) {
	c := New(testConfig(), nil)
	assert.ErrorIs(t, c.Pause(), ErrNotRunning)
	assert.ErrorIs(t, c.Resume(), ErrNotPaused)

	require.NoError(t, c.Start(context.Background(), 50, nil, false))
	defer c.Stop()

	assert.ErrorIs(t, c.Resume(), ErrNotPaused)
	require.NoError(t, c.Pause())
	assert.ErrorIs(t, c.Pause(), ErrNotRunning)
}

func TestStopHaltsCallbacksAndSpeech(t *testing.T) {
	rec := &recorder{}
	c := New(testConfig(), rec)

	require.NoError(t, c.Start(context.Background(), 10, rec.callback, true))
	require.Eventually(t, func() bool {
		return c.Snapshot().Remaining <= 8
	}, time.Second, time.Millisecond)

	c.Stop()
	assert.Equal(t, StateStopped, c.Snapshot().State)

	values, spoken, stopped := rec.snapshot()
	time.Sleep(5 * testTick)

	after, spokenAfter, _ := rec.snapshot()
	assert.Equal(t, values, after)
	assert.Equal(t, spoken, spokenAfter)
	assert.Equal(t, 1, stopped)
	assert.Zero(t, rec.count(DefaultFinalMessage))
}

func TestStopIsIdempotent(t *testing.T) {
	rec := &recorder{}
	c := New(testConfig(), rec)

	require.NoError(t, c.Start(context.Background(), 10, rec.callback, false))
	c.Stop()
	c.Stop()

	_, _, stopped := rec.snapshot()
	assert.Equal(t, 1, stopped)
	assert.Equal(t, StateStopped, c.Snapshot().State)
}

func TestStopBeforeStartAndAfterCompletion(t *testing.T) {
	c := New(testConfig(), nil)
	c.Stop()
	assert.Equal(t, StateStopped, c.Snapshot().State)

	require.NoError(t, c.Start(context.Background(), 1, nil, false))
	assert.Equal(t, StateCompleted, waitDone(t, c))

	c.Stop()
	assert.Equal(t, StateCompleted, c.Snapshot().State)
}

func TestStopFromCallback(t *testing.T) {
	rec := &recorder{}
	c := New(testConfig(), rec)

	require.NoError(t, c.Start(context.Background(), 5, func(n int) {
		rec.callback(n)
		if n == 3 {
			c.Stop()
		}
	}, false))
	assert.Equal(t, StateStopped, waitDone(t, c))

	values, _, _ := rec.snapshot()
	assert.Equal(t, []int{5, 4, 3}, values)
	assert.Zero(t, rec.count("3"))
}

func TestContextCancelStops(t *testing.T) {
	rec := &recorder{}
	c := New(testConfig(), rec)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, c.Start(ctx, 50, rec.callback, false))
	cancel()

	assert.Equal(t, StateStopped, waitDone(t, c))
	_, _, stopped := rec.snapshot()
	assert.Equal(t, 1, stopped)
}

func TestRestartAfterStop(t *testing.T) {
	rec := &recorder{}
	c := New(testConfig(), rec)

	require.NoError(t, c.Start(context.Background(), 50, nil, false))
	c.Stop()

	require.NoError(t, c.Start(context.Background(), 2, rec.callback, false))
	assert.Equal(t, StateCompleted, waitDone(t, c))

	values, _, _ := rec.snapshot()
	assert.Equal(t, []int{2, 1, 0}, values)
}

func TestWaitHonoursContext(t *testing.T) {
	c := New(testConfig(), nil)
	require.NoError(t, c.Start(context.Background(), 50, nil, false))
	defer c.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), testTick)
	defer cancel()
	state, err := c.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateRunning, state)
}
