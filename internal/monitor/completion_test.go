package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedProbe replays a fixed sequence of observations. The last
// sample repeats once the script runs out.
type scriptedProbe struct {
	samples []probeSample
	pos     int
}

type probeSample struct {
	length    int
	streaming bool
}

func (s *scriptedProbe) current() probeSample {
	if s.pos >= len(s.samples) {
		return s.samples[len(s.samples)-1]
	}
	return s.samples[s.pos]
}

func (s *scriptedProbe) ResponseLength() (int, error) {
	return s.current().length, nil
}

func (s *scriptedProbe) IsStreaming() (bool, error) {
	sample := s.current()
	s.pos++
	return sample.streaming, nil
}

func newTestWaiter(probe answerProbe, answerTimeout time.Duration) *completionWaiter {
	w := newCompletionWaiter(probe, answerTimeout, time.Millisecond, 3, 0, zap.NewNop())
	w.sleep = func(time.Duration) {}
	return w
}

func TestCompletionWaiter(t *testing.T) {
	t.Run("full lifecycle", func(t *testing.T) {
		probe := &scriptedProbe{samples: []probeSample{
			{0, false}, // nothing yet
			{0, true},  // streaming begins
			{40, true},
			{80, true},
			{120, false}, // stream ended, stabilizing
			{120, false},
			{120, false},
			{120, false},
		}}

		err := newTestWaiter(probe, time.Second).wait(context.Background())
		require.NoError(t, err)
	})

	t.Run("length growth resets stability", func(t *testing.T) {
		probe := &scriptedProbe{samples: []probeSample{
			{10, true},
			{50, false},
			{50, false},
			{90, false}, // late mutation resets the counter
			{90, false},
			{90, false},
			{90, false},
		}}

		err := newTestWaiter(probe, time.Second).wait(context.Background())
		require.NoError(t, err)
	})

	t.Run("streaming resumes from stabilizing", func(t *testing.T) {
		probe := &scriptedProbe{samples: []probeSample{
			{10, true},
			{50, false}, // looks settled
			{50, true},  // tool call resumed generation
			{200, false},
			{200, false},
			{200, false},
			{200, false},
		}}

		err := newTestWaiter(probe, time.Second).wait(context.Background())
		require.NoError(t, err)
	})

	t.Run("zero length never counts as stable", func(t *testing.T) {
		// Stop affordance flickered on and off without any rendered
		// text; the waiter must keep polling instead of declaring an
		// empty answer done.
		probe := &scriptedProbe{samples: []probeSample{
			{0, true},
			{0, false},
		}}

		err := newTestWaiter(probe, 20*time.Millisecond).wait(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stabilizing")
	})

	t.Run("text after empty flicker still completes", func(t *testing.T) {
		probe := &scriptedProbe{samples: []probeSample{
			{0, true},
			{0, false},
			{0, false},
			{35, false},
			{35, false},
			{35, false},
			{35, false},
		}}

		err := newTestWaiter(probe, time.Second).wait(context.Background())
		require.NoError(t, err)
	})

	t.Run("first message timeout", func(t *testing.T) {
		probe := &scriptedProbe{samples: []probeSample{{0, false}}}

		err := newTestWaiter(probe, 20*time.Millisecond).wait(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "awaiting_first_message")
	})

	t.Run("context cancelled", func(t *testing.T) {
		probe := &scriptedProbe{samples: []probeSample{{0, false}}}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := newTestWaiter(probe, time.Second).wait(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("instant answer without observed streaming", func(t *testing.T) {
		// Length appears and never changes; the stop button was never
		// seen because polling missed the stream window.
		probe := &scriptedProbe{samples: []probeSample{
			{150, false},
			{150, false},
			{150, false},
			{150, false},
			{150, false},
		}}

		err := newTestWaiter(probe, time.Second).wait(context.Background())
		require.NoError(t, err)
	})
}

func TestCompletionStateString(t *testing.T) {
	assert.Equal(t, "awaiting_first_message", stateAwaitingFirstMessage.String())
	assert.Equal(t, "streaming", stateStreaming.String())
	assert.Equal(t, "stabilizing", stateStabilizing.String())
	assert.Equal(t, "done", stateDone.String())
}
