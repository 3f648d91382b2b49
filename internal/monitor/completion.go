package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// completionState tracks the lifecycle of an in-progress answer.
type completionState int

const (
	stateAwaitingFirstMessage completionState = iota
	stateStreaming
	stateStabilizing
	stateDone
)

func (s completionState) String() string {
	switch s {
	case stateAwaitingFirstMessage:
		return "awaiting_first_message"
	case stateStreaming:
		return "streaming"
	case stateStabilizing:
		return "stabilizing"
	case stateDone:
		return "done"
	}
	return "unknown"
}

// answerProbe observes the assistant message being generated. The
// production implementation reads the live page; tests script it.
type answerProbe interface {
	// ResponseLength returns the character length of the latest
	// assistant message, 0 when none has appeared yet.
	ResponseLength() (int, error)

	// IsStreaming reports whether the engine is still generating
	// (the stop affordance is showing).
	IsStreaming() (bool, error)
}

// completionWaiter drives the answer lifecycle until the response has
// fully settled.
type completionWaiter struct {
	probe         answerProbe
	answerTimeout time.Duration
	pollInterval  time.Duration
	stableSamples int
	settleDelay   time.Duration
	logger        *zap.Logger

	// sleep is swapped out in tests
	sleep func(time.Duration)
}

func newCompletionWaiter(probe answerProbe, answerTimeout, pollInterval time.Duration, stableSamples int, settleDelay time.Duration, logger *zap.Logger) *completionWaiter {
	if stableSamples < 1 {
		stableSamples = 1
	}
	return &completionWaiter{
		probe:         probe,
		answerTimeout: answerTimeout,
		pollInterval:  pollInterval,
		stableSamples: stableSamples,
		settleDelay:   settleDelay,
		logger:        logger,
		sleep:         time.Sleep,
	}
}

// wait blocks until the answer is complete: first message appears
// within the answer timeout, streaming ends, and the response length
// holds steady at a non-zero value for stableSamples consecutive
// polls. A settle delay runs before returning so late DOM mutations
// land.
func (w *completionWaiter) wait(ctx context.Context) error {
	state := stateAwaitingFirstMessage
	deadline := time.Now().Add(w.answerTimeout)
	stableCount := 0
	lastLen := -1

	for state != stateDone {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("waiting for answer (%s): %w", state, err)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for answer (%s) after %s", state, w.answerTimeout)
		}

		length, err := w.probe.ResponseLength()
		if err != nil {
			return fmt.Errorf("probing response (%s): %w", state, err)
		}
		streaming, err := w.probe.IsStreaming()
		if err != nil {
			return fmt.Errorf("probing stream state (%s): %w", state, err)
		}

		next := state
		switch state {
		case stateAwaitingFirstMessage:
			if length > 0 || streaming {
				next = stateStreaming
			}
		case stateStreaming:
			if !streaming {
				next = stateStabilizing
				stableCount = 0
				lastLen = length
			}
		case stateStabilizing:
			switch {
			case streaming:
				// Generation resumed, e.g. a tool call finished.
				next = stateStreaming
			case length != lastLen:
				stableCount = 0
				lastLen = length
			case length > 0:
				// A zero-length sample is never evidence of completion;
				// keep polling until text appears or the deadline fires.
				stableCount++
				if stableCount >= w.stableSamples {
					next = stateDone
				}
			}
		}

		if next != state {
			w.logger.Debug("answer state transition",
				zap.String("from", state.String()),
				zap.String("to", next.String()),
				zap.Int("response_len", length),
			)
			state = next
		}
		if state != stateDone {
			w.sleep(w.pollInterval)
		}
	}

	w.sleep(w.settleDelay)
	return nil
}
