package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by Send unless the client is Open.
	ErrNotConnected = errors.New("stream: not connected")
	// ErrSendUnsupported is returned by Send on server-push endpoints.
	ErrSendUnsupported = errors.New("stream: endpoint does not accept outbound messages")
	// ErrClosed is returned by Send after Close. It matches ErrNotConnected.
	ErrClosed error = closedError{}
	// ErrRetryBudgetExhausted ends a run after too many consecutive failures.
	ErrRetryBudgetExhausted = errors.New("stream: retry budget exhausted")
)

type closedError struct{}

func (closedError) Error() string { return "stream: client closed" }

func (closedError) Is(target error) bool { return target == ErrNotConnected }

// TransportError wraps a dial, receive or send failure. Attempt is the
// connection attempt within the run for dial failures and zero otherwise.
type TransportError struct {
	Op      string
	Attempt int
	Err     error
}

func (e *TransportError) Error() string {
	if e.Attempt > 0 {
		return fmt.Sprintf("stream: %s (attempt %d): %v", e.Op, e.Attempt, e.Err)
	}
	return fmt.Sprintf("stream: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a frame that could not be turned into a message.
// The frame is dropped.
type DecodeError struct {
	Frame Frame
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("stream: decode frame (%d bytes): %v", len(e.Frame.Data), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// BudgetExhaustedError is reported once when a run gives up.
type BudgetExhaustedError struct {
	Attempts int
	Last     error
}

func (e *BudgetExhaustedError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("%v after %d attempts", ErrRetryBudgetExhausted, e.Attempts)
	}
	return fmt.Sprintf("%v after %d attempts: %v", ErrRetryBudgetExhausted, e.Attempts, e.Last)
}

func (e *BudgetExhaustedError) Is(target error) bool { return target == ErrRetryBudgetExhausted }

func (e *BudgetExhaustedError) Unwrap() error { return e.Last }

// CallbackPanicError reports a recovered panic from a subscriber.
type CallbackPanicError struct {
	Value interface{}
}

func (e *CallbackPanicError) Error() string {
	return fmt.Sprintf("stream: subscriber panicked: %v", e.Value)
}
