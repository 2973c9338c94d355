// Package interview tracks the progress of one screening call and decides
// when the structured-data extraction is requested.
package interview

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the extraction state of an interview.
type State int

const (
	// StateActive - Conversation in progress, no extraction requested yet.
	StateActive State = iota
	// StateExtractionRequested - Extraction request sent, waiting for its text output.
	StateExtractionRequested
	// StateDone - Extraction answered or session torn down. Terminal.
	StateDone
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StateExtractionRequested:
		return "EXTRACTION_REQUESTED"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true for DONE.
func (s State) IsTerminal() bool {
	return s == StateDone
}

// Errors for invalid state transitions.
var (
	ErrExtractionAlreadyRequested = errors.New("extraction already requested for this interview")
	ErrExtractionNotRequested     = errors.New("extraction has not been requested")
	ErrInterviewDone              = errors.New("interview is done")
)

// Lifecycle manages the state machine for a single interview.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	ACTIVE → EXTRACTION_REQUESTED → DONE
//	  │                               ▲
//	  └────────── Close() ────────────┘
//
// Rules:
//   - ACTIVE: RequestExtraction() transitions once to EXTRACTION_REQUESTED
//   - EXTRACTION_REQUESTED: Complete() transitions to DONE; no second request
//   - DONE: terminal, every transition returns ErrInterviewDone
//
// There are no backward transitions.
type Lifecycle struct {
	mu    sync.RWMutex
	state State
	done  chan struct{}
}

// NewLifecycle creates a lifecycle in ACTIVE state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		state: StateActive,
		done:  make(chan struct{}),
	}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// RequestExtraction transitions ACTIVE → EXTRACTION_REQUESTED.
func (l *Lifecycle) RequestExtraction() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateActive:
		l.state = StateExtractionRequested
		return nil
	case StateExtractionRequested:
		return ErrExtractionAlreadyRequested
	case StateDone:
		return ErrInterviewDone
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// Complete transitions EXTRACTION_REQUESTED → DONE once the extraction
// text has arrived.
func (l *Lifecycle) Complete() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateExtractionRequested:
		l.finish()
		return nil
	case StateActive:
		return ErrExtractionNotRequested
	case StateDone:
		return ErrInterviewDone
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// Close moves any state to DONE on session teardown and returns the state
// it was in. Idempotent.
func (l *Lifecycle) Close() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.state
	if prev != StateDone {
		l.finish()
	}
	return prev
}

// Done is closed when the lifecycle reaches DONE.
func (l *Lifecycle) Done() <-chan struct{} {
	return l.done
}

// finish must be called with mu held.
func (l *Lifecycle) finish() {
	l.state = StateDone
	close(l.done)
}
