package interview

import (
	"strings"
)

// Trigger names the condition that fired the extraction request.
type Trigger string

const (
	TriggerClosingPhrase Trigger = "closing_phrase"
	TriggerTurnLimit     Trigger = "turn_limit"
)

// Requester sends the extraction request into the realtime session.
type Requester func(trigger Trigger) error

// Tracker decides when an interview is closed. It fires the Requester on the
// first of two conditions: an assistant transcript containing a closing
// phrase, or the caller's turn count exceeding maxTurns. It fires at most
// once per interview.
//
// Closing-phrase matching is a plain case-insensitive substring heuristic.
// A caller quoting one of the phrases does not count because only assistant
// transcripts are checked, but the assistant saying one mid-call does.
//
// The transcript methods are meant to be called from a single goroutine.
// State may be read from any goroutine.
type Tracker struct {
	lifecycle *Lifecycle
	phrases   []string
	maxTurns  int
	request   Requester

	turns   int
	trigger Trigger
}

// NewTracker creates a tracker in ACTIVE state.
func NewTracker(phrases []string, maxTurns int, request Requester) *Tracker {
	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lowered = append(lowered, p)
		}
	}
	return &Tracker{
		lifecycle: NewLifecycle(),
		phrases:   lowered,
		maxTurns:  maxTurns,
		request:   request,
	}
}

// OnUserTranscript counts a finalized caller utterance. It reports whether
// this call fired the extraction request.
func (t *Tracker) OnUserTranscript(text string) (bool, error) {
	t.turns++
	if t.turns > t.maxTurns {
		return t.fire(TriggerTurnLimit)
	}
	return false, nil
}

// OnAssistantTranscript checks a finalized assistant utterance for a closing
// phrase. It reports whether this call fired the extraction request.
func (t *Tracker) OnAssistantTranscript(text string) (bool, error) {
	if _, ok := t.MatchClosingPhrase(text); ok {
		return t.fire(TriggerClosingPhrase)
	}
	return false, nil
}

// MatchClosingPhrase returns the first configured phrase contained in text.
func (t *Tracker) MatchClosingPhrase(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, p := range t.phrases {
		if strings.Contains(lower, p) {
			return p, true
		}
	}
	return "", false
}

func (t *Tracker) fire(trigger Trigger) (bool, error) {
	if t.lifecycle.RequestExtraction() != nil {
		return false, nil
	}
	t.trigger = trigger
	if t.request == nil {
		return true, nil
	}
	// The state stays EXTRACTION_REQUESTED on a send error: the request is
	// never retried.
	return true, t.request(trigger)
}

// Complete marks the extraction answered.
func (t *Tracker) Complete() error {
	return t.lifecycle.Complete()
}

// Close moves the interview to DONE and returns the state it was in.
func (t *Tracker) Close() State {
	return t.lifecycle.Close()
}

// State returns the current state.
func (t *Tracker) State() State {
	return t.lifecycle.State()
}

// Done is closed when the interview reaches DONE.
func (t *Tracker) Done() <-chan struct{} {
	return t.lifecycle.Done()
}

// Turns returns the number of caller utterances seen.
func (t *Tracker) Turns() int {
	return t.turns
}

// Trigger returns what fired the extraction, or "" if nothing has.
func (t *Tracker) Trigger() Trigger {
	return t.trigger
}
