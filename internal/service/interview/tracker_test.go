package interview

import (
	"errors"
	"strings"
	"testing"

	"ai-interview-relay-service/internal/config"
)

type recorder struct {
	triggers []Trigger
	err      error
}

func (r *recorder) request(trigger Trigger) error {
	r.triggers = append(r.triggers, trigger)
	return r.err
}

func newTestTracker(r *recorder) *Tracker {
	return NewTracker(config.DefaultClosingPhrases, 15, r.request)
}

func TestTracker_ClosingPhraseFiresOnce(t *testing.T) {
	r := &recorder{}
	tr := newTestTracker(r)

	fired, err := tr.OnAssistantTranscript("Which company are you with?")
	if fired || err != nil {
		t.Fatalf("expected no trigger, got fired=%v err=%v", fired, err)
	}

	fired, err = tr.OnAssistantTranscript("Thank you for your time. Your telephonic interview is complete.")
	if !fired || err != nil {
		t.Fatalf("expected trigger, got fired=%v err=%v", fired, err)
	}

	// Further matching transcripts and turns never re-request.
	for i := 0; i < 5; i++ {
		if fired, _ := tr.OnAssistantTranscript("Take care and goodbye."); fired {
			t.Errorf("repeat %d: expected no second trigger", i)
		}
	}
	for i := 0; i < 20; i++ {
		tr.OnUserTranscript("hello?")
	}

	if len(r.triggers) != 1 || r.triggers[0] != TriggerClosingPhrase {
		t.Errorf("expected exactly one closing_phrase request, got %v", r.triggers)
	}
	if tr.State() != StateExtractionRequested {
		t.Errorf("expected StateExtractionRequested, got %v", tr.State())
	}
	if tr.Trigger() != TriggerClosingPhrase {
		t.Errorf("expected trigger recorded, got %q", tr.Trigger())
	}
}

func TestTracker_TurnLimitFallback(t *testing.T) {
	r := &recorder{}
	tr := newTestTracker(r)

	for i := 1; i <= 15; i++ {
		tr.OnAssistantTranscript("Tell me more about that.")
		if fired, _ := tr.OnUserTranscript("Sure."); fired {
			t.Fatalf("turn %d: fired before exceeding the limit", i)
		}
	}

	fired, err := tr.OnUserTranscript("Anything else?")
	if !fired || err != nil {
		t.Fatalf("turn 16: expected trigger, got fired=%v err=%v", fired, err)
	}
	if tr.Turns() != 16 {
		t.Errorf("expected 16 turns, got %d", tr.Turns())
	}

	tr.OnUserTranscript("Hello?")
	tr.OnAssistantTranscript("Goodbye.")

	if len(r.triggers) != 1 || r.triggers[0] != TriggerTurnLimit {
		t.Errorf("expected exactly one turn_limit request, got %v", r.triggers)
	}
}

func TestTracker_CaseInsensitiveMatch(t *testing.T) {
	tests := []struct {
		text  string
		match bool
	}{
		{"GOODBYE!", true},
		{"The Interview Is Complete now", true},
		{"thank you FOR your TIME", true},
		{"Good. Bye for a moment", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			tr := NewTracker(config.DefaultClosingPhrases, 15, nil)
			if _, ok := tr.MatchClosingPhrase(tt.text); ok != tt.match {
				t.Errorf("MatchClosingPhrase(%q) = %v, want %v", tt.text, ok, tt.match)
			}
		})
	}
}

func TestTracker_CustomPhrasesNormalised(t *testing.T) {
	tr := NewTracker([]string{"  All Done ", ""}, 15, nil)

	phrase, ok := tr.MatchClosingPhrase("we are all done here")
	if !ok || phrase != "all done" {
		t.Errorf("expected match on normalised phrase, got %q %v", phrase, ok)
	}
	if strings.Contains(strings.Join(tr.phrases, "|"), "||") {
		t.Error("expected empty phrase dropped")
	}
}

func TestTracker_RequestErrorDoesNotRetry(t *testing.T) {
	r := &recorder{err: errors.New("socket closed")}
	tr := newTestTracker(r)

	fired, err := tr.OnAssistantTranscript("goodbye")
	if !fired || err == nil {
		t.Fatalf("expected fired with error, got fired=%v err=%v", fired, err)
	}

	r.err = nil
	tr.OnAssistantTranscript("goodbye")

	if len(r.triggers) != 1 {
		t.Errorf("expected no retry, got %d requests", len(r.triggers))
	}
	if tr.State() != StateExtractionRequested {
		t.Errorf("expected StateExtractionRequested, got %v", tr.State())
	}
}

func TestTracker_CompleteAndClose(t *testing.T) {
	r := &recorder{}
	tr := newTestTracker(r)

	tr.OnAssistantTranscript("goodbye")
	if err := tr.Complete(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prev := tr.Close(); prev != StateDone {
		t.Errorf("expected close after completion to report DONE, got %v", prev)
	}

	// Teardown before any trigger still reaches DONE without a request.
	r2 := &recorder{}
	tr2 := newTestTracker(r2)
	if prev := tr2.Close(); prev != StateActive {
		t.Errorf("expected previous ACTIVE, got %v", prev)
	}
	if fired, _ := tr2.OnAssistantTranscript("goodbye"); fired {
		t.Error("expected no request after teardown")
	}
	if len(r2.triggers) != 0 {
		t.Errorf("expected no requests, got %v", r2.triggers)
	}
	<-tr2.Done()
}
