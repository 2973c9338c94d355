// Package models defines the events the relay emits to external sinks.
package models

// Event types carried in the eventType field.
const (
	EventTranscriptFinal    = "interview.transcript.final"
	EventCandidateExtracted = "interview.candidate.extracted"
)

// Speaker identifies who produced a transcript.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// TranscriptEvent is one finalized utterance from the call.
type TranscriptEvent struct {
	EventType string  `json:"eventType"`
	SessionID string  `json:"sessionId"`
	StreamSid string  `json:"streamSid,omitempty"`
	Timestamp int64   `json:"timestamp"`
	Speaker   Speaker `json:"speaker"`
	Text      string  `json:"text"`
	IsFinal   bool    `json:"isFinal"`
	Turn      int     `json:"turn"`
}
