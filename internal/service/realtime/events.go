package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event types received from the model.
const (
	TypeSessionCreated          = "session.created"
	TypeSessionUpdated          = "session.updated"
	TypeSpeechStarted           = "input_audio_buffer.speech_started"
	TypeSpeechStopped           = "input_audio_buffer.speech_stopped"
	TypeBufferCommitted         = "input_audio_buffer.committed"
	TypeResponseCreated         = "response.created"
	TypeAudioDelta              = "response.audio.delta"
	TypeAudioDone               = "response.audio.done"
	TypeAudioTranscriptDone     = "response.audio_transcript.done"
	TypeInputTranscriptComplete = "conversation.item.input_audio_transcription.completed"
	TypeOutputTextDelta         = "response.output_text.delta"
	TypeOutputTextDone          = "response.output_text.done"
	TypeTextDone                = "response.text.done"
	TypeError                   = "error"
)

// ErrDecode is returned when an event cannot be decoded.
var ErrDecode = errors.New("undecodable realtime event")

// Event is a decoded server event. The concrete type identifies the variant;
// Unrecognized carries any type without a dedicated variant.
type Event interface {
	EventType() string
}

// Header is common to every server event.
type Header struct {
	Type    string `json:"type"`
	EventID string `json:"event_id,omitempty"`
}

// EventType returns the wire type string.
func (h Header) EventType() string { return h.Type }

// SessionInfo identifies the session in lifecycle events.
type SessionInfo struct {
	ID    string `json:"id"`
	Model string `json:"model"`
}

type SessionCreated struct {
	Header
	Session SessionInfo `json:"session"`
}

type SessionUpdated struct {
	Header
	Session SessionInfo `json:"session"`
}

type SpeechStarted struct {
	Header
	AudioStartMs int    `json:"audio_start_ms"`
	ItemID       string `json:"item_id"`
}

type SpeechStopped struct {
	Header
	AudioEndMs int    `json:"audio_end_ms"`
	ItemID     string `json:"item_id"`
}

type BufferCommitted struct {
	Header
	ItemID string `json:"item_id"`
}

type ResponseCreated struct {
	Header
	Response struct {
		ID string `json:"id"`
	} `json:"response"`
}

// AudioDelta carries a chunk of model speech as base64, in the session's output format.
type AudioDelta struct {
	Header
	ResponseID string `json:"response_id"`
	ItemID     string `json:"item_id"`
	Delta      string `json:"delta"`
}

type AudioDone struct {
	Header
	ResponseID string `json:"response_id"`
}

// AssistantTranscript is the final transcript of a spoken model response.
type AssistantTranscript struct {
	Header
	ResponseID string `json:"response_id"`
	ItemID     string `json:"item_id"`
	Transcript string `json:"transcript"`
}

// UserTranscript is the final transcript of one caller utterance.
type UserTranscript struct {
	Header
	ItemID     string `json:"item_id"`
	Transcript string `json:"transcript"`
}

type TextDelta struct {
	Header
	ResponseID string `json:"response_id"`
	Delta      string `json:"delta"`
}

// TextDone is the complete text of a text-modality response. Both
// response.output_text.done and the older response.text.done decode to it.
type TextDone struct {
	Header
	ResponseID string `json:"response_id"`
	Text       string `json:"text"`
}

// ErrorDetail describes an upstream protocol error.
type ErrorDetail struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param"`
	EventID string `json:"event_id"`
}

type ErrorEvent struct {
	Header
	Detail ErrorDetail `json:"error"`
}

// Unrecognized is any event type without a dedicated variant.
type Unrecognized struct {
	Header
	Raw json.RawMessage
}

// Decode parses one server event.
func Decode(data []byte) (Event, error) {
	var h Header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if h.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrDecode)
	}

	var ev Event
	switch h.Type {
	case TypeSessionCreated:
		ev = &SessionCreated{}
	case TypeSessionUpdated:
		ev = &SessionUpdated{}
	case TypeSpeechStarted:
		ev = &SpeechStarted{}
	case TypeSpeechStopped:
		ev = &SpeechStopped{}
	case TypeBufferCommitted:
		ev = &BufferCommitted{}
	case TypeResponseCreated:
		ev = &ResponseCreated{}
	case TypeAudioDelta:
		ev = &AudioDelta{}
	case TypeAudioDone:
		ev = &AudioDone{}
	case TypeAudioTranscriptDone:
		ev = &AssistantTranscript{}
	case TypeInputTranscriptComplete:
		ev = &UserTranscript{}
	case TypeOutputTextDelta:
		ev = &TextDelta{}
	case TypeOutputTextDone, TypeTextDone:
		ev = &TextDone{}
	case TypeError:
		ev = &ErrorEvent{}
	default:
		return &Unrecognized{Header: h, Raw: append(json.RawMessage(nil), data...)}, nil
	}

	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, h.Type, err)
	}
	return ev, nil
}
