// Package telephony decodes and encodes the telephony media-stream protocol:
// JSON text frames carrying start, media and stop events.
package telephony

import (
	"encoding/json"
	"errors"
	"fmt"

	"ai-interview-relay-service/internal/schema"
)

// Inbound event names.
const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventStop      = "stop"
	EventMark      = "mark"
	EventDTMF      = "dtmf"
)

// ErrMalformedFrame is returned for frames that cannot be routed.
var ErrMalformedFrame = errors.New("malformed telephony frame")

var validate = schema.New()

// Frame is a decoded inbound frame. Concrete types are StartFrame,
// MediaFrame, StopFrame and OtherFrame.
type Frame interface {
	Event() string
}

// StartFrame opens the stream and carries its correlation id.
type StartFrame struct {
	StreamSid        string            `json:"streamSid" validate:"required"`
	CallSid          string            `json:"callSid"`
	AccountSid       string            `json:"accountSid"`
	Tracks           []string          `json:"tracks"`
	CustomParameters map[string]string `json:"customParameters"`
	MediaFormat      MediaFormat       `json:"mediaFormat"`
}

// MediaFormat describes the audio encoding announced at stream start.
type MediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

// MediaFrame carries one base64 audio payload. The payload is never decoded.
type MediaFrame struct {
	Track     string `json:"track"`
	Chunk     string `json:"chunk"`
	Timestamp string `json:"timestamp"`
	Payload   string `json:"payload" validate:"required"`
}

// StopFrame ends the stream.
type StopFrame struct {
	CallSid string `json:"callSid"`
}

// OtherFrame is any well-formed frame the relay does not act on.
type OtherFrame struct {
	Name string
}

func (StartFrame) Event() string   { return EventStart }
func (MediaFrame) Event() string   { return EventMedia }
func (StopFrame) Event() string    { return EventStop }
func (f OtherFrame) Event() string { return f.Name }

type envelope struct {
	Event          string      `json:"event"`
	SequenceNumber string      `json:"sequenceNumber"`
	StreamSid      string      `json:"streamSid"`
	Start          *StartFrame `json:"start"`
	Media          *MediaFrame `json:"media"`
	Stop           *StopFrame  `json:"stop"`
}

// Decode parses one inbound text frame.
func Decode(data []byte) (Frame, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch env.Event {
	case "":
		return nil, fmt.Errorf("%w: missing event", ErrMalformedFrame)

	case EventStart:
		if env.Start == nil {
			return nil, fmt.Errorf("%w: start without start payload", ErrMalformedFrame)
		}
		start := *env.Start
		if start.StreamSid == "" {
			start.StreamSid = env.StreamSid
		}
		if err := validate.Validate(start); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return start, nil

	case EventMedia:
		if env.Media == nil {
			return nil, fmt.Errorf("%w: media without media payload", ErrMalformedFrame)
		}
		if err := validate.Validate(*env.Media); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return *env.Media, nil

	case EventStop:
		if env.Stop == nil {
			return StopFrame{}, nil
		}
		return *env.Stop, nil

	default:
		return OtherFrame{Name: env.Event}, nil
	}
}

// OutboundMedia is the frame that plays audio to the caller.
type OutboundMedia struct {
	Event     string       `json:"event"`
	StreamSid string       `json:"streamSid"`
	Media     OutboundBody `json:"media"`
}

// OutboundBody holds the base64 audio payload.
type OutboundBody struct {
	Payload string `json:"payload"`
}

// EncodeMedia builds an outbound media frame for the given stream.
func EncodeMedia(streamSid, payload string) ([]byte, error) {
	return json.Marshal(OutboundMedia{
		Event:     EventMedia,
		StreamSid: streamSid,
		Media:     OutboundBody{Payload: payload},
	})
}
