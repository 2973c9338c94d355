package twilio

import (
	"github.com/twilio/twilio-go/twiml"
)

// StreamTwiML returns the voice response that connects the call's audio to
// wss://{host}/media-stream.
func StreamTwiML(host string) (string, error) {
	stream := &twiml.VoiceStream{Url: "wss://" + host + "/media-stream"}
	connect := &twiml.VoiceConnect{InnerElements: []twiml.Element{stream}}
	return twiml.Voice([]twiml.Element{connect})
}
