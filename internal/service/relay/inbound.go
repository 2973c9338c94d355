package relay

import (
	"errors"
	"io"
	"net"

	"github.com/gorilla/websocket"

	"ai-interview-relay-service/internal/service/telephony"
)

const (
	directionInbound  = "inbound"
	directionOutbound = "outbound"

	progressEvery = 100
)

// receive is the inbound task: telephony frames into the model, in arrival
// order. It returns on stop, on disconnect, or when the model stops
// accepting audio.
func (s *Session) receive() {
	for {
		mt, data, err := s.phone.ReadMessage()
		if err != nil {
			s.logDisconnect("telephony", err)
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		frame, err := telephony.Decode(data)
		if err != nil {
			s.metrics.RecordMalformedFrame()
			s.logger().Warn().Err(err).Msg("Skipping telephony frame")
			continue
		}

		switch f := frame.(type) {
		case telephony.StartFrame:
			if !s.setStreamSid(f.StreamSid) {
				s.logger().Warn().Str("ignoredStreamSid", f.StreamSid).Msg("Duplicate start frame ignored")
				continue
			}
			s.logger().Info().
				Str("callSid", f.CallSid).
				Str("encoding", f.MediaFormat.Encoding).
				Int("sampleRate", f.MediaFormat.SampleRate).
				Msg("Stream started")

		case telephony.MediaFrame:
			if err := s.ai.AppendAudio(f.Payload); err != nil {
				s.logDisconnect("realtime", err)
				return
			}
			s.framesIn++
			s.metrics.RecordFrame(directionInbound, len(f.Payload))
			if s.framesIn%progressEvery == 0 {
				s.logger().Info().Int("framesIn", s.framesIn).Msg("Relaying caller audio")
			} else {
				s.logger().Debug().Int("frame", s.framesIn).Int("bytes", len(f.Payload)).Msg("Caller audio forwarded")
			}

		case telephony.StopFrame:
			if err := s.ai.CommitAudio(); err != nil {
				s.logger().Warn().Err(err).Msg("Failed to commit audio buffer on stop")
			}
			s.logger().Info().Str("callSid", f.CallSid).Int("framesIn", s.framesIn).Msg("Stream stopped")
			return

		default:
			s.logger().Debug().Str("event", frame.Event()).Msg("Telephony frame ignored")
		}
	}
}

// logDisconnect logs a transport ending. Normal closes are Info, anything
// unexpected is Warn.
func (s *Session) logDisconnect(side string, err error) {
	ev := s.logger().Warn()
	if isNormalClose(err) {
		ev = s.logger().Info()
	}
	ev.Err(err).Str("side", side).Msg("Connection closed")
}

func isNormalClose(err error) bool {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		return true
	}
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF)
}
