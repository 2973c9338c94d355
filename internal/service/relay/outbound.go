package relay

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"ai-interview-relay-service/internal/models"
	"ai-interview-relay-service/internal/service/extraction"
	"ai-interview-relay-service/internal/service/interview"
	"ai-interview-relay-service/internal/service/realtime"
	"ai-interview-relay-service/internal/service/telephony"
)

// dispatch is the outbound task: model events to the phone and the tracker.
// It returns when the model connection closes.
func (s *Session) dispatch() {
	for {
		ev, err := s.ai.Next()
		if err != nil {
			if errors.Is(err, realtime.ErrDecode) {
				s.logger().Warn().Err(err).Msg("Skipping realtime event")
				continue
			}
			s.logDisconnect("realtime", err)
			return
		}

		s.metrics.RecordRealtimeEvent(ev.EventType())
		s.handleEvent(ev)
	}
}

func (s *Session) handleEvent(ev realtime.Event) {
	switch e := ev.(type) {
	case *realtime.AudioDelta:
		s.forwardAudio(e.Delta)

	case *realtime.UserTranscript:
		s.metrics.RecordUserTurn()
		s.logger().Info().Str("speaker", string(models.SpeakerUser)).Str("text", e.Transcript).Msg("Transcript")
		fired, err := s.tracker.OnUserTranscript(e.Transcript)
		s.publishTranscript(models.SpeakerUser, e.Transcript)
		s.afterTrigger(fired, err)

	case *realtime.AssistantTranscript:
		s.logger().Info().Str("speaker", string(models.SpeakerAssistant)).Str("text", e.Transcript).Msg("Transcript")
		s.publishTranscript(models.SpeakerAssistant, e.Transcript)
		fired, err := s.tracker.OnAssistantTranscript(e.Transcript)
		s.afterTrigger(fired, err)

	case *realtime.TextDone:
		if s.tracker.State() != interview.StateExtractionRequested {
			s.logger().Debug().Str("text", e.Text).Msg("Text output outside extraction ignored")
			return
		}
		s.completeExtraction(e.Text)

	case *realtime.TextDelta:
		s.logger().Trace().Str("delta", e.Delta).Msg("Text delta")

	case *realtime.ErrorEvent:
		s.metrics.RecordUpstreamError(e.Detail.Code)
		s.logger().Warn().
			Str("type", e.Detail.Type).
			Str("code", e.Detail.Code).
			Str("param", e.Detail.Param).
			Str("message", e.Detail.Message).
			Msg("Realtime error event")

	case *realtime.SessionCreated:
		s.logger().Info().Str("realtimeSession", e.Session.ID).Str("model", e.Session.Model).Msg("Realtime session created")

	case *realtime.SessionUpdated:
		s.logger().Info().Str("realtimeSession", e.Session.ID).Msg("Realtime session updated")

	case *realtime.Unrecognized:
		s.metrics.RecordUnrecognizedEvent(e.Type)
		s.logger().Debug().Str("type", e.Type).RawJSON("raw", e.Raw).Msg("Unrecognized realtime event")

	default:
		s.logger().Debug().Str("type", ev.EventType()).Msg("Realtime event")
	}
}

// forwardAudio sends one model audio delta to the caller. Deltas that arrive
// before the stream id is known cannot be addressed and are dropped.
func (s *Session) forwardAudio(payload string) {
	sid := s.StreamSid()
	if sid == "" {
		s.dropped++
		s.metrics.RecordOutboundDropped()
		s.logger().Debug().Msg("Audio delta before stream start dropped")
		return
	}
	if s.phoneGone.Load() {
		return
	}

	data, err := telephony.EncodeMedia(sid, payload)
	if err != nil {
		s.logger().Error().Err(err).Msg("Failed to encode outbound media")
		return
	}
	if err := s.phone.WriteMessage(websocket.TextMessage, data); err != nil {
		// The inbound task observes the same disconnect and ends the session.
		s.phoneGone.Store(true)
		s.logDisconnect("telephony", err)
		return
	}

	s.framesOut++
	s.metrics.RecordFrame(directionOutbound, len(payload))
}

func (s *Session) afterTrigger(fired bool, err error) {
	if !fired {
		return
	}
	if err != nil {
		s.logger().Error().Err(err).Msg("Failed to send extraction request")
	}
}

// requestExtraction is the tracker's requester. It runs on the outbound task.
func (s *Session) requestExtraction(trigger interview.Trigger) error {
	s.metrics.RecordExtractionRequest(string(trigger))
	s.logger().Info().
		Str("trigger", string(trigger)).
		Int("userTurns", s.tracker.Turns()).
		Msg("Requesting candidate extraction")
	return s.ai.CreateResponse([]string{realtime.ModalityText}, interview.ExtractionInstructions)
}

func (s *Session) completeExtraction(text string) {
	rec, parseErr := extraction.Parse(text)
	if err := s.tracker.Complete(); err != nil {
		s.logger().Warn().Err(err).Msg("Extraction completed in unexpected state")
	}

	ev := models.CandidateExtracted{
		EventType: models.EventCandidateExtracted,
		SessionID: s.id,
		StreamSid: s.StreamSid(),
		Timestamp: time.Now().UnixMilli(),
		Trigger:   string(s.tracker.Trigger()),
		Candidate: rec,
	}
	if parseErr != nil {
		ev.ParseError = parseErr.Error()
		s.metrics.RecordExtractionOutcome("parse_error")
		s.logger().Warn().Err(parseErr).Str("text", text).Msg("Failed to parse extraction response")
	} else {
		s.metrics.RecordExtractionOutcome("parsed")
		s.logger().Info().Interface("candidate", rec).Msg("Candidate extracted")
	}

	// The candidate is the product of the call and is never dropped.
	s.outbox <- func(ctx context.Context) {
		if err := s.opts.Publisher.PublishCandidate(ctx, s.id, ev); err != nil {
			s.logger().Error().Err(err).Msg("Failed to publish candidate")
		}
	}
}

func (s *Session) publishTranscript(speaker models.Speaker, text string) {
	ev := models.TranscriptEvent{
		EventType: models.EventTranscriptFinal,
		SessionID: s.id,
		StreamSid: s.StreamSid(),
		Timestamp: time.Now().UnixMilli(),
		Speaker:   speaker,
		Text:      text,
		IsFinal:   true,
		Turn:      s.tracker.Turns(),
	}

	select {
	case s.outbox <- func(ctx context.Context) {
		if err := s.opts.Publisher.PublishTranscript(ctx, s.id, ev); err != nil {
			s.logger().Warn().Err(err).Msg("Failed to publish transcript")
		}
	}:
	default:
		s.logger().Warn().Msg("Transcript sink backed up, transcript dropped")
	}
}
