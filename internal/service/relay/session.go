// Package relay couples one telephony media stream to one realtime model
// session: it forwards audio both ways, tracks the interview and hands the
// extracted candidate record to the event sink.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ai-interview-relay-service/internal/config"
	"ai-interview-relay-service/internal/events"
	"ai-interview-relay-service/internal/observability/logging"
	"ai-interview-relay-service/internal/observability/metrics"
	"ai-interview-relay-service/internal/service/interview"
	"ai-interview-relay-service/internal/service/realtime"
)

var (
	// ErrMissingCredentials refuses a session before the model is dialed.
	ErrMissingCredentials = errors.New("OpenAI API key not configured")

	errInboundEnded  = errors.New("telephony stream ended")
	errOutboundEnded = errors.New("realtime session ended")
)

const (
	outboxSize     = 64
	publishTimeout = 10 * time.Second
)

// Publisher receives finalized transcripts and the candidate record.
// *events.Publisher satisfies it.
type Publisher interface {
	PublishTranscript(ctx context.Context, key string, event any) error
	PublishCandidate(ctx context.Context, key string, event any) error
}

// PhoneConn is the telephony-side connection. *websocket.Conn satisfies it.
type PhoneConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Options configures a session.
type Options struct {
	Realtime  config.RealtimeConfig
	Interview config.InterviewConfig
	Publisher Publisher
	Metrics   *metrics.Metrics
}

// Session is one phone call relayed to one realtime model session.
//
// Two tasks run per session. The inbound task reads telephony frames and is
// the only writer of streamSid, which is written once. The outbound task
// reads model events and is the only caller of the tracker's transcript
// methods. Either task ending tears down both connections.
type Session struct {
	id      string
	phone   PhoneConn
	ai      *realtime.Client
	tracker *interview.Tracker
	opts    Options
	metrics *metrics.Metrics

	streamSid atomic.Pointer[string]
	log       atomic.Pointer[zerolog.Logger]
	phoneGone atomic.Bool

	outbox    chan func(ctx context.Context)
	closeOnce sync.Once

	// Counters, each written by one task and read after both have ended.
	framesIn  int
	framesOut int
	dropped   int
}

// NewSession creates a session over an accepted phone connection and an
// established realtime client. The session owns both from here on.
func NewSession(phone PhoneConn, ai *realtime.Client, opts Options) *Session {
	if opts.Metrics == nil {
		opts.Metrics = metrics.DefaultMetrics
	}
	if opts.Publisher == nil {
		opts.Publisher = events.New(nil)
	}

	s := &Session{
		id:      uuid.NewString(),
		phone:   phone,
		ai:      ai,
		opts:    opts,
		metrics: opts.Metrics,
		outbox:  make(chan func(ctx context.Context), outboxSize),
	}
	s.tracker = interview.NewTracker(opts.Interview.ClosingPhrases, opts.Interview.MaxUserTurns, s.requestExtraction)

	l := logging.WithSession(s.id)
	s.log.Store(&l)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// StreamSid returns the telephony stream id, or "" before start.
func (s *Session) StreamSid() string {
	if p := s.streamSid.Load(); p != nil {
		return *p
	}
	return ""
}

// State returns the interview state.
func (s *Session) State() interview.State { return s.tracker.State() }

func (s *Session) logger() *zerolog.Logger { return s.log.Load() }

// setStreamSid records the stream id. Only the first call has an effect.
func (s *Session) setStreamSid(sid string) bool {
	if !s.streamSid.CompareAndSwap(nil, &sid) {
		return false
	}
	l := logging.WithStream(s.id, sid)
	s.log.Store(&l)
	return true
}

// Run configures the model, plays the greeting and relays until either side
// disconnects or ctx is cancelled. Disconnects are not errors; Run only
// fails when the model rejects the opening commands.
func (s *Session) Run(ctx context.Context) error {
	started := time.Now()
	s.metrics.RecordSessionStart()
	defer func() { s.metrics.RecordSessionEnd(time.Since(started).Seconds()) }()

	s.logger().Info().Msg("Session started")

	sinkDone := make(chan struct{})
	go s.drainOutbox(context.WithoutCancel(ctx), sinkDone)

	if err := s.open(); err != nil {
		s.closeConnections()
		s.finish(started, err)
		close(s.outbox)
		<-sinkDone
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.receive()
		s.awaitExtraction(gctx)
		return errInboundEnded
	})
	g.Go(func() error {
		s.dispatch()
		return errOutboundEnded
	})
	g.Go(func() error {
		<-gctx.Done()
		s.closeConnections()
		return nil
	})

	reason := g.Wait()
	if ctx.Err() != nil {
		reason = ctx.Err()
	}
	s.finish(started, reason)

	close(s.outbox)
	<-sinkDone
	return nil
}

// open sends the session configuration then the greeting, in that order.
func (s *Session) open() error {
	rt := s.opts.Realtime
	err := s.ai.ConfigureSession(realtime.SessionConfig{
		Modalities:              []string{realtime.ModalityText, realtime.ModalityAudio},
		Instructions:            interview.SystemInstructions,
		Voice:                   rt.Voice,
		InputAudioFormat:        rt.AudioFormat,
		OutputAudioFormat:       rt.AudioFormat,
		InputAudioTranscription: &realtime.Transcription{Model: rt.TranscriptionModel},
		TurnDetection:           realtime.DefaultTurnDetection(),
		Temperature:             rt.Temperature,
	})
	if err != nil {
		return fmt.Errorf("send session configuration: %w", err)
	}

	if err := s.ai.CreateResponse([]string{realtime.ModalityText, realtime.ModalityAudio}, interview.Greeting); err != nil {
		return fmt.Errorf("send greeting: %w", err)
	}
	return nil
}

// awaitExtraction holds the model connection open after the phone side has
// ended, but only while an extraction answer is pending.
func (s *Session) awaitExtraction(ctx context.Context) {
	grace := s.opts.Interview.ExtractionGrace
	if grace <= 0 || s.tracker.State() != interview.StateExtractionRequested {
		return
	}

	s.logger().Info().Dur("grace", grace).Msg("Phone side ended, waiting for extraction")

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-s.tracker.Done():
	case <-timer.C:
		s.logger().Warn().Msg("Extraction grace period expired")
	case <-ctx.Done():
	}
}

// closeConnections closes both legs once.
func (s *Session) closeConnections() {
	s.closeOnce.Do(func() {
		if err := s.ai.Close(); err != nil {
			s.logger().Debug().Err(err).Msg("Error closing realtime connection")
		}
		if err := s.phone.Close(); err != nil {
			s.logger().Debug().Err(err).Msg("Error closing telephony connection")
		}
	})
}

// finish moves the interview to DONE and logs the session summary.
func (s *Session) finish(started time.Time, reason error) {
	prev := s.tracker.Close()
	if prev == interview.StateExtractionRequested {
		s.metrics.RecordExtractionOutcome("abandoned")
		s.logger().Warn().
			Str("trigger", string(s.tracker.Trigger())).
			Msg("Session ended before extraction answered")
	}

	s.logger().Info().
		AnErr("reason", reason).
		Str("previousState", prev.String()).
		Str("finalState", s.tracker.State().String()).
		Int("framesIn", s.framesIn).
		Int("framesOut", s.framesOut).
		Int("droppedBeforeStart", s.dropped).
		Int("userTurns", s.tracker.Turns()).
		Dur("duration", time.Since(started)).
		Msg("Session ended")
}

// drainOutbox runs sink jobs in order until the outbox is closed.
func (s *Session) drainOutbox(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	for job := range s.outbox {
		jobCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		job(jobCtx)
		cancel()
	}
}
