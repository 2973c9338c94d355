package relay

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"ai-interview-relay-service/internal/config"
	"ai-interview-relay-service/internal/observability/metrics"
	"ai-interview-relay-service/internal/service/realtime"
	"ai-interview-relay-service/internal/service/realtime/mock"
)

// maxCloseReason is the largest close reason a control frame can carry.
const maxCloseReason = 123

// Dialer opens a realtime model session.
type Dialer func(ctx context.Context, cfg config.RealtimeConfig) (*realtime.Client, error)

// DialerFor returns the dialer for the configured provider.
func DialerFor(cfg config.RealtimeConfig) Dialer {
	if cfg.Provider == "mock" {
		return func(context.Context, config.RealtimeConfig) (*realtime.Client, error) {
			return realtime.NewClient(mock.New(mock.DefaultScript())), nil
		}
	}
	return realtime.Dial
}

// Handler is the media-stream WebSocket entry point. Each accepted
// connection becomes one Session.
type Handler struct {
	ctx       context.Context
	cfg       *config.Configuration
	dial      Dialer
	publisher Publisher
	metrics   *metrics.Metrics
	upgrader  websocket.Upgrader

	sessions sync.WaitGroup
}

// NewHandler creates the entry point. Sessions are cancelled when ctx is.
func NewHandler(ctx context.Context, cfg *config.Configuration, dial Dialer, publisher Publisher) *Handler {
	if dial == nil {
		dial = DialerFor(cfg.Realtime)
	}
	return &Handler{
		ctx:       ctx,
		cfg:       cfg,
		dial:      dial,
		publisher: publisher,
		metrics:   metrics.DefaultMetrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Telephony providers connect from their own origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and runs the session to completion.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("Media stream upgrade failed")
		return
	}
	defer conn.Close()

	h.sessions.Add(1)
	defer h.sessions.Done()

	log.Info().Str("remote", r.RemoteAddr).Msg("Telephony WebSocket connected")

	ai, err := h.open(h.ctx)
	if err != nil {
		code := websocket.CloseInternalServerErr
		reason := "failed to connect to realtime model"
		label := "dial_failed"
		if errors.Is(err, ErrMissingCredentials) {
			code = websocket.ClosePolicyViolation
			reason = ErrMissingCredentials.Error()
			label = "missing_credentials"
		}
		h.metrics.RecordSessionRefused(label)
		log.Error().Err(err).Int("closeCode", code).Msg("Session refused")
		refuse(conn, code, reason)
		return
	}

	sess := NewSession(conn, ai, Options{
		Realtime:  h.cfg.Realtime,
		Interview: h.cfg.Interview,
		Publisher: h.publisher,
		Metrics:   h.metrics,
	})
	if err := sess.Run(h.ctx); err != nil {
		log.Error().Err(err).Str("sessionId", sess.ID()).Msg("Session failed")
	}
}

// open checks credentials and dials the model. No connection is attempted
// without credentials.
func (h *Handler) open(ctx context.Context) (*realtime.Client, error) {
	if !h.cfg.Realtime.HasCredentials() {
		return nil, ErrMissingCredentials
	}
	return h.dial(ctx, h.cfg.Realtime)
}

// Wait blocks until every running session has ended.
func (h *Handler) Wait() {
	h.sessions.Wait()
}

func refuse(conn *websocket.Conn, code int, reason string) {
	if len(reason) > maxCloseReason {
		reason = reason[:maxCloseReason]
	}
	msg := websocket.FormatCloseMessage(code, reason)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		log.Debug().Err(err).Msg("Failed to send close frame")
	}
}
