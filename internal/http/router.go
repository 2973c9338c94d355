package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"ai-interview-relay-service/internal/app"
	"ai-interview-relay-service/internal/observability/logging"
	"ai-interview-relay-service/internal/observability/metrics"
	"ai-interview-relay-service/internal/twilio"
)

// NewRouter constructs the HTTP router for the service. mediaStream serves
// the telephony WebSocket.
func NewRouter(application *app.Application, mediaStream http.Handler) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "HR AI Assistant",
		})
	})

	// Telephony webhooks
	voice := voiceHandler(application.Cfg.Service.PublicHost)
	r.Post("/voice", voice)
	r.Get("/voice", voice)
	r.Post("/call-status", callStatusHandler)

	r.Handle("/media-stream", mediaStream)

	return r
}

// voiceHandler answers the incoming-call webhook with TwiML that streams the
// call to /media-stream on publicHost, or on the request's Host when unset.
func voiceHandler(publicHost string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host := publicHost
		if host == "" {
			host = r.Host
		}

		body, err := twilio.StreamTwiML(host)
		if err != nil {
			log.Error().Err(err).Msg("Failed to render TwiML")
			http.Error(w, "failed to render TwiML", http.StatusInternalServerError)
			return
		}

		log.Info().Str("host", host).Msg("Incoming call, connecting media stream")
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}
}

func callStatusHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	status := r.PostFormValue("CallStatus")
	callSid := r.PostFormValue("CallSid")

	metrics.DefaultMetrics.RecordCallStatus(status)
	l := logging.WithCall(callSid)
	l.Info().Str("callStatus", status).Msg("Call status")

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
