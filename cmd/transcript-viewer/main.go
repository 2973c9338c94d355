// Transcript Viewer - live interview display.
// Consumes the transcript and candidate topics and pushes them to browsers
// over WebSocket.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"ai-interview-relay-service/internal/models"
	"ai-interview-relay-service/internal/observability/logging"
)

// message is what browsers receive: the raw event tagged with its kind.
type message struct {
	Kind  string          `json:"kind"`
	Event json.RawMessage `json:"event"`
}

// Hub manages WebSocket connections
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan message
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan message, 100),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

func (h *Hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Info().Int("clients", n).Msg("Client connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Info().Int("clients", n).Msg("Client disconnected")

		case msg := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteJSON(msg); err != nil {
					log.Warn().Err(err).Msg("Write error")
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local dev
	},
}

func wsHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("WebSocket upgrade error")
			return
		}
		hub.register <- conn

		// Keep connection alive, handle disconnects
		go func() {
			defer func() {
				hub.unregister <- conn
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

// describe returns the message kind and a one-line summary for logging.
func describe(value []byte) (string, string, error) {
	var probe struct {
		EventType string `json:"eventType"`
	}
	if err := json.Unmarshal(value, &probe); err != nil {
		return "", "", err
	}

	switch probe.EventType {
	case models.EventCandidateExtracted:
		var ev models.CandidateExtracted
		if err := json.Unmarshal(value, &ev); err != nil {
			return "", "", err
		}
		name := "<unknown>"
		if ev.Candidate.FullName != nil {
			name = *ev.Candidate.FullName
		}
		return "candidate", ev.SessionID + " " + name, nil
	default:
		var ev models.TranscriptEvent
		if err := json.Unmarshal(value, &ev); err != nil {
			return "", "", err
		}
		return "transcript", string(ev.Speaker) + ": " + truncate(ev.Text, 40), nil
	}
}

func consumeKafka(ctx context.Context, hub *Hub, brokers []string, topic string, since time.Duration) {
	// Use partition reader without consumer group (works better through port-forward)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	if err := reader.SetOffsetAt(ctx, time.Now().Add(-since)); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Failed to seek, reading from the start")
	}

	log.Info().Str("topic", topic).Dur("since", since).Msg("Consuming from Kafka")

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Str("topic", topic).Msg("Kafka read error")
			time.Sleep(time.Second)
			continue
		}

		kind, summary, err := describe(msg.Value)
		if err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("JSON unmarshal error")
			continue
		}

		log.Info().Str("kind", kind).Str("key", string(msg.Key)).Msg(summary)
		select {
		case hub.broadcast <- message{Kind: kind, Event: msg.Value}:
		case <-ctx.Done():
			return
		}
	}
}

const page = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Interview Viewer</title>
<style>
body { font-family: sans-serif; margin: 2em; }
.user { color: #0b5394; } .assistant { color: #38761d; }
pre { background: #f4f4f4; padding: 1em; }
</style>
</head>
<body>
<h1>Interview Viewer</h1>
<div id="log"></div>
<script>
const log = document.getElementById("log");
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = (m) => {
  const msg = JSON.parse(m.data);
  const el = document.createElement(msg.kind === "candidate" ? "pre" : "p");
  if (msg.kind === "candidate") {
    el.textContent = JSON.stringify(msg.event.candidate, null, 2);
  } else {
    el.className = msg.event.speaker;
    el.textContent = "[" + msg.event.sessionId.slice(0, 8) + "] " + msg.event.speaker + ": " + msg.event.text;
  }
  log.appendChild(el);
};
</script>
</body>
</html>`

func main() {
	port := flag.String("port", "8081", "HTTP server port")
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topicTranscripts := flag.String("topic-transcripts", "interview.transcript.final", "Transcript topic")
	topicCandidates := flag.String("topic-candidates", "interview.candidate.extracted", "Candidate topic")
	since := flag.Duration("since", time.Hour, "Replay messages newer than this")
	flag.Parse()

	logCfg := logging.DefaultConfig()
	logCfg.Format = "console"
	logging.Init(logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := newHub()
	go hub.run(ctx)

	brokerList := strings.Split(*brokers, ",")
	go consumeKafka(ctx, hub, brokerList, *topicTranscripts, *since)
	go consumeKafka(ctx, hub, brokerList, *topicCandidates, *since)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	})
	mux.HandleFunc("/ws", wsHandler(hub))

	srv := &http.Server{Addr: ":" + *port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("addr", "http://localhost:"+*port).
		Strs("brokers", brokerList).
		Strs("topics", []string{*topicTranscripts, *topicCandidates}).
		Msg("Transcript viewer starting")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server error")
	}
}
