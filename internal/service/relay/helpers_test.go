package relay

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"ai-interview-relay-service/internal/config"
	"ai-interview-relay-service/internal/models"
	"ai-interview-relay-service/internal/service/realtime"
)

const waitTimeout = 2 * time.Second

// pipeConn is an in-memory message connection. Tests push what the remote
// side sends and inspect what the session wrote.
type pipeConn struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once

	mu     sync.Mutex
	writes [][]byte
}

func newPipeConn() *pipeConn {
	return &pipeConn{
		in:     make(chan []byte, 256),
		closed: make(chan struct{}),
	}
}

func (p *pipeConn) ReadMessage() (int, []byte, error) {
	select {
	case <-p.closed:
		return 0, nil, net.ErrClosed
	default:
	}
	select {
	case data := <-p.in:
		return websocket.TextMessage, data, nil
	case <-p.closed:
		return 0, nil, net.ErrClosed
	}
}

func (p *pipeConn) WriteMessage(_ int, data []byte) error {
	select {
	case <-p.closed:
		return net.ErrClosed
	default:
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = append(p.writes, append([]byte(nil), data...))
	return nil
}

func (p *pipeConn) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *pipeConn) isClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

func (p *pipeConn) push(t *testing.T, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	select {
	case p.in <- data:
	case <-time.After(waitTimeout):
		t.Fatal("timed out pushing message")
	}
}

// written returns every message written so far, decoded.
func (p *pipeConn) written() []map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]map[string]any, 0, len(p.writes))
	for _, w := range p.writes {
		var m map[string]any
		if json.Unmarshal(w, &m) == nil {
			out = append(out, m)
		}
	}
	return out
}

// waitFor polls until cond holds.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// commandsOfType filters model commands by type.
func commandsOfType(p *pipeConn, typ string) []map[string]any {
	var out []map[string]any
	for _, m := range p.written() {
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

// extractionRequests counts text-only response.create commands.
func extractionRequests(p *pipeConn) int {
	n := 0
	for _, m := range commandsOfType(p, realtime.TypeResponseCreate) {
		resp, _ := m["response"].(map[string]any)
		mods, _ := resp["modalities"].([]any)
		if len(mods) == 1 && mods[0] == realtime.ModalityText {
			n++
		}
	}
	return n
}

type fakePublisher struct {
	mu          sync.Mutex
	transcripts []models.TranscriptEvent
	candidates  []models.CandidateExtracted
}

func (f *fakePublisher) PublishTranscript(_ context.Context, _ string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcripts = append(f.transcripts, event.(models.TranscriptEvent))
	return nil
}

func (f *fakePublisher) PublishCandidate(_ context.Context, _ string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candidates = append(f.candidates, event.(models.CandidateExtracted))
	return nil
}

func (f *fakePublisher) transcriptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transcripts)
}

func (f *fakePublisher) candidateList() []models.CandidateExtracted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.CandidateExtracted(nil), f.candidates...)
}

func testConfig() *config.Configuration {
	return &config.Configuration{
		Realtime: config.RealtimeConfig{
			Provider:           "openai",
			APIKey:             "sk-test",
			Endpoint:           "wss://api.openai.com/v1/realtime",
			Model:              "gpt-4o-realtime-preview",
			Voice:              "alloy",
			AudioFormat:        "g711_ulaw",
			TranscriptionModel: "whisper-1",
			Temperature:        0.8,
			DialTimeout:        time.Second,
		},
		Interview: config.InterviewConfig{
			ClosingPhrases: config.DefaultClosingPhrases,
			MaxUserTurns:   15,
		},
	}
}

type harness struct {
	session *Session
	phone   *pipeConn
	model   *pipeConn
	pub     *fakePublisher
	done    chan error
}

func startSession(t *testing.T, mutate func(o *Options)) *harness {
	t.Helper()

	cfg := testConfig()
	h := &harness{
		phone: newPipeConn(),
		model: newPipeConn(),
		pub:   &fakePublisher{},
		done:  make(chan error, 1),
	}
	opts := Options{
		Realtime:  cfg.Realtime,
		Interview: cfg.Interview,
		Publisher: h.pub,
	}
	if mutate != nil {
		mutate(&opts)
	}

	h.session = NewSession(h.phone, realtime.NewClient(h.model), opts)
	go func() { h.done <- h.session.Run(context.Background()) }()

	t.Cleanup(func() {
		h.phone.Close()
		h.model.Close()
	})
	return h
}

func (h *harness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.done:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("session did not end")
		return nil
	}
}

func startFrame(sid string) map[string]any {
	return map[string]any{
		"event":     "start",
		"streamSid": sid,
		"start":     map[string]any{"streamSid": sid, "callSid": "CA1"},
	}
}

func mediaFrame(payload string) map[string]any {
	return map[string]any{"event": "media", "media": map[string]any{"payload": payload}}
}

func stopFrame() map[string]any {
	return map[string]any{"event": "stop", "stop": map[string]any{"callSid": "CA1"}}
}

func audioDelta(payload string) map[string]any {
	return map[string]any{"type": realtime.TypeAudioDelta, "response_id": "r1", "delta": payload}
}

func userTranscript(text string) map[string]any {
	return map[string]any{"type": realtime.TypeInputTranscriptComplete, "transcript": text}
}

func assistantTranscript(text string) map[string]any {
	return map[string]any{"type": realtime.TypeAudioTranscriptDone, "transcript": text}
}

func textDone(text string) map[string]any {
	return map[string]any{"type": realtime.TypeOutputTextDone, "text": text}
}
