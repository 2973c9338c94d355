// Package mock provides an in-memory realtime model for running the relay
// without cloud credentials. It speaks the same event protocol as the hosted
// model: caller audio produces a user transcript every few frames, each
// response.create gets a spoken reply, and a text-only response.create is
// answered with a candidate record.
package mock

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/gorilla/websocket"

	"ai-interview-relay-service/internal/service/realtime"
)

// Script drives a simulated interview.
type Script struct {
	Replies       []string // Assistant lines, spoken in order
	Callers       []string // Caller utterances, one per FramesPerTurn frames
	Closing       string   // Spoken once Replies run out
	Extraction    string   // Text answered to a text-only response
	FramesPerTurn int      // Appended frames that make up one caller utterance
	AutoRespond   bool     // Reply after each caller utterance, like server VAD
}

// DefaultScript is a short screening call that ends on a closing phrase.
func DefaultScript() Script {
	return Script{
		Replies: []string{
			"Hello, I am SAVIRA from Kainskep Solutions. Are you currently looking for a job or considering a job change?",
			"Great. May I have your full name please?",
			"Thank you. Which role are you interested in?",
			"Which company are you working with at the moment?",
			"How many years of experience do you have?",
			"What is your current salary?",
			"And what salary are you expecting?",
		},
		Callers: []string{
			"Yes, I am open to a change.",
			"My name is Jane Doe.",
			"Backend engineer.",
			"I work at Acme Corp.",
			"About five years.",
			"Twelve lakhs per annum.",
			"I am expecting eighteen lakhs.",
		},
		Closing: "Thank you for your time. The telephonic interview is complete. Take care and goodbye.",
		Extraction: "Here is the record:\n```json\n" +
			`{"full_name": "Jane Doe", "email": null, "role": "Backend Engineer", ` +
			`"last_company_name": "Acme Corp", "experience": "5 years", ` +
			`"previous_salary": "12 LPA", "expected_salary": "18 LPA"}` +
			"\n```",
		FramesPerTurn: 25,
		AutoRespond:   true,
	}
}

// silence is 20ms of mu-law silence at 8kHz.
var silence = base64.StdEncoding.EncodeToString(func() []byte {
	b := make([]byte, 160)
	for i := range b {
		b[i] = 0xFF
	}
	return b
}())

// Model implements realtime.Conn in memory.
type Model struct {
	script Script

	mu          sync.Mutex
	cond        *sync.Cond
	queue       [][]byte
	closed      bool
	frames      int // Appended frames in the current utterance
	callerIndex int
	replyIndex  int
	responses   int
	commands    []string // Command types received, in order
}

// New creates a model driven by script.
func New(script Script) *Model {
	if script.FramesPerTurn <= 0 {
		script.FramesPerTurn = 25
	}
	m := &Model{script: script}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// ReadMessage blocks until the model has an event to deliver or is closed.
func (m *Model) ReadMessage() (int, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.queue) == 0 && !m.closed {
		m.cond.Wait()
	}
	if m.closed {
		return 0, nil, net.ErrClosed
	}

	data := m.queue[0]
	m.queue = m.queue[1:]
	return websocket.TextMessage, data, nil
}

// WriteMessage accepts one client command and queues the model's reaction.
func (m *Model) WriteMessage(messageType int, data []byte) error {
	var cmd struct {
		Type     string `json:"type"`
		Response struct {
			Modalities []string `json:"modalities"`
		} `json:"response"`
	}
	if err := json.Unmarshal(data, &cmd); err != nil {
		return fmt.Errorf("mock realtime: bad command: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return net.ErrClosed
	}
	m.commands = append(m.commands, cmd.Type)

	switch cmd.Type {
	case realtime.TypeSessionUpdate:
		m.emit(map[string]any{"type": realtime.TypeSessionUpdated, "session": map[string]any{"id": "sess_mock", "model": "mock"}})

	case realtime.TypeInputAudioAppend:
		m.frames++
		if m.frames >= m.script.FramesPerTurn && m.callerIndex < len(m.script.Callers) {
			m.frames = 0
			m.finishUtterance()
		}

	case realtime.TypeInputAudioCommit:
		m.emit(map[string]any{"type": realtime.TypeBufferCommitted, "item_id": m.itemID()})

	case realtime.TypeResponseCreate:
		if isTextOnly(cmd.Response.Modalities) {
			m.respondText()
		} else {
			m.respondAudio()
		}
	}
	return nil
}

// Close unblocks pending reads. Safe to call more than once.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cond.Broadcast()
	return nil
}

// Commands returns the command types received so far.
func (m *Model) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.commands...)
}

func (m *Model) finishUtterance() {
	text := m.script.Callers[m.callerIndex]
	m.callerIndex++
	item := m.itemID()

	m.emit(map[string]any{"type": realtime.TypeSpeechStarted, "item_id": item})
	m.emit(map[string]any{"type": realtime.TypeSpeechStopped, "item_id": item})
	m.emit(map[string]any{"type": realtime.TypeBufferCommitted, "item_id": item})
	m.emit(map[string]any{"type": realtime.TypeInputTranscriptComplete, "item_id": item, "transcript": text})

	if m.script.AutoRespond {
		m.respondAudio()
	}
}

func (m *Model) respondAudio() {
	line := m.script.Closing
	if m.replyIndex < len(m.script.Replies) {
		line = m.script.Replies[m.replyIndex]
		m.replyIndex++
	}
	id := m.responseID()

	m.emit(map[string]any{"type": realtime.TypeResponseCreated, "response": map[string]any{"id": id}})
	m.emit(map[string]any{"type": realtime.TypeAudioDelta, "response_id": id, "delta": silence})
	m.emit(map[string]any{"type": realtime.TypeAudioDone, "response_id": id})
	m.emit(map[string]any{"type": realtime.TypeAudioTranscriptDone, "response_id": id, "transcript": line})
}

func (m *Model) respondText() {
	id := m.responseID()
	m.emit(map[string]any{"type": realtime.TypeResponseCreated, "response": map[string]any{"id": id}})
	m.emit(map[string]any{"type": realtime.TypeOutputTextDone, "response_id": id, "text": m.script.Extraction})
}

// emit queues an event. Callers hold m.mu.
func (m *Model) emit(ev map[string]any) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	m.queue = append(m.queue, data)
	m.cond.Signal()
}

func (m *Model) itemID() string {
	return fmt.Sprintf("item_mock_%d", m.callerIndex)
}

func (m *Model) responseID() string {
	m.responses++
	return fmt.Sprintf("resp_mock_%d", m.responses)
}

func isTextOnly(modalities []string) bool {
	if len(modalities) == 0 {
		return false
	}
	for _, mod := range modalities {
		if mod != realtime.ModalityText {
			return false
		}
	}
	return true
}
