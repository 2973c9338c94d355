package relay

import (
	"fmt"
	"testing"
	"time"

	"ai-interview-relay-service/internal/service/interview"
	"ai-interview-relay-service/internal/service/realtime"
)

func TestSession_OpensWithConfigThenGreeting(t *testing.T) {
	h := startSession(t, nil)

	waitFor(t, "opening commands", func() bool { return len(h.model.written()) >= 2 })

	cmds := h.model.written()
	if cmds[0]["type"] != realtime.TypeSessionUpdate {
		t.Fatalf("expected session.update first, got %v", cmds[0]["type"])
	}
	session := cmds[0]["session"].(map[string]any)
	if session["voice"] != "alloy" || session["input_audio_format"] != "g711_ulaw" || session["output_audio_format"] != "g711_ulaw" {
		t.Errorf("unexpected session config %v", session)
	}
	td := session["turn_detection"].(map[string]any)
	if td["threshold"] != 0.5 || td["prefix_padding_ms"] != float64(300) || td["silence_duration_ms"] != float64(700) {
		t.Errorf("unexpected turn detection %v", td)
	}

	if cmds[1]["type"] != realtime.TypeResponseCreate {
		t.Fatalf("expected response.create second, got %v", cmds[1]["type"])
	}
	resp := cmds[1]["response"].(map[string]any)
	if resp["instructions"] != interview.Greeting {
		t.Errorf("expected greeting, got %v", resp["instructions"])
	}

	h.phone.push(t, stopFrame())
	h.wait(t)
}

func TestSession_RelaysAudioVerbatimAndInOrder(t *testing.T) {
	h := startSession(t, nil)
	const n = 50

	h.phone.push(t, startFrame("MZ1"))
	for i := 0; i < n; i++ {
		h.phone.push(t, mediaFrame(fmt.Sprintf("in-%03d+/=", i)))
	}
	waitFor(t, "inbound appends", func() bool {
		return len(commandsOfType(h.model, realtime.TypeInputAudioAppend)) == n
	})

	for i := 0; i < n; i++ {
		h.model.push(t, audioDelta(fmt.Sprintf("out-%03d+/=", i)))
	}
	waitFor(t, "outbound media", func() bool { return len(h.phone.written()) == n })

	for i, m := range commandsOfType(h.model, realtime.TypeInputAudioAppend) {
		if want := fmt.Sprintf("in-%03d+/=", i); m["audio"] != want {
			t.Fatalf("append %d: expected %q, got %v", i, want, m["audio"])
		}
	}
	for i, m := range h.phone.written() {
		if m["event"] != "media" || m["streamSid"] != "MZ1" {
			t.Fatalf("frame %d: unexpected envelope %v", i, m)
		}
		payload := m["media"].(map[string]any)["payload"]
		if want := fmt.Sprintf("out-%03d+/=", i); payload != want {
			t.Fatalf("frame %d: expected %q, got %v", i, want, payload)
		}
	}

	h.phone.push(t, stopFrame())
	if err := h.wait(t); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if len(commandsOfType(h.model, realtime.TypeInputAudioCommit)) != 1 {
		t.Error("expected stop to commit the audio buffer")
	}
	if h.session.StreamSid() != "MZ1" {
		t.Errorf("expected stream sid MZ1, got %s", h.session.StreamSid())
	}
}

func TestSession_AudioBeforeStartDropped(t *testing.T) {
	h := startSession(t, nil)

	for i := 0; i < 3; i++ {
		h.model.push(t, audioDelta("early"))
	}
	// Events are handled in order; the transcript marks the deltas as processed.
	h.model.push(t, assistantTranscript("Hello"))
	waitFor(t, "transcript", func() bool { return h.pub.transcriptCount() == 1 })

	if got := len(h.phone.written()); got != 0 {
		t.Fatalf("expected no outbound frames before start, got %d", got)
	}

	h.phone.push(t, startFrame("MZ2"))
	h.phone.push(t, mediaFrame("AAAA"))
	waitFor(t, "append", func() bool { return len(commandsOfType(h.model, realtime.TypeInputAudioAppend)) == 1 })

	h.model.push(t, audioDelta("late"))
	waitFor(t, "outbound media", func() bool { return len(h.phone.written()) == 1 })

	payload := h.phone.written()[0]["media"].(map[string]any)["payload"]
	if payload != "late" {
		t.Errorf("expected only the post-start delta, got %v", payload)
	}

	h.phone.push(t, stopFrame())
	h.wait(t)
	if h.session.dropped != 3 {
		t.Errorf("expected 3 dropped deltas, got %d", h.session.dropped)
	}
}

func TestSession_MalformedFramesSkipped(t *testing.T) {
	h := startSession(t, nil)

	h.phone.in <- []byte(`not json`)
	h.phone.push(t, map[string]any{"event": "media"})
	h.phone.push(t, map[string]any{"event": "mark", "mark": map[string]any{"name": "m1"}})
	h.phone.push(t, mediaFrame("AAAA"))

	waitFor(t, "append after malformed frames", func() bool {
		return len(commandsOfType(h.model, realtime.TypeInputAudioAppend)) == 1
	})

	h.phone.push(t, stopFrame())
	h.wait(t)
}

func TestSession_ExactlyOneExtractionRequest(t *testing.T) {
	h := startSession(t, nil)
	h.phone.push(t, startFrame("MZ3"))

	h.model.push(t, assistantTranscript("Thank you for your time. Your telephonic interview is complete."))
	h.model.push(t, assistantTranscript("Take care and goodbye."))
	for i := 0; i < 20; i++ {
		h.model.push(t, userTranscript("bye"))
	}
	h.model.push(t, assistantTranscript("Goodbye."))
	waitFor(t, "transcripts", func() bool { return h.pub.transcriptCount() == 23 })

	if got := extractionRequests(h.model); got != 1 {
		t.Fatalf("expected exactly one extraction request, got %d", got)
	}

	h.model.push(t, textDone(`{"full_name":"Jane Doe","email":null,"role":"Backend Engineer"}`))
	waitFor(t, "candidate", func() bool { return len(h.pub.candidateList()) == 1 })

	c := h.pub.candidateList()[0]
	if c.Trigger != string(interview.TriggerClosingPhrase) {
		t.Errorf("expected closing_phrase trigger, got %s", c.Trigger)
	}
	if c.Candidate.FullName == nil || *c.Candidate.FullName != "Jane Doe" {
		t.Errorf("unexpected candidate %+v", c.Candidate)
	}
	if c.Candidate.Email != nil {
		t.Errorf("expected nil email, got %q", *c.Candidate.Email)
	}
	if c.StreamSid != "MZ3" || c.SessionID != h.session.ID() {
		t.Errorf("unexpected identifiers %s %s", c.StreamSid, c.SessionID)
	}
	if h.session.State() != interview.StateDone {
		t.Errorf("expected DONE after extraction, got %v", h.session.State())
	}

	// A second text output after DONE is ignored.
	h.model.push(t, textDone(`{"full_name":"Someone Else"}`))
	h.phone.push(t, stopFrame())
	h.wait(t)

	if got := len(h.pub.candidateList()); got != 1 {
		t.Errorf("expected one candidate published, got %d", got)
	}
}

func TestSession_TurnLimitFallback(t *testing.T) {
	h := startSession(t, nil)

	for i := 0; i < 15; i++ {
		h.model.push(t, userTranscript(fmt.Sprintf("answer %d", i)))
	}
	waitFor(t, "15 transcripts", func() bool { return h.pub.transcriptCount() == 15 })
	if got := extractionRequests(h.model); got != 0 {
		t.Fatalf("expected no request after 15 turns, got %d", got)
	}

	h.model.push(t, userTranscript("answer 16"))
	h.model.push(t, userTranscript("answer 17"))
	waitFor(t, "17 transcripts", func() bool { return h.pub.transcriptCount() == 17 })

	if got := extractionRequests(h.model); got != 1 {
		t.Fatalf("expected one request, got %d", got)
	}

	h.model.push(t, textDone("no structured data, sorry"))
	waitFor(t, "candidate", func() bool { return len(h.pub.candidateList()) == 1 })

	c := h.pub.candidateList()[0]
	if c.Trigger != string(interview.TriggerTurnLimit) {
		t.Errorf("expected turn_limit trigger, got %s", c.Trigger)
	}
	if c.ParseError == "" || !c.Candidate.IsEmpty() {
		t.Errorf("expected parse error and empty record, got %+v", c)
	}
	if h.session.State() != interview.StateDone {
		t.Errorf("expected DONE after parse failure, got %v", h.session.State())
	}

	h.phone.push(t, stopFrame())
	h.wait(t)
}

func TestSession_UpstreamErrorIsNotFatal(t *testing.T) {
	h := startSession(t, nil)
	h.phone.push(t, startFrame("MZ4"))

	h.model.push(t, map[string]any{"type": "error", "error": map[string]any{"code": "bad", "message": "oops"}})
	h.model.in <- []byte(`{{{`)
	h.model.push(t, map[string]any{"type": "rate_limits.updated"})
	h.model.push(t, audioDelta("still-flowing"))

	waitFor(t, "audio after error", func() bool { return len(h.phone.written()) == 1 })

	h.phone.push(t, stopFrame())
	h.wait(t)
}

func TestSession_PhoneDisconnectTearsDownModel(t *testing.T) {
	h := startSession(t, nil)
	h.phone.push(t, startFrame("MZ5"))
	waitFor(t, "opening commands", func() bool { return len(h.model.written()) >= 2 })

	h.phone.Close()

	if err := h.wait(t); err != nil {
		t.Errorf("disconnect should not be an error, got %v", err)
	}
	if !h.model.isClosed() {
		t.Error("expected model connection closed")
	}
	if h.session.State() != interview.StateDone {
		t.Errorf("expected DONE after teardown, got %v", h.session.State())
	}
}

func TestSession_ModelDisconnectTearsDownPhone(t *testing.T) {
	h := startSession(t, nil)
	waitFor(t, "opening commands", func() bool { return len(h.model.written()) >= 2 })

	h.model.Close()

	h.wait(t)
	if !h.phone.isClosed() {
		t.Error("expected phone connection closed")
	}
}

func TestSession_ExtractionGraceAfterHangup(t *testing.T) {
	h := startSession(t, func(o *Options) { o.Interview.ExtractionGrace = time.Second })
	h.phone.push(t, startFrame("MZ6"))

	h.model.push(t, assistantTranscript("goodbye"))
	waitFor(t, "extraction request", func() bool { return extractionRequests(h.model) == 1 })

	h.phone.push(t, stopFrame())
	time.Sleep(50 * time.Millisecond)
	if h.model.isClosed() {
		t.Fatal("expected model kept open while extraction pending")
	}

	h.model.push(t, textDone(`{"role":"QA"}`))
	h.wait(t)

	cands := h.pub.candidateList()
	if len(cands) != 1 || cands[0].Candidate.Role == nil || *cands[0].Candidate.Role != "QA" {
		t.Fatalf("expected candidate published during grace, got %+v", cands)
	}
	if !h.model.isClosed() {
		t.Error("expected model closed after extraction")
	}
}

func TestSession_AbandonedExtraction(t *testing.T) {
	h := startSession(t, nil)

	h.model.push(t, assistantTranscript("goodbye"))
	waitFor(t, "extraction request", func() bool { return extractionRequests(h.model) == 1 })
	if h.session.State() != interview.StateExtractionRequested {
		t.Fatalf("expected EXTRACTION_REQUESTED, got %v", h.session.State())
	}

	h.phone.push(t, stopFrame())
	h.wait(t)

	if h.session.State() != interview.StateDone {
		t.Errorf("expected DONE on teardown, got %v", h.session.State())
	}
	if got := len(h.pub.candidateList()); got != 0 {
		t.Errorf("expected no candidate for abandoned extraction, got %d", got)
	}
}
