// Command callsim plays the telephony side of a call against the relay's
// media-stream endpoint. It streams 8kHz mu-law audio in 20ms frames and
// records whatever audio the relay sends back.
package main

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"ai-interview-relay-service/internal/observability/logging"
)

// WAV header is 44 bytes for canonical files
const wavHeaderSize = 44

// WAVE format tag for G.711 mu-law
const wavFormatMuLaw = 7

// 8kHz mu-law, one byte per sample: 20ms = 160 bytes
const (
	frameSize     = 160
	frameInterval = 20 * time.Millisecond
)

// silence is the mu-law encoding of a zero sample.
const silence = 0xFF

type frame struct {
	Event          string `json:"event"`
	SequenceNumber string `json:"sequenceNumber,omitempty"`
	StreamSid      string `json:"streamSid,omitempty"`
	Start          *start `json:"start,omitempty"`
	Media          *media `json:"media,omitempty"`
	Stop           *stop  `json:"stop,omitempty"`
}

type start struct {
	StreamSid   string      `json:"streamSid"`
	CallSid     string      `json:"callSid"`
	AccountSid  string      `json:"accountSid"`
	Tracks      []string    `json:"tracks"`
	MediaFormat mediaFormat `json:"mediaFormat"`
}

type mediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

type media struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"`
}

type stop struct {
	CallSid string `json:"callSid"`
}

func main() {
	server := flag.String("server", "localhost:5000", "Relay host:port")
	audioFile := flag.String("audio", "", "Raw mu-law or mu-law WAV file (8kHz mono); silence when empty")
	seconds := flag.Int("seconds", 10, "Seconds of silence to send when no audio file is given")
	outFile := flag.String("out", "", "Write received mu-law audio to this file")
	linger := flag.Duration("linger", 5*time.Second, "How long to keep listening after stop")
	flag.Parse()

	logCfg := logging.DefaultConfig()
	logCfg.Format = "console"
	logging.Init(logCfg)

	audio, err := loadAudio(*audioFile, *seconds)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load audio")
	}

	u := url.URL{Scheme: "ws", Host: *server, Path: "/media-stream"}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal().Err(err).Str("url", u.String()).Msg("Failed to connect")
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	streamSid := "MZ" + uuid.NewString()
	callSid := "CA" + uuid.NewString()
	l := log.With().Str("streamSid", streamSid).Logger()
	l.Info().Str("url", u.String()).Int("audioBytes", len(audio)).Msg("Connected")

	var out io.Writer = io.Discard
	if *outFile != "" {
		f, err := os.Create(*outFile)
		if err != nil {
			l.Fatal().Err(err).Msg("Failed to create output file")
		}
		defer f.Close()
		out = f
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		receive(conn, out)
	}()

	// Writes are serialized on this goroutine only.
	send := func(f frame) error {
		data, err := json.Marshal(f)
		if err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, syscall.SIGINT, syscall.SIGTERM)

	seq := 1
	next := func() string {
		s := strconv.Itoa(seq)
		seq++
		return s
	}

	if err := send(frame{Event: "connected"}); err != nil {
		l.Fatal().Err(err).Msg("Failed to send connected")
	}
	if err := send(frame{
		Event:          "start",
		SequenceNumber: next(),
		StreamSid:      streamSid,
		Start: &start{
			StreamSid:   streamSid,
			CallSid:     callSid,
			AccountSid:  "AC-callsim",
			Tracks:      []string{"inbound"},
			MediaFormat: mediaFormat{Encoding: "audio/x-mulaw", SampleRate: 8000, Channels: 1},
		},
	}); err != nil {
		l.Fatal().Err(err).Msg("Failed to send start")
	}

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	var chunk int
	began := time.Now()
stream:
	for off := 0; off < len(audio); off += frameSize {
		select {
		case <-interrupted:
			l.Info().Msg("Interrupted")
			break stream
		case <-ticker.C:
		}

		end := min(off+frameSize, len(audio))
		chunk++
		err := send(frame{
			Event:          "media",
			SequenceNumber: next(),
			StreamSid:      streamSid,
			Media: &media{
				Track:     "inbound",
				Chunk:     strconv.Itoa(chunk),
				Timestamp: strconv.FormatInt(time.Since(began).Milliseconds(), 10),
				Payload:   base64.StdEncoding.EncodeToString(audio[off:end]),
			},
		})
		if err != nil {
			l.Error().Err(err).Int("chunk", chunk).Msg("Failed to send media")
			break
		}
		if chunk%50 == 0 {
			l.Info().Int("chunk", chunk).Msg("Streaming")
		}
	}

	if err := send(frame{Event: "stop", SequenceNumber: next(), StreamSid: streamSid, Stop: &stop{CallSid: callSid}}); err != nil {
		l.Warn().Err(err).Msg("Failed to send stop")
	}
	l.Info().Int("chunks", chunk).Dur("elapsed", time.Since(began)).Msg("Finished streaming, listening for replies")

	select {
	case <-time.After(*linger):
	case <-interrupted:
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "call ended"),
		time.Now().Add(time.Second))
	conn.Close()
	wg.Wait()
}

// receive drains outbound frames until the connection closes.
func receive(conn *websocket.Conn, out io.Writer) {
	var frames, bytes int
	defer func() {
		log.Info().Int("frames", frames).Int("bytes", bytes).Msg("Receiver stopped")
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				log.Info().Int("code", ce.Code).Str("reason", ce.Text).Msg("Relay closed the stream")
			}
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil || f.Event != "media" || f.Media == nil {
			log.Debug().Bytes("frame", data).Msg("Ignoring frame")
			continue
		}
		payload, err := base64.StdEncoding.DecodeString(f.Media.Payload)
		if err != nil {
			log.Warn().Err(err).Msg("Bad payload")
			continue
		}
		frames++
		bytes += len(payload)
		if _, err := out.Write(payload); err != nil {
			log.Error().Err(err).Msg("Failed to write audio")
			return
		}
	}
}

// loadAudio returns the mu-law samples to stream. WAV files must be
// mu-law encoded; anything else is treated as raw mu-law.
func loadAudio(path string, seconds int) ([]byte, error) {
	if path == "" {
		buf := make([]byte, seconds*8000)
		for i := range buf {
			buf[i] = silence
		}
		return buf, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < wavHeaderSize || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return data, nil
	}

	audioFormat := binary.LittleEndian.Uint16(data[20:22])
	numChannels := binary.LittleEndian.Uint16(data[22:24])
	sampleRate := binary.LittleEndian.Uint32(data[24:28])
	log.Info().
		Uint16("format", audioFormat).
		Uint16("channels", numChannels).
		Uint32("sampleRate", sampleRate).
		Msg("WAV file")

	if audioFormat != wavFormatMuLaw {
		return nil, errors.New("only mu-law WAV files are supported")
	}
	if sampleRate != 8000 || numChannels != 1 {
		log.Warn().Msg("Expected 8kHz mono audio")
	}
	return data[wavHeaderSize:], nil
}
