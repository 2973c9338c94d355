package realtime

// Command types sent to the model.
const (
	TypeSessionUpdate    = "session.update"
	TypeResponseCreate   = "response.create"
	TypeInputAudioAppend = "input_audio_buffer.append"
	TypeInputAudioCommit = "input_audio_buffer.commit"
)

// Modalities.
const (
	ModalityText  = "text"
	ModalityAudio = "audio"
)

// SessionUpdate configures the realtime session.
type SessionUpdate struct {
	Type    string        `json:"type"`
	Session SessionConfig `json:"session"`
}

// SessionConfig is the body of a session.update command.
type SessionConfig struct {
	Modalities              []string       `json:"modalities"`
	Instructions            string         `json:"instructions,omitempty"`
	Voice                   string         `json:"voice"`
	InputAudioFormat        string         `json:"input_audio_format"`
	OutputAudioFormat       string         `json:"output_audio_format"`
	InputAudioTranscription *Transcription `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection `json:"turn_detection,omitempty"`
	Temperature             float64        `json:"temperature,omitempty"`
}

// Transcription selects the model that transcribes caller audio.
type Transcription struct {
	Model string `json:"model"`
}

// TurnDetection configures server-side voice activity detection.
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
}

// DefaultTurnDetection returns server VAD with a 0.5 energy threshold,
// 300ms leading padding and 700ms trailing silence before turn end.
func DefaultTurnDetection() *TurnDetection {
	return &TurnDetection{
		Type:              "server_vad",
		Threshold:         0.5,
		PrefixPaddingMs:   300,
		SilenceDurationMs: 700,
	}
}

// ResponseCreate asks the model to produce a response.
type ResponseCreate struct {
	Type     string         `json:"type"`
	Response ResponseParams `json:"response"`
}

// ResponseParams is the body of a response.create command.
type ResponseParams struct {
	Modalities   []string `json:"modalities"`
	Instructions string   `json:"instructions"`
}

// InputAudioAppend adds base64 audio to the input buffer.
type InputAudioAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

// InputAudioCommit flushes the input buffer.
type InputAudioCommit struct {
	Type string `json:"type"`
}
