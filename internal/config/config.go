// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"ai-interview-relay-service/internal/schema"
)

// DefaultClosingPhrases are matched case-insensitively against assistant transcripts.
var DefaultClosingPhrases = []string{
	"interview is complete",
	"interview is done",
	"thank you for your time",
	"take care and goodbye",
	"goodbye",
	"telephonic interview is complete",
}

// Configuration is the full service configuration.
type Configuration struct {
	Service       ServiceConfig
	Realtime      RealtimeConfig
	Interview     InterviewConfig
	Kafka         KafkaConfig
	Twilio        TwilioConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds listener and identity settings.
type ServiceConfig struct {
	Principal  string `validate:"required"`
	HTTPPort   string `validate:"required,numeric"`
	GRPCPort   string `validate:"required,numeric"`
	PublicHost string
}

// RealtimeConfig holds settings for the hosted realtime speech model.
type RealtimeConfig struct {
	Provider           string `validate:"oneof=openai mock"`
	APIKey             string
	Endpoint           string  `validate:"required"`
	Model              string  `validate:"required"`
	Voice              string  `validate:"required"`
	AudioFormat        string  `validate:"required"`
	TranscriptionModel string  `validate:"required"`
	Temperature        float64 `validate:"gte=0,lte=2"`
	DialTimeout        time.Duration
}

// IsAzure reports whether the endpoint points at an Azure OpenAI deployment.
func (r RealtimeConfig) IsAzure() bool {
	ep := strings.ToLower(r.Endpoint)
	return strings.Contains(ep, "azure") || strings.Contains(ep, "cognitiveservices")
}

// placeholderAPIKey is the value shipped in the sample .env file.
const placeholderAPIKey = "your-openai-realtime-api-key-here"

// HasCredentials reports whether a session can be opened. The mock provider
// needs none.
func (r RealtimeConfig) HasCredentials() bool {
	if r.Provider == "mock" {
		return true
	}
	return r.APIKey != "" && r.APIKey != placeholderAPIKey
}

// InterviewConfig holds the interview close heuristics.
type InterviewConfig struct {
	ClosingPhrases  []string `validate:"min=1,dive,required"`
	MaxUserTurns    int      `validate:"gte=1"`
	ExtractionGrace time.Duration
}

// KafkaConfig holds the candidate/transcript sink settings.
type KafkaConfig struct {
	Enabled          bool
	Brokers          []string
	TopicTranscripts string `validate:"required"`
	TopicCandidates  string `validate:"required"`
}

// TwilioConfig holds the credentials used to place outbound calls.
type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	PhoneNumber string
	ServerURL   string
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel    string `validate:"oneof=trace debug info warn error"`
	LogFormat   string `validate:"oneof=json console"`
	MetricsAddr string
}

// Load reads the configuration from environment variables, applying defaults.
func Load() *Configuration {
	return &Configuration{
		Service: ServiceConfig{
			Principal:  envOrDefault("SERVICE_PRINCIPAL", "svc-interview-relay"),
			HTTPPort:   envOrDefault("HTTP_PORT", envOrDefault("SERVER_PORT", "5000")),
			GRPCPort:   envOrDefault("GRPC_PORT", "50051"),
			PublicHost: os.Getenv("PUBLIC_HOST"),
		},
		Realtime: RealtimeConfig{
			Provider:           strings.ToLower(envOrDefault("REALTIME_PROVIDER", "openai")),
			APIKey:             os.Getenv("OPENAI_REALTIME_API_KEY"),
			Endpoint:           envOrDefault("OPENAI_REALTIME_ENDPOINT", "wss://api.openai.com/v1/realtime"),
			Model:              envOrDefault("OPENAI_REALTIME_MODEL", "gpt-4o-realtime-preview"),
			Voice:              envOrDefault("REALTIME_VOICE", "alloy"),
			AudioFormat:        envOrDefault("REALTIME_AUDIO_FORMAT", "g711_ulaw"),
			TranscriptionModel: envOrDefault("REALTIME_TRANSCRIPTION_MODEL", "whisper-1"),
			Temperature:        envFloat("REALTIME_TEMPERATURE", 0.8),
			DialTimeout:        envDuration("REALTIME_DIAL_TIMEOUT", 10*time.Second),
		},
		Interview: InterviewConfig{
			ClosingPhrases:  envList("INTERVIEW_CLOSING_PHRASES", DefaultClosingPhrases),
			MaxUserTurns:    envInt("INTERVIEW_MAX_USER_TURNS", 15),
			ExtractionGrace: envDuration("INTERVIEW_EXTRACTION_GRACE", 5*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled:          envBool("KAFKA_ENABLED", false),
			Brokers:          envList("KAFKA_BROKERS", nil),
			TopicTranscripts: envOrDefault("KAFKA_TOPIC_TRANSCRIPTS", "interview.transcript.final"),
			TopicCandidates:  envOrDefault("KAFKA_TOPIC_CANDIDATES", "interview.candidate.extracted"),
		},
		Twilio: TwilioConfig{
			AccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
			PhoneNumber: os.Getenv("TWILIO_PHONE_NUMBER"),
			ServerURL:   strings.TrimRight(os.Getenv("SERVER_URL"), "/"),
		},
		Observability: ObservabilityConfig{
			LogLevel:    strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
			LogFormat:   strings.ToLower(envOrDefault("LOG_FORMAT", "json")),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
		},
	}
}

// Validate checks value ranges. Credentials are deliberately not required
// here: a missing API key refuses individual sessions, not the process.
func (c *Configuration) Validate() error {
	return schema.New().Validate(c)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
