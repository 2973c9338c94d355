package app

import (
	"time"

	"github.com/rs/zerolog"

	"ai-interview-relay-service/internal/config"
	"ai-interview-relay-service/internal/observability/logging"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration
}

// New constructs a new Application from the provided configuration and
// initialises the global logger from it.
func New(cfg *config.Configuration) *Application {
	logging.Init(logging.Config{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	})

	a := &Application{
		Cfg: cfg,
		Logger: logging.WithComponent("application").With().
			Str("service", "ai-interview-relay-service").
			Logger(),
	}

	a.Logger.Info().
		Str("logLevel", cfg.Observability.LogLevel).
		Str("logFormat", cfg.Observability.LogFormat).
		Msg("Logger setup completed")
	return a
}

// Start records the startup time and logs the effective realtime target.
func (a *Application) Start() error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	a.StartupTime = time.Now().UTC()

	provider := "OpenAI"
	if a.Cfg.Realtime.Provider == "mock" {
		provider = "mock"
	} else if a.Cfg.Realtime.IsAzure() {
		provider = "Azure OpenAI"
	}

	ev := startLogger.Info().
		Time("startupTime", a.StartupTime).
		Str("provider", provider).
		Str("model", a.Cfg.Realtime.Model).
		Str("httpPort", a.Cfg.Service.HTTPPort).
		Bool("kafka", a.Cfg.Kafka.Enabled)
	ev.Msg("Interview relay service starting")

	if !a.Cfg.Realtime.HasCredentials() {
		startLogger.Warn().Msg("OPENAI_REALTIME_API_KEY not set, media-stream sessions will be refused")
	}
	return nil
}

// Uptime returns the time since Start.
func (a *Application) Uptime() time.Duration {
	if a.StartupTime.IsZero() {
		return 0
	}
	return time.Since(a.StartupTime)
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	shutdownLogger.Info().Dur("uptime", a.Uptime()).Msg("Interview relay service shutting down")
}
