// Command dial places an outbound screening call that streams to the relay.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"ai-interview-relay-service/internal/config"
	"ai-interview-relay-service/internal/observability/logging"
	"ai-interview-relay-service/internal/twilio"
)

func main() {
	to := flag.String("to", "", "Destination phone number, E.164 (a leading + is added if missing)")
	timeout := flag.Duration("timeout", 15*time.Second, "Request timeout")
	flag.Parse()

	_ = godotenv.Load()
	logCfg := logging.DefaultConfig()
	logCfg.Format = "console"
	logging.Init(logCfg)

	if *to == "" {
		fmt.Fprintln(os.Stderr, "usage: dial -to +15551234567")
		os.Exit(2)
	}

	dialer, err := twilio.NewDialer(config.Load().Twilio)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot place call")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	call, err := dialer.PlaceCall(ctx, *to)
	if err != nil {
		log.Fatal().Err(err).Msg("Call failed")
	}

	fmt.Printf("Call initiated: %s (%s) to %s\n", call.Sid, call.Status, call.To)
}
