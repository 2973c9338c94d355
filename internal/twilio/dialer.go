// Package twilio places the outbound screening call and renders the TwiML
// that connects it to the media-stream endpoint.
package twilio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	twiliogo "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"ai-interview-relay-service/internal/config"
	"ai-interview-relay-service/internal/observability/logging"
)

// ErrMissingCredentials is returned when any Twilio setting is absent.
var ErrMissingCredentials = errors.New("missing Twilio credentials")

// callCreator is the part of the Twilio REST API the dialer uses.
type callCreator interface {
	CreateCall(params *openapi.CreateCallParams) (*openapi.ApiV2010Call, error)
}

// Call is a placed call.
type Call struct {
	Sid    string
	Status string
	To     string
}

// Dialer places outbound calls that stream to this service.
type Dialer struct {
	api       callCreator
	from      string
	serverURL string
}

// NewDialer builds a dialer from configuration.
func NewDialer(cfg config.TwilioConfig) (*Dialer, error) {
	var missing []string
	if cfg.AccountSID == "" {
		missing = append(missing, "TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		missing = append(missing, "TWILIO_AUTH_TOKEN")
	}
	if cfg.PhoneNumber == "" {
		missing = append(missing, "TWILIO_PHONE_NUMBER")
	}
	if cfg.ServerURL == "" {
		missing = append(missing, "SERVER_URL")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}

	client := twiliogo.NewRestClientWithParams(twiliogo.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newDialer(client.Api, cfg.PhoneNumber, cfg.ServerURL), nil
}

func newDialer(api callCreator, from, serverURL string) *Dialer {
	return &Dialer{
		api:       api,
		from:      from,
		serverURL: strings.TrimRight(serverURL, "/"),
	}
}

// PlaceCall dials to and points the call at the /voice webhook. Completion is
// reported to /call-status.
func (d *Dialer) PlaceCall(ctx context.Context, to string) (*Call, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	to = NormalizeNumber(to)
	if len(to) < 2 {
		return nil, fmt.Errorf("invalid destination number %q", to)
	}

	params := &openapi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(d.from)
	params.SetUrl(d.serverURL + "/voice")
	params.SetStatusCallback(d.serverURL + "/call-status")
	params.SetStatusCallbackEvent([]string{"completed"})

	resp, err := d.api.CreateCall(params)
	if err != nil {
		return nil, fmt.Errorf("create call to %s: %w", to, err)
	}

	call := &Call{To: to}
	if resp.Sid != nil {
		call.Sid = *resp.Sid
	}
	if resp.Status != nil {
		call.Status = *resp.Status
	}

	l := logging.WithCall(call.Sid)
	l.Info().Str("to", to).Str("status", call.Status).Msg("Call placed")
	return call, nil
}

// NormalizeNumber trims whitespace and ensures a leading '+'.
func NormalizeNumber(number string) string {
	number = strings.TrimSpace(number)
	if number != "" && !strings.HasPrefix(number, "+") {
		number = "+" + number
	}
	return number
}
