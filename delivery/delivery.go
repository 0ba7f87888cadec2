// Package delivery abstracts how OTP codes reach the user. The engine
// treats delivery as fire-and-forget: a failed send never fails the login
// start, it only surfaces in audit events and metrics.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Message is one code delivery request. Destination is the raw phone number
// or email; gateways must not log it unmasked.
type Message struct {
	Method      string // "phone" or "email"
	Destination string
	Code        string
	Language    string
}

// Receipt reports the outcome of a send. Reason is only set when Sent is
// false.
type Receipt struct {
	Sent   bool
	Reason string
}

// Gateway sends OTP codes. Implementations must be safe for concurrent use.
type Gateway interface {
	Send(ctx context.Context, msg Message) Receipt
}

// NoopGateway never sends anything. It is the default when no gateway is
// configured, so the engine's delivery-failure path handles the gap.
type NoopGateway struct{}

func (NoopGateway) Send(context.Context, Message) Receipt {
	return Receipt{Sent: false, Reason: "no delivery gateway configured"}
}

// LogGateway prints the code to the process log instead of sending it.
// Development only.
type LogGateway struct{}

func (LogGateway) Send(_ context.Context, msg Message) Receipt {
	log.Printf("authcore: otp delivery (%s) code=%s", msg.Method, msg.Code)
	return Receipt{Sent: true}
}

// HTTPGateway posts messages to an external delivery service. The request
// body is a small JSON document; any 2xx response counts as sent.
type HTTPGateway struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPGateway creates a gateway for the given endpoint. timeout bounds
// each send including connection setup.
func NewHTTPGateway(endpoint, apiKey string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPGateway{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

func (g *HTTPGateway) Send(ctx context.Context, msg Message) Receipt {
	payload, err := json.Marshal(map[string]string{
		"channel":  msg.Method,
		"to":       msg.Destination,
		"code":     msg.Code,
		"language": msg.Language,
	})
	if err != nil {
		return Receipt{Sent: false, Reason: "encode payload: " + err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Receipt{Sent: false, Reason: "build request: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Receipt{Sent: false, Reason: "send request: " + err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Receipt{Sent: false, Reason: fmt.Sprintf("provider status %d", resp.StatusCode)}
	}
	return Receipt{Sent: true}
}
