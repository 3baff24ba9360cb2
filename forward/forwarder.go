package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/marcelsud/webhook-dispatch/dispatch"
	"github.com/marcelsud/webhook-dispatch/event"
	"github.com/marcelsud/webhook-dispatch/event/signature"
)

/* Forwarder turns targets into dispatch handlers that relay events over
 * HTTP. Outbound deliveries carry the same sha256= signature scheme the
 * engine verifies on intake, so downstream receivers can authenticate us
 * the same way we authenticate the provider.
 */
type Forwarder struct {
	client *http.Client
}

// NewForwarder creates a forwarder sharing one HTTP client across targets
func NewForwarder(client *http.Client) *Forwarder {
	if client == nil {
		client = &http.Client{}
	}
	return &Forwarder{client: client}
}

// Handler builds the dispatch handler for one target
func (f *Forwarder) Handler(target *Target) dispatch.Handler {
	return func(ctx context.Context, evt event.Event) error {
		if target.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, target.Timeout)
			defer cancel()
		}

		body, err := json.Marshal(evt.Payload)
		if err != nil {
			return fmt.Errorf("marshaling payload for %s: %w", target.Name, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.TargetURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("building request for %s: %w", target.Name, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Event-Id", evt.ID)
		req.Header.Set("X-Event-Type", evt.Type.String())
		if target.SigningSecret != "" {
			req.Header.Set(signature.Header, signature.Sign(target.SigningSecret, body))
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return fmt.Errorf("delivering to %s: %w", target.Name, err)
		}
		defer resp.Body.Close()

		if target.ExpectedStatus != 0 {
			if resp.StatusCode != target.ExpectedStatus {
				return fmt.Errorf("target %s responded %d, expected %d", target.Name, resp.StatusCode, target.ExpectedStatus)
			}
			return nil
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("target %s responded %d", target.Name, resp.StatusCode)
		}
		return nil
	}
}

// RegisterAll registers every loaded target as a dispatch handler
func RegisterAll(p *dispatch.Processor, loader *Loader, f *Forwarder) error {
	for _, target := range loader.List() {
		reg := dispatch.Registration{
			Name:     target.Name,
			Priority: target.Priority,
			Handler:  f.Handler(target),
		}
		if target.EventType != "" {
			t, err := event.ParseType(target.EventType)
			if err != nil {
				return fmt.Errorf("registering target %s: %w", target.Name, err)
			}
			reg.EventType = &t
		}
		if err := p.RegisterHandler(reg); err != nil {
			return fmt.Errorf("registering target %s: %w", target.Name, err)
		}
	}
	return nil
}
