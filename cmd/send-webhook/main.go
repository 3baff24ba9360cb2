package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/webhook-dispatch/event/signature"
)

/* send-webhook - CLI for exercising a running dispatch server
 * Builds a sample event payload, signs it and POSTs it to the webhook
 * endpoint. Useful for smoke-testing a deployment.
 */

func main() {
	url := flag.String("url", "http://localhost:8080/v1/webhooks/circleci", "webhook endpoint")
	eventType := flag.String("type", "workflow-completed", "event type to send")
	secret := flag.String("secret", "", "signing secret (empty sends unsigned)")
	flag.Parse()

	payload := map[string]any{
		"id":          uuid.New().String(),
		"type":        *eventType,
		"happened_at": time.Now().UTC().Format(time.RFC3339),
		"workflow": map[string]any{
			"name":   "build-and-test",
			"status": "success",
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Println(err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, *url, bytes.NewReader(body))
	if err != nil {
		fmt.Println(err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if *secret != "" {
		req.Header.Set(signature.Header, signature.Sign(*secret, body))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("%s\n%s\n", resp.Status, respBody)
}
