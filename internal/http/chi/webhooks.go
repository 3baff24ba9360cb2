package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/marcelsud/webhook-dispatch/dispatch"
	"github.com/marcelsud/webhook-dispatch/event"
	"github.com/marcelsud/webhook-dispatch/event/signature"
)

/* HTTP layer DTOs for the dispatch API
 * Separate from domain entities to avoid leaking internal structure
 */

// webhookResponse represents the API response when a delivery is accepted
type webhookResponse struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
}

// errorResponse carries a rejected delivery's failure reason
type errorResponse struct {
	Error string `json:"error"`
}

// postWebhook handles POST /v1/webhooks/circleci
func postWebhook(processor *dispatch.Processor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read request body"})
			return
		}
		defer r.Body.Close()

		result := processor.Process(r.Context(), r.Header.Get(signature.Header), body)
		if !result.Success {
			writeJSON(w, statusFor(result.Err), errorResponse{Error: result.Err.Error()})
			return
		}

		// 202 Accepted: the event is queued, not yet dispatched
		writeJSON(w, http.StatusAccepted, webhookResponse{
			EventID:   result.EventID,
			EventType: result.EventType,
		})
	})
}

/* statusFor maps the failure taxonomy onto response codes
 * Providers retry on non-2xx, so only the retryable QueueFull maps to
 * 503; permanent payload problems get 4xx to discourage redelivery
 */
func statusFor(err error) int {
	switch {
	case errors.Is(err, dispatch.ErrQueueFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, dispatch.ErrMissingSignature), errors.Is(err, dispatch.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, event.ErrInvalidJSON),
		errors.Is(err, event.ErrMissingEventType),
		errors.Is(err, event.ErrUnknownEventType):
		return http.StatusBadRequest
	default:
		return http.StatusBadRequest
	}
}

// getStats handles GET /v1/stats
func getStats(processor *dispatch.Processor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, processor.GetStats())
	})
}

// getHandlers handles GET /v1/handlers
func getHandlers(processor *dispatch.Processor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, processor.GetHandlers())
	})
}

// getRecentEvents handles GET /v1/events/recent?limit=N
func getRecentEvents(processor *dispatch.Processor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
				return
			}
			limit = parsed
		}

		records, err := processor.GetRecentEvents(r.Context(), limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		if records == nil {
			records = []event.Record{}
		}
		writeJSON(w, http.StatusOK, records)
	})
}

// healthCheck handles GET /health
func healthCheck(processor *dispatch.Processor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := processor.HealthCheck()

		status := http.StatusOK
		if !health.Healthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, health)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
