package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/marcelsud/webhook-dispatch/event"
	"github.com/redis/go-redis/v9"
)

/* Redis implementation of event.Archive
 * Uses a Redis List as the recency index and Hashes for per-event detail
 * Entries expire so the archive stays an observability aid, not a log
 */

const (
	recentKey  = "events:recent" // List of record JSON, newest first
	hashPrefix = "event"         // Hash naming: event:{event_id}

	// keep bounds the recency list independent of TTL
	keep = 1000
)

type Repository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRepository creates a new Redis archive
func NewRepository(addr, password string, db int, ttl time.Duration) (*Repository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Repository{
		client: client,
		ttl:    ttl,
	}, nil
}

// Record stores the outcome of one dispatched event
func (r *Repository) Record(ctx context.Context, rec event.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}

	// Store per-event detail in a hash for quick lookups
	hashKey := fmt.Sprintf("%s:%s", hashPrefix, rec.EventID)
	err = r.client.HSet(ctx, hashKey, map[string]interface{}{
		"event_id":         rec.EventID,
		"event_type":       rec.EventType,
		"happened_at":      rec.HappenedAt.Unix(),
		"processed_at":     rec.ProcessedAt.Unix(),
		"handlers_matched": rec.HandlersMatched,
		"handlers_failed":  rec.HandlersFailed,
	}).Err()
	if err != nil {
		return fmt.Errorf("storing event detail: %w", err)
	}
	if err := r.client.Expire(ctx, hashKey, r.ttl).Err(); err != nil {
		return fmt.Errorf("setting event TTL: %w", err)
	}

	// Push onto the recency index and trim it
	if err := r.client.LPush(ctx, recentKey, data).Err(); err != nil {
		return fmt.Errorf("pushing recent record: %w", err)
	}
	if err := r.client.LTrim(ctx, recentKey, 0, keep-1).Err(); err != nil {
		return fmt.Errorf("trimming recent records: %w", err)
	}

	return nil
}

// Recent returns up to limit records, most recently processed first
func (r *Repository) Recent(ctx context.Context, limit int) ([]event.Record, error) {
	if limit <= 0 {
		limit = keep
	}

	raw, err := r.client.LRange(ctx, recentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading recent records: %w", err)
	}

	records := make([]event.Record, 0, len(raw))
	for _, item := range raw {
		var rec event.Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			// Skip corrupt entries rather than failing the whole read
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

// Get retrieves the archived detail for one event id
func (r *Repository) Get(ctx context.Context, id string) (event.Record, error) {
	hashKey := fmt.Sprintf("%s:%s", hashPrefix, id)

	data, err := r.client.HGetAll(ctx, hashKey).Result()
	if err != nil {
		return event.Record{}, fmt.Errorf("getting event: %w", err)
	}
	if len(data) == 0 {
		return event.Record{}, fmt.Errorf("event not found: %s", id)
	}

	return recordFromHash(data), nil
}

/* recordFromHash rebuilds a Record from its hash fields
 * Corrupt numeric fields are dropped, never partially decoded, so the
 * record stays usable even when one field was mangled
 */
func recordFromHash(data map[string]string) event.Record {
	rec := event.Record{
		EventID:   data["event_id"],
		EventType: data["event_type"],
	}
	if ts, err := parseUnix(data["happened_at"]); err == nil {
		rec.HappenedAt = ts
	}
	if ts, err := parseUnix(data["processed_at"]); err == nil {
		rec.ProcessedAt = ts
	}
	if n, err := strconv.Atoi(data["handlers_matched"]); err == nil {
		rec.HandlersMatched = n
	}
	if n, err := strconv.Atoi(data["handlers_failed"]); err == nil {
		rec.HandlersFailed = n
	}
	return rec
}

// Close closes the Redis connection
func (r *Repository) Close(_ context.Context) error {
	return r.client.Close()
}

func parseUnix(s string) (time.Time, error) {
	unix, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(unix, 0).UTC(), nil
}
