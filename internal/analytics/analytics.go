package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logger appends events to analytics_events. A nil Logger is valid and
// drops everything, so handlers never need to nil-check.
type Logger struct {
	db *sql.DB
}

func New(db *sql.DB) *Logger {
	return &Logger{db: db}
}

// KeyFromRequest returns the client-provided idempotency key, if any.
// Duplicate keys make the insert a no-op.
func KeyFromRequest(r *http.Request) string {
	k := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if k != "" {
		return k
	}
	return strings.TrimSpace(r.Header.Get("X-Source-Event-Key"))
}

// Log inserts one event. Failures never break the core flow; callers
// pass sanitized props only, never raw user text.
func (l *Logger) Log(ctx context.Context, userID int, eventName string, props map[string]any, sourceEventKey string) {
	if l == nil || l.db == nil || eventName == "" || userID == 0 {
		return
	}

	b, err := json.Marshal(props)
	if err != nil {
		return
	}

	if sourceEventKey == "" {
		sourceEventKey = uuid.NewString()
	}

	_, _ = l.db.ExecContext(ctx, `
		INSERT INTO analytics_events (id, event_name, event_time, user_id, properties, source_event_key)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6)
		ON CONFLICT (source_event_key) DO NOTHING
	`, uuid.NewString(), eventName, time.Now().UTC(), userID, string(b), sourceEventKey)
}
