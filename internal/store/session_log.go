package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// SessionEvent is one entry in the local session log.
type SessionEvent struct {
	ID        int64
	SessionID string
	Action    string // start, answer, end, abandon
	Detail    map[string]any
	Timestamp time.Time
}

// SessionLog is an append-only record of practice session activity kept on
// the device. It is informational; the backend owns the authoritative history.
type SessionLog interface {
	// Append records an event. Timestamp defaults to now when zero.
	Append(ctx context.Context, ev SessionEvent) error

	// Recent returns up to limit events, newest first. limit <= 0 means all.
	Recent(ctx context.Context, limit int) ([]SessionEvent, error)

	// Clear removes every event.
	Clear(ctx context.Context) error
}

type sessionLog struct {
	db *sql.DB
}

func (l *sessionLog) Append(ctx context.Context, ev SessionEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	detail := "{}"
	if len(ev.Detail) > 0 {
		b, err := json.Marshal(ev.Detail)
		if err != nil {
			return fmt.Errorf("marshal detail: %w", err)
		}
		detail = string(b)
	}

	query, args := builder().Insert(logTable).
		Columns("session_id", "action", "detail", "created_at").
		Values(ev.SessionID, ev.Action, detail, ev.Timestamp.UnixNano()).
		Query()
	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append session event: %w", err)
	}
	return nil
}

func (l *sessionLog) Recent(ctx context.Context, limit int) ([]SessionEvent, error) {
	sel := builder().Select("id", "session_id", "action", "detail", "created_at").
		From(entsql.Table(logTable)).
		OrderBy(entsql.Desc("id"))
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	query, args := sel.Query()

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query session log: %w", err)
	}
	defer rows.Close()

	var events []SessionEvent
	for rows.Next() {
		var (
			ev     SessionEvent
			detail string
			nanos  int64
		)
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Action, &detail, &nanos); err != nil {
			return nil, fmt.Errorf("scan session event: %w", err)
		}
		ev.Timestamp = time.Unix(0, nanos)
		if err := json.Unmarshal([]byte(detail), &ev.Detail); err != nil {
			ev.Detail = nil
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (l *sessionLog) Clear(ctx context.Context) error {
	query, args := builder().Delete(logTable).Query()
	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear session log: %w", err)
	}
	return nil
}
