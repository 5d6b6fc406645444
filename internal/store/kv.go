package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// Keys used by the practice engine.
const (
	KeyProgress   = "practice.progress"
	KeySession    = "practice.session"
	KeyStats      = "practice.stats"
	KeyUnlocks    = "practice.unlocks"
	KeyCelebrated = "practice.celebrated"
	KeyPet        = "pet.state"
	KeyAuthUser   = "auth.user"
)

// ErrLegacyValue reports a stored value that no longer decodes into the
// requested shape. Callers fall back to defaults.
var ErrLegacyValue = errors.New("stored value has an unexpected shape")

// KV is a string-keyed, string-valued durable store.
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists all stored keys in lexical order.
	Keys(ctx context.Context) ([]string, error)

	// DeleteAll removes every key.
	DeleteAll(ctx context.Context) error
}

// sqliteKV implements KV on the kv table.
type sqliteKV struct {
	db *sql.DB
}

func (s *sqliteKV) Get(ctx context.Context, key string) (string, bool, error) {
	query, args := builder().Select("value").
		From(entsql.Table(kvTable)).
		Where(entsql.EQ("key", key)).
		Query()

	var value string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *sqliteKV) Set(ctx context.Context, key, value string) error {
	query, args := builder().Insert(kvTable).
		Columns("key", "value", "updated_at").
		Values(key, value, time.Now().UnixNano()).
		OnConflict(entsql.ConflictColumns("key"), entsql.ResolveWithNewValues()).
		Query()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (s *sqliteKV) Delete(ctx context.Context, key string) error {
	query, args := builder().Delete(kvTable).
		Where(entsql.EQ("key", key)).
		Query()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (s *sqliteKV) Keys(ctx context.Context) ([]string, error) {
	query, args := builder().Select("key").
		From(entsql.Table(kvTable)).
		OrderBy("key").
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *sqliteKV) DeleteAll(ctx context.Context) error {
	query, args := builder().Delete(kvTable).Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete all: %w", err)
	}
	return nil
}

// GetJSON decodes the value stored under key into v. It reports whether the
// key existed. A value that fails to decode yields ErrLegacyValue.
func GetJSON(ctx context.Context, kv KV, key string, v any) (bool, error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, fmt.Errorf("%s: %w: %v", key, ErrLegacyValue, err)
	}
	return true, nil
}

// SetJSON encodes v and writes it under key.
func SetJSON(ctx context.Context, kv KV, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return kv.Set(ctx, key, string(b))
}
