package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", filepath.Base(t.Name()))
	s, err := Open(dsn)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so we skip journal_mode here.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestKV_GetMissing(t *testing.T) {
	kv := openTestStore(t).KV()

	v, ok, err := kv.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok || v != "" {
		t.Errorf("Get(missing) = (%q, %v), want (\"\", false)", v, ok)
	}
}

func TestKV_SetOverwritesAndDeletes(t *testing.T) {
	kv := openTestStore(t).KV()
	ctx := context.Background()

	if err := kv.Set(ctx, KeyPet, `{"foodLevel":10}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := kv.Set(ctx, KeyPet, `{"foodLevel":20}`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	v, ok, err := kv.Get(ctx, KeyPet)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if v != `{"foodLevel":20}` {
		t.Errorf("value = %q, want the overwritten value", v)
	}

	if err := kv.Delete(ctx, KeyPet); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, KeyPet); ok {
		t.Error("expected key to be gone after delete")
	}
	if err := kv.Delete(ctx, KeyPet); err != nil {
		t.Errorf("deleting a missing key should succeed, got %v", err)
	}
}

func TestKV_KeysAndDeleteAll(t *testing.T) {
	kv := openTestStore(t).KV()
	ctx := context.Background()

	for _, k := range []string{KeyStats, KeyPet, KeyProgress} {
		if err := kv.Set(ctx, k, "{}"); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}

	keys, err := kv.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	want := []string{KeyPet, KeyProgress, KeyStats}
	if fmt.Sprint(keys) != fmt.Sprint(want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}

	if err := kv.DeleteAll(ctx); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	keys, err = kv.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("keys after DeleteAll = %v, want none", keys)
	}
}

func TestGetJSON_LegacyValue(t *testing.T) {
	kv := openTestStore(t).KV()
	ctx := context.Background()

	if err := kv.Set(ctx, KeyStats, `"not an object"`); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out struct{ RecallAttempts int }
	found, err := GetJSON(ctx, kv, KeyStats, &out)
	if !found {
		t.Error("expected found = true for an existing key")
	}
	if !errors.Is(err, ErrLegacyValue) {
		t.Errorf("err = %v, want ErrLegacyValue", err)
	}
}

func TestSetJSON_RoundTrip(t *testing.T) {
	kv := openTestStore(t).KV()
	ctx := context.Background()

	type stats struct {
		Recall int `json:"recall_attempts"`
	}
	if err := SetJSON(ctx, kv, KeyStats, stats{Recall: 7}); err != nil {
		t.Fatalf("set json: %v", err)
	}
	var got stats
	found, err := GetJSON(ctx, kv, KeyStats, &got)
	if err != nil || !found {
		t.Fatalf("get json: found=%v err=%v", found, err)
	}
	if got.Recall != 7 {
		t.Errorf("recall = %d, want 7", got.Recall)
	}
}

func TestSessionLog_AppendAndRecent(t *testing.T) {
	log := openTestStore(t).SessionLog()
	ctx := context.Background()

	base := time.Now().Truncate(time.Second)
	actions := []string{"start", "answer", "end"}
	for i, a := range actions {
		err := log.Append(ctx, SessionEvent{
			SessionID: "s-1",
			Action:    a,
			Detail:    map[string]any{"n": i},
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("append %s: %v", a, err)
		}
	}

	events, err := log.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Action != "end" || events[1].Action != "answer" {
		t.Errorf("order = [%s %s], want [end answer]", events[0].Action, events[1].Action)
	}
	if !events[0].Timestamp.Equal(base.Add(2 * time.Second)) {
		t.Errorf("timestamp = %v, want %v", events[0].Timestamp, base.Add(2*time.Second))
	}
	if n, _ := events[0].Detail["n"].(float64); n != 2 {
		t.Errorf("detail n = %v, want 2", events[0].Detail["n"])
	}

	if err := log.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	events, _ = log.Recent(ctx, 0)
	if len(events) != 0 {
		t.Errorf("events after clear = %d, want 0", len(events))
	}
}

func TestOpen_CreatesTablesIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "examquest.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := first.KV().Set(context.Background(), KeyPet, `{"foodLevel":40}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	first.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	for _, table := range []string{kvTable, logTable} {
		var name string
		err := s.DB().QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	v, ok, err := s.KV().Get(context.Background(), KeyPet)
	if err != nil || !ok || v != `{"foodLevel":40}` {
		t.Errorf("Get after reopen = (%q, %v, %v), want stored value", v, ok, err)
	}
	if err := s.SessionLog().Append(context.Background(), SessionEvent{SessionID: "s-1", Action: "start"}); err != nil {
		t.Errorf("append after reopen: %v", err)
	}
}
