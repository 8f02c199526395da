package usagelog

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(StoreConfig{Path: filepath.Join(t.TempDir(), "usage.db")})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_InsertAndQuery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	events := []Event{
		{Timestamp: base, SubjectHash: "aabbccdd", Class: "search", Tier: "free", Status: "allowed"},
		{Timestamp: base.Add(time.Second), SubjectHash: "aabbccdd", Class: "search", Tier: "free", Status: "denied", Reason: "minute_limit"},
		{Timestamp: base.Add(2 * time.Second), SubjectHash: "11223344", Class: "ai", Tier: "pro", Status: "allowed"},
	}
	for _, e := range events {
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	got, err := store.RecentBySubject(ctx, "aabbccdd", 10)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	// Newest first.
	if got[0].Status != "denied" || got[0].Reason != "minute_limit" {
		t.Errorf("unexpected first event: %+v", got[0])
	}
	if !got[0].Timestamp.Equal(base.Add(time.Second)) {
		t.Errorf("timestamp not preserved: %v", got[0].Timestamp)
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 events total, got %d", n)
	}
}

func TestStore_WALInEffect(t *testing.T) {
	store := newTestStore(t)

	var mode string
	if err := store.db.QueryRowContext(context.Background(), "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("pragma query failed: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want %q", mode, "wal")
	}

	var timeout int
	if err := store.db.QueryRowContext(context.Background(), "PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("pragma query failed: %v", err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}
}

func TestStore_PurgeBefore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		e := Event{
			Timestamp:   base.AddDate(0, 0, i),
			SubjectHash: "aabbccdd",
			Class:       "public",
			Tier:        "free",
			Status:      "allowed",
		}
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	removed, err := store.PurgeBefore(ctx, base.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("expected 3 removed, got %d", removed)
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 remaining, got %d", n)
	}
}

func TestRecorder_WritesAsync(t *testing.T) {
	store := newTestStore(t)

	rec, err := NewRecorder(store, RecorderConfig{BufferSize: 16})
	if err != nil {
		t.Fatalf("failed to start recorder: %v", err)
	}

	for i := 0; i < 10; i++ {
		rec.Record(Event{SubjectHash: "aabbccdd", Class: "search", Tier: "free", Status: "allowed"})
	}
	rec.Close()

	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 10 {
		t.Errorf("expected 10 events after close, got %d", n)
	}
	if rec.Dropped() != 0 {
		t.Errorf("expected no drops, got %d", rec.Dropped())
	}
}

func TestRecorder_DefaultsTimestamp(t *testing.T) {
	store := newTestStore(t)

	rec, err := NewRecorder(store, RecorderConfig{})
	if err != nil {
		t.Fatalf("failed to start recorder: %v", err)
	}
	before := time.Now().UTC().Add(-time.Second)
	rec.Record(Event{SubjectHash: "aabbccdd", Class: "ai", Tier: "pro", Status: "denied", Reason: "daily_limit"})
	rec.Close()

	got, err := store.RecentBySubject(context.Background(), "aabbccdd", 1)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Timestamp.Before(before) {
		t.Errorf("timestamp not defaulted: %v", got[0].Timestamp)
	}
}

func TestRecorder_CloseIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	rec, err := NewRecorder(store, RecorderConfig{BufferSize: 1})
	if err != nil {
		t.Fatalf("failed to start recorder: %v", err)
	}
	rec.Close()
	rec.Close()
}

func TestNewRecorder_BadSchedule(t *testing.T) {
	store := newTestStore(t)

	if _, err := NewRecorder(store, RecorderConfig{PurgeSchedule: "not a cron"}); err == nil {
		t.Fatal("expected error for bad cron expression")
	}
}

func TestNewStore_EmptyPath(t *testing.T) {
	if _, err := NewStore(StoreConfig{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}
