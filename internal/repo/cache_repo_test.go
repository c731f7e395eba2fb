package repo

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func TestCacheEntry_PutGetFreshness(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	written := time.Date(2015, 12, 8, 12, 0, 0, 0, time.UTC)

	if err := PutCacheEntry(ctx, db, "activity", "abc", []byte(`{"a":1}`), written); err != nil {
		t.Fatalf("PutCacheEntry: %v", err)
	}

	rec, err := GetCacheEntry(ctx, db, "activity", "abc", written.Add(-time.Minute))
	if err != nil {
		t.Fatalf("GetCacheEntry fresh: %v", err)
	}
	if !bytes.Equal(rec.Payload, []byte(`{"a":1}`)) {
		t.Fatalf("payload = %s", rec.Payload)
	}

	if _, err := GetCacheEntry(ctx, db, "activity", "abc", written.Add(time.Minute)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("stale entry should be ErrNotFound, got %v", err)
	}
	if _, err := GetCacheEntry(ctx, db, "other", "abc", written.Add(-time.Minute)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other namespace should be ErrNotFound, got %v", err)
	}
}

func TestCacheEntry_PutReplaces(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	t0 := time.Date(2015, 12, 8, 12, 0, 0, 0, time.UTC)

	if err := PutCacheEntry(ctx, db, "activity", "k", []byte(`"old"`), t0); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := PutCacheEntry(ctx, db, "activity", "k", []byte(`"new"`), t0.Add(time.Hour)); err != nil {
		t.Fatalf("second put: %v", err)
	}
	rec, err := GetCacheEntry(ctx, db, "activity", "k", t0.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(rec.Payload) != `"new"` {
		t.Fatalf("payload = %s; want \"new\"", rec.Payload)
	}
}
