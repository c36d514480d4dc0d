package adminauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newChallengeStore(t *testing.T) (*mfaChallengeStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return newMFAChallengeStore(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func TestChallengeRoundTrip(t *testing.T) {
	store, _ := newChallengeStore(t)
	ctx := context.Background()

	record := &mfaChallenge{
		TenantID:  "t-1",
		ExpiresAt: time.Now().Add(5 * time.Minute).Unix(),
	}
	if err := store.Save(ctx, "p-1", record, 5*time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Get(ctx, "p-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TenantID != "t-1" || got.Attempts != 0 || got.ExpiresAt != record.ExpiresAt {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	if _, err := store.Get(ctx, "p-other"); !errors.Is(err, errChallengeNotFound) {
		t.Fatalf("missing key: want errChallengeNotFound, got %v", err)
	}
}

func TestChallengeExpiryIsEnforcedByPayload(t *testing.T) {
	store, _ := newChallengeStore(t)
	ctx := context.Background()

	// Redis TTL still pending, but the embedded deadline has passed.
	record := &mfaChallenge{
		TenantID:  "t-1",
		ExpiresAt: time.Now().Add(-time.Second).Unix(),
	}
	if err := store.Save(ctx, "p-1", record, time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := store.Get(ctx, "p-1"); !errors.Is(err, errChallengeExpired) {
		t.Fatalf("want errChallengeExpired, got %v", err)
	}
	// The expired key was reaped.
	if _, err := store.Get(ctx, "p-1"); !errors.Is(err, errChallengeNotFound) {
		t.Fatalf("want errChallengeNotFound after reap, got %v", err)
	}
}

func TestChallengeDeleteReportsWinner(t *testing.T) {
	store, _ := newChallengeStore(t)
	ctx := context.Background()

	record := &mfaChallenge{ExpiresAt: time.Now().Add(time.Minute).Unix()}
	if err := store.Save(ctx, "p-1", record, time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}

	deleted, err := store.Delete(ctx, "p-1")
	if err != nil || !deleted {
		t.Fatalf("first delete: deleted=%v err=%v", deleted, err)
	}
	deleted, err = store.Delete(ctx, "p-1")
	if err != nil || deleted {
		t.Fatalf("second delete must lose: deleted=%v err=%v", deleted, err)
	}
}

func TestRecordFailureCapBurnsChallenge(t *testing.T) {
	store, _ := newChallengeStore(t)
	ctx := context.Background()

	record := &mfaChallenge{ExpiresAt: time.Now().Add(time.Minute).Unix()}
	if err := store.Save(ctx, "p-1", record, time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}

	for i := 1; i <= 2; i++ {
		exceeded, err := store.RecordFailure(ctx, "p-1", 3)
		if err != nil {
			t.Fatalf("failure %d: %v", i, err)
		}
		if exceeded {
			t.Fatalf("failure %d should not exceed the cap", i)
		}
	}

	got, err := store.Get(ctx, "p-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", got.Attempts)
	}

	exceeded, err := store.RecordFailure(ctx, "p-1", 3)
	if err != nil {
		t.Fatalf("final failure: %v", err)
	}
	if !exceeded {
		t.Fatal("third failure should hit the cap")
	}
	if _, err := store.Get(ctx, "p-1"); !errors.Is(err, errChallengeNotFound) {
		t.Fatalf("burned challenge should be gone, got %v", err)
	}
}

func TestRecordFailureMissingChallenge(t *testing.T) {
	store, _ := newChallengeStore(t)

	if _, err := store.RecordFailure(context.Background(), "p-ghost", 3); !errors.Is(err, errChallengeNotFound) {
		t.Fatalf("want errChallengeNotFound, got %v", err)
	}
}

func TestChallengeEncodingRejectsUnknownVersion(t *testing.T) {
	record := &mfaChallenge{TenantID: "t-1", ExpiresAt: 12345, Attempts: 2}
	data, err := encodeMFAChallenge(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := decodeMFAChallenge(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TenantID != "t-1" || got.ExpiresAt != 12345 || got.Attempts != 2 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	data[0] = 99
	if _, err := decodeMFAChallenge(data); err == nil {
		t.Fatal("unknown version must be rejected")
	}
}
