package password

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func testHasher(t *testing.T) *Hasher {
	t.Helper()
	// Min cost keeps the test suite fast; production default is 12.
	h, err := NewHasher(Config{Cost: minCost})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	return h
}

func TestHashAndVerifyRoundTrip(t *testing.T) {
	h := testHasher(t)

	hash, err := h.Hash("correct-password-123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$") {
		t.Fatalf("expected bcrypt modular-crypt format, got %q", hash)
	}

	ok, err := h.Verify("correct-password-123", hash)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Fatal("expected matching password to verify")
	}

	ok, err = h.Verify("wrong-password-123", hash)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ok {
		t.Fatal("expected mismatched password to fail")
	}
}

func TestVerifyMalformedHashBehavesLikeMismatch(t *testing.T) {
	h := testHasher(t)

	for _, stored := range []string{"", "not-a-hash", "$argon2id$v=19$m=65536,t=3,p=2$abc$def"} {
		ok, err := h.Verify("whatever-password", stored)
		if err != nil {
			t.Fatalf("Verify(%q) returned error: %v", stored, err)
		}
		if ok {
			t.Fatalf("Verify(%q) unexpectedly succeeded", stored)
		}
	}
}

func TestHashRejectsShortPassword(t *testing.T) {
	h := testHasher(t)
	if _, err := h.Hash("short"); err == nil {
		t.Fatal("expected error for password below minimum length")
	}
}

func TestNewHasherRejectsWeakCost(t *testing.T) {
	if _, err := NewHasher(Config{Cost: 4}); err == nil {
		t.Fatal("expected error for cost below minimum")
	}
}

func TestNeedsRehashOnCostIncrease(t *testing.T) {
	low, err := bcrypt.GenerateFromPassword([]byte("correct-password-123"), minCost)
	if err != nil {
		t.Fatalf("generate low-cost hash: %v", err)
	}

	h, err := NewHasher(Config{Cost: minCost + 1})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	if !h.NeedsRehash(string(low)) {
		t.Fatal("expected rehash needed for lower-cost hash")
	}

	same, err := NewHasher(Config{Cost: minCost})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	if same.NeedsRehash(string(low)) {
		t.Fatal("did not expect rehash for equal-cost hash")
	}
	if !same.NeedsRehash("garbage") {
		t.Fatal("expected rehash for unparsable hash")
	}
}
