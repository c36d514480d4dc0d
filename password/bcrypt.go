package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the bcrypt cost used when Config.Cost is zero.
	DefaultCost = 12

	minCost      = 10
	minPassBytes = 10
)

// Config holds the tunable hashing parameters.
type Config struct {
	Cost int
}

// Hasher hashes and verifies passwords. A zero-configured Hasher is not
// usable; construct it with [NewHasher].
type Hasher struct {
	config Config
}

// NewHasher validates cfg and returns a ready Hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	if cfg.Cost == 0 {
		cfg.Cost = DefaultCost
	}
	if cfg.Cost < minCost {
		return nil, errors.New("bcrypt cost below minimum of 10")
	}
	if cfg.Cost > bcrypt.MaxCost {
		return nil, errors.New("bcrypt cost above library maximum")
	}
	return &Hasher{config: cfg}, nil
}

// Hash returns the bcrypt hash of password at the configured cost.
//
// Password bytes are used exactly as provided (no Unicode normalization).
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) < minPassBytes {
		return "", errors.New("password must be at least 10 bytes")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.config.Cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether password matches the stored hash. The comparison is
// constant time with respect to the password content; a malformed stored hash
// and a mismatched password are indistinguishable to the caller (both return
// false, nil) so login error handling stays uniform.
func (h *Hasher) Verify(password, storedHash string) (bool, error) {
	if storedHash == "" {
		// Burn a comparison anyway so a missing hash costs the same as a
		// mismatch.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password))
	if err != nil {
		return false, nil
	}
	return true, nil
}

// NeedsRehash reports whether the stored hash was produced with a cost below
// the configured one. Unparsable hashes report true so they get replaced on
// the next successful verification.
func (h *Hasher) NeedsRehash(storedHash string) bool {
	cost, err := bcrypt.Cost([]byte(storedHash))
	if err != nil {
		return true
	}
	return cost < h.config.Cost
}

// dummyHash is a valid bcrypt hash of an unguessable placeholder, used to
// equalize timing when no stored hash exists for the principal.
var dummyHash = []byte("$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW")
