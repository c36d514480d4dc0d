package adminauth

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pending-login MFA challenges are the only server-side auth state the core
// keeps. A challenge is created when the password check succeeds on an
// MFA-enabled account and consumed by the completion call, the attempt cap,
// or its TTL.

const (
	mfaChallengeKeyPrefix = "mfc"
	mfaChallengeVersion1  = 1
)

var (
	errChallengeNotFound = errors.New("mfa challenge not found")
	errChallengeExpired  = errors.New("mfa challenge expired")
	errChallengeBackend  = errors.New("mfa challenge backend unavailable")
)

type mfaChallenge struct {
	TenantID  string
	ExpiresAt int64
	Attempts  uint16
}

type mfaChallengeStore struct {
	redis *redis.Client
}

func newMFAChallengeStore(redisClient *redis.Client) *mfaChallengeStore {
	return &mfaChallengeStore{redis: redisClient}
}

func (s *mfaChallengeStore) key(principalID string) string {
	return mfaChallengeKeyPrefix + ":" + principalID
}

func (s *mfaChallengeStore) Save(ctx context.Context, principalID string, record *mfaChallenge, ttl time.Duration) error {
	encoded, err := encodeMFAChallenge(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(principalID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errChallengeBackend, err)
	}
	return nil
}

func (s *mfaChallengeStore) Get(ctx context.Context, principalID string) (*mfaChallenge, error) {
	data, err := s.redis.Get(ctx, s.key(principalID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", errChallengeBackend, err)
	}

	record, err := decodeMFAChallenge(data)
	if err != nil {
		return nil, err
	}
	if time.Now().Unix() > record.ExpiresAt {
		_, _ = s.redis.Del(ctx, s.key(principalID)).Result()
		return nil, errChallengeExpired
	}
	return record, nil
}

func (s *mfaChallengeStore) Delete(ctx context.Context, principalID string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(principalID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", errChallengeBackend, err)
	}
	return n > 0, nil
}

// RecordFailure increments the attempt counter under a WATCH transaction so
// concurrent failures cannot lose updates. It reports whether the cap was
// reached, in which case the challenge has been deleted.
func (s *mfaChallengeStore) RecordFailure(ctx context.Context, principalID string, maxAttempts int) (bool, error) {
	const maxRetries = 4
	key := s.key(principalID)

	for i := 0; i < maxRetries; i++ {
		var exceeded bool
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeMFAChallenge(data)
			if err != nil {
				return err
			}
			ttl := time.Until(time.Unix(record.ExpiresAt, 0))
			if ttl <= 0 {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return errChallengeExpired
			}

			record.Attempts++
			if int(record.Attempts) >= maxAttempts {
				exceeded = true
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			updated, err := encodeMFAChallenge(record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return false, errChallengeNotFound
			}
			if errors.Is(err, errChallengeExpired) {
				return false, err
			}
			return false, fmt.Errorf("%w: %v", errChallengeBackend, err)
		}
		return exceeded, nil
	}

	return false, errChallengeNotFound
}

func encodeMFAChallenge(record *mfaChallenge) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(mfaChallengeVersion1)

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.TenantID) > 65535 {
		return nil, errors.New("mfa challenge tenant id length exceeded")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.TenantID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.TenantID)

	return buf.Bytes(), nil
}

func decodeMFAChallenge(data []byte) (*mfaChallenge, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != mfaChallengeVersion1 {
		return nil, errors.New("invalid mfa challenge version")
	}

	record := &mfaChallenge{}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	var tenantLen uint16
	if err := binary.Read(reader, binary.BigEndian, &tenantLen); err != nil {
		return nil, err
	}
	tenant := make([]byte, tenantLen)
	if _, err := io.ReadFull(reader, tenant); err != nil {
		return nil, err
	}
	record.TenantID = string(tenant)

	return record, nil
}
