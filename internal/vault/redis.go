package vault

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"contentgate/api/internal/models"
)

const defaultGrace = time.Hour

// compareAndDelete deletes KEYS[1] when the hash part of its value equals ARGV[1].
var compareAndDelete = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
	return 0
end
local sep = string.find(v, '|', 1, true)
if not sep then
	return 0
end
if string.sub(v, 1, sep - 1) == ARGV[1] then
	redis.call('DEL', KEYS[1])
	return 1
end
return 0
`)

// RedisStore keeps each credential under <prefix>:<kind>:<account> as "<hex hash>|<expiry ns>".
// Keys outlive the credential by a grace period so a late submission is still reported as
// expired rather than missing.
type RedisStore struct {
	client *redis.Client
	prefix string
	grace  time.Duration
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "cred"
	}
	return &RedisStore{client: client, prefix: prefix, grace: defaultGrace, now: time.Now}
}

// useClock makes key lifetimes follow the clock that stamps ExpiresAt.
func (s *RedisStore) useClock(now func() time.Time) {
	s.now = now
}

func (s *RedisStore) key(accountID string, kind models.CredentialKind) string {
	return s.prefix + ":" + string(kind) + ":" + accountID
}

func (s *RedisStore) Put(ctx context.Context, cred models.Credential) error {
	ttl := cred.ExpiresAt.Sub(s.now()) + s.grace
	if ttl <= 0 {
		ttl = s.grace
	}

	value := hex.EncodeToString(cred.Hash) + "|" + strconv.FormatInt(cred.ExpiresAt.UnixNano(), 10)
	if err := s.client.Set(ctx, s.key(cred.AccountID, cred.Kind), value, ttl).Err(); err != nil {
		return fmt.Errorf("store %s: %w", cred.Kind, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, accountID string, kind models.CredentialKind) (models.Credential, bool, error) {
	value, err := s.client.Get(ctx, s.key(accountID, kind)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Credential{}, false, nil
		}
		return models.Credential{}, false, fmt.Errorf("load %s: %w", kind, err)
	}

	hash, expiresAt, err := decodeValue(value)
	if err != nil {
		return models.Credential{}, false, fmt.Errorf("decode %s: %w", kind, err)
	}
	return models.Credential{AccountID: accountID, Kind: kind, Hash: hash, ExpiresAt: expiresAt}, true, nil
}

func (s *RedisStore) CompareAndDelete(ctx context.Context, accountID string, kind models.CredentialKind, hash []byte) (bool, error) {
	deleted, err := compareAndDelete.Run(ctx, s.client, []string{s.key(accountID, kind)}, hex.EncodeToString(hash)).Int()
	if err != nil {
		return false, fmt.Errorf("consume %s: %w", kind, err)
	}
	return deleted == 1, nil
}

func (s *RedisStore) Delete(ctx context.Context, accountID string, kind models.CredentialKind) error {
	return s.client.Del(ctx, s.key(accountID, kind)).Err()
}

// PurgeExpired drops keys whose credential has expired but whose grace TTL has not run out.
func (s *RedisStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	var (
		purged int64
		cursor uint64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+":*", 100).Result()
		if err != nil {
			return purged, fmt.Errorf("scan credentials: %w", err)
		}
		for _, key := range keys {
			value, err := s.client.Get(ctx, key).Result()
			if err != nil {
				continue
			}
			hash, expiresAt, err := decodeValue(value)
			if err != nil || !now.After(expiresAt) {
				continue
			}
			ok, err := compareAndDelete.Run(ctx, s.client, []string{key}, hex.EncodeToString(hash)).Int()
			if err != nil {
				return purged, fmt.Errorf("purge %s: %w", key, err)
			}
			purged += int64(ok)
		}
		cursor = next
		if cursor == 0 {
			return purged, nil
		}
	}
}

func decodeValue(value string) ([]byte, time.Time, error) {
	hashPart, expiryPart, ok := strings.Cut(value, "|")
	if !ok {
		return nil, time.Time{}, fmt.Errorf("malformed credential value")
	}
	hash, err := hex.DecodeString(hashPart)
	if err != nil {
		return nil, time.Time{}, err
	}
	nanos, err := strconv.ParseInt(expiryPart, 10, 64)
	if err != nil {
		return nil, time.Time{}, err
	}
	return hash, time.Unix(0, nanos), nil
}
