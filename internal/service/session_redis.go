package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-booking-engine/internal/utils"
)

// saveScript writes ARGV[2] only if the stored session's version equals
// ARGV[1].  ARGV[3] is the ttl in milliseconds, 0 for none.
var saveScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
local v = 0
if cur then
  v = tonumber(cjson.decode(cur)["version"]) or 0
end
if v ~= tonumber(ARGV[1]) then
  return 0
end
if tonumber(ARGV[3]) > 0 then
  redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
else
  redis.call("SET", KEYS[1], ARGV[2])
end
return 1
`)

// unlockScript deletes the lock only while it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSessionStore keeps sessions in Redis so any instance behind the
// load balancer can continue a checkout.
type RedisSessionStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisSessionStore stores sessions under prefix:<id> with the given
// ttl, refreshed on every save.
func NewRedisSessionStore(rdb *redis.Client, prefix string, ttl time.Duration) *RedisSessionStore {
	if prefix == "" {
		prefix = "booking:session"
	}
	return &RedisSessionStore{rdb: rdb, ttl: ttl, prefix: prefix}
}

func (r *RedisSessionStore) key(id string) string { return r.prefix + ":" + id }

func (r *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	b, err := r.rdb.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisSessionStore) Save(ctx context.Context, s *Session) error {
	next := *s
	next.Version = s.Version + 1
	b, err := json.Marshal(next)
	if err != nil {
		return err
	}
	ok, err := saveScript.Run(ctx, r.rdb, []string{r.key(s.ID)}, s.Version, b, r.ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return ErrSessionStale
	}
	s.Version = next.Version
	return nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, r.key(id)).Err()
}

func (r *RedisSessionStore) Lock(ctx context.Context, id string, ttl time.Duration) (func(), error) {
	token, err := utils.RandomToken(16)
	if err != nil {
		return nil, err
	}
	key := r.key(id) + ":lock"
	ok, err := r.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionLocked
	}
	return func() {
		// The caller's ctx may already be done.
		_ = unlockScript.Run(context.Background(), r.rdb, []string{key}, token).Err()
	}, nil
}
