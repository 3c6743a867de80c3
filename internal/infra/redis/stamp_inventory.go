package redis

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"nonoji-quiz-service/internal/app"
)

// StampInventory caches a user's allowed stamp keys in Redis (set per
// user) and falls back to a backing inventory on cache miss. Keys are
// stored as: SADD quiz:stamps:{userID} {key}...
type StampInventory struct {
	client  *redis.Client
	backing app.StampInventory
	ttl     time.Duration
	sf      singleflight.Group
	rnd     *rand.Rand
}

func NewStampInventory(client *redis.Client, backing app.StampInventory, ttl time.Duration) *StampInventory {
	return &StampInventory{
		client:  client,
		backing: backing,
		ttl:     ttl,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *StampInventory) AllowedKeys(ctx context.Context, userID int64) (map[string]struct{}, error) {
	key := s.key(userID)

	members, err := s.client.SMembers(ctx, key).Result()
	if err == nil && len(members) > 0 {
		return toSet(members), nil
	}

	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		members, err := s.client.SMembers(ctx, key).Result()
		if err == nil && len(members) > 0 {
			return toSet(members), nil
		}

		allowed, err := s.backing.AllowedKeys(ctx, userID)
		if err != nil {
			return nil, err
		}

		if len(allowed) > 0 {
			add := make([]interface{}, 0, len(allowed))
			for k := range allowed {
				add = append(add, k)
			}
			pipe := s.client.Pipeline()
			pipe.SAdd(ctx, key, add...)
			if ttl := s.ttlWithJitter(); ttl > 0 {
				pipe.Expire(ctx, key, ttl)
			}
			_, _ = pipe.Exec(ctx)
		}
		return allowed, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]struct{}), nil
}

// Invalidate drops the cached set, e.g. after a character unlock.
func (s *StampInventory) Invalidate(ctx context.Context, userID int64) {
	_ = s.client.Del(ctx, s.key(userID)).Err()
}

func (s *StampInventory) key(userID int64) string {
	return "quiz:stamps:" + strconv.FormatInt(userID, 10)
}

func (s *StampInventory) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}

func toSet(members []string) map[string]struct{} {
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	return set
}
