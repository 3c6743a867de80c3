package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Directory marks live rooms in Redis so sibling instances (and ops
// tooling) can see which codes are in use. Room state itself stays
// in-process; the marker is best effort.
type Directory struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDirectory(client *redis.Client, ttl time.Duration) *Directory {
	return &Directory{client: client, ttl: ttl}
}

func (d *Directory) MarkLive(code string) {
	_ = d.client.Set(context.Background(), d.key(code), "1", d.ttl).Err()
}

func (d *Directory) Forget(code string) {
	_ = d.client.Del(context.Background(), d.key(code)).Err()
}

func (d *Directory) key(code string) string {
	return "quiz:room:" + code
}
