package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/i474232898/airquality-weather/internal/weather"
)

const snapshotKeyPrefix = "aqw:snapshot:"

// OpenRedis opens a client for addr, or returns nil when addr is empty.
func OpenRedis(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// RedisMirror publishes each fetched snapshot to Redis, msgpack encoded, so
// that other processes can read the latest weather without going through the
// address space.
type RedisMirror struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisMirror creates a mirror whose keys expire after ttl.
func NewRedisMirror(client *redis.Client, ttl time.Duration) *RedisMirror {
	return &RedisMirror{client: client, ttl: ttl}
}

// SnapshotKey returns the Redis key for a location's snapshot.
func SnapshotKey(code, name string) string {
	return snapshotKeyPrefix + code + ":" + name
}

// mirroredSnapshot is the value stored under SnapshotKey.
type mirroredSnapshot struct {
	Country   string           `msgpack:"country"`
	Location  string           `msgpack:"location"`
	City      string           `msgpack:"city"`
	FetchedAt time.Time        `msgpack:"fetchedAt"`
	Snapshot  weather.Snapshot `msgpack:"snapshot"`
}

// Publish writes the location's current snapshot.
func (m *RedisMirror) Publish(ctx context.Context, loc *weather.Location) error {
	payload, err := msgpack.Marshal(mirroredSnapshot{
		Country:   loc.CountryCode,
		Location:  loc.Name,
		City:      loc.City,
		FetchedAt: loc.LastFetch.UTC(),
		Snapshot:  loc.Snapshot,
	})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := m.client.Set(ctx, SnapshotKey(loc.CountryCode, loc.Name), payload, m.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (m *RedisMirror) Close() error {
	return m.client.Close()
}

// NopPublisher discards snapshots. It is used when no mirror is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *weather.Location) error { return nil }

