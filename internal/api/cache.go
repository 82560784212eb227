package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/collab-playlist-system/pkg/models"
)

const (
	roomKeyPrefix  = "room:"
	queueKeyPrefix = "queue:"
)

// SnapshotCache is a read-through Redis cache for REST room snapshots.
// A nil *SnapshotCache is valid and always misses, so the REST surface
// works unchanged when Redis isn't configured.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl}
}

func (c *SnapshotCache) GetRoom(ctx context.Context, code string) (*models.Room, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, roomKeyPrefix+code).Bytes()
	if err != nil {
		return nil, false
	}
	var room models.Room
	if err := json.Unmarshal(raw, &room); err != nil {
		return nil, false
	}
	return &room, true
}

func (c *SnapshotCache) SetRoom(ctx context.Context, room *models.Room) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(room)
	if err != nil {
		return
	}
	c.client.Set(ctx, roomKeyPrefix+room.Code, raw, c.ttl)
}

func (c *SnapshotCache) GetQueue(ctx context.Context, code string) ([]models.Track, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, queueKeyPrefix+code).Bytes()
	if err != nil {
		return nil, false
	}
	var tracks []models.Track
	if err := json.Unmarshal(raw, &tracks); err != nil {
		return nil, false
	}
	return tracks, true
}

func (c *SnapshotCache) SetQueue(ctx context.Context, code string, tracks []models.Track) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(tracks)
	if err != nil {
		return
	}
	c.client.Set(ctx, queueKeyPrefix+code, raw, c.ttl)
}

// Invalidate drops both snapshots for a room.
func (c *SnapshotCache) Invalidate(ctx context.Context, code string) {
	if c == nil {
		return
	}
	c.client.Del(ctx, fmt.Sprintf("%s%s", roomKeyPrefix, code), fmt.Sprintf("%s%s", queueKeyPrefix, code))
}
