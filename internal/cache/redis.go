package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// roomEventsPrefix is the Redis key prefix for the recent events of a room.
	// Format: room:<room>:events
	roomEventsPrefix = "room:%s:events"

	// roomUsersPrefix is the Redis key prefix for the set of users present in a room.
	// Format: room:<room>:users
	roomUsersPrefix = "room:%s:users"

	// roomMessageCountPrefix is the Redis key prefix for the number of messages relayed in a room.
	// Format: room:<room>:message_count
	roomMessageCountPrefix = "room:%s:message_count"

	// globalUsersSetKey holds every user with at least one live connection.
	globalUsersSetKey = "global:users"

	// globalConnectionsKey is a hash of user id to live connection count, so
	// closing one of several tabs does not mark a user offline.
	globalConnectionsKey = "global:connections"

	defaultRoomUserSetTTL  = 2 * time.Hour
	defaultRecentEventsTTL = 24 * time.Hour
	defaultRecentLimit     = 50
)

// RoomStats summarizes the realtime activity of a room.
type RoomStats struct {
	Room         string `json:"room"`
	ActiveUsers  int64  `json:"activeUsers"`
	MessageCount int64  `json:"messageCount"`
}

// RedisClient wraps the go-redis client with presence, room statistics and
// recent-event operations used by the realtime hub.
type RedisClient struct {
	client      *redis.Client
	recentLimit int
}

// NewRedisClient wraps an already connected client. recentLimit bounds the
// per-room event history; zero means the default of 50.
func NewRedisClient(client *redis.Client, recentLimit int) *RedisClient {
	if recentLimit <= 0 {
		recentLimit = defaultRecentLimit
	}
	return &RedisClient{client: client, recentLimit: recentLimit}
}

// Ping checks connectivity.
func (rc *RedisClient) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// --- Event Operations ---

// AddRecentEvent pushes an encoded event onto the room's history, keeping
// only the newest recentLimit entries.
func (rc *RedisClient) AddRecentEvent(ctx context.Context, room string, eventJSON string) error {
	if room == "" {
		return fmt.Errorf("room cannot be empty")
	}
	if eventJSON == "" {
		return fmt.Errorf("eventJSON cannot be empty")
	}
	listKey := fmt.Sprintf(roomEventsPrefix, room)

	pipe := rc.client.TxPipeline()
	pipe.LPush(ctx, listKey, eventJSON)
	pipe.LTrim(ctx, listKey, 0, int64(rc.recentLimit-1))
	pipe.Expire(ctx, listKey, defaultRecentEventsTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add recent event to room '%s': %w", room, err)
	}
	return nil
}

// RecentEvents returns up to count events for room, newest first.
func (rc *RedisClient) RecentEvents(ctx context.Context, room string, count int) ([]string, error) {
	if room == "" {
		return nil, fmt.Errorf("room cannot be empty")
	}
	if count <= 0 || count > rc.recentLimit {
		count = rc.recentLimit
	}
	listKey := fmt.Sprintf(roomEventsPrefix, room)

	events, err := rc.client.LRange(ctx, listKey, 0, int64(count-1)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get recent events for room '%s': %w", room, err)
	}
	if events == nil {
		events = []string{}
	}
	return events, nil
}

// --- Presence Operations ---

// JoinRoom adds userID to the room's presence set and refreshes its TTL.
func (rc *RedisClient) JoinRoom(ctx context.Context, room, userID string) error {
	if room == "" || userID == "" {
		return fmt.Errorf("room and userID cannot be empty")
	}
	setKey := fmt.Sprintf(roomUsersPrefix, room)

	pipe := rc.client.TxPipeline()
	pipe.SAdd(ctx, setKey, userID)
	pipe.Expire(ctx, setKey, defaultRoomUserSetTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add user '%s' to room '%s': %w", userID, room, err)
	}
	return nil
}

// LeaveRoom removes userID from the room's presence set.
func (rc *RedisClient) LeaveRoom(ctx context.Context, room, userID string) error {
	if room == "" || userID == "" {
		return fmt.Errorf("room and userID cannot be empty")
	}
	if err := rc.client.SRem(ctx, fmt.Sprintf(roomUsersPrefix, room), userID).Err(); err != nil {
		return fmt.Errorf("failed to remove user '%s' from room '%s': %w", userID, room, err)
	}
	return nil
}

// RoomMembers lists the users present in room.
func (rc *RedisClient) RoomMembers(ctx context.Context, room string) ([]string, error) {
	members, err := rc.client.SMembers(ctx, fmt.Sprintf(roomUsersPrefix, room)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get members of room '%s': %w", room, err)
	}
	return members, nil
}

// MarkOnline records a new live connection for userID.
func (rc *RedisClient) MarkOnline(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("userID cannot be empty")
	}
	pipe := rc.client.TxPipeline()
	pipe.HIncrBy(ctx, globalConnectionsKey, userID, 1)
	pipe.SAdd(ctx, globalUsersSetKey, userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mark user '%s' online: %w", userID, err)
	}
	return nil
}

// MarkOffline drops one live connection for userID and removes the user
// from the global set once none remain.
func (rc *RedisClient) MarkOffline(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("userID cannot be empty")
	}
	remaining, err := rc.client.HIncrBy(ctx, globalConnectionsKey, userID, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to mark user '%s' offline: %w", userID, err)
	}
	if remaining > 0 {
		return nil
	}
	pipe := rc.client.TxPipeline()
	pipe.HDel(ctx, globalConnectionsKey, userID)
	pipe.SRem(ctx, globalUsersSetKey, userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear presence for user '%s': %w", userID, err)
	}
	return nil
}

// IsOnline reports whether userID has at least one live connection.
func (rc *RedisClient) IsOnline(ctx context.Context, userID string) (bool, error) {
	online, err := rc.client.SIsMember(ctx, globalUsersSetKey, userID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check presence of user '%s': %w", userID, err)
	}
	return online, nil
}

// OnlineCount returns the number of users with a live connection.
func (rc *RedisClient) OnlineCount(ctx context.Context) (int64, error) {
	count, err := rc.client.SCard(ctx, globalUsersSetKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get online user count: %w", err)
	}
	return count, nil
}

// --- Counter Operations ---

// IncrementMessageCounter increments the message count of room and returns
// the new value.
func (rc *RedisClient) IncrementMessageCounter(ctx context.Context, room string) (int64, error) {
	if room == "" {
		return 0, fmt.Errorf("room cannot be empty")
	}
	n, err := rc.client.Incr(ctx, fmt.Sprintf(roomMessageCountPrefix, room)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment message counter for room '%s': %w", room, err)
	}
	return n, nil
}

// RoomMessageCount returns 0 for rooms that never saw a message.
func (rc *RedisClient) RoomMessageCount(ctx context.Context, room string) (int64, error) {
	val, err := rc.client.Get(ctx, fmt.Sprintf(roomMessageCountPrefix, room)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get message count for room '%s': %w", room, err)
	}
	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt message count '%s' for room '%s': %w", val, room, err)
	}
	return count, nil
}

// --- Stats Operation ---

func (rc *RedisClient) RoomStats(ctx context.Context, room string) (*RoomStats, error) {
	if room == "" {
		return nil, fmt.Errorf("room cannot be empty")
	}
	active, err := rc.client.SCard(ctx, fmt.Sprintf(roomUsersPrefix, room)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get active users for room '%s': %w", room, err)
	}
	count, err := rc.RoomMessageCount(ctx, room)
	if err != nil {
		return nil, err
	}
	return &RoomStats{Room: room, ActiveUsers: active, MessageCount: count}, nil
}

// Close closes the underlying Redis connection.
func (rc *RedisClient) Close() error {
	if rc.client != nil {
		return rc.client.Close()
	}
	return nil
}
