package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"social-service/internal/database"

	"github.com/redis/go-redis/v9"
)

const onlineUsersKey = "online_users"

// RedisService mirrors gateway presence into Redis for the rest of the
// platform and backs handshake rate limiting.
type RedisService struct {
	client *database.RedisClient
}

func NewRedisService(client *database.RedisClient) *RedisService {
	return &RedisService{
		client: client,
	}
}

func userStatusKey(userID uint) string {
	return fmt.Sprintf("user:%d:status", userID)
}

// =============================================================================
// User Status Management
// =============================================================================

func (r *RedisService) SetUserOnline(ctx context.Context, userID uint) error {
	pipe := r.client.GetClient().Pipeline()

	pipe.SAdd(ctx, onlineUsersKey, userID)
	pipe.HSet(ctx, userStatusKey(userID), map[string]interface{}{
		"status":     "online",
		"last_seen":  time.Now().Unix(),
		"updated_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, userStatusKey(userID), 24*time.Hour)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set user %d online: %w", userID, err)
	}
	return nil
}

func (r *RedisService) SetUserOffline(ctx context.Context, userID uint) error {
	pipe := r.client.GetClient().Pipeline()

	pipe.SRem(ctx, onlineUsersKey, userID)
	pipe.HSet(ctx, userStatusKey(userID), map[string]interface{}{
		"status":     "offline",
		"last_seen":  time.Now().Unix(),
		"updated_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, userStatusKey(userID), 24*time.Hour)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set user %d offline: %w", userID, err)
	}
	return nil
}

func (r *RedisService) IsUserOnline(ctx context.Context, userID uint) (bool, error) {
	return r.client.GetClient().SIsMember(ctx, onlineUsersKey, userID).Result()
}

// ResetOnlineUsers clears the mirror; the gateway is the only writer and
// starts with nobody online.
func (r *RedisService) ResetOnlineUsers(ctx context.Context) error {
	return r.client.GetClient().Del(ctx, onlineUsersKey).Err()
}

// UserOnline and UserOffline adapt the mirror to the hub's presence observer.
func (r *RedisService) UserOnline(ctx context.Context, userID uint) {
	if err := r.SetUserOnline(ctx, userID); err != nil {
		slog.Error("Failed to mirror online status", "userID", userID, "error", err)
	}
}

func (r *RedisService) UserOffline(ctx context.Context, userID uint) {
	if err := r.SetUserOffline(ctx, userID); err != nil {
		slog.Error("Failed to mirror offline status", "userID", userID, "error", err)
	}
}

// =============================================================================
// Rate Limiting
// =============================================================================

// CheckRateLimit records a hit for key and reports whether it stays under limit
// within the sliding window.
func (r *RedisService) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window).UnixMilli()

	pipe := r.client.GetClient().Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	count := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: now.UnixNano()})
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return count.Val() < int64(limit), nil
}
