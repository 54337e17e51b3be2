package middleware

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	syncLockPrefix   = "synclock:v1:"
	inProgressMarker = "__in_progress__"
)

// syncSubject is the part of a sync request body that identifies the user.
type syncSubject struct {
	UserID  string `json:"user_id"`
	Address string `json:"address"`
	Network string `json:"network"`
}

func subjectKey(c *fiber.Ctx) string {
	var req syncSubject
	_ = c.BodyParser(&req)
	subject := strings.TrimSpace(req.UserID)
	if subject == "" {
		return ""
	}
	if network := strings.ToLower(strings.TrimSpace(req.Network)); network != "" {
		subject += ":" + network
	}
	return subject
}

// SyncLock coalesces bursts of sync requests for the same user by holding an
// in-progress marker in Redis while the handler runs. A second request that
// arrives meanwhile receives 409. Correctness of the ledger does not depend on
// the lock; it only saves redundant explorer calls. Redis failures fail open.
func SyncLock(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		subject := subjectKey(c)
		if subject == "" {
			return c.Next()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		lockKey := syncLockPrefix + subject
		acquired, err := cache.SetNX(ctx, lockKey, inProgressMarker, ttl).Result()
		if err != nil {
			logger.Warn("sync lock reservation failed", slog.String("subject", subject), slog.Any("error", err))
			return c.Next()
		}
		if !acquired {
			return fiber.NewError(fiber.StatusConflict, "sync already running")
		}

		defer func() {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := cache.Del(cleanupCtx, lockKey).Err(); err != nil {
				logger.Warn("sync lock release failed", slog.String("subject", subject), slog.Any("error", err))
			}
		}()

		return c.Next()
	}
}
