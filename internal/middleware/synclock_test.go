package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/walletsync/internal/logging"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})
	return mr, cache
}

func newSyncRequest(body string) *http.Request {
	req := httptest.NewRequest(fiber.MethodPost, "/sync", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func TestSyncLockRejectsConcurrentSync(t *testing.T) {
	mr, cache := setupRedis(t)
	app := fiber.New()
	app.Post("/sync", SyncLock(cache, time.Minute, logging.Discard()), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})

	if err := mr.Set(syncLockPrefix+"user-1", inProgressMarker); err != nil {
		t.Fatalf("seed lock: %v", err)
	}

	resp, err := app.Test(newSyncRequest(`{"user_id":"user-1","address":"0xabc"}`))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected %d got %d", fiber.StatusConflict, resp.StatusCode)
	}

	// A different user is not affected.
	resp, err = app.Test(newSyncRequest(`{"user_id":"user-2","address":"0xabc"}`))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, resp.StatusCode)
	}
}

func TestSyncLockReleasesAfterHandler(t *testing.T) {
	mr, cache := setupRedis(t)
	app := fiber.New()
	held := false
	app.Post("/sync", SyncLock(cache, time.Minute, logging.Discard()), func(c *fiber.Ctx) error {
		held = mr.Exists(syncLockPrefix + "user-1")
		return fiber.NewError(fiber.StatusBadGateway, "explorer down")
	})

	resp, err := app.Test(newSyncRequest(`{"user_id":"user-1"}`))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("expected handler status, got %d", resp.StatusCode)
	}
	if !held {
		t.Fatal("expected lock to be held while the handler ran")
	}
	if mr.Exists(syncLockPrefix + "user-1") {
		t.Fatal("expected lock to be released")
	}
}

func TestSyncRateLimit(t *testing.T) {
	_, cache := setupRedis(t)
	app := fiber.New()
	app.Post("/sync", SyncRateLimit(cache, 2), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 3; i++ {
		resp, err := app.Test(newSyncRequest(`{"user_id":"user-1"}`))
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		want := fiber.StatusOK
		if i == 2 {
			want = fiber.StatusTooManyRequests
		}
		if resp.StatusCode != want {
			t.Fatalf("request %d: expected %d got %d", i, want, resp.StatusCode)
		}
	}
}

func TestSyncRateLimitRepairsMissingExpiry(t *testing.T) {
	mr, cache := setupRedis(t)
	app := fiber.New()
	app.Post("/sync", SyncRateLimit(cache, 10), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	// A counter left behind without a TTL would block the user forever.
	key := "rl:sync:user-1"
	if err := mr.Set(key, "4"); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	resp, err := app.Test(newSyncRequest(`{"user_id":"user-1"}`))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ttl := mr.TTL(key); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected window expiry to be restored, got %s", ttl)
	}
	if got, _ := mr.Get(key); got != "5" {
		t.Fatalf("expected counter 5, got %q", got)
	}
}
