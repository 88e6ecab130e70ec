package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	replayPrefix         = "replay:v1:"
	markerSettling       = "__settling__"
	replayStoreTimeout   = 2 * time.Second
)

// replayRecord is the response snapshot stored for a finished request.
type replayRecord struct {
	Status  int               `json:"status"`
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers"`
}

// Idempotency makes the unsafe endpoints safe to retry. The first request
// under a given Idempotency-Key runs normally and its response is snapshotted
// in Redis; replays of the key get the snapshot back without reaching the
// handler, so a purchase retried after a network timeout never settles twice.
// Keys are scoped by method and path: the same client key cannot replay a
// purchase response onto a top-up submission.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch strings.ToUpper(c.Method()) {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing Idempotency-Key header")
		}
		replayKey := replayPrefix + c.Method() + ":" + c.Path() + ":" + key

		ctx, cancel := context.WithTimeout(context.Background(), replayStoreTimeout)
		defer cancel()

		snapshot, err := cache.Get(ctx, replayKey).Result()
		switch {
		case err == nil:
			if snapshot == markerSettling {
				return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
			}
			return sendReplay(c, snapshot, key, logger)
		case err != redis.Nil:
			logger.Error("idempotency lookup failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		}

		// First sight of the key: mark it settling so concurrent replays
		// conflict instead of racing the handler.
		if err := cache.SetNX(ctx, replayKey, markerSettling, ttl).Err(); err != nil {
			logger.Error("idempotency reservation failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency reservation failure")
		}

		if err := c.Next(); err != nil {
			// Failed requests are not replayable; the client may retry the
			// same key from scratch.
			dropReplay(cache, replayKey)
			return err
		}

		return storeReplay(c, cache, replayKey, key, ttl, logger)
	}
}

func sendReplay(c *fiber.Ctx, snapshot, key string, logger *slog.Logger) error {
	var record replayRecord
	if err := json.Unmarshal([]byte(snapshot), &record); err != nil {
		logger.Warn("failed to decode stored idempotent response", slog.String("key", key), slog.Any("error", err))
		return fiber.NewError(fiber.StatusConflict, "duplicate request")
	}
	for header, value := range record.Headers {
		if strings.EqualFold(header, fiber.HeaderContentLength) {
			continue
		}
		c.Set(header, value)
	}
	return c.Status(record.Status).SendString(record.Body)
}

func storeReplay(c *fiber.Ctx, cache *redis.Client, replayKey, key string, ttl time.Duration, logger *slog.Logger) error {
	record := replayRecord{
		Status:  c.Response().StatusCode(),
		Body:    string(c.Response().Body()),
		Headers: map[string]string{},
	}
	c.Response().Header.VisitAll(func(k, v []byte) {
		record.Headers[string(k)] = string(v)
	})

	payload, err := json.Marshal(record)
	if err != nil {
		logger.Error("failed to encode idempotent response", slog.String("key", key), slog.Any("error", err))
		dropReplay(cache, replayKey)
		return fiber.NewError(fiber.StatusInternalServerError, "idempotency persistence failure")
	}

	ctx, cancel := context.WithTimeout(context.Background(), replayStoreTimeout)
	defer cancel()
	if err := cache.Set(ctx, replayKey, payload, ttl).Err(); err != nil {
		logger.Error("failed to persist idempotent response", slog.String("key", key), slog.Any("error", err))
		cache.Del(ctx, replayKey)
		return fiber.NewError(fiber.StatusInternalServerError, "idempotency persistence failure")
	}
	return nil
}

func dropReplay(cache *redis.Client, replayKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), replayStoreTimeout)
	defer cancel()
	cache.Del(ctx, replayKey) // best effort
}
