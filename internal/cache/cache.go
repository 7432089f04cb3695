// Package cache keeps finished reports in Redis keyed by dataset
// fingerprint, so re-uploading an unchanged file skips detection.
package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"etlinspector/internal/config"
	"etlinspector/pkg/contracts/domain"
)

// KeyPrefix starts every report key.
const KeyPrefix = "report:"

// ReportCache looks up and stores reports by dataset and check selection.
type ReportCache interface {
	Get(ctx context.Context, key string) (domain.Report, bool, error)
	Put(ctx context.Context, key string, report domain.Report) error
	Ping(ctx context.Context) error
	Close() error
}

// Key builds report:<fingerprint>:<checks-hash>. The check list is sorted
// first so selection order does not matter; variant folds in anything
// else that changes the output, such as thresholds.
func Key(fingerprint string, checks []string, variant string) string {
	sorted := slices.Clone(checks)
	slices.Sort(sorted)
	sum := blake2b.Sum256([]byte(strings.Join(sorted, ",") + "|" + variant))
	return KeyPrefix + fingerprint + ":" + hex.EncodeToString(sum[:8])
}

// Redis is a ReportCache backed by go-redis.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis connects to the configured server and pings it once.
func NewRedis(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (*Redis, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	logger.Info("Connected to Redis", slog.String("addr", cfg.RedisAddr), slog.Int("db", cfg.DB))
	return &Redis{
		client: client,
		ttl:    cfg.TTL,
		logger: logger.With(slog.String("component", "cache")),
	}, nil
}

// Get returns the cached report and whether it was found.
func (c *Redis) Get(ctx context.Context, key string) (domain.Report, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Report{}, false, nil
	}
	if err != nil {
		return domain.Report{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var report domain.Report
	if err := json.Unmarshal(data, &report); err != nil {
		// A corrupt entry is treated as a miss and dropped.
		c.logger.WarnContext(ctx, "Discarding undecodable cache entry",
			slog.String("key", key), slog.String("error", err.Error()))
		_ = c.client.Del(ctx, key).Err()
		return domain.Report{}, false, nil
	}
	return report, true, nil
}

// Put stores the report with the configured TTL.
func (c *Redis) Put(ctx context.Context, key string, report domain.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Ping checks the connection.
func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the client.
func (c *Redis) Close() error {
	return c.client.Close()
}

// Noop never hits. It stands in when Redis is not configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (domain.Report, bool, error) {
	return domain.Report{}, false, nil
}
func (Noop) Put(context.Context, string, domain.Report) error { return nil }
func (Noop) Ping(context.Context) error                       { return nil }
func (Noop) Close() error                                     { return nil }

// New returns a Redis cache when an address is configured, else Noop.
func New(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (ReportCache, error) {
	if !cfg.Enabled() {
		return Noop{}, nil
	}
	return NewRedis(ctx, cfg, logger)
}
