package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/geowatch/geowatch/internal/config"
	"github.com/geowatch/geowatch/internal/domain"
)

// Cache provides Redis caching functionality
type Cache struct {
	client *redis.Client
}

// Key prefixes for different cache types
const (
	PrefixApp       = "app:"
	PrefixResults   = "results:"
	PrefixRateLimit = "ratelimit:"
)

// Default TTLs
const (
	DefaultTTL      = 15 * time.Minute
	AppTTL          = 1 * time.Hour
	ResultsTTL      = 10 * time.Minute
	RateLimitWindow = 1 * time.Minute
)

// New creates a new Redis cache client
func New(cfg config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Health checks Redis connectivity
func (c *Cache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// App caching methods

// GetAppBySlug retrieves a cached app by slug
func (c *Cache) GetAppBySlug(ctx context.Context, slug string) (*domain.App, error) {
	key := PrefixApp + "slug:" + slug
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var app domain.App
	if err := json.Unmarshal(data, &app); err != nil {
		return nil, err
	}

	return &app, nil
}

// SetAppBySlug caches an app by slug
func (c *Cache) SetAppBySlug(ctx context.Context, app *domain.App) error {
	key := PrefixApp + "slug:" + app.Slug
	data, err := json.Marshal(app)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, AppTTL).Err()
}

// InvalidateApp removes an app's cached entries
func (c *Cache) InvalidateApp(ctx context.Context, app *domain.App) error {
	return c.client.Del(ctx,
		PrefixApp+"slug:"+app.Slug,
		PrefixResults+app.ID.String(),
	).Err()
}

// Result snapshot caching

// GetResults retrieves the cached result listing for an app
func (c *Cache) GetResults(ctx context.Context, appID uuid.UUID) ([]*domain.MonitoringResult, error) {
	key := PrefixResults + appID.String()
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var results []*domain.MonitoringResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, err
	}

	return results, nil
}

// SetResults caches an app's result listing
func (c *Cache) SetResults(ctx context.Context, appID uuid.UUID, results []*domain.MonitoringResult) error {
	key := PrefixResults + appID.String()
	data, err := json.Marshal(results)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, ResultsTTL).Err()
}

// InvalidateResults drops an app's cached result listing after a run
func (c *Cache) InvalidateResults(ctx context.Context, appID uuid.UUID) error {
	return c.client.Del(ctx, PrefixResults+appID.String()).Err()
}

// Rate limiting

// CheckRateLimit checks and increments rate limit counter
func (c *Cache) CheckRateLimit(ctx context.Context, key string, limit int) (bool, int, error) {
	fullKey := PrefixRateLimit + key

	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, RateLimitWindow)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return false, 0, err
	}

	count := int(incr.Val())
	return count <= limit, count, nil
}

// Generic caching methods

// Get retrieves a value from cache
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// Set stores a value in cache
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes a value from cache
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}
