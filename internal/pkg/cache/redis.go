package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

type RedisClient struct {
	Client *redis.Client
}

func NewRedisClient(cfg *Config) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisClient{Client: client}, nil
}

func (r *RedisClient) Close() error {
	return r.Client.Close()
}

var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// AcquireLock sets key to value only if it is absent. The lock expires after ttl.
func (r *RedisClient) AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.Client.SetNX(ctx, key, value, ttl).Result()
}

// ReleaseLock deletes key only while it still holds value.
func (r *RedisClient) ReleaseLock(ctx context.Context, key, value string) error {
	return releaseLockScript.Run(ctx, r.Client, []string{key}, value).Err()
}

// Generation keys never expire: an expired counter restarts at 0 and could
// climb back to a generation a slow reader still holds.
const (
	productKeyPrefix = "product:"
	generationSuffix = ":gen"
)

// Fills only land while the generation read before the store lookup is current.
var setIfGenerationScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[2])
if not gen then
	gen = '0'
end
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'EX', ARGV[3])
return 1
`)

// RedisProductCache stores product snapshots under product:{id}.
type RedisProductCache struct {
	client *redis.Client
}

func NewRedisProductCache(rc *RedisClient) *RedisProductCache {
	return &RedisProductCache{client: rc.Client}
}

func productKey(productID int64) string {
	return productKeyPrefix + strconv.FormatInt(productID, 10)
}

func generationKey(productID int64) string {
	return productKey(productID) + generationSuffix
}

func (c *RedisProductCache) Get(ctx context.Context, productID int64) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, productKey(productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisProductCache) Generation(ctx context.Context, productID int64) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(productID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisProductCache) SetIfGeneration(ctx context.Context, productID, gen int64, value []byte, ttl time.Duration) (bool, error) {
	seconds := int64(ttl / time.Second)
	if seconds <= 0 {
		seconds = 1
	}
	res, err := setIfGenerationScript.Run(ctx, c.client,
		[]string{productKey(productID), generationKey(productID)},
		strconv.FormatInt(gen, 10), value, seconds,
	).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (c *RedisProductCache) Invalidate(ctx context.Context, productID int64) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, productKey(productID))
		pipe.Incr(ctx, generationKey(productID))
		pipe.Persist(ctx, generationKey(productID))
		return nil
	})
	return err
}

func (c *RedisProductCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
