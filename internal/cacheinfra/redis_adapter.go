package cacheinfra

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	scanBatchSize = 100
	// versionTTL bounds how long a version key outlives its last
	// invalidation. It only has to cover one load.
	versionTTL = time.Hour
)

var errStaleLoad = errors.New("cache key invalidated during load")

// redisService stores catalog entries as JSON in redis so several storefront
// processes observe the same invalidations. Values are decoded back into the
// result type declared by the fetch function.
//
// Every invalidation bumps a version key next to the entry (or the epoch key
// for prefix deletes). A load records both versions before calling the store
// and writes its result under WATCH only when neither moved, so a load that
// overlaps an invalidation in any process is not kept.
type redisService struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewRedisClient connects to redis and checks the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// NewRedisService wraps an existing client.
func NewRedisService(client redis.UniversalClient, cfg RedisConfig, logger *slog.Logger) (*redisService, error) {
	if client == nil {
		return nil, &ConfigError{Field: "Redis.Client", Message: "cannot be nil"}
	}
	if cfg.TTL < 0 {
		return nil, &ConfigError{Field: "Redis.TTL", Message: "must be non-negative"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	prefix := strings.Trim(cfg.Prefix, ":")
	if prefix != "" {
		prefix += ":"
	}

	return &redisService{
		client: client,
		prefix: prefix,
		ttl:    cfg.TTL,
		logger: logger.With("component", "redis_cache"),
	}, nil
}

func (s *redisService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	outType, err := validateFetchFn(fetchFn)
	if err != nil {
		return nil, err
	}

	fullKey := s.prefix + key

	if value, ok := s.read(ctx, fullKey, outType); ok {
		return value, nil
	}

	value, err, _ := s.group.Do(fullKey, func() (any, error) {
		stamp, stamped := s.stamp(ctx, key)
		value, err := callFetch(ctx, fetchFn)
		if err != nil {
			return nil, err
		}
		if stamped {
			s.write(ctx, key, value, stamp)
		}
		return value, nil
	})
	return value, err
}

func (s *redisService) versionKey(key string) string {
	return s.prefix + "version:" + key
}

func (s *redisService) epochKey() string {
	return s.prefix + "epoch"
}

// stamp reads the versions guarding key. The second result is false when
// they cannot be read, in which case the load is not stored.
func (s *redisService) stamp(ctx context.Context, key string) (string, bool) {
	return s.readStamp(ctx, s.client, key)
}

// multiGetter is satisfied by clients and by the transaction inside Watch.
type multiGetter interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

func (s *redisService) readStamp(ctx context.Context, c multiGetter, key string) (string, bool) {
	values, err := c.MGet(ctx, s.versionKey(key), s.epochKey()).Result()
	if err != nil {
		s.logger.WarnContext(ctx, "cache version read failed", "key", key, "error", err)
		return "", false
	}
	parts := make([]string, len(values))
	for i, v := range values {
		if str, ok := v.(string); ok {
			parts[i] = str
		}
	}
	return strings.Join(parts, "/"), true
}

// read reports a hit only when the stored payload decodes into outType.
// Transport errors degrade to a miss so the store stays reachable.
func (s *redisService) read(ctx context.Context, key string, outType reflect.Type) (any, bool) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	target := reflect.New(outType)
	if err := json.Unmarshal(data, target.Interface()); err != nil {
		s.logger.WarnContext(ctx, "cache entry decode failed", "key", key, "error", err)
		return nil, false
	}
	return target.Elem().Interface(), true
}

func (s *redisService) write(ctx context.Context, key string, value any, stamp string) {
	fullKey := s.prefix + key
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.WarnContext(ctx, "cache entry encode failed", "key", fullKey, "error", err)
		return
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, ok := s.readStamp(ctx, tx, key)
		if !ok || current != stamp {
			return errStaleLoad
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, fullKey, data, s.ttl)
			return nil
		})
		return err
	}, s.versionKey(key), s.epochKey())

	switch {
	case err == nil:
	case errors.Is(err, errStaleLoad), errors.Is(err, redis.TxFailedErr):
		s.logger.DebugContext(ctx, "cache write skipped, key invalidated during load", "key", fullKey)
	default:
		s.logger.WarnContext(ctx, "cache write failed", "key", fullKey, "error", err)
	}
}

func (s *redisService) Delete(ctx context.Context, key string) error {
	return s.InvalidateKeys(ctx, []string{key})
}

func (s *redisService) DeleteByPrefix(ctx context.Context, prefix string) error {
	if err := s.client.Incr(ctx, s.epochKey()).Err(); err != nil {
		return err
	}

	pattern := globEscape(s.prefix+prefix) + "*"

	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (s *redisService) InvalidateKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		full := make([]string, len(keys))
		for i, key := range keys {
			pipe.Incr(ctx, s.versionKey(key))
			pipe.Expire(ctx, s.versionKey(key), versionTTL)
			full[i] = s.prefix + key
		}
		pipe.Del(ctx, full...)
		return nil
	})
	return err
}

func globEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
