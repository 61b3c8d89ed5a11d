package drafts

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/maskedit/internal/logger"
)

const (
	redisKeyPrefix = "maskedit:draft:"
	redisIndexKey  = "maskedit:drafts"
	redisMaskField = "mask:"
	redisRetries   = 5
)

// RedisStore keeps each draft in a hash and the set of ids in an index set.
// Read-modify-write paths run under WATCH so concurrent writers retry instead
// of clobbering each other.
type RedisStore struct {
	rdb *redis.Client
	log *zap.Logger
}

// NewRedis connects using a redis:// URL.
func NewRedis(ctx context.Context, url string, log *zap.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return NewRedisClient(rdb, log), nil
}

// NewRedisClient wraps an existing client.
func NewRedisClient(rdb *redis.Client, log *zap.Logger) *RedisStore {
	return &RedisStore{rdb: rdb, log: logger.Named(log, "drafts.redis")}
}

func redisKey(id string) string { return redisKeyPrefix + id }

func maskField(c Category) string { return redisMaskField + string(c) }

// hashFromDraft flattens d into hash fields.
func hashFromDraft(d Draft) map[string]any {
	h := map[string]any{
		"id":         d.ID,
		"source":     d.Source,
		"kind":       string(d.Kind),
		"created_at": strconv.FormatInt(d.CreatedAt.UnixNano(), 10),
		"updated_at": strconv.FormatInt(d.UpdatedAt.UnixNano(), 10),
	}
	for c, v := range d.Masks {
		if v != "" {
			h[maskField(c)] = v
		}
	}
	return h
}

// draftFromHash is the inverse of hashFromDraft. Unknown mask categories are
// ignored.
func draftFromHash(h map[string]string) (Draft, error) {
	if len(h) == 0 {
		return Draft{}, ErrNotFound
	}
	d := Draft{
		ID:     h["id"],
		Source: h["source"],
		Kind:   Kind(h["kind"]),
		Masks:  map[Category]string{},
	}
	for _, f := range []struct {
		name string
		dst  *time.Time
	}{{"created_at", &d.CreatedAt}, {"updated_at", &d.UpdatedAt}} {
		n, err := strconv.ParseInt(h[f.name], 10, 64)
		if err != nil {
			return Draft{}, fmt.Errorf("draft %s: bad %s: %w", d.ID, f.name, err)
		}
		*f.dst = time.Unix(0, n).UTC()
	}
	for k, v := range h {
		name, ok := strings.CutPrefix(k, redisMaskField)
		if !ok || v == "" {
			continue
		}
		if c := Category(name); c.Valid() {
			d.Masks[c] = v
		}
	}
	return d, nil
}

func (s *RedisStore) Add(ctx context.Context, d Draft) (Draft, error) {
	out, err := s.AddMany(ctx, []Draft{d})
	if err != nil {
		return Draft{}, err
	}
	return out[0], nil
}

func (s *RedisStore) AddMany(ctx context.Context, ds []Draft) ([]Draft, error) {
	if err := ValidateBatch(ds); err != nil {
		return nil, err
	}
	ts := now()
	out := make([]Draft, 0, len(ds))
	for _, d := range ds {
		p, err := prepare(d, ts)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, d := range out {
			p.HSet(ctx, redisKey(d.ID), hashFromDraft(d))
			p.SAdd(ctx, redisIndexKey, d.ID)
		}
		return nil
	})
	if err != nil {
		s.log.Error("add drafts", zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Draft, error) {
	h, err := s.rdb.HGetAll(ctx, redisKey(id)).Result()
	if err != nil {
		return Draft{}, err
	}
	return draftFromHash(h)
}

func (s *RedisStore) List(ctx context.Context) ([]Draft, error) {
	ids, err := s.rdb.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, err
	}
	slices.Sort(ids)
	out := make([]Draft, 0, len(ids))
	for _, id := range ids {
		d, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			s.log.Warn("dangling draft id in index", zap.String("id", id))
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *RedisStore) Update(ctx context.Context, d Draft) error {
	key := redisKey(d.ID)
	return s.watch(ctx, key, func(tx *redis.Tx) error {
		h, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		old, err := draftFromHash(h)
		if err != nil {
			return err
		}
		d.CreatedAt = old.CreatedAt
		p, err := prepare(d, now())
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.HSet(ctx, key, hashFromDraft(p))
			return nil
		})
		return err
	})
}

func (s *RedisStore) Remove(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		del = p.Del(ctx, redisKey(id))
		p.SRem(ctx, redisIndexKey, id)
		return nil
	})
	if err != nil {
		return err
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	ids, err := s.rdb.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, redisKey(id))
	}
	keys = append(keys, redisIndexKey)
	return s.rdb.Del(ctx, keys...).Err()
}

func (s *RedisStore) GetMask(ctx context.Context, id string, c Category) (string, bool, error) {
	if err := checkCategory(c); err != nil {
		return "", false, err
	}
	vals, err := s.rdb.HMGet(ctx, redisKey(id), "id", maskField(c)).Result()
	if err != nil {
		return "", false, err
	}
	if vals[0] == nil {
		return "", false, ErrNotFound
	}
	v, _ := vals[1].(string)
	return v, v != "", nil
}

func (s *RedisStore) SetMask(ctx context.Context, id string, c Category, encoded string) error {
	if err := checkCategory(c); err != nil {
		return err
	}
	key := redisKey(id)
	return s.watch(ctx, key, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			if encoded == "" {
				p.HDel(ctx, key, maskField(c))
			} else {
				p.HSet(ctx, key, maskField(c), encoded)
			}
			p.HSet(ctx, key, "updated_at", strconv.FormatInt(now().UnixNano(), 10))
			return nil
		})
		return err
	})
}

func (s *RedisStore) watch(ctx context.Context, key string, fn func(*redis.Tx) error) error {
	for i := 0; i < redisRetries; i++ {
		err := s.rdb.Watch(ctx, fn, key)
		if errors.Is(err, redis.TxFailedErr) {
			s.log.Debug("watch conflict, retrying", zap.String("key", key))
			continue
		}
		return err
	}
	return fmt.Errorf("draft %s: too many concurrent writers", key)
}

func (s *RedisStore) Close() error { return s.rdb.Close() }
