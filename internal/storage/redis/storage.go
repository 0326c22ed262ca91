package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/levelgrid/internal/model"
	"github.com/mcoot/levelgrid/internal/storage"
)

// releaseLeaseScript deletes the lease only when it is still owned by the caller
var releaseLeaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().ConnectTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Registration operations

func (s *Storage) Register(ctx context.Context, key string, at time.Time) error {
	return s.client.ZAdd(ctx, registrationsKey(), redis.Z{
		Score:  float64(model.ScoreFromTime(at)),
		Member: key,
	}).Err()
}

func (s *Storage) Unregister(ctx context.Context, key string) error {
	return s.client.ZRem(ctx, registrationsKey(), key).Err()
}

func (s *Storage) SelectStale(ctx context.Context, cutoff time.Time) ([]model.RegisteredIdentifier, error) {
	entries, err := s.client.ZRangeByScoreWithScores(ctx, registrationsKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(model.ScoreFromTime(cutoff), 10),
	}).Result()
	if err != nil {
		return nil, err
	}

	result := make([]model.RegisteredIdentifier, 0, len(entries))
	for _, z := range entries {
		key, ok := z.Member.(string)
		if !ok {
			continue
		}
		result = append(result, model.RegisteredIdentifier{
			Key:           key,
			LastCheckedAt: model.TimeFromScore(int64(z.Score)),
		})
	}
	return result, nil
}

func (s *Storage) Touch(ctx context.Context, key string, at time.Time) error {
	// XX: only update members that already exist
	return s.client.ZAddXX(ctx, registrationsKey(), redis.Z{
		Score:  float64(model.ScoreFromTime(at)),
		Member: key,
	}).Err()
}

// Level operations

func (s *Storage) GetLevel(ctx context.Context, name string) (*model.Level, error) {
	data, err := s.client.Get(ctx, levelKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrLevelNotFound
		}
		return nil, err
	}

	var level model.Level
	if err := json.Unmarshal(data, &level); err != nil {
		return nil, err
	}
	return &level, nil
}

func (s *Storage) SaveLevel(ctx context.Context, level *model.Level) error {
	data, err := json.Marshal(level)
	if err != nil {
		return err
	}

	existing, err := s.GetLevel(ctx, level.Name)
	if err != nil && !errors.Is(err, model.ErrLevelNotFound) {
		return err
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, levelKey(level.Name), data, 0) // No TTL
	if existing != nil && existing.Owner != "" && existing.Owner != level.Owner {
		pipe.SRem(ctx, levelsByOwnerIndexKey(existing.Owner), level.Name)
	}
	if level.Owner != "" {
		pipe.SAdd(ctx, levelsByOwnerIndexKey(level.Owner), level.Name)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) DeleteLevel(ctx context.Context, name string) error {
	existing, err := s.GetLevel(ctx, name)
	if err != nil {
		if errors.Is(err, model.ErrLevelNotFound) {
			return nil
		}
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, levelKey(name))
	if existing.Owner != "" {
		pipe.SRem(ctx, levelsByOwnerIndexKey(existing.Owner), name)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) ListLevelsByOwner(ctx context.Context, owner string) ([]string, error) {
	names, err := s.client.SMembers(ctx, levelsByOwnerIndexKey(owner)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (s *Storage) DeleteLevelsByOwner(ctx context.Context, owner string) (int, error) {
	indexKey := levelsByOwnerIndexKey(owner)

	names, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return 0, err
	}

	if len(names) == 0 {
		return 0, nil
	}

	// Delete all levels and the index in one pipeline
	pipe := s.client.TxPipeline()
	for _, name := range names {
		pipe.Del(ctx, levelKey(name))
	}
	pipe.Del(ctx, indexKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return len(names), nil
}

// Run lease operations

func (s *Storage) AcquireRunLease(ctx context.Context, holder string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, runLeaseKey(), holder, ttl).Result()
}

func (s *Storage) ReleaseRunLease(ctx context.Context, holder string) error {
	return releaseLeaseScript.Run(ctx, s.client, []string{runLeaseKey()}, holder).Err()
}
