package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisTTL     = 24 * time.Hour
	defaultRedisHistory = 50
)

// RedisOptions configures NewRedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// TTL applies to both keys of a student. Zero uses 24h.
	TTL time.Duration

	// HistoryLimit caps the per-student history list. Zero uses 50.
	HistoryLimit int
}

// RedisStore implements HistoryStore on Redis so that several forecaster
// replicas and the CLI can share snapshots.
//
// Keys per student:
//
//	gradecast:snapshot:{student}  latest snapshot (JSON string)
//	gradecast:history:{student}   newest-first list of snapshots, capped
type RedisStore struct {
	client       *redis.Client
	ttl          time.Duration
	historyLimit int
	mu           sync.RWMutex
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if opts.DB < 0 {
		return nil, errors.New("redis database number must be >= 0")
	}
	if opts.HistoryLimit < 0 {
		return nil, errors.New("redis history limit must be >= 0")
	}

	ttl := opts.TTL
	if ttl == 0 {
		ttl = defaultRedisTTL
	}
	limit := opts.HistoryLimit
	if limit == 0 {
		limit = defaultRedisHistory
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	return &RedisStore{
		client:       client,
		ttl:          ttl,
		historyLimit: limit,
	}, nil
}

func snapshotKey(student string) string { return "gradecast:snapshot:" + student }
func historyKey(student string) string  { return "gradecast:history:" + student }

// Put stores the snapshot as the student's latest and prepends it to the
// history list in a single transaction.
func (r *RedisStore) Put(ctx context.Context, s Snapshot) error {
	if err := ValidateStudent(s.Student); err != nil {
		return err
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	hk := historyKey(s.Student)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, snapshotKey(s.Student), data, r.ttl)
		pipe.LPush(ctx, hk, data)
		pipe.LTrim(ctx, hk, 0, int64(r.historyLimit-1))
		pipe.Expire(ctx, hk, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store snapshot in redis: %w", err)
	}
	return nil
}

// GetLatest retrieves the student's latest snapshot. A missing key is
// reported as found=false with a nil error.
func (r *RedisStore) GetLatest(ctx context.Context, student string) (Snapshot, bool, error) {
	if student == "" {
		return Snapshot{}, false, ErrStudentRequired
	}

	data, err := r.client.Get(ctx, snapshotKey(student)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("failed to get snapshot from redis: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return snapshot, true, nil
}

// History returns up to limit snapshots, newest first. limit <= 0 returns
// the whole retained list.
func (r *RedisStore) History(ctx context.Context, student string, limit int) ([]Snapshot, error) {
	if student == "" {
		return nil, ErrStudentRequired
	}

	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	items, err := r.client.LRange(ctx, historyKey(student), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history from redis: %w", err)
	}

	out := make([]Snapshot, 0, len(items))
	for i, item := range items {
		var s Snapshot
		if err := json.Unmarshal([]byte(item), &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history[%d]: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Close closes the Redis client connection. Safe to call more than once.
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return nil
	}

	err := r.client.Close()
	r.client = nil
	if errors.Is(err, redis.ErrClosed) {
		return nil
	}
	return err
}

// Ping checks the Redis connection health.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
