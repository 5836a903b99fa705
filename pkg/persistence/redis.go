package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	// URL is a redis:// URL, e.g. "redis://localhost:6379/0".
	URL string

	// Namespace prefixes every key and the change channel.
	Namespace string

	// Logger is used for Pub/Sub decode problems. Nil disables logging.
	Logger *slog.Logger
}

// DefaultRedisConfig returns the default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		URL:       "redis://localhost:6379/0",
		Namespace: "upnp",
	}
}

// RedisStore is a StateStore backed by Redis. State writes are published on
// a channel so that stores in other processes can forward them to their own
// listeners (see Watch).
type RedisStore struct {
	rdb    *goredis.Client
	ns     string
	origin string
	logger *slog.Logger

	lmu       sync.Mutex
	listeners map[uint64]func(StateChange)
	nextID    uint64
}

var _ StateStore = (*RedisStore)(nil)

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultRedisConfig().Namespace
	}
	return &RedisStore{
		rdb:       rdb,
		ns:        ns,
		origin:    uuid.NewString(),
		logger:    cfg.Logger,
		listeners: make(map[uint64]func(StateChange)),
	}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) objectKey(id string) string { return s.ns + ":obj:" + id }
func (s *RedisStore) stateKey(id string) string  { return s.ns + ":state:" + id }
func (s *RedisStore) channel() string            { return s.ns + ":changes" }

// SetObject implements StateStore.
func (s *RedisStore) SetObject(ctx context.Context, id string, obj Object) error {
	if !validID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to marshal object: %w", err)
	}
	return s.rdb.Set(ctx, s.objectKey(id), data, 0).Err()
}

// GetObject implements StateStore.
func (s *RedisStore) GetObject(ctx context.Context, id string) (Object, error) {
	data, err := s.rdb.Get(ctx, s.objectKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return Object{}, fmt.Errorf("%w: object %s", ErrNotFound, id)
	}
	if err != nil {
		return Object{}, err
	}
	var obj Object
	if err := json.Unmarshal(data, &obj); err != nil {
		return Object{}, fmt.Errorf("failed to unmarshal object %s: %w", id, err)
	}
	return obj, nil
}

// SetState implements StateStore. The value is stored and published in one
// transaction; local listeners are called after it commits.
func (s *RedisStore) SetState(ctx context.Context, id string, value string, ack bool) error {
	if !validID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	change := StateChange{
		ID:     id,
		State:  State{Value: value, Ack: ack, Timestamp: time.Now()},
		Origin: s.origin,
	}
	stateData, err := json.Marshal(change.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	changeData, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, s.stateKey(id), stateData, 0)
		pipe.Publish(ctx, s.channel(), changeData)
		return nil
	})
	if err != nil {
		return err
	}

	s.notify(change)
	return nil
}

// GetState implements StateStore.
func (s *RedisStore) GetState(ctx context.Context, id string) (State, error) {
	data, err := s.rdb.Get(ctx, s.stateKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return State{}, fmt.Errorf("%w: state %s", ErrNotFound, id)
	}
	if err != nil {
		return State{}, err
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("failed to unmarshal state %s: %w", id, err)
	}
	return st, nil
}

// GetStatesOf implements StateStore using SCAN, so it never blocks the
// server on large keyspaces.
func (s *RedisStore) GetStatesOf(ctx context.Context, prefix string) (map[string]State, error) {
	keyPrefix := s.stateKey("")
	keys, err := s.scan(ctx, keyPrefix+globEscape(prefix)+"*")
	if err != nil {
		return nil, err
	}
	out := make(map[string]State, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// deleted between SCAN and MGET
			continue
		}
		var st State
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			return nil, fmt.Errorf("failed to unmarshal state %s: %w", keys[i], err)
		}
		out[strings.TrimPrefix(keys[i], keyPrefix)] = st
	}
	return out, nil
}

// DeleteTree implements StateStore.
func (s *RedisStore) DeleteTree(ctx context.Context, prefix string) error {
	if !validID(prefix) {
		return fmt.Errorf("%w: %q", ErrInvalidID, prefix)
	}
	esc := globEscape(prefix)
	var keys []string
	for _, pattern := range []string{
		s.objectKey(esc), s.objectKey(esc + Separator + "*"),
		s.stateKey(esc), s.stateKey(esc + Separator + "*"),
	} {
		found, err := s.scan(ctx, pattern)
		if err != nil {
			return err
		}
		keys = append(keys, found...)
	}
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

// OnStateChange implements StateStore. Listeners see writes made through
// this store and, while Watch runs, writes made by other stores sharing the
// namespace.
func (s *RedisStore) OnStateChange(fn func(StateChange)) func() {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.lmu.Unlock()

	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

// Watch subscribes to the change channel and forwards changes written by
// other stores to the local listeners. It blocks until ctx is cancelled.
func (s *RedisStore) Watch(ctx context.Context) error {
	sub := s.rdb.Subscribe(ctx, s.channel())
	defer sub.Close()

	// Wait for the subscription to be confirmed so callers can rely on
	// receiving writes made after Watch started.
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	msgCh := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgCh:
			if !ok {
				return nil
			}
			var change StateChange
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				if s.logger != nil {
					s.logger.Warn("persistence: dropping malformed state change", "error", err)
				}
				continue
			}
			if change.Origin == s.origin {
				continue
			}
			s.notify(change)
		}
	}
}

func (s *RedisStore) notify(ch StateChange) {
	s.lmu.Lock()
	fns := make([]func(StateChange), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()

	for _, fn := range fns {
		fn(ch)
	}
}

func (s *RedisStore) scan(ctx context.Context, pattern string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := s.rdb.Scan(ctx, cursor, pattern, 256).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
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
