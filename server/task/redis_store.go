// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/redis/go-redis/v9"

	"github.com/go-a2a/a2a-engine"
)

// DefaultRedisUpdateRetries bounds the optimistic retries of [RedisTaskStore.Update].
const DefaultRedisUpdateRetries = 16

// RedisTaskStore is a [TaskStore] backed by Redis.
//
// Each task is a JSON string. A sorted set per context keeps creation order and a sorted
// set of terminal tasks scored by update time drives pruning. Updates use WATCH/MULTI
// and retry on conflicts.
type RedisTaskStore struct {
	client     redis.UniversalClient
	prefix     string
	maxRetries int
	locks      keyedMutex
}

var _ TaskStore = (*RedisTaskStore)(nil)

// RedisTaskStoreConfig holds configuration for RedisTaskStore.
type RedisTaskStoreConfig struct {
	Client     redis.UniversalClient
	KeyPrefix  string // Optional, defaults to "a2a:"
	MaxRetries int    // Optional, defaults to DefaultRedisUpdateRetries
}

// NewRedisTaskStore creates a new RedisTaskStore.
func NewRedisTaskStore(config RedisTaskStoreConfig) (*RedisTaskStore, error) {
	if config.Client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = "a2a:"
	}
	retries := config.MaxRetries
	if retries <= 0 {
		retries = DefaultRedisUpdateRetries
	}
	return &RedisTaskStore{
		client:     config.Client,
		prefix:     prefix,
		maxRetries: retries,
	}, nil
}

func (s *RedisTaskStore) taskKey(id string) string { return s.prefix + "task:" + id }
func (s *RedisTaskStore) contextKey(id string) string { return s.prefix + "context:" + id }
func (s *RedisTaskStore) seqKey() string { return s.prefix + "seq" }
func (s *RedisTaskStore) terminalKey() string { return s.prefix + "terminal" }

// Create implements [TaskStore].
func (s *RedisTaskStore) Create(ctx context.Context, task *a2a.Task) (*a2a.Task, error) {
	if err := validateNew(task); err != nil {
		return nil, err
	}
	data, err := json.Marshal(task)
	if err != nil {
		return nil, NewTaskStoreError("create", task.ID, err)
	}

	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return nil, NewTaskStoreError("create", task.ID, err)
	}

	// the task key and its index entries commit together or not at all
	key := s.taskKey(task.ID)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return a2a.NewDuplicateTaskError(task.ID)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.ZAdd(ctx, s.contextKey(task.ContextID), redis.Z{Score: float64(seq), Member: task.ID})
			if task.Status.State.Terminal() {
				pipe.ZAdd(ctx, s.terminalKey(), redis.Z{Score: float64(time.Now().UnixMilli()), Member: task.ID})
			}
			return nil
		})
		return err
	}, key)
	switch {
	case errors.Is(err, redis.TxFailedErr):
		// another writer touched the key first, so it exists
		return nil, a2a.NewDuplicateTaskError(task.ID)
	case errors.Is(err, a2a.ErrDuplicateTask):
		return nil, err
	case err != nil:
		return nil, NewTaskStoreError("create", task.ID, err)
	}
	return task.Clone(), nil
}

func decodeTask(data []byte) (*a2a.Task, error) {
	var t a2a.Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &t, nil
}

// Get implements [TaskStore].
func (s *RedisTaskStore) Get(ctx context.Context, taskID string) (*a2a.Task, error) {
	data, err := s.client.Get(ctx, s.taskKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, a2a.NewTaskNotFoundError(taskID)
	}
	if err != nil {
		return nil, NewTaskStoreError("get", taskID, err)
	}
	task, err := decodeTask(data)
	if err != nil {
		return nil, NewTaskStoreError("get", taskID, err)
	}
	return task, nil
}

// Update implements [TaskStore].
func (s *RedisTaskStore) Update(ctx context.Context, taskID string, fn MutateFunc) (*a2a.Task, error) {
	unlock := s.locks.Lock(taskID)
	defer unlock()

	key := s.taskKey(taskID)
	for range s.maxRetries {
		var updated *a2a.Task
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return a2a.NewTaskNotFoundError(taskID)
			}
			if err != nil {
				return err
			}
			current, err := decodeTask(data)
			if err != nil {
				return err
			}
			next, err := mutate(current, fn)
			if err != nil {
				return err
			}
			encoded, err := json.Marshal(next)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, 0)
				if next.Status.State.Terminal() {
					pipe.ZAdd(ctx, s.terminalKey(), redis.Z{Score: float64(time.Now().UnixMilli()), Member: taskID})
				}
				return nil
			})
			if err != nil {
				return err
			}
			updated = next
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, storeError("update", taskID, err)
		}
		return updated, nil
	}
	return nil, NewTaskStoreError("update", taskID, fmt.Errorf("gave up after %d conflicting updates", s.maxRetries))
}

// ListByContext implements [TaskStore].
func (s *RedisTaskStore) ListByContext(ctx context.Context, contextID string) ([]*a2a.Task, error) {
	ids, err := s.client.ZRange(ctx, s.contextKey(contextID), 0, -1).Result()
	if err != nil {
		return nil, NewTaskStoreError("list", "", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.taskKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, NewTaskStoreError("list", "", err)
	}

	tasks := make([]*a2a.Task, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue // pruned
		}
		task, err := decodeTask([]byte(raw))
		if err != nil {
			return nil, NewTaskStoreError("list", ids[i], err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Prune implements [TaskStore].
func (s *RedisTaskStore) Prune(ctx context.Context, before time.Time) (int, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.terminalKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(before.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, NewTaskStoreError("prune", "", err)
	}

	n := 0
	for _, id := range ids {
		task, err := s.Get(ctx, id)
		if errors.Is(err, a2a.ErrTaskNotFound) {
			s.client.ZRem(ctx, s.terminalKey(), id)
			continue
		}
		if err != nil {
			return n, err
		}
		_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, s.taskKey(id))
			pipe.ZRem(ctx, s.contextKey(task.ContextID), id)
			pipe.ZRem(ctx, s.terminalKey(), id)
			return nil
		})
		if err != nil {
			return n, NewTaskStoreError("prune", id, err)
		}
		n++
	}
	return n, nil
}

// Close closes the Redis client.
func (s *RedisTaskStore) Close(context.Context) error {
	return s.client.Close()
}
