// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package push

import (
	"context"
	"slices"
	"sync"

	"github.com/go-a2a/a2a-engine"
)

// ConfigStore keeps the push notification configs registered for each task.
type ConfigStore interface {
	// Set registers cfg for the task, replacing a config with the same id. An empty id
	// is generated. The stored config is returned.
	Set(ctx context.Context, taskID string, cfg a2a.PushNotificationConfig) (a2a.PushNotificationConfig, error)

	// Get returns the configs registered for the task, possibly none.
	Get(ctx context.Context, taskID string) ([]a2a.PushNotificationConfig, error)

	// Delete removes one config, or all configs of the task when configID is empty.
	Delete(ctx context.Context, taskID, configID string) error
}

// InMemoryConfigStore is an in-memory implementation of [ConfigStore].
type InMemoryConfigStore struct {
	mu      sync.RWMutex
	configs map[string][]a2a.PushNotificationConfig
}

var _ ConfigStore = (*InMemoryConfigStore)(nil)

// NewInMemoryConfigStore creates a new InMemoryConfigStore.
func NewInMemoryConfigStore() *InMemoryConfigStore {
	return &InMemoryConfigStore{
		configs: make(map[string][]a2a.PushNotificationConfig),
	}
}

// Set implements [ConfigStore].
func (s *InMemoryConfigStore) Set(ctx context.Context, taskID string, cfg a2a.PushNotificationConfig) (a2a.PushNotificationConfig, error) {
	if err := cfg.Validate(); err != nil {
		return a2a.PushNotificationConfig{}, err
	}
	if cfg.ID == "" {
		cfg.ID = a2a.NewID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	configs := s.configs[taskID]
	i := slices.IndexFunc(configs, func(c a2a.PushNotificationConfig) bool { return c.ID == cfg.ID })
	if i >= 0 {
		configs[i] = cfg
	} else {
		configs = append(configs, cfg)
	}
	s.configs[taskID] = configs
	return cfg, nil
}

// Get implements [ConfigStore].
func (s *InMemoryConfigStore) Get(ctx context.Context, taskID string) ([]a2a.PushNotificationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.configs[taskID]), nil
}

// Delete implements [ConfigStore].
func (s *InMemoryConfigStore) Delete(ctx context.Context, taskID, configID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if configID == "" {
		delete(s.configs, taskID)
		return nil
	}
	configs := slices.DeleteFunc(s.configs[taskID], func(c a2a.PushNotificationConfig) bool {
		return c.ID == configID
	})
	if len(configs) == 0 {
		delete(s.configs, taskID)
		return nil
	}
	s.configs[taskID] = configs
	return nil
}
