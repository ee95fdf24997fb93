// Package cache stores small values between runs, such as the last seen modification time of a
// loaded resource. The loader itself never touches it; commands wrap loads with it.
package cache

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/mitchellh/hashstructure/v2"
)

type Cache interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Close() error
}

// Key derives a stable cache key from any hashable value, typically a struct describing the
// loaded target.
func Key(v any) (string, error) {
	// we set IgnoreZeroValue so that we can add fields to the hash key
	// later without breaking things.
	hashopts := &hashstructure.HashOptions{IgnoreZeroValue: true}
	hash, err := hashstructure.Hash(v, hashstructure.FormatV2, hashopts)
	if err != nil {
		return "", fmt.Errorf("error calculating hash of key: %w", err)
	}
	return strconv.FormatUint(hash, 16), nil
}

type Memory struct {
	mu      sync.Mutex
	entries map[string][]byte
}

var _ Cache = &Memory{}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Close() error {
	return nil
}
