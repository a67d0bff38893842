// Package storage provides the key/value store that keeps client-side state such as the cart.
package storage

import (
	"errors"
	"sync"
)

// ErrQuotaExceeded is returned when a write would not fit in the backing store.
var ErrQuotaExceeded = errors.New("storage: quota exceeded")

// Local mirrors the browser's local storage contract.
type Local interface {
	GetItem(key string) (string, bool)
	SetItem(key, value string) error
	RemoveItem(key string)
}

// Memory is a process-local store used by tests and tools.
type Memory struct {
	// Quota caps the summed length of keys and values. Zero means unlimited.
	Quota int

	mu     sync.Mutex
	values map[string]string
}

// NewMemory returns an empty store, optionally seeded with values.
func NewMemory(seed map[string]string) *Memory {
	m := &Memory{values: make(map[string]string, len(seed))}
	for k, v := range seed {
		m.values[k] = v
	}
	return m
}

func (m *Memory) GetItem(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *Memory) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if m.Quota > 0 {
		size := len(key) + len(value)
		for k, v := range m.values {
			if k != key {
				size += len(k) + len(v)
			}
		}
		if size > m.Quota {
			return ErrQuotaExceeded
		}
	}
	m.values[key] = value
	return nil
}

func (m *Memory) RemoveItem(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}
