// Package tokenstore persists the access/refresh token pair.
//
// Two implementations are provided: Memory for tests and short-lived
// processes, and File for CLI-style clients that keep a session between
// runs.
package tokenstore

import (
	"sync"

	campushub "github.com/campushub/campushub-go"
)

// Memory is an in-memory TokenStore.
type Memory struct {
	mu   sync.RWMutex
	pair campushub.TokenPair
}

// compile-time check
var _ campushub.TokenStore = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory { return &Memory{} }

// Load returns the stored pair.
func (m *Memory) Load() (campushub.TokenPair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pair, nil
}

// Save replaces the stored pair.
func (m *Memory) Save(p campushub.TokenPair) error {
	m.mu.Lock()
	m.pair = p
	m.mu.Unlock()
	return nil
}

// Clear removes the stored pair.
func (m *Memory) Clear() error {
	return m.Save(campushub.TokenPair{})
}
