package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errClosed = errors.New("cache: closed")

// Memory is an in-process Store used for tests and single-node development.
// All operations take the mutex for their full duration, so SetNX and GetDel
// keep their atomicity guarantees without a backing server.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry

	stop chan struct{}
	once sync.Once
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemory creates an in-process store and starts a background sweeper that
// evicts expired keys.
func NewMemory() *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		stop:    make(chan struct{}),
	}
	go m.sweep()
	return m
}

func (m *Memory) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for key, e := range m.entries {
				if now.After(e.expiresAt) {
					delete(m.entries, key)
				}
			}
			m.mu.Unlock()
		}
	}
}

// live reports whether the key holds an unexpired entry. Callers must hold mu.
func (m *Memory) live(key string, now time.Time) (memoryEntry, bool) {
	e, ok := m.entries[key]
	if !ok || now.After(e.expiresAt) {
		return memoryEntry{}, false
	}
	return e, true
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (m *Memory) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if _, ok := m.live(key, now); ok {
		return false, nil
	}
	m.entries[key] = memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: now.Add(ttl),
	}
	return true, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.live(key, time.Now())
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (m *Memory) GetDel(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.live(key, time.Now())
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.entries, key)
	return e.value, nil
}

func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.live(key, time.Now())
	return ok, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

func (m *Memory) Ping(context.Context) error {
	select {
	case <-m.stop:
		return errClosed
	default:
		return nil
	}
}

func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}
