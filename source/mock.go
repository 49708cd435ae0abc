package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// MockSource is an in-memory Source for testing.
type MockSource struct {
	name    string
	mu      sync.RWMutex
	entries map[string][]byte
	listErr error
}

// NewMock creates an in-memory source holding the given entries.
func NewMock(name string, entries map[string]string) *MockSource {
	m := &MockSource{name: name, entries: make(map[string][]byte, len(entries))}
	for k, v := range entries {
		m.entries[k] = []byte(v)
	}
	return m
}

// Put adds or replaces an entry.
func (m *MockSource) Put(name, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[name] = []byte(content)
}

// Delete removes an entry.
func (m *MockSource) Delete(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, name)
}

// FailList makes subsequent List calls return err. Pass nil to reset.
func (m *MockSource) FailList(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
}

// Name returns the mock's name.
func (m *MockSource) Name() string {
	return m.name
}

// List returns the sorted entry names.
func (m *MockSource) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.listErr != nil {
		return nil, m.listErr
	}

	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Open returns a reader over a copy of the entry.
func (m *MockSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, m.name, name)
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(data))), nil
}

// Close is a no-op.
func (m *MockSource) Close() error {
	return nil
}
