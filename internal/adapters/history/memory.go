package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/okian/furlong/internal/domain/model"
)

// InMemory is a Provider over a map keyed by entity id.
type InMemory struct {
	mu   sync.RWMutex
	data map[string]*model.HistoricalContext
}

// NewInMemory creates a provider over data. The map is copied.
func NewInMemory(data map[string]*model.HistoricalContext) *InMemory {
	m := &InMemory{data: make(map[string]*model.HistoricalContext, len(data))}
	for id, h := range data {
		m.data[id] = h
	}
	return m
}

// LoadFile reads a JSON object of entity id to historical context.
func LoadFile(path string) (*InMemory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]*model.HistoricalContext
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	return NewInMemory(data), nil
}

// Put replaces the context stored for entityID.
func (m *InMemory) Put(entityID string, h *model.HistoricalContext) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[entityID] = h
}

// Len returns the number of entities held.
func (m *InMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// History implements Provider.
func (m *InMemory) History(ctx context.Context, entityID string, _ time.Time) (*model.HistoricalContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[entityID], nil
}
