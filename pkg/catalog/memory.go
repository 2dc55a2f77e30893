package catalog

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Memory keeps datasets for the duration of a run.
type Memory struct {
	mu       sync.RWMutex
	datasets map[string]*Dataset
}

func NewMemory() *Memory {
	return &Memory{datasets: make(map[string]*Dataset)}
}

func (m *Memory) Load(_ context.Context, name string) (*Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ds, ok := m.datasets[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "dataset '%s' was not produced", name)
	}
	return ds, nil
}

func (m *Memory) Save(_ context.Context, name string, ds *Dataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.datasets[name] = ds
	return nil
}
