package blobstore

import (
	"context"
	"sync"

	"codeworkspace/internal/metrics"
)

// Memory keeps blobs in process memory. Values are copied in and out.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: map[string][]byte{}}
}

func (m *Memory) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	metrics.RecordBlobOperation(m.Type(), "load", true)
	return cloneBytes(m.data[key]), nil
}

func (m *Memory) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = cloneBytes(data)
	metrics.RecordBlobOperation(m.Type(), "save", true)
	return nil
}

func (m *Memory) Type() string { return "memory" }

func (m *Memory) Close() error { return nil }
