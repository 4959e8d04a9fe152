package storage

import (
	"context"
	"sync"
)

// Memory — реализация KV в памяти процесса. Используется в тестах.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory создаёт пустое хранилище в памяти.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get возвращает копию значения по ключу.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, true, nil
}

// Set сохраняет копию значения по ключу.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[key] = cp
	return nil
}

// Update атомарно заменяет значение по ключу: fn выполняется под
// блокировкой, конкурирующие Update сериализуются.
func (m *Memory) Update(_ context.Context, key string, fn func(current []byte, found bool) ([]byte, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.data[key]
	var cp []byte
	if ok {
		cp = make([]byte, len(current))
		copy(cp, current)
	}
	next, err := fn(cp, ok)
	if err != nil {
		return err
	}
	stored := make([]byte, len(next))
	copy(stored, next)
	m.data[key] = stored
	return nil
}

// Delete удаляет значение по ключу.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}
