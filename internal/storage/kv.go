// Package storage реализует персистентное хранилище ключ-значение.
// Контракт намеренно узкий: атомарные get/set/delete по одному ключу,
// значением всегда является JSON-документ.
package storage

import "context"

// KV описывает контракт хранилища ключ-значение. Каждая операция атомарна
// по своему ключу: частично записанных значений наблюдать нельзя.
type KV interface {
	// Get возвращает значение по ключу и признак его наличия.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set сохраняет значение по ключу, перезаписывая существующее.
	Set(ctx context.Context, key string, value []byte) error
	// Update атомарно заменяет значение по ключу: fn получает текущее
	// значение и возвращает новое. Конкурирующие Update по одному ключу
	// сериализуются, поэтому последовательность «прочитать, проверить,
	// записать» нельзя перемешать между вызывающими. Ошибка из fn
	// отменяет запись и возвращается без изменений.
	Update(ctx context.Context, key string, fn func(current []byte, found bool) ([]byte, error)) error
	// Delete удаляет значение по ключу. Отсутствие ключа не является ошибкой.
	Delete(ctx context.Context, key string) error
}
