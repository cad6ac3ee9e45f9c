package cache

import (
	"context"
	"time"
)

// Cache интерфейс key-value кэша с TTL. Внедряется явной зависимостью,
// чтобы в тестах можно было подставить реализацию в памяти.
type Cache interface {
	// Get возвращает значение и признак его наличия.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set сохраняет значение с указанным TTL. Нулевой TTL означает без срока.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete удаляет ключ.
	Delete(ctx context.Context, key string) error

	// Incr атомарно увеличивает счетчик. TTL выставляется только при
	// создании ключа. Используется ограничителем частоты запросов.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
