package plate

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/integra-gate/internal/infra"
	"go.uber.org/zap"
)

type cacheEntry struct {
	text     string
	cachedAt time.Time
}

// Cache хранит результаты извлечений по отпечатку кадра, чтобы не дергать
// вендора повторно за одинаковые кадры. Два уровня: L1 — локальная мапа,
// L2 — Redis (общий между инстансами gated, опционален).
// Запись старше окна никогда не отдается.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry

	ttl    time.Duration
	now    func() time.Time // Инжектируемые часы для тестов
	rdb    *redis.Client    // nil — работаем только на L1
	logger *zap.Logger
}

func NewCache(ttl time.Duration, rdb *redis.Client, logger *zap.Logger) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
		rdb:     rdb,
		logger:  logger.Named("plate-cache"),
	}
}

// Get возвращает закэшированный текст номера (включая пустой «номера нет»).
// Второе значение — был ли hit.
func (c *Cache) Get(ctx context.Context, fingerprint string) (string, bool) {
	c.mu.Lock()
	c.evictExpired()
	if e, ok := c.entries[fingerprint]; ok {
		c.mu.Unlock()
		return e.text, true
	}
	c.mu.Unlock()

	if c.rdb == nil {
		return "", false
	}

	// L2: TTL обеспечивает сам Redis
	val, err := c.rdb.Get(ctx, infra.GetPlateCacheKey(fingerprint)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("plate cache L2 read failed", zap.Error(err))
		}
		return "", false
	}
	return val, true
}

// Set записывает результат извлечения в оба уровня.
func (c *Cache) Set(ctx context.Context, fingerprint, text string) {
	c.mu.Lock()
	c.entries[fingerprint] = cacheEntry{text: text, cachedAt: c.now()}
	c.mu.Unlock()

	if c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, infra.GetPlateCacheKey(fingerprint), text, c.ttl).Err(); err != nil {
		c.logger.Warn("plate cache L2 write failed", zap.Error(err))
	}
}

// evictExpired лениво выметает протухшие записи. Вызывается под mu.
func (c *Cache) evictExpired() {
	deadline := c.now().Add(-c.ttl)
	for key, e := range c.entries {
		if e.cachedAt.Before(deadline) {
			delete(c.entries, key)
		}
	}
}
