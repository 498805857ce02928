package infra

import "fmt"

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "integra"
)

// Ключи для состояния (Sets и кэш)
const (
	RedisKeyVehicleSet    = RedisNamespace + ":vehicles:registered_set"
	RedisKeyLockVehicles  = RedisNamespace + ":lock:warmup:vehicles"
	RedisKeyPlateCachePfx = RedisNamespace + ":plates:extraction:" // + fingerprint кадра
)

// Каналы Pub/Sub (события)
const (
	// RedisChanVehicleRegistry — сигнал об изменении реестра транспорта.
	// Формат: "<plate>:on" (регистрация) / "<plate>:off" (удаление).
	RedisChanVehicleRegistry = RedisNamespace + ":vehicles:registry-signal"
)

// GetPlateCacheKey собирает ключ L2-кэша извлечений по отпечатку кадра.
func GetPlateCacheKey(fingerprint string) string {
	return fmt.Sprintf("%s%s", RedisKeyPlateCachePfx, fingerprint)
}
