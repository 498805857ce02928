package registry

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/integra-gate/internal/infra"
	"go.uber.org/zap"
)

// ListenSignals — «живучая» подписка на сигналы изменения реестра.
// Обрабатывает переподключения: при каждом успешном коннекте делает Refresh,
// чтобы не потерять сигналы, прилетевшие за время обрыва.
func (r *VehicleRegistry) ListenSignals(ctx context.Context, rdb *redis.Client) {
	for {
		pubsub := rdb.Subscribe(ctx, infra.RedisChanVehicleRegistry)

		// Проверка успешности подписки
		if _, err := pubsub.Receive(ctx); err != nil {
			r.logger.Error("failed to subscribe", zap.String("chan", infra.RedisChanVehicleRegistry), zap.Error(err))
			pubsub.Close()
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
				continue
			}
		}

		// Синхронизация при каждом успешном коннекте
		if err := r.Refresh(ctx); err != nil {
			r.logger.Error("registry sync failed on reconnect", zap.Error(err))
		}

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break loop // Канал закрыт, идем на переподключение
				}

				// Разбор формата "plate:on" / "plate:off"
				idx := strings.LastIndex(msg.Payload, ":")
				if idx <= 0 {
					r.logger.Error("invalid registry signal", zap.String("payload", msg.Payload))
					continue
				}

				plate := msg.Payload[:idx]
				registered := msg.Payload[idx+1:] == "on"
				r.Apply(plate, registered)
			}
		}

		pubsub.Close()
		time.Sleep(time.Second)
	}
}

// Warmup заливает реестр в Redis-set, если тот пуст (один инстанс под SetNX-локом).
// Набор в Redis — опора для внешних потребителей и для диагностики.
func (r *VehicleRegistry) Warmup(ctx context.Context, rdb *redis.Client) error {
	// Распределенная блокировка, чтобы только один инстанс грел кэш
	ok, err := rdb.SetNX(ctx, infra.RedisKeyLockVehicles, "processing", 30*time.Second).Result()
	if err != nil || !ok {
		return nil // Либо ошибка сети, либо другой инстанс уже греет
	}

	count, err := rdb.SCard(ctx, infra.RedisKeyVehicleSet).Result()
	if err != nil {
		count = 0
		r.logger.Warn("could not check Redis set size, proceeding with warm-up", zap.Error(err))
	}

	plates := r.Snapshot()
	if count == 0 && len(plates) > 0 {
		r.logger.Info("Redis registry set is empty, performing warm-up from DB...",
			zap.Int("count", len(plates)))

		pipe := rdb.Pipeline()
		for _, p := range plates {
			pipe.SAdd(ctx, infra.RedisKeyVehicleSet, p)
		}
		_, err = pipe.Exec(ctx)
		return err
	}

	return nil
}
