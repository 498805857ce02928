package registry

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Normalize приводит текст номера к каноническому виду перед сравнением:
// верхний регистр, без пробелов и разделителей. "ab 123-cd" == "AB123CD".
func Normalize(plate string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(plate) {
		switch r {
		case ' ', '-', '.', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// VehicleStore описывает требования к долговременному хранилищу реестра.
type VehicleStore interface {
	AllPlates(ctx context.Context) ([]string, error)
}

// VehicleRegistry — горячий реестр зарегистрированных номеров.
// Представляет In-memory cache реестра: долговременное хранение — в Postgres,
// но в рантайме цикл кадров обращается только к памяти (Hot Path).
// Синхронизация между инстансами — через Redis Pub/Sub (см. listener.go).
type VehicleRegistry struct {
	mu     sync.RWMutex
	plates map[string]struct{} // Нормализованные номера

	store  VehicleStore // Используется только для Refresh()
	logger *zap.Logger
}

func NewVehicleRegistry(store VehicleStore, logger *zap.Logger) *VehicleRegistry {
	return &VehicleRegistry{
		plates: make(map[string]struct{}),
		store:  store,
		logger: logger.Named("vehicle-registry"),
	}
}

// Lookup отвечает, зарегистрирован ли номер. Только RAM, без I/O.
// Нет в реестре — значит не зарегистрирован (Default Deny).
func (r *VehicleRegistry) Lookup(plate string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.plates[Normalize(plate)]
	return ok
}

// Refresh выполняет «холодную загрузку» всего реестра из Postgres в память
// (при старте и при переподключении к Redis).
func (r *VehicleRegistry) Refresh(ctx context.Context) error {
	plates, err := r.store.AllPlates(ctx)
	if err != nil {
		return err
	}

	next := make(map[string]struct{}, len(plates))
	for _, p := range plates {
		next[Normalize(p)] = struct{}{}
	}

	r.mu.Lock()
	r.plates = next
	r.mu.Unlock()

	r.logger.Info("vehicle registry refreshed", zap.Int("count", len(next)))
	return nil
}

// Apply обновляет одну запись по сигналу из Pub/Sub.
func (r *VehicleRegistry) Apply(plate string, registered bool) {
	norm := Normalize(plate)

	r.mu.Lock()
	defer r.mu.Unlock()
	if registered {
		r.plates[norm] = struct{}{}
	} else {
		delete(r.plates, norm)
	}
}

// Snapshot возвращает копию текущего набора (для прогрева Redis).
func (r *VehicleRegistry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.plates))
	for p := range r.plates {
		out = append(out, p)
	}
	return out
}
