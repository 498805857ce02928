package camera

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// LatestSlot — буфер на один кадр между продюсером (захват с камеры)
// и циклом принятия решений. Семантика latest-wins: недоставленный старый
// кадр молча затирается новым. Устаревание допустимо, очередь — нет:
// кадры одноразовые, backpressure здесь не нужен.
type LatestSlot struct {
	mu    sync.Mutex
	frame *Frame
}

func NewLatestSlot() *LatestSlot {
	return &LatestSlot{}
}

// Put кладет кадр в слот, затирая предыдущий.
func (s *LatestSlot) Put(f *Frame) {
	s.mu.Lock()
	s.frame = f
	s.mu.Unlock()
}

// Take забирает кадр и очищает слот. nil — свежего кадра еще нет.
func (s *LatestSlot) Take() *Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.frame
	s.frame = nil
	return f
}

// Produce гоняет захват кадров в фоне, наполняя слот.
// Завершается по отмене контекста; ошибки захвата логируются и не фатальны —
// решающий цикл просто не увидит кадра на этом тике.
func Produce(ctx context.Context, src Source, slot *LatestSlot, logger *zap.Logger) {
	for {
		if ctx.Err() != nil {
			return
		}

		frame, err := src.Capture(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("frame capture failed", zap.Error(err))
			continue
		}
		slot.Put(frame)
	}
}
