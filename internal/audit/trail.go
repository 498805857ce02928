package audit

/*
Файл trail.go реализует журнал решений шлюза (Audit Trail).

Ключевые особенности архитектуры:
- Non-blocking Logging: попытки уходят через неблокирующий канал из Hot Path
  цикла кадров — задержки записи в БД не влияют на каденс обработки.
- Batching: накопление попыток в памяти и пакетная запись (Bulk Insert)
  в PostgreSQL по таймеру или при достижении лимита пачки.
- Ordering: записи попыток вставляются в порядке обработки кадров; first-grant
  пишется синхронно ДО постановки попытки в очередь, поэтому в журнале он
  гарантированно не позже первой GRANTED-попытки этой личности.
- Drain Pattern & Graceful Shutdown: при остановке канал закрывается и воркер
  дочитывает остатки с финальным flush — потерь при перезагрузке нет.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xela07ax/integra-gate/internal/domain"
	"go.uber.org/zap"
)

// Storage определяет, куда физически сохраняются записи журнала.
type Storage interface {
	// WriteAttempts сохраняет пачку попыток за один раз
	WriteAttempts(ctx context.Context, events []AttemptEvent) error
	InsertFirstGrant(ctx context.Context, grant FirstGrant) error
	InsertSessionSummary(ctx context.Context, summary domain.SessionSummary) error
}

// Sink — интерфейс журнала, который видит движок.
type Sink interface {
	AppendAttempt(event AttemptEvent)
	AppendFirstGrant(ctx context.Context, grant FirstGrant) error
	AppendSessionSummary(ctx context.Context, summary domain.SessionSummary) error
}

type Trail struct {
	ch        chan AttemptEvent // Буфер для асинхронности
	repo      Storage
	logger    *zap.Logger
	wg        sync.WaitGroup
	batchSize int
	flushIvl  time.Duration
	// Защита от вызова AppendAttempt после остановки
	isClosed int32 // Атомарный флаг (0 - открыт, 1 - закрыт)
}

func NewTrail(repo Storage, bufferSize, batchSize int, flushIvl time.Duration, logger *zap.Logger) *Trail {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushIvl <= 0 {
		flushIvl = 500 * time.Millisecond
	}
	return &Trail{
		ch:        make(chan AttemptEvent, bufferSize),
		repo:      repo,
		logger:    logger.With(zap.String("mod", "audit-trail")),
		batchSize: batchSize,
		flushIvl:  flushIvl,
	}
}

func (t *Trail) Start() {
	t.wg.Add(1)
	go t.worker()
}

// Stop «запирает» вход в канал и ждет, пока воркер всё допишет.
func (t *Trail) Stop() {
	// 1. Сначала ставим флаг
	atomic.StoreInt32(&t.isClosed, 1)

	// 2. Даем крошечную паузу, чтобы текущие AppendAttempt успели проскочить
	time.Sleep(10 * time.Millisecond)

	// 3. Drain Pattern: завершение воркера — только через закрытие канала
	t.logger.Info("stopping audit trail: closing channel and flushing buffer...")
	close(t.ch)
	t.wg.Wait()
	t.logger.Info("audit trail stopped gracefully")
}

// AppendAttempt ставит попытку в очередь на пакетную запись. Не блокирует.
func (t *Trail) AppendAttempt(event AttemptEvent) {
	// Убеждаемся, что таймстемп всегда проставлен
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Атомарно проверяем, не закрыт ли канал
	if atomic.LoadInt32(&t.isClosed) == 1 {
		t.logger.Warn("attempt record dropped: trail is stopping", zap.String("id", event.ID))
		return
	}

	// Стратегия Load Shedding: при переполнении пишем хотя бы в логгер,
	// чтобы след попытки не исчез бесследно
	select {
	case t.ch <- event:
	default:
		t.logger.Error("audit_buffer_overflow",
			zap.String("session_id", event.SessionID),
			zap.String("trace_id", event.TraceID),
			zap.String("decision", event.Decision),
		)
	}
}

// AppendFirstGrant пишет запись первого прохода синхронно: она обязана
// оказаться в журнале не позже соответствующей GRANTED-попытки.
func (t *Trail) AppendFirstGrant(ctx context.Context, grant FirstGrant) error {
	return t.repo.InsertFirstGrant(ctx, grant)
}

// AppendSessionSummary фиксирует сводку сессии (вызывается из FINALIZING).
func (t *Trail) AppendSessionSummary(ctx context.Context, summary domain.SessionSummary) error {
	return t.repo.InsertSessionSummary(ctx, summary)
}

// BufferFill — текущее заполнение канала (для метрики).
func (t *Trail) BufferFill() int {
	return len(t.ch)
}

func (t *Trail) worker() {
	defer t.wg.Done()

	batch := make([]AttemptEvent, 0, t.batchSize)
	ticker := time.NewTicker(t.flushIvl)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			// Background: основной контекст к этому моменту может быть закрыт
			if err := t.repo.WriteAttempts(context.Background(), batch); err != nil {
				t.logger.Error("audit flush failed", zap.Error(err))
			}
			batch = batch[:0]
		}
	}

	for {
		select {
		case event, ok := <-t.ch:
			if !ok {
				// Канал закрыт в Stop(): воркер сначала вычитал остатки,
				// теперь финальный flush и выход
				flush()
				t.logger.Info("audit worker finished")
				return
			}
			batch = append(batch, event)
			if len(batch) >= t.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
