package face

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Trainer — внешняя способность переобучения модели по накопленным снимкам.
// Сам алгоритм обучения вне платформы; мы только дергаем и учитываем.
type Trainer interface {
	// CaptureSamples собирает обучающие снимки для личности, возвращает
	// фактическое число сохраненных образцов.
	CaptureSamples(ctx context.Context, identityID int64, name string, samples int) (int, error)
	// Train переобучает модель, возвращает число лиц в обучающем наборе.
	Train(ctx context.Context) (int, error)
}

// TrainingRecorder ведет журнал обучений (таблица training_log).
type TrainingRecorder interface {
	LogTraining(ctx context.Context, facesCount int, status string) error
}

// Training связывает внешний тренер с журналом обучений.
type Training struct {
	trainer  Trainer
	recorder TrainingRecorder
	logger   *zap.Logger
}

func NewTraining(trainer Trainer, recorder TrainingRecorder, logger *zap.Logger) *Training {
	return &Training{
		trainer:  trainer,
		recorder: recorder,
		logger:   logger.Named("face-training"),
	}
}

// Retrain запускает переобучение и фиксирует итог в журнале.
func (t *Training) Retrain(ctx context.Context) (int, error) {
	count, err := t.trainer.Train(ctx)
	if err != nil {
		if logErr := t.recorder.LogTraining(ctx, 0, "Failed"); logErr != nil {
			t.logger.Error("failed to record training failure", zap.Error(logErr))
		}
		return 0, fmt.Errorf("model training failed: %w", err)
	}

	if err := t.recorder.LogTraining(ctx, count, "Completed"); err != nil {
		t.logger.Error("failed to record training log", zap.Error(err))
	}

	t.logger.Info("face model retrained", zap.Int("faces", count))
	return count, nil
}

// CaptureSamples прокидывает сбор образцов во внешний тренер.
func (t *Training) CaptureSamples(ctx context.Context, identityID int64, name string, samples int) (int, error) {
	saved, err := t.trainer.CaptureSamples(ctx, identityID, name, samples)
	if err != nil {
		return 0, fmt.Errorf("sample capture failed: %w", err)
	}
	t.logger.Info("training samples captured",
		zap.Int64("identity_id", identityID),
		zap.Int("saved", saved))
	return saved, nil
}
