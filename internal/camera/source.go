package camera

import "context"

// Source — источник кадров (физическая камера, RTSP-поток, файл в тестах).
// Capture блокируется до готовности следующего кадра либо до отмены контекста.
// Недоступность устройства на старте обязана всплывать как ошибка —
// сессия мониторинга не стартует вслепую.
type Source interface {
	Capture(ctx context.Context) (*Frame, error)
}
