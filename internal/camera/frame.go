package camera

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Frame — один кадр с камеры. Содержимое (JPEG-байты) непрозрачно для ядра:
// всю работу с пикселями выполняют внешние детекторы.
type Frame struct {
	ID         string    `json:"id"`
	Data       []byte    `json:"-"`
	CapturedAt time.Time `json:"captured_at"`

	fingerprint string // Лениво посчитанный отпечаток содержимого
}

func NewFrame(id string, data []byte, capturedAt time.Time) *Frame {
	return &Frame{ID: id, Data: data, CapturedAt: capturedAt}
}

// Fingerprint возвращает стабильный отпечаток содержимого кадра.
// Используется как ключ кэша извлечений номеров: одинаковые кадры
// в пределах окна не дергают внешний vision-сервис повторно.
func (f *Frame) Fingerprint() string {
	if f.fingerprint == "" {
		sum := sha256.Sum256(f.Data)
		f.fingerprint = hex.EncodeToString(sum[:16])
	}
	return f.fingerprint
}
