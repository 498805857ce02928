package face

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DirUnknownSink складывает снимки неопознанных лиц в каталог на диске
// (unknown_<unix>.jpg — как в исходной связке с каталогом UnknownFaces).
type DirUnknownSink struct {
	dir string
	now func() time.Time
}

func NewDirUnknownSink(dir string) (*DirUnknownSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create unknown faces dir: %w", err)
	}
	return &DirUnknownSink{dir: dir, now: time.Now}, nil
}

func (s *DirUnknownSink) Capture(_ context.Context, crop []byte) error {
	if len(crop) == 0 {
		return nil // Детектор не приложил вырезку — писать нечего
	}
	name := fmt.Sprintf("unknown_%d.jpg", s.now().UnixNano())
	return os.WriteFile(filepath.Join(s.dir, name), crop, 0o644)
}
