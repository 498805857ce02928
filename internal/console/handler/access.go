package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/integra-gate/internal/console/service"
	"github.com/xela07ax/integra-gate/internal/domain"
)

type AccessHandler struct {
	service *service.AccessService
	logger  *zap.Logger
}

func NewAccessHandler(s *service.AccessService, logger *zap.Logger) *AccessHandler {
	return &AccessHandler{service: s, logger: logger.Named("access-handler")}
}

// GetHistory отдает историю попыток.
// Фильтры в query: ?from=2026-08-01&to=2026-08-29&search=Ivanov&decision=DENIED
func (h *AccessHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.AccessFilter{
		SearchTerm: q.Get("search"),
		Decision:   q.Get("decision"),
	}

	if raw := q.Get("from"); raw != "" {
		t, err := parseHistoryDate(raw)
		if err != nil {
			http.Error(w, "invalid 'from' date", http.StatusBadRequest)
			return
		}
		filter.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := parseHistoryDate(raw)
		if err != nil {
			http.Error(w, "invalid 'to' date", http.StatusBadRequest)
			return
		}
		// Дата без времени означает «по конец дня»
		filter.To = t.Add(24*time.Hour - time.Nanosecond)
	}

	records, err := h.service.GetHistory(r.Context(), filter)
	if err != nil {
		h.logger.Error("history query failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

func parseHistoryDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
