package audit

import (
	"time"

	"github.com/xela07ax/integra-gate/internal/domain"
)

// AttemptEvent — одна запись журнала попыток: каждый обработанный кадр
// дает ровно одну такую запись, независимо от исхода.
type AttemptEvent struct {
	ID         string    `json:"id"`       // UUID попытки
	TraceID    string    `json:"trace_id"` // Сквозной ID запроса
	SessionID  string    `json:"session_id"`
	Decision   string    `json:"decision"` // "GRANTED" / "DENIED"
	Reason     string    `json:"reason"`
	Detail     string    `json:"detail"`
	IdentityID int64     `json:"identity_id,omitempty"` // 0 — личность не установлена
	Plate      string    `json:"plate,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// FirstGrant — дедуплицированная запись «первый проход личности в сессии».
// Не больше одной на личность за сессию.
type FirstGrant struct {
	SessionID  string    `json:"session_id"`
	IdentityID int64     `json:"identity_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// AttemptFromDecision разворачивает решение движка в плоскую запись журнала.
func AttemptFromDecision(d *domain.GateDecision) AttemptEvent {
	e := AttemptEvent{
		ID:        d.ID,
		TraceID:   d.TraceID,
		SessionID: d.SessionID,
		Decision:  string(d.Decision),
		Reason:    string(d.Reason),
		Detail:    d.Detail,
		Plate:     d.Plate,
		Timestamp: d.Timestamp,
	}
	if d.Identity != nil {
		e.IdentityID = d.Identity.ID
	}
	return e
}
