package domain

import "time"

// SessionSummary — финальная сводка одного прогона мониторинга.
// Пишется в журнал ровно один раз при завершении сессии (FINALIZING),
// в том числе при отмене — пути "тихого выхода" нет.
type SessionSummary struct {
	SessionID       string        `json:"session_id"`
	StartedAt       time.Time     `json:"started_at"`
	EndedAt         time.Time     `json:"ended_at"`
	Duration        time.Duration `json:"duration"`
	FramesProcessed int64         `json:"frames_processed"`
	DecisionsMade   int64         `json:"decisions_made"`
	AdmittedCount   int           `json:"admitted_count"` // |admitted_identity_ids|
}

// AccessRecord — строка истории проходов для Console API
// (join попытки с данными человека, как в исходной таблице истории).
type AccessRecord struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Decision    Decision  `json:"decision"`
	Reason      string    `json:"reason"`
	Plate       string    `json:"plate,omitempty"`
	IdentityID  int64     `json:"identity_id,omitempty"`
	Name        string    `json:"name,omitempty"`
	ExternalID  string    `json:"external_id,omitempty"`
	AccessCount int64     `json:"access_count"` // Сколько раз всего пускали этого человека
}

// AccessFilter — фильтры выборки истории (диапазон дат, поиск, статус).
type AccessFilter struct {
	From       time.Time
	To         time.Time
	SearchTerm string // Имя (LIKE) или точный external_id
	Decision   string // "GRANTED"/"DENIED"/"" (все)
}
