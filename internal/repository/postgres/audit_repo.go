package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/integra-gate/internal/audit"
	"github.com/xela07ax/integra-gate/internal/domain"
)

// AuditRepo хранит журнал попыток, first-grant записи и сводки сессий.
type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// WriteAttempts сохраняет пачку попыток одним запросом (Bulk Insert).
func (r *AuditRepo) WriteAttempts(ctx context.Context, events []audit.AttemptEvent) error {
	if len(events) == 0 {
		return nil
	}

	// Количество колонок в таблице gate_attempts
	numFields := 9
	placeholderStr := ""
	vals := make([]interface{}, 0, len(events)*numFields)

	// Динамически строим запрос для пакетной вставки
	for i, e := range events {
		p := i * numFields
		placeholderStr += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d),",
			p+1, p+2, p+3, p+4, p+5, p+6, p+7, p+8, p+9)

		// identity_id = 0 означает «личность не установлена» — в базе это NULL
		var identityID interface{}
		if e.IdentityID != 0 {
			identityID = e.IdentityID
		}

		vals = append(vals,
			e.ID, e.TraceID, e.SessionID, e.Decision,
			e.Reason, e.Detail, identityID, e.Plate, e.Timestamp,
		)
	}

	// Убираем лишнюю запятую в конце
	query := fmt.Sprintf(
		"INSERT INTO gate_attempts (id, trace_id, session_id, decision, reason, detail, identity_id, plate, timestamp) VALUES %s",
		strings.TrimSuffix(placeholderStr, ","),
	)

	_, err := r.pool.Exec(ctx, query, vals...)
	return err
}

// InsertFirstGrant фиксирует первый проход личности в сессии.
// Вставка идемпотентна: повтор по (session_id, identity_id) не даст второй строки.
func (r *AuditRepo) InsertFirstGrant(ctx context.Context, grant audit.FirstGrant) error {
	query := `
		INSERT INTO gate_access (session_id, identity_id, timestamp)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id, identity_id) DO NOTHING`

	_, err := r.pool.Exec(ctx, query, grant.SessionID, grant.IdentityID, grant.Timestamp)
	if err != nil {
		return fmt.Errorf("postgres: failed to insert first-grant: %w", err)
	}
	return nil
}

// InsertSessionSummary сохраняет финальную сводку прогона мониторинга.
func (r *AuditRepo) InsertSessionSummary(ctx context.Context, s domain.SessionSummary) error {
	query := `
		INSERT INTO gate_sessions (session_id, started_at, ended_at, duration_seconds, frames_processed, decisions_made, admitted_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		s.SessionID, s.StartedAt, s.EndedAt, s.Duration.Seconds(),
		s.FramesProcessed, s.DecisionsMade, s.AdmittedCount,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to insert session summary: %w", err)
	}
	return nil
}

// FetchAccessHistory отдает историю попыток для Console API с фильтрами
// по дате, статусу и поиском по имени/номеру пропуска.
func (r *AuditRepo) FetchAccessHistory(ctx context.Context, f domain.AccessFilter) ([]domain.AccessRecord, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT
			a.id, a.timestamp, a.decision, a.reason, a.plate,
			COALESCE(a.identity_id, 0), COALESCE(i.name, ''), COALESCE(i.external_id, ''),
			(SELECT COUNT(*) FROM gate_access g WHERE g.identity_id = a.identity_id)
		FROM gate_attempts a
		LEFT JOIN identities i ON i.id = a.identity_id
		WHERE 1=1`)

	args := make([]interface{}, 0, 4)

	if !f.From.IsZero() {
		args = append(args, f.From)
		fmt.Fprintf(&sb, " AND a.timestamp >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		fmt.Fprintf(&sb, " AND a.timestamp <= $%d", len(args))
	}
	if f.Decision != "" {
		args = append(args, f.Decision)
		fmt.Fprintf(&sb, " AND a.decision = $%d", len(args))
	}
	if f.SearchTerm != "" {
		// Поиск: имя по подстроке, номер пропуска — точное совпадение
		args = append(args, "%"+f.SearchTerm+"%", f.SearchTerm)
		fmt.Fprintf(&sb, " AND (i.name ILIKE $%d OR i.external_id = $%d)", len(args)-1, len(args))
	}

	sb.WriteString(" ORDER BY a.timestamp DESC LIMIT 200")

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: history query failed: %w", err)
	}
	defer rows.Close()

	records := make([]domain.AccessRecord, 0)
	for rows.Next() {
		var rec domain.AccessRecord
		if err := rows.Scan(
			&rec.ID, &rec.Timestamp, &rec.Decision, &rec.Reason, &rec.Plate,
			&rec.IdentityID, &rec.Name, &rec.ExternalID, &rec.AccessCount,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetGateStats собирает агрегаты для дашборда за последние 24 часа.
func (r *AuditRepo) GetGateStats(ctx context.Context) (*domain.GateStats, error) {
	stats := &domain.GateStats{TopReasons: make(map[string]int64)}

	// 1. Общие счетчики решений
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE decision = 'GRANTED'),
			COUNT(*) FILTER (WHERE decision = 'DENIED')
		FROM gate_attempts
		WHERE timestamp > NOW() - INTERVAL '24 hours'`).Scan(
		&stats.TotalAttempts, &stats.GrantedCount, &stats.DeniedCount,
	)
	if err != nil {
		return nil, err
	}
	if stats.TotalAttempts > 0 {
		stats.DenialRatio = float64(stats.DeniedCount) / float64(stats.TotalAttempts)
	}

	// 2. Частые причины отказов
	rows, err := r.pool.Query(ctx, `
		SELECT reason, COUNT(*)
		FROM gate_attempts
		WHERE decision = 'DENIED' AND timestamp > NOW() - INTERVAL '24 hours'
		GROUP BY reason
		ORDER BY COUNT(*) DESC
		LIMIT 5`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var reason string
		var count int64
		if err := rows.Scan(&reason, &count); err != nil {
			return nil, err
		}
		stats.TopReasons[reason] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 3. Активность по часам
	hourly, err := r.pool.Query(ctx, `
		SELECT to_char(date_trunc('hour', timestamp), 'HH24:00'), COUNT(*)
		FROM gate_attempts
		WHERE timestamp > NOW() - INTERVAL '24 hours'
		GROUP BY 1
		ORDER BY 1`)
	if err != nil {
		return nil, err
	}
	defer hourly.Close()

	for hourly.Next() {
		var p domain.ActivityPoint
		if err := hourly.Scan(&p.Hour, &p.Count); err != nil {
			return nil, err
		}
		stats.HourlyActivity = append(stats.HourlyActivity, p)
	}
	return stats, hourly.Err()
}
