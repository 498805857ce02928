package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/integra-gate/internal/domain"
)

// IdentityRepo хранит справочник зарегистрированных людей и журнал обучений.
type IdentityRepo struct {
	pool *pgxpool.Pool
}

func NewIdentityRepo(pool *pgxpool.Pool) *IdentityRepo {
	return &IdentityRepo{pool: pool}
}

// Add регистрирует человека. Повторная регистрация того же external_id
// не создает дубликата: возвращается уже существующая запись — ее ID
// используется как метка обучающего набора.
func (r *IdentityRepo) Add(ctx context.Context, name, externalID, email string) (*domain.Identity, error) {
	existing := &domain.Identity{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, external_id, email, registered_at
		FROM identities WHERE external_id = $1`, externalID).Scan(
		&existing.ID, &existing.Name, &existing.ExternalID, &existing.Email, &existing.RegisteredAt,
	)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("postgres: identity lookup failed: %w", err)
	}

	id := &domain.Identity{
		Name:         name,
		ExternalID:   externalID,
		Email:        email,
		RegisteredAt: time.Now(),
	}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO identities (name, external_id, email, registered_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, name, externalID, email, id.RegisteredAt).Scan(&id.ID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to insert identity: %w", err)
	}
	return id, nil
}

// GetIdentity возвращает запись по метке распознавателя.
func (r *IdentityRepo) GetIdentity(ctx context.Context, id int64) (*domain.Identity, error) {
	identity := &domain.Identity{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, external_id, email, registered_at
		FROM identities WHERE id = $1`, id).Scan(
		&identity.ID, &identity.Name, &identity.ExternalID, &identity.Email, &identity.RegisteredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, err
	}
	return identity, nil
}

// List отдает всех зарегистрированных людей для Console API.
func (r *IdentityRepo) List(ctx context.Context) ([]domain.Identity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, external_id, email, registered_at
		FROM identities ORDER BY registered_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	identities := make([]domain.Identity, 0)
	for rows.Next() {
		var id domain.Identity
		if err := rows.Scan(&id.ID, &id.Name, &id.ExternalID, &id.Email, &id.RegisteredAt); err != nil {
			return nil, err
		}
		identities = append(identities, id)
	}
	return identities, rows.Err()
}

// LogTraining фиксирует факт переобучения модели (сколько лиц, итог).
func (r *IdentityRepo) LogTraining(ctx context.Context, facesCount int, status string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO training_log (faces_count, status, trained_at)
		VALUES ($1, $2, NOW())`, facesCount, status)
	return err
}
