package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/integra-gate/internal/domain"
)

// VehicleRepo хранит реестр зарегистрированных номеров (источник истины;
// горячая копия живет в памяти и в Redis-сете для прогрева).
type VehicleRepo struct {
	pool *pgxpool.Pool
}

func NewVehicleRepo(pool *pgxpool.Pool) *VehicleRepo {
	return &VehicleRepo{pool: pool}
}

// Register добавляет номер в реестр. Возвращает false, если номер уже
// зарегистрирован — дубликат это штатный отказ, а не ошибка.
func (r *VehicleRepo) Register(ctx context.Context, plate string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO vehicles (plate, registered_at)
		VALUES ($1, NOW())
		ON CONFLICT (plate) DO NOTHING`, plate)
	if err != nil {
		return false, fmt.Errorf("postgres: failed to register vehicle: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Remove убирает номер из реестра. false — номера и не было.
func (r *VehicleRepo) Remove(ctx context.Context, plate string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM vehicles WHERE plate = $1`, plate)
	if err != nil {
		return false, fmt.Errorf("postgres: failed to remove vehicle: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// List отдает реестр целиком для Console API.
func (r *VehicleRepo) List(ctx context.Context) ([]domain.RegisteredVehicle, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT plate, registered_at FROM vehicles ORDER BY registered_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vehicles := make([]domain.RegisteredVehicle, 0)
	for rows.Next() {
		var v domain.RegisteredVehicle
		if err := rows.Scan(&v.Plate, &v.RegisteredAt); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

// AllPlates — холодная загрузка номеров для горячего реестра в памяти.
func (r *VehicleRepo) AllPlates(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT plate FROM vehicles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plates := make([]string, 0)
	for rows.Next() {
		var plate string
		if err := rows.Scan(&plate); err != nil {
			return nil, err
		}
		plates = append(plates, plate)
	}
	return plates, rows.Err()
}
