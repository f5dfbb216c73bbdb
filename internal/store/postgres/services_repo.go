package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"dothework/internal/domain"
	"dothework/internal/store"
)

type ServiceRepo struct {
	db *bun.DB
}

func NewServiceRepo(db *bun.DB) *ServiceRepo {
	return &ServiceRepo{db: db}
}

func (r *ServiceRepo) ListServices(ctx context.Context, activeOnly bool) ([]domain.Service, error) {
	var rows []domain.Service
	q := r.db.NewSelect().Model(&rows)
	if activeOnly {
		q = q.Where("?TableAlias.active = TRUE")
	}
	if err := q.OrderExpr("?TableAlias.name ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ServiceRepo) GetService(ctx context.Context, serviceID uuid.UUID) (domain.Service, error) {
	var s domain.Service
	err := r.db.NewSelect().
		Model(&s).
		Where("?TableAlias.id = ?", serviceID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Service{}, store.ErrNotFound
		}
		return domain.Service{}, err
	}
	return s, nil
}

func (r *ServiceRepo) UpsertService(ctx context.Context, s domain.Service) (domain.Service, error) {
	m := domain.Service{
		ID:              s.ID,
		Name:            s.Name,
		Description:     s.Description,
		DurationMinutes: s.DurationMinutes,
		PriceCents:      s.PriceCents,
		Active:          s.Active,
		UpdatedAt:       time.Now().UTC(),
	}

	_, err := r.db.NewInsert().
		Model(&m).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("description = EXCLUDED.description").
		Set("duration_minutes = EXCLUDED.duration_minutes").
		Set("price_cents = EXCLUDED.price_cents").
		Set("active = EXCLUDED.active").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return domain.Service{}, err
	}

	return r.GetService(ctx, m.ID)
}
