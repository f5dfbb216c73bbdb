package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"dothework/internal/domain"
	"dothework/internal/store"
)

const (
	pgUniqueViolation        = "23505"
	activeStartTimeIndexName = "bookings_start_time_active"
)

type BookingRepo struct {
	db *bun.DB
}

func NewBookingRepo(db *bun.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

type bookingTx struct {
	tx bun.Tx
}

func (r *BookingRepo) FindBookings(ctx context.Context, filter store.BookingFilter) ([]domain.Booking, error) {
	return findBookings(ctx, r.db, filter)
}

func (r *BookingRepo) Get(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	err := r.db.NewSelect().
		Model(&b).
		Relation("Service").
		Where("?TableAlias.id = ?", bookingID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, store.ErrNotFound
		}
		return domain.Booking{}, err
	}
	return b, nil
}

// UpdateStatus moves a booking from one status to another. The update only
// applies while the stored status still equals from; otherwise the booking
// changed concurrently and store.ErrConflict is returned.
func (r *BookingRepo) UpdateStatus(ctx context.Context, bookingID uuid.UUID, from, to domain.BookingStatus) (domain.Booking, error) {
	res, err := r.db.NewUpdate().
		Model((*domain.Booking)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", bookingID).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.Booking{}, store.ErrConflict
		}
		return domain.Booking{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Booking{}, err
	}

	b, err := r.Get(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	if affected == 0 {
		return domain.Booking{}, store.ErrConflict
	}
	return b, nil
}

func (r *BookingRepo) InDayTransaction(ctx context.Context, dayKey string, fn func(ctx context.Context, tx store.BookingTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockDay(ctx, tx, dayKey); err != nil {
			return err
		}
		return fn(ctx, bookingTx{tx: tx})
	})
}

func lockDay(ctx context.Context, tx bun.Tx, dayKey string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", "bookings:"+dayKey).Exec(ctx)
	return err
}

func (r bookingTx) FindBookings(ctx context.Context, filter store.BookingFilter) ([]domain.Booking, error) {
	return findBookings(ctx, r.tx, filter)
}

func (r bookingTx) CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	if b.ID != uuid.Nil {
		existing, ok, err := r.byID(ctx, b.ID)
		if err != nil {
			return domain.Booking{}, err
		}
		if ok {
			if existing.UserID != b.UserID ||
				existing.ServiceID != b.ServiceID ||
				!existing.StartTime.Equal(b.StartTime) {
				return domain.Booking{}, store.ErrIdempotencyConflict
			}
			return existing, nil
		}
	}

	m := domain.Booking{
		ID:          b.ID,
		ServiceID:   b.ServiceID,
		UserID:      b.UserID,
		StartTime:   b.StartTime.UTC(),
		Status:      b.Status,
		Notes:       b.Notes,
		ClientName:  b.ClientName,
		ClientEmail: b.ClientEmail,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}

	_, err := r.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			if pgErr.ConstraintName == activeStartTimeIndexName {
				return domain.Booking{}, store.ErrConflict
			}
			return domain.Booking{}, store.ErrIdempotencyConflict
		}
		return domain.Booking{}, err
	}

	m.Service = b.Service
	return m, nil
}

func (r bookingTx) byID(ctx context.Context, bookingID uuid.UUID) (domain.Booking, bool, error) {
	var b domain.Booking
	err := r.tx.NewSelect().
		Model(&b).
		Where("?TableAlias.id = ?", bookingID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, false, nil
		}
		return domain.Booking{}, false, err
	}
	return b, true, nil
}

func findBookings(ctx context.Context, db bun.IDB, filter store.BookingFilter) ([]domain.Booking, error) {
	var rows []domain.Booking
	q := db.NewSelect().Model(&rows)
	if filter.WithService {
		q = q.Relation("Service")
	}
	if filter.ExactStart != nil {
		q = q.Where("?TableAlias.start_time = ?", filter.ExactStart.UTC())
	}
	if filter.UserID != "" {
		q = q.Where("?TableAlias.user_id = ?", filter.UserID)
	}
	if !filter.From.IsZero() {
		q = q.Where("?TableAlias.start_time >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		q = q.Where("?TableAlias.start_time < ?", filter.To.UTC())
	}
	if len(filter.ExcludeStatuses) > 0 {
		q = q.Where("?TableAlias.status NOT IN (?)", bun.In(filter.ExcludeStatuses))
	}

	if err := q.OrderExpr("?TableAlias.start_time ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}
