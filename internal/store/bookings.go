package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"dothework/internal/domain"
)

// BookingFilter selects bookings. Zero-valued fields are ignored; From/To
// form a half-open [From, To) range on start_time.
type BookingFilter struct {
	ExactStart      *time.Time
	UserID          string
	From            time.Time
	To              time.Time
	ExcludeStatuses []domain.BookingStatus
	WithService     bool
}

type BookingFinder interface {
	FindBookings(ctx context.Context, filter BookingFilter) ([]domain.Booking, error)
}

type BookingRepository interface {
	BookingFinder

	Get(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error)
	UpdateStatus(ctx context.Context, bookingID uuid.UUID, from, to domain.BookingStatus) (domain.Booking, error)

	// InDayTransaction runs fn in a transaction holding an exclusive lock on
	// dayKey, serializing creates that compete for the same calendar day.
	InDayTransaction(ctx context.Context, dayKey string, fn func(ctx context.Context, tx BookingTx) error) error
}

type BookingTx interface {
	BookingFinder
	CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)
}

type ServiceRepository interface {
	ListServices(ctx context.Context, activeOnly bool) ([]domain.Service, error)
	GetService(ctx context.Context, serviceID uuid.UUID) (domain.Service, error)
	UpsertService(ctx context.Context, s domain.Service) (domain.Service, error)
}
