package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch st := BookingStatus(s); st {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled, BookingStatusCompleted:
		return st, true
	}
	return "", false
}

// Label is the Dutch, user-facing name of the status.
func (s BookingStatus) Label() string {
	switch s {
	case BookingStatusPending:
		return "in afwachting"
	case BookingStatusConfirmed:
		return "bevestigd"
	case BookingStatusCancelled:
		return "geannuleerd"
	case BookingStatusCompleted:
		return "afgerond"
	}
	return string(s)
}

// CanTransition reports whether a booking may move from s to next.
// Cancelled and completed bookings are terminal.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	switch s {
	case BookingStatusPending:
		return next == BookingStatusConfirmed || next == BookingStatusCancelled
	case BookingStatusConfirmed:
		return next == BookingStatusCompleted || next == BookingStatusCancelled
	}
	return false
}

type Booking struct {
	bun.BaseModel `bun:"table:bookings,alias:b"`

	ID        uuid.UUID     `bun:"id,pk,type:uuid"`
	ServiceID uuid.UUID     `bun:"service_id,notnull,type:uuid"`
	UserID    string        `bun:"user_id,notnull"`
	StartTime time.Time     `bun:"start_time,notnull"`
	Status    BookingStatus `bun:"status,notnull"`
	Notes     string        `bun:"notes"`
	CreatedAt time.Time     `bun:"created_at,notnull"`
	UpdatedAt time.Time     `bun:"updated_at,notnull"`

	// Client contact details captured at booking time.
	ClientName  string `bun:"client_name"`
	ClientEmail string `bun:"client_email"`

	Service *Service `bun:"rel:belongs-to,join:service_id=id"`
}

// EndTime is derived from the referenced service; zero duration when the
// service is not loaded.
func (b Booking) EndTime() time.Time {
	if b.Service == nil {
		return b.StartTime
	}
	return b.StartTime.Add(b.Service.Duration())
}

func (b *Booking) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if b.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			b.ID = id
		}
		if b.Status == "" {
			b.Status = BookingStatusPending
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		b.UpdatedAt = now
	}
	return nil
}
