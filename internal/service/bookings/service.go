package bookings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"dothework/internal/auth"
	"dothework/internal/calendar"
	"dothework/internal/domain"
	"dothework/internal/notify"
	"dothework/internal/receipt"
	"dothework/internal/store"
)

const (
	maxNotesLength = 2000
	maxListWindow  = 366 * 24 * time.Hour
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// RejectedError reports a booking that failed the booking rules. Result
// carries the user-facing messages.
type RejectedError struct {
	Result Result
}

func (e *RejectedError) Error() string {
	return "booking rejected: " + strings.Join(e.Result.Errors, "; ")
}

type ServiceReader interface {
	GetService(ctx context.Context, serviceID uuid.UUID) (domain.Service, error)
}

type Deps struct {
	Bookings  store.BookingRepository
	Services  ServiceReader
	Validator *Validator
	Calendar  *calendar.Aggregator
	Sender    notify.Sender
	Composer  *notify.Composer
	Receipts  *receipt.Renderer
	Log       *slog.Logger
}

type Service struct {
	bookings  store.BookingRepository
	services  ServiceReader
	validator *Validator
	calendar  *calendar.Aggregator
	sender    notify.Sender
	composer  *notify.Composer
	receipts  *receipt.Renderer
	log       *slog.Logger
}

func NewService(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	sender := d.Sender
	if sender == nil {
		sender = notify.NoopSender{}
	}
	return &Service{
		bookings:  d.Bookings,
		services:  d.Services,
		validator: d.Validator,
		calendar:  d.Calendar,
		sender:    sender,
		composer:  d.Composer,
		receipts:  d.Receipts,
		log:       log.With(slog.String("component", "bookings.service")),
	}
}

func (s *Service) Validate(ctx context.Context, p auth.Principal, serviceID uuid.UUID, start time.Time) Result {
	return s.validator.Validate(ctx, serviceID, start, p.UserID)
}

type CreateInput struct {
	Principal      auth.Principal
	ServiceID      uuid.UUID
	StartTime      time.Time
	Notes          string
	IdempotencyKey string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Booking, error) {
	if in.ServiceID == uuid.Nil {
		return domain.Booking{}, validationError("service_id is required")
	}
	if in.StartTime.IsZero() {
		return domain.Booking{}, validationError("start_time is required")
	}
	notes := strings.TrimSpace(in.Notes)
	if utf8.RuneCountInString(notes) > maxNotesLength {
		return domain.Booking{}, validationError("notes too long")
	}

	userID := in.Principal.UserID
	start := in.StartTime.UTC()

	if userID == "" {
		return domain.Booking{}, &RejectedError{Result: s.validator.Validate(ctx, in.ServiceID, start, userID)}
	}

	b := domain.Booking{
		ServiceID:   in.ServiceID,
		UserID:      userID,
		StartTime:   start,
		Status:      domain.BookingStatusPending,
		Notes:       notes,
		ClientName:  in.Principal.Name,
		ClientEmail: in.Principal.Email,
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if len(key) > 256 {
			return domain.Booking{}, validationError("idempotency_key too long")
		}
		b.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("dothework:create_booking:"+userID+":"+key))

		existing, err := s.bookings.Get(ctx, b.ID)
		switch {
		case err == nil:
			if existing.UserID != userID || existing.ServiceID != b.ServiceID || !existing.StartTime.Equal(start) {
				return domain.Booking{}, store.ErrIdempotencyConflict
			}
			return existing, nil
		case !errors.Is(err, store.ErrNotFound):
			return domain.Booking{}, err
		}
	}

	svc, err := s.services.GetService(ctx, in.ServiceID)
	if err != nil {
		return domain.Booking{}, err
	}
	if !svc.Active {
		return domain.Booking{}, validationError("service is not available for booking")
	}

	if res := s.validator.Validate(ctx, in.ServiceID, start, userID); !res.Valid {
		return domain.Booking{}, &RejectedError{Result: res}
	}

	var created domain.Booking
	dayKey := DayKey(start, s.validator.Rules().Location)
	err = s.bookings.InDayTransaction(ctx, dayKey, func(ctx context.Context, tx store.BookingTx) error {
		// Bookings committed since the first check are visible now that the
		// day lock is held.
		res := s.validator.validateWith(ctx, tx, in.ServiceID, start, userID, false)
		if !res.Valid {
			return &RejectedError{Result: res}
		}
		var err error
		created, err = tx.CreateBooking(ctx, b)
		return err
	})
	if err != nil {
		return domain.Booking{}, err
	}

	created.Service = &svc
	s.log.Info(
		"booking created",
		slog.String("booking_id", created.ID.String()),
		slog.String("user_id", userID),
		slog.String("service_id", svc.ID.String()),
		slog.Time("start_time", created.StartTime),
	)

	s.notify(ctx, in.Principal, created, s.composer.BookingCreated)
	return created, nil
}

func (s *Service) Get(ctx context.Context, p auth.Principal, bookingID uuid.UUID) (domain.Booking, error) {
	if !p.Authenticated() {
		return domain.Booking{}, auth.ErrUnauthenticated
	}
	if bookingID == uuid.Nil {
		return domain.Booking{}, validationError("booking_id is required")
	}

	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	if !p.IsAdmin() && b.UserID != p.UserID {
		return domain.Booking{}, store.ErrNotFound
	}
	return b, nil
}

type ListInput struct {
	Principal        auth.Principal
	WindowStart      time.Time
	WindowEnd        time.Time
	UserID           string
	IncludeCancelled bool
}

// List returns bookings starting in [WindowStart, WindowEnd). Clients only
// see their own bookings; admins may narrow by UserID.
func (s *Service) List(ctx context.Context, in ListInput) ([]domain.Booking, error) {
	if !in.Principal.Authenticated() {
		return nil, auth.ErrUnauthenticated
	}

	start := in.WindowStart.UTC()
	end := in.WindowEnd.UTC()
	if !end.After(start) {
		return nil, validationError("window_end must be after window_start")
	}
	if end.Sub(start) > maxListWindow {
		return nil, validationError("window too large")
	}

	filter := store.BookingFilter{
		From:        start,
		To:          end,
		UserID:      in.UserID,
		WithService: true,
	}
	if !in.Principal.IsAdmin() {
		filter.UserID = in.Principal.UserID
	}
	if !in.IncludeCancelled {
		filter.ExcludeStatuses = []domain.BookingStatus{domain.BookingStatusCancelled}
	}

	return s.bookings.FindBookings(ctx, filter)
}

// UpdateStatus moves a booking along its status lifecycle. Admins may apply
// any allowed transition; clients may only cancel their own bookings.
func (s *Service) UpdateStatus(ctx context.Context, p auth.Principal, bookingID uuid.UUID, to domain.BookingStatus) (domain.Booking, error) {
	if _, ok := domain.ParseBookingStatus(string(to)); !ok {
		return domain.Booking{}, validationError("invalid status")
	}

	current, err := s.Get(ctx, p, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	if !p.IsAdmin() && to != domain.BookingStatusCancelled {
		return domain.Booking{}, auth.ErrForbidden
	}
	if current.Status == to {
		return current, nil
	}
	if !current.Status.CanTransition(to) {
		return domain.Booking{}, validationError(fmt.Sprintf("cannot change status from %s to %s", current.Status, to))
	}

	updated, err := s.bookings.UpdateStatus(ctx, bookingID, current.Status, to)
	if err != nil {
		return domain.Booking{}, err
	}
	if updated.Service == nil {
		updated.Service = current.Service
	}

	s.log.Info(
		"booking status changed",
		slog.String("booking_id", bookingID.String()),
		slog.String("from", string(current.Status)),
		slog.String("to", string(to)),
		slog.String("by", p.UserID),
	)

	s.notify(ctx, p, updated, s.composer.BookingStatusChanged)
	return updated, nil
}

// Calendar builds the view anchored at anchor. Admins see every booking,
// clients their own; cancelled bookings are left out.
func (s *Service) Calendar(ctx context.Context, p auth.Principal, anchor time.Time, g calendar.Granularity) (calendar.View, error) {
	if !p.Authenticated() {
		return calendar.View{}, auth.ErrUnauthenticated
	}
	if anchor.IsZero() {
		return calendar.View{}, validationError("anchor is required")
	}

	start, end := s.calendar.Range(anchor, g)
	filter := store.BookingFilter{
		// Month grids show the surrounding weeks.
		From:            start.AddDate(0, 0, -7).UTC(),
		To:              end.AddDate(0, 0, 7).UTC(),
		ExcludeStatuses: []domain.BookingStatus{domain.BookingStatusCancelled},
		WithService:     true,
	}
	if !p.IsAdmin() {
		filter.UserID = p.UserID
	}

	found, err := s.bookings.FindBookings(ctx, filter)
	if err != nil {
		return calendar.View{}, err
	}
	return s.calendar.Build(anchor, g, found), nil
}

func (s *Service) Receipt(ctx context.Context, p auth.Principal, bookingID uuid.UUID, format receipt.Format) (receipt.Document, error) {
	b, err := s.Get(ctx, p, bookingID)
	if err != nil {
		return receipt.Document{}, err
	}
	if b.Status != domain.BookingStatusConfirmed && b.Status != domain.BookingStatusCompleted {
		return receipt.Document{}, validationError("a receipt is only available for confirmed or completed bookings")
	}
	if b.Service == nil {
		svc, err := s.services.GetService(ctx, b.ServiceID)
		if err != nil {
			return receipt.Document{}, err
		}
		b.Service = &svc
	}

	to := recipient(p, b)
	data := receipt.Data{Booking: b, ClientName: to.Name, ClientEmail: to.Email}
	if data.ClientName == "" {
		data.ClientName = b.UserID
	}

	doc, err := s.receipts.Render(format, data)
	if err != nil {
		var unsupported *receipt.UnsupportedFormatError
		if errors.As(err, &unsupported) {
			return receipt.Document{}, validationError(unsupported.Error())
		}
		return receipt.Document{}, err
	}
	return doc, nil
}

// recipient returns the client's contact details stored on the booking. The
// caller's own details fill in for bookings made before they were stored.
func recipient(p auth.Principal, b domain.Booking) notify.Recipient {
	to := notify.Recipient{Email: b.ClientEmail, Name: b.ClientName}
	if p.Authenticated() && p.UserID == b.UserID {
		if to.Email == "" {
			to.Email = p.Email
		}
		if to.Name == "" {
			to.Name = p.Name
		}
	}
	return to
}

func (s *Service) notify(ctx context.Context, p auth.Principal, b domain.Booking, compose func(notify.Recipient, domain.Booking) (notify.Message, error)) {
	to := recipient(p, b)
	if s.composer == nil || to.Email == "" {
		return
	}
	log := s.log.With(slog.String("booking_id", b.ID.String()))

	msg, err := compose(to, b)
	if err != nil {
		log.Warn("notification compose failed", slog.Any("err", err))
		return
	}
	res, err := s.sender.Send(ctx, msg)
	if err != nil {
		log.Warn("notification send failed", slog.Any("err", err))
		return
	}
	log.Debug("notification sent", slog.String("message_id", res.ID))
}
