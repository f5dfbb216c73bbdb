package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	dotheworkv1 "dothework/internal/api/dothework/v1"
	"dothework/internal/auth"
	"dothework/internal/calendar"
	"dothework/internal/domain"
	"dothework/internal/receipt"
	"dothework/internal/service/bookings"
	"dothework/internal/service/catalog"
	"dothework/internal/store"
)

type BookingsServer struct {
	dotheworkv1.UnimplementedBookingsServiceServer

	bookings bookingsService
	catalog  catalogService
	calendar *calendar.Aggregator
	now      func() time.Time
	log      *slog.Logger
}

type bookingsService interface {
	Validate(ctx context.Context, p auth.Principal, serviceID uuid.UUID, start time.Time) bookings.Result
	Create(ctx context.Context, in bookings.CreateInput) (domain.Booking, error)
	Get(ctx context.Context, p auth.Principal, bookingID uuid.UUID) (domain.Booking, error)
	List(ctx context.Context, in bookings.ListInput) ([]domain.Booking, error)
	UpdateStatus(ctx context.Context, p auth.Principal, bookingID uuid.UUID, to domain.BookingStatus) (domain.Booking, error)
	Calendar(ctx context.Context, p auth.Principal, anchor time.Time, g calendar.Granularity) (calendar.View, error)
	Receipt(ctx context.Context, p auth.Principal, bookingID uuid.UUID, format receipt.Format) (receipt.Document, error)
}

type catalogService interface {
	List(ctx context.Context, p auth.Principal, includeInactive bool) ([]domain.Service, error)
	Upsert(ctx context.Context, p auth.Principal, in catalog.UpsertInput) (domain.Service, error)
}

func NewBookingsServer(b bookingsService, c catalogService, cal *calendar.Aggregator, log *slog.Logger) *BookingsServer {
	if log == nil {
		log = slog.Default()
	}
	return &BookingsServer{
		bookings: b,
		catalog:  c,
		calendar: cal,
		now:      time.Now,
		log:      log.With(slog.String("component", "grpc.bookings")),
	}
}

func (s *BookingsServer) rpcLog(ctx context.Context, rpc string) *slog.Logger {
	log := s.log.With(slog.String("rpc", rpc))
	if p := auth.FromContext(ctx); p.Authenticated() {
		log = log.With(slog.String("user_id", p.UserID))
	}
	return log
}

func invalidArgument(log *slog.Logger, reason, msg string) error {
	log.Warn("invalid request", slog.String("reason", reason))
	return status.Error(codes.InvalidArgument, msg)
}

func parseID(log *slog.Logger, field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, invalidArgument(log, "invalid_uuid", field+" must be a UUID")
	}
	return id, nil
}

func (s *BookingsServer) ValidateBooking(ctx context.Context, req *dotheworkv1.ValidateBookingRequest) (*dotheworkv1.ValidateBookingResponse, error) {
	log := s.rpcLog(ctx, "ValidateBooking")

	if req == nil {
		return nil, invalidArgument(log, "nil_request", "request is required")
	}
	if req.StartTime == nil {
		return nil, invalidArgument(log, "missing_start_time", "start_time is required")
	}
	serviceID, err := parseID(log, "service_id", req.ServiceId)
	if err != nil {
		return nil, err
	}

	p := auth.FromContext(ctx)
	res := s.bookings.Validate(ctx, p, serviceID, req.StartTime.AsTime())

	conflicts := make([]*dotheworkv1.Booking, 0, len(res.Conflicts))
	for _, b := range res.Conflicts {
		conflicts = append(conflicts, s.toAPIConflict(p, b))
	}
	return &dotheworkv1.ValidateBookingResponse{
		Valid:     res.Valid,
		Errors:    res.Errors,
		Conflicts: conflicts,
	}, nil
}

func (s *BookingsServer) CreateBooking(ctx context.Context, req *dotheworkv1.CreateBookingRequest) (*dotheworkv1.CreateBookingResponse, error) {
	log := s.rpcLog(ctx, "CreateBooking")

	if req == nil {
		return nil, invalidArgument(log, "nil_request", "request is required")
	}
	if req.StartTime == nil {
		return nil, invalidArgument(log, "missing_start_time", "start_time is required")
	}
	serviceID, err := parseID(log, "service_id", req.ServiceId)
	if err != nil {
		return nil, err
	}

	b, err := s.bookings.Create(ctx, bookings.CreateInput{
		Principal:      auth.FromContext(ctx),
		ServiceID:      serviceID,
		StartTime:      req.StartTime.AsTime(),
		Notes:          req.Notes,
		IdempotencyKey: idempotencyKey(ctx),
	})
	if err != nil {
		return nil, statusError(log.With(slog.Time("start_time", req.StartTime.AsTime())), slotConflict(err))
	}

	return &dotheworkv1.CreateBookingResponse{Booking: s.toAPIBooking(b)}, nil
}

func idempotencyKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("idempotency-key")
	if len(values) == 0 {
		values = md.Get("x-idempotency-key")
	}
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func (s *BookingsServer) GetBooking(ctx context.Context, req *dotheworkv1.GetBookingRequest) (*dotheworkv1.GetBookingResponse, error) {
	log := s.rpcLog(ctx, "GetBooking")

	if req == nil {
		return nil, invalidArgument(log, "nil_request", "request is required")
	}
	id, err := parseID(log, "booking_id", req.BookingId)
	if err != nil {
		return nil, err
	}

	b, err := s.bookings.Get(ctx, auth.FromContext(ctx), id)
	if err != nil {
		return nil, statusError(log.With(slog.String("booking_id", id.String())), err)
	}
	return &dotheworkv1.GetBookingResponse{Booking: s.toAPIBooking(b)}, nil
}

func (s *BookingsServer) ListBookings(ctx context.Context, req *dotheworkv1.ListBookingsRequest) (*dotheworkv1.ListBookingsResponse, error) {
	log := s.rpcLog(ctx, "ListBookings")

	if req == nil {
		return nil, invalidArgument(log, "nil_request", "request is required")
	}
	if req.WindowStart == nil || req.WindowEnd == nil {
		return nil, invalidArgument(log, "missing_window", "window_start and window_end are required")
	}

	found, err := s.bookings.List(ctx, bookings.ListInput{
		Principal:        auth.FromContext(ctx),
		WindowStart:      req.WindowStart.AsTime(),
		WindowEnd:        req.WindowEnd.AsTime(),
		UserID:           req.UserId,
		IncludeCancelled: req.IncludeCancelled,
	})
	if err != nil {
		return nil, statusError(log, err)
	}

	out := make([]*dotheworkv1.Booking, 0, len(found))
	for _, b := range found {
		out = append(out, s.toAPIBooking(b))
	}

	log.Debug(
		"bookings listed",
		slog.Int("count", len(out)),
		slog.Time("window_start", req.WindowStart.AsTime()),
		slog.Time("window_end", req.WindowEnd.AsTime()),
	)
	return &dotheworkv1.ListBookingsResponse{Bookings: out}, nil
}

func (s *BookingsServer) UpdateBookingStatus(ctx context.Context, req *dotheworkv1.UpdateBookingStatusRequest) (*dotheworkv1.UpdateBookingStatusResponse, error) {
	log := s.rpcLog(ctx, "UpdateBookingStatus")

	if req == nil {
		return nil, invalidArgument(log, "nil_request", "request is required")
	}
	id, err := parseID(log, "booking_id", req.BookingId)
	if err != nil {
		return nil, err
	}
	to, ok := domain.ParseBookingStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !ok {
		return nil, invalidArgument(log, "invalid_status", "status must be one of pending, confirmed, cancelled, completed")
	}

	b, err := s.bookings.UpdateStatus(ctx, auth.FromContext(ctx), id, to)
	if err != nil {
		return nil, statusError(log.With(slog.String("booking_id", id.String())), err)
	}
	return &dotheworkv1.UpdateBookingStatusResponse{Booking: s.toAPIBooking(b)}, nil
}

func (s *BookingsServer) GetCalendar(ctx context.Context, req *dotheworkv1.GetCalendarRequest) (*dotheworkv1.GetCalendarResponse, error) {
	log := s.rpcLog(ctx, "GetCalendar")

	if req == nil {
		return nil, invalidArgument(log, "nil_request", "request is required")
	}

	g := calendar.GranularityMonth
	if strings.TrimSpace(req.Granularity) != "" {
		parsed, err := calendar.ParseGranularity(req.Granularity)
		if err != nil {
			return nil, invalidArgument(log, "invalid_granularity", "granularity must be day, week or month")
		}
		g = parsed
	}

	anchor := s.now()
	if req.Anchor != nil {
		anchor = req.Anchor.AsTime()
	}
	if strings.TrimSpace(req.Navigate) != "" {
		dir, err := calendar.ParseDirection(req.Navigate)
		if err != nil {
			return nil, invalidArgument(log, "invalid_navigate", "navigate must be prev or next")
		}
		anchor = s.calendar.Navigate(anchor, g, dir)
	}

	view, err := s.bookings.Calendar(ctx, auth.FromContext(ctx), anchor, g)
	if err != nil {
		return nil, statusError(log, err)
	}
	return s.toAPICalendar(view), nil
}

func (s *BookingsServer) ListServices(ctx context.Context, req *dotheworkv1.ListServicesRequest) (*dotheworkv1.ListServicesResponse, error) {
	log := s.rpcLog(ctx, "ListServices")

	if req == nil {
		req = &dotheworkv1.ListServicesRequest{}
	}

	found, err := s.catalog.List(ctx, auth.FromContext(ctx), req.IncludeInactive)
	if err != nil {
		return nil, statusError(log, err)
	}

	out := make([]*dotheworkv1.Service, 0, len(found))
	for _, svc := range found {
		out = append(out, s.toAPIService(svc))
	}
	return &dotheworkv1.ListServicesResponse{Services: out}, nil
}

func (s *BookingsServer) UpsertService(ctx context.Context, req *dotheworkv1.UpsertServiceRequest) (*dotheworkv1.UpsertServiceResponse, error) {
	log := s.rpcLog(ctx, "UpsertService")

	if req == nil || req.Service == nil {
		return nil, invalidArgument(log, "missing_service", "service is required")
	}

	var id uuid.UUID
	if strings.TrimSpace(req.Service.Id) != "" {
		parsed, err := parseID(log, "service.id", req.Service.Id)
		if err != nil {
			return nil, err
		}
		id = parsed
	}

	saved, err := s.catalog.Upsert(ctx, auth.FromContext(ctx), catalog.UpsertInput{
		ID:              id,
		Name:            req.Service.Name,
		Description:     req.Service.Description,
		DurationMinutes: int(req.Service.DurationMinutes),
		PriceCents:      req.Service.PriceCents,
		Active:          req.Service.Active,
	})
	if err != nil {
		return nil, statusError(log, err)
	}
	return &dotheworkv1.UpsertServiceResponse{Service: s.toAPIService(saved)}, nil
}

func (s *BookingsServer) GetReceipt(ctx context.Context, req *dotheworkv1.GetReceiptRequest) (*dotheworkv1.GetReceiptResponse, error) {
	log := s.rpcLog(ctx, "GetReceipt")

	if req == nil {
		return nil, invalidArgument(log, "nil_request", "request is required")
	}
	id, err := parseID(log, "booking_id", req.BookingId)
	if err != nil {
		return nil, err
	}
	format, err := receipt.ParseFormat(req.Format)
	if err != nil {
		return nil, invalidArgument(log, "invalid_format", err.Error())
	}

	doc, err := s.bookings.Receipt(ctx, auth.FromContext(ctx), id, format)
	if err != nil {
		return nil, statusError(log.With(slog.String("booking_id", id.String())), err)
	}
	return &dotheworkv1.GetReceiptResponse{
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		Content:     doc.Body,
	}, nil
}

// slotConflict turns a unique-index violation on create into the same
// rejection the validator gives for a taken slot.
func slotConflict(err error) error {
	if errors.Is(err, store.ErrConflict) {
		return &bookings.RejectedError{Result: bookings.Result{Errors: []string{bookings.MsgSlotTaken}}}
	}
	return err
}

func (s *BookingsServer) toAPIService(svc domain.Service) *dotheworkv1.Service {
	return &dotheworkv1.Service{
		Id:              svc.ID.String(),
		Name:            svc.Name,
		Description:     svc.Description,
		DurationMinutes: int32(svc.DurationMinutes),
		PriceCents:      svc.PriceCents,
		PriceLabel:      domain.FormatPrice(svc.PriceCents),
		Active:          svc.Active,
		Color:           s.calendar.ColorForService(svc.ID.String()),
	}
}

func (s *BookingsServer) toAPIBooking(b domain.Booking) *dotheworkv1.Booking {
	out := &dotheworkv1.Booking{
		Id:          b.ID.String(),
		ServiceId:   b.ServiceID.String(),
		UserId:      b.UserID,
		StartTime:   timestamppb.New(b.StartTime),
		EndTime:     timestamppb.New(b.EndTime()),
		Status:      string(b.Status),
		StatusLabel: b.Status.Label(),
		Notes:       b.Notes,
		ClientName:  b.ClientName,
		ClientEmail: b.ClientEmail,
		CreatedAt:   timestamppb.New(b.CreatedAt),
		UpdatedAt:   timestamppb.New(b.UpdatedAt),
	}
	if b.Service != nil {
		out.Service = s.toAPIService(*b.Service)
	}
	return out
}

// toAPIConflict hides the details of bookings the caller may not read.
func (s *BookingsServer) toAPIConflict(p auth.Principal, b domain.Booking) *dotheworkv1.Booking {
	if p.IsAdmin() || (p.Authenticated() && b.UserID == p.UserID) {
		return s.toAPIBooking(b)
	}
	return &dotheworkv1.Booking{
		Id:          b.ID.String(),
		StartTime:   timestamppb.New(b.StartTime),
		Status:      string(b.Status),
		StatusLabel: b.Status.Label(),
	}
}

func (s *BookingsServer) toAPICalendar(v calendar.View) *dotheworkv1.GetCalendarResponse {
	out := &dotheworkv1.GetCalendarResponse{
		Anchor:      timestamppb.New(v.Anchor),
		Granularity: string(v.Granularity),
		Label:       v.Label,
		RangeStart:  timestamppb.New(v.Start),
		RangeEnd:    timestamppb.New(v.End),
		Days:        make([]*dotheworkv1.CalendarDay, 0, len(v.Days)),
		Legend:      make([]*dotheworkv1.LegendItem, 0, len(v.Legend)),
		Total:       int32(v.Total),
	}
	for _, d := range v.Days {
		day := &dotheworkv1.CalendarDay{
			Date:    d.Date.Format(time.DateOnly),
			InRange: d.InRange,
		}
		for _, e := range d.Entries {
			day.Entries = append(day.Entries, &dotheworkv1.CalendarEntry{Booking: s.toAPIBooking(e.Booking), Color: e.Color})
		}
		out.Days = append(out.Days, day)
	}
	for _, item := range v.Legend {
		out.Legend = append(out.Legend, &dotheworkv1.LegendItem{Service: s.toAPIService(item.Service), Color: item.Color})
	}
	return out
}
