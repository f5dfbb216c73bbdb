package grpc

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
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

type fakeBookingsService struct {
	validateFn     func(ctx context.Context, p auth.Principal, serviceID uuid.UUID, start time.Time) bookings.Result
	createFn       func(ctx context.Context, in bookings.CreateInput) (domain.Booking, error)
	getFn          func(ctx context.Context, p auth.Principal, bookingID uuid.UUID) (domain.Booking, error)
	listFn         func(ctx context.Context, in bookings.ListInput) ([]domain.Booking, error)
	updateStatusFn func(ctx context.Context, p auth.Principal, bookingID uuid.UUID, to domain.BookingStatus) (domain.Booking, error)
	calendarFn     func(ctx context.Context, p auth.Principal, anchor time.Time, g calendar.Granularity) (calendar.View, error)
	receiptFn      func(ctx context.Context, p auth.Principal, bookingID uuid.UUID, format receipt.Format) (receipt.Document, error)
}

func (f *fakeBookingsService) Validate(ctx context.Context, p auth.Principal, serviceID uuid.UUID, start time.Time) bookings.Result {
	if f.validateFn == nil {
		panic("Validate not configured")
	}
	return f.validateFn(ctx, p, serviceID, start)
}

func (f *fakeBookingsService) Create(ctx context.Context, in bookings.CreateInput) (domain.Booking, error) {
	if f.createFn == nil {
		panic("Create not configured")
	}
	return f.createFn(ctx, in)
}

func (f *fakeBookingsService) Get(ctx context.Context, p auth.Principal, bookingID uuid.UUID) (domain.Booking, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, p, bookingID)
}

func (f *fakeBookingsService) List(ctx context.Context, in bookings.ListInput) ([]domain.Booking, error) {
	if f.listFn == nil {
		panic("List not configured")
	}
	return f.listFn(ctx, in)
}

func (f *fakeBookingsService) UpdateStatus(ctx context.Context, p auth.Principal, bookingID uuid.UUID, to domain.BookingStatus) (domain.Booking, error) {
	if f.updateStatusFn == nil {
		panic("UpdateStatus not configured")
	}
	return f.updateStatusFn(ctx, p, bookingID, to)
}

func (f *fakeBookingsService) Calendar(ctx context.Context, p auth.Principal, anchor time.Time, g calendar.Granularity) (calendar.View, error) {
	if f.calendarFn == nil {
		panic("Calendar not configured")
	}
	return f.calendarFn(ctx, p, anchor, g)
}

func (f *fakeBookingsService) Receipt(ctx context.Context, p auth.Principal, bookingID uuid.UUID, format receipt.Format) (receipt.Document, error) {
	if f.receiptFn == nil {
		panic("Receipt not configured")
	}
	return f.receiptFn(ctx, p, bookingID, format)
}

type fakeCatalogService struct {
	listFn   func(ctx context.Context, p auth.Principal, includeInactive bool) ([]domain.Service, error)
	upsertFn func(ctx context.Context, p auth.Principal, in catalog.UpsertInput) (domain.Service, error)
}

func (f *fakeCatalogService) List(ctx context.Context, p auth.Principal, includeInactive bool) ([]domain.Service, error) {
	if f.listFn == nil {
		panic("List not configured")
	}
	return f.listFn(ctx, p, includeInactive)
}

func (f *fakeCatalogService) Upsert(ctx context.Context, p auth.Principal, in catalog.UpsertInput) (domain.Service, error) {
	if f.upsertFn == nil {
		panic("Upsert not configured")
	}
	return f.upsertFn(ctx, p, in)
}

func newTestServer(b *fakeBookingsService, c *fakeCatalogService) *BookingsServer {
	if c == nil {
		c = &fakeCatalogService{}
	}
	return NewBookingsServer(b, c, calendar.New(calendar.Config{Location: time.UTC}), slog.Default())
}

var (
	testClient    = auth.Principal{UserID: "u1", Role: auth.RoleClient}
	testServiceID = "0190f3a4-0000-7000-8000-000000000010"
)

func TestIdempotencyKey_ReadsHeadersAndTrims(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("idempotency-key", "  abc  "))
	if got := idempotencyKey(ctx); got != "abc" {
		t.Fatalf("idempotencyKey = %q, want %q", got, "abc")
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-idempotency-key", "xyz"))
	if got := idempotencyKey(ctx); got != "xyz" {
		t.Fatalf("idempotencyKey = %q, want %q", got, "xyz")
	}
}

func TestCreateBooking_RejectsMissingStartTime(t *testing.T) {
	srv := newTestServer(&fakeBookingsService{}, nil)

	_, err := srv.CreateBooking(context.Background(), &dotheworkv1.CreateBookingRequest{ServiceId: testServiceID})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestCreateBooking_RejectsInvalidServiceID(t *testing.T) {
	srv := newTestServer(&fakeBookingsService{}, nil)

	_, err := srv.CreateBooking(context.Background(), &dotheworkv1.CreateBookingRequest{
		ServiceId: "not-a-uuid",
		StartTime: timestamppb.Now(),
	})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestCreateBooking_PassesPrincipalAndIdempotencyKey(t *testing.T) {
	var got bookings.CreateInput
	srv := newTestServer(&fakeBookingsService{
		createFn: func(ctx context.Context, in bookings.CreateInput) (domain.Booking, error) {
			got = in
			return domain.Booking{ID: uuid.MustParse("00000000-0000-0000-0000-000000000010"), StartTime: in.StartTime}, nil
		},
	}, nil)

	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ctx := metadata.NewIncomingContext(auth.WithPrincipal(context.Background(), testClient), metadata.Pairs("idempotency-key", "k1"))

	resp, err := srv.CreateBooking(ctx, &dotheworkv1.CreateBookingRequest{
		ServiceId: testServiceID,
		StartTime: timestamppb.New(start),
		Notes:     "n",
	})
	if err != nil {
		t.Fatalf("CreateBooking error: %v", err)
	}
	if got.IdempotencyKey != "k1" || got.Principal.UserID != "u1" || !got.StartTime.Equal(start) || got.Notes != "n" {
		t.Fatalf("input = %+v", got)
	}
	if resp.Booking.Id != "00000000-0000-0000-0000-000000000010" {
		t.Fatalf("booking id = %q", resp.Booking.Id)
	}
}

func TestCreateBooking_MapsRejection(t *testing.T) {
	srv := newTestServer(&fakeBookingsService{
		createFn: func(ctx context.Context, in bookings.CreateInput) (domain.Booking, error) {
			return domain.Booking{}, &bookings.RejectedError{Result: bookings.Result{
				Errors: []string{bookings.MsgSlotTaken, bookings.MsgDailyCapReached},
			}}
		},
	}, nil)

	_, err := srv.CreateBooking(context.Background(), &dotheworkv1.CreateBookingRequest{
		ServiceId: testServiceID,
		StartTime: timestamppb.Now(),
	})
	st := status.Convert(err)
	if st.Code() != codes.FailedPrecondition {
		t.Fatalf("code = %s, want %s", st.Code(), codes.FailedPrecondition)
	}
	if st.Message() != bookings.MsgSlotTaken+" "+bookings.MsgDailyCapReached {
		t.Fatalf("message = %q", st.Message())
	}

	var violations []string
	for _, d := range st.Details() {
		if pf, ok := d.(*errdetails.PreconditionFailure); ok {
			for _, v := range pf.Violations {
				violations = append(violations, v.Description)
			}
		}
	}
	if len(violations) != 2 || violations[0] != bookings.MsgSlotTaken {
		t.Fatalf("violations = %v", violations)
	}
}

func TestCreateBooking_MapsStoreErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    codes.Code
		message string
	}{
		{"slot conflict", store.ErrConflict, codes.FailedPrecondition, bookings.MsgSlotTaken},
		{"idempotency", store.ErrIdempotencyConflict, codes.FailedPrecondition, msgIdempotencyConflict},
		{"unknown service", store.ErrNotFound, codes.NotFound, "not found"},
		{"validation", &bookings.ValidationError{}, codes.InvalidArgument, ""},
		{"internal", errors.New("boom"), codes.Internal, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&fakeBookingsService{
				createFn: func(ctx context.Context, in bookings.CreateInput) (domain.Booking, error) {
					return domain.Booking{}, tt.err
				},
			}, nil)

			_, err := srv.CreateBooking(context.Background(), &dotheworkv1.CreateBookingRequest{
				ServiceId: testServiceID,
				StartTime: timestamppb.Now(),
			})
			st := status.Convert(err)
			if st.Code() != tt.code || st.Message() != tt.message {
				t.Fatalf("status = %s %q, want %s %q", st.Code(), st.Message(), tt.code, tt.message)
			}
		})
	}
}

func TestValidateBooking_ReturnsResult(t *testing.T) {
	conflict := domain.Booking{ID: uuid.New(), StartTime: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	srv := newTestServer(&fakeBookingsService{
		validateFn: func(ctx context.Context, p auth.Principal, serviceID uuid.UUID, start time.Time) bookings.Result {
			return bookings.Result{Errors: []string{bookings.MsgSlotTaken}, Conflicts: []domain.Booking{conflict}}
		},
	}, nil)

	resp, err := srv.ValidateBooking(context.Background(), &dotheworkv1.ValidateBookingRequest{
		ServiceId: testServiceID,
		StartTime: timestamppb.New(conflict.StartTime),
	})
	if err != nil {
		t.Fatalf("ValidateBooking error: %v", err)
	}
	if resp.Valid || len(resp.Errors) != 1 || len(resp.Conflicts) != 1 || resp.Conflicts[0].Id != conflict.ID.String() {
		t.Fatalf("response = %+v", resp)
	}
}

func TestValidateBooking_HidesOtherClientsConflicts(t *testing.T) {
	svc := domain.Service{ID: uuid.MustParse(testServiceID), Name: "PT sessie", DurationMinutes: 60}
	conflict := domain.Booking{
		ID:          uuid.New(),
		ServiceID:   svc.ID,
		UserID:      "sam",
		StartTime:   time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		Status:      domain.BookingStatusConfirmed,
		Notes:       "knieblessure",
		ClientName:  "Sam",
		ClientEmail: "sam@example.com",
		Service:     &svc,
	}
	srv := newTestServer(&fakeBookingsService{
		validateFn: func(ctx context.Context, p auth.Principal, serviceID uuid.UUID, start time.Time) bookings.Result {
			return bookings.Result{Errors: []string{bookings.MsgSlotTaken}, Conflicts: []domain.Booking{conflict}}
		},
	}, nil)

	tests := []struct {
		name      string
		principal auth.Principal
		full      bool
	}{
		{"other client", auth.Principal{UserID: "kim"}, false},
		{"anonymous", auth.Principal{}, false},
		{"owner", auth.Principal{UserID: "sam"}, true},
		{"admin", auth.Principal{UserID: "coach", Role: auth.RoleAdmin}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := auth.WithPrincipal(context.Background(), tt.principal)
			resp, err := srv.ValidateBooking(ctx, &dotheworkv1.ValidateBookingRequest{
				ServiceId: testServiceID,
				StartTime: timestamppb.New(conflict.StartTime),
			})
			if err != nil {
				t.Fatalf("ValidateBooking error: %v", err)
			}
			if len(resp.Conflicts) != 1 {
				t.Fatalf("conflicts = %d, want 1", len(resp.Conflicts))
			}
			got := resp.Conflicts[0]
			if got.Id != conflict.ID.String() || !got.StartTime.AsTime().Equal(conflict.StartTime) || got.Status != "confirmed" {
				t.Fatalf("conflict = %+v", got)
			}
			if tt.full {
				if got.UserId != "sam" || got.Notes != "knieblessure" || got.ClientEmail != "sam@example.com" || got.Service == nil {
					t.Fatalf("conflict = %+v, want the full booking", got)
				}
				return
			}
			if got.UserId != "" || got.Notes != "" || got.ClientName != "" || got.ClientEmail != "" ||
				got.Service != nil || got.ServiceId != "" || got.CreatedAt != nil {
				t.Fatalf("conflict leaks booking details: %+v", got)
			}
		})
	}
}

func TestGetBooking_Errors(t *testing.T) {
	srv := newTestServer(&fakeBookingsService{
		getFn: func(ctx context.Context, p auth.Principal, bookingID uuid.UUID) (domain.Booking, error) {
			return domain.Booking{}, store.ErrNotFound
		},
	}, nil)

	_, err := srv.GetBooking(context.Background(), &dotheworkv1.GetBookingRequest{BookingId: "nope"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}

	_, err = srv.GetBooking(context.Background(), &dotheworkv1.GetBookingRequest{BookingId: uuid.NewString()})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.NotFound)
	}
}

func TestUpdateBookingStatus(t *testing.T) {
	srv := newTestServer(&fakeBookingsService{
		updateStatusFn: func(ctx context.Context, p auth.Principal, bookingID uuid.UUID, to domain.BookingStatus) (domain.Booking, error) {
			switch to {
			case domain.BookingStatusConfirmed:
				return domain.Booking{}, auth.ErrForbidden
			case domain.BookingStatusCompleted:
				return domain.Booking{}, store.ErrConflict
			}
			return domain.Booking{ID: bookingID, Status: to}, nil
		},
	}, nil)

	tests := []struct {
		status string
		code   codes.Code
	}{
		{"Cancelled", codes.OK},
		{"confirmed", codes.PermissionDenied},
		{"completed", codes.Aborted},
		{"archived", codes.InvalidArgument},
	}
	for _, tt := range tests {
		resp, err := srv.UpdateBookingStatus(context.Background(), &dotheworkv1.UpdateBookingStatusRequest{
			BookingId: uuid.NewString(),
			Status:    tt.status,
		})
		if status.Code(err) != tt.code {
			t.Fatalf("status %q: code = %s, want %s", tt.status, status.Code(err), tt.code)
		}
		if err == nil && resp.Booking.StatusLabel != "geannuleerd" {
			t.Fatalf("status label = %q", resp.Booking.StatusLabel)
		}
	}
}

func TestGetCalendar_NavigatesBeforeFetching(t *testing.T) {
	var gotAnchor time.Time
	var gotGranularity calendar.Granularity
	cal := calendar.New(calendar.Config{Location: time.UTC})
	srv := newTestServer(&fakeBookingsService{
		calendarFn: func(ctx context.Context, p auth.Principal, anchor time.Time, g calendar.Granularity) (calendar.View, error) {
			gotAnchor, gotGranularity = anchor, g
			return cal.Build(anchor, g, nil), nil
		},
	}, nil)

	resp, err := srv.GetCalendar(context.Background(), &dotheworkv1.GetCalendarRequest{
		Anchor:      timestamppb.New(time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)),
		Granularity: "month",
		Navigate:    "next",
	})
	if err != nil {
		t.Fatalf("GetCalendar error: %v", err)
	}
	if gotGranularity != calendar.GranularityMonth || gotAnchor.Month() != time.February || gotAnchor.Day() != 28 {
		t.Fatalf("anchor = %v granularity = %s", gotAnchor, gotGranularity)
	}
	if resp.Label != "februari 2026" {
		t.Fatalf("label = %q", resp.Label)
	}
	if len(resp.Days)%7 != 0 || resp.Days[0].Date != "2026-01-26" {
		t.Fatalf("days = %d first = %q", len(resp.Days), resp.Days[0].Date)
	}

	_, err = srv.GetCalendar(context.Background(), &dotheworkv1.GetCalendarRequest{Granularity: "year"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestUpsertService_MapsCatalogErrors(t *testing.T) {
	srv := newTestServer(&fakeBookingsService{}, &fakeCatalogService{
		upsertFn: func(ctx context.Context, p auth.Principal, in catalog.UpsertInput) (domain.Service, error) {
			if in.DurationMinutes == 0 {
				return domain.Service{}, &catalog.ValidationError{}
			}
			return domain.Service{ID: uuid.New(), Name: in.Name, PriceCents: in.PriceCents}, nil
		},
	})

	_, err := srv.UpsertService(context.Background(), &dotheworkv1.UpsertServiceRequest{Service: &dotheworkv1.Service{Name: "x"}})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}

	resp, err := srv.UpsertService(context.Background(), &dotheworkv1.UpsertServiceRequest{
		Service: &dotheworkv1.Service{Name: "Intake", DurationMinutes: 30, PriceCents: 2500},
	})
	if err != nil {
		t.Fatalf("UpsertService error: %v", err)
	}
	if resp.Service.PriceLabel != "€ 25,00" || resp.Service.Color == "" {
		t.Fatalf("service = %+v", resp.Service)
	}
}

func TestGetReceipt_RejectsUnknownFormat(t *testing.T) {
	srv := newTestServer(&fakeBookingsService{}, nil)

	_, err := srv.GetReceipt(context.Background(), &dotheworkv1.GetReceiptRequest{BookingId: uuid.NewString(), Format: "docx"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}
