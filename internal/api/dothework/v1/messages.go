package dotheworkv1

import (
	"google.golang.org/protobuf/types/known/timestamppb"
)

type Service struct {
	Id              string `json:"id,omitempty"`
	Name            string `json:"name,omitempty"`
	Description     string `json:"description,omitempty"`
	DurationMinutes int32  `json:"duration_minutes,omitempty"`
	PriceCents      int64  `json:"price_cents,omitempty"`
	PriceLabel      string `json:"price_label,omitempty"`
	Active          bool   `json:"active,omitempty"`
	Color           string `json:"color,omitempty"`
}

type Booking struct {
	Id          string                 `json:"id,omitempty"`
	ServiceId   string                 `json:"service_id,omitempty"`
	UserId      string                 `json:"user_id,omitempty"`
	StartTime   *timestamppb.Timestamp `json:"start_time,omitempty"`
	EndTime     *timestamppb.Timestamp `json:"end_time,omitempty"`
	Status      string                 `json:"status,omitempty"`
	StatusLabel string                 `json:"status_label,omitempty"`
	Notes       string                 `json:"notes,omitempty"`
	ClientName  string                 `json:"client_name,omitempty"`
	ClientEmail string                 `json:"client_email,omitempty"`
	Service     *Service               `json:"service,omitempty"`
	CreatedAt   *timestamppb.Timestamp `json:"created_at,omitempty"`
	UpdatedAt   *timestamppb.Timestamp `json:"updated_at,omitempty"`
}

type ValidateBookingRequest struct {
	ServiceId string                 `json:"service_id,omitempty"`
	StartTime *timestamppb.Timestamp `json:"start_time,omitempty"`
}

type ValidateBookingResponse struct {
	Valid     bool       `json:"valid"`
	Errors    []string   `json:"errors,omitempty"`
	Conflicts []*Booking `json:"conflicts,omitempty"`
}

type CreateBookingRequest struct {
	ServiceId string                 `json:"service_id,omitempty"`
	StartTime *timestamppb.Timestamp `json:"start_time,omitempty"`
	Notes     string                 `json:"notes,omitempty"`
}

type CreateBookingResponse struct {
	Booking *Booking `json:"booking,omitempty"`
}

type GetBookingRequest struct {
	BookingId string `json:"booking_id,omitempty"`
}

type GetBookingResponse struct {
	Booking *Booking `json:"booking,omitempty"`
}

type ListBookingsRequest struct {
	WindowStart      *timestamppb.Timestamp `json:"window_start,omitempty"`
	WindowEnd        *timestamppb.Timestamp `json:"window_end,omitempty"`
	UserId           string                 `json:"user_id,omitempty"`
	IncludeCancelled bool                   `json:"include_cancelled,omitempty"`
}

type ListBookingsResponse struct {
	Bookings []*Booking `json:"bookings"`
}

type UpdateBookingStatusRequest struct {
	BookingId string `json:"booking_id,omitempty"`
	Status    string `json:"status,omitempty"`
}

type UpdateBookingStatusResponse struct {
	Booking *Booking `json:"booking,omitempty"`
}

// GetCalendarRequest asks for the view anchored at Anchor. Navigate
// ("prev" or "next") moves the anchor one unit first.
type GetCalendarRequest struct {
	Anchor      *timestamppb.Timestamp `json:"anchor,omitempty"`
	Granularity string                 `json:"granularity,omitempty"`
	Navigate    string                 `json:"navigate,omitempty"`
}

type CalendarEntry struct {
	Booking *Booking `json:"booking,omitempty"`
	Color   string   `json:"color,omitempty"`
}

type CalendarDay struct {
	Date    string           `json:"date,omitempty"`
	InRange bool             `json:"in_range,omitempty"`
	Entries []*CalendarEntry `json:"entries,omitempty"`
}

type LegendItem struct {
	Service *Service `json:"service,omitempty"`
	Color   string   `json:"color,omitempty"`
}

type GetCalendarResponse struct {
	Anchor      *timestamppb.Timestamp `json:"anchor,omitempty"`
	Granularity string                 `json:"granularity,omitempty"`
	Label       string                 `json:"label,omitempty"`
	RangeStart  *timestamppb.Timestamp `json:"range_start,omitempty"`
	RangeEnd    *timestamppb.Timestamp `json:"range_end,omitempty"`
	Days        []*CalendarDay         `json:"days"`
	Legend      []*LegendItem          `json:"legend"`
	Total       int32                  `json:"total"`
}

type ListServicesRequest struct {
	IncludeInactive bool `json:"include_inactive,omitempty"`
}

type ListServicesResponse struct {
	Services []*Service `json:"services"`
}

type UpsertServiceRequest struct {
	Service *Service `json:"service,omitempty"`
}

type UpsertServiceResponse struct {
	Service *Service `json:"service,omitempty"`
}

type GetReceiptRequest struct {
	BookingId string `json:"booking_id,omitempty"`
	Format    string `json:"format,omitempty"`
}

type GetReceiptResponse struct {
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Content     []byte `json:"content,omitempty"`
}
