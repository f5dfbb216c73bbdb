package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"dothework/internal/auth"
	"dothework/internal/service/bookings"
	"dothework/internal/service/catalog"
	"dothework/internal/store"
)

const (
	msgIdempotencyConflict = "Deze aanvraag is al gebruikt voor een andere afspraak. Probeer het opnieuw."
	msgStaleWrite          = "De afspraak is intussen gewijzigd. Vernieuw en probeer het opnieuw."
)

// rejectedStatus reports every failed booking rule as a precondition
// violation. The status message joins the Dutch messages for clients that
// ignore details.
func rejectedStatus(res bookings.Result) error {
	msg := bookings.MsgValidationFault
	if len(res.Errors) > 0 {
		msg = res.Errors[0]
		for _, e := range res.Errors[1:] {
			msg += " " + e
		}
	}

	st := status.New(codes.FailedPrecondition, msg)
	violations := make([]*errdetails.PreconditionFailure_Violation, 0, len(res.Errors))
	for _, e := range res.Errors {
		violations = append(violations, &errdetails.PreconditionFailure_Violation{
			Type:        "BOOKING_RULE",
			Subject:     "start_time",
			Description: e,
		})
	}
	if withDetails, err := st.WithDetails(&errdetails.PreconditionFailure{Violations: violations}); err == nil {
		st = withDetails
	}
	return st.Err()
}

// statusError maps service and store errors to gRPC status codes. Unknown
// errors are logged and hidden behind codes.Internal.
func statusError(log *slog.Logger, err error) error {
	var (
		rejected *bookings.RejectedError
		bookErr  *bookings.ValidationError
		catErr   *catalog.ValidationError
	)

	switch {
	case errors.As(err, &rejected):
		log.Info("booking rejected", slog.Any("errors", rejected.Result.Errors))
		return rejectedStatus(rejected.Result)
	case errors.As(err, &bookErr):
		log.Warn("invalid request", slog.Any("err", err))
		return status.Error(codes.InvalidArgument, bookErr.Error())
	case errors.As(err, &catErr):
		log.Warn("invalid request", slog.Any("err", err))
		return status.Error(codes.InvalidArgument, catErr.Error())
	case errors.Is(err, auth.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "authentication required")
	case errors.Is(err, auth.ErrForbidden):
		log.Info("permission denied", slog.Any("err", err))
		return status.Error(codes.PermissionDenied, "permission denied")
	case errors.Is(err, store.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, store.ErrIdempotencyConflict):
		log.Info("idempotency conflict")
		return status.Error(codes.FailedPrecondition, msgIdempotencyConflict)
	case errors.Is(err, store.ErrConflict):
		log.Info("write conflict", slog.Any("err", err))
		return status.Error(codes.Aborted, msgStaleWrite)
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("deadline exceeded", slog.Any("err", err))
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	}

	log.Error("request failed", slog.Any("err", err))
	return status.Error(codes.Internal, "internal error")
}
