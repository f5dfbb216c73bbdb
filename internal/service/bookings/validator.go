package bookings

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"dothework/internal/domain"
	"dothework/internal/store"
)

const (
	MsgNotSignedIn     = "Je moet ingelogd zijn om een afspraak te boeken."
	MsgSlotTaken       = "Dit tijdslot is al bezet. Kies een ander tijdstip."
	MsgDailyCapReached = "Je hebt al een afspraak op deze dag."
	MsgValidationFault = "Er is een fout opgetreden bij het valideren van je boeking."
)

// MinNoticeMessage and MaxHorizonMessage render the window errors for the
// configured rules; the defaults give "24 uur" and "60 dagen".
func MinNoticeMessage(notice time.Duration) string {
	return fmt.Sprintf("Afspraken moeten minimaal %d uur van tevoren worden geboekt.", int(math.Round(notice.Hours())))
}

func MaxHorizonMessage(horizon time.Duration) string {
	return fmt.Sprintf("Afspraken kunnen maximaal %d dagen van tevoren worden geboekt.", int(math.Round(horizon.Hours()/24)))
}

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

type Rules struct {
	MinNotice  time.Duration
	MaxHorizon time.Duration
	Location   *time.Location
}

func DefaultRules() Rules {
	return Rules{
		MinNotice:  24 * time.Hour,
		MaxHorizon: 60 * 24 * time.Hour,
		Location:   time.Local,
	}
}

// Result is the outcome of a validation. Errors are user-facing and ordered
// by rule.
type Result struct {
	Valid     bool
	Errors    []string
	Conflicts []domain.Booking
}

func (r *Result) add(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Valid = false
}

type Validator struct {
	finder store.BookingFinder
	clock  Clock
	rules  Rules
	log    *slog.Logger
}

func NewValidator(finder store.BookingFinder, clock Clock, rules Rules, log *slog.Logger) *Validator {
	if clock == nil {
		clock = SystemClock{}
	}
	if rules.Location == nil {
		rules.Location = time.Local
	}
	if log == nil {
		log = slog.Default()
	}
	return &Validator{
		finder: finder,
		clock:  clock,
		rules:  rules,
		log:    log.With(slog.String("component", "bookings.validator")),
	}
}

func (v *Validator) Rules() Rules {
	return v.rules
}

// Validate checks a proposed booking against the booking window, the slot
// and the user's daily cap. It never returns an error: failing queries turn
// into a negative Result.
func (v *Validator) Validate(ctx context.Context, serviceID uuid.UUID, proposed time.Time, userID string) Result {
	return v.validateWith(ctx, v.finder, serviceID, proposed, userID, true)
}

func (v *Validator) validateWith(ctx context.Context, finder store.BookingFinder, serviceID uuid.UUID, proposed time.Time, userID string, concurrent bool) Result {
	res := Result{Valid: true}

	if userID == "" {
		res.add(MsgNotSignedIn)
		return res
	}

	now := v.clock.Now()
	if proposed.Before(now.Add(v.rules.MinNotice)) {
		res.add(MinNoticeMessage(v.rules.MinNotice))
	}
	if proposed.After(now.Add(v.rules.MaxHorizon)) {
		res.add(MaxHorizonMessage(v.rules.MaxHorizon))
	}

	exact := proposed.UTC()
	dayStart, dayEnd := DayBounds(proposed, v.rules.Location)
	notCancelled := []domain.BookingStatus{domain.BookingStatusCancelled}

	var slot, sameDay []domain.Booking
	querySlot := func(ctx context.Context) error {
		var err error
		slot, err = finder.FindBookings(ctx, store.BookingFilter{
			ExactStart:      &exact,
			ExcludeStatuses: notCancelled,
			WithService:     true,
		})
		return err
	}
	queryDay := func(ctx context.Context) error {
		var err error
		sameDay, err = finder.FindBookings(ctx, store.BookingFilter{
			UserID:          userID,
			From:            dayStart,
			To:              dayEnd,
			ExcludeStatuses: notCancelled,
		})
		return err
	}

	var err error
	if concurrent {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return querySlot(gctx) })
		g.Go(func() error { return queryDay(gctx) })
		err = g.Wait()
	} else {
		// A transaction holds a single connection; queries must not overlap.
		if err = querySlot(ctx); err == nil {
			err = queryDay(ctx)
		}
	}
	if err != nil {
		v.log.Warn(
			"booking validation query failed",
			slog.Any("err", err),
			slog.String("user_id", userID),
			slog.String("service_id", serviceID.String()),
			slog.Time("start_time", exact),
		)
		res.add(MsgValidationFault)
		return res
	}

	if len(slot) > 0 {
		res.add(MsgSlotTaken)
		res.Conflicts = append(res.Conflicts, slot...)
	}
	if len(sameDay) > 0 {
		res.add(MsgDailyCapReached)
	}

	if !res.Valid {
		v.log.Debug(
			"booking rejected",
			slog.String("user_id", userID),
			slog.String("service_id", serviceID.String()),
			slog.Time("start_time", exact),
			slog.Any("errors", res.Errors),
		)
	}
	return res
}

// DayBounds returns the half-open local calendar day containing t.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return start.UTC(), end.UTC()
}

// DayKey names the local calendar day containing t, used to serialize
// creates for that day.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}
