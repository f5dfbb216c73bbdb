// Package calendar projects bookings into day, week and month views.
//
// Everything in this package is a pure function of its inputs: no I/O, no
// clock, no shared state. An Aggregator is safe for concurrent use.
package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/go-playground/locales/nl"

	"dothework/internal/domain"
)

type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case GranularityDay, GranularityWeek, GranularityMonth:
		return g, nil
	}
	return "", fmt.Errorf("unknown granularity %q", s)
}

type Direction int

const (
	DirectionPrev Direction = -1
	DirectionNext Direction = 1
)

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "next":
		return DirectionNext, nil
	case "prev", "previous":
		return DirectionPrev, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// Palette holds the service colors. The last entry is reserved for bookings
// without a service reference.
type Palette [8]string

var DefaultPalette = Palette{
	"#3B82F6",
	"#10B981",
	"#8B5CF6",
	"#F59E0B",
	"#EF4444",
	"#EC4899",
	"#14B8A6",
	"#6B7280",
}

// Locale supplies month and weekday names. locales.Translator from
// github.com/go-playground/locales satisfies it.
type Locale interface {
	MonthWide(month time.Month) string
	MonthAbbreviated(month time.Month) string
	WeekdayWide(weekday time.Weekday) string
}

type Config struct {
	Palette  Palette
	Locale   Locale
	Location *time.Location
}

type Aggregator struct {
	palette Palette
	locale  Locale
	loc     *time.Location
}

// New returns an Aggregator. Zero-valued fields fall back to DefaultPalette,
// Dutch names and the process-local time zone.
func New(cfg Config) *Aggregator {
	a := &Aggregator{
		palette: cfg.Palette,
		locale:  cfg.Locale,
		loc:     cfg.Location,
	}
	if a.palette == (Palette{}) {
		a.palette = DefaultPalette
	}
	if a.locale == nil {
		a.locale = nl.New()
	}
	if a.loc == nil {
		a.loc = time.Local
	}
	return a
}

func (a *Aggregator) Location() *time.Location {
	return a.loc
}

// ColorForService maps an identifier to a palette entry by the sum of its
// UTF-16 code units modulo the palette size.
func (a *Aggregator) ColorForService(serviceID string) string {
	if serviceID == "" {
		return a.palette[len(a.palette)-1]
	}
	sum := 0
	for _, u := range utf16.Encode([]rune(serviceID)) {
		sum += int(u)
	}
	return a.palette[sum%len(a.palette)]
}

func (a *Aggregator) bookingColor(b domain.Booking) string {
	if b.Service == nil {
		return a.ColorForService("")
	}
	return a.ColorForService(b.Service.ID.String())
}

// Range returns the half-open [start, end) interval covered by the view
// anchored at anchor. Weeks start on Monday.
func (a *Aggregator) Range(anchor time.Time, g Granularity) (time.Time, time.Time) {
	day := startOfDay(anchor.In(a.loc))
	switch g {
	case GranularityWeek:
		monday := startOfWeek(day)
		return monday, monday.AddDate(0, 0, 7)
	case GranularityMonth:
		first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, a.loc)
		return first, first.AddDate(0, 1, 0)
	default:
		return day, day.AddDate(0, 0, 1)
	}
}

func (a *Aggregator) FormatRangeLabel(anchor time.Time, g Granularity) string {
	start, end := a.Range(anchor, g)
	switch g {
	case GranularityWeek:
		last := end.AddDate(0, 0, -1)
		if start.Year() != last.Year() {
			return fmt.Sprintf("%d %s %d - %d %s %d",
				start.Day(), a.locale.MonthAbbreviated(start.Month()), start.Year(),
				last.Day(), a.locale.MonthAbbreviated(last.Month()), last.Year())
		}
		return fmt.Sprintf("%d %s - %d %s %d",
			start.Day(), a.locale.MonthAbbreviated(start.Month()),
			last.Day(), a.locale.MonthAbbreviated(last.Month()), last.Year())
	case GranularityMonth:
		return fmt.Sprintf("%s %d", a.locale.MonthWide(start.Month()), start.Year())
	default:
		return fmt.Sprintf("%s %d %s %d",
			a.locale.WeekdayWide(start.Weekday()), start.Day(), a.locale.MonthWide(start.Month()), start.Year())
	}
}

// FormatDate renders the local date of t, e.g. "maandag 5 januari 2026".
func (a *Aggregator) FormatDate(t time.Time) string {
	return a.FormatRangeLabel(t, GranularityDay)
}

func (a *Aggregator) FormatDateTime(t time.Time) string {
	return a.FormatDate(t) + " om " + t.In(a.loc).Format("15:04")
}

// Navigate moves the anchor one unit of g in direction dir. Month steps keep
// the day of month, clamped to the length of the target month.
func (a *Aggregator) Navigate(anchor time.Time, g Granularity, dir Direction) time.Time {
	t := anchor.In(a.loc)
	step := int(dir)
	switch g {
	case GranularityWeek:
		return t.AddDate(0, 0, 7*step)
	case GranularityMonth:
		return addMonthsClamped(t, step)
	default:
		return t.AddDate(0, 0, step)
	}
}

// DistinctServices returns the services referenced by bookings, deduplicated
// by ID in first-seen order. Bookings without a loaded service are skipped.
func (a *Aggregator) DistinctServices(bookings []domain.Booking) []domain.Service {
	seen := make(map[string]struct{}, len(bookings))
	out := make([]domain.Service, 0)
	for _, b := range bookings {
		if b.Service == nil {
			continue
		}
		key := b.Service.ID.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, *b.Service)
	}
	return out
}

type Entry struct {
	Booking domain.Booking
	Color   string
}

type Day struct {
	Date time.Time
	// InRange is false for the leading and trailing days that pad a month
	// view to whole weeks.
	InRange bool
	Entries []Entry
}

type LegendItem struct {
	Service domain.Service
	Color   string
}

type View struct {
	Anchor      time.Time
	Granularity Granularity
	Start       time.Time
	End         time.Time
	Label       string
	Days        []Day
	Legend      []LegendItem
	// Total counts bookings that fall inside [Start, End).
	Total int
}

// Build buckets bookings into the grid of the view anchored at anchor.
// Bookings outside the displayed grid are dropped.
func (a *Aggregator) Build(anchor time.Time, g Granularity, bookings []domain.Booking) View {
	start, end := a.Range(anchor, g)

	gridStart, gridEnd := start, end
	if g == GranularityMonth {
		gridStart = startOfWeek(start)
		gridEnd = startOfWeek(end.AddDate(0, 0, -1)).AddDate(0, 0, 7)
	}

	view := View{
		Anchor:      anchor.In(a.loc),
		Granularity: g,
		Start:       start,
		End:         end,
		Label:       a.FormatRangeLabel(anchor, g),
	}

	index := make(map[string]int)
	for d := gridStart; d.Before(gridEnd); d = d.AddDate(0, 0, 1) {
		index[dateKey(d)] = len(view.Days)
		view.Days = append(view.Days, Day{
			Date:    d,
			InRange: !d.Before(start) && d.Before(end),
		})
	}

	placed := make([]domain.Booking, 0, len(bookings))
	for _, b := range bookings {
		local := b.StartTime.In(a.loc)
		i, ok := index[dateKey(local)]
		if !ok {
			continue
		}
		view.Days[i].Entries = append(view.Days[i].Entries, Entry{Booking: b, Color: a.bookingColor(b)})
		placed = append(placed, b)
		if view.Days[i].InRange {
			view.Total++
		}
	}

	for i := range view.Days {
		entries := view.Days[i].Entries
		sort.SliceStable(entries, func(x, y int) bool {
			return entries[x].Booking.StartTime.Before(entries[y].Booking.StartTime)
		})
	}

	for _, s := range a.DistinctServices(placed) {
		view.Legend = append(view.Legend, LegendItem{Service: s, Color: a.ColorForService(s.ID.String())})
	}

	return view
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfWeek(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return startOfDay(day).AddDate(0, 0, -offset)
}

func addMonthsClamped(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	day := t.Day()
	if last := daysIn(first); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(monthStart time.Time) int {
	return monthStart.AddDate(0, 1, -1).Day()
}

func dateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}
