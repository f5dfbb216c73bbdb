package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"dothework/internal/calendar"
	"dothework/internal/domain"
)

func testBooking() domain.Booking {
	return domain.Booking{
		ID:        uuid.MustParse("0190f3a4-0000-7000-8000-000000000001"),
		UserID:    "u1",
		StartTime: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Status:    domain.BookingStatusPending,
		Service: &domain.Service{
			Name:            "PT sessie",
			DurationMinutes: 60,
			PriceCents:      4500,
		},
	}
}

func TestComposer_BookingCreated(t *testing.T) {
	c := NewComposer("Do The Work <noreply@dothework.nl>", "Do The Work", calendar.New(calendar.Config{Location: time.UTC}))

	msg, err := c.BookingCreated(Recipient{Email: "sam@example.com", Name: "Sam"}, testBooking())
	if err != nil {
		t.Fatalf("BookingCreated error: %v", err)
	}

	if msg.From != "Do The Work <noreply@dothework.nl>" {
		t.Fatalf("from = %q", msg.From)
	}
	if len(msg.To) != 1 || msg.To[0] != "sam@example.com" {
		t.Fatalf("to = %v", msg.To)
	}
	if msg.Subject != "Je afspraak bij Do The Work is aangevraagd" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	for _, want := range []string{"Hoi Sam,", "PT sessie", "maandag 2 maart 2026 om 09:00", "€ 45,00", "60 minuten"} {
		if !strings.Contains(msg.Text, want) {
			t.Fatalf("text missing %q:\n%s", want, msg.Text)
		}
	}
	if !strings.Contains(msg.HTML, "<strong>Dienst:</strong>") || !strings.Contains(msg.HTML, "<li>") {
		t.Fatalf("html not rendered from markdown:\n%s", msg.HTML)
	}
}

func TestComposer_BookingStatusChanged(t *testing.T) {
	c := NewComposer("noreply@dothework.nl", "Do The Work", calendar.New(calendar.Config{Location: time.UTC}))

	b := testBooking()
	b.Status = domain.BookingStatusCancelled
	b.Service = nil

	msg, err := c.BookingStatusChanged(Recipient{Email: "sam@example.com"}, b)
	if err != nil {
		t.Fatalf("BookingStatusChanged error: %v", err)
	}
	if msg.Subject != "Je afspraak is geannuleerd" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.Text, "Hoi daar,") {
		t.Fatalf("expected fallback greeting:\n%s", msg.Text)
	}
	if strings.Contains(msg.Text, "Prijs") {
		t.Fatalf("price listed without a service:\n%s", msg.Text)
	}
}

func TestComposer_EscapesRawHTML(t *testing.T) {
	c := NewComposer("noreply@dothework.nl", "Do The Work", calendar.New(calendar.Config{Location: time.UTC}))

	msg, err := c.BookingCreated(Recipient{Email: "x@example.com", Name: "<script>alert(1)</script>"}, testBooking())
	if err != nil {
		t.Fatalf("BookingCreated error: %v", err)
	}
	if strings.Contains(msg.HTML, "<script>") {
		t.Fatalf("raw html leaked into email:\n%s", msg.HTML)
	}
}

func TestNoopSender_Send(t *testing.T) {
	res, err := NoopSender{}.Send(context.Background(), Message{To: []string{"x@example.com"}, Subject: "s"})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if !strings.HasPrefix(res.ID, "noop-") {
		t.Fatalf("id = %q", res.ID)
	}
}

func TestResendSender_RequiresRecipients(t *testing.T) {
	_, err := NewResendSender("re_test", "noreply@dothework.nl").Send(context.Background(), Message{Subject: "s"})
	if err == nil {
		t.Fatalf("expected error")
	}
}
