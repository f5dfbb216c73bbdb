package receipt

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"dothework/internal/calendar"
	"dothework/internal/domain"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Fatalf("LoadLocation error: %v", err)
	}
	r := New("Do The Work", calendar.New(calendar.Config{Location: loc}))
	r.now = func() time.Time { return time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC) }
	return r
}

func testData() Data {
	return Data{
		ClientName:  "Sam",
		ClientEmail: "sam@example.com",
		Booking: domain.Booking{
			ID:        uuid.MustParse("0190f3a4-0000-7000-8000-0000000000aa"),
			UserID:    "u1",
			StartTime: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
			Status:    domain.BookingStatusCompleted,
			Service: &domain.Service{
				Name:            "Duo training",
				DurationMinutes: 45,
				PriceCents:      6995,
			},
		},
	}
}

func TestText(t *testing.T) {
	got := newTestRenderer(t).Text(testData())

	for _, want := range []string{
		"Do The Work\nBetalingsbewijs\n",
		"Klant: Sam (sam@example.com)\n",
		"Dienst: Duo training\n",
		"Datum: maandag 2 maart 2026 om 10:00\n",
		"Duur: 45 minuten\n",
		"Status: afgerond\n",
		"Bedrag: € 69,95\n",
		"Referentie: 0190f3a4-0000-7000-8000-0000000000aa\n",
		"Uitgegeven op dinsdag 3 maart 2026\n",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("receipt missing %q:\n%s", want, got)
		}
	}
}

func TestPDF(t *testing.T) {
	body, err := newTestRenderer(t).PDF(testData())
	if err != nil {
		t.Fatalf("PDF error: %v", err)
	}
	if !bytes.HasPrefix(body, []byte("%PDF-")) {
		t.Fatalf("output is not a pdf: %q", body[:min(len(body), 16)])
	}
}

func TestRender(t *testing.T) {
	r := newTestRenderer(t)

	doc, err := r.Render(FormatText, testData())
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if doc.ContentType != "text/plain; charset=utf-8" || !strings.HasSuffix(doc.Filename, ".txt") {
		t.Fatalf("document = %+v", doc)
	}

	doc, err = r.Render(FormatPDF, testData())
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if doc.ContentType != "application/pdf" || doc.Filename != "afspraak-0190f3a4-0000-7000-8000-0000000000aa.pdf" {
		t.Fatalf("document = %+v", doc)
	}

	_, err = r.Render("docx", testData())
	var unsupported *UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("err = %v, want *UnsupportedFormatError", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{" PDF ", FormatPDF, false},
		{"html", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Fatalf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}
