// Package receipt renders booking receipts as plain text or PDF.
package receipt

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"dothework/internal/calendar"
	"dothework/internal/domain"
)

type Format string

const (
	FormatText Format = "text"
	FormatPDF  Format = "pdf"
)

type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported receipt format %q", e.Format)
}

// ParseFormat accepts "text" and "pdf"; empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatPDF:
		return f, nil
	}
	return "", &UnsupportedFormatError{Format: s}
}

// Data is the input of a receipt. Booking.Service must be loaded.
type Data struct {
	Booking     domain.Booking
	ClientName  string
	ClientEmail string
}

type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

type Renderer struct {
	business string
	dates    *calendar.Aggregator
	now      func() time.Time
}

func New(business string, dates *calendar.Aggregator) *Renderer {
	return &Renderer{
		business: business,
		dates:    dates,
		now:      time.Now,
	}
}

func (r *Renderer) Render(f Format, d Data) (Document, error) {
	base := "afspraak-" + d.Booking.ID.String()
	switch f {
	case FormatText, "":
		return Document{
			Filename:    base + ".txt",
			ContentType: "text/plain; charset=utf-8",
			Body:        []byte(r.Text(d)),
		}, nil
	case FormatPDF:
		body, err := r.PDF(d)
		if err != nil {
			return Document{}, err
		}
		return Document{
			Filename:    base + ".pdf",
			ContentType: "application/pdf",
			Body:        body,
		}, nil
	}
	return Document{}, &UnsupportedFormatError{Format: string(f)}
}

type line struct {
	label string
	value string
}

func (r *Renderer) lines(d Data) []line {
	b := d.Booking
	client := d.ClientName
	if d.ClientEmail != "" {
		client = fmt.Sprintf("%s (%s)", client, d.ClientEmail)
	}

	out := []line{{"Klant", client}}
	if b.Service != nil {
		out = append(out, line{"Dienst", b.Service.Name})
	}
	out = append(out, line{"Datum", r.dates.FormatDateTime(b.StartTime)})
	if b.Service != nil {
		out = append(out, line{"Duur", fmt.Sprintf("%d minuten", b.Service.DurationMinutes)})
	}
	out = append(out, line{"Status", b.Status.Label()})
	if b.Service != nil {
		out = append(out, line{"Bedrag", domain.FormatPrice(b.Service.PriceCents)})
	}
	out = append(out, line{"Referentie", b.ID.String()})
	return out
}

func (r *Renderer) Text(d Data) string {
	var sb strings.Builder
	sb.WriteString(r.business + "\n")
	sb.WriteString("Betalingsbewijs\n\n")
	for _, l := range r.lines(d) {
		fmt.Fprintf(&sb, "%s: %s\n", l.label, l.value)
	}
	fmt.Fprintf(&sb, "\nUitgegeven op %s\n", r.dates.FormatDate(r.now()))
	sb.WriteString("Bedankt en tot snel!\n")
	return sb.String()
}

func (r *Renderer) PDF(d Data) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetTitle(r.business+" betalingsbewijs", true)
	pdf.AddPage()
	// Core fonts are cp1252; the translator covers the euro sign and accents.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 12, tr(r.business), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 13)
	pdf.CellFormat(0, 8, "Betalingsbewijs", "B", 1, "L", false, 0, "")
	pdf.Ln(6)

	for _, l := range r.lines(d) {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(35, 8, tr(l.label), "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 8, tr(l.value), "", 1, "L", false, 0, "")
	}

	qr, err := qrcode.Encode("dothework:booking:"+d.Booking.ID.String(), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("receipt qr code: %w", err)
	}
	imgOpts := gofpdf.ImageOptions{ImageType: "png"}
	pdf.RegisterImageOptionsReader("booking-qr", imgOpts, bytes.NewReader(qr))
	pdf.ImageOptions("booking-qr", 150, 20, 40, 40, false, imgOpts, 0, "")

	pdf.SetY(-30)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 10, tr("Uitgegeven op "+r.dates.FormatDate(r.now())+". Bedankt en tot snel!"), "T", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}
