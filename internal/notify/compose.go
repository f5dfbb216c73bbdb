package notify

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"dothework/internal/calendar"
	"dothework/internal/domain"
)

type Recipient struct {
	Email string
	Name  string
}

// Composer writes the booking emails. Bodies are authored as Markdown; the
// HTML part is rendered from it and the plain text part is the source.
type Composer struct {
	from     string
	business string
	dates    *calendar.Aggregator
	md       goldmark.Markdown
}

func NewComposer(from, business string, dates *calendar.Aggregator) *Composer {
	return &Composer{
		from:     from,
		business: business,
		dates:    dates,
		md:       goldmark.New(goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps())),
	}
}

func (c *Composer) BookingCreated(to Recipient, b domain.Booking) (Message, error) {
	var body strings.Builder
	fmt.Fprintf(&body, "Hoi %s,\n\n", greetingName(to))
	body.WriteString("Bedankt voor je boeking. We hebben je aanvraag ontvangen:\n\n")
	c.writeDetails(&body, b)
	body.WriteString("\nJe ontvangt bericht zodra we je afspraak hebben bevestigd. ")
	body.WriteString("Kun je niet? Annuleer dan minimaal 24 uur van tevoren.\n\n")
	c.writeSignature(&body)

	return c.message(to, fmt.Sprintf("Je afspraak bij %s is aangevraagd", c.business), body.String())
}

func (c *Composer) BookingStatusChanged(to Recipient, b domain.Booking) (Message, error) {
	var body strings.Builder
	fmt.Fprintf(&body, "Hoi %s,\n\n", greetingName(to))
	fmt.Fprintf(&body, "De status van je afspraak is gewijzigd naar **%s**.\n\n", b.Status.Label())
	c.writeDetails(&body, b)
	body.WriteString("\n")
	c.writeSignature(&body)

	return c.message(to, "Je afspraak is "+b.Status.Label(), body.String())
}

func (c *Composer) writeDetails(w *strings.Builder, b domain.Booking) {
	if b.Service != nil {
		fmt.Fprintf(w, "- **Dienst:** %s\n", b.Service.Name)
	}
	fmt.Fprintf(w, "- **Datum:** %s\n", c.dates.FormatDateTime(b.StartTime))
	if b.Service != nil {
		fmt.Fprintf(w, "- **Duur:** %d minuten\n", b.Service.DurationMinutes)
		fmt.Fprintf(w, "- **Prijs:** %s\n", domain.FormatPrice(b.Service.PriceCents))
	}
	fmt.Fprintf(w, "- **Referentie:** %s\n", b.ID)
}

func (c *Composer) writeSignature(w *strings.Builder) {
	fmt.Fprintf(w, "Sportieve groet,\n%s\n", c.business)
}

func (c *Composer) message(to Recipient, subject, markdown string) (Message, error) {
	var html bytes.Buffer
	if err := c.md.Convert([]byte(markdown), &html); err != nil {
		return Message{}, fmt.Errorf("render email: %w", err)
	}
	return Message{
		From:    c.from,
		To:      []string{to.Email},
		Subject: subject,
		HTML:    html.String(),
		Text:    markdown,
	}, nil
}

func greetingName(to Recipient) string {
	if name := strings.TrimSpace(to.Name); name != "" {
		return name
	}
	return "daar"
}
