package notify

import (
	"context"
	"time"
)

// Message is an email ready for delivery. HTML and Text carry the same
// content.
type Message struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

type Result struct {
	ID     string
	SentAt time.Time
}

type Sender interface {
	Send(ctx context.Context, msg Message) (Result, error)
}
