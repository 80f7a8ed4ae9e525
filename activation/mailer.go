package activation

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
)

// Message is a verification mail.
type Message struct {
	To      string
	Subject string
	Body    string
	Link    string
}

// Mailer delivers verification mail.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to a logger instead of sending them.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger.With("component", "mailer")}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "verification mail",
		"to", msg.To,
		"subject", msg.Subject,
		"link", msg.Link,
	)
	return nil
}

// VerifyLink builds <baseURL>/verify/<email>/<key>.
func VerifyLink(baseURL, email, key string) string {
	return strings.TrimRight(baseURL, "/") + "/verify/" + url.PathEscape(email) + "/" + url.PathEscape(key)
}

func verificationMessage(baseURL, username, email, key string) Message {
	link := VerifyLink(baseURL, email, key)
	return Message{
		To:      email,
		Subject: "Confirm your storefront account",
		Body:    "Hello " + username + ",\n\nopen the link below to activate your account:\n\n" + link + "\n",
		Link:    link,
	}
}
