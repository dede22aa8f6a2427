package notify

import (
	"log/slog"
	"strings"

	"github.com/billtrackerhq/billtracker-backend/internal/models"
	"github.com/containrrr/shoutrrr"
)

// Sender delivers a message to a single notification endpoint URL
type Sender interface {
	Send(url, title, body string) error
}

// shoutrrrSender implements Sender using the shoutrrr service router
type shoutrrrSender struct{}

// NewShoutrrrSender creates the production Sender
func NewShoutrrrSender() Sender {
	return &shoutrrrSender{}
}

func (s *shoutrrrSender) Send(url, title, body string) error {
	message := body
	if title != "" {
		message = title + "\n" + body
	}
	return shoutrrr.Send(url, message)
}

// Dispatcher resolves notification endpoints per user and delivers
// messages. A user's own URLs win over the global fallback; a user with
// neither configured is silently skipped.
type Dispatcher struct {
	sender      Sender
	fallbackURL string
	logger      *slog.Logger
}

// NewDispatcher creates a Dispatcher with an optional global fallback URL
func NewDispatcher(sender Sender, fallbackURL string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sender:      sender,
		fallbackURL: fallbackURL,
		logger:      logger,
	}
}

// urlsFor resolves the endpoint URLs for a user. NotifyURL may hold
// several URLs separated by newlines or commas.
func (d *Dispatcher) urlsFor(user *models.User) []string {
	raw := ""
	if user != nil {
		raw = user.NotifyURL
	}
	if strings.TrimSpace(raw) == "" {
		raw = d.fallbackURL
	}

	var urls []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == ','
	}) {
		if part = strings.TrimSpace(part); part != "" {
			urls = append(urls, part)
		}
	}
	return urls
}

// Notify sends a message to every endpoint resolved for the user.
// Endpoint failures are logged and never propagated; one broken URL
// must not block the others or the calling job.
func (d *Dispatcher) Notify(user *models.User, title, body string) {
	urls := d.urlsFor(user)
	if len(urls) == 0 {
		d.logger.Debug("No notification endpoint configured, skipping",
			"title", title)
		return
	}

	for _, url := range urls {
		if err := d.sender.Send(url, title, body); err != nil {
			d.logger.Error("Failed to send notification",
				"title", title,
				"error", err)
			continue
		}
		d.logger.Info("Notification sent", "title", title)
	}
}

// Test sends a probe message to the user's resolved endpoints and
// reports the first failure. Used by the settings handler.
func (d *Dispatcher) Test(user *models.User, title, body string) error {
	urls := d.urlsFor(user)
	if len(urls) == 0 {
		return ErrNoEndpoint
	}
	for _, url := range urls {
		if err := d.sender.Send(url, title, body); err != nil {
			return err
		}
	}
	return nil
}
