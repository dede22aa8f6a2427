package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// Mailbox describes an IMAP account to scan
type Mailbox struct {
	Server   string
	Username string
	Password string
}

// MailSource retrieves unseen messages from a mailbox. Fetching a
// message marks it seen on the server, which is what keeps already
// processed mail out of the next scan.
type MailSource interface {
	FetchUnseen(ctx context.Context, box Mailbox) ([]*ParsedMessage, error)
}

// imapSource implements MailSource over IMAP with TLS
type imapSource struct {
	logger *slog.Logger
}

// NewIMAPSource creates the production MailSource
func NewIMAPSource(logger *slog.Logger) MailSource {
	return &imapSource{logger: logger}
}

// addrFor appends the default IMAPS port when the server has none
func addrFor(server string) string {
	if strings.Contains(server, ":") {
		return server
	}
	return server + ":993"
}

// FetchUnseen connects to the mailbox, selects INBOX, and downloads
// every unseen message. The fetch uses a non-peek body section, so the
// server flags each downloaded message as seen.
func (s *imapSource) FetchUnseen(ctx context.Context, box Mailbox) ([]*ParsedMessage, error) {
	c, err := client.DialTLS(addrFor(box.Server), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mailbox %s: %w", box.Server, err)
	}
	defer c.Logout()

	if err := c.Login(box.Username, box.Password); err != nil {
		return nil, fmt.Errorf("failed to log in to mailbox %s: %w", box.Server, err)
	}

	if _, err := c.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("failed to select inbox: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search for unseen messages: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	var parsed []*ParsedMessage
	for msg := range messages {
		select {
		case <-ctx.Done():
			drainFetch(messages, done)
			return parsed, ctx.Err()
		default:
		}

		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		p, err := ParseMessage(body)
		if err != nil {
			s.logger.Warn("Failed to parse message, skipping",
				"server", box.Server,
				"seq", msg.SeqNum,
				"error", err)
			continue
		}
		parsed = append(parsed, p)
	}

	if err := <-done; err != nil {
		return parsed, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return parsed, nil
}

// drainFetch consumes the remaining messages and waits for the fetch
// goroutine. Returning while the goroutine is still sending would leak
// it along with the connection.
func drainFetch(messages <-chan *imap.Message, done <-chan error) {
	for range messages {
	}
	<-done
}

// CheckConnection verifies that the mailbox accepts the credentials.
// Used by the settings handler to test a configuration.
func CheckConnection(box Mailbox) error {
	c, err := client.DialTLS(addrFor(box.Server), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to mailbox %s: %w", box.Server, err)
	}
	defer c.Logout()

	if err := c.Login(box.Username, box.Password); err != nil {
		return fmt.Errorf("failed to log in to mailbox %s: %w", box.Server, err)
	}
	return nil
}
