package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/billtrackerhq/billtracker-backend/internal/extraction"
	"github.com/billtrackerhq/billtracker-backend/internal/models"
	"github.com/billtrackerhq/billtracker-backend/internal/notify"
	"github.com/billtrackerhq/billtracker-backend/internal/repository"
	"github.com/billtrackerhq/billtracker-backend/internal/storage"
	"github.com/billtrackerhq/billtracker-backend/internal/websocket"
)

const (
	maxTitleLength = 100
	defaultDueDays = 30
)

// Job scans mailboxes for unseen messages and turns PDF attachments
// into bills. It runs once per invocation; the scheduler decides the
// cadence.
type Job struct {
	users      repository.UserRepository
	bills      repository.BillRepository
	store      storage.FileStorage
	extractor  extraction.Client
	dispatcher *notify.Dispatcher
	hub        *websocket.Hub
	source     MailSource

	// Legacy single-mailbox configuration, scanned on behalf of the
	// owner account when fully configured.
	legacyBox   Mailbox
	legacyOwner string

	logger *slog.Logger
	now    func() time.Time
}

// Config carries the job's construction parameters
type Config struct {
	Users      repository.UserRepository
	Bills      repository.BillRepository
	Store      storage.FileStorage
	Extractor  extraction.Client
	Dispatcher *notify.Dispatcher
	Hub        *websocket.Hub
	Source     MailSource

	LegacyBox   Mailbox
	LegacyOwner string

	Logger *slog.Logger
}

// NewJob creates a mailbox ingestion job
func NewJob(cfg Config) *Job {
	return &Job{
		users:       cfg.Users,
		bills:       cfg.Bills,
		store:       cfg.Store,
		extractor:   cfg.Extractor,
		dispatcher:  cfg.Dispatcher,
		hub:         cfg.Hub,
		source:      cfg.Source,
		legacyBox:   cfg.LegacyBox,
		legacyOwner: cfg.LegacyOwner,
		logger:      cfg.Logger,
		now:         time.Now,
	}
}

// Run scans the legacy mailbox (when configured) and every user's
// personal mailbox. A failing mailbox aborts only its own scan.
func (j *Job) Run(ctx context.Context) {
	if j.legacyConfigured() {
		owner, err := j.users.GetByEmail(ctx, j.legacyOwner)
		if err != nil {
			j.logger.Error("Legacy mailbox owner not found, skipping scan",
				"owner", j.legacyOwner,
				"error", err)
		} else {
			j.scanMailbox(ctx, owner, j.legacyBox)
		}
	}

	users, err := j.users.ListWithMailbox(ctx)
	if err != nil {
		j.logger.Error("Failed to list users with mailbox credentials", "error", err)
		return
	}

	for i := range users {
		user := &users[i]
		box := Mailbox{
			Server:   user.IMAPServer,
			Username: user.IMAPUser,
			Password: user.IMAPPassword,
		}
		j.scanMailbox(ctx, user, box)
	}
}

func (j *Job) legacyConfigured() bool {
	return j.legacyBox.Server != "" && j.legacyBox.Username != "" &&
		j.legacyBox.Password != "" && j.legacyOwner != ""
}

// scanMailbox fetches unseen messages from one mailbox and processes
// each. Connection or login failures end this scan only.
func (j *Job) scanMailbox(ctx context.Context, owner *models.User, box Mailbox) {
	messages, err := j.source.FetchUnseen(ctx, box)
	if err != nil {
		j.logger.Error("Mailbox scan failed",
			"server", box.Server,
			"user_id", owner.ID,
			"error", err)
		return
	}
	if len(messages) == 0 {
		return
	}

	j.logger.Info("Scanning unseen messages",
		"server", box.Server,
		"user_id", owner.ID,
		"count", len(messages))

	for _, msg := range messages {
		created := j.processMessage(ctx, owner, msg)
		if created > 0 {
			j.dispatcher.Notify(owner, "New invoice imported",
				fmt.Sprintf("Imported %d bill(s) from \"%s\"", created, msg.Subject))
		}
	}
}

// processMessage persists every PDF attachment of a message as a bill
// and returns how many bills were created. A failing attachment is
// skipped; the rest of the message is still processed.
func (j *Job) processMessage(ctx context.Context, owner *models.User, msg *ParsedMessage) int {
	created := 0
	for _, att := range msg.Attachments {
		if !strings.HasSuffix(strings.ToLower(att.Filename), ".pdf") {
			continue
		}

		bill, err := j.importAttachment(ctx, owner, msg, att)
		if err != nil {
			j.logger.Error("Failed to import attachment",
				"filename", att.Filename,
				"user_id", owner.ID,
				"error", err)
			continue
		}

		created++
		if j.hub != nil {
			j.hub.PublishBillEvent(owner.ID, websocket.EventTypeBillCreated, billPayload(bill))
		}
	}
	return created
}

func (j *Job) importAttachment(ctx context.Context, owner *models.User, msg *ParsedMessage, att ParsedAttachment) (*models.Bill, error) {
	filename := storage.MailFilename(j.now().Unix(), att.Filename)

	if err := j.store.Save(filename, bytes.NewReader(att.Content)); err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}

	title := truncateTitle(msg.Subject)
	if title == "" {
		title = att.Filename
	}
	dueDate := j.now().AddDate(0, 0, defaultDueDays)
	var amount *float64

	if j.extractor != nil {
		result, err := j.extractor.Extract(ctx, filename, att.Content)
		if err != nil {
			j.logger.Warn("Extraction failed, using defaults",
				"filename", filename,
				"error", err)
		} else {
			if result.Title != nil {
				title = *result.Title
			}
			if result.DueDate != nil {
				dueDate = *result.DueDate
			}
			amount = result.Amount
		}
	}

	bill := &models.Bill{
		Title:    title,
		Filename: filename,
		Status:   models.StatusOpen,
		DueDate:  &dueDate,
		Amount:   amount,
		UserID:   owner.ID,
	}
	if err := j.bills.Create(ctx, bill); err != nil {
		// Roll the stored file back so a retry starts clean. A
		// duplicate filename means another bill owns that file, so it
		// stays.
		if !errors.Is(err, repository.ErrDuplicateEntry) {
			_ = j.store.Delete(filename)
		}
		return nil, err
	}

	j.logger.Info("Bill imported from mailbox",
		"bill_id", bill.ID,
		"filename", filename,
		"user_id", owner.ID)
	return bill, nil
}

// truncateTitle caps a subject at maxTitleLength characters, never
// splitting a multibyte rune.
func truncateTitle(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) > maxTitleLength {
		return string(runes[:maxTitleLength])
	}
	return s
}

func billPayload(bill *models.Bill) *websocket.BillPayload {
	payload := &websocket.BillPayload{
		ID:       bill.ID,
		Title:    bill.Title,
		Amount:   bill.Amount,
		Status:   bill.Status,
		Filename: bill.Filename,
	}
	if bill.DueDate != nil {
		payload.DueDate = bill.DueDate.Format("2006-01-02")
	}
	return payload
}
