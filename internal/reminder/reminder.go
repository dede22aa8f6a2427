package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/billtrackerhq/billtracker-backend/internal/models"
	"github.com/billtrackerhq/billtracker-backend/internal/notify"
	"github.com/billtrackerhq/billtracker-backend/internal/repository"
	"github.com/billtrackerhq/billtracker-backend/internal/websocket"
)

// reminderLeadDays is the exact days-remaining value that triggers the
// upcoming-due reminder. Values below it, other than overdue, stay
// silent so the user hears about a bill at most once before it is due.
const reminderLeadDays = 3

// Job walks every open bill with a due date and notifies owners of
// overdue and soon-due bills. No suppression state is kept; running the
// job twice on the same day re-sends the same notifications.
type Job struct {
	bills      repository.BillRepository
	dispatcher *notify.Dispatcher
	hub        *websocket.Hub
	logger     *slog.Logger
	now        func() time.Time
}

// NewJob creates a due-date reminder job
func NewJob(bills repository.BillRepository, dispatcher *notify.Dispatcher, hub *websocket.Hub, logger *slog.Logger) *Job {
	return &Job{
		bills:      bills,
		dispatcher: dispatcher,
		hub:        hub,
		logger:     logger,
		now:        time.Now,
	}
}

// Run dispatches notifications for every qualifying open bill
func (j *Job) Run(ctx context.Context) {
	bills, err := j.bills.ListOpenWithDueDate(ctx)
	if err != nil {
		j.logger.Error("Failed to list due bills", "error", err)
		return
	}

	now := j.now()
	for i := range bills {
		bill := &bills[i]
		days := bill.DaysLeftAt(now)
		if days == nil {
			continue
		}

		switch {
		case *days <= 0:
			j.dispatcher.Notify(&bill.User, "Bill overdue",
				fmt.Sprintf("\"%s\" was due on %s", bill.Title, bill.DueDate.Format("2006-01-02")))
			j.publish(bill)

		case *days == reminderLeadDays:
			j.dispatcher.Notify(&bill.User, "Bill due soon",
				fmt.Sprintf("\"%s\" is due in %d days", bill.Title, reminderLeadDays))
			j.publish(bill)
		}
	}
}

func (j *Job) publish(bill *models.Bill) {
	if j.hub == nil {
		return
	}
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
	j.hub.PublishBillEvent(bill.UserID, websocket.EventTypeBillDue, payload)
}
