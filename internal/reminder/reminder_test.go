package reminder

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/billtrackerhq/billtracker-backend/internal/models"
	"github.com/billtrackerhq/billtracker-backend/internal/notify"
	"github.com/billtrackerhq/billtracker-backend/internal/repository"
	"github.com/billtrackerhq/billtracker-backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type sentNotification struct {
	Title string
	Body  string
}

type recordingSender struct {
	sent []sentNotification
}

func (r *recordingSender) Send(_, title, body string) error {
	r.sent = append(r.sent, sentNotification{Title: title, Body: body})
	return nil
}

type ReminderJobTestSuite struct {
	suite.Suite
	db       *gorm.DB
	bills    repository.BillRepository
	users    repository.UserRepository
	sender   *recordingSender
	testUser *models.User
	today    time.Time
}

func (s *ReminderJobTestSuite) SetupSuite() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err)
	db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(s.T(), db.AutoMigrate(&models.User{}, &models.Bill{}, &models.BillFile{}))
	s.db = db
	s.users = repository.NewUserRepository(db)
	s.today = time.Date(2025, 4, 10, 8, 0, 0, 0, time.UTC)
}

func (s *ReminderJobTestSuite) SetupTest() {
	s.db.Exec("DELETE FROM bill_files")
	s.db.Exec("DELETE FROM bills")
	s.db.Exec("DELETE FROM users")

	store, err := storage.NewLocalStorage(s.T().TempDir())
	require.NoError(s.T(), err)
	s.bills = repository.NewBillRepository(s.db, store)
	s.sender = &recordingSender{}

	s.testUser = &models.User{Email: "owner@example.com", NotifyURL: "ntfy://personal/bills"}
	require.NoError(s.T(), s.users.Create(context.Background(), s.testUser))
}

func TestReminderJobTestSuite(t *testing.T) {
	suite.Run(t, new(ReminderJobTestSuite))
}

func (s *ReminderJobTestSuite) newJob() *Job {
	log := slog.New(slog.DiscardHandler)
	job := NewJob(s.bills, notify.NewDispatcher(s.sender, "", log), nil, log)
	job.now = func() time.Time { return s.today }
	return job
}

func (s *ReminderJobTestSuite) addBill(title, filename, status string, due *time.Time) {
	bill := &models.Bill{Title: title, Filename: filename, Status: status, DueDate: due, UserID: s.testUser.ID}
	require.NoError(s.T(), s.bills.Create(context.Background(), bill))
}

func (s *ReminderJobTestSuite) daysFromToday(days int) *time.Time {
	d := s.today.AddDate(0, 0, days)
	return &d
}

func (s *ReminderJobTestSuite) TestRun_OverdueBillNotified() {
	s.addBill("Electricity", "1_a.pdf", models.StatusOpen, s.daysFromToday(-2))

	s.newJob().Run(context.Background())

	require.Len(s.T(), s.sender.sent, 1)
	assert.Equal(s.T(), "Bill overdue", s.sender.sent[0].Title)
	assert.Contains(s.T(), s.sender.sent[0].Body, "Electricity")
	assert.Contains(s.T(), s.sender.sent[0].Body, "2025-04-08")
}

func (s *ReminderJobTestSuite) TestRun_DueTodayCountsAsOverdue() {
	s.addBill("Water", "1_b.pdf", models.StatusOpen, s.daysFromToday(0))

	s.newJob().Run(context.Background())

	require.Len(s.T(), s.sender.sent, 1)
	assert.Equal(s.T(), "Bill overdue", s.sender.sent[0].Title)
}

func (s *ReminderJobTestSuite) TestRun_ExactlyThreeDaysOutReminded() {
	s.addBill("Internet", "1_c.pdf", models.StatusOpen, s.daysFromToday(3))

	s.newJob().Run(context.Background())

	require.Len(s.T(), s.sender.sent, 1)
	assert.Equal(s.T(), "Bill due soon", s.sender.sent[0].Title)
	assert.Contains(s.T(), s.sender.sent[0].Body, "Internet")
}

func (s *ReminderJobTestSuite) TestRun_OtherLeadTimesStaySilent() {
	s.addBill("One day", "2_a.pdf", models.StatusOpen, s.daysFromToday(1))
	s.addBill("Two days", "2_b.pdf", models.StatusOpen, s.daysFromToday(2))
	s.addBill("Four days", "2_c.pdf", models.StatusOpen, s.daysFromToday(4))
	s.addBill("Far out", "2_d.pdf", models.StatusOpen, s.daysFromToday(30))

	s.newJob().Run(context.Background())

	assert.Empty(s.T(), s.sender.sent)
}

func (s *ReminderJobTestSuite) TestRun_PaidAndUndatedBillsSkipped() {
	paid := &models.Bill{
		Title: "Paid", Filename: "3_a.pdf", Status: models.StatusPaid,
		DueDate: s.daysFromToday(-5), UserID: s.testUser.ID,
	}
	require.NoError(s.T(), s.bills.Create(context.Background(), paid))
	s.addBill("Undated", "3_b.pdf", models.StatusOpen, nil)

	s.newJob().Run(context.Background())

	assert.Empty(s.T(), s.sender.sent)
}

func (s *ReminderJobTestSuite) TestRun_SecondRunRepeatsNotifications() {
	s.addBill("Electricity", "4_a.pdf", models.StatusOpen, s.daysFromToday(-1))

	job := s.newJob()
	job.Run(context.Background())
	job.Run(context.Background())

	// No suppression state is kept between runs
	assert.Len(s.T(), s.sender.sent, 2)
}
