package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/billtrackerhq/billtracker-backend/internal/api/middleware"
	"github.com/billtrackerhq/billtracker-backend/internal/ingest"
	"github.com/billtrackerhq/billtracker-backend/internal/models"
	"github.com/billtrackerhq/billtracker-backend/internal/notify"
	"github.com/billtrackerhq/billtracker-backend/tests/mocks"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// fakeSender records notification sends and can fail on demand
type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) Send(url, title, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, url)
	return nil
}

// SettingsHandlerTestSuite is the test suite for SettingsHandler
type SettingsHandlerTestSuite struct {
	suite.Suite
	echo         *echo.Echo
	handler      *SettingsHandler
	mockUserRepo *mocks.MockUserRepository
	sender       *fakeSender
}

// SetupTest runs before each test
func (s *SettingsHandlerTestSuite) SetupTest() {
	s.echo = echo.New()
	s.mockUserRepo = new(mocks.MockUserRepository)
	s.sender = &fakeSender{}
	dispatcher := notify.NewDispatcher(s.sender, "", slog.New(slog.DiscardHandler))
	s.handler = NewSettingsHandler(s.mockUserRepo, dispatcher)
}

// TearDownTest runs after each test
func (s *SettingsHandlerTestSuite) TearDownTest() {
	s.mockUserRepo.AssertExpectations(s.T())
}

// TestSettingsHandlerTestSuite runs the test suite
func TestSettingsHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(SettingsHandlerTestSuite))
}

// Helper function to create an authenticated test context
func (s *SettingsHandlerTestSuite) createContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	c.Set(middleware.ContextKeyUserID, uint(7))
	return c, rec
}

// Helper function to create a test user
func (s *SettingsHandlerTestSuite) createTestUser() *models.User {
	return &models.User{
		ID:           7,
		Email:        "anna@example.com",
		Name:         "Anna",
		NotifyURL:    "telegram://token@telegram?chats=1",
		IMAPServer:   "imap.example.com",
		IMAPUser:     "anna@example.com",
		IMAPPassword: "secret",
	}
}

// ==================== Get Tests ====================

// TestGet_Success tests reading the account settings
func (s *SettingsHandlerTestSuite) TestGet_Success() {
	c, rec := s.createContext(http.MethodGet, "/api/settings", "")

	s.mockUserRepo.On("GetByID", mock.Anything, uint(7)).Return(s.createTestUser(), nil)

	err := s.handler.Get(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"imap_password_set":true`)
	s.NotContains(rec.Body.String(), "secret")
}

// TestGet_AccountMissing tests settings for a deleted account
func (s *SettingsHandlerTestSuite) TestGet_AccountMissing() {
	c, rec := s.createContext(http.MethodGet, "/api/settings", "")

	s.mockUserRepo.On("GetByID", mock.Anything, uint(7)).Return(nil, errors.New("not found"))

	err := s.handler.Get(c)

	s.NoError(err)
	s.Equal(http.StatusNotFound, rec.Code)
}

// ==================== Update Tests ====================

// TestUpdate_Success tests saving new settings
func (s *SettingsHandlerTestSuite) TestUpdate_Success() {
	body := `{"name":"  Anna B  ","notify_url":"ntfy://host/bills","imap_server":"mail.example.org"}`
	c, rec := s.createContext(http.MethodPut, "/api/settings", body)

	s.mockUserRepo.On("GetByID", mock.Anything, uint(7)).Return(s.createTestUser(), nil)
	s.mockUserRepo.On("Update", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.Name == "Anna B" &&
			u.NotifyURL == "ntfy://host/bills" &&
			u.IMAPServer == "mail.example.org" &&
			u.IMAPUser == "anna@example.com"
	})).Return(nil)

	err := s.handler.Update(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
}

// TestUpdate_EmptyPasswordKeepsExisting tests that a blank password is not saved
func (s *SettingsHandlerTestSuite) TestUpdate_EmptyPasswordKeepsExisting() {
	body := `{"imap_user":"anna2@example.com","imap_password":""}`
	c, rec := s.createContext(http.MethodPut, "/api/settings", body)

	s.mockUserRepo.On("GetByID", mock.Anything, uint(7)).Return(s.createTestUser(), nil)
	s.mockUserRepo.On("Update", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.IMAPUser == "anna2@example.com" && u.IMAPPassword == "secret"
	})).Return(nil)

	err := s.handler.Update(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
}

// TestUpdate_NewPasswordReplacesExisting tests saving a new mailbox password
func (s *SettingsHandlerTestSuite) TestUpdate_NewPasswordReplacesExisting() {
	body := `{"imap_password":"fresh-app-password"}`
	c, rec := s.createContext(http.MethodPut, "/api/settings", body)

	s.mockUserRepo.On("GetByID", mock.Anything, uint(7)).Return(s.createTestUser(), nil)
	s.mockUserRepo.On("Update", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.IMAPPassword == "fresh-app-password"
	})).Return(nil)

	err := s.handler.Update(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
	s.NotContains(rec.Body.String(), "fresh-app-password")
}

// TestUpdate_ClearsNotifyURL tests removing the notification endpoint
func (s *SettingsHandlerTestSuite) TestUpdate_ClearsNotifyURL() {
	c, rec := s.createContext(http.MethodPut, "/api/settings", `{"notify_url":""}`)

	s.mockUserRepo.On("GetByID", mock.Anything, uint(7)).Return(s.createTestUser(), nil)
	s.mockUserRepo.On("Update", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.NotifyURL == ""
	})).Return(nil)

	err := s.handler.Update(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
}

// ==================== TestNotification Tests ====================

// TestTestNotification_Success tests the notification self-test
func (s *SettingsHandlerTestSuite) TestTestNotification_Success() {
	c, rec := s.createContext(http.MethodPost, "/api/settings/test-notification", "")

	s.mockUserRepo.On("GetByID", mock.Anything, uint(7)).Return(s.createTestUser(), nil)

	err := s.handler.TestNotification(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal([]string{"telegram://token@telegram?chats=1"}, s.sender.sent)
}

// TestTestNotification_NoEndpoint tests the self-test without a configured endpoint
func (s *SettingsHandlerTestSuite) TestTestNotification_NoEndpoint() {
	user := s.createTestUser()
	user.NotifyURL = ""
	c, rec := s.createContext(http.MethodPost, "/api/settings/test-notification", "")

	s.mockUserRepo.On("GetByID", mock.Anything, uint(7)).Return(user, nil)

	err := s.handler.TestNotification(c)

	s.NoError(err)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Empty(s.sender.sent)
}

// TestTestNotification_SendFails tests the self-test surfacing a send failure
func (s *SettingsHandlerTestSuite) TestTestNotification_SendFails() {
	s.sender.err = errors.New("connection refused")
	c, rec := s.createContext(http.MethodPost, "/api/settings/test-notification", "")

	s.mockUserRepo.On("GetByID", mock.Anything, uint(7)).Return(s.createTestUser(), nil)

	err := s.handler.TestNotification(c)

	s.NoError(err)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "connection refused")
}

// ==================== TestMailbox Tests ====================

// TestTestMailbox_Success tests the mailbox connection self-test
func (s *SettingsHandlerTestSuite) TestTestMailbox_Success() {
	var checked ingest.Mailbox
	s.handler.checkMailbox = func(box ingest.Mailbox) error {
		checked = box
		return nil
	}
	c, rec := s.createContext(http.MethodPost, "/api/settings/test-imap", "")

	s.mockUserRepo.On("GetByID", mock.Anything, uint(7)).Return(s.createTestUser(), nil)

	err := s.handler.TestMailbox(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("imap.example.com", checked.Server)
	s.Equal("anna@example.com", checked.Username)
}

// TestTestMailbox_NotConfigured tests the self-test without mailbox credentials
func (s *SettingsHandlerTestSuite) TestTestMailbox_NotConfigured() {
	user := s.createTestUser()
	user.IMAPServer = ""
	c, rec := s.createContext(http.MethodPost, "/api/settings/test-imap", "")

	s.mockUserRepo.On("GetByID", mock.Anything, uint(7)).Return(user, nil)

	err := s.handler.TestMailbox(c)

	s.NoError(err)
	s.Equal(http.StatusBadRequest, rec.Code)
}

// TestTestMailbox_ConnectionFails tests the self-test surfacing a login failure
func (s *SettingsHandlerTestSuite) TestTestMailbox_ConnectionFails() {
	s.handler.checkMailbox = func(box ingest.Mailbox) error {
		return errors.New("authentication failed")
	}
	c, rec := s.createContext(http.MethodPost, "/api/settings/test-imap", "")

	s.mockUserRepo.On("GetByID", mock.Anything, uint(7)).Return(s.createTestUser(), nil)

	err := s.handler.TestMailbox(c)

	s.NoError(err)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "authentication failed")
}
