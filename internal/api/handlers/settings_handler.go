package handlers

import (
	"strings"

	"github.com/billtrackerhq/billtracker-backend/internal/api/middleware"
	"github.com/billtrackerhq/billtracker-backend/internal/api/response"
	"github.com/billtrackerhq/billtracker-backend/internal/ingest"
	"github.com/billtrackerhq/billtracker-backend/internal/notify"
	"github.com/billtrackerhq/billtracker-backend/internal/repository"
	"github.com/labstack/echo/v4"
)

// SettingsHandler handles account settings HTTP requests
type SettingsHandler struct {
	userRepo   repository.UserRepository
	dispatcher *notify.Dispatcher

	// checkMailbox verifies IMAP credentials; swapped out in tests
	checkMailbox func(ingest.Mailbox) error
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(userRepo repository.UserRepository, dispatcher *notify.Dispatcher) *SettingsHandler {
	return &SettingsHandler{
		userRepo:     userRepo,
		dispatcher:   dispatcher,
		checkMailbox: ingest.CheckConnection,
	}
}

// SettingsResponse is the account settings view. The mailbox password
// is write-only and never echoed back.
type SettingsResponse struct {
	Email       string `json:"email"`
	Name        string `json:"name,omitempty"`
	NotifyURL   string `json:"notify_url,omitempty"`
	IMAPServer  string `json:"imap_server,omitempty"`
	IMAPUser    string `json:"imap_user,omitempty"`
	HasPassword bool   `json:"imap_password_set"`
}

// UpdateSettingsRequest is the payload for PUT /api/settings. The IMAP
// password is only changed when a non-empty value is sent.
type UpdateSettingsRequest struct {
	Name         *string `json:"name"`
	NotifyURL    *string `json:"notify_url"`
	IMAPServer   *string `json:"imap_server"`
	IMAPUser     *string `json:"imap_user"`
	IMAPPassword *string `json:"imap_password"`
}

// Get handles GET /api/settings
func (h *SettingsHandler) Get(c echo.Context) error {
	user, err := h.userRepo.GetByID(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return response.NotFound(c, "account not found")
	}

	return response.Success(c, SettingsResponse{
		Email:       user.Email,
		Name:        user.Name,
		NotifyURL:   user.NotifyURL,
		IMAPServer:  user.IMAPServer,
		IMAPUser:    user.IMAPUser,
		HasPassword: user.IMAPPassword != "",
	})
}

// Update handles PUT /api/settings
func (h *SettingsHandler) Update(c echo.Context) error {
	var req UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	user, err := h.userRepo.GetByID(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return response.NotFound(c, "account not found")
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.NotifyURL != nil {
		user.NotifyURL = strings.TrimSpace(*req.NotifyURL)
	}
	if req.IMAPServer != nil {
		user.IMAPServer = strings.TrimSpace(*req.IMAPServer)
	}
	if req.IMAPUser != nil {
		user.IMAPUser = strings.TrimSpace(*req.IMAPUser)
	}
	if req.IMAPPassword != nil && *req.IMAPPassword != "" {
		user.IMAPPassword = *req.IMAPPassword
	}

	if err := h.userRepo.Update(c.Request().Context(), user); err != nil {
		return response.InternalError(c, "failed to save settings")
	}

	return response.Success(c, SettingsResponse{
		Email:       user.Email,
		Name:        user.Name,
		NotifyURL:   user.NotifyURL,
		IMAPServer:  user.IMAPServer,
		IMAPUser:    user.IMAPUser,
		HasPassword: user.IMAPPassword != "",
	})
}

// TestNotification handles POST /api/settings/test-notification
func (h *SettingsHandler) TestNotification(c echo.Context) error {
	user, err := h.userRepo.GetByID(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return response.NotFound(c, "account not found")
	}

	if err := h.dispatcher.Test(user, "Test notification", "Your notification endpoint works."); err != nil {
		if err == notify.ErrNoEndpoint {
			return response.BadRequest(c, "no notification endpoint configured")
		}
		return response.BadRequest(c, "notification failed: "+err.Error())
	}

	return response.SuccessWithMessage(c, nil, "test notification sent")
}

// TestMailbox handles POST /api/settings/test-imap
func (h *SettingsHandler) TestMailbox(c echo.Context) error {
	user, err := h.userRepo.GetByID(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return response.NotFound(c, "account not found")
	}
	if !user.HasMailboxConfig() {
		return response.BadRequest(c, "mailbox credentials are not configured")
	}

	box := ingest.Mailbox{
		Server:   user.IMAPServer,
		Username: user.IMAPUser,
		Password: user.IMAPPassword,
	}
	if err := h.checkMailbox(box); err != nil {
		return response.BadRequest(c, "mailbox connection failed: "+err.Error())
	}

	return response.SuccessWithMessage(c, nil, "mailbox connection succeeded")
}
