package handlers

import (
	"errors"
	"strings"

	"github.com/billtrackerhq/billtracker-backend/internal/api/response"
	"github.com/billtrackerhq/billtracker-backend/internal/auth"
	"github.com/billtrackerhq/billtracker-backend/internal/models"
	"github.com/billtrackerhq/billtracker-backend/internal/repository"
	"github.com/labstack/echo/v4"
)

// AuthHandler handles registration and login HTTP requests
type AuthHandler struct {
	userRepo   repository.UserRepository
	jwtManager *auth.JWTManager
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(userRepo repository.UserRepository, jwtManager *auth.JWTManager) *AuthHandler {
	return &AuthHandler{
		userRepo:   userRepo,
		jwtManager: jwtManager,
	}
}

// RegisterRequest is the payload for POST /api/auth/register
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest is the payload for POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the payload for POST /api/auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse carries the issued tokens and the account summary
type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	User         UserResponse `json:"user"`
}

// UserResponse is the public view of a user account
type UserResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return response.BadRequest(c, "a valid email is required")
	}
	if len(req.Password) < 8 {
		return response.BadRequest(c, "password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return response.InternalError(c, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
	}
	if err := h.userRepo.Create(c.Request().Context(), user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return response.Conflict(c, "an account with this email already exists")
		}
		return response.InternalError(c, "failed to create account")
	}

	return h.issueTokens(c, user, true)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	user, err := h.userRepo.GetByEmail(c.Request().Context(), strings.TrimSpace(req.Email))
	if err != nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		return response.Unauthorized(c, "invalid email or password")
	}

	return h.issueTokens(c, user, false)
}

// Refresh handles POST /api/auth/refresh
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	claims, err := h.jwtManager.ValidateToken(req.RefreshToken)
	if err != nil {
		return response.Unauthorized(c, "invalid or expired refresh token")
	}

	user, err := h.userRepo.GetByID(c.Request().Context(), claims.UserID)
	if err != nil {
		return response.Unauthorized(c, "account no longer exists")
	}

	return h.issueTokens(c, user, false)
}

func (h *AuthHandler) issueTokens(c echo.Context, user *models.User, created bool) error {
	accessToken, err := h.jwtManager.GenerateToken(user.ID, user.Email)
	if err != nil {
		return response.InternalError(c, "failed to issue token")
	}
	refreshToken, err := h.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return response.InternalError(c, "failed to issue refresh token")
	}

	resp := AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(h.jwtManager.TokenDuration().Seconds()),
		User: UserResponse{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
		},
	}
	if created {
		return response.Created(c, resp)
	}
	return response.Success(c, resp)
}
