package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/billtrackerhq/billtracker-backend/internal/auth"
	"github.com/billtrackerhq/billtracker-backend/internal/models"
	"github.com/billtrackerhq/billtracker-backend/internal/repository"
	"github.com/billtrackerhq/billtracker-backend/tests/mocks"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// AuthHandlerTestSuite is the test suite for AuthHandler
type AuthHandlerTestSuite struct {
	suite.Suite
	echo         *echo.Echo
	handler      *AuthHandler
	mockUserRepo *mocks.MockUserRepository
	jwtManager   *auth.JWTManager
}

// SetupTest runs before each test
func (s *AuthHandlerTestSuite) SetupTest() {
	s.echo = echo.New()
	s.mockUserRepo = new(mocks.MockUserRepository)
	s.jwtManager = auth.NewJWTManager("test-secret-at-least-32-chars-long!", 15*time.Minute, 24*time.Hour)
	s.handler = NewAuthHandler(s.mockUserRepo, s.jwtManager)
}

// TearDownTest runs after each test
func (s *AuthHandlerTestSuite) TearDownTest() {
	s.mockUserRepo.AssertExpectations(s.T())
}

// TestAuthHandlerTestSuite runs the test suite
func TestAuthHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerTestSuite))
}

// Helper function to create a test context
func (s *AuthHandlerTestSuite) createContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	return c, rec
}

func (s *AuthHandlerTestSuite) decodeAuthResponse(rec *httptest.ResponseRecorder) AuthResponse {
	var envelope struct {
		Success bool         `json:"success"`
		Data    AuthResponse `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &envelope))
	s.True(envelope.Success)
	return envelope.Data
}

// ==================== Register Tests ====================

// TestRegister_Success tests creating a new account
func (s *AuthHandlerTestSuite) TestRegister_Success() {
	body := `{"email":"anna@example.com","password":"correct-horse","name":"Anna"}`
	c, rec := s.createContext(http.MethodPost, "/api/auth/register", body)

	s.mockUserRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.Email == "anna@example.com" &&
			u.Name == "Anna" &&
			u.PasswordHash != "" &&
			u.PasswordHash != "correct-horse"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.User).ID = 1
	}).Return(nil)

	err := s.handler.Register(c)

	s.NoError(err)
	s.Equal(http.StatusCreated, rec.Code)

	resp := s.decodeAuthResponse(rec)
	s.NotEmpty(resp.AccessToken)
	s.NotEmpty(resp.RefreshToken)
	s.Equal("Bearer", resp.TokenType)
	s.Equal(uint(1), resp.User.ID)

	claims, err := s.jwtManager.ValidateToken(resp.AccessToken)
	s.NoError(err)
	s.Equal(uint(1), claims.UserID)
}

// TestRegister_InvalidEmail tests registration with a malformed email
func (s *AuthHandlerTestSuite) TestRegister_InvalidEmail() {
	body := `{"email":"not-an-email","password":"correct-horse"}`
	c, rec := s.createContext(http.MethodPost, "/api/auth/register", body)

	err := s.handler.Register(c)

	s.NoError(err)
	s.Equal(http.StatusBadRequest, rec.Code)
}

// TestRegister_ShortPassword tests registration with a too-short password
func (s *AuthHandlerTestSuite) TestRegister_ShortPassword() {
	body := `{"email":"anna@example.com","password":"short"}`
	c, rec := s.createContext(http.MethodPost, "/api/auth/register", body)

	err := s.handler.Register(c)

	s.NoError(err)
	s.Equal(http.StatusBadRequest, rec.Code)
}

// TestRegister_DuplicateEmail tests registration with an existing email
func (s *AuthHandlerTestSuite) TestRegister_DuplicateEmail() {
	body := `{"email":"anna@example.com","password":"correct-horse"}`
	c, rec := s.createContext(http.MethodPost, "/api/auth/register", body)

	s.mockUserRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(repository.ErrDuplicateEntry)

	err := s.handler.Register(c)

	s.NoError(err)
	s.Equal(http.StatusConflict, rec.Code)
}

// ==================== Login Tests ====================

// TestLogin_Success tests logging in with correct credentials
func (s *AuthHandlerTestSuite) TestLogin_Success() {
	hash, err := auth.HashPassword("correct-horse")
	s.Require().NoError(err)
	user := &models.User{ID: 1, Email: "anna@example.com", PasswordHash: hash}
	body := `{"email":"anna@example.com","password":"correct-horse"}`
	c, rec := s.createContext(http.MethodPost, "/api/auth/login", body)

	s.mockUserRepo.On("GetByEmail", mock.Anything, "anna@example.com").Return(user, nil)

	err = s.handler.Login(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)

	resp := s.decodeAuthResponse(rec)
	s.NotEmpty(resp.AccessToken)
	s.Equal("anna@example.com", resp.User.Email)
}

// TestLogin_WrongPassword tests logging in with a bad password
func (s *AuthHandlerTestSuite) TestLogin_WrongPassword() {
	hash, err := auth.HashPassword("correct-horse")
	s.Require().NoError(err)
	user := &models.User{ID: 1, Email: "anna@example.com", PasswordHash: hash}
	body := `{"email":"anna@example.com","password":"wrong"}`
	c, rec := s.createContext(http.MethodPost, "/api/auth/login", body)

	s.mockUserRepo.On("GetByEmail", mock.Anything, "anna@example.com").Return(user, nil)

	err = s.handler.Login(c)

	s.NoError(err)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

// TestLogin_UnknownEmail tests that unknown accounts get the same error as bad passwords
func (s *AuthHandlerTestSuite) TestLogin_UnknownEmail() {
	body := `{"email":"ghost@example.com","password":"whatever"}`
	c, rec := s.createContext(http.MethodPost, "/api/auth/login", body)

	s.mockUserRepo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, repository.ErrNotFound)

	err := s.handler.Login(c)

	s.NoError(err)
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Contains(rec.Body.String(), "invalid email or password")
}

// ==================== Refresh Tests ====================

// TestRefresh_Success tests exchanging a refresh token for fresh tokens
func (s *AuthHandlerTestSuite) TestRefresh_Success() {
	user := &models.User{ID: 1, Email: "anna@example.com"}
	refresh, err := s.jwtManager.GenerateRefreshToken(1)
	s.Require().NoError(err)
	body := `{"refresh_token":"` + refresh + `"}`
	c, rec := s.createContext(http.MethodPost, "/api/auth/refresh", body)

	s.mockUserRepo.On("GetByID", mock.Anything, uint(1)).Return(user, nil)

	err = s.handler.Refresh(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)

	resp := s.decodeAuthResponse(rec)
	s.NotEmpty(resp.AccessToken)
}

// TestRefresh_InvalidToken tests refreshing with garbage
func (s *AuthHandlerTestSuite) TestRefresh_InvalidToken() {
	body := `{"refresh_token":"not.a.token"}`
	c, rec := s.createContext(http.MethodPost, "/api/auth/refresh", body)

	err := s.handler.Refresh(c)

	s.NoError(err)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

// TestRefresh_AccountGone tests refreshing for a deleted account
func (s *AuthHandlerTestSuite) TestRefresh_AccountGone() {
	refresh, err := s.jwtManager.GenerateRefreshToken(1)
	s.Require().NoError(err)
	body := `{"refresh_token":"` + refresh + `"}`
	c, rec := s.createContext(http.MethodPost, "/api/auth/refresh", body)

	s.mockUserRepo.On("GetByID", mock.Anything, uint(1)).Return(nil, repository.ErrNotFound)

	err = s.handler.Refresh(c)

	s.NoError(err)
	s.Equal(http.StatusUnauthorized, rec.Code)
}
