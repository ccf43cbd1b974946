package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gookit/validate"
	"github.com/labstack/echo/v4"

	"pricewatch/internal/auth"
	"pricewatch/internal/mail"
	"pricewatch/internal/store"
	domain "pricewatch/pkg/types"
)

// AuthHandler implements account registration, activation, login, and token
// refresh.
type AuthHandler struct {
	store  store.Store
	tokens *auth.TokenManager
	mailer mail.Mailer
	log    *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. A nil mailer disables activation
// emails; accounts are then activated on creation.
func NewAuthHandler(s store.Store, tokens *auth.TokenManager, mailer mail.Mailer, log *slog.Logger) *AuthHandler {
	return &AuthHandler{store: s, tokens: tokens, mailer: mailer, log: log}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required|email"`
	Password string `json:"password" validate:"required|minLen:8"`
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Activated bool   `json:"activated"`
}

// Register handles POST /api/v1/auth/register.
//
// @Summary Register an account
// @Description Creates a user and sends an activation email.
// @Tags auth
// @Accept json
// @Produce json
// @Param user body registerRequest true "Account to create"
// @Success 201 {object} userResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body: " + err.Error(),
		})
	}

	if v := validate.Struct(&req); !v.Validate() {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": v.Errors.One(),
		})
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "hashing password failed",
		})
	}

	now := time.Now().UTC()
	u := &domain.User{
		Email:              normalizeEmail(req.Email),
		PasswordHash:       hash,
		Activated:          h.mailer == nil,
		LastLogin:          now,
		LastPasswordChange: now,
	}

	if err := h.store.CreateUser(c.Request().Context(), u); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return c.JSON(http.StatusConflict, map[string]string{
				"error": "email is already registered",
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "creating user: " + err.Error(),
		})
	}

	if h.mailer != nil {
		token, err := h.tokens.IssueActivationToken(u.ID)
		if err != nil {
			h.log.Error("issuing activation token failed", "email", u.Email, "error", err)
		} else if err := h.mailer.SendActivationEmail(c.Request().Context(), u.Email, token); err != nil {
			// The account exists either way; the user can request a
			// fresh activation link by registering again later.
			h.log.Error("sending activation email failed", "email", u.Email, "error", err)
		}
	}

	h.log.Info("user registered", "email", u.Email, "activated", u.Activated)

	return c.JSON(http.StatusCreated, userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Activated: u.Activated,
	})
}

// Activate handles GET /api/v1/auth/activate/:token.
//
// @Summary Activate an account
// @Description Marks the account from the activation link as activated.
// @Tags auth
// @Produce json
// @Param token path string true "Activation token"
// @Success 200 {object} StatusResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/activate/{token} [get]
func (h *AuthHandler) Activate(c echo.Context) error {
	userID, err := h.tokens.VerifyActivationToken(c.Param("token"))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "invalid or expired activation link",
		})
	}

	u, err := h.store.GetUserByID(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "invalid or expired activation link",
		})
	}

	if u.Activated {
		return c.JSON(http.StatusOK, map[string]string{"status": "already activated"})
	}

	u.Activated = true
	if err := h.store.SaveUser(c.Request().Context(), u); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "activating account: " + err.Error(),
		})
	}

	h.log.Info("account activated", "email", u.Email)
	return c.JSON(http.StatusOK, map[string]string{"status": "activated"})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required|email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Login handles POST /api/v1/auth/login.
//
// @Summary Log in
// @Description Verifies credentials and returns a signed access token.
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body loginRequest true "Credentials"
// @Success 200 {object} tokenResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body: " + err.Error(),
		})
	}

	if v := validate.Struct(&req); !v.Validate() {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": v.Errors.One(),
		})
	}

	u, err := h.store.GetUserByEmail(c.Request().Context(), normalizeEmail(req.Email))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "invalid credentials",
		})
	}

	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "invalid credentials",
		})
	}

	if !u.Activated {
		return c.JSON(http.StatusForbidden, map[string]string{
			"error": "account is not activated",
		})
	}

	u.LastLogin = time.Now().UTC()
	if err := h.store.SaveUser(c.Request().Context(), u); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "recording login: " + err.Error(),
		})
	}

	token, err := h.tokens.IssueAccessToken(u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "signing token failed",
		})
	}

	h.log.Info("user logged in", "email", u.Email)
	return c.JSON(http.StatusOK, tokenResponse{Token: token})
}

type refreshRequest struct {
	Token string `json:"token" validate:"required"`
}

// Refresh handles POST /api/v1/auth/refresh.
//
// @Summary Refresh an access token
// @Description Exchanges an expired access token for a fresh one, as long as
// the original login is still within its validity period and the password
// has not changed since.
// @Tags auth
// @Accept json
// @Produce json
// @Param token body refreshRequest true "Expired access token"
// @Success 200 {object} tokenResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body: " + err.Error(),
		})
	}

	claims, err := h.tokens.ParseForRefresh(req.Token)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "invalid token",
		})
	}

	u, err := h.store.GetUserByID(c.Request().Context(), claims.Subject)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "invalid token",
		})
	}

	token, err := h.tokens.Refresh(claims, u)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrLoginExpired):
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "session expired, log in again",
			})
		case errors.Is(err, auth.ErrPasswordChanged):
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "password changed, log in again",
			})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "refreshing token: " + err.Error(),
			})
		}
	}

	return c.JSON(http.StatusOK, tokenResponse{Token: token})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
