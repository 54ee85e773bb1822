package user

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-analogy-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-analogy-go/pkg/utilities"
)

// TokenIssuer signs tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID int64) (auth.Token, error)
}

// Handler exposes HTTP endpoints for user operations (signup / login / password).
type Handler struct {
	svc    *UserService
	tokens TokenIssuer
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, tokens TokenIssuer, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, tokens: tokens, logger: logger}
}

// CredentialsRequest is the body of signup and login.
type CredentialsRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := utilities.DecodeJSON(w, r, &req); err != nil {
		h.logger.Debugw("invalid signup payload", "err", err)
		utilities.WriteError(w, http.StatusBadRequest, "validation_failed", "invalid payload")
		return
	}
	u, err := h.svc.Signup(r.Context(), req.Handle, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateHandle):
			utilities.WriteError(w, http.StatusConflict, "duplicate_handle", "handle already taken")
		case errors.Is(err, ErrInvalidHandle):
			utilities.WriteError(w, http.StatusBadRequest, "validation_failed", "handle must be 1-64 characters without spaces")
		case errors.Is(err, ErrWeakPassword):
			utilities.WriteError(w, http.StatusBadRequest, "validation_failed", "password does not meet policy")
		default:
			h.logger.Errorw("signup failed", "err", err)
			utilities.WriteError(w, http.StatusInternalServerError, "internal", "signup failed")
		}
		return
	}
	h.logger.Infow("user signed up", "user_id", u.ID)
	utilities.WriteJSON(w, http.StatusCreated, u.Public())
}

// LoginResponse carries the bearer token.
type LoginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := utilities.DecodeJSON(w, r, &req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		utilities.WriteError(w, http.StatusBadRequest, "validation_failed", "invalid payload")
		return
	}
	u, err := h.svc.Authenticate(r.Context(), req.Handle, req.Password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			h.logger.Debugw("login failed", "err", err)
			utilities.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
			return
		}
		h.logger.Errorw("login failed", "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "internal", "login failed")
		return
	}
	tok, err := h.tokens.Issue(u.ID)
	if err != nil {
		h.logger.Errorw("issue token", "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "internal", "login failed")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, LoginResponse{Token: tok.Value, TokenType: "bearer", ExpiresAt: tok.ExpiresAt})
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword must be mounted behind auth.Middleware.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utilities.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	var req ChangePasswordRequest
	if err := utilities.DecodeJSON(w, r, &req); err != nil {
		utilities.WriteError(w, http.StatusBadRequest, "validation_failed", "invalid payload")
		return
	}
	err := h.svc.ChangePassword(r.Context(), id, req.OldPassword, req.NewPassword)
	switch {
	case err == nil:
		h.logger.Infow("password changed", "user_id", id)
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, ErrBadCredentials):
		utilities.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
	case errors.Is(err, ErrWeakPassword):
		utilities.WriteError(w, http.StatusBadRequest, "validation_failed", "password does not meet policy")
	default:
		h.logger.Errorw("change password failed", "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "internal", "change password failed")
	}
}
