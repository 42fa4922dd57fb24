package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/recipe-organizer/internal/apperror"
	"github.com/sakif/recipe-organizer/internal/auth"
	"github.com/sakif/recipe-organizer/internal/service"
)

// AuthService is what AuthHandler needs from service.AuthService.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
	IsTokenValid(token string) bool
}

var _ AuthService = (*service.AuthService)(nil)

// AuthHandler serves /api/auth.
//
//   - HandleRegister → POST /api/auth/register
//   - HandleLogin    → POST /api/auth/login
//   - HandleValidate → GET  /api/auth/validate
//   - HandleMe       → GET  /api/auth/me (behind auth.RequireAuth)
type AuthHandler struct {
	auth   AuthService
	logger *slog.Logger
}

func NewAuthHandler(svc AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: svc, logger: logger}
}

// LoginRequest is the login body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates an account.
//
// 200 {"token": "..."}, or 400 "Email already in use" as plain text.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleLogin exchanges credentials for a token.
//
// 200 {"token": "..."}, or 400 "Invalid credentials" as plain text.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleValidate reports whether the bearer token on the request is valid.
// It always answers 200; a missing header is simply {"valid": false}.
func (h *AuthHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.BearerToken(r)
	writeJSON(w, http.StatusOK, map[string]bool{
		"valid": ok && h.auth.IsTokenValid(token),
	})
}

// HandleMe returns the email the caller's token was issued for.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("valid authentication required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": email})
}
