package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/medreport/apiserver/internal/auth"
	"github.com/medreport/apiserver/internal/services"
	"go.uber.org/zap"
)

// AuthService is the account use-case surface the auth endpoints need.
type AuthService interface {
	Signup(ctx context.Context, req services.SignupRequest) (services.AuthResult, error)
	Login(ctx context.Context, req services.LoginRequest) (services.AuthResult, error)
}

// TokenValidator resolves a bearer token to the caller's identity.
type TokenValidator interface {
	Validate(token string) (auth.Identity, error)
}

// AuthHandler provides signup and login endpoints.
type AuthHandler struct {
	users AuthService
	log   *zap.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(users AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, log: log}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, users AuthService, log *zap.Logger) {
	handler := NewAuthHandler(users, log)

	r.Post("/signup", handler.Signup)
	r.Post("/login", handler.Login)
}

// RequireAuth rejects requests without a valid bearer token and injects the
// caller's identity into the request context.
func RequireAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			identity, err := tokens.Validate(tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
		})
	}
}

// Signup creates a new account and returns a token.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req services.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	res, err := h.users.Signup(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err, "user not found", "failed to create user")
		return
	}

	h.log.Info("user signed up", zap.Int("user_id", res.UserID))
	writeJSON(w, http.StatusCreated, res)
}

// Login verifies credentials and returns a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	res, err := h.users.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err, services.ErrInvalidCredentials.Error(), "failed to authenticate")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
