package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/medreport/apiserver/internal/auth"
	"github.com/medreport/apiserver/internal/services"
	"github.com/medreport/apiserver/internal/store"
	"go.uber.org/zap"
)

const (
	maxJSONBodyBytes   = 1 << 20
	maxMultipartMemory = 8 << 20
)

type contextKey string

const contextIdentityKey contextKey = "identity"

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse acknowledges an operation that returns no resource.
type MessageResponse struct {
	Message string `json:"message"`
}

func withIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, contextIdentityKey, id)
}

func identityFromContext(ctx context.Context) (auth.Identity, error) {
	id, ok := ctx.Value(contextIdentityKey).(auth.Identity)
	if !ok || id.UserID < 1 {
		return auth.Identity{}, errors.New("missing identity")
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// writeServiceError maps a service or store error to a response. Anything
// unrecognised is logged and reported with the fallback message.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error, notFound, fallback string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		writeError(w, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, services.ErrDuplicateEmail):
		writeError(w, http.StatusBadRequest, services.ErrDuplicateEmail.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, services.ErrInvalidCredentials.Error())
	case errors.Is(err, services.ErrInvalidFileType):
		writeError(w, http.StatusBadRequest, services.ErrInvalidFileType.Error())
	case errors.Is(err, services.ErrEmptyUpload):
		writeError(w, http.StatusBadRequest, services.ErrEmptyUpload.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, services.ErrStorageWrite):
		log.Error("blob write failed", zap.String("request_id", middleware.GetReqID(r.Context())), zap.Error(err))
		writeError(w, http.StatusInternalServerError, services.ErrStorageWrite.Error())
	default:
		log.Error(fallback, zap.String("request_id", middleware.GetReqID(r.Context())), zap.Error(err))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), services.ErrValidation.Error()+": ")
	if msg == "" {
		return services.ErrValidation.Error()
	}
	return msg
}

func parseFileID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "fileID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid file id")
	}
	return id, nil
}

// absoluteURL resolves path against the scheme and host the client used.
func absoluteURL(r *http.Request, path string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.SplitN(proto, ",", 2)[0]))
	}
	return scheme + "://" + r.Host + path
}
