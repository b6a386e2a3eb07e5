package handlers

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/medreport/apiserver/internal/services"
	"github.com/medreport/apiserver/types"
	"go.uber.org/zap"
)

const (
	formFieldImage   = "image"
	profileImagePath = "/profile/me/image"
)

// ProfileService is the profile use-case surface the profile endpoints need.
type ProfileService interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	UpdateProfile(ctx context.Context, userID int, req services.UpdateProfileRequest) (types.User, error)
	UploadProfileImage(ctx context.Context, userID int, img services.ImageUpload) (string, error)
	OpenProfileImage(ctx context.Context, userID int) (io.ReadCloser, string, error)
}

// ProfileHandler serves the caller's own profile.
type ProfileHandler struct {
	users          ProfileService
	maxUploadBytes int64
	log            *zap.Logger
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(users ProfileService, maxUploadBytes int64, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		users:          users,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// ProfileRouter registers profile routes on the given router.
func ProfileRouter(
	r chi.Router,
	users ProfileService,
	maxUploadBytes int64,
	log *zap.Logger,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewProfileHandler(users, maxUploadBytes, log)

	if authMiddleware != nil {
		r.Use(authMiddleware)
	}
	r.Get("/me", handler.Get)
	r.Put("/me", handler.Update)
	r.Post("/me/image", handler.UploadImage)
	r.Get("/me/image", handler.GetImage)
}

// ProfileResponse is the public view of a user.
type ProfileResponse struct {
	ID              int     `json:"id"`
	FullName        string  `json:"full_name"`
	Email           string  `json:"email"`
	Gender          *string `json:"gender"`
	Phone           *string `json:"phone"`
	ProfileImageURL *string `json:"profile_image_url"`
}

// ImageURLResponse carries the address of the stored profile image.
type ImageURLResponse struct {
	URL string `json:"url"`
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.users.GetByID(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, r, h.log, err, "user not found", "failed to load profile")
		return
	}

	resp := ProfileResponse{
		ID:       user.ID,
		FullName: user.FullName,
		Email:    user.Email,
		Gender:   user.Gender,
		Phone:    user.Phone,
	}
	if user.ProfileImagePath != nil && *user.ProfileImagePath != "" {
		u := imageURL(r, services.ProfileImageKey(*user.ProfileImagePath))
		resp.ProfileImageURL = &u
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req services.UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if _, err := h.users.UpdateProfile(r.Context(), identity.UserID, req); err != nil {
		writeServiceError(w, r, h.log, err, "user not found", "failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "profile updated"})
}

func (h *ProfileHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	file, header, err := parseUploadForm(w, r, h.maxUploadBytes, formFieldImage)
	defer removeForm(r)
	if err != nil {
		if !writeUploadError(w, err) {
			writeError(w, http.StatusBadRequest, "invalid request")
		}
		return
	}
	defer file.Close()

	key, err := h.users.UploadProfileImage(r.Context(), identity.UserID, services.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err, "user not found", "failed to upload image")
		return
	}

	writeJSON(w, http.StatusOK, ImageURLResponse{URL: imageURL(r, key)})
}

func (h *ProfileHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	body, key, err := h.users.OpenProfileImage(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, r, h.log, err, "profile image not found", "failed to fetch profile image")
		return
	}
	defer body.Close()

	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=0")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.log.Warn("streaming profile image interrupted", zap.Int("user_id", identity.UserID), zap.Error(err))
	}
}

// imageURL addresses the current profile image. The key changes on every
// upload, so clients holding an old URL refetch.
func imageURL(r *http.Request, key string) string {
	return absoluteURL(r, profileImagePath+"?v="+url.QueryEscape(key))
}
