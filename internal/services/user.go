package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/medreport/apiserver/internal/store"
	"github.com/medreport/apiserver/types"
	"go.uber.org/zap"
)

// maxPasswordBytes is bcrypt's input limit.
const maxPasswordBytes = 72

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateProfile(ctx context.Context, user types.User) (types.User, error)
	SetProfileImage(ctx context.Context, id int, path string) error
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TokenIssuer mints a session token for a user.
type TokenIssuer interface {
	Issue(user types.User) (string, error)
}

// BlobStore is the subset of storage.Storage the services rely on.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Location(key string) string
}

type SignupRequest struct {
	FullName string  `json:"full_name" validate:"required,max=200"`
	Email    string  `json:"email" validate:"required,email,max=254"`
	Password string  `json:"password" validate:"required"`
	Gender   *string `json:"gender,omitempty" validate:"omitempty,max=50"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=50"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	FullName string  `json:"full_name" validate:"required,max=200"`
	Email    string  `json:"email" validate:"required,email,max=254"`
	Gender   *string `json:"gender,omitempty" validate:"omitempty,max=50"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=50"`
}

// AuthResult is returned by Signup and Login.
type AuthResult struct {
	Token  string `json:"token"`
	UserID int    `json:"user_id"`
}

// ImageUpload is a profile image upload.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// UserService encapsulates account and profile use-cases.
type UserService struct {
	repo      UserRepository
	hasher    PasswordHasher
	tokens    TokenIssuer
	blobs     BlobStore
	log       *zap.Logger
	dummyHash string
}

func NewUserService(repo UserRepository, hasher PasswordHasher, tokens TokenIssuer, blobs BlobStore, log *zap.Logger) *UserService {
	// Login verifies against this hash when the email is unknown, so both
	// failure paths cost one bcrypt comparison.
	dummy, _ := hasher.Hash("medreport-login-timing-placeholder")
	return &UserService{
		repo:      repo,
		hasher:    hasher,
		tokens:    tokens,
		blobs:     blobs,
		log:       log,
		dummyHash: dummy,
	}
}

// Signup creates an account and returns a token for it.
func (s *UserService) Signup(ctx context.Context, req SignupRequest) (AuthResult, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.Gender = trimOptional(req.Gender)
	req.Phone = trimOptional(req.Phone)
	if err := validateStruct(req); err != nil {
		return AuthResult{}, err
	}
	if len(req.Password) > maxPasswordBytes {
		return AuthResult{}, fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, maxPasswordBytes)
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		FullName:     req.FullName,
		Email:        req.Email,
		Gender:       req.Gender,
		Phone:        req.Phone,
		PasswordHash: hashed,
	})
	if err != nil {
		return AuthResult{}, err
	}

	return s.issue(user)
}

// Login checks credentials and returns a token.
func (s *UserService) Login(ctx context.Context, req LoginRequest) (AuthResult, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validateStruct(req); err != nil {
		return AuthResult{}, err
	}

	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.hasher.Verify(req.Password, s.dummyHash)
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("load user: %w", err)
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return AuthResult{}, ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile overwrites the caller's name, email, gender and phone.
func (s *UserService) UpdateProfile(ctx context.Context, userID int, req UpdateProfileRequest) (types.User, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.Gender = trimOptional(req.Gender)
	req.Phone = trimOptional(req.Phone)
	if err := validateStruct(req); err != nil {
		return types.User{}, err
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return types.User{}, err
	}
	user.FullName = req.FullName
	user.Email = req.Email
	user.Gender = req.Gender
	user.Phone = req.Phone

	return s.repo.UpdateProfile(ctx, user)
}

// UploadProfileImage stores a new image and points the profile at it. The
// previous image blob is left in place.
func (s *UserService) UploadProfileImage(ctx context.Context, userID int, img ImageUpload) (string, error) {
	prepared, err := prepareUpload(img.Filename, imageExtensions, img.ContentType, img.Content)
	if err != nil {
		return "", err
	}

	if _, err := s.repo.GetByID(ctx, userID); err != nil {
		return "", err
	}

	key := fmt.Sprintf("profile_%d_%s%s", userID, uuid.NewString(), prepared.ext)
	if err := s.blobs.Put(ctx, key, prepared.body, img.Size, prepared.contentType); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}

	location := s.blobs.Location(key)
	if err := s.repo.SetProfileImage(ctx, userID, location); err != nil {
		s.log.Warn("profile image blob orphaned",
			zap.Int("user_id", userID),
			zap.String("key", key),
			zap.Error(err),
		)
		return "", fmt.Errorf("save profile image: %w", err)
	}
	return key, nil
}

// OpenProfileImage streams the caller's current profile image.
func (s *UserService) OpenProfileImage(ctx context.Context, userID int) (io.ReadCloser, string, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if user.ProfileImagePath == nil || *user.ProfileImagePath == "" {
		return nil, "", store.ErrNotFound
	}

	key := ProfileImageKey(*user.ProfileImagePath)
	rc, err := openBlob(ctx, s.blobs, s.log, key)
	if err != nil {
		return nil, "", err
	}
	return rc, key, nil
}

// ProfileImageKey extracts the blob key from a stored profile image location.
func ProfileImageKey(location string) string {
	return path.Base(filepath.ToSlash(location))
}

func (s *UserService) issue(user types.User) (AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return AuthResult{Token: token, UserID: user.ID}, nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
