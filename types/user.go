package types

import "time"

// User represents an account in the system.
// It contains identity, contact, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// FullName is the user's display name.
	FullName string `json:"full_name" db:"full_name"`

	// Email is the login handle. It is unique regardless of case.
	Email string `json:"email" db:"email"`

	// Gender is free-form and optional.
	Gender *string `json:"gender,omitempty" db:"gender"`

	// Phone is free-form and optional.
	Phone *string `json:"phone,omitempty" db:"phone"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// ProfileImagePath is the storage location of the current profile image,
	// if one was uploaded. Each upload overwrites it.
	ProfileImagePath *string `json:"-" db:"profile_image_path"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
