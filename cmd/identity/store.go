package identity

import (
	"context"
	"time"
)

// User is stash's canonical security principal.
// IMPORTANT: RefreshTokenHash holds a digest of the single live refresh
// token (nil means "no active session"); the plain token is never stored.
type User struct {
	ID string

	Email     string
	EmailNorm string

	FullName  string
	AvatarURL string

	PasswordHash     string
	RefreshTokenHash *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile is the sanitized projection of a User: everything a caller may
// see, with PasswordHash and RefreshTokenHash stripped.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	AvatarURL string    `json:"avatarUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Profile returns the sanitized projection of u.
func (u User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// CreateUserInput describes a user registration request as it reaches the
// store: fields are already validated and the password already hashed.
type CreateUserInput struct {
	Email        string
	FullName     string
	AvatarURL    string
	PasswordHash string
	Now          time.Time
}

// UpdateProfileInput applies only the non-nil fields.
type UpdateProfileInput struct {
	Email    *string
	FullName *string
	Now      time.Time
}

// Store is the identity persistence boundary (the credential store adapter).
//
// Contract:
//   - Each mutation targets one row by primary key; the store provides
//     atomicity at that granularity, so no in-process locking is layered on top.
//   - Lookups by email use the normalized form.
//   - Missing rows surface as ErrNotFound kinds; duplicate emails as
//     ConflictError{Field: "email"}.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)

	UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (User, error)

	// SetRefreshTokenHash overwrites the stored refresh-token digest,
	// superseding any prior live token for the user.
	SetRefreshTokenHash(ctx context.Context, userID, hashHex string, now time.Time) error

	// ClearRefreshTokenHash unsets the digest (logout). Idempotent: clearing
	// an already-clear record succeeds.
	ClearRefreshTokenHash(ctx context.Context, userID string, now time.Time) error

	SetPasswordHash(ctx context.Context, userID, hashHex string, now time.Time) error
}
