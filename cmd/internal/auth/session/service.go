package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"stash/cmd/identity"
	"stash/cmd/security/password"
)

// Service implements the high-level session operations for stash.
//
// It orchestrates the credential store, the password hasher, and the token
// manager, and owns the rule "exactly one live refresh token per user":
// every successful login or refresh overwrites the stored digest, and
// logout clears it.
type Service struct {
	cfg    Config
	log    *slog.Logger
	store  identity.Store
	tokens TokenManager

	// dummyHash is verified against when the email resolves to no record,
	// so the missing-user and wrong-password paths cost the same.
	dummyHash string
}

// Issued is the result of issuing or rotating a session.
type Issued struct {
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// NewService constructs a Service with the provided configuration, store,
// and token manager.
func NewService(cfg Config, log *slog.Logger, store identity.Store, tokens TokenManager) *Service {
	if log == nil {
		log = slog.Default()
	}

	s := &Service{cfg: cfg, log: log, store: store, tokens: tokens}
	if hash, err := identity.HashPassword("dummy-password-for-timing-only"); err == nil {
		s.dummyHash = hash
	}
	return s
}

// Register creates a new user record. No tokens are issued at registration.
func (s *Service) Register(ctx context.Context, now time.Time, fullName, email, password string) (identity.Profile, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)

	if fullName == "" || email == "" || password == "" {
		return identity.Profile{}, ValidationError{Msg: "all fields are required"}
	}
	if !identity.ValidEmail(email) {
		return identity.Profile{}, ValidationError{Msg: "invalid email address"}
	}

	hash, err := hashPassword(password)
	if err != nil {
		return identity.Profile{}, err
	}

	u, err := s.store.CreateUser(ctx, identity.CreateUserInput{
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		Now:          now,
	})
	if err != nil {
		return identity.Profile{}, err
	}

	s.log.Info("auth.register", "user_id", u.ID)
	return u.Profile(), nil
}

// Login verifies credentials and issues a fresh token pair.
//
// The new refresh token's digest is persisted before the pair is returned:
// a pair whose refresh half is not durably stored must never reach the
// client (a later refresh would be rejected by the rotation check).
func (s *Service) Login(ctx context.Context, now time.Time, email, password string) (identity.User, Issued, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return identity.User{}, Issued{}, ErrUnauthorized
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if identity.IsNotFound(err) {
			// Timing resistance: perform a dummy verify when the user is missing.
			if s.dummyHash != "" {
				_, _ = identity.VerifyPassword(password, s.dummyHash)
			}
			return identity.User{}, Issued{}, ErrInvalidCredentials
		}
		return identity.User{}, Issued{}, err
	}

	ok, err := identity.VerifyPassword(password, u.PasswordHash)
	if err != nil || !ok {
		return identity.User{}, Issued{}, ErrInvalidCredentials
	}

	issued, err := s.issuePair(ctx, now, u.ID)
	if err != nil {
		return identity.User{}, Issued{}, err
	}

	s.log.Info("auth.login", "user_id", u.ID)
	return u, issued, nil
}

// Logout clears the stored refresh-token digest, returning the user to the
// anonymous state. Idempotent when no session is live.
func (s *Service) Logout(ctx context.Context, now time.Time, userID string) error {
	if err := s.store.ClearRefreshTokenHash(ctx, userID, now); err != nil {
		return err
	}
	s.log.Info("auth.logout", "user_id", userID)
	return nil
}

// Refresh rotates the refresh token and mints a new access token.
//
// Strict rotation: beyond signature and expiry, the presented token must
// match the single stored digest. A superseded or cleared token fails even
// though its signature is still valid, which is what makes rotation worth
// having. Every rejection is reported as ErrUnauthorized without detail.
func (s *Service) Refresh(ctx context.Context, now time.Time, refreshToken string) (identity.User, Issued, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return identity.User{}, Issued{}, ErrUnauthorized
	}

	claims, err := s.tokens.Verify(KindRefresh, refreshToken, now)
	if err != nil {
		return identity.User{}, Issued{}, ErrUnauthorized
	}

	u, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			return identity.User{}, Issued{}, ErrUnauthorized
		}
		return identity.User{}, Issued{}, err
	}

	if u.RefreshTokenHash == nil || !identity.RefreshTokenHashEqual(*u.RefreshTokenHash, refreshToken) {
		return identity.User{}, Issued{}, ErrUnauthorized
	}

	issued, err := s.issuePair(ctx, now, u.ID)
	if err != nil {
		return identity.User{}, Issued{}, err
	}

	s.log.Info("auth.refresh", "user_id", u.ID)
	return u, issued, nil
}

// ChangePassword replaces the password hash after re-verifying the old
// password. The live refresh token is left untouched: existing sessions
// stay valid across a password change.
func (s *Service) ChangePassword(ctx context.Context, now time.Time, userID, oldPassword, newPassword, confirmPassword string) error {
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if newPassword == "" || newPassword != confirmPassword {
		return ValidationError{Msg: "new password and confirmation do not match"}
	}

	ok, err := identity.VerifyPassword(oldPassword, u.PasswordHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.SetPasswordHash(ctx, u.ID, hash, now); err != nil {
		return err
	}

	s.log.Info("auth.change_password", "user_id", u.ID)
	return nil
}

// UpdateProfile applies only the supplied fields and returns the sanitized
// projection.
func (s *Service) UpdateProfile(ctx context.Context, now time.Time, userID string, email, fullName *string) (identity.Profile, error) {
	if email == nil && fullName == nil {
		return identity.Profile{}, ValidationError{Msg: "at least one field is required"}
	}
	if email != nil && !identity.ValidEmail(*email) {
		return identity.Profile{}, ValidationError{Msg: "invalid email address"}
	}
	if fullName != nil && strings.TrimSpace(*fullName) == "" {
		return identity.Profile{}, ValidationError{Msg: "full name must not be empty"}
	}

	u, err := s.store.UpdateProfile(ctx, userID, identity.UpdateProfileInput{
		Email:    email,
		FullName: fullName,
		Now:      now,
	})
	if err != nil {
		return identity.Profile{}, err
	}

	s.log.Info("auth.update_profile", "user_id", u.ID)
	return u.Profile(), nil
}

// GetUser resolves a user id to the full record (request authenticator path).
func (s *Service) GetUser(ctx context.Context, userID string) (identity.User, error) {
	return s.store.GetUserByID(ctx, userID)
}

// VerifyAccessToken validates an access token and returns its claims.
func (s *Service) VerifyAccessToken(token string, now time.Time) (Claims, error) {
	return s.tokens.Verify(KindAccess, token, now)
}

// hashPassword hashes the plaintext, turning the hasher's input-bound
// rejections into validation errors. Only genuine hashing faults remain
// internal.
func hashPassword(plaintext string) (string, error) {
	hash, err := identity.HashPassword(plaintext)
	if err != nil {
		if errors.Is(err, password.ErrPasswordEmpty) || errors.Is(err, password.ErrPasswordTooLong) {
			return "", ValidationError{Msg: "password must be between 1 and 72 bytes"}
		}
		return "", err
	}
	return hash, nil
}

// issuePair mints a refresh+access pair and persists the refresh digest.
// The store write is awaited; its failure fails the whole operation.
func (s *Service) issuePair(ctx context.Context, now time.Time, userID string) (Issued, error) {
	refreshToken, refreshExp, err := s.tokens.Issue(KindRefresh, userID, now)
	if err != nil {
		return Issued{}, err
	}

	if err := s.store.SetRefreshTokenHash(ctx, userID, identity.HashRefreshTokenHex(refreshToken), now); err != nil {
		return Issued{}, err
	}

	accessToken, accessExp, err := s.tokens.Issue(KindAccess, userID, now)
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		AccessToken:  accessToken,
		AccessExp:    accessExp,
		RefreshToken: refreshToken,
		RefreshExp:   refreshExp,
	}, nil
}
