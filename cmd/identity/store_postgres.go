package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements identity persistence over PostgreSQL.
//
// Design notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Schema/table identifiers are safely quoted to avoid SQL injection via identifiers.
// - Every mutation targets a single row by primary key, which is the
//   atomicity granularity the session layer relies on.
// - Errors are mapped to identity sentinel kinds where appropriate.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the identity store (default "stash").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentIsValid(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore with secure defaults.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "stash",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

const userColumns = `id, email, email_norm, full_name, avatar_url, password_hash, refresh_token_hash, created_at, updated_at`

// CreateUser inserts a new user row.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if s == nil || s.pool == nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	email := strings.TrimSpace(in.Email)
	fullName := strings.TrimSpace(in.FullName)
	if email == "" || fullName == "" || in.PasswordHash == "" {
		return User{}, pgInvalid(op, "email, full name, and password hash are required")
	}
	emailNorm := NormalizeEmail(email)

	avatarURL := strings.TrimSpace(in.AvatarURL)
	if avatarURL == "" {
		avatarURL = AvatarURL(email)
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	userID, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	users := pgIdent(s.schema, "users")

	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+users+` (
		     id, email, email_norm, full_name, avatar_url, password_hash, created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		userID,
		email,
		emailNorm,
		fullName,
		avatarURL,
		in.PasswordHash,
		now,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}

	return User{
		ID:           userID,
		Email:        email,
		EmailNorm:    emailNorm,
		FullName:     fullName,
		AvatarURL:    avatarURL,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// GetUserByID returns the full user row, including credential fields.
// Callers must project through Profile() before anything leaves the process.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetUserByID"

	if s == nil || s.pool == nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, pgInvalid(op, "missing user id")
	}

	users := pgIdent(s.schema, "users")
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM `+users+` WHERE id = $1`, id)

	return scanUser(row, op, "user")
}

// GetUserByEmail looks a user up by the normalized email form.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const op = "identity.GetUserByEmail"

	if s == nil || s.pool == nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	norm := NormalizeEmail(email)
	if norm == "" {
		return User{}, pgInvalid(op, "missing email")
	}

	users := pgIdent(s.schema, "users")
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM `+users+` WHERE email_norm = $1`, norm)

	return scanUser(row, op, "user")
}

// UpdateProfile applies only the provided fields and returns the updated row.
func (s *PostgresStore) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (User, error) {
	const op = "identity.UpdateProfile"

	if s == nil || s.pool == nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, pgInvalid(op, "missing user id")
	}
	if in.Email == nil && in.FullName == nil {
		return User{}, pgInvalid(op, "no fields to update")
	}

	var email, emailNorm, fullName *string
	if in.Email != nil {
		e := strings.TrimSpace(*in.Email)
		if e == "" {
			return User{}, pgInvalid(op, "empty email")
		}
		n := NormalizeEmail(e)
		email, emailNorm = &e, &n
	}
	if in.FullName != nil {
		f := strings.TrimSpace(*in.FullName)
		if f == "" {
			return User{}, pgInvalid(op, "empty full name")
		}
		fullName = &f
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	users := pgIdent(s.schema, "users")
	row := s.pool.QueryRow(ctx,
		`UPDATE `+users+` SET
		     email      = COALESCE($2, email),
		     email_norm = COALESCE($3, email_norm),
		     full_name  = COALESCE($4, full_name),
		     updated_at = $5
		   WHERE id = $1
		   RETURNING `+userColumns,
		userID, email, emailNorm, fullName, now)

	u, err := scanUser(row, op, "user")
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}
	return u, nil
}

// SetRefreshTokenHash overwrites the stored refresh-token digest.
// Overwrite, not append: the prior live token is superseded by this write.
func (s *PostgresStore) SetRefreshTokenHash(ctx context.Context, userID, hashHex string, now time.Time) error {
	const op = "identity.SetRefreshTokenHash"

	if hashHex == "" {
		return pgInvalid(op, "missing token hash")
	}
	return s.updateOneColumn(ctx, op, userID, "refresh_token_hash", hashHex, now)
}

// ClearRefreshTokenHash unsets the digest. Idempotent for already-clear rows.
func (s *PostgresStore) ClearRefreshTokenHash(ctx context.Context, userID string, now time.Time) error {
	const op = "identity.ClearRefreshTokenHash"
	return s.updateOneColumn(ctx, op, userID, "refresh_token_hash", nil, now)
}

// SetPasswordHash replaces the password hash wholesale.
func (s *PostgresStore) SetPasswordHash(ctx context.Context, userID, hashHex string, now time.Time) error {
	const op = "identity.SetPasswordHash"

	if hashHex == "" {
		return pgInvalid(op, "missing password hash")
	}
	return s.updateOneColumn(ctx, op, userID, "password_hash", hashHex, now)
}

func (s *PostgresStore) updateOneColumn(ctx context.Context, op, userID, column string, value any, now time.Time) error {
	if s == nil || s.pool == nil {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return pgInvalid(op, "missing user id")
	}
	if !pgIdentIsValid(column) {
		return pgInvalid(op, "invalid column")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	users := pgIdent(s.schema, "users")
	tag, err := s.pool.Exec(ctx,
		`UPDATE `+users+` SET `+pgQuote(column)+` = $2, updated_at = $3 WHERE id = $1`,
		userID, value, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

// ---- helpers ----

func scanUser(row pgx.Row, op, resource string) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.EmailNorm,
		&u.FullName,
		&u.AvatarURL,
		&u.PasswordHash,
		&u.RefreshTokenHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: resource}
		}
		return User{}, err
	}
	return u, nil
}

func pgInvalid(op, msg string) error {
	return OpError{Op: op, Kind: ErrInvalidInput, Msg: msg}
}

func pgIdentIsValid(s string) bool { return pgIdentRe.MatchString(s) }

func pgQuote(ident string) string { return `"` + ident + `"` }

func pgIdent(schema, table string) string {
	return pgQuote(schema) + "." + pgQuote(table)
}

// pgClassifyUniqueViolation maps a unique-constraint violation to a stable
// logical field name.
func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" {
		return "", false
	}

	switch {
	case strings.Contains(pgErr.ConstraintName, "email"):
		return "email", true
	default:
		return pgErr.ConstraintName, true
	}
}
