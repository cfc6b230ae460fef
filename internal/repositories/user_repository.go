package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messagely/internal/auth"
	"messagely/internal/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already taken")
)

// RegisterParams are the fields required to create a user.
type RegisterParams struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Register(ctx context.Context, params RegisterParams) (models.User, error)
	Authenticate(ctx context.Context, username, password string) (bool, error)
	UpdateLoginTimestamp(ctx context.Context, username string) error
	All(ctx context.Context) ([]models.PublicUser, error)
	Get(ctx context.Context, username string) (models.User, error)
	MessagesFrom(ctx context.Context, username string) ([]models.SentMessage, error)
	MessagesTo(ctx context.Context, username string) ([]models.ReceivedMessage, error)
}

// UserRepo is a sqlx-backed repository. Password hashing and verification
// are delegated to the PasswordHasher.
type UserRepo struct {
	db     *sqlx.DB
	hasher *auth.PasswordHasher
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB, hasher *auth.PasswordHasher) *UserRepo {
	return &UserRepo{db: db, hasher: hasher}
}

// Register hashes the password and inserts a new user with join_at and
// last_login_at both set to now. Uniqueness is enforced by the primary key,
// so concurrent registrations with the same username race safely.
func (r *UserRepo) Register(ctx context.Context, params RegisterParams) (models.User, error) {
	hashed, err := r.hasher.Hash(params.Password)
	if err != nil {
		return models.User{}, err
	}

	var user models.User
	err = r.db.QueryRowxContext(ctx, `INSERT INTO users (username, password, first_name, last_name, phone, join_at, last_login_at)
        VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
        RETURNING username, password, first_name, last_name, phone, join_at, last_login_at`,
		params.Username, hashed, params.FirstName, params.LastName, params.Phone).
		StructScan(&user)
	if isUniqueViolation(err) {
		return models.User{}, ErrDuplicateUsername
	}
	return user, err
}

// Authenticate verifies the password against the stored hash. An unknown
// username and a wrong password are indistinguishable: both return
// (false, nil), so callers cannot enumerate accounts.
func (r *UserRepo) Authenticate(ctx context.Context, username, password string) (bool, error) {
	var hashed string
	err := r.db.GetContext(ctx, &hashed, `SELECT password FROM users WHERE username=$1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	ok, err := r.hasher.Verify(password, hashed)
	if err != nil {
		// A malformed stored hash means "not authenticated", never a
		// distinguishable failure.
		return false, nil
	}
	return ok, nil
}

// UpdateLoginTimestamp sets last_login_at to now. An unknown username is a
// silent no-op.
func (r *UserRepo) UpdateLoginTimestamp(ctx context.Context, username string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = NOW() WHERE username=$1`, username)
	return err
}

// All returns every user's public fields. Ordering is unspecified.
func (r *UserRepo) All(ctx context.Context) ([]models.PublicUser, error) {
	var users []models.PublicUser
	err := r.db.SelectContext(ctx, &users, `SELECT username, first_name, last_name, phone FROM users`)
	return users, err
}

// Get fetches a user by username.
func (r *UserRepo) Get(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT username, password, first_name, last_name, phone, join_at, last_login_at
        FROM users WHERE username=$1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// MessagesFrom returns every message the user sent, each joined with the
// recipient's public fields.
func (r *UserRepo) MessagesFrom(ctx context.Context, username string) ([]models.SentMessage, error) {
	if err := r.checkExists(ctx, username); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryxContext(ctx, `SELECT m.id, m.body, m.sent_at, m.read_at,
            u.username, u.first_name, u.last_name, u.phone
        FROM messages m JOIN users u ON m.to_username = u.username
        WHERE m.from_username=$1`, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.SentMessage
	for rows.Next() {
		var m models.SentMessage
		if err := rows.Scan(&m.ID, &m.Body, &m.SentAt, &m.ReadAt,
			&m.ToUser.Username, &m.ToUser.FirstName, &m.ToUser.LastName, &m.ToUser.Phone); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MessagesTo returns every message the user received, each joined with the
// sender's public fields.
func (r *UserRepo) MessagesTo(ctx context.Context, username string) ([]models.ReceivedMessage, error) {
	if err := r.checkExists(ctx, username); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryxContext(ctx, `SELECT m.id, m.body, m.sent_at, m.read_at,
            u.username, u.first_name, u.last_name, u.phone
        FROM messages m JOIN users u ON m.from_username = u.username
        WHERE m.to_username=$1`, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.ReceivedMessage
	for rows.Next() {
		var m models.ReceivedMessage
		if err := rows.Scan(&m.ID, &m.Body, &m.SentAt, &m.ReadAt,
			&m.FromUser.Username, &m.FromUser.FirstName, &m.FromUser.LastName, &m.FromUser.Phone); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *UserRepo) checkExists(ctx context.Context, username string) error {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE username=$1)`, username); err != nil {
		return err
	}
	if !exists {
		return ErrUserNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
