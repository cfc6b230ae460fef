package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messagely/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// ErrUnknownUser is returned when a message references a username that does
// not exist. The check is the foreign-key constraint, not a pre-read, so
// there is no read-then-write race window.
var ErrUnknownUser = errors.New("unknown user")

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Create(ctx context.Context, from, to, body string) (models.Message, error)
	Get(ctx context.Context, id int) (models.MessageDetail, error)
	MarkRead(ctx context.Context, id int) (models.ReadReceipt, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create inserts a message with sent_at = now and read_at NULL.
func (r *MessageRepo) Create(ctx context.Context, from, to, body string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (from_username, to_username, body, sent_at)
        VALUES ($1, $2, $3, NOW())
        RETURNING id, from_username, to_username, body, sent_at, read_at`,
		from, to, body).
		StructScan(&msg)
	if isForeignKeyViolation(err) {
		return models.Message{}, ErrUnknownUser
	}
	return msg, err
}

// Get retrieves a message joined with both sender and recipient public
// fields.
func (r *MessageRepo) Get(ctx context.Context, id int) (models.MessageDetail, error) {
	var detail models.MessageDetail
	err := r.db.QueryRowxContext(ctx, `SELECT m.id, m.body, m.sent_at, m.read_at,
            f.username, f.first_name, f.last_name, f.phone,
            t.username, t.first_name, t.last_name, t.phone
        FROM messages m
        JOIN users f ON m.from_username = f.username
        JOIN users t ON m.to_username = t.username
        WHERE m.id=$1`, id).
		Scan(&detail.ID, &detail.Body, &detail.SentAt, &detail.ReadAt,
			&detail.FromUser.Username, &detail.FromUser.FirstName, &detail.FromUser.LastName, &detail.FromUser.Phone,
			&detail.ToUser.Username, &detail.ToUser.FirstName, &detail.ToUser.LastName, &detail.ToUser.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MessageDetail{}, ErrMessageNotFound
	}
	return detail, err
}

// MarkRead sets read_at to now unconditionally. Concurrent calls are
// idempotent in effect: read_at always ends at some timestamp. The
// recipient-only rule is enforced by the caller.
func (r *MessageRepo) MarkRead(ctx context.Context, id int) (models.ReadReceipt, error) {
	var receipt models.ReadReceipt
	err := r.db.QueryRowxContext(ctx, `UPDATE messages SET read_at = NOW() WHERE id=$1 RETURNING id, read_at`, id).
		StructScan(&receipt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ReadReceipt{}, ErrMessageNotFound
	}
	return receipt, err
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
