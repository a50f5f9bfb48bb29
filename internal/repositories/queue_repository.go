package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"hub-service/internal/models"
	"hub-service/internal/queue"
)

// QueueRepo is the sqlx-backed offline-queue store.
type QueueRepo struct {
	db *sqlx.DB
}

// NewQueueRepo constructs a QueueRepo.
func NewQueueRepo(db *sqlx.DB) *QueueRepo {
	return &QueueRepo{db: db}
}

// AppendMessage persists one queued message.
func (r *QueueRepo) AppendMessage(ctx context.Context, msg models.QueuedMessage) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO queued_messages (recipient_id, sequence, sender_id, room_id, message_type, payload, enqueued_at, delivered)
         VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)`,
		msg.RecipientID, msg.Sequence, msg.SenderID, msg.RoomID, msg.Type, msg.Payload, msg.EnqueuedAt)
	return err
}

// RemoveMessage deletes one queued message, used when overflow evicts the head.
func (r *QueueRepo) RemoveMessage(ctx context.Context, recipientID int, sequence int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM queued_messages WHERE recipient_id=$1 AND sequence=$2`, recipientID, sequence)
	return err
}

// MarkDelivered flags a drained message as delivered.
func (r *QueueRepo) MarkDelivered(ctx context.Context, recipientID int, sequence int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE queued_messages SET delivered = TRUE WHERE recipient_id=$1 AND sequence=$2`, recipientID, sequence)
	return err
}

// PurgeBefore removes undelivered messages older than cutoff across all users.
func (r *QueueRepo) PurgeBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM queued_messages WHERE delivered = FALSE AND enqueued_at < $1`, cutoff)
	return err
}

// LoadQueued returns all undelivered messages in per-recipient enqueue order.
func (r *QueueRepo) LoadQueued(ctx context.Context) ([]models.QueuedMessage, error) {
	var msgs []models.QueuedMessage
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT recipient_id, sequence, sender_id, room_id, message_type, payload, enqueued_at, delivered
         FROM queued_messages WHERE delivered = FALSE ORDER BY recipient_id, sequence ASC`)
	return msgs, err
}

var _ queue.Store = (*QueueRepo)(nil)
