package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"hub-service/internal/models"
	"hub-service/internal/presence"
)

// PresenceRepo is the sqlx-backed presence store.
type PresenceRepo struct {
	db *sqlx.DB
}

// NewPresenceRepo constructs a PresenceRepo.
func NewPresenceRepo(db *sqlx.DB) *PresenceRepo {
	return &PresenceRepo{db: db}
}

// SavePresence upserts one presence record.
func (r *PresenceRepo) SavePresence(ctx context.Context, rec models.PresenceRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO presence (user_id, state, last_seen) VALUES ($1, $2, $3)
         ON CONFLICT (user_id) DO UPDATE SET state = EXCLUDED.state, last_seen = EXCLUDED.last_seen`,
		rec.UserID, rec.State, rec.LastSeen)
	return err
}

// LoadPresence returns every persisted presence record.
func (r *PresenceRepo) LoadPresence(ctx context.Context) ([]models.PresenceRecord, error) {
	var recs []models.PresenceRecord
	err := r.db.SelectContext(ctx, &recs, `SELECT user_id, state, last_seen FROM presence`)
	return recs, err
}

var _ presence.Store = (*PresenceRepo)(nil)
