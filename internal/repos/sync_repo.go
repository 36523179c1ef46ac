package repos

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mixel34p/Yo-kaidle-sub002/internal/models"
)

var ErrNotFound = errors.New("not found")

type SyncRepo struct {
	db      *sql.DB
	dialect Dialect
}

func NewSyncRepo(db *sql.DB, dialect Dialect) *SyncRepo {
	return &SyncRepo{db: db, dialect: dialect}
}

func (r *SyncRepo) GetRow(ctx context.Context, userID string) (*models.CloudRow, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.rebind(`
		SELECT user_id, data, session_id, last_synced, created_at
		FROM user_progress WHERE user_id = ?
	`), userID)
	var (
		out       models.CloudRow
		data      []byte
		sessionID sql.NullString
	)
	if err := row.Scan(&out.UserID, &data, &sessionID, &out.LastSynced, &out.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	out.Data = data
	if sessionID.Valid {
		s := sessionID.String
		out.SessionID = &s
	}
	return &out, nil
}

// UpsertRow overwrites the user's row unconditionally. created_at survives the overwrite.
func (r *SyncRepo) UpsertRow(ctx context.Context, row *models.CloudRow) error {
	var sessionID sql.NullString
	if row.SessionID != nil {
		sessionID = sql.NullString{String: *row.SessionID, Valid: true}
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = row.LastSynced
	}
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(`
		INSERT INTO user_progress (user_id, data, session_id, last_synced, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			data = excluded.data,
			session_id = excluded.session_id,
			last_synced = excluded.last_synced
	`), row.UserID, string(row.Data), sessionID, row.LastSynced.UTC(), row.CreatedAt.UTC())
	return err
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
