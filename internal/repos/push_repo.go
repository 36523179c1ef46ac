package repos

import (
	"context"
	"database/sql"

	"github.com/mixel34p/Yo-kaidle-sub002/internal/models"
)

type PushRepo struct {
	db      *sql.DB
	dialect Dialect
}

func NewPushRepo(db *sql.DB, dialect Dialect) *PushRepo {
	return &PushRepo{db: db, dialect: dialect}
}

// UpsertSubscription registers an endpoint, reactivating it if it was marked inactive.
// An existing endpoint keeps its id and creation time; sub is updated to match the stored row.
func (r *PushRepo) UpsertSubscription(ctx context.Context, sub *models.PushSubscription) error {
	now := nowUTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	sub.Active = true
	err := r.db.QueryRowContext(ctx, r.dialect.rebind(`
		INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh, auth, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(endpoint) DO UPDATE SET
			user_id = excluded.user_id,
			p256dh = excluded.p256dh,
			auth = excluded.auth,
			active = excluded.active,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`), sub.ID, sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth, true, sub.CreatedAt, sub.UpdatedAt).Scan(&sub.ID, &sub.CreatedAt)
	return err
}

// ListActive returns active subscriptions, for one user or for everyone when userID is empty.
func (r *PushRepo) ListActive(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	query := `
		SELECT id, user_id, endpoint, p256dh, auth, active, created_at, updated_at
		FROM push_subscriptions WHERE active = ?`
	args := []any{true}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := make([]models.PushSubscription, 0)
	for rows.Next() {
		var s models.PushSubscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.Endpoint, &s.P256dh, &s.Auth, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

// MarkInactive soft-deletes a subscription. Rows are never removed.
func (r *PushRepo) MarkInactive(ctx context.Context, endpoint string) error {
	res, err := r.db.ExecContext(ctx, r.dialect.rebind(`
		UPDATE push_subscriptions SET active = ?, updated_at = ? WHERE endpoint = ?
	`), false, nowUTC(), endpoint)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
