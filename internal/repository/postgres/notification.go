package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/takaful-app/takaful/internal/models"
)

// Notification retention policy: entries older than a week are purged
// on the read path, and a single read returns at most 5000 entries.
const (
	notificationRetention = 7 * 24 * time.Hour
	notificationListCap   = 5000
)

type NotificationStore struct {
	pool *pgxpool.Pool
}

func NewNotificationStore(pool *pgxpool.Pool) *NotificationStore {
	return &NotificationStore{pool: pool}
}

func (s *NotificationStore) Record(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (tenant_id, user_id, username, action, target_name, is_new, timestamp)
		VALUES ($1, $2, $3, $4, $5, true, now())`

	_, err := s.pool.Exec(ctx, query,
		n.TenantID, n.UserID, n.Username, n.Action, n.TargetName)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// List prunes the tenant's expired entries, then returns the newest
// ones. The purge is a hard delete and runs on every call; there is no
// background job for it.
func (s *NotificationStore) List(ctx context.Context, tenantID uuid.UUID) ([]models.Notification, error) {
	cutoff := time.Now().Add(-notificationRetention)
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM notifications WHERE tenant_id = $1 AND timestamp < $2`,
		tenantID, cutoff); err != nil {
		return nil, fmt.Errorf("prune notifications: %w", err)
	}

	query := `
		SELECT id, tenant_id, user_id, username, action, target_name, is_new, timestamp
		FROM notifications
		WHERE tenant_id = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, tenantID, notificationListCap)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.TenantID, &n.UserID, &n.Username,
			&n.Action, &n.TargetName, &n.IsNew, &n.Timestamp); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return notifications, nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, tenantID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_new = false WHERE tenant_id = $1 AND is_new`, tenantID)
	if err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}
