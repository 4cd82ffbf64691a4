package repositories

import (
	"database/sql"
	"fmt"

	"bizdesk/internal/models"
)

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(n *models.Notification) (int64, error) {
	query := `
        INSERT INTO notifications (user_id, title, message, link, type, read, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	var id int64
	err := r.db.QueryRow(
		query,
		n.UserID,
		n.Title,
		n.Message,
		n.Link,
		n.Type,
		n.Read,
		n.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("создание уведомления: %w", err)
	}
	return id, nil
}

func (r *NotificationRepository) ListByUser(userID string, limit, offset int) ([]*models.Notification, error) {
	query := `SELECT id, user_id, title, message, link, type, read, created_at
	          FROM notifications
	          WHERE user_id = $1
	          ORDER BY created_at DESC
	          LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Link, &n.Type, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *NotificationRepository) MarkRead(id int64, userID string) error {
	res, err := r.db.Exec(`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("отметка прочитанным: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *NotificationRepository) CountUnread(userID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`, userID).Scan(&count)
	return count, err
}
