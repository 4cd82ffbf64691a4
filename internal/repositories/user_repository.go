package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"bizdesk/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, email, phone, status, role_id, password_hash, telegram_chat_id, refresh_token, refresh_expires_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	var phone sql.NullString
	var chatID sql.NullInt64
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&phone,
		&u.Status,
		&u.RoleID,
		&u.PasswordHash,
		&chatID,
		&u.RefreshToken,
		&u.RefreshExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	u.Phone = phone.String
	u.TelegramChatID = chatID.Int64
	return u, nil
}

func (r *UserRepository) GetByID(id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	u, err := scanUser(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("получение пользователя по id: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email)=LOWER($1)`
	u, err := scanUser(r.db.QueryRow(query, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("получение пользователя по email: %w", err)
	}
	return u, nil
}

// ListActive — справочник для назначения этапов и @mention.
func (r *UserRepository) ListActive() ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE status='active' ORDER BY name`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения: %w", err)
		}
		users = append(users, u)
	}
	return users, nil
}

func (r *UserRepository) GetByRefreshToken(token string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE refresh_token=$1`
	u, err := scanUser(r.db.QueryRow(query, token))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("получение пользователя по refresh: %w", err)
	}
	return u, nil
}

func (r *UserRepository) UpdateRefresh(id string, token *string, expiresAt *time.Time) error {
	query := `UPDATE users SET refresh_token=$1, refresh_expires_at=$2 WHERE id=$3`
	_, err := r.db.Exec(query, token, expiresAt, id)
	if err != nil {
		return fmt.Errorf("обновление refresh: %w", err)
	}
	return nil
}
