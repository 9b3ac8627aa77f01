package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/overseer/pkg/models"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new repository instance
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userRow struct {
	ID                  int64         `db:"id"`
	TelegramID          sql.NullInt64 `db:"telegram_id"`
	Name                string        `db:"name"`
	NotificationEnabled bool          `db:"notification_enabled"`
	NotificationHour    int           `db:"notification_hour"`
}

func (r userRow) model() models.User {
	return models.User{
		ID:                  r.ID,
		TelegramID:          r.TelegramID.Int64,
		Name:                r.Name,
		NotificationEnabled: r.NotificationEnabled,
		NotificationHour:    r.NotificationHour,
	}
}

const userColumns = "id, telegram_id, name, notification_enabled, notification_hour"

// Create inserts a new user and sets its ID
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	telegramID := sql.NullInt64{Int64: user.TelegramID, Valid: user.TelegramID != 0}
	query := r.db.Rebind(`
		INSERT INTO users (telegram_id, name, notification_enabled, notification_hour)
		VALUES (?, ?, ?, ?)
		RETURNING id`)
	err := r.db.QueryRowxContext(ctx, query,
		telegramID, user.Name, user.NotificationEnabled, user.NotificationHour,
	).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID returns a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByTelegramID returns the user linked to a Telegram account
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	return r.getOne(ctx, "telegram_id = ?", telegramID)
}

// GetOrCreateByTelegramID returns the user linked to telegramID, registering it first if needed.
func (r *UserRepository) GetOrCreateByTelegramID(ctx context.Context, telegramID int64, name string) (*models.User, error) {
	user, err := r.GetByTelegramID(ctx, telegramID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	user = &models.User{
		TelegramID:          telegramID,
		Name:                name,
		NotificationEnabled: true,
		NotificationHour:    9,
	}
	if err := r.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateNotifications changes the reminder settings of a user
func (r *UserRepository) UpdateNotifications(ctx context.Context, id int64, enabled bool, hour int) error {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE users SET notification_enabled = ?, notification_hour = ? WHERE id = ?"),
		enabled, hour, id)
	if err != nil {
		return fmt.Errorf("failed to update notifications: %w", err)
	}
	return requireRow(res)
}

// GetUsersForNotification returns users who have notifications enabled at the given hour
func (r *UserRepository) GetUsersForNotification(ctx context.Context, hour int) ([]models.User, error) {
	var rows []userRow
	query := r.db.Rebind("SELECT " + userColumns + " FROM users WHERE notification_enabled = ? AND notification_hour = ? ORDER BY id")
	if err := r.db.SelectContext(ctx, &rows, query, true, hour); err != nil {
		return nil, fmt.Errorf("failed to get users for notification: %w", err)
	}
	users := make([]models.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.model())
	}
	return users, nil
}

func (r *UserRepository) getOne(ctx context.Context, cond string, args ...any) (*models.User, error) {
	var row userRow
	query := r.db.Rebind("SELECT " + userColumns + " FROM users WHERE " + cond)
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", notFound(err))
	}
	user := row.model()
	return &user, nil
}

// requireRow turns an update or delete that touched nothing into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
