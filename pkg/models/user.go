package models

// User is the owner of every other record. TelegramID is zero for users
// that only use the CLI.
type User struct {
	ID                  int64  `json:"id" db:"id"`
	TelegramID          int64  `json:"telegram_id" db:"telegram_id"`
	Name                string `json:"name" db:"name"`
	NotificationEnabled bool   `json:"notification_enabled" db:"notification_enabled"`
	NotificationHour    int    `json:"notification_hour" db:"notification_hour"` // Hour of day for notifications (0-23)
}
