// Package bot is the Telegram transport: it delivers reminders and lets users
// review due cards, read their feedback and see their study sessions.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/example/overseer/internal/config"
	"github.com/example/overseer/internal/feedback"
	"github.com/example/overseer/internal/logging"
	"github.com/example/overseer/pkg/models"
)

// Sender is the part of the Telegram API the bot talks through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Service is the study backend used by the handlers.
type Service interface {
	RegisterTelegramUser(ctx context.Context, telegramID int64, name string) (*models.User, error)
	SetNotifications(ctx context.Context, userID int64, enabled bool, hour int) error
	DueCards(ctx context.Context, owner int64, subjectID *int64, now time.Time, limit int) ([]models.Card, error)
	GetCard(ctx context.Context, owner, id int64) (*models.Card, error)
	ReviewCard(ctx context.Context, owner, cardID int64, score int, now time.Time) (*models.Card, error)
	Feedback(ctx context.Context, owner int64, scope string, anchor *time.Time) (feedback.Stats, error)
	DueSessions(ctx context.Context, owner int64, now time.Time) ([]models.StudySession, error)
}

// ReminderFunc sends the reminder of one user immediately.
type ReminderFunc func(ctx context.Context, user models.User) error

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// Bot represents the Telegram bot application
type Bot struct {
	api    *tgbotapi.BotAPI
	sender Sender
	svc    Service
	admins map[int64]bool
	remind ReminderFunc
	log    *zap.Logger
	now    func() time.Time
}

// New connects to Telegram with the configured token.
func New(cfg config.TelegramConfig, svc Service, log *zap.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is not set")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	b := newBot(api, svc, cfg.AdminIDs, log)
	b.api = api
	b.log.Info("Authorized on account", zap.String("username", api.Self.UserName))
	return b, nil
}

func newBot(sender Sender, svc Service, adminIDs []int64, log *zap.Logger) *Bot {
	b := &Bot{
		sender: sender,
		svc:    svc,
		admins: make(map[int64]bool, len(adminIDs)),
		log:    logging.OrNop(log).Named("bot"),
		now:    time.Now,
	}
	for _, id := range adminIDs {
		b.admins[id] = true
	}
	return b
}

// SetReminder installs the function used by the admin /remind command.
func (b *Bot) SetReminder(fn ReminderFunc) { b.remind = fn }

// Run receives updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if b.api == nil {
		return fmt.Errorf("bot is not connected")
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	b.log.Info("Bot started")
	b.dispatch(ctx, updates)
	b.log.Info("Bot stopped")
	return nil
}

// dispatch handles each update in its own goroutine and returns once updates is
// closed and every handler has finished.
func (b *Bot) dispatch(ctx context.Context, updates <-chan tgbotapi.Update) {
	var wg sync.WaitGroup
	for update := range updates {
		wg.Add(1)
		go func(update tgbotapi.Update) {
			defer wg.Done()
			b.handleUpdate(ctx, update)
		}(update)
	}
	wg.Wait()
}

// SendReminders implements the scheduler.Notifier interface. Private chats
// share their ID with the Telegram user.
func (b *Bot) SendReminders(ctx context.Context, user models.User, dueCards int, sessions []models.StudySession) error {
	if user.TelegramID == 0 {
		return fmt.Errorf("user %d has no telegram account", user.ID)
	}

	var lines []string
	if dueCards > 0 {
		lines = append(lines, fmt.Sprintf("You have %d %s to review.", dueCards, plural(dueCards, "card", "cards")))
	}
	if len(sessions) > 0 {
		lines = append(lines, fmt.Sprintf("%d study %s planned:", len(sessions), plural(len(sessions), "session", "sessions")))
		lines = append(lines, formatSessions(sessions))
	}

	msg := tgbotapi.NewMessage(user.TelegramID, strings.Join(lines, "\n"))
	msg.ReplyMarkup = createKeyboard(mainMenuButtons())
	if _, err := b.sender.Send(msg); err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}
	b.log.Debug("Sent reminder", zap.Int64("user_id", user.ID), zap.Int("cards", dueCards), zap.Int("sessions", len(sessions)))
	return nil
}

// isAdmin checks if a user is an admin
func (b *Bot) isAdmin(telegramID int64) bool {
	return b.admins[telegramID]
}

// handleUpdate handles incoming updates from Telegram
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	var err error
	switch {
	case update.Message != nil && update.Message.IsCommand():
		err = b.HandleCommand(ctx, update.Message)
	case update.Message != nil && update.Message.Chat != nil:
		err = b.reply(update.Message.Chat.ID, "I don't understand. Use /help to see the commands.", mainMenuButtons())
	case update.CallbackQuery != nil:
		err = b.HandleCallback(ctx, update.CallbackQuery)
	}
	if err != nil {
		b.log.Warn("Failed to handle update", zap.Int("update_id", update.UpdateID), zap.Error(err))
	}
}

// mainMenuButtons returns the main menu layout
func mainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{{Text: "📚 Due cards", CallbackData: callbackDue}, {Text: "🗓 Sessions", CallbackData: callbackPlan}},
		{{Text: "📊 Today", CallbackData: callbackFeedback + "day"}, {Text: "📈 This week", CallbackData: callbackFeedback + "week"}},
		{{Text: "❓ Help", CallbackData: callbackHelp}},
	}
}

func (b *Bot) reply(chatID int64, text string, buttons [][]MenuButton) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if buttons != nil {
		msg.ReplyMarkup = createKeyboard(buttons)
	}
	_, err := b.sender.Send(msg)
	return err
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
