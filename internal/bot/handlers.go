package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/example/overseer/internal/feedback"
	"github.com/example/overseer/internal/logging"
	"github.com/example/overseer/internal/study"
	"github.com/example/overseer/pkg/models"
)

// Callback data prefixes.
const (
	callbackDue      = "due"
	callbackPlan     = "plan"
	callbackHelp     = "help"
	callbackFeedback = "feedback:"
	callbackReview   = "review:"
)

const dueCardsLimit = 5

const helpText = `Commands:
/due - cards to review now
/review <card> <score> - record a review, score 1 (forgot) to 5 (perfect)
/plan - study sessions due today
/feedback [day|week|month] - planned versus actual time
/notify on|off - daily reminders
/time <hour> - reminder hour (0-23)
/help - this message`

// HandleCommand processes bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	if message.From == nil || message.Chat == nil {
		return nil
	}
	chatID := message.Chat.ID
	log := logging.WithRequest(b.log, message.Command()).With(zap.Int64("telegram_id", message.From.ID))

	user, err := b.svc.RegisterTelegramUser(ctx, message.From.ID, displayName(message.From))
	if err != nil {
		log.Error("Failed to register user", zap.Error(err))
		return b.reply(chatID, "Something went wrong, please try again later.", nil)
	}

	switch message.Command() {
	case "start":
		text := fmt.Sprintf("Hello, %s! I keep track of your flashcards and study sessions.\n\n%s", user.Name, helpText)
		return b.reply(chatID, text, mainMenuButtons())
	case "help":
		return b.reply(chatID, helpText, mainMenuButtons())
	case "due":
		return b.sendDueCards(ctx, chatID, user)
	case "review":
		return b.handleReviewCommand(ctx, chatID, user, message.CommandArguments(), log)
	case "plan":
		return b.sendSessions(ctx, chatID, user)
	case "feedback":
		return b.sendFeedback(ctx, chatID, user, strings.TrimSpace(message.CommandArguments()))
	case "notify":
		return b.handleNotifyCommand(ctx, chatID, user, message.CommandArguments())
	case "time":
		return b.handleTimeCommand(ctx, chatID, user, message.CommandArguments())
	case "remind":
		if !b.isAdmin(message.From.ID) || b.remind == nil {
			return b.reply(chatID, "This command is only available to administrators.", nil)
		}
		if err := b.remind(ctx, *user); err != nil {
			log.Warn("Manual reminder failed", zap.Error(err))
			return b.reply(chatID, "Reminder failed: "+err.Error(), nil)
		}
		return nil
	default:
		return b.reply(chatID, "Unknown command. Use /help to see the commands.", nil)
	}
}

// HandleCallback processes callback queries from inline keyboards
func (b *Bot) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	// Acknowledge first so the client stops its spinner.
	if _, err := b.sender.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.log.Debug("Failed to answer callback", zap.Error(err))
	}
	if callback.From == nil || callback.Message == nil || callback.Message.Chat == nil {
		return nil
	}
	chatID := callback.Message.Chat.ID

	user, err := b.svc.RegisterTelegramUser(ctx, callback.From.ID, displayName(callback.From))
	if err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}

	data := callback.Data
	switch {
	case data == callbackDue:
		return b.sendDueCards(ctx, chatID, user)
	case data == callbackPlan:
		return b.sendSessions(ctx, chatID, user)
	case data == callbackHelp:
		return b.reply(chatID, helpText, mainMenuButtons())
	case strings.HasPrefix(data, callbackFeedback):
		return b.sendFeedback(ctx, chatID, user, strings.TrimPrefix(data, callbackFeedback))
	case strings.HasPrefix(data, callbackReview):
		cardID, score, err := parseReviewData(strings.TrimPrefix(data, callbackReview))
		if err != nil {
			return b.reply(chatID, "Invalid review button.", nil)
		}
		text := b.review(ctx, user, cardID, score, logging.WithRequest(b.log, "review"))
		// Replace the question so the same buttons cannot be pressed twice.
		edit := tgbotapi.NewEditMessageText(chatID, callback.Message.MessageID, text)
		_, err = b.sender.Send(edit)
		return err
	default:
		return b.reply(chatID, "Unknown action.", nil)
	}
}

func (b *Bot) sendDueCards(ctx context.Context, chatID int64, user *models.User) error {
	cards, err := b.svc.DueCards(ctx, user.ID, nil, b.now(), dueCardsLimit)
	if err != nil {
		return fmt.Errorf("failed to load due cards: %w", err)
	}
	if len(cards) == 0 {
		return b.reply(chatID, "No cards are due. Well done!", mainMenuButtons())
	}

	for _, card := range cards {
		text := fmt.Sprintf("Card #%d\n\n%s\n\nHow well did you remember the answer?", card.ID, card.Front)
		if err := b.reply(chatID, text, scoreButtons(card.ID)); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) handleReviewCommand(ctx context.Context, chatID int64, user *models.User, args string, log *zap.Logger) error {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return b.reply(chatID, "Usage: /review <card> <score>", nil)
	}
	cardID, err1 := strconv.ParseInt(fields[0], 10, 64)
	score, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		return b.reply(chatID, "Usage: /review <card> <score>", nil)
	}
	return b.reply(chatID, b.review(ctx, user, cardID, score, log), nil)
}

// review records a score and returns the text shown to the user.
func (b *Bot) review(ctx context.Context, user *models.User, cardID int64, score int, log *zap.Logger) string {
	card, err := b.svc.ReviewCard(ctx, user.ID, cardID, score, b.now())
	switch {
	case err == nil:
		return fmt.Sprintf("Card #%d\n\n%s\n\nAnswer: %s\n\nNext review on %s (in %d %s).",
			card.ID, card.Front, card.Back, card.DueAt.Format("2006-01-02"),
			card.IntervalDays, plural(card.IntervalDays, "day", "days"))
	case errors.Is(err, study.ErrNotFound):
		return fmt.Sprintf("Card #%d not found.", cardID)
	case errors.Is(err, study.ErrInvalidScore):
		return "The score must be between 1 and 5."
	case errors.Is(err, study.ErrConflict):
		return "The card was updated at the same time, please try again."
	default:
		log.Error("Failed to review card", zap.Int64("card_id", cardID), zap.Error(err))
		return "Could not save the review, please try again later."
	}
}

func (b *Bot) sendSessions(ctx context.Context, chatID int64, user *models.User) error {
	sessions, err := b.svc.DueSessions(ctx, user.ID, b.now())
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}
	if len(sessions) == 0 {
		return b.reply(chatID, "No study sessions are due.", mainMenuButtons())
	}
	return b.reply(chatID, "Sessions due:\n"+formatSessions(sessions), nil)
}

func (b *Bot) sendFeedback(ctx context.Context, chatID int64, user *models.User, scope string) error {
	stats, err := b.svc.Feedback(ctx, user.ID, scope, nil)
	if errors.Is(err, study.ErrInvalidScope) {
		return b.reply(chatID, "Usage: /feedback [day|week|month]", nil)
	}
	if err != nil {
		return fmt.Errorf("failed to compute feedback: %w", err)
	}
	return b.reply(chatID, formatFeedback(stats), nil)
}

func (b *Bot) handleNotifyCommand(ctx context.Context, chatID int64, user *models.User, args string) error {
	var enabled bool
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "on":
		enabled = true
	case "off":
	default:
		return b.reply(chatID, "Usage: /notify on|off", nil)
	}

	if err := b.svc.SetNotifications(ctx, user.ID, enabled, user.NotificationHour); err != nil {
		return fmt.Errorf("failed to update notifications: %w", err)
	}
	if enabled {
		return b.reply(chatID, fmt.Sprintf("Reminders enabled at %02d:00.", user.NotificationHour), nil)
	}
	return b.reply(chatID, "Reminders disabled.", nil)
}

func (b *Bot) handleTimeCommand(ctx context.Context, chatID int64, user *models.User, args string) error {
	hour, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || hour < 0 || hour > 23 {
		return b.reply(chatID, "Usage: /time <hour>, with an hour between 0 and 23", nil)
	}
	if err := b.svc.SetNotifications(ctx, user.ID, user.NotificationEnabled, hour); err != nil {
		return fmt.Errorf("failed to update notification hour: %w", err)
	}
	return b.reply(chatID, fmt.Sprintf("Reminder hour set to %02d:00.", hour), nil)
}

func scoreButtons(cardID int64) [][]MenuButton {
	row := make([]MenuButton, 0, 5)
	for score := 1; score <= 5; score++ {
		row = append(row, MenuButton{
			Text:         strconv.Itoa(score),
			CallbackData: fmt.Sprintf("%s%d:%d", callbackReview, cardID, score),
		})
	}
	return [][]MenuButton{row}
}

// parseReviewData parses "<card>:<score>".
func parseReviewData(data string) (int64, int, error) {
	card, score, ok := strings.Cut(data, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid review data %q", data)
	}
	cardID, err := strconv.ParseInt(card, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid card id: %w", err)
	}
	s, err := strconv.Atoi(score)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid score: %w", err)
	}
	return cardID, s, nil
}

func displayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return name
}

func formatSessions(sessions []models.StudySession) string {
	var sb strings.Builder
	for i, s := range sessions {
		if i > 0 {
			sb.WriteByte('\n')
		}
		topic := "-"
		if s.Topic != nil {
			topic = *s.Topic
		}
		fmt.Fprintf(&sb, "• %s %s: %s (%d min)", s.ScheduledFor.Format("2006-01-02"), s.Kind, topic, s.DurationMinutes)
	}
	return sb.String()
}

func formatFeedback(stats feedback.Stats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Feedback for the %s of %s\n\n", stats.Scope, stats.Start.Format("2006-01-02"))
	fmt.Fprintf(&sb, "Planned: %.2fh, actual: %.2fh\n", stats.PlannedHours, stats.ActualHours)
	fmt.Fprintf(&sb, "Tasks done: %d/%d (%.0f%%)\n", stats.TasksDone, stats.TasksPlanned, stats.CompletionRate*100)

	if len(stats.DeferredTasks) > 0 {
		sb.WriteString("\nOverdue:\n")
		for _, d := range stats.DeferredTasks {
			fmt.Fprintf(&sb, "• %s (%d %s late)\n", d.Title, d.LateDays, plural(d.LateDays, "day", "days"))
		}
	}
	if len(stats.EstimateAdjustments) > 0 {
		sb.WriteString("\nEstimates to adjust:\n")
		for _, a := range stats.EstimateAdjustments {
			fmt.Fprintf(&sb, "• %s: planned %d min, spent %.0f min, suggest %d min\n",
				a.Title, a.PlannedMinutes, a.ActualMinutes, a.SuggestedMinutes)
		}
	}
	if len(stats.HabitWindows) > 0 {
		sb.WriteString("\nMost productive hours:\n")
		for _, h := range stats.HabitWindows {
			fmt.Fprintf(&sb, "• %s: %.2fh\n", h.Window, h.Hours)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
