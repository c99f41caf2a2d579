package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/campusevents/internal/models"
)

const (
	commandTimeout = 10 * time.Second

	userHelp = `Available commands:
/events - Upcoming events (filtered by the chat's college, if subscribed)
/report registrations|attendance|feedback - Per-event reports
/top [n] - Most active students
/student <id> - Attendance count for one student
/help - Show this message`

	adminHelp = userHelp + `

Admin commands:
/subscribe <college_id> [title] - Follow a college in this chat
/unsubscribe - Stop following
/subscriptions - List every chat subscription

Examples:
/report attendance
/top 5
/subscribe 2 Engineering`
)

type commandHandler func(context.Context, *tgbotapi.Message) error

func (b *Bot) routeUserCommands(cmd string) (commandHandler, bool) {
	commands := map[string]commandHandler{
		"start":   b.handleStart,
		"help":    b.handleHelp,
		"events":  b.handleEvents,
		"report":  b.handleReport,
		"top":     b.handleTop,
		"student": b.handleStudent,
	}
	handler, found := commands[cmd]
	return handler, found
}

func (b *Bot) routeAdminCommands(cmd string) (commandHandler, bool) {
	commands := map[string]commandHandler{
		"subscribe":     b.handleSubscribe,
		"unsubscribe":   b.handleUnsubscribe,
		"subscriptions": b.handleSubscriptions,
	}
	handler, found := commands[cmd]
	return handler, found
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		b.sendHelp(msg.Chat.ID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	cmd := msg.Command()

	if handler, ok := b.routeUserCommands(cmd); ok {
		b.run(ctx, handler, msg)
		return
	}

	if msg.From != nil && b.admins[msg.From.ID] {
		if handler, ok := b.routeAdminCommands(cmd); ok {
			b.run(ctx, handler, msg)
			return
		}
	}

	b.sendHelp(msg.Chat.ID)
}

func (b *Bot) run(ctx context.Context, handler commandHandler, msg *tgbotapi.Message) {
	if err := handler(ctx, msg); err != nil {
		logger.Error.Printf("Command /%s error: %v", msg.Command(), err)
		b.sendMessage(msg.Chat.ID, fmt.Sprintf("Error: %v", err))
	}
}

func (b *Bot) isAdmin(msg *tgbotapi.Message) bool {
	return msg.From != nil && b.admins[msg.From.ID]
}

func (b *Bot) handleHelp(ctx context.Context, msg *tgbotapi.Message) error {
	text := userHelp
	if b.isAdmin(msg) {
		text = adminHelp
	}
	return b.sendMessage(msg.Chat.ID, text)
}

func (b *Bot) sendHelp(chatID int64) error {
	return b.sendMessage(chatID, "Use commands to talk to the bot. Send /help for the list.")
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	text := "Hi! I report on campus events.\n\n"
	if b.isAdmin(msg) {
		text += "You are an admin. Use /help for the list of commands."
	} else {
		text += "Try /report registrations or /top."
	}
	return b.sendMessage(msg.Chat.ID, text)
}

func (b *Bot) handleEvents(ctx context.Context, msg *tgbotapi.Message) error {
	events, err := b.service.ListEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	sub, err := b.chats.FetchSubscription(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if sub != nil {
		events = filterByCollege(events, sub.CollegeID)
	}

	return b.sendMessage(msg.Chat.ID, formatEvents(events))
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 1 {
		return b.sendMessage(msg.Chat.ID, "Usage: /report registrations|attendance|feedback")
	}

	var text string
	switch args[0] {
	case "registrations":
		rows, err := b.service.RegistrationsReport(ctx)
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
		text = formatRegistrations(rows)
	case "attendance":
		rows, err := b.service.AttendanceReport(ctx)
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
		text = formatAttendance(rows)
	case "feedback":
		rows, err := b.service.FeedbackReport(ctx)
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
		text = formatFeedback(rows)
	default:
		return b.sendMessage(msg.Chat.ID, fmt.Sprintf("Unknown report: %s", args[0]))
	}

	return b.sendMessage(msg.Chat.ID, text)
}

func (b *Bot) handleTop(ctx context.Context, msg *tgbotapi.Message) error {
	var limit *int
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return b.sendMessage(msg.Chat.ID, "Usage: /top [n], n must be a positive number")
		}
		limit = &n
	}

	rows, err := b.service.TopActiveStudents(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to fetch top students: %w", err)
	}
	return b.sendMessage(msg.Chat.ID, formatTopActive(rows))
}

func (b *Bot) handleStudent(ctx context.Context, msg *tgbotapi.Message) error {
	studentID, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil {
		return b.sendMessage(msg.Chat.ID, "Usage: /student <id>")
	}

	result, err := b.service.StudentParticipation(ctx, studentID)
	if err != nil {
		return fmt.Errorf("failed to fetch participation: %w", err)
	}
	return b.sendMessage(msg.Chat.ID, formatParticipation(result))
}

func (b *Bot) handleSubscribe(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 1 {
		return b.sendMessage(msg.Chat.ID, "Usage: /subscribe <college_id> [title]")
	}

	collegeID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return b.sendMessage(msg.Chat.ID, "college_id must be a number")
	}

	title := strings.Join(args[1:], " ")
	if title == "" {
		title = msg.Chat.Title
	}

	sub := &models.ChatSubscription{
		CollegeID:        collegeID,
		Title:            title,
		SubscriptionTime: time.Now(),
		SubscribedBy:     msg.From.ID,
	}
	if err := b.chats.Subscribe(ctx, msg.Chat.ID, sub); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	logger.Info.Printf("Chat %d subscribed to college %d by %d", msg.Chat.ID, collegeID, msg.From.ID)
	return b.sendMessage(msg.Chat.ID, fmt.Sprintf("This chat now follows college %d", collegeID))
}

func (b *Bot) handleUnsubscribe(ctx context.Context, msg *tgbotapi.Message) error {
	removed, err := b.chats.Unsubscribe(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if !removed {
		return b.sendMessage(msg.Chat.ID, "This chat has no subscription")
	}
	return b.sendMessage(msg.Chat.ID, "Subscription removed")
}

func (b *Bot) handleSubscriptions(ctx context.Context, msg *tgbotapi.Message) error {
	subs, err := b.chats.FetchAllSubscriptions(ctx)
	if err != nil {
		return err
	}
	return b.sendMessage(msg.Chat.ID, formatSubscriptions(subs, b.config.Display.TimestampFormat))
}

func (b *Bot) sendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.api.Send(msg)
	if err != nil {
		logger.Error.Printf("Failed to send message to %d: %v", chatID, err)
	}
	return err
}
