package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/fortuna/halfline/internal/service"
)

// Telegram rejects messages longer than this.
const maxMessageLen = 4096

// GameLister returns the games scheduled on a calendar day.
type GameLister interface {
	GetGamesByDate(ctx context.Context, day time.Time) ([]*service.GameView, error)
}

// Sender is the subset of *tgbotapi.BotAPI used to deliver messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts the day's over/under calls to one chat.
type TelegramNotifier struct {
	sender Sender
	chatID int64
	games  GameLister
	loc    *time.Location
}

// NewTelegramNotifier connects to the bot API and verifies the token.
func NewTelegramNotifier(token string, chatID int64, games GameLister, loc *time.Location) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	bot.Debug = false

	log.Printf("[notify] ✓ Telegram bot @%s ready (chat %d)", bot.Self.UserName, chatID)
	return NewNotifier(bot, chatID, games, loc), nil
}

// NewNotifier builds a notifier over an existing sender.
func NewNotifier(sender Sender, chatID int64, games GameLister, loc *time.Location) *TelegramNotifier {
	if loc == nil {
		loc = time.UTC
	}
	return &TelegramNotifier{sender: sender, chatID: chatID, games: games, loc: loc}
}

// SendDailyPicks sends every called game on day. Nothing is sent when no
// game on that day has a call.
func (n *TelegramNotifier) SendDailyPicks(ctx context.Context, day time.Time) error {
	games, err := n.games.GetGamesByDate(ctx, day)
	if err != nil {
		return fmt.Errorf("loading games for picks: %w", err)
	}

	text := FormatDailyPicks(day, games, n.loc)
	if text == "" {
		log.Printf("[notify] No picks for %s", day.Format("2006-01-02"))
		return nil
	}

	for _, chunk := range splitMessage(text, maxMessageLen) {
		msg := tgbotapi.NewMessage(n.chatID, chunk)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := n.sender.Send(msg); err != nil {
			return fmt.Errorf("sending picks: %w", err)
		}
	}
	return nil
}

// FormatDailyPicks renders the picks message, or "" when there are none.
func FormatDailyPicks(day time.Time, games []*service.GameView, loc *time.Location) string {
	var b strings.Builder
	picks := 0

	for _, g := range games {
		if g.OverUnder == nil || g.EstimatedHalfLine == nil {
			continue
		}
		if picks == 0 {
			fmt.Fprintf(&b, "🏀 *First-half picks for %s*\n\n", day.Format("Mon Jan 2"))
		}
		picks++

		fmt.Fprintf(&b, "%s @ %s (%s)\n",
			escape(g.AwayTeam), escape(g.HomeTeam), g.Date.In(loc).Format("3:04 PM"))
		fmt.Fprintf(&b, "  *%s %.1f*  projected %.1f (%.1f-%.1f)\n\n",
			*g.OverUnder, *g.EstimatedHalfLine, g.PredictedHalfScore, g.PredictedAwayScore, g.PredictedHomeScore)
	}

	if picks == 0 {
		return ""
	}
	fmt.Fprintf(&b, "%d games", picks)
	return b.String()
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

// splitMessage breaks text on blank lines so no chunk exceeds limit.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	for _, block := range strings.SplitAfter(text, "\n\n") {
		if cur.Len()+len(block) > limit && cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		cur.WriteString(block)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
