package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/halfline/internal/service"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

type fakeLister struct {
	games []*service.GameView
	err   error
}

func (f *fakeLister) GetGamesByDate(ctx context.Context, day time.Time) ([]*service.GameView, error) {
	return f.games, f.err
}

func strPtr(s string) *string     { return &s }
func floatPtr(v float64) *float64 { return &v }

func called(away, home, call string, line float64) *service.GameView {
	return &service.GameView{
		Date:               time.Date(2024, 1, 10, 1, 0, 0, 0, time.UTC),
		AwayTeam:           away,
		HomeTeam:           home,
		EstimatedHalfLine:  floatPtr(line),
		PredictedAwayScore: 30,
		PredictedHomeScore: 28,
		PredictedHalfScore: 58,
		OverUnder:          strPtr(call),
	}
}

func chicago(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	return loc
}

func TestFormatDailyPicks(t *testing.T) {
	loc := chicago(t)
	day := time.Date(2024, 1, 9, 0, 0, 0, 0, loc)

	text := FormatDailyPicks(day, []*service.GameView{
		called("Kentucky Wildcats", "Duke Blue Devils", "Under", 59),
		{AwayTeam: "No Line", HomeTeam: "At All"},
	}, loc)

	assert.Contains(t, text, "Tue Jan 9")
	assert.Contains(t, text, "Kentucky Wildcats @ Duke Blue Devils (7:00 PM)")
	assert.Contains(t, text, "*Under 59.0*  projected 58.0 (30.0-28.0)")
	assert.NotContains(t, text, "No Line")
	assert.True(t, strings.HasSuffix(text, "1 games"))
}

func TestFormatDailyPicks_EscapesMarkdown(t *testing.T) {
	text := FormatDailyPicks(time.Now(), []*service.GameView{called("Team_One Foxes", "B Bears", "Over", 70)}, time.UTC)
	assert.Contains(t, text, `Team\_One`)
}

func TestFormatDailyPicks_NoneCalled(t *testing.T) {
	assert.Empty(t, FormatDailyPicks(time.Now(), []*service.GameView{{AwayTeam: "A", HomeTeam: "B"}}, time.UTC))
}

func TestSendDailyPicks(t *testing.T) {
	sender := &fakeSender{}
	lister := &fakeLister{games: []*service.GameView{called("A Aces", "B Bears", "Over", 65.5)}}
	n := NewNotifier(sender, 12345, lister, time.UTC)

	require.NoError(t, n.SendDailyPicks(context.Background(), time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(12345), sender.sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdown, sender.sent[0].ParseMode)
}

func TestSendDailyPicks_NothingToSend(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, 1, &fakeLister{}, nil)
	require.NoError(t, n.SendDailyPicks(context.Background(), time.Now()))
	assert.Empty(t, sender.sent)
}

func TestSendDailyPicks_Errors(t *testing.T) {
	n := NewNotifier(&fakeSender{}, 1, &fakeLister{err: errors.New("db down")}, nil)
	assert.Error(t, n.SendDailyPicks(context.Background(), time.Now()))

	lister := &fakeLister{games: []*service.GameView{called("A Aces", "B Bears", "Over", 65.5)}}
	n = NewNotifier(&fakeSender{err: errors.New("429")}, 1, lister, nil)
	assert.Error(t, n.SendDailyPicks(context.Background(), time.Now()))
}

func TestSplitMessage(t *testing.T) {
	text := strings.Repeat("aaaaaaaaa\n\n", 10) // 110 bytes
	chunks := splitMessage(text, 40)
	require.Len(t, chunks, 4)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 40)
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}
