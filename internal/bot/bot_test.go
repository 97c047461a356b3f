package bot_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-birthday-bot/internal/bot"
	"github.com/tartampluch/go-birthday-bot/internal/config"
	"github.com/tartampluch/go-birthday-bot/internal/engine"
	"github.com/tartampluch/go-birthday-bot/internal/identity"
	"github.com/tartampluch/go-birthday-bot/internal/locale"
	"github.com/tartampluch/go-birthday-bot/internal/store"
	tele "gopkg.in/telebot.v4"
)

// -----------------------------------------------------------------------------
// Mocks & Fixtures
// -----------------------------------------------------------------------------

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	args := m.Called(to, what)
	msg, _ := args.Get(0).(*tele.Message)
	return msg, args.Error(1)
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

const chat int64 = 42

const listTOML = `timezone = "America/Los_Angeles"
daily_send_time = "09:00"
leap_day_rule = "feb28"

[[birthdays]]
name = "Alice"
month = 3
day = 14
year = 1990
reminder_offsets = [7, 1, 0]

[[birthdays]]
name = "zed"
month = 3
day = 8
reminder_offsets = [30, 7, 1, 0]

[[birthdays]]
name = "Bob"
month = 3
day = 8
year = 2000
reminder_offsets = [0]

[[birthdays]]
name = "Leo"
month = 2
day = 29
reminder_offsets = [1]
`

const emptyTOML = "timezone = \"UTC\"\ndaily_send_time = \"09:00\"\n"

const aliceTOML = `timezone = "America/Los_Angeles"
daily_send_time = "09:00"
leap_day_rule = "feb28"

[[birthdays]]
name = "Alice"
month = 3
day = 14
year = 1990
reminder_offsets = [7, 1, 0]
`

type fixture struct {
	handlers *bot.Handlers
	store    *store.ConfigStore
	changes  int
}

func newFixture(t *testing.T, content string) *fixture {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "birthdays.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), config.FilePermUserRW))

	f := &fixture{store: store.NewConfigStore(path)}
	f.handlers = bot.NewHandlers(bot.Deps{
		Store:      f.store,
		Identities: identity.NewIndexStore(filepath.Join(dir, "index.json"), identity.Resolver{}),
		Translator: locale.New(config.DefaultLanguage),
		// 10:00 on 2026-03-07 in Los Angeles.
		Clock:    fixedClock{now: time.Date(2026, 3, 7, 18, 0, 0, 0, time.UTC)},
		OnChange: func(engine.AppConfig) { f.changes++ },
	})
	return f
}

// converse feeds each message to the active wizard and returns the replies.
func (f *fixture) converse(messages ...string) []string {
	replies := make([]string, len(messages))
	for i, m := range messages {
		replies[i] = f.handlers.Text(chat, m)
	}
	return replies
}

// -----------------------------------------------------------------------------
// Parsing
// -----------------------------------------------------------------------------

func TestParseBirthdayText(t *testing.T) {
	tests := []struct {
		desc    string
		input   string
		month   int
		day     int
		year    int
		wantErr error
	}{
		{"Full date", "1990-03-14", 3, 14, 1990, nil},
		{"Surrounding spaces", "  03-14 ", 3, 14, 0, nil},
		{"Leap day without year", "02-29", 2, 29, 0, nil},
		{"Leap day in leap year", "2024-02-29", 2, 29, 2024, nil},
		{"Leap day in common year", "2023-02-29", 0, 0, 0, engine.ErrInvalidDate},
		{"Impossible day", "04-31", 0, 0, 0, engine.ErrInvalidDate},
		{"Month 13", "13-01", 0, 0, 0, engine.ErrInvalidDate},
		{"Year out of range", "1850-01-01", 0, 0, 0, engine.ErrInvalidDate},
		{"Slashes", "14/03/1990", 0, 0, 0, bot.ErrBirthdayFormat},
		{"Single digit month", "3-14", 0, 0, 0, bot.ErrBirthdayFormat},
		{"Empty", "", 0, 0, 0, bot.ErrBirthdayFormat},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			month, day, year, err := bot.ParseBirthdayText(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []int{tt.month, tt.day, tt.year}, []int{month, day, year})
		})
	}
}

func TestParseOffsetsText(t *testing.T) {
	tests := []struct {
		desc        string
		input       string
		want        []int
		usedDefault bool
		wantErr     error
	}{
		{"Blank uses default", "  ", []int{30, 7, 1, 0}, true, nil},
		{"Skip uses default", "SKIP", []int{30, 7, 1, 0}, true, nil},
		{"Default keyword", "default", []int{30, 7, 1, 0}, true, nil},
		{"Sorted and deduplicated", "0, 7,1,7", []int{7, 1, 0}, false, nil},
		{"Empty tokens ignored", "3,,1,", []int{3, 1}, false, nil},
		{"Negative rejected", "-1,2", nil, false, bot.ErrOffsetsFormat},
		{"Letters rejected", "a,b", nil, false, bot.ErrOffsetsFormat},
		{"Only separators", ", ,", nil, false, bot.ErrOffsetsEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got, usedDefault, err := bot.ParseOffsetsText(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.usedDefault, usedDefault)
		})
	}
}

func TestParseOffsetsText_DefaultIsACopy(t *testing.T) {
	got, _, err := bot.ParseOffsetsText("")
	require.NoError(t, err)
	got[0] = 99
	assert.Equal(t, []int{30, 7, 1, 0}, config.DefaultReminderOffsets)
}

// -----------------------------------------------------------------------------
// Authorization & Delivery
// -----------------------------------------------------------------------------

func TestAuthorized(t *testing.T) {
	tests := []struct {
		desc   string
		sender int64
		chat   int64
		want   bool
	}{
		{"Owner in allowed chat", 7, 42, true},
		{"Owner in another chat", 7, 43, false},
		{"Stranger in allowed chat", 8, 42, false},
		{"Missing sender", 0, 42, false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, bot.Authorized(tt.sender, tt.chat, 7, 42))
		})
	}
}

func TestNotifier_Notify(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", tele.ChatID(-100123), "Happy birthday").Return(&tele.Message{}, nil).Once()

	err := bot.NewNotifier(sender).Notify(context.Background(), "-100123", "Happy birthday")

	require.NoError(t, err)
	sender.AssertExpectations(t)
}

func TestNotifier_Errors(t *testing.T) {
	t.Run("Invalid destination", func(t *testing.T) {
		sender := new(MockSender)
		err := bot.NewNotifier(sender).Notify(context.Background(), "@owner", "hi")
		require.Error(t, err)
		assert.Contains(t, err.Error(), config.ErrDestination)
		sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("Send failure", func(t *testing.T) {
		sender := new(MockSender)
		sendErr := errors.New("telegram: bad gateway")
		sender.On("Send", tele.ChatID(42), "hi").Return(nil, sendErr)

		err := bot.NewNotifier(sender).Notify(context.Background(), "42", "hi")
		assert.ErrorIs(t, err, sendErr)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		sender := new(MockSender)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := bot.NewNotifier(sender).Notify(ctx, "42", "hi")
		assert.ErrorIs(t, err, context.Canceled)
		sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})
}

// -----------------------------------------------------------------------------
// Commands
// -----------------------------------------------------------------------------

func TestList_Golden(t *testing.T) {
	f := newFixture(t, listTOML)

	g := goldie.New(t)
	g.Assert(t, "list", []byte(f.handlers.List()))
}

func TestList_Empty(t *testing.T) {
	f := newFixture(t, emptyTOML)
	assert.Equal(t, "No birthdays are currently tracked.", f.handlers.List())
}

func TestList_BrokenConfig(t *testing.T) {
	f := newFixture(t, "timezone = \"Mars/Olympus\"\ndaily_send_time = \"09:00\"\n")
	assert.Contains(t, f.handlers.List(), "Something went wrong")
}

func TestHelpAndUnauthorized(t *testing.T) {
	f := newFixture(t, aliceTOML)
	assert.Contains(t, f.handlers.Help(), "/add - Start the interactive birthday wizard")
	assert.Equal(t, "This bot is restricted to its configured owner.", f.handlers.Unauthorized())
}

func TestText_NoWizard(t *testing.T) {
	f := newFixture(t, aliceTOML)
	assert.Contains(t, f.handlers.Text(chat, "hello"), "No wizard is active")
}

// -----------------------------------------------------------------------------
// Add Wizard
// -----------------------------------------------------------------------------

func TestAddWizard_SavesEntry(t *testing.T) {
	f := newFixture(t, aliceTOML)

	assert.Contains(t, f.handlers.StartAdd(chat), "Step 1/4")
	replies := f.converse(" Grace ", "1984-07-01", "", "maybe", "yes")

	assert.Contains(t, replies[0], "Step 2/4")
	assert.Contains(t, replies[1], "Step 3/4")
	assert.Equal(t, "Step 4/4: Confirm this entry:\nName: Grace\nBirthday: 07-01\nYear: 1984\nOffsets: [30, 7, 1, 0] (default)\n\nReply with yes to save, or no to cancel.", replies[2])
	assert.Equal(t, "Please reply with yes or no.", replies[3])
	assert.Equal(t, "Birthday saved to config.", replies[4])

	cfg, err := f.store.Load()
	require.NoError(t, err)
	require.Len(t, cfg.Birthdays, 2)
	assert.Equal(t, engine.Record{Name: "Grace", Month: 7, Day: 1, Year: 1984, Offsets: []int{30, 7, 1, 0}}, cfg.Birthdays[1])
	assert.Equal(t, 1, f.changes)

	// The wizard is over.
	assert.Contains(t, f.handlers.Text(chat, "yes"), "No wizard is active")
}

func TestAddWizard_RepromptsOnBadInput(t *testing.T) {
	f := newFixture(t, aliceTOML)
	f.handlers.StartAdd(chat)

	replies := f.converse("  ", "Grace", "14/03/1990", "02-30", "03-14", "a,b", ",", "5, 1")

	assert.Equal(t, "Name cannot be empty. Please send a name.", replies[0])
	assert.Equal(t, "Birthday must use YYYY-MM-DD or MM-DD. Please send YYYY-MM-DD or MM-DD.", replies[2])
	assert.Equal(t, "That date does not exist. Please send YYYY-MM-DD or MM-DD.", replies[3])
	assert.Contains(t, replies[4], "Step 3/4")
	assert.Equal(t, "Offsets must be comma-separated non-negative integers. Provide comma-separated values like 30,7,1,0 or leave blank.", replies[5])
	assert.Equal(t, "Provide at least one offset or leave blank for default. Provide comma-separated values like 30,7,1,0 or leave blank.", replies[6])
	assert.Contains(t, replies[7], "Year: (not set)\nOffsets: [5, 1]\n")
}

func TestAddWizard_DeclineLeavesConfig(t *testing.T) {
	f := newFixture(t, aliceTOML)
	before, err := os.ReadFile(f.store.Path())
	require.NoError(t, err)

	f.handlers.StartAdd(chat)
	replies := f.converse("Grace", "07-01", "1", "N")

	assert.Equal(t, "Canceled. No changes were made.", replies[3])
	after, err := os.ReadFile(f.store.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Zero(t, f.changes)
}

func TestCancel_DropsWizard(t *testing.T) {
	f := newFixture(t, aliceTOML)
	f.handlers.StartAdd(chat)
	f.converse("Grace")

	assert.Equal(t, "Wizard canceled.", f.handlers.Cancel(chat))
	assert.Contains(t, f.handlers.Text(chat, "07-01"), "No wizard is active")
}

func TestWizard_SessionsArePerChat(t *testing.T) {
	f := newFixture(t, aliceTOML)
	f.handlers.StartAdd(chat)

	assert.Contains(t, f.handlers.Text(chat+1, "Grace"), "No wizard is active")
	assert.Contains(t, f.handlers.Text(chat, "Grace"), "Step 2/4")
}

// -----------------------------------------------------------------------------
// Edit Wizard
// -----------------------------------------------------------------------------

func TestEditWizard_UpdatesEntry(t *testing.T) {
	f := newFixture(t, aliceTOML)

	assert.Equal(t,
		"Edit birthday wizard started.\nStep 1/5: Reply with the number of the entry to edit:\n1. Alice | 1990-03-14 | Reminders 7d, 1d, day-of",
		f.handlers.StartEdit(chat))

	replies := f.converse("first", "5", "1", "same", "03-15", "default", "y")

	assert.Equal(t, "Please send the entry number shown in the list.", replies[0])
	assert.Equal(t, "Entry must be between 1 and 1.", replies[1])
	assert.Equal(t, `Step 2/5: Send a new name, or skip to keep "Alice".`, replies[2])
	assert.Equal(t, "Step 3/5: Send a new birthday as YYYY-MM-DD or MM-DD,\nor skip to keep 1990-03-14.", replies[3])
	assert.Equal(t, "Step 4/5: Send new reminder offsets in days (e.g., 30,7,1,0).\nSend skip to keep 7d, 1d, day-of, or default for [30,7,1,0].", replies[4])
	assert.Equal(t, "Step 5/5: Confirm these edits:\nName: Alice -> Alice\nBirthday: 1990-03-14 -> 03-15\nOffsets: [7, 1, 0] -> [30, 7, 1, 0] (default)\n\nReply with yes to save, or no to cancel.", replies[5])
	assert.Equal(t, "Birthday updated.", replies[6])

	cfg, err := f.store.Load()
	require.NoError(t, err)
	assert.Equal(t, []engine.Record{{Name: "Alice", Month: 3, Day: 15, Offsets: []int{30, 7, 1, 0}}}, cfg.Birthdays)
	assert.Equal(t, 1, f.changes)
}

func TestEditWizard_SkipKeepsEverything(t *testing.T) {
	f := newFixture(t, aliceTOML)
	f.handlers.StartEdit(chat)

	replies := f.converse("1", "Alicia", "skip", "keep")

	assert.Contains(t, replies[3], "Name: Alice -> Alicia\nBirthday: 1990-03-14 -> 1990-03-14\nOffsets: [7, 1, 0] -> [7, 1, 0]\n")
	assert.NotContains(t, replies[3], "(default)")
}

func TestEditWizard_ListChanged(t *testing.T) {
	f := newFixture(t, listTOML)
	f.handlers.StartEdit(chat)
	f.converse("4", "skip", "skip", "skip")

	cfg, err := f.store.Load()
	require.NoError(t, err)
	cfg.Birthdays = cfg.Birthdays[:1]
	require.NoError(t, f.store.Save(cfg))

	assert.Equal(t, "Could not save because the birthday list changed. Send /edit and try again.", f.handlers.Text(chat, "yes"))
	assert.Zero(t, f.changes)
}

func TestEditWizard_EmptyConfig(t *testing.T) {
	f := newFixture(t, emptyTOML)
	assert.Equal(t, "No birthdays are currently tracked.", f.handlers.StartEdit(chat))
	assert.Contains(t, f.handlers.Text(chat, "1"), "No wizard is active")
}
