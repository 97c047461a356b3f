package settings_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-birthday-bot/internal/config"
	"github.com/tartampluch/go-birthday-bot/internal/settings"
	"github.com/zalando/go-keyring"
)

// clearEnv blanks every setting so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		config.EnvBotToken, config.EnvAllowedUserID, config.EnvAllowedChatID,
		config.EnvConfigPath, config.EnvIndexPath, config.EnvStatePath,
		config.EnvCalendarPort, config.EnvLanguage,
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	keyring.MockInit()

	s, err := settings.Load()
	require.NoError(t, err)

	assert.Equal(t, config.DefaultConfigPath, s.ConfigPath)
	assert.Equal(t, config.DefaultIndexPath, s.IndexPath)
	assert.Equal(t, config.DefaultStatePath, s.StatePath)
	assert.Equal(t, config.DefaultPort, s.CalendarPort)
	assert.Equal(t, config.DefaultLanguage, s.Language)
	assert.Empty(t, s.BotToken)

	err = s.ValidateBot()
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvBotToken)
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	keyring.MockInit()
	t.Setenv(config.EnvBotToken, " 123:abc ")
	t.Setenv(config.EnvAllowedUserID, "1001")
	t.Setenv(config.EnvAllowedChatID, "-1002003")
	t.Setenv(config.EnvConfigPath, "/etc/bot/birthdays.toml")
	t.Setenv(config.EnvLanguage, "fr")

	s, err := settings.Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", s.BotToken)
	assert.Equal(t, int64(1001), s.AllowedUserID)
	assert.Equal(t, int64(-1002003), s.AllowedChatID)
	assert.Equal(t, "/etc/bot/birthdays.toml", s.ConfigPath)
	assert.Equal(t, "fr", s.Language)
	assert.NoError(t, s.ValidateBot())
}

func TestLoad_RejectsNonNumericIDs(t *testing.T) {
	clearEnv(t)
	keyring.MockInit()
	t.Setenv(config.EnvAllowedUserID, "me")

	_, err := settings.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrSettingNumber)
	assert.Contains(t, err.Error(), config.EnvAllowedUserID)
}

func TestLoad_KeyringFallback(t *testing.T) {
	clearEnv(t)
	keyring.MockInit()
	require.NoError(t, keyring.Set(config.KeyringService, config.KeyringTokenUser, "from-keyring"))

	s, err := settings.Load()
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", s.BotToken)
}

func TestValidateBot_MissingChat(t *testing.T) {
	s := settings.Settings{BotToken: "t", AllowedUserID: 1}
	err := s.ValidateBot()
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvAllowedChatID)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TELEGRAM_ALLOWED_CHAT_ID=77\nCALENDAR_PORT=\n"), config.FilePermUserRW))

	// Variables already present win over the file.
	t.Setenv(config.EnvAllowedUserID, "5")

	settings.LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env"))
	keyring.MockInit()

	s, err := settings.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(77), s.AllowedChatID)
	assert.Equal(t, int64(5), s.AllowedUserID)
}
