// Package settings reads the runtime settings of the bot from the
// environment, an optional .env file and the OS keyring.
package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/tartampluch/go-birthday-bot/internal/config"
	"github.com/zalando/go-keyring"
)

// Settings holds everything the process needs besides the birthday config.
type Settings struct {
	BotToken      string
	AllowedUserID int64
	AllowedChatID int64

	ConfigPath string
	IndexPath  string
	StatePath  string

	// CalendarPort is empty when the calendar feed is disabled.
	CalendarPort string
	Language     string
}

// LoadDotEnv loads variables from files (default ".env") without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{config.DotEnvFile}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			slog.Debug(config.MsgDotEnvMissing,
				config.LogKeyComponent, config.CompSettings,
				config.LogKeyFile, f,
				config.LogKeyError, err,
			)
		}
	}
}

// Load reads settings from the environment. Paths fall back to their
// defaults; malformed ids are rejected here, missing ones by ValidateBot.
// When no bot token is set, the OS keyring entry is tried.
func Load() (Settings, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault(config.EnvConfigPath, config.DefaultConfigPath)
	v.SetDefault(config.EnvIndexPath, config.DefaultIndexPath)
	v.SetDefault(config.EnvStatePath, config.DefaultStatePath)
	v.SetDefault(config.EnvCalendarPort, config.DefaultPort)
	v.SetDefault(config.EnvLanguage, config.DefaultLanguage)

	s := Settings{
		BotToken:     strings.TrimSpace(v.GetString(config.EnvBotToken)),
		ConfigPath:   v.GetString(config.EnvConfigPath),
		IndexPath:    v.GetString(config.EnvIndexPath),
		StatePath:    v.GetString(config.EnvStatePath),
		CalendarPort: strings.TrimSpace(v.GetString(config.EnvCalendarPort)),
		Language:     v.GetString(config.EnvLanguage),
	}

	var err error
	if s.AllowedUserID, err = optionalInt(v, config.EnvAllowedUserID); err != nil {
		return Settings{}, err
	}
	if s.AllowedChatID, err = optionalInt(v, config.EnvAllowedChatID); err != nil {
		return Settings{}, err
	}

	if s.BotToken == "" {
		slog.Debug(config.MsgKeyringFallback,
			config.LogKeyComponent, config.CompSettings,
		)
		token, err := keyring.Get(config.KeyringService, config.KeyringTokenUser)
		switch {
		case err == nil:
			s.BotToken = strings.TrimSpace(token)
		case !errors.Is(err, keyring.ErrNotFound):
			slog.Warn(config.ErrKeyringLookup,
				config.LogKeyComponent, config.CompSettings,
				config.LogKeyError, err,
			)
		}
	}
	return s, nil
}

// ValidateBot checks the settings needed to run the Telegram bot.
func (s Settings) ValidateBot() error {
	switch {
	case s.BotToken == "":
		return fmt.Errorf("%s: %s", config.ErrSettingMissing, config.EnvBotToken)
	case s.AllowedUserID == 0:
		return fmt.Errorf("%s: %s", config.ErrSettingMissing, config.EnvAllowedUserID)
	case s.AllowedChatID == 0:
		return fmt.Errorf("%s: %s", config.ErrSettingMissing, config.EnvAllowedChatID)
	}
	return nil
}

func optionalInt(v *viper.Viper, key string) (int64, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %s: %w", config.ErrSettingNumber, key, err)
	}
	return n, nil
}
