// Package locale holds the user-facing message catalogue.
package locale

import (
	"embed"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/go-birthday-bot/internal/config"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Translator resolves message ids for one language, falling back to English.
type Translator struct {
	localizer *i18n.Localizer
	languages []string
}

// New loads every embedded active.<lang>.json file and returns a
// translator for lang. Unreadable locale files are logged and skipped.
func New(lang string) *Translator {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir(config.LocaleDir)
	if err != nil {
		slog.Error(config.ErrLocalesAccess,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyError, err,
		)
	}

	var detected []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, config.LocalePrefix) || !strings.HasSuffix(name, config.LocaleExt) {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		code := strings.TrimSuffix(strings.TrimPrefix(name, config.LocalePrefix), config.LocaleExt)
		if code == "" {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, config.LocaleDir+"/"+name); err != nil {
			slog.Error(config.ErrLocaleLoad,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
				config.LogKeyError, err,
			)
			continue
		}
		detected = append(detected, code)
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, code,
		)
	}

	if lang == "" {
		lang = config.DefaultLanguage
	}
	return &Translator{
		localizer: i18n.NewLocalizer(bundle, lang, config.DefaultLanguage),
		languages: detected,
	}
}

// Languages lists the language codes found in the catalogue.
func (t *Translator) Languages() []string {
	return t.languages
}

// T translates id, executing its template with data. A missing id is
// returned verbatim so the gap is visible instead of fatal.
func (t *Translator) T(id string, data map[string]any) string {
	msg, err := t.Lookup(id, data)
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, id,
			config.LogKeyError, err,
		)
		return id
	}
	return msg
}

// Lookup is T without the fallback.
func (t *Translator) Lookup(id string, data map[string]any) (string, error) {
	return t.localizer.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: data})
}
