package locale_test

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-birthday-bot/internal/config"
	"github.com/tartampluch/go-birthday-bot/internal/locale"
)

// TestI18nIntegrity ensures that every translation key defined in config.go
// actually exists in the locale JSON files.
func TestI18nIntegrity(t *testing.T) {
	definedKeys := map[string]bool{}

	keysToCheck := []string{
		config.TKeyEvtSummary, config.TKeyEvtSummaryAge,
		config.TKeyUnauthorized, config.TKeyHelp, config.TKeyNoBirthdays, config.TKeyAskYesNo,
		config.TKeyCanceled, config.TKeyWizardCancel, config.TKeyNoWizard, config.TKeyInternalError,
		config.TKeyDefaultNote, config.TKeyYearNotSet, config.TKeyOffsetDayOf, config.TKeyOffsetDays,
		config.TKeyErrBirthdayFormat, config.TKeyErrInvalidDate, config.TKeyErrOffsetsFormat, config.TKeyErrOffsetsEmpty,
		config.TKeyListHeader, config.TKeyListName, config.TKeyListInDays, config.TKeyListNext,
		config.TKeyListTurning, config.TKeyListReminders,
		config.TKeyAddStart, config.TKeyAddNameEmpty, config.TKeyAddAskBirthday, config.TKeyAddBadBirthday,
		config.TKeyAddAskOffsets, config.TKeyAddBadOffsets, config.TKeyAddSummary, config.TKeyAddSaved,
		config.TKeyEditHeader, config.TKeyEditRow, config.TKeyEditBadNumber, config.TKeyEditOutOfRange,
		config.TKeyEditAskName, config.TKeyEditNameEmpty, config.TKeyEditAskBirthday, config.TKeyEditBadBirthday,
		config.TKeyEditAskOffsets, config.TKeyEditBadOffsets, config.TKeyEditSummary, config.TKeyEditSaved,
		config.TKeyEditListChanged,
	}
	for group, count := range config.VariantCounts {
		for i := 0; i < count; i++ {
			keysToCheck = append(keysToCheck, fmt.Sprintf(config.FormatVariantID, group, i))
		}
	}
	for _, k := range keysToCheck {
		definedKeys[k] = true
	}

	content, err := os.ReadFile("locales/active.en.json")
	require.NoError(t, err, "Must load active.en.json")

	var jsonMap map[string]interface{}
	require.NoError(t, json.Unmarshal(content, &jsonMap), "JSON must be valid")

	for key := range definedKeys {
		_, exists := jsonMap[key]
		assert.Truef(t, exists, "Key '%s' defined in config.go is missing in active.en.json", key)
	}

	for jsonKey := range jsonMap {
		if strings.HasPrefix(jsonKey, "_") {
			continue
		}
		assert.Truef(t, definedKeys[jsonKey], "Key '%s' exists in JSON but is not referenced in config.go", jsonKey)
	}
}

func TestTranslator(t *testing.T) {
	tr := locale.New("")

	assert.Contains(t, tr.Languages(), "en")
	assert.Equal(t, "Birthday: Ada (36)", tr.T(config.TKeyEvtSummaryAge, map[string]any{"Name": "Ada", "Age": 36}))
	assert.Equal(t, "Entry must be between 1 and 3.", tr.T(config.TKeyEditOutOfRange, map[string]any{"Max": 3}))

	assert.Equal(t, "no_such_key", tr.T("no_such_key", nil))
	_, err := tr.Lookup("no_such_key", nil)
	assert.Error(t, err)
}

func TestTranslator_UnknownLanguageFallsBack(t *testing.T) {
	tr := locale.New("xx")
	assert.Equal(t, "Wizard canceled.", tr.T(config.TKeyWizardCancel, nil))
}
