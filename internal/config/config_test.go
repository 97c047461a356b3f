package config_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tartampluch/go-birthday-bot/internal/config"
)

// TestConstants_Integrity ensures critical constants are not empty or malformed.
func TestConstants_Integrity(t *testing.T) {
	tests := []struct {
		desc  string
		value string
	}{
		{"AppName", config.AppName},
		{"AppID", config.AppID},
		{"Version", config.Version},
		{"UserAgent", config.UserAgent},
		{"KeyringService", config.KeyringService},
		{"ICalVersion", config.ICalVersion},
		{"ICalProdid", config.ICalProdid},
		{"DefaultConfigPath", config.DefaultConfigPath},
		{"DefaultPort", config.DefaultPort},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.NotEmpty(t, tt.value, "Critical constant %s should not be empty", tt.desc)
		})
	}
}

// TestDefaults_Sanity checks that default values make sense logically.
func TestDefaults_Sanity(t *testing.T) {
	assert.Equal(t, []int{30, 7, 1, 0}, config.DefaultReminderOffsets)
	assert.Equal(t, 400, config.RetentionDays)
	assert.Less(t, config.MinBirthYear, config.MaxBirthYear)

	_, err := time.LoadLocation(config.DefaultTimezone)
	assert.NoError(t, err, "Default timezone must be loadable")
	_, err = time.Parse(config.TimeFormatHHMM, config.DefaultDailySendTime)
	assert.NoError(t, err, "Default send time must be HH:MM")

	assert.True(t, strings.Contains(config.ConfigHeaderComment, "[30, 7, 1, 0]"))
	assert.True(t, strings.HasSuffix(config.ConfigHeaderComment, "\n\n"))
}

// TestUserAgent_Format ensures the UA string follows the standard format.
func TestUserAgent_Format(t *testing.T) {
	assert.True(t, strings.HasPrefix(config.UserAgent, "Go-Birthday-Bot/"), "UserAgent must start with AppName/")
}

func TestKeyFormats(t *testing.T) {
	assert.Equal(t, "2026-03-14|p1|7", fmt.Sprintf(config.FormatDedupeKey, "2026-03-14", "p1", 7))
	assert.Equal(t, "alice|03|14|1990", fmt.Sprintf(config.FormatBucketKey, "alice", 3, 14, "1990"))
	assert.Equal(t, "reminder_in-days-age_4", fmt.Sprintf(config.FormatVariantID, config.VariantInDaysAge, 4))
	assert.Equal(t, "0 9 * * *", fmt.Sprintf(config.FormatCronDaily, 0, 9))
}

func TestVariantCounts(t *testing.T) {
	for _, group := range []string{
		config.VariantToday, config.VariantTodayAge,
		config.VariantTomorrow, config.VariantTomorrowAge,
		config.VariantInDays, config.VariantInDaysAge,
	} {
		assert.Positive(t, config.VariantCounts[group], "group %s needs at least one variant", group)
	}
	assert.Len(t, config.VariantCounts, 6)
}

// TestTimeoutsAndLimits ensures that operational constraints are reasonable.
func TestTimeoutsAndLimits(t *testing.T) {
	t.Parallel()

	assert.Greater(t, config.HTTPTimeout, 0*time.Second, "HTTPTimeout must be positive")
	assert.LessOrEqual(t, config.HTTPTimeout, 2*time.Minute, "HTTPTimeout should not be excessively long")
	assert.Greater(t, config.ShutdownTimeout, 0*time.Second, "ShutdownTimeout must be positive")
	assert.Greater(t, config.PollerTimeout, 0*time.Second, "PollerTimeout must be positive")
	assert.Less(t, config.LedgerLockRetry, config.LedgerLockTimeout, "lock retry must fit inside the lock wait")

	assert.Greater(t, config.MaxHTTPResponseSize, 0, "MaxHTTPResponseSize must be positive")
	assert.Less(t, int64(config.MaxHTTPResponseSize), int64(1*1024*1024*1024), "MaxHTTPResponseSize should stay under 1GB to protect RAM")
}
