package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client used for remote vCard imports.
var UserAgent = "Go-Birthday-Bot/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Go Birthday Bot"
	AppID             = "com.github.tartampluch.go-birthday-bot"
	KeyringService    = "com.github.tartampluch.go-birthday-bot"
	KeyringTokenUser  = "telegram"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "bot.log"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for logs and every persisted state file.
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1

	// ExtLock is appended to a state file path to name its lock file.
	ExtLock = ".lock"

	// LedgerLockTimeout bounds the wait for another process's dispatch.
	LedgerLockTimeout = 2 * time.Minute
	LedgerLockRetry   = 100 * time.Millisecond
)

// -----------------------------------------------------------------------------
// CLI Commands & Flags
// -----------------------------------------------------------------------------

const (
	CmdRoot        = "go-birthday-bot"
	CmdRun         = "run"
	CmdDispatch    = "dispatch"
	CmdList        = "list"
	CmdValidate    = "validate"
	CmdImportVCard = "import-vcard"

	ArgsImportVCard = " <file|url>"

	CmdDescRoot     = "Telegram birthday reminders driven by a TOML config file"
	CmdDescRun      = "Run the Telegram bot with its daily scheduler and calendar feed"
	CmdDescDispatch = "Send the reminders due on a date"
	CmdDescList     = "Print tracked birthdays sorted by soonest"
	CmdDescValidate = "Load and validate the birthday config"
	CmdDescImport   = "Append the birthdays found in a vCard file or URL"

	FlagDebug  = "debug"
	FlagDate   = "date"
	FlagDryRun = "dry-run"
	FlagUser   = "user"
	FlagPass   = "password"

	FlagDescDebug  = "Enable debug logging"
	FlagDescDate   = "Dispatch date as YYYY-MM-DD (defaults to today in the configured timezone)"
	FlagDescDryRun = "Only print the due reminders, do not send or record them"
	FlagDescUser   = "HTTP Basic Auth user for remote vCard sources"
	FlagDescPass   = "HTTP Basic Auth password for remote vCard sources"

	MsgVersionOutput = "%s version %s (%s/%s)\n"
)

// -----------------------------------------------------------------------------
// Settings (environment variables)
// -----------------------------------------------------------------------------

const (
	EnvBotToken      = "TELEGRAM_BOT_TOKEN"
	EnvAllowedUserID = "TELEGRAM_ALLOWED_USER_ID"
	EnvAllowedChatID = "TELEGRAM_ALLOWED_CHAT_ID"
	EnvConfigPath    = "BIRTHDAY_CONFIG_PATH"
	EnvIndexPath     = "PERSON_INDEX_PATH"
	EnvStatePath     = "REMINDER_STATE_PATH"
	EnvCalendarPort  = "CALENDAR_PORT"
	EnvLanguage      = "LANGUAGE"

	DotEnvFile = ".env"

	DefaultConfigPath = "config/birthdays.toml"
	DefaultIndexPath  = "data/person_index.json"
	DefaultStatePath  = "data/reminder_state.json"
	DefaultPort       = "18080"
	DefaultLanguage   = "en"
)

// -----------------------------------------------------------------------------
// Birthday Config Defaults & Limits
// -----------------------------------------------------------------------------

const (
	DefaultTimezone      = "America/Los_Angeles"
	DefaultDailySendTime = "09:00"
	DefaultLeapDayRule   = "feb28"

	LeapRuleFeb28 = "feb28"
	LeapRuleMar1  = "mar1"

	MinBirthYear = 1900
	MaxBirthYear = 3000

	// Reference years used to validate month/day pairs without a birth year.
	ReferenceLeapYear    = 2000
	ReferenceNonLeapYear = 2001

	// RetentionDays bounds how long sent dedupe keys are remembered.
	RetentionDays = 400

	IndexFileVersion = 1

	// ConfigFieldDocument names the whole file in a ConfigError.
	ConfigFieldDocument = "document"

	ConfigHeaderComment = "# Reminder: if /add wizard offsets are left blank, default offsets are [30, 7, 1, 0].\n\n"
)

// DefaultReminderOffsets is used when the add wizard or an import leaves offsets blank.
var DefaultReminderOffsets = []int{30, 7, 1, 0}

// -----------------------------------------------------------------------------
// Data Formats & Keys
// -----------------------------------------------------------------------------

const (
	DateFormatISO     = "2006-01-02"
	TimeFormatHHMM    = "15:04"
	FormatDedupeKey   = "%s|%s|%d"
	FormatBucketKey   = "%s|%02d|%02d|%s"
	FormatVariantSeed = "%s|%s|%d|%s"
	KeySeparator      = "|"
	BucketNoYear      = "none"

	// VariantHashBytes is the number of leading digest bytes used to pick a message variant.
	VariantHashBytes = 4

	// Date layouts used for parsing vCard BDAY fields.
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatFullT     = "2006-01-02T15:04:05Z"
	DateFormatNoYearD   = "--01-02"
	DateFormatNoYearB   = "--0102"

	VCardBDAY    = "BDAY"
	VCardFN      = "FN"
	VCardN       = "N"
	FallbackName = "Unknown"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar
// -----------------------------------------------------------------------------

const (
	ICalVersion   = "2.0"
	ICalProdid    = "-//Go Birthday Bot//Reminders//EN"
	ICalCalName   = "Birthdays"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalComponent = "VALARM"
	ICalAction    = "DISPLAY"
	ICalDomain    = "gobirthdaybot"

	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDTStart     = "DTSTART"
	PropDTStamp     = "DTSTAMP"
	PropRefresh     = "REFRESH-INTERVAL"
	PropAction      = "ACTION"
	PropDescription = "DESCRIPTION"
	PropTrigger     = "TRIGGER"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"

	FormatUID           = "%s-%d@%s"
	FormatTriggerDays   = "-P%dD"
	TriggerSameDay      = "PT0S"
	FallbackSummary     = "Birthday: %s"
	FallbackSummaryAge  = "Birthday: %s (%d)"
	DefaultICalRefresh  = 1 * time.Hour
	StubVCalendar       = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"
	ExtVCF              = ".vcf"
	MaxHTTPResponseSize = 16 * 1024 * 1024
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout        = 30 * time.Second
	ShutdownTimeout    = 5 * time.Second
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 30 * time.Second
	ServerIdleTimeout  = 60 * time.Second
	PollerTimeout      = 10 * time.Second
	RetryAfterSeconds  = "10"
	AllowedMethods     = "GET, HEAD"
	SchemeHTTP         = "http"
	SchemeHTTPS        = "https"
	RouteRoot          = "/"

	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"
	FormatETag          = `"%s"`

	HTTPMsgInitializing = "Calendar initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
)

// -----------------------------------------------------------------------------
// Scheduler
// -----------------------------------------------------------------------------

const (
	// FormatCronDaily builds a "minute hour * * *" spec.
	FormatCronDaily = "%d %d * * *"
	JobDailyName    = "daily-birthday-reminders"
)

// -----------------------------------------------------------------------------
// Bot Commands
// -----------------------------------------------------------------------------

const (
	BotCmdStart  = "/start"
	BotCmdHelp   = "/help"
	BotCmdList   = "/list"
	BotCmdAdd    = "/add"
	BotCmdEdit   = "/edit"
	BotCmdCancel = "/cancel"
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrConfigNotFound   = "config file not found"
	ErrConfigRead       = "failed to read config file"
	ErrConfigParse      = "failed to parse config file"
	ErrConfigRender     = "failed to render config file"
	ErrConfigWrite      = "failed to write config file"
	ErrIndexRead        = "failed to read identity index"
	ErrIndexWrite       = "failed to write identity index"
	ErrStateRead        = "failed to read reminder state"
	ErrStateWrite       = "failed to write reminder state"
	ErrAtomicWrite      = "atomic write failed"
	ErrInvalidDate      = "invalid date"
	ErrInvalidConfig    = "invalid config"
	ErrIndexRange       = "record index out of range"
	ErrDelivery         = "reminder delivery failed"
	ErrDispatch         = "dispatch failed"
	ErrRender           = "failed to render reminder"
	ErrSettingMissing   = "missing required setting"
	ErrSettingNumber    = "setting must be an integer"
	ErrBotInit          = "failed to create telegram bot"
	ErrDestination      = "invalid notification destination"
	ErrCronSchedule     = "failed to schedule daily job"
	ErrSendTime         = "daily_send_time must be a valid 24-hour HH:MM time"
	ErrTimezone         = "unknown timezone"
	ErrLeapRule         = "unsupported leap day rule"
	ErrServerStartup    = "server startup failed"
	ErrServerShutdown   = "server shutdown failed"
	ErrPortRequired     = "server port is required"
	ErrInvalidURL       = "invalid URL structure"
	ErrProtocol         = "unsupported protocol scheme (http/https only)"
	ErrICalEncode       = "failed to encode iCalendar data"
	ErrDateParse        = "unable to parse date"
	ErrLogFile          = "failed to open log file"
	ErrCacheDir         = "could not determine user cache dir"
	ErrCreateDir        = "could not create directory"
	ErrAppFailed        = "application failed unexpectedly"
	ErrWriteResp        = "failed to write response body"
	ErrLocalesAccess    = "failed to access embedded locales"
	ErrLocaleLoad       = "failed to load locale file"
	ErrBirthdayFormat   = "birthday must use YYYY-MM-DD or MM-DD"
	ErrOffsetsFormat    = "offsets must be comma-separated non-negative integers"
	ErrOffsetsEmpty     = "provide at least one offset or leave blank for default"
	ErrDateFlag         = "date must use YYYY-MM-DD"
	ErrKeyringLookup    = "keyring lookup failed"
	ErrUnexpectedStatus = "server returned unexpected status"
	ErrNetwork          = "network error during fetch"
	ErrVCardRead        = "failed to read vCard source"
	ErrVCardDir         = "no vCard files in directory"
	ErrStateLock        = "failed to lock reminder state"
	ErrStateLocked      = "reminder state is locked by another dispatch"
)

// -----------------------------------------------------------------------------
// Log Messages
// -----------------------------------------------------------------------------

const (
	MsgAppStarting      = "Starting application"
	MsgAppStop          = "Application stopped gracefully"
	MsgLogWarning       = "Warning: %s at %s: %v\n"
	MsgDispatchStart    = "Dispatch started"
	MsgDispatchDone     = "Dispatch finished"
	MsgReminderSent     = "Reminder sent"
	MsgReminderFailed   = "Reminder delivery failed, will retry on next run"
	MsgReminderSkip     = "Reminder already sent"
	MsgStatePruned      = "Reminder state pruned"
	MsgIdentityMinted   = "Minted new person id"
	MsgConfigSaved      = "Config saved"
	MsgConfigDefault    = "Default config created"
	MsgRecordAdded      = "Birthday added"
	MsgRecordUpdated    = "Birthday updated"
	MsgSchedulerStart   = "Daily reminder job scheduled"
	MsgSchedulerStop    = "Scheduler stopping due to context cancellation"
	MsgCatchUp          = "Send time already passed today, running catch-up dispatch"
	MsgCatchUpSkip      = "Send time not reached yet, skipping catch-up"
	MsgJobFailed        = "Scheduled dispatch failed"
	MsgBotStart         = "Telegram bot polling started"
	MsgBotStop          = "Telegram bot stopped"
	MsgUnauthorized     = "Rejected message from unauthorized sender"
	MsgWizardStep       = "Wizard step"
	MsgBotHandlerFailed = "Bot handler failed"
	MsgServerListen     = "HTTP server listening"
	MsgServerStop       = "Shutting down HTTP server..."
	MsgCacheUpdated     = "Calendar cache updated"
	MsgFeedRefreshFail  = "Calendar feed refresh failed"
	MsgSkippedCard      = "Skipping malformed vCard"
	MsgVCardDirRead     = "Collected vCard files from directory"
	MsgSkippedDate      = "Skipping invalid date format"
	MsgImportDone       = "vCard import finished"
	MsgLocaleSkip       = "Skipping non-locale file"
	MsgLocaleLoaded     = "Locale loaded successfully"
	MsgTransMissing     = "Missing translation key"
	MsgKeyringFallback  = "Bot token not set, trying OS keyring"
	MsgDotEnvMissing    = "No .env file loaded"
	MsgIndexCorrupt     = "Ignoring malformed identity bucket"
	MsgStateKeyCorrupt  = "Dropping unparsable dedupe key"
	MsgGenSuccess       = "Calendar generation successful"
	MsgFetchStart       = "Initiating vCard download"
	MsgFetchBadStatus   = "Server returned error status"
	MsgDryRunHeader     = "Due reminders for %s (dry run):\n"
	MsgDryRunLine       = "- %s in %d day(s) on %s\n"
	MsgDispatchOutput   = "Sent %d reminder(s) for %s\n"
	MsgValidateOutput   = "Config OK: %d birthday(s), timezone %s, send time %s, leap rule %s\n"
	MsgImportOutput     = "Imported %d birthday(s) from %s\n"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeyPath      = "path"
	LogKeyDate      = "date"
	LogKeyPerson    = "person_id"
	LogKeyName      = "name"
	LogKeyOffset    = "offset_days"
	LogKeyCount     = "count"
	LogKeyDue       = "due"
	LogKeySent      = "sent"
	LogKeyFailed    = "failed"
	LogKeyKept      = "kept"
	LogKeyDropped   = "dropped"
	LogKeyIndex     = "index"
	LogKeyChat      = "chat_id"
	LogKeyUser      = "user_id"
	LogKeyStep      = "step"
	LogKeySpec      = "spec"
	LogKeyTimezone  = "timezone"
	LogKeyValue     = "value"
	LogKeyStats     = "stats"
	LogKeyTotal     = "total_cards"
	LogKeyFound     = "birthdays_found"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyDuration  = "duration_ms"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyCommit  = "commit"
	LogKeyBuilt   = "built"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompMain      = "main"
	CompEngine    = "engine"
	CompStore     = "store"
	CompIdentity  = "identity"
	CompLedger    = "ledger"
	CompReminder  = "reminder"
	CompBot       = "bot"
	CompScheduler = "scheduler"
	CompServer    = "server"
	CompFetcher   = "fetcher"
	CompSettings  = "settings"
	CompI18n      = "i18n"
)

// -----------------------------------------------------------------------------
// Locales & Message Variants
// -----------------------------------------------------------------------------

const (
	LocaleDir    = "locales"
	LocalePrefix = "active."
	LocaleExt    = ".json"

	// FormatVariantID builds a reminder message id from a variant group and index.
	FormatVariantID = "reminder_%s_%d"

	VariantToday       = "today"
	VariantTodayAge    = "today-age"
	VariantTomorrow    = "tomorrow"
	VariantTomorrowAge = "tomorrow-age"
	VariantInDays      = "in-days"
	VariantInDaysAge   = "in-days-age"

	MsgLocaleBadName = "Skipping locale file with empty language code"
)

// VariantCounts is the number of message variants shipped per group.
var VariantCounts = map[string]int{
	VariantToday:       12,
	VariantTodayAge:    7,
	VariantTomorrow:    10,
	VariantTomorrowAge: 5,
	VariantInDays:      12,
	VariantInDaysAge:   5,
}

// -----------------------------------------------------------------------------
// Translation Keys
// -----------------------------------------------------------------------------

const (
	// Calendar feed
	TKeyEvtSummary    = "evt_summary"
	TKeyEvtSummaryAge = "evt_summary_age"

	// Bot: general
	TKeyUnauthorized  = "bot_unauthorized"
	TKeyHelp          = "bot_help"
	TKeyNoBirthdays   = "bot_no_birthdays"
	TKeyAskYesNo      = "bot_ask_yes_no"
	TKeyCanceled      = "bot_canceled_no_changes"
	TKeyWizardCancel  = "bot_wizard_canceled"
	TKeyNoWizard      = "bot_no_wizard"
	TKeyInternalError = "bot_internal_error"
	TKeyDefaultNote   = "bot_default_note"
	TKeyYearNotSet    = "bot_year_not_set"
	TKeyOffsetDayOf   = "bot_offset_day_of"
	TKeyOffsetDays    = "bot_offset_days"

	// Bot: parse errors
	TKeyErrBirthdayFormat = "bot_err_birthday_format"
	TKeyErrInvalidDate    = "bot_err_invalid_date"
	TKeyErrOffsetsFormat  = "bot_err_offsets_format"
	TKeyErrOffsetsEmpty   = "bot_err_offsets_empty"

	// Bot: list
	TKeyListHeader    = "bot_list_header"
	TKeyListName      = "bot_list_name"
	TKeyListInDays    = "bot_list_in_days"
	TKeyListNext      = "bot_list_next"
	TKeyListTurning   = "bot_list_turning"
	TKeyListReminders = "bot_list_reminders"

	// Bot: add wizard
	TKeyAddStart       = "bot_add_start"
	TKeyAddNameEmpty   = "bot_add_name_empty"
	TKeyAddAskBirthday = "bot_add_ask_birthday"
	TKeyAddBadBirthday = "bot_add_bad_birthday"
	TKeyAddAskOffsets  = "bot_add_ask_offsets"
	TKeyAddBadOffsets  = "bot_add_bad_offsets"
	TKeyAddSummary     = "bot_add_summary"
	TKeyAddSaved       = "bot_add_saved"

	// Bot: edit wizard
	TKeyEditHeader      = "bot_edit_header"
	TKeyEditRow         = "bot_edit_row"
	TKeyEditBadNumber   = "bot_edit_bad_number"
	TKeyEditOutOfRange  = "bot_edit_out_of_range"
	TKeyEditAskName     = "bot_edit_ask_name"
	TKeyEditNameEmpty   = "bot_edit_name_empty"
	TKeyEditAskBirthday = "bot_edit_ask_birthday"
	TKeyEditBadBirthday = "bot_edit_bad_birthday"
	TKeyEditAskOffsets  = "bot_edit_ask_offsets"
	TKeyEditBadOffsets  = "bot_edit_bad_offsets"
	TKeyEditSummary     = "bot_edit_summary"
	TKeyEditSaved       = "bot_edit_saved"
	TKeyEditListChanged = "bot_edit_list_changed"
)
