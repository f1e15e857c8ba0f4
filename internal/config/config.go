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

// UserAgent identifies the HTTP client.
var UserAgent = "Go-Birthday/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Go Birthday"
	AppID             = "com.github.tartampluch.go-birthday"
	KeyringService    = "com.github.tartampluch.go-birthday"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
	SettingsFileName  = "settings.yaml"
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
	// Used for logs and the record file.
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagVersion      = "version"
	FlagDebug        = "debug"
	FlagConfig       = "config"
	FlagSetPassword  = "set-password"
	FlagDescVersion  = "Show application version and exit"
	FlagDescDebug    = "Enable debug logging to stdout"
	FlagDescConfig   = "Path to the YAML settings file"
	FlagDescSetPass  = "Read the address book password from stdin, store it in the OS keyring and exit"
	MsgVersionOutput = "%s version %s (%s/%s)\n"
	MsgPasswordSaved = "Password stored in the keyring for user %q\n"
)

// -----------------------------------------------------------------------------
// Settings Keys & Enumerations
// -----------------------------------------------------------------------------

const (
	SourceModeNone  = ""
	SourceModeWeb   = "web"
	SourceModeLocal = "local"

	BackendJSON   = "json"
	BackendSQLite = "sqlite"

	LeapDayMarch1 = "mar1"
	LeapDayFeb28  = "feb28"

	UnitDays    = "d"
	UnitHours   = "h"
	UnitMinutes = "m"
	DirBefore   = "before"
	DirAfter    = "after"
)

// SupportedLanguages defines the list of available presentation languages (ISO 639-1).
var SupportedLanguages = []string{"en", "ru"}

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultPort          = "18080"
	DefaultRefreshMin    = 60
	DefaultLanguage      = "en"
	DefaultBackend       = BackendJSON
	DefaultDataFile      = "birthdays.json"
	DefaultSQLiteFile    = "birthdays.db"
	DefaultOwner         = "local"
	DefaultLeapDay       = LeapDayMarch1
	DefaultReminderValue = 1
	UIDSalt              = "go-birthday-v1-" // Salt for deterministic UID generation
	DisabledInterval     = 0

	// DayCheckInterval is how often the worker looks for a local date change.
	DayCheckInterval = 1 * time.Minute

	// Refresh reasons, logged with each refresh.
	ReasonStartup  = "startup"
	ReasonTicker   = "ticker"
	ReasonDay      = "day_changed"
	ReasonMutation = "mutation"

	// SeedIDPrefix marks records owned by the seed file.
	SeedIDPrefix = "seed_"
	SourceFamily = "family"
	SourceImport = "import"
)

// ISO8601 Duration Components for Reminders
const (
	ISOPeriodPrefix   = "P"
	ISONegativePrefix = "-P"
	ISOTimePrefix     = "T"
	ISODay            = "D"
	ISOHour           = "H"
	ISOMinute         = "M"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	// iCal Properties
	ICalVersion   = "2.0"
	ICalProdid    = "-//Go Birthday//Tracker//EN"
	ICalCalName   = "Birthdays"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalComponent = "VALARM"
	ICalAction    = "DISPLAY"
	ICalDomain    = "gobirthday"

	// iCal/vCard Fields
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

	VCardBDAY = "BDAY"
	VCardFN   = "FN"
	VCardNote = "NOTE"

	DefaultICalRefresh = 1 * time.Hour
)

// -----------------------------------------------------------------------------
// Data Formats, Limits & File Extensions
// -----------------------------------------------------------------------------

const (
	// Date layouts accepted for a date of birth. The first one is canonical.
	DateFormatFullDash  = "2006-01-02"
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatFullT     = "2006-01-02T15:04:05Z"
	DateFormatNoYearD   = "--01-02"
	DateFormatNoYearB   = "--0102"

	// Limits
	MinPort         = 1
	MaxPort         = 65535
	MaxNameLength   = 200
	MaxNotesLength  = 2000
	MaxRequestBytes = 64 * 1024

	// UID Generation
	UIDHashLength   = 16
	FormatHashInput = "%s|%s|%s"
	FormatUID       = "%s-%d@%s"

	// Record keys
	FormatDedupeKey = "%s_%s_%s"
	FormatImportID  = "%s_%s"
	FormatSeedSig   = "%s|%s|%s|%s|%s"
	SeedSigJoin     = "~"

	// File Extensions
	ExtVCF = ".vcf"
	ExtTmp = ".tmp"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	RetryAfterSeconds   = "10"
	AllowedMethods      = "GET, HEAD"
	MaxHTTPResponseSize = 256 * 1024 * 1024 // 256MB
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	AddrSeparator       = ":"

	RouteCalendar  = "/calendar.ics"
	RouteBirthdays = "/api/birthdays"
	RouteBirthday  = "/api/birthdays/{id}"
	RouteMetrics   = "/metrics"
	RouteHealth    = "/healthz"
	RouteUnmatched = "unmatched"
	URLParamID     = "id"
	QueryLang      = "lang"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
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
	HeaderAcceptLanguage  = "Accept-Language"
	HeaderLocation        = "Location"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeJSON            = "application/json; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"
	CacheControlNoStore = "no-store"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrLocalPathEmpty   = "configuration error: local path is empty"
	ErrWebURLEmpty      = "configuration error: web URL is empty"
	ErrFetcherMissing   = "internal error: network fetcher is not initialized"
	ErrModeUnsupport    = "configuration error: unsupported source mode"
	ErrBackendUnsupport = "configuration error: unsupported storage backend"
	ErrLeapDayUnknown   = "configuration error: unknown leap day policy"
	ErrLanguageUnknown  = "configuration error: unsupported language"
	ErrReminderInvalid  = "configuration error: invalid reminder"
	ErrIntervalNegative = "configuration error: refresh interval must not be negative"
	ErrSettingsRead     = "failed to read settings file"
	ErrSettingsParse    = "failed to parse settings file"
	ErrServerStartup    = "server startup failed"
	ErrServerShutdown   = "server shutdown failed"
	ErrPortRequired     = "server port is required"
	ErrPortNumber       = "server port must be a number"
	ErrPortRange        = "server port must be between 1 and 65535"
	ErrInvalidURL       = "invalid URL structure"
	ErrProtocol         = "unsupported protocol scheme (http/https only)"
	ErrVCardParse       = "failed to parse vCard stream"
	ErrICalEncode       = "failed to encode iCalendar data"
	ErrMalformedDate    = "malformed date of birth"
	ErrFutureDate       = "date of birth is in the future"
	ErrLogFile          = "failed to open log file"
	ErrCacheDir         = "could not determine user cache dir"
	ErrConfigDir        = "could not determine user config dir"
	ErrCreateDir        = "could not create app directory"
	ErrAppFailed        = "application failed unexpectedly"
	ErrWriteResp        = "failed to write response body"
	ErrLocalesAccess    = "failed to access embedded locales"
	ErrLocaleLoad       = "failed to load locale file"
	ErrNotFound         = "birthday not found"
	ErrInvalidRecord    = "invalid birthday record"
	ErrNameRequired     = "name is required"
	ErrNameTooLong      = "name is too long"
	ErrNotesTooLong     = "notes are too long"
	ErrDuplicateID      = "birthday id already exists"
	ErrStoreRead        = "failed to read birthdays"
	ErrStoreWrite       = "failed to write birthdays"
	ErrStoreOpen        = "failed to open birthday store"
	ErrStoreSchema      = "failed to prepare birthday schema"
	ErrOwnerRequired    = "store owner is required"
	ErrSeedRead         = "failed to read seed file"
	ErrSeedSync         = "failed to synchronize seed birthdays"
	ErrMerge            = "failed to merge birthdays"
	ErrImport           = "failed to import birthdays"
	ErrPasswordRead     = "failed to read password from stdin"
	ErrPasswordStore    = "failed to store password in keyring"
	ErrUserRequired     = "settings error: source user is required to store a password"
	ErrDecodeBody       = "failed to decode request body"
	ErrRefresh          = "refresh failed"
	ErrDepMissing       = "store and presenter are required"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Calendar initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
	HTTPMsgInternalErr  = "Internal Server Error"
	HTTPMsgOK           = "ok"
)

// -----------------------------------------------------------------------------
// Fallbacks & Defaults
// -----------------------------------------------------------------------------

const (
	FallbackSummaryAge   = "Birthday: %s (%d)"
	FallbackSummaryBirth = "Birthday: %s (birth)"
	FallbackName         = "Unknown"

	// StubVCalendar is the minimal valid iCalendar object used when no events are found.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"

	FormatRecordError = "record %q (%q): %v"

	MsgSyncStarted   = "Refresh started"
	MsgSyncFailed    = "Refresh failed"
	MsgSyncDone      = "Refresh completed"
	MsgImportFailed  = "Address book import failed, keeping stored birthdays"
	MsgSeedFailed    = "Seed synchronization failed, keeping stored birthdays"
	MsgWorkerStart   = "Background worker started"
	MsgWorkerStop    = "Worker stopping due to context cancellation"
	MsgDayChanged    = "Local date changed, recomputing birthdays"
	MsgAppStop       = "Application stopped gracefully"
	MsgSkippedCard   = "Skipping malformed vCard"
	MsgSkippedDate   = "Skipping invalid date format"
	MsgSkippedNoYear = "Skipping birthday without year"
	MsgSkippedRecord = "Skipping birthday with malformed date"
	MsgFutureRecord  = "Birthday has a date of birth in the future"
	MsgGenSuccess    = "Calendar generation successful"
	MsgImported      = "Birthdays imported"
	MsgMerged        = "Birthdays merged"
	MsgSeedSkipped   = "Seed unchanged, nothing to do"
	MsgSeedSynced    = "Seed birthdays synchronized"
	MsgSeedMissing   = "No seed file found"
	MsgAppStarting   = "Starting application"
	MsgServerListen  = "HTTP server listening"
	MsgServerStop    = "Shutting down HTTP server..."
	MsgCacheUpdated  = "Calendar cache updated"
	MsgLocaleSkip    = "Skipping non-locale file"
	MsgLocaleBadName = "Skipping malformed locale filename"
	MsgLocaleLoaded  = "Locale loaded successfully"
	MsgTransMissing  = "Missing translation key"
	MsgPassFail      = "Password retrieval failed (might be empty)"
	MsgLogWarning    = "Warning: %s at %s: %v\n"
	MsgBdayToday     = "Birthday found today"
	MsgRecordAdded   = "Birthday added"
	MsgRecordUpdated = "Birthday updated"
	MsgRecordDeleted = "Birthday deleted"
	MsgSettingsNone  = "No settings file found, using defaults"
	MsgSettingsLoad  = "Settings loaded"
	MsgRequestFailed = "Request failed"
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyToday           = "countdown_today"
	TKeyTomorrow        = "countdown_tomorrow"
	TKeyInDays          = "countdown_in_days" // Requires Count
	TKeyYears           = "age_years"         // Requires Count
	TKeyTurns           = "age_turns"         // Requires Count
	TKeyAgeBirth        = "age_birth"
	TKeyDateFormat      = "format_birthday" // Requires Day, Month
	TKeyEvtSummaryAge   = "event_summary_age"   // Requires Name, Age
	TKeyEvtSummaryBirth = "event_summary_birth" // Requires Name (For age 0)
	TKeyTodayCount      = "today_count"         // Requires Count > 0
	TKeyTodayCountZero  = "today_count_zero"
	TKeyInvalidDate     = "invalid_date"

	// TKeyMonthPrefix is followed by the month number (1-12), genitive form.
	TKeyMonthPrefix = "month_"
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
	LogKeyMode      = "mode"
	LogKeyBackend   = "backend"
	LogKeyInterval  = "interval"
	LogKeyUser      = "user"
	LogKeyTotal     = "total_cards"
	LogKeyFound     = "birthdays_found"
	LogKeyToday     = "birthdays_today"
	LogKeyInvalid   = "birthdays_invalid"
	LogKeyAdded     = "added"
	LogKeySkipped   = "skipped"
	LogKeyRemoved   = "removed"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyReason    = "reason"
	LogKeyValue     = "value"
	LogKeyStats     = "stats"
	LogKeyCount     = "count"
	LogKeyID        = "id"
	LogKeyName      = "name"
	LogKeyDOB       = "date_of_birth"
	LogKeyDate      = "date"
	LogKeyDuration  = "duration_ms"
	LogKeyMethod    = "method"
	LogKeyPath      = "path"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyCommit  = "commit"
	LogKeyBuilt   = "built_at"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompApp      = "app"
	CompEngine   = "engine"
	CompFeed     = "feed"
	CompImporter = "importer"
	CompStore    = "store"
	CompServer   = "server"
	CompFetcher  = "fetcher"
	CompWorker   = "worker"
	CompMain     = "main"
	CompI18n     = "i18n"
	CompSettings = "settings"
)

// -----------------------------------------------------------------------------
// Metrics
// -----------------------------------------------------------------------------

const (
	MetricsNamespace = "gobirthday"
	MetricLabelOp    = "op"
	MetricLabelRes   = "result"
	MetricLabelRoute = "route"
	MetricResultOK   = "ok"
	MetricResultErr  = "error"

	// Store operations, used as the "op" label.
	OpList   = "list"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpMerge  = "merge"
	OpSeed   = "seed"
)
