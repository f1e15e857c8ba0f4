package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds the user-editable runtime configuration.
// It replaces the desktop preference store: one YAML file, loaded once at start.
type Settings struct {
	Port           string         `yaml:"port"`
	Language       string         `yaml:"language"`
	LeapDay        string         `yaml:"leap_day"`
	RefreshMinutes int            `yaml:"refresh_interval_min"`
	Storage        StorageConfig  `yaml:"storage"`
	SeedFile       string         `yaml:"seed_file"`
	Source         SourceConfig   `yaml:"source"`
	Reminder       ReminderConfig `yaml:"reminder"`
}

// StorageConfig selects where birth records live.
type StorageConfig struct {
	Backend string `yaml:"backend"` // BackendJSON or BackendSQLite
	Path    string `yaml:"path"`
	Owner   string `yaml:"owner"`
}

// SourceConfig describes an optional vCard address book to import from.
// The password is never stored here, it is read from the OS keyring.
type SourceConfig struct {
	Mode      string `yaml:"mode"` // SourceModeLocal, SourceModeWeb or empty
	LocalPath string `yaml:"local_path"`
	URL       string `yaml:"url"`
	User      string `yaml:"user"`
}

// ReminderConfig controls the VALARM attached to calendar events.
type ReminderConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Value     int    `yaml:"value"`
	Unit      string `yaml:"unit"`
	Direction string `yaml:"direction"`
}

// DefaultSettings returns the configuration used when no file exists.
func DefaultSettings() Settings {
	return Settings{
		Port:           DefaultPort,
		Language:       DefaultLanguage,
		LeapDay:        DefaultLeapDay,
		RefreshMinutes: DefaultRefreshMin,
		Storage: StorageConfig{
			Backend: DefaultBackend,
			Path:    DefaultDataFile,
			Owner:   DefaultOwner,
		},
		Reminder: ReminderConfig{
			Value:     DefaultReminderValue,
			Unit:      UnitDays,
			Direction: DirBefore,
		},
	}
}

// LoadSettings reads the YAML file at path on top of the defaults.
// A missing file is not an error.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("%s: %w", ErrSettingsRead, err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("%s: %w", ErrSettingsParse, err)
	}
	s.applyDefaults()

	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// applyDefaults fills fields that a partial file left empty.
func (s *Settings) applyDefaults() {
	d := DefaultSettings()
	if s.Port == "" {
		s.Port = d.Port
	}
	if s.Language == "" {
		s.Language = d.Language
	}
	if s.LeapDay == "" {
		s.LeapDay = d.LeapDay
	}
	if s.Storage.Backend == "" {
		s.Storage.Backend = d.Storage.Backend
	}
	if s.Storage.Path == "" {
		s.Storage.Path = DefaultDataFile
		if s.Storage.Backend == BackendSQLite {
			s.Storage.Path = DefaultSQLiteFile
		}
	}
	if s.Storage.Owner == "" {
		s.Storage.Owner = d.Storage.Owner
	}
	if s.Reminder.Unit == "" {
		s.Reminder.Unit = d.Reminder.Unit
	}
	if s.Reminder.Direction == "" {
		s.Reminder.Direction = d.Reminder.Direction
	}
}

// Validate checks enumerations and ranges.
func (s Settings) Validate() error {
	if err := ValidatePort(s.Port); err != nil {
		return err
	}
	if !slices.Contains(SupportedLanguages, s.Language) {
		return fmt.Errorf("%s: %q", ErrLanguageUnknown, s.Language)
	}
	if s.LeapDay != LeapDayMarch1 && s.LeapDay != LeapDayFeb28 {
		return fmt.Errorf("%s: %q", ErrLeapDayUnknown, s.LeapDay)
	}
	if s.RefreshMinutes < 0 {
		return errors.New(ErrIntervalNegative)
	}
	switch s.Storage.Backend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("%s: %q", ErrBackendUnsupport, s.Storage.Backend)
	}
	switch s.Source.Mode {
	case SourceModeNone, SourceModeLocal, SourceModeWeb:
	default:
		return fmt.Errorf("%s: %q", ErrModeUnsupport, s.Source.Mode)
	}
	if s.Reminder.Enabled {
		if s.Reminder.Value < 0 {
			return fmt.Errorf("%s: value %d", ErrReminderInvalid, s.Reminder.Value)
		}
		switch s.Reminder.Unit {
		case UnitDays, UnitHours, UnitMinutes:
		default:
			return fmt.Errorf("%s: unit %q", ErrReminderInvalid, s.Reminder.Unit)
		}
		if s.Reminder.Direction != DirBefore && s.Reminder.Direction != DirAfter {
			return fmt.Errorf("%s: direction %q", ErrReminderInvalid, s.Reminder.Direction)
		}
	}
	return nil
}

// ValidatePort checks that port is a number in the TCP range.
func ValidatePort(port string) error {
	if port == "" {
		return errors.New(ErrPortRequired)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return errors.New(ErrPortNumber)
	}
	if n < MinPort || n > MaxPort {
		return errors.New(ErrPortRange)
	}
	return nil
}

// RefreshInterval returns the worker period, falling back to the default.
func (s Settings) RefreshInterval() time.Duration {
	val := s.RefreshMinutes
	if val <= 0 {
		val = DefaultRefreshMin
	}
	return time.Duration(val) * time.Minute
}

// ReminderTrigger converts the reminder into an ISO8601 duration ("-P1D", "PT2H").
// It returns an empty string when reminders are disabled.
func (s Settings) ReminderTrigger() string {
	if !s.Reminder.Enabled {
		return ""
	}

	sign := ISOPeriodPrefix
	if s.Reminder.Direction == DirBefore {
		sign = ISONegativePrefix
	}

	switch s.Reminder.Unit {
	case UnitHours:
		return fmt.Sprintf("%s%s%d%s", sign, ISOTimePrefix, s.Reminder.Value, ISOHour)
	case UnitMinutes:
		return fmt.Sprintf("%s%s%d%s", sign, ISOTimePrefix, s.Reminder.Value, ISOMinute)
	default:
		return fmt.Sprintf("%s%d%s", sign, s.Reminder.Value, ISODay)
	}
}
