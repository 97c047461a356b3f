// Package store loads, validates and persists the birthday config file.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/tartampluch/go-birthday-bot/internal/atomicfile"
	"github.com/tartampluch/go-birthday-bot/internal/config"
	"github.com/tartampluch/go-birthday-bot/internal/engine"
)

// fileConfig mirrors the TOML layout. Field order drives render order.
type fileConfig struct {
	Timezone      string       `toml:"timezone"`
	DailySendTime string       `toml:"daily_send_time"`
	LeapDayRule   string       `toml:"leap_day_rule"`
	Birthdays     []fileRecord `toml:"birthdays"`
}

type fileRecord struct {
	Name            string `toml:"name"`
	Month           int    `toml:"month"`
	Day             int    `toml:"day"`
	Year            *int   `toml:"year,omitempty"`
	ReminderOffsets []int  `toml:"reminder_offsets"`
}

// ConfigStore owns one birthday config file. Mutations are serialized so
// concurrent Append/Update calls never lose each other's writes.
type ConfigStore struct {
	path string
	mu   sync.Mutex
}

// NewConfigStore returns a store for the TOML file at path.
func NewConfigStore(path string) *ConfigStore {
	return &ConfigStore{path: path}
}

// Path returns the backing file location.
func (s *ConfigStore) Path() string {
	return s.path
}

// Load parses and validates the config file.
// It returns an error wrapping ErrNotFound when the file is absent.
func (s *ConfigStore) Load() (engine.AppConfig, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return engine.AppConfig{}, fmt.Errorf("%w: %s", ErrNotFound, s.path)
	}
	if err != nil {
		return engine.AppConfig{}, fmt.Errorf("%s: %w", config.ErrConfigRead, err)
	}
	return Parse(data)
}

// Parse decodes TOML config data and validates it. A missing
// leap_day_rule defaults to feb28.
func Parse(data []byte) (engine.AppConfig, error) {
	var raw fileConfig
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return engine.AppConfig{}, parseError(err)
	}
	if !meta.IsDefined("leap_day_rule") {
		raw.LeapDayRule = config.DefaultLeapDayRule
	}

	cfg := engine.AppConfig{
		Timezone:      raw.Timezone,
		DailySendTime: raw.DailySendTime,
		LeapDayRule:   engine.LeapDayRule(raw.LeapDayRule),
		Birthdays:     make([]engine.Record, 0, len(raw.Birthdays)),
	}
	for _, r := range raw.Birthdays {
		rec := engine.Record{Name: r.Name, Month: r.Month, Day: r.Day, Offsets: r.ReminderOffsets}
		if r.Year != nil {
			rec.Year = *r.Year
			if rec.Year == 0 {
				// An explicit zero is not "unknown"; let validation reject it.
				rec.Year = -1
			}
		}
		cfg.Birthdays = append(cfg.Birthdays, rec)
	}
	return Validate(cfg)
}

// parseError reports a TOML syntax or type error as a ConfigError naming
// the last key the decoder reached.
func parseError(err error) *engine.ConfigError {
	field := config.ConfigFieldDocument
	var perr toml.ParseError
	if errors.As(err, &perr) && perr.LastKey != "" {
		field = perr.LastKey
	}
	return &engine.ConfigError{
		Field:   field,
		Record:  -1,
		Message: fmt.Sprintf("%s: %v", config.ErrConfigParse, err),
		Err:     err,
	}
}

// Render validates cfg and serializes it deterministically.
func Render(cfg engine.AppConfig) ([]byte, error) {
	valid, err := Validate(cfg)
	if err != nil {
		return nil, err
	}

	raw := fileConfig{
		Timezone:      valid.Timezone,
		DailySendTime: valid.DailySendTime,
		LeapDayRule:   string(valid.LeapDayRule),
		Birthdays:     make([]fileRecord, 0, len(valid.Birthdays)),
	}
	for _, rec := range valid.Birthdays {
		r := fileRecord{Name: rec.Name, Month: rec.Month, Day: rec.Day, ReminderOffsets: rec.Offsets}
		if rec.HasYear() {
			year := rec.Year
			r.Year = &year
		}
		raw.Birthdays = append(raw.Birthdays, r)
	}

	var buf bytes.Buffer
	buf.WriteString(config.ConfigHeaderComment)
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(raw); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrConfigRender, err)
	}
	return buf.Bytes(), nil
}

// Save validates cfg and atomically replaces the config file.
func (s *ConfigStore) Save(cfg engine.AppConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(cfg)
}

func (s *ConfigStore) save(cfg engine.AppConfig) error {
	data, err := Render(cfg)
	if err != nil {
		return err
	}
	if err := atomicfile.WriteFile(s.path, data, config.FilePermUserRW); err != nil {
		return fmt.Errorf("%s: %w", config.ErrConfigWrite, err)
	}
	slog.Debug(config.MsgConfigSaved,
		config.LogKeyComponent, config.CompStore,
		config.LogKeyPath, s.path,
		config.LogKeyCount, len(cfg.Birthdays),
	)
	return nil
}

// Append loads the config, adds rec at the end and saves it.
func (s *ConfigStore) Append(rec engine.Record) (engine.AppConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.Load()
	if err != nil {
		return engine.AppConfig{}, err
	}
	cfg.Birthdays = append(slices.Clip(cfg.Birthdays), rec)
	if err := s.save(cfg); err != nil {
		return engine.AppConfig{}, err
	}

	slog.Info(config.MsgRecordAdded,
		config.LogKeyComponent, config.CompStore,
		config.LogKeyIndex, len(cfg.Birthdays)-1,
	)
	return Validate(cfg)
}

// Update replaces the record at index. An out-of-range index yields an
// *IndexError and leaves the file untouched.
func (s *ConfigStore) Update(index int, rec engine.Record) (engine.AppConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.Load()
	if err != nil {
		return engine.AppConfig{}, err
	}
	if index < 0 || index >= len(cfg.Birthdays) {
		return engine.AppConfig{}, &IndexError{Index: index, Len: len(cfg.Birthdays)}
	}

	cfg.Birthdays = slices.Clone(cfg.Birthdays)
	cfg.Birthdays[index] = rec
	if err := s.save(cfg); err != nil {
		return engine.AppConfig{}, err
	}

	slog.Info(config.MsgRecordUpdated,
		config.LogKeyComponent, config.CompStore,
		config.LogKeyIndex, index,
	)
	return Validate(cfg)
}

// EnsureDefault writes an empty config with default settings when the file
// does not exist yet. It reports whether a file was created.
func (s *ConfigStore) EnsureDefault() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("%s: %w", config.ErrConfigRead, err)
	}

	if err := s.save(Default()); err != nil {
		return false, err
	}
	slog.Info(config.MsgConfigDefault,
		config.LogKeyComponent, config.CompStore,
		config.LogKeyPath, s.path,
	)
	return true, nil
}

// Default returns the config written on first run.
func Default() engine.AppConfig {
	return engine.AppConfig{
		Timezone:      config.DefaultTimezone,
		DailySendTime: config.DefaultDailySendTime,
		LeapDayRule:   engine.LeapDayRule(config.DefaultLeapDayRule),
	}
}
