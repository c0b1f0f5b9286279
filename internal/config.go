package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/wiki/internal/index"
	"github.com/starford/wiki/internal/storage"
)

// MaxScanConcurrency caps scan.concurrency.
const MaxScanConcurrency = 64

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Data     DataConfig        `yaml:"data"`
	Scan     ScanConfig        `yaml:"scan"`
	Frontend FrontendConfig    `yaml:"frontend"`
	Events   EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Data.Validate(); err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if err := c.Scan.Validate(); err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	return c.Events.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port       int    `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DataConfig locates the page files.
type DataConfig struct {
	Dir       string `yaml:"dir"`
	Extension string `yaml:"extension"`
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	if c.Extension == "" {
		c.Extension = storage.DefaultExtension
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Extension, validation.Length(2, 16)),
	)
}

// ScanConfig controls how tag queries read the store.
//
// Concurrency is the number of pages read at once during a tag scan.
// 1 (the default) reads strictly one page after another.
type ScanConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// Validate validates the scan configuration.
func (c *ScanConfig) Validate() error {
	if c.Concurrency == 0 {
		c.Concurrency = index.DefaultConcurrency
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Concurrency, validation.Min(1), validation.Max(MaxScanConcurrency)),
	)
}

// FrontendConfig points at the built single-page frontend.
type FrontendConfig struct {
	Dir string `yaml:"dir"`
}

// EventsConfig holds live event settings.
type EventsConfig struct {
	TagsThrottle time.Duration `yaml:"tags_throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	if c.TagsThrottle < 0 {
		return fmt.Errorf("events: tags_throttle must not be negative")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:       4600,
				CORSOrigin: "*",
			},
		},
		Data: DataConfig{
			Dir:       "data",
			Extension: storage.DefaultExtension,
		},
		Scan: ScanConfig{
			Concurrency: index.DefaultConcurrency,
		},
		Frontend: FrontendConfig{
			Dir: "client/build",
		},
		Events: EventsConfig{
			TagsThrottle: 2 * time.Second,
		},
	}
}
