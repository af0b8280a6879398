package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/orrery/internal/ai"
	"github.com/starford/orrery/internal/noteservice"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverVault  = "vault"
	DriverMemory = "memory"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Notes   NotesConfig       `yaml:"notes"`
	AI      AIConfig          `yaml:"ai"`
	Layout  LayoutConfig      `yaml:"layout"`
	SSE     SSEConfig         `yaml:"sse"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Notes.Validate(); err != nil {
		return fmt.Errorf("notes: %w", err)
	}
	if err := c.AI.Validate(); err != nil {
		return fmt.Errorf("ai: %w", err)
	}
	if err := c.Layout.Validate(); err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	return c.Auth.Validate()
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
	Port int `yaml:"port"`
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

// StorageConfig selects the persistence backend for notes.
//
// The sqlite driver keeps everything in one database file. The vault driver
// writes one Markdown file per note under VaultPath and, with Watch set,
// picks up edits made by other programs. The memory driver keeps nothing.
type StorageConfig struct {
	Driver     string `yaml:"driver"`
	SQLitePath string `yaml:"sqlite_path"`
	VaultPath  string `yaml:"vault_path"`
	Watch      bool   `yaml:"watch"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(DriverSQLite, DriverVault, DriverMemory)),
		validation.Field(&c.SQLitePath, validation.When(c.Driver == DriverSQLite, validation.Required)),
		validation.Field(&c.VaultPath, validation.When(c.Driver == DriverVault, validation.Required)),
	)
}

// NotesConfig tunes the note editing pipeline.
type NotesConfig struct {
	// SaveDelay is the quiet period after the last draft edit before it is persisted.
	SaveDelay time.Duration `yaml:"save_delay"`
}

// Validate validates the notes configuration.
func (c *NotesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SaveDelay, validation.Min(10*time.Millisecond), validation.Max(time.Minute)),
	)
}

// AIConfig configures the text-generation endpoint used by analysis.
type AIConfig struct {
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	Temperature       float32       `yaml:"temperature"`
	MaxTokens         int           `yaml:"max_tokens"`
	Timeout           time.Duration `yaml:"timeout"`
	StageTimeout      time.Duration `yaml:"stage_timeout"`
	Retries           int           `yaml:"retries"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// Validate validates the AI configuration.
func (c *AIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Temperature, validation.Min(float32(0)), validation.Max(float32(2))),
		validation.Field(&c.MaxTokens, validation.Min(0)),
		validation.Field(&c.Retries, validation.Min(0), validation.Max(10)),
		validation.Field(&c.RequestsPerSecond, validation.Min(float64(0))),
	)
}

// Client returns the generator settings derived from c.
func (c *AIConfig) Client() ai.Config {
	return ai.Config{
		BaseURL:           c.BaseURL,
		APIKey:            c.APIKey,
		Model:             c.Model,
		Temperature:       c.Temperature,
		MaxTokens:         c.MaxTokens,
		Timeout:           c.Timeout,
		Retries:           c.Retries,
		RequestsPerSecond: c.RequestsPerSecond,
	}
}

// LayoutConfig is the default canvas used when a layout request omits its size.
type LayoutConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Validate validates the layout configuration.
func (c *LayoutConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Width, validation.Required, validation.Min(float64(100))),
		validation.Field(&c.Height, validation.Required, validation.Min(float64(100))),
	)
}

// SSEConfig configures the event stream.
type SSEConfig struct {
	GraphThrottle time.Duration `yaml:"graph_throttle"`
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			Driver:     DriverSQLite,
			SQLitePath: "./orrery.db",
			VaultPath:  "./vault",
			Watch:      true,
		},
		Notes: NotesConfig{
			SaveDelay: noteservice.DefaultDebounce,
		},
		AI: AIConfig{
			BaseURL:           ai.DefaultBaseURL,
			Model:             ai.DefaultModel,
			Temperature:       ai.DefaultTemperature,
			MaxTokens:         ai.DefaultMaxTokens,
			Timeout:           60 * time.Second,
			StageTimeout:      90 * time.Second,
			Retries:           2,
			RequestsPerSecond: 2,
		},
		Layout: LayoutConfig{
			Width:  1200,
			Height: 800,
		},
		SSE: SSEConfig{
			GraphThrottle: 2 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
