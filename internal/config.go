package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/flipdesk/internal/store"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
	AuthModeJWT      = "jwt"
)

// Event drivers.
const (
	EventsDriverNone     = "none"
	EventsDriverRabbitMQ = "rabbitmq"
	EventsDriverKafka    = "kafka"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Database  DatabaseConfig    `yaml:"database"`
	Worker    WorkerConfig      `yaml:"worker"`
	Search    SearchConfig      `yaml:"search"`
	Auth      AuthConfig        `yaml:"auth"`
	Import    ImportConfig      `yaml:"import"`
	Documents DocumentsConfig   `yaml:"documents"`
	Events    EventsConfig      `yaml:"events"`
	Mail      MailConfig        `yaml:"mail"`
	Redis     RedisConfig       `yaml:"redis"`
	CORS      CORSConfig        `yaml:"cors"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		&c.App, &c.Database, &c.Worker, &c.Search, &c.Auth,
		&c.Import, &c.Documents, &c.Events, &c.Mail,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	if c.Worker.Lease.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("worker: lease enabled but redis.addr is empty")
	}
	return nil
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

// DatabaseConfig selects the record store backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(store.DriverSQLite, store.DriverPostgres)),
		validation.Field(&c.DSN, validation.Required),
	)
}

// WorkerConfig controls the lead conversion worker.
type WorkerConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Interval   time.Duration `yaml:"interval"`
	RunTimeout time.Duration `yaml:"run_timeout"`
	// Pushdown filters candidates in SQL instead of scanning every lead.
	Pushdown bool        `yaml:"pushdown"`
	Lease    LeaseConfig `yaml:"lease"`
}

// Validate validates the worker configuration.
func (c *WorkerConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Interval, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.RunTimeout, validation.Min(time.Duration(0))),
	); err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	return c.Lease.Validate()
}

// LeaseConfig holds the Redis run lease used when several instances share a database.
type LeaseConfig struct {
	Enabled bool          `yaml:"enabled"`
	Key     string        `yaml:"key"`
	TTL     time.Duration `yaml:"ttl"`
}

// Validate validates the lease configuration.
func (c *LeaseConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Key, validation.Required),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Second)),
	)
}

// SearchConfig holds search paging limits.
type SearchConfig struct {
	DefaultLimit   int `yaml:"default_limit"`
	MaxLimit       int `yaml:"max_limit"`
	MinQueryLength int `yaml:"min_query_length"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultLimit, validation.Required, validation.Min(1), validation.Max(c.MaxLimit)),
		validation.Field(&c.MaxLimit, validation.Required, validation.Min(1)),
		validation.Field(&c.MinQueryLength, validation.Min(0)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": static Bearer token; Token must be non-empty.
//   - "jwt": HS256 Bearer JWT signed with JWT.Secret.
type AuthConfig struct {
	Mode  string    `yaml:"mode"`
	Token string    `yaml:"token"`
	JWT   JWTConfig `yaml:"jwt"`
}

// JWTConfig holds JWT verification parameters.
type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken, AuthModeJWT)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	if c.Mode == AuthModeJWT && c.JWT.Secret == "" {
		return fmt.Errorf("auth: mode is %q but jwt.secret is empty", AuthModeJWT)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode != AuthModeDisabled
}

// ImportConfig controls the lead import inbox.
type ImportConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	// Archive moves imported files into the processed/ subdirectory.
	Archive bool `yaml:"archive"`
}

// Validate validates the import configuration.
func (c *ImportConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// DocumentsConfig holds the contract document storage root.
type DocumentsConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the documents configuration.
func (c *DocumentsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// EventsConfig selects where domain events are published.
type EventsConfig struct {
	Driver   string   `yaml:"driver"`
	URL      string   `yaml:"url"`
	Exchange string   `yaml:"exchange"`
	Brokers  []string `yaml:"brokers"`
	Topic    string   `yaml:"topic"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = EventsDriverNone
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.In(EventsDriverNone, EventsDriverRabbitMQ, EventsDriverKafka)),
		validation.Field(&c.URL, validation.When(c.Driver == EventsDriverRabbitMQ, validation.Required)),
		validation.Field(&c.Exchange, validation.When(c.Driver == EventsDriverRabbitMQ, validation.Required)),
		validation.Field(&c.Brokers, validation.When(c.Driver == EventsDriverKafka, validation.Required)),
		validation.Field(&c.Topic, validation.When(c.Driver == EventsDriverKafka, validation.Required)),
	)
}

// MailConfig holds SMTP settings for conversion digests.
type MailConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	User     string   `yaml:"user"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// Validate validates the mail configuration.
func (c *MailConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.From, validation.Required),
		validation.Field(&c.To, validation.Required),
	)
}

// RedisConfig holds the Redis connection used for the worker lease.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CORSConfig lists origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
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
		Database: DatabaseConfig{
			Driver: store.DriverSQLite,
			DSN:    "./flipdesk.db",
		},
		Worker: WorkerConfig{
			Enabled:    true,
			Interval:   60 * time.Second,
			RunTimeout: 5 * time.Minute,
			Pushdown:   true,
			Lease: LeaseConfig{
				Key: "flipdesk:conversion-lease",
				TTL: 10 * time.Minute,
			},
		},
		Search: SearchConfig{
			DefaultLimit:   20,
			MaxLimit:       100,
			MinQueryLength: 2,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Import: ImportConfig{
			Dir: "./inbox",
		},
		Documents: DocumentsConfig{
			Path: "./documents",
		},
		Events: EventsConfig{
			Driver: EventsDriverNone,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
	}
}
