package app

import (
	"fmt"

	"github.com/kbukum/streamgate/config"
	"github.com/kbukum/streamgate/database"
	"github.com/kbukum/streamgate/objectstore"
	"github.com/kbukum/streamgate/observability"
	"github.com/kbukum/streamgate/server"
	"github.com/kbukum/streamgate/upload"
	"github.com/kbukum/streamgate/util"
)

// ServiceName is used for config file lookup and telemetry.
const ServiceName = "streamgate"

// DefaultWindowSize is the stream window as a size string.
const DefaultWindowSize = "20MB"

// EnvAliases maps environment variables of existing deployments onto
// config keys.
var EnvAliases = map[string]string{
	"PORT":                  "server.port",
	"AWS_REGION":            "objectstore.s3.region",
	"AWS_BUCKET_NAME":       "objectstore.s3.bucket",
	"AWS_ACCESS_KEY_ID":     "objectstore.s3.access_key",
	"AWS_SECRET_ACCESS_KEY": "objectstore.s3.secret_key",
	"DATABASE_URL":          "database.dsn",
}

// StreamConfig configures the streaming gateway.
type StreamConfig struct {
	// WindowSize bounds every 206 response, e.g. "20MB".
	WindowSize string `yaml:"window_size" mapstructure:"window_size"`
}

// ApplyDefaults sets the default window.
func (c *StreamConfig) ApplyDefaults() {
	if c.WindowSize == "" {
		c.WindowSize = DefaultWindowSize
	}
}

// Validate checks the window parses to a positive size.
func (c *StreamConfig) Validate() error {
	if c.Bytes() <= 0 {
		return fmt.Errorf("stream.window_size %q is not a valid size", c.WindowSize)
	}
	return nil
}

// Bytes returns the window in bytes, or -1 if it does not parse.
func (c *StreamConfig) Bytes() int64 {
	return util.ParseSize(c.WindowSize, -1)
}

// Config is the full service configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	ObjectStore   objectstore.Config   `yaml:"objectstore" mapstructure:"objectstore"`
	Database      database.Config      `yaml:"database" mapstructure:"database"`
	Upload        upload.Options       `yaml:"upload" mapstructure:"upload"`
	Stream        StreamConfig         `yaml:"stream" mapstructure:"stream"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults applies defaults to every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.ObjectStore.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Stream.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate validates every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.ObjectStore.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Stream.Validate(); err != nil {
		return err
	}
	return c.Observability.Validate()
}

// LoadConfig reads config.yml, .env and the environment into a Config.
// Empty paths fall back to the standard search locations.
func LoadConfig(configFile, envFile string) (*Config, error) {
	opts := []config.LoaderOption{
		config.WithEnvAliases(EnvAliases),
		config.WithDefaults(map[string]interface{}{
			"database.auto_migrate": true,
		}),
	}
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}

	var cfg Config
	if err := config.LoadConfig(ServiceName, &cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}
