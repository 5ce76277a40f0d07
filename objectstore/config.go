package objectstore

import (
	"errors"
	"fmt"

	"github.com/kbukum/streamgate/util"
)

// Provider constants for supported backends.
const (
	ProviderS3     = "s3"
	ProviderLocal  = "local"
	ProviderMemory = "memory"
)

// Default configuration values.
const (
	DefaultProvider = ProviderS3
	DefaultRegion   = "us-east-1"
	DefaultBasePath = "./data/objects"
)

// Config holds object store configuration. Only the section matching
// Provider is consulted.
type Config struct {
	// Provider selects the backend: "s3", "local" or "memory".
	Provider string      `yaml:"provider" mapstructure:"provider"`
	S3       S3Config    `yaml:"s3" mapstructure:"s3"`
	Local    LocalConfig `yaml:"local" mapstructure:"local"`
}

// S3Config configures the S3 provider.
type S3Config struct {
	Bucket string `yaml:"bucket" mapstructure:"bucket"`
	Region string `yaml:"region" mapstructure:"region"`
	// Endpoint is a custom S3-compatible endpoint (e.g. MinIO). Setting it
	// implies path-style addressing.
	Endpoint       string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey      string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey      string `yaml:"secret_key" mapstructure:"secret_key"`
	ForcePathStyle bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
}

// LocalConfig configures the filesystem provider.
type LocalConfig struct {
	BasePath string `yaml:"base_path" mapstructure:"base_path"`
	// BaseURL prefixes object keys to form locations. Defaults to a file:// URL.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ApplyDefaults fills in zero-valued fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.S3.Region == "" {
		c.S3.Region = DefaultRegion
	}
	if c.Local.BasePath == "" {
		c.Local.BasePath = DefaultBasePath
	}
}

// Validate checks that the configuration is valid for the selected provider.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderS3:
		var errs []error
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("objectstore.s3.bucket is required"))
		}
		if c.S3.Region == "" {
			errs = append(errs, errors.New("objectstore.s3.region is required"))
		}
		if (c.S3.AccessKey == "") != (c.S3.SecretKey == "") {
			errs = append(errs, errors.New("objectstore.s3.access_key and secret_key must be set together"))
		}
		if len(errs) > 0 {
			return fmt.Errorf("objectstore: invalid s3 config: %w", errors.Join(errs...))
		}
	case ProviderLocal:
		if c.Local.BasePath == "" {
			return errors.New("objectstore.local.base_path is required")
		}
	case ProviderMemory:
	default:
		return fmt.Errorf("objectstore: unsupported provider %q", c.Provider)
	}
	return nil
}

// Target describes where objects go, for logs and the startup summary.
func (c *Config) Target() string {
	switch c.Provider {
	case ProviderS3:
		target := fmt.Sprintf("bucket=%s region=%s", c.S3.Bucket, c.S3.Region)
		if c.S3.Endpoint != "" {
			target = fmt.Sprintf("bucket=%s endpoint=%s", c.S3.Bucket, c.S3.Endpoint)
		}
		if c.S3.AccessKey != "" {
			target += " access_key=" + util.MaskSecret(c.S3.AccessKey, 4)
		}
		return target
	case ProviderLocal:
		return "path=" + c.Local.BasePath
	default:
		return c.Provider
	}
}
