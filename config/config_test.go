package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

type testServer struct {
	Port        int    `mapstructure:"port"`
	MaxBodySize string `mapstructure:"max_body_size"`
}

type testStore struct {
	Bucket string `mapstructure:"bucket"`
	Region string `mapstructure:"region"`
}

type testConfig struct {
	ServiceConfig `mapstructure:",squash"`
	Server        testServer `mapstructure:"server"`
	Store         struct {
		S3 testStore `mapstructure:"s3"`
	} `mapstructure:"objectstore"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{}
		cfg.ApplyDefaults()
		if cfg.Name != "streamgate" {
			t.Errorf("expected default name, got %q", cfg.Name)
		}
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("expected logging defaults, got level %q", cfg.Logging.Level)
		}
	})

	t.Run("production keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	valid := func() ServiceConfig {
		c := ServiceConfig{Name: "svc", Environment: "staging"}
		c.Logging.ApplyDefaults()
		return c
	}
	tests := []struct {
		name   string
		mutate func(*ServiceConfig)
		errMsg string
	}{
		{"valid", func(*ServiceConfig) {}, ""},
		{"missing name", func(c *ServiceConfig) { c.Name = "" }, "config.name is required"},
		{"invalid environment", func(c *ServiceConfig) { c.Environment = "qa" }, "config.environment must be one of"},
		{"invalid log level", func(c *ServiceConfig) { c.Logging.Level = "loud" }, "config.logging"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected error containing %q, got %v", tc.errMsg, err)
			}
		})
	}
}

func TestLoadConfigWithYAML(t *testing.T) {
	path := writeConfig(t, `
name: streamgate
environment: staging
server:
  port: 9090
  max_body_size: 32MB
objectstore:
  s3:
    bucket: videos
`)
	var cfg testConfig
	if err := LoadConfig("streamgate", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "streamgate" {
		t.Errorf("expected name 'streamgate', got %q", cfg.Name)
	}
	if cfg.Environment != "staging" {
		t.Errorf("expected environment 'staging', got %q", cfg.Environment)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Store.S3.Bucket != "videos" {
		t.Errorf("expected bucket 'videos', got %q", cfg.Store.S3.Bucket)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("OBJECTSTORE_S3_BUCKET", "from-env")

	var cfg testConfig
	if err := LoadConfig("streamgate", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected env port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Store.S3.Bucket != "from-env" {
		t.Errorf("expected bucket from env, got %q", cfg.Store.S3.Bucket)
	}
}

func TestLoadConfigEnvAliases(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("PORT", "5000")
	t.Setenv("AWS_BUCKET_NAME", "legacy-bucket")

	var cfg testConfig
	err := LoadConfig("streamgate", &cfg,
		WithConfigFile(path),
		WithEnvAliases(map[string]string{
			"PORT":            "server.port",
			"AWS_BUCKET_NAME": "objectstore.s3.bucket",
		}),
	)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("expected alias port 5000, got %d", cfg.Server.Port)
	}
	if cfg.Store.S3.Bucket != "legacy-bucket" {
		t.Errorf("expected alias bucket, got %q", cfg.Store.S3.Bucket)
	}
}

func TestLoadConfigCanonicalEnvBeatsAlias(t *testing.T) {
	t.Setenv("PORT", "5000")
	t.Setenv("SERVER_PORT", "6000")

	var cfg testConfig
	err := LoadConfig("streamgate", &cfg,
		WithFileSystem(&mockFS{}),
		WithEnvAliases(map[string]string{"PORT": "server.port"}),
	)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("expected canonical port 6000, got %d", cfg.Server.Port)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("streamgate", &cfg,
		WithFileSystem(&mockFS{}),
		WithDefaults(map[string]interface{}{"server.max_body_size": "64MB"}),
	)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.MaxBodySize != "64MB" {
		t.Errorf("expected default max body size, got %q", cfg.Server.MaxBodySize)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg testConfig
	if err := LoadConfig("nonexistent-service", &cfg, WithConfigFile("/nonexistent/path.yml")); err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	path := writeConfig(t, "server: [unterminated\n")
	var cfg testConfig
	if err := LoadConfig("streamgate", &cfg, WithConfigFile(path)); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/streamgate/config.yml": true,
		"./.env":                      true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("streamgate", LoaderConfig{})
	if files.ConfigFile != "./cmd/streamgate/config.yml" {
		t.Errorf("expected ./cmd/streamgate/config.yml, got %q", files.ConfigFile)
	}
	if files.EnvFile != "./.env" {
		t.Errorf("expected ./.env, got %q", files.EnvFile)
	}
}

func TestResolverExplicitPathsWin(t *testing.T) {
	resolver := &Resolver{FileSystem: &mockFS{files: map[string]bool{"./config.yml": true}}}
	files := resolver.ResolveFiles("streamgate", LoaderConfig{ConfigFile: "/etc/sg.yml", EnvFile: "/etc/sg.env"})
	if files.ConfigFile != "/etc/sg.yml" || files.EnvFile != "/etc/sg.env" {
		t.Errorf("explicit paths should be kept, got %+v", files)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestGenerateEnvKeyVariants(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"PORT", "port"},
		{"SERVER_PORT", "server.port"},
		{"OBJECTSTORE_S3_BUCKET", "objectstore.s3.bucket"},
		{"OBJECTSTORE_S3_ACCESS_KEY", "objectstore.s3.access_key"},
		{"SERVER_MAX_BODY_SIZE", "server.max_body_size"},
		{"UPLOAD_ABORT_ON_COMPLETE_FAILURE", "upload.abort_on_complete_failure"},
	}
	for _, tc := range tests {
		t.Run(tc.env, func(t *testing.T) {
			got := generateEnvKeyVariants(tc.env)
			if !slices.Contains(got, tc.want) {
				t.Errorf("expected %q among variants %v", tc.want, got)
			}
		})
	}
}

func TestWithEnvAliasesMerges(t *testing.T) {
	var lc LoaderConfig
	WithEnvAliases(map[string]string{"A": "a"})(&lc)
	WithEnvAliases(map[string]string{"B": "b"})(&lc)
	if len(lc.EnvAliases) != 2 {
		t.Errorf("expected 2 aliases, got %v", lc.EnvAliases)
	}
}
