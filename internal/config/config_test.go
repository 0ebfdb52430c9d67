package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chdirTemp moves the test into an empty directory so no config.yaml is found.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	t.Setenv("HOME", dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "local", cfg.OCR.Provider)
	assert.Equal(t, "pdftotext", cfg.OCR.PdfToTextPath)
	assert.Equal(t, "mistral-ocr-latest", cfg.OCR.MistralModel)
	assert.InDelta(t, 2.0, cfg.OCR.RateLimit, 0.001)
	assert.Equal(t, 3, cfg.OCR.MaxRetries)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, ".", cfg.Storage.Root)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "billscan.db", cfg.Store.DatabaseURL)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Empty(t, cfg.Providers.ExtraDir)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/bills
log:
  level: debug
  format: console
storage:
  backend: s3
  bucket: utility-bills
providers:
  extra_dir: ./providers
batch:
  concurrency: 8
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/bills", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, "utility-bills", cfg.Storage.Bucket)
	assert.Equal(t, "./providers", cfg.Providers.ExtraDir)
	assert.Equal(t, 8, cfg.Batch.Concurrency)
	// Defaults still apply for unset values
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "us-east-1", cfg.Storage.Region)
}

func TestLoadFromHomeDir(t *testing.T) {
	dir := chdirTemp(t)
	home := filepath.Join(dir, ".billscan")
	require.NoError(t, os.MkdirAll(home, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte("server:\n  port: 7070\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log:\n  level: debug\n"), 0o644))

	t.Setenv("BILLSCAN_LOG_LEVEL", "warn")
	t.Setenv("BILLSCAN_OCR_PROVIDER", "mistral")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "mistral", cfg.OCR.Provider)
}

func TestLoadEnvWithoutFile(t *testing.T) {
	chdirTemp(t)

	env := map[string]string{
		"BILLSCAN_OCR_MISTRAL_API_KEY":       "sk-test",
		"BILLSCAN_STORAGE_BUCKET":            "bills-bucket",
		"BILLSCAN_STORAGE_PREFIX":            "bills/",
		"BILLSCAN_STORAGE_ENDPOINT":          "http://localhost:9000",
		"BILLSCAN_STORAGE_ACCESS_KEY_ID":     "AKID",
		"BILLSCAN_STORAGE_SECRET_ACCESS_KEY": "secret",
		"BILLSCAN_PROVIDERS_EXTRA_DIR":       "/etc/billscan/providers",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	require.NoError(t, err)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"mistral key", cfg.OCR.MistralKey, "sk-test"},
		{"bucket", cfg.Storage.Bucket, "bills-bucket"},
		{"prefix", cfg.Storage.Prefix, "bills/"},
		{"endpoint", cfg.Storage.Endpoint, "http://localhost:9000"},
		{"access key", cfg.Storage.AccessKeyID, "AKID"},
		{"secret key", cfg.Storage.SecretAccessKey, "secret"},
		{"extra dir", cfg.Providers.ExtraDir, "/etc/billscan/providers"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.got, tt.name)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.OCR.Provider = "local"
	cfg.Storage.Backend = "local"
	cfg.Storage.Root = "."
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "billscan.db"
	cfg.Store.MaxConns = 10
	cfg.Store.MinConns = 1
	cfg.Server.Port = 8080
	cfg.Batch.Concurrency = 4
	return cfg
}

func TestValidate_DefaultsPassEveryMode(t *testing.T) {
	t.Parallel()
	for _, mode := range []string{"parse", "batch", "export", "serve"} {
		assert.NoError(t, validDefaults().Validate(mode), mode)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mode   string
		mutate func(*Config)
		want   []string
	}{
		{
			name:   "mistral without key",
			mode:   "parse",
			mutate: func(c *Config) { c.OCR.Provider = "mistral" },
			want:   []string{"ocr.mistral_api_key is required"},
		},
		{
			name:   "unknown ocr provider",
			mode:   "batch",
			mutate: func(c *Config) { c.OCR.Provider = "tesseract" },
			want:   []string{"ocr.provider must be local or mistral"},
		},
		{
			name:   "s3 without bucket",
			mode:   "parse",
			mutate: func(c *Config) { c.Storage.Backend = "s3" },
			want:   []string{"storage.bucket is required"},
		},
		{
			name:   "local without root",
			mode:   "parse",
			mutate: func(c *Config) { c.Storage.Root = "" },
			want:   []string{"storage.root is required"},
		},
		{
			name:   "batch concurrency bounds",
			mode:   "batch",
			mutate: func(c *Config) { c.Batch.Concurrency = 0 },
			want:   []string{"batch.concurrency must be between 1 and 50"},
		},
		{
			name: "store problems reported together",
			mode: "export",
			mutate: func(c *Config) {
				c.Store.Driver = "mysql"
				c.Store.DatabaseURL = ""
			},
			want: []string{"store.driver must be sqlite or postgres", "store.database_url is required"},
		},
		{
			name:   "pool bounds",
			mode:   "serve",
			mutate: func(c *Config) { c.Store.MinConns = 20 },
			want:   []string{"store.min_conns must not exceed store.max_conns"},
		},
		{
			name:   "invalid port",
			mode:   "serve",
			mutate: func(c *Config) { c.Server.Port = 0 },
			want:   []string{"server.port must be > 0"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate(tt.mode)
			require.Error(t, err)
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}

func TestValidate_ModeScopesChecks(t *testing.T) {
	t.Parallel()
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	assert.NoError(t, cfg.Validate("parse"), "parse does not need the record store")

	cfg = validDefaults()
	cfg.OCR.Provider = "tesseract"
	assert.NoError(t, cfg.Validate("serve"), "serve does not run OCR")
}

func TestValidateUnknownMode(t *testing.T) {
	t.Parallel()
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
