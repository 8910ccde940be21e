// Package config provides configuration loading for the migration tool.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the full migration configuration, loaded from environment
// variables with optional overrides from a YAML run manifest and CLI flags.
type Config struct {
	// Source (Weaviate) settings
	WeaviateEndpoint string
	WeaviateAPIKey   string

	// Target (Zilliz/Milvus) settings
	ZillizURI      string
	ZillizToken    string
	ZillizDatabase string

	// Migration settings
	BatchSize  int
	MaxRetries int
	RetryDelay float64 // seconds
	Backoff    float64

	// Index settings
	IndexType      string
	MetricType     string
	IndexM         int
	EfConstruction int
	EnableSparse   bool

	// Bulk path (object storage) settings
	BulkBucket      string
	BulkEndpointURL string
	BulkAccessKey   string
	BulkSecretKey   string
	BulkRemotePath  string
	BulkSegmentSize int64
	BulkFileType    string // "parquet" or "jsonl"

	// Postgres metadata patch settings
	PGHost     string
	PGPort     int
	PGDatabase string
	PGUsername string
	PGPassword string

	// Output locations
	ReportsDir string
	LogsDir    string
}

// Load reads configuration from the environment.
func Load() *Config {
	return &Config{
		WeaviateEndpoint: getEnv("WEAVIATE_ENDPOINT", "http://localhost:8080"),
		WeaviateAPIKey:   getEnv("WEAVIATE_API_KEY", ""),

		ZillizURI:      getEnv("ZILLIZ_CLOUD_URI", ""),
		ZillizToken:    getEnv("ZILLIZ_CLOUD_API_KEY", ""),
		ZillizDatabase: getEnv("ZILLIZ_CLOUD_DATABASE", "default"),

		BatchSize:  getEnvInt("MIGRATION_BATCH_SIZE", 300),
		MaxRetries: getEnvInt("MIGRATION_MAX_RETRIES", 3),
		RetryDelay: getEnvFloat("MIGRATION_RETRY_DELAY", 1.0),
		Backoff:    getEnvFloat("MIGRATION_RETRY_BACKOFF", 2.0),

		IndexType:      getEnv("ZILLIZ_INDEX_TYPE", "HNSW"),
		MetricType:     getEnv("ZILLIZ_METRIC_TYPE", "IP"),
		IndexM:         getEnvInt("ZILLIZ_INDEX_M", 16),
		EfConstruction: getEnvInt("ZILLIZ_INDEX_EF_CONSTRUCTION", 64),
		EnableSparse:   getEnvBool("ZILLIZ_ENABLE_SPARSE", false),

		BulkBucket:      getEnv("BULK_BUCKET_NAME", ""),
		BulkEndpointURL: getEnv("BULK_ENDPOINT_URL", ""),
		BulkAccessKey:   getEnv("BULK_ACCESS_KEY_ID", ""),
		BulkSecretKey:   getEnv("BULK_SECRET_ACCESS_KEY", ""),
		BulkRemotePath:  getEnv("BULK_REMOTE_PATH", "bulk_data"),
		BulkSegmentSize: getEnvInt64("BULK_SEGMENT_SIZE", 512*1024*1024),
		BulkFileType:    getEnv("BULK_FILE_TYPE", "parquet"),

		PGHost:     getEnv("PG_HOST", ""),
		PGPort:     getEnvInt("PG_PORT", 5432),
		PGDatabase: getEnv("PG_DATABASE", ""),
		PGUsername: getEnv("PG_USERNAME", ""),
		PGPassword: getEnv("PG_PASSWORD", ""),

		ReportsDir: getEnv("MIGRATION_REPORTS_DIR", "reports"),
		LogsDir:    getEnv("MIGRATION_LOGS_DIR", "logs"),
	}
}

// Validate enforces the settings without which no collection can be
// attempted. Bulk and Postgres settings are checked by their own commands.
func (c *Config) Validate() error {
	var missing []string
	if c.ZillizURI == "" {
		missing = append(missing, "ZILLIZ_CLOUD_URI")
	}
	if c.ZillizToken == "" {
		missing = append(missing, "ZILLIZ_CLOUD_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	return nil
}

// ValidateBulk enforces the additional settings the bulk-import path needs.
func (c *Config) ValidateBulk() error {
	var missing []string
	if c.BulkBucket == "" {
		missing = append(missing, "BULK_BUCKET_NAME")
	}
	if c.BulkEndpointURL == "" {
		missing = append(missing, "BULK_ENDPOINT_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required bulk configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidatePG enforces the settings the Postgres patch step needs.
func (c *Config) ValidatePG() error {
	var missing []string
	for _, kv := range []struct{ name, val string }{
		{"PG_HOST", c.PGHost},
		{"PG_DATABASE", c.PGDatabase},
		{"PG_USERNAME", c.PGUsername},
		{"PG_PASSWORD", c.PGPassword},
	} {
		if kv.val == "" {
			missing = append(missing, kv.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required PostgreSQL configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Manifest is an optional YAML run manifest. Values set here win over the
// environment; CLI flags win over both.
type Manifest struct {
	Collections []string `yaml:"collections"`
	BatchSize   int      `yaml:"batchSize"`
	Limit       int64    `yaml:"limit"`
	Index       struct {
		Type           string `yaml:"type"`
		Metric         string `yaml:"metric"`
		M              int    `yaml:"m"`
		EfConstruction int    `yaml:"efConstruction"`
	} `yaml:"index"`
}

// LoadManifest parses a YAML run manifest from disk.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Apply copies the manifest's set values onto the config.
func (m *Manifest) Apply(cfg *Config) {
	if m.BatchSize > 0 {
		cfg.BatchSize = m.BatchSize
	}
	if m.Index.Type != "" {
		cfg.IndexType = m.Index.Type
	}
	if m.Index.Metric != "" {
		cfg.MetricType = m.Index.Metric
	}
	if m.Index.M > 0 {
		cfg.IndexM = m.Index.M
	}
	if m.Index.EfConstruction > 0 {
		cfg.EfConstruction = m.Index.EfConstruction
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return defaultVal
}
