// Package objectstore provides the S3-compatible staging destination used by
// the bulk-import path, with a filesystem-backed fallback for local runs and
// tests.
package objectstore

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/nucleus/vector-migrate/internal/endpoint"
)

const (
	defaultBucket     = "vector-staging"
	defaultBasePrefix = "migrations"
)

// Config captures the staging object-store configuration.
type Config struct {
	EndpointURL      string
	Region           string
	UseSSL           bool
	AccessKeyID      string
	SecretAccessKey  string
	Bucket           string
	BasePrefix       string
	RootPathOverride string
}

// ParseConfig builds a Config from loose parameters.
func ParseConfig(params map[string]any) *Config {
	cfg := &Config{
		EndpointURL:     firstString(params, "endpointUrl", "endpoint_url", "url"),
		Region:          firstString(params, "region"),
		UseSSL:          firstBool(params, false, "useSSL", "use_ssl"),
		AccessKeyID:     firstString(params, "accessKeyId", "access_key_id", "accessKeyID"),
		SecretAccessKey: firstString(params, "secretAccessKey", "secret_access_key", "secretKey"),
		Bucket:          firstString(params, "bucket"),
		BasePrefix:      firstString(params, "basePrefix", "base_prefix", "prefix"),
		RootPathOverride: firstString(params,
			"rootPath", "root_path", "devRoot", "dev_root"),
	}
	cfg.normalizeDefaults()
	return cfg
}

// Validate enforces required fields and basic reachability hints.
func (c *Config) Validate() *endpoint.ValidationResult {
	if c.EndpointURL == "" {
		return &endpoint.ValidationResult{
			Valid:     false,
			Message:   fmt.Sprintf("%s: endpointUrl is required", endpoint.CodeEndpointUnreachable),
			Code:      endpoint.CodeEndpointUnreachable,
			Retryable: true,
		}
	}

	if _, err := url.Parse(c.EndpointURL); err != nil {
		return &endpoint.ValidationResult{
			Valid:     false,
			Message:   fmt.Sprintf("%s: %v", endpoint.CodeEndpointUnreachable, err),
			Code:      endpoint.CodeEndpointUnreachable,
			Retryable: true,
		}
	}

	remote := strings.HasPrefix(c.EndpointURL, "http://") || strings.HasPrefix(c.EndpointURL, "https://")
	if remote && (c.AccessKeyID == "" || c.SecretAccessKey == "") {
		return &endpoint.ValidationResult{
			Valid:     false,
			Message:   fmt.Sprintf("%s: accessKeyId and secretAccessKey are required", endpoint.CodeAuthInvalid),
			Code:      endpoint.CodeAuthInvalid,
			Retryable: false,
		}
	}

	return &endpoint.ValidationResult{
		Valid:   true,
		Message: "connection parameters look valid",
	}
}

func (c *Config) normalizeDefaults() {
	if c.Bucket == "" {
		c.Bucket = defaultBucket
	}
	if c.BasePrefix == "" {
		c.BasePrefix = defaultBasePrefix
	}
	c.BasePrefix = strings.Trim(c.BasePrefix, "/")
}

func (c *Config) objectRoot() string {
	if c.RootPathOverride != "" {
		return c.RootPathOverride
	}
	if strings.HasPrefix(c.EndpointURL, "file://") {
		if u, err := url.Parse(c.EndpointURL); err == nil {
			if u.Path != "" {
				return u.Path
			}
		}
	}
	host := c.EndpointURL
	if u, err := url.Parse(c.EndpointURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return filepath.Join(os.TempDir(), "staging-"+sanitizePath(host))
}

func firstString(params map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := params[key]; ok {
			switch t := v.(type) {
			case string:
				return strings.TrimSpace(t)
			case fmt.Stringer:
				return strings.TrimSpace(t.String())
			}
		}
	}
	return ""
}

func firstBool(params map[string]any, defaultVal bool, keys ...string) bool {
	for _, key := range keys {
		if v, ok := params[key]; ok {
			switch t := v.(type) {
			case bool:
				return t
			case string:
				lowered := strings.ToLower(strings.TrimSpace(t))
				if lowered == "true" {
					return true
				}
				if lowered == "false" {
					return false
				}
			}
		}
	}
	return defaultVal
}

func sanitizePath(raw string) string {
	replacer := strings.NewReplacer(":", "_", "/", "_", "\\", "_")
	return replacer.Replace(raw)
}
