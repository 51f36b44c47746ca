package config

import (
	"log/slog"
	"strconv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SCANLEDGER_"

type envBinding struct {
	key string
	set func(c *Config, v string) error
}

func str(dst func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func integer(dst func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

var envBindings = []envBinding{
	{"TIMEZONE", str(func(c *Config) *string { return &c.Timezone })},
	{"STORE_DRIVER", str(func(c *Config) *string { return &c.Store.Driver })},
	{"STORE_PATH", str(func(c *Config) *string { return &c.Store.Path })},
	{"LEGACY_PATH", str(func(c *Config) *string { return &c.Store.LegacyPath })},
	{"REMOTE_DRIVER", str(func(c *Config) *string { return &c.Remote.Driver })},
	{"REMOTE_DSN", str(func(c *Config) *string { return &c.Remote.DSN })},
	{"REMOTE_PATH", str(func(c *Config) *string { return &c.Remote.Path })},
	{"USER_ID", str(func(c *Config) *string { return &c.Remote.UserID })},
	{"IMAGES_DRIVER", str(func(c *Config) *string { return &c.Images.Driver })},
	{"IMAGES_DIR", str(func(c *Config) *string { return &c.Images.Dir })},
	{"S3_REGION", str(func(c *Config) *string { return &c.Images.S3.Region })},
	{"S3_BUCKET", str(func(c *Config) *string { return &c.Images.S3.Bucket })},
	{"S3_PREFIX", str(func(c *Config) *string { return &c.Images.S3.Prefix })},
	{"S3_ENDPOINT", str(func(c *Config) *string { return &c.Images.S3.Endpoint })},
	{"S3_ACCESS_KEY", str(func(c *Config) *string { return &c.Images.S3.AccessKey })},
	{"S3_SECRET_KEY", str(func(c *Config) *string { return &c.Images.S3.SecretKey })},
	{"SYNC_WORKERS", integer(func(c *Config) *int { return &c.Sync.Workers })},
	{"SYNC_QUEUE_SIZE", integer(func(c *Config) *int { return &c.Sync.QueueSize })},
	{"SYNC_MAX_ATTEMPTS", integer(func(c *Config) *int { return &c.Sync.MaxAttempts })},
	{"SYNC_RETRY_BASE", str(func(c *Config) *string { return &c.Sync.RetryBase })},
	{"SYNC_FETCH_LIMIT", integer(func(c *Config) *int { return &c.Sync.FetchLimit })},
	{"POINTS_PER_KG", integer(func(c *Config) *int { return &c.Carbon.PointsPerKg })},
}

// applyEnv overlays non-empty SCANLEDGER_* variables. Unparseable numbers
// are logged and skipped.
func applyEnv(c *Config, getenv func(string) string) {
	for _, b := range envBindings {
		v := getenv(EnvPrefix + b.key)
		if v == "" {
			continue
		}
		if err := b.set(c, v); err != nil {
			slog.Warn("ignoring environment override", "key", EnvPrefix+b.key, "error", err)
		}
	}
}
