package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "INR", cfg.Payments.Currency)
	assert.Equal(t, int64(5*1024*1024), cfg.Results.MaxUploadBytes)
	assert.Equal(t, 5*time.Second, cfg.Notifications.RetryDelay)
	assert.Equal(t, 5, cfg.Notifications.MaxAttempts)
	assert.Equal(t, 128, cfg.Notifications.QueueSize)
	assert.True(t, cfg.Database.RunMigrations)
	assert.Equal(t, "/uploads", cfg.Uploads.BaseURL)
	assert.Equal(t, "college-portal", cfg.Redis.KeyPrefix)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("PAYMENT_CURRENCY", "usd")
	v.Set("NOTIFY_RETRY_DELAY", "not-a-duration")
	v.Set("UPLOADS_BASE_URL", "https://cdn.example.com/files/")
	v.Set("RESULTS_MAX_UPLOAD_SIZE", -1)
	v.Set("REDIS_KEY_PREFIX", "staging:")

	cfg := fromViper(v)

	assert.Equal(t, "USD", cfg.Payments.Currency)
	assert.Equal(t, 5*time.Second, cfg.Notifications.RetryDelay)
	assert.Equal(t, "https://cdn.example.com/files", cfg.Uploads.BaseURL)
	assert.Equal(t, int64(5*1024*1024), cfg.Results.MaxUploadBytes)
	assert.Equal(t, "staging", cfg.Redis.KeyPrefix)
}
