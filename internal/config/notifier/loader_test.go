package notifier_config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Engine.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.Engine.Interval)
	assert.Equal(t, "inventory:low-stock", cfg.Redis.Channel)
	assert.Equal(t, time.Second, cfg.Redis.PollTimeout)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, 2*time.Second, cfg.DB.QueryTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.OTEL.Enable)
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	cfg, err := Load("does-not-exist.yaml")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Engine.BatchSize)
}
