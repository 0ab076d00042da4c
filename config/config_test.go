package config

import (
	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	os.Clearenv()
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8765, c.HttpPort)
	assert.Equal(t, 5*time.Second, c.SendTimeout)
	assert.Equal(t, 30*time.Second, c.PingInterval)
	assert.Equal(t, int64(1048576), c.MaxMessageSize)
	assert.Equal(t, 500, c.MaxChatLength)
	assert.Equal(t, "room:", c.EventsChannel)
	assert.False(t, c.RedisEnabled())
	assert.Equal(t, 40*time.Second, c.IdleTimeout())
}

func TestLoadFromEnv(t *testing.T) {
	os.Clearenv()
	require.NoError(t, os.Setenv("HTTP_PORT", "9000"))
	require.NoError(t, os.Setenv("REDIS_ADDR", "localhost:6379"))
	require.NoError(t, os.Setenv("SEND_TIMEOUT", "250ms"))
	require.NoError(t, os.Setenv("PING_INTERVAL", "0"))
	defer os.Clearenv()

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, c.HttpPort)
	assert.True(t, c.RedisEnabled())
	assert.Equal(t, 250*time.Millisecond, c.SendTimeout)
	assert.Equal(t, time.Duration(0), c.IdleTimeout())
}

func TestLoadInvalid(t *testing.T) {
	os.Clearenv()
	require.NoError(t, os.Setenv("HTTP_PORT", "not-a-port"))
	defer os.Clearenv()

	_, err := Load()
	assert.Error(t, err)
}

func TestLevel(t *testing.T) {
	cases := map[string]log.Lvl{
		"debug":   log.DEBUG,
		"INFO":    log.INFO,
		"warn":    log.WARN,
		"error":   log.ERROR,
		"off":     log.OFF,
		"unknown": log.INFO,
	}
	for in, want := range cases {
		c := &Config{LogLevel: in}
		assert.Equal(t, want, c.Level(), in)
	}
}
