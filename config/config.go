package config

import (
	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/gommon/log"
	"strings"
	"sync"
	"time"
)

type Config struct {
	HttpPort         int           `envconfig:"HTTP_PORT" default:"8765"`
	RedisAddr        string        `envconfig:"REDIS_ADDR" required:"false"`
	RedisPassword    string        `envconfig:"REDIS_PASSWORD" required:"false"`
	RedisDB          int           `envconfig:"REDIS_DB" required:"false" default:"0"`
	MaxWorkers       int           `envconfig:"MAX_WORKERS" default:"64"`
	SendTimeout      time.Duration `envconfig:"SEND_TIMEOUT" default:"5s"`
	HandshakeTimeout time.Duration `envconfig:"HANDSHAKE_TIMEOUT" default:"10s"`
	PingInterval     time.Duration `envconfig:"PING_INTERVAL" default:"30s"`
	PingTimeout      time.Duration `envconfig:"PING_TIMEOUT" default:"10s"`
	MaxMessageSize   int64         `envconfig:"MAX_MESSAGE_SIZE" default:"1048576"`
	MaxChatLength    int           `envconfig:"MAX_CHAT_LENGTH" default:"500"`
	EventsChannel    string        `envconfig:"EVENTS_CHANNEL" default:"room:"`
	CORSOrigin       string        `envconfig:"CORS_ORIGIN" default:"*"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
}

var (
	conf *Config
	once sync.Once
)

// Load reads the configuration from the environment
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the process-wide configuration, exiting on invalid environment
func Get() *Config {
	once.Do(func() {
		var err error
		conf, err = Load()
		if err != nil {
			log.Fatal(err)
		}
	})
	return conf
}

// RedisEnabled reports whether a redis address was configured
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.RedisAddr) != ""
}

// IdleTimeout is how long a connection may stay silent before it is dropped.
// Zero means no read deadline.
func (c *Config) IdleTimeout() time.Duration {
	if c.PingInterval <= 0 {
		return 0
	}
	return c.PingInterval + c.PingTimeout
}

// Level maps LOG_LEVEL onto the gommon logger levels
func (c *Config) Level() log.Lvl {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}
