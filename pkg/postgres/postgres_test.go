package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptions(t *testing.T) {
	t.Run("overrides", func(t *testing.T) {
		cfg := defaultPoolConfig

		for _, opt := range []Option{
			WithConnMaxIdleTime(time.Minute),
			WithConnMaxLifetime(time.Hour),
			WithMaxIdleConns(2),
			WithMaxOpenConns(10),
		} {
			opt(&cfg)
		}

		assert.Equal(t, poolConfig{
			connMaxIdleTime: time.Minute,
			connMaxLifetime: time.Hour,
			maxIdleConns:    2,
			maxOpenConns:    10,
		}, cfg)
	})

	t.Run("zero values keep defaults", func(t *testing.T) {
		cfg := defaultPoolConfig

		for _, opt := range []Option{
			WithConnMaxIdleTime(0),
			WithConnMaxLifetime(0),
			WithMaxIdleConns(0),
			WithMaxOpenConns(0),
		} {
			opt(&cfg)
		}

		assert.Equal(t, defaultPoolConfig, cfg)
	})
}
