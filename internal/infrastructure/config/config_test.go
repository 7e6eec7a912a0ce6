package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"PAYFLOW_APP_NAME":                        os.Getenv("PAYFLOW_APP_NAME"),
		"PAYFLOW_APP_ENV":                         os.Getenv("PAYFLOW_APP_ENV"),
		"PAYFLOW_APP_PORT":                        os.Getenv("PAYFLOW_APP_PORT"),
		"PAYFLOW_DATABASE_HOST":                   os.Getenv("PAYFLOW_DATABASE_HOST"),
		"PAYFLOW_DATABASE_PORT":                   os.Getenv("PAYFLOW_DATABASE_PORT"),
		"PAYFLOW_DATABASE_USER":                   os.Getenv("PAYFLOW_DATABASE_USER"),
		"PAYFLOW_DATABASE_PASSWORD":               os.Getenv("PAYFLOW_DATABASE_PASSWORD"),
		"PAYFLOW_DATABASE_DBNAME":                 os.Getenv("PAYFLOW_DATABASE_DBNAME"),
		"PAYFLOW_DATABASE_SSLMODE":                os.Getenv("PAYFLOW_DATABASE_SSLMODE"),
		"PAYFLOW_DATABASE_MAX_OPEN_CONNS":         os.Getenv("PAYFLOW_DATABASE_MAX_OPEN_CONNS"),
		"PAYFLOW_DATABASE_MAX_IDLE_CONNS":         os.Getenv("PAYFLOW_DATABASE_MAX_IDLE_CONNS"),
		"PAYFLOW_JWT_SECRET":                      os.Getenv("PAYFLOW_JWT_SECRET"),
		"PAYFLOW_TREASURY_MAX_STRATEGIES":         os.Getenv("PAYFLOW_TREASURY_MAX_STRATEGIES"),
		"PAYFLOW_TREASURY_SLIPPAGE_TOLERANCE_BPS": os.Getenv("PAYFLOW_TREASURY_SLIPPAGE_TOLERANCE_BPS"),
		"PAYFLOW_TREASURY_REBALANCE_COOLDOWN":     os.Getenv("PAYFLOW_TREASURY_REBALANCE_COOLDOWN"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "payflow-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "payflow", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Treasury.MaxStrategies)
		assert.Equal(t, int64(50), cfg.Treasury.SlippageToleranceBps)
		assert.Equal(t, time.Hour, cfg.Treasury.RebalanceCooldown)
	})

	t.Run("loads values from environment variables with PAYFLOW prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("PAYFLOW_APP_NAME", "test-app")
		os.Setenv("PAYFLOW_APP_PORT", "9000")
		os.Setenv("PAYFLOW_DATABASE_HOST", "testdb.local")
		os.Setenv("PAYFLOW_DATABASE_PORT", "5433")
		os.Setenv("PAYFLOW_TREASURY_MAX_STRATEGIES", "5")
		os.Setenv("PAYFLOW_TREASURY_SLIPPAGE_TOLERANCE_BPS", "25")
		os.Setenv("PAYFLOW_TREASURY_REBALANCE_COOLDOWN", "30m")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, 5, cfg.Treasury.MaxStrategies)
		assert.Equal(t, int64(25), cfg.Treasury.SlippageToleranceBps)
		assert.Equal(t, 30*time.Minute, cfg.Treasury.RebalanceCooldown)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv()
		os.Setenv("PAYFLOW_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("PAYFLOW_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
	})

	t.Run("rejects out-of-range slippage tolerance", func(t *testing.T) {
		clearEnv()
		os.Setenv("PAYFLOW_TREASURY_SLIPPAGE_TOLERANCE_BPS", "10000")

		_, err := Load()
		require.Error(t, err)
	})

	t.Run("production requires a strong JWT secret", func(t *testing.T) {
		clearEnv()
		os.Setenv("PAYFLOW_APP_ENV", "production")
		os.Setenv("PAYFLOW_JWT_SECRET", "short")

		_, err := Load()
		require.Error(t, err)
	})
}

func TestDatabaseConfigDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "payflow",
		Password: "p@ss/word",
		DBName:   "payflow",
		SSLMode:  "require",
	}

	dsn := d.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5432")
	assert.Contains(t, dsn, "sslmode=require")
	// Special characters in the password must be escaped.
	assert.NotContains(t, dsn, "p@ss/word")
}
