package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: "9090"
  mode: debug
database:
  driver: sqlite
  path: test.db
jwt:
  secret: short
  expire_hours: 2
storage:
  type: minio
quiz:
  default_max_attempts: 5
  default_pass_percentage: 60
  sweep_schedule: "@every 30s"
cache:
  stats_ttl_seconds: 10
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 5, cfg.Quiz.DefaultMaxAttempts)
	assert.Equal(t, 60.0, cfg.Quiz.DefaultPassPercentage)
	assert.Equal(t, "@every 30s", cfg.Quiz.SweepSchedule)
	assert.Equal(t, 10*time.Second, cfg.Cache.StatsTTL())
	// 未配置的项取默认值
	assert.Equal(t, 100, cfg.Log.MaxSizeMB)
	assert.Equal(t, 6000, cfg.RateLimit.MaxRequests)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "ok", cfg: Config{Database: DatabaseConfig{Driver: "mysql"}, Quiz: QuizConfig{DefaultPassPercentage: 70}}},
		{name: "short secret in release", cfg: Config{Server: ServerConfig{Mode: "release"}, JWT: JWTConfig{Secret: "abc"}, Database: DatabaseConfig{Driver: "mysql"}}, wantErr: true},
		{name: "unknown driver", cfg: Config{Database: DatabaseConfig{Driver: "oracle"}}, wantErr: true},
		{name: "pass percentage out of range", cfg: Config{Database: DatabaseConfig{Driver: "sqlite"}, Quiz: QuizConfig{DefaultPassPercentage: 120}}, wantErr: true},
		{name: "negative attempts", cfg: Config{Database: DatabaseConfig{Driver: "sqlite"}, Quiz: QuizConfig{DefaultMaxAttempts: -1}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
