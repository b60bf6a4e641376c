package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietcircle/community/models"
)

func TestApplyDefaults(t *testing.T) {
	var c AppConfig
	applyDefaults(&c)

	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, "quietcircle", c.JWTIssuer)
	assert.Equal(t, 72*60, c.JWTExpiryMinutes)
	assert.Equal(t, "mysql", c.DBDriver)
	assert.Equal(t, "community", c.DBName)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.Equal(t, 500, c.CommentMaxLength)
	assert.Equal(t, "community-events", c.KafkaTopic)
	assert.Empty(t, c.RedisHost)
	assert.Empty(t, c.KafkaBrokers)
}

func TestLoadJSONConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"app": {"AppPort": "9000", "JWTSecret": "from-file", "AdminUsernames": ["root_admin"]},
		"database": {"Driver": "sqlite", "DatabaseURI": "community.db"},
		"community": {"CommentMaxLength": 280, "SeedTagsOnStart": true},
		"outbox": {"KafkaBrokers": ["k1:9092", "k2:9092"], "BatchSize": 50}
	}`), 0o600))

	var c AppConfig
	require.NoError(t, loadJSONConfig(path, &c))
	assert.Equal(t, "9000", c.AppPort)
	assert.Equal(t, "from-file", c.JWTSecret)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, 280, c.CommentMaxLength)
	assert.True(t, c.SeedTagsOnStart)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.KafkaBrokers)
	assert.Equal(t, 50, c.OutboxBatchSize)
	assert.True(t, c.IsAdmin("Root_Admin"))
	assert.False(t, c.IsAdmin("someone"))
}

func TestLoadJSONConfig_MissingAndInvalid(t *testing.T) {
	var c AppConfig
	assert.NoError(t, loadJSONConfig(filepath.Join(t.TempDir(), "absent.json"), &c))

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	assert.Error(t, loadJSONConfig(path, &c))
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("COMMENT_MAX_LENGTH", "120")
	t.Setenv("KAFKA_BROKERS", " a:9092 , ,b:9092 ")
	t.Setenv("SEED_TAGS_ON_START", "true")

	c := AppConfig{JWTSecret: "from-file", DBDriver: "mysql"}
	applyEnvOverrides(&c)
	assert.Equal(t, "from-env", c.JWTSecret)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, 120, c.CommentMaxLength)
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.KafkaBrokers)
	assert.True(t, c.SeedTagsOnStart)
}

func TestCommentMaxLengthCappedAtColumnSize(t *testing.T) {
	c := AppConfig{CommentMaxLength: 5000}
	applyDefaults(&c)
	assert.Equal(t, models.CommentContentMaxLength, c.CommentMaxLength)

	t.Setenv("COMMENT_MAX_LENGTH", "2000")
	applyEnvOverrides(&c)
	capCommentMaxLength(&c)
	assert.Equal(t, models.CommentContentMaxLength, c.CommentMaxLength)

	c = AppConfig{CommentMaxLength: models.CommentContentMaxLength}
	applyDefaults(&c)
	assert.Equal(t, models.CommentContentMaxLength, c.CommentMaxLength)

	Set(AppConfig{JWTSecret: "s", CommentMaxLength: 1 << 20})
	assert.Equal(t, models.CommentContentMaxLength, Get().CommentMaxLength)
}

func TestSetAppliesDefaults(t *testing.T) {
	Set(AppConfig{JWTSecret: "s"})
	got := Get()
	assert.Equal(t, "s", got.JWTSecret)
	assert.Equal(t, 60, got.RateLimitPerMinute)
}

func TestOpenDatabaseSQLite(t *testing.T) {
	db, err := OpenDatabase(AppConfig{
		DBDriver:    "sqlite",
		DatabaseURI: filepath.Join(t.TempDir(), "test.db"),
		LogLevel:    "silent",
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	type probe struct {
		ID   uint
		Name string
	}
	require.NoError(t, Migrate(db, &probe{}))
	require.NoError(t, db.Create(&probe{Name: "x"}).Error)
	var n int64
	require.NoError(t, db.Model(&probe{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}
