package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv(`SLACK_BOT_TOKEN`, `xoxb-test`)
	t.Setenv(`SLACK_CHANNEL_ID`, `C123`)
	t.Setenv(`SNAPSHOT_FILE`, `/tmp/doorbell_latest.jpg`)
}

func TestLoad(t *testing.T) {
	setRequired(t)
	t.Setenv(`SLACK_TIMEOUT`, `10`)
	t.Setenv(`SFTP_HOST`, `archive.local`)
	t.Setenv(`SFTP_TARGET_DIR`, `/srv/doorbell/`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, `xoxb-test`, cfg.Slack.Token)
	assert.Equal(t, `C123`, cfg.Slack.ChannelID)
	assert.Equal(t, 10*time.Second, cfg.Slack.Timeout)
	assert.Equal(t, `/tmp/doorbell_latest.jpg`, cfg.Snapshot.Path)
	assert.Equal(t, DefaultComment, cfg.Snapshot.Comment)
	assert.Equal(t, DefaultTitle, cfg.Snapshot.Title)
	assert.Equal(t, 2*time.Second, cfg.Watch.FileChangeInterval)
	assert.Equal(t, 100, cfg.Watch.MaxPollRetries)
	assert.Equal(t, 0, cfg.Watch.ShutDownAfterXerrors)

	assert.True(t, cfg.Sftp.Enabled())
	assert.Equal(t, 22, cfg.Sftp.Port)
	assert.Equal(t, `/srv/doorbell/`, cfg.Sftp.RemoteDir)
	assert.False(t, cfg.Ftps.Enabled())
	assert.Equal(t, `/`, cfg.Ftps.RemoteDir)
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv(`SLACK_BOT_TOKEN`, ``)
	t.Setenv(`SLACK_CHANNEL_ID`, ``)
	t.Setenv(`SNAPSHOT_FILE`, ``)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `SLACK_BOT_TOKEN`)
	assert.Contains(t, err.Error(), `SLACK_CHANNEL_ID`)
	assert.Contains(t, err.Error(), `SNAPSHOT_FILE`)
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	setRequired(t)
	t.Setenv(`SLACK_TIMEOUT`, `soon`)
	t.Setenv(`WATCH_FILE_CHANGE_INTERVAL`, `0`)
	t.Setenv(`FTPS_PORT`, `-1`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Slack.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Watch.FileChangeInterval)
	assert.Equal(t, 21, cfg.Ftps.Port)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, `.env`)
	require.NoError(t, os.WriteFile(envFile, []byte("SNAPSHOT_TITLE=Front door\n"), 0o600))

	t.Setenv(`SNAPSHOT_TITLE`, ``)
	os.Unsetenv(`SNAPSHOT_TITLE`)

	require.NoError(t, LoadEnvFile(envFile, true))
	assert.Equal(t, `Front door`, os.Getenv(`SNAPSHOT_TITLE`))
}

func TestLoadEnvFileMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), `.env`)

	assert.NoError(t, LoadEnvFile(missing, false))
	assert.Error(t, LoadEnvFile(missing, true))
}

func TestGetEnvInt(t *testing.T) {
	key := `TEST_INT_VAR`

	t.Setenv(key, `123`)
	assert.Equal(t, 123, getEnvInt(key, 0))

	t.Setenv(key, `invalid`)
	assert.Equal(t, 10, getEnvInt(key, 10))

	t.Setenv(key, ``)
	assert.Equal(t, 10, getEnvInt(key, 10))
}

func TestGetEnvSeconds(t *testing.T) {
	key := `TEST_SECONDS_VAR`

	t.Setenv(key, `45`)
	assert.Equal(t, 45*time.Second, getEnvSeconds(key, 30))

	t.Setenv(key, `86400`)
	assert.Equal(t, 24*time.Hour, getEnvSeconds(key, 30))

	for _, value := range []string{`0`, `86401`, `9223372036854775807`} {
		t.Setenv(key, value)
		assert.Equal(t, 30*time.Second, getEnvSeconds(key, 30), value)
	}
}
