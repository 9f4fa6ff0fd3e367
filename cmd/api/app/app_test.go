package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	env := fmt.Sprintf(`APP_ENV=test
HTTP_PORT=0
GRPC_PORT=0
SHUTDOWN_TIMEOUT_SECONDS=5
DB_DRIVER=sqlite
DB_SQLITE_PATH=%s
REDIS_ENABLED=false
RATE_LIMIT_ENABLED=false
LOG_OUTPUT_PATH=stderr
`, filepath.Join(dir, "social.db"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.env"), []byte(env), 0o600))
	t.Setenv("CONFIG_PATH", dir)
}

func TestApp_RunUntilCancelled(t *testing.T) {
	writeConfig(t)

	a, err := New()
	require.NoError(t, err)
	assert.Equal(t, "test", a.Config.App.Env)
	assert.Nil(t, a.Container.RedisClient)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestApp_New_InvalidConfig(t *testing.T) {
	writeConfig(t)
	t.Setenv("DB_DRIVER", "mysql")

	_, err := New()
	assert.ErrorContains(t, err, "failed to create container")
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, ".", getConfigPath())

	t.Setenv("CONFIG_PATH", "/etc/social")
	assert.Equal(t, "/etc/social", getConfigPath())
}
