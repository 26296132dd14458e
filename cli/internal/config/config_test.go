package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/objgraph/runtime/client"
)

func memFs(t *testing.T) afero.Fs {
	t.Helper()
	prev := AppFs
	fs := afero.NewMemMapFs()
	AppFs = fs
	t.Cleanup(func() { AppFs = prev })

	t.Setenv("HOME", "/home/tester")
	for _, k := range []string{"OBJGRAPH_DSN", "OBJGRAPH_ADAPTER", "OBJGRAPH_POOL_MAX", "DATABASE_URL"} {
		t.Setenv(k, "")
	}
	return fs
}

// unset clears a variable for the rest of the test.
func unset(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

const appYAML = `
adapter: postgres
dsn: postgres://localhost/gallery
mapping:
  - gallery.yaml
  - /maps/shared.yaml
pool:
  max: 4
  max_queue_wait: 2s
cache_ttl: 1m
`

func TestLoadFile(t *testing.T) {
	fs := memFs(t)
	require.NoError(t, afero.WriteFile(fs, "/etc/objgraph/app.yaml", []byte(appYAML), 0o644))

	cfg, err := Load("/etc/objgraph/app.yaml", nil)
	require.NoError(t, err)

	assert.Equal(t, "/etc/objgraph/app.yaml", cfg.Source)
	assert.Equal(t, "postgres", cfg.Adapter)
	assert.Equal(t, "postgres://localhost/gallery", cfg.DSN)
	assert.Equal(t, []string{"/etc/objgraph/gallery.yaml", "/maps/shared.yaml"}, cfg.Mapping)
	assert.Equal(t, 4, cfg.Pool.MaxConnections)
	assert.Equal(t, 1, cfg.Pool.MinConnections, "defaults fill unset keys")
	assert.Equal(t, 2*time.Second, cfg.Pool.MaxQueueWait)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, 1000, cfg.CacheSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	memFs(t)
	_, err := Load("/nowhere.yaml", nil)
	assert.Error(t, err)
}

func TestLoadWithoutFile(t *testing.T) {
	memFs(t)
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.Source)
	assert.Equal(t, client.DefaultConfig().Pool, cfg.Pool)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	fs := memFs(t)
	require.NoError(t, afero.WriteFile(fs, "/app.yaml", []byte(appYAML), 0o644))
	t.Setenv("OBJGRAPH_POOL_MAX", "7")
	t.Setenv("OBJGRAPH_ADAPTER", "mysql")

	cfg, err := Load("/app.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Pool.MaxConnections)
	assert.Equal(t, "mysql", cfg.Adapter)
}

func TestDatabaseURLFallback(t *testing.T) {
	fs := memFs(t)
	require.NoError(t, afero.WriteFile(fs, "/app.yaml", []byte("adapter: sqlite\n"), 0o644))
	t.Setenv("DATABASE_URL", "file:gallery.db")

	cfg, err := Load("/app.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, "file:gallery.db", cfg.DSN)

	t.Setenv("OBJGRAPH_DSN", "file:other.db")
	cfg, err = Load("/app.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, "file:other.db", cfg.DSN)
}

func TestDotEnvFiles(t *testing.T) {
	fs := memFs(t)
	unset(t, "OBJGRAPH_ADAPTER")
	unset(t, "OBJGRAPH_DRIVER")
	t.Setenv("DATABASE_URL", "preset")

	require.NoError(t, afero.WriteFile(fs, ".env", []byte("OBJGRAPH_ADAPTER=mysql\nOBJGRAPH_DRIVER=mysql\nDATABASE_URL=from-dotenv\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, ".env.local", []byte("OBJGRAPH_ADAPTER=sqlite\n"), 0o644))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Adapter, ".env.local overrides .env")
	assert.Equal(t, "mysql", cfg.Driver)
	assert.Equal(t, "preset", cfg.DSN, ".env keeps variables already set")
}

func TestFlagsOverrideEverything(t *testing.T) {
	fs := memFs(t)
	require.NoError(t, afero.WriteFile(fs, "/app.yaml", []byte(appYAML), 0o644))
	t.Setenv("OBJGRAPH_DSN", "env-dsn")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("dsn", "", "")
	flags.String("adapter", "", "")
	require.NoError(t, flags.Parse([]string{"--dsn", "flag-dsn"}))

	cfg, err := Load("/app.yaml", flags)
	require.NoError(t, err)
	assert.Equal(t, "flag-dsn", cfg.DSN)
	assert.Equal(t, "postgres", cfg.Adapter, "unchanged flags do not override")
}

func TestSave(t *testing.T) {
	memFs(t)
	in := client.DefaultConfig()
	in.Adapter = "sqlite"
	in.DSN = "file:gallery.db"
	in.Mapping = []string{"gallery.yaml"}
	in.Pool.MaxConnections = 3

	require.NoError(t, Save("/project/.objgraph.yaml", in))

	out, err := Load("/project/.objgraph.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", out.Adapter)
	assert.Equal(t, "file:gallery.db", out.DSN)
	assert.Equal(t, []string{"/project/gallery.yaml"}, out.Mapping)
	assert.Equal(t, 3, out.Pool.MaxConnections)
	assert.Equal(t, in.Pool.MaxQueueWait, out.Pool.MaxQueueWait)
	assert.Equal(t, in.CacheTTL, out.CacheTTL)
}
