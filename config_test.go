package beans_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/beans"
)

func TestParseConfig(t *testing.T) {
	t.Parallel()

	cfg, err := beans.ParseConfig([]byte(`
eager_init_singletons: true
parallel_workers: 3
shutdown_on_parallel_failure: true
log_level: warn
metrics_namespace: shop
custom_scopes: [request, session]
`))
	require.NoError(t, err)

	assert.Equal(t, beans.Config{
		EagerInitSingletons:       true,
		ParallelWorkers:           3,
		ShutdownOnParallelFailure: true,
		LogLevel:                  "warn",
		MetricsNamespace:          "shop",
		CustomScopes:              []string{"request", "session"},
	}, cfg)
}

func TestParseConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := beans.ParseConfig([]byte("metrics_namespace: app\n"))
	require.NoError(t, err)
	assert.Equal(t, beans.DefaultConfig().ParallelWorkers, cfg.ParallelWorkers)
	assert.GreaterOrEqual(t, cfg.ParallelWorkers, 1)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{name: "no workers", yaml: "parallel_workers: 0", field: "parallel_workers"},
		{name: "bad log level", yaml: "log_level: loud", field: "log_level"},
		{name: "reserved scope", yaml: "custom_scopes: [singleton]", field: "custom_scopes"},
		{name: "blank scope", yaml: "custom_scopes: ['  ']", field: "custom_scopes"},
		{name: "duplicate scope", yaml: "custom_scopes: [a, a]", field: "custom_scopes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := beans.ParseConfig([]byte(tt.yaml))
			var cfgErr *beans.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()

		_, err := beans.ParseConfig([]byte("parallel_workers: [1"))
		assert.Error(t, err)
	})

	t.Run("rejected by New", func(t *testing.T) {
		t.Parallel()

		_, err := beans.New(beans.WithConfig(beans.Config{}))
		var cfgErr *beans.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "beans.yaml")
	require.NoError(t, os.WriteFile(path, []byte("parallel_workers: 2\nlog_level: error\n"), 0o600))

	cfg, err := beans.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.ParallelWorkers)

	c, err := beans.New(beans.WithConfig(cfg))
	require.NoError(t, err)
	assert.NotNil(t, c.Logger())

	_, err = beans.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
