package tvmsym_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/tvmsym"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		config, err := tvmsym.ParseConfig("")
		require.NoError(t, err)
		require.Equal(t, tvmsym.DefaultConfig(), config)
	})

	t.Run("OK", func(t *testing.T) {
		config, err := tvmsym.ParseConfig(`
[executor]
gas-limit = 10000
gas-max = 20000
strict-gas = false
max-forks-per-location = 3
blacklist = ["0:4", "1:0"]

[solver]
timeout = "250ms"
cache-size = 64
unknown-as-unsat = true

[explorer]
workers = 4
searcher = "target"
seed = 42
max-steps = 1000
timeout = "1m"
targets = ["2:7"]
`)
		require.NoError(t, err)
		require.Equal(t, int64(10000), config.Executor.GasLimit)
		require.Equal(t, int64(20000), config.Executor.GasMax)
		require.False(t, config.Executor.StrictGas)
		require.Equal(t, 3, config.Executor.MaxForksPerLocation)
		require.Equal(t, 250*time.Millisecond, config.Solver.Timeout.Duration)
		require.Equal(t, 64, config.Solver.CacheSize)
		require.True(t, config.Solver.UnknownAsUnsat)
		require.Equal(t, 4, config.Explorer.Workers)
		require.Equal(t, tvmsym.SearcherTarget, config.Explorer.Searcher)
		require.Equal(t, time.Minute, config.Explorer.Timeout.Duration)

		blacklist, err := config.Executor.BlacklistLocations()
		require.NoError(t, err)
		require.Equal(t, []tvmsym.Location{{Block: 0, Index: 4}, {Block: 1, Index: 0}}, blacklist)

		targets, err := config.Explorer.TargetLocations()
		require.NoError(t, err)
		require.Equal(t, []tvmsym.Location{{Block: 2, Index: 7}}, targets)

		e := NewExecutor(tvmsym.NewContract())
		require.NoError(t, config.Executor.Apply(e))
		require.Equal(t, int64(10000), e.GasLimit)
		require.False(t, e.StrictGas)
		require.True(t, e.Blacklist.Contains(tvmsym.Location{Block: 1, Index: 0}))
	})

	for _, tt := range []struct {
		name string
		data string
		err  string
	}{
		{"UnknownKey", "[executor]\ngas = 1\n", "unknown keys: executor.gas"},
		{"GasLimit", "[executor]\ngas-limit = 0\n", "executor.gas-limit must be positive"},
		{"GasMax", "[executor]\ngas-limit = 100\ngas-max = 10\n", "executor.gas-max"},
		{"Blacklist", "[executor]\nblacklist = [\"x\"]\n", "executor.blacklist"},
		{"CacheSize", "[solver]\ncache-size = 0\n", "solver.cache-size must be positive"},
		{"Duration", "[solver]\ntimeout = \"soon\"\n", "invalid duration"},
		{"Workers", "[explorer]\nworkers = 0\n", "explorer.workers must be positive"},
		{"Budget", "[explorer]\nmax-steps = -1\n", "explorer budgets must not be negative"},
		{"Searcher", "[explorer]\nsearcher = \"best\"\n", "unknown searcher"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tvmsym.ParseConfig(tt.data)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tvmsym.toml")
	require.NoError(t, os.WriteFile(path, []byte("[explorer]\nsearcher = \"bfs\"\n"), 0666))

	config, err := tvmsym.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, tvmsym.SearcherBFS, config.Explorer.Searcher)
	require.Equal(t, tvmsym.DefaultWorkers, config.Explorer.Workers)

	_, err = tvmsym.LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
