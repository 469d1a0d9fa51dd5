package tvmsym

import (
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
)

// Default configuration values.
const (
	DefaultSolverTimeout = 10 * time.Second
	DefaultWorkers       = 1
)

// Config represents the configuration of an exploration run.
type Config struct {
	Executor ExecutorConfig `toml:"executor"`
	Solver   SolverConfig   `toml:"solver"`
	Explorer ExplorerConfig `toml:"explorer"`
}

// ExecutorConfig configures the instruction interpreter.
type ExecutorConfig struct {
	GasLimit            int64    `toml:"gas-limit"`
	GasMax              int64    `toml:"gas-max"`
	StrictGas           bool     `toml:"strict-gas"`
	MaxForksPerLocation int      `toml:"max-forks-per-location"`
	Blacklist           []string `toml:"blacklist"`
}

// SolverConfig configures solver queries.
type SolverConfig struct {
	Timeout        Duration `toml:"timeout"`
	CacheSize      int      `toml:"cache-size"`
	UnknownAsUnsat bool     `toml:"unknown-as-unsat"`
}

// ExplorerConfig configures the search over execution states.
type ExplorerConfig struct {
	Workers   int      `toml:"workers"`
	Searcher  string   `toml:"searcher"`
	Seed      int64    `toml:"seed"`
	MaxSteps  int      `toml:"max-steps"`
	MaxStates int      `toml:"max-states"`
	Timeout   Duration `toml:"timeout"`
	Targets   []string `toml:"targets"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() Config {
	return Config{
		Executor: ExecutorConfig{
			GasLimit:  DefaultGasLimit,
			GasMax:    DefaultGasLimit,
			StrictGas: true,
		},
		Solver: SolverConfig{
			Timeout:   Duration{DefaultSolverTimeout},
			CacheSize: DefaultSolverCacheSize,
		},
		Explorer: ExplorerConfig{
			Workers:  DefaultWorkers,
			Searcher: SearcherDFS,
		},
	}
}

// LoadConfig reads a TOML configuration file. Unset values keep their defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	md, err := toml.DecodeFile(path, &config)
	if err != nil {
		return config, errors.Wrapf(err, "config %s", path)
	}
	if err := checkUndecoded(md); err != nil {
		return config, errors.Wrapf(err, "config %s", path)
	}
	return config, config.Validate()
}

// ParseConfig parses a TOML configuration. Unset values keep their defaults.
func ParseConfig(data string) (Config, error) {
	config := DefaultConfig()
	md, err := toml.Decode(data, &config)
	if err != nil {
		return config, errors.Wrap(err, "config")
	}
	if err := checkUndecoded(md); err != nil {
		return config, errors.Wrap(err, "config")
	}
	return config, config.Validate()
}

func checkUndecoded(md toml.MetaData) error {
	if keys := md.Undecoded(); len(keys) > 0 {
		a := make([]string, len(keys))
		for i, key := range keys {
			a[i] = key.String()
		}
		return errors.Errorf("unknown keys: %s", strings.Join(a, ", "))
	}
	return nil
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	if c.Executor.GasLimit <= 0 {
		return errors.New("executor.gas-limit must be positive")
	} else if c.Executor.GasMax < c.Executor.GasLimit {
		return errors.New("executor.gas-max must not be less than executor.gas-limit")
	} else if c.Executor.MaxForksPerLocation < 0 {
		return errors.New("executor.max-forks-per-location must not be negative")
	}
	if _, err := c.Executor.BlacklistLocations(); err != nil {
		return err
	}

	if c.Solver.CacheSize <= 0 {
		return errors.New("solver.cache-size must be positive")
	} else if c.Solver.Timeout.Duration < 0 {
		return errors.New("solver.timeout must not be negative")
	}

	if c.Explorer.Workers <= 0 {
		return errors.New("explorer.workers must be positive")
	} else if c.Explorer.MaxSteps < 0 || c.Explorer.MaxStates < 0 {
		return errors.New("explorer budgets must not be negative")
	} else if c.Explorer.Timeout.Duration < 0 {
		return errors.New("explorer.timeout must not be negative")
	}
	targets, err := c.Explorer.TargetLocations()
	if err != nil {
		return err
	}
	if _, err := NewSearcher(c.Explorer.Searcher, c.Explorer.Seed, targets); err != nil {
		return errors.Wrap(err, "explorer.searcher")
	}
	return nil
}

// BlacklistLocations returns the parsed black list.
func (c *ExecutorConfig) BlacklistLocations() ([]Location, error) {
	return parseLocations("executor.blacklist", c.Blacklist)
}

// Apply copies the configuration onto an executor.
func (c *ExecutorConfig) Apply(e *Executor) error {
	blacklist, err := c.BlacklistLocations()
	if err != nil {
		return err
	}

	e.GasLimit, e.GasMax = c.GasLimit, c.GasMax
	e.StrictGas = c.StrictGas
	e.MaxForksPerLocation = c.MaxForksPerLocation
	if len(blacklist) > 0 {
		e.Blacklist = mapset.NewSet(blacklist...)
	}
	return nil
}

// TargetLocations returns the parsed target list.
func (c *ExplorerConfig) TargetLocations() ([]Location, error) {
	return parseLocations("explorer.targets", c.Targets)
}

func parseLocations(key string, a []string) ([]Location, error) {
	locs := make([]Location, len(a))
	for i, s := range a {
		loc, err := ParseLocation(s)
		if err != nil {
			return nil, errors.Wrap(err, key)
		}
		locs[i] = loc
	}
	return locs, nil
}

// Duration is a time.Duration decoded from a string such as "10s".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", text)
	}
	d.Duration = v
	return nil
}

// MarshalText returns the duration as a string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}
