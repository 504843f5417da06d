// Package config is for app-wide settings unmarshalled from Viper (see:
// /cmd).
package config

import (
	"fmt"
	"runtime"

	"github.com/spf13/viper"
)

// EngineConfig holds the parameters passed to engine.New.
type EngineConfig struct {
	// k-mer length, clamped to [1,32] by the sketcher
	K int `mapstructure:"k"`
	// minimizer window length
	W int `mapstructure:"w"`
	// chaining score floor
	M uint32 `mapstructure:"m"`
	// lhs-position gap-split threshold
	G uint32 `mapstructure:"g"`
	// chain-length floor
	N uint32 `mapstructure:"n"`
	// 0 disables best_n truncation
	BestN uint32 `mapstructure:"best-n"`
	// second-level window-reduction size, 0 disables it
	ReduceWinSz int `mapstructure:"reduce-win-sz"`
	// robust winnowing extension to the monotone deque
	RobustWinnowing bool `mapstructure:"robust-winnowing"`
	// homopolymer compression
	HPC bool `mapstructure:"hpc"`
}

// MapFlags are the query-time flags shared by every mapping command.
type MapFlags struct {
	// suppress self-matches (lhs_id == rhs_id)
	AvoidEqual bool `mapstructure:"avoid-equal"`
	// suppress the symmetric half of an all-versus-all mapping
	AvoidSymmetric bool `mapstructure:"avoid-symmetric"`
	// occurrence-frequency cutoff in [0,1]; 0 disables it
	Frequency float64 `mapstructure:"frequency"`
	// K for map_begin_end; 0 disables begin-end mapping
	BeginEndK uint32 `mapstructure:"begin-end-k"`
}

// Config is the root-level settings struct: a mix of settings available
// from a settings file and those available from the command line.
type Config struct {
	Engine EngineConfig `mapstructure:",squash"`
	Map    MapFlags     `mapstructure:",squash"`
	// number of goroutines the worker pool bounds itself to
	Threads int `mapstructure:"threads"`
	// path to write PAF output to; empty means stdout
	Out string `mapstructure:"out"`
}

// Defaults populates viper with the module's baseline settings, applied
// before any preset or explicit flag.
func Defaults() {
	viper.SetDefault("k", 15)
	viper.SetDefault("w", 5)
	viper.SetDefault("m", 100)
	viper.SetDefault("g", 10000)
	viper.SetDefault("n", 4)
	viper.SetDefault("best-n", 0)
	viper.SetDefault("reduce-win-sz", 0)
	viper.SetDefault("robust-winnowing", false)
	viper.SetDefault("hpc", false)
	viper.SetDefault("avoid-equal", false)
	viper.SetDefault("avoid-symmetric", false)
	viper.SetDefault("frequency", 0.0)
	viper.SetDefault("begin-end-k", 0)
	viper.SetDefault("threads", runtime.NumCPU())
}

// New returns a Config populated by Viper settings (defaults, preset,
// settings file, and flags, in that override order).
func New() (Config, error) {
	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: unable to decode into struct: %w", err)
	}
	return c, nil
}
