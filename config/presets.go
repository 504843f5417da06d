package config

import "github.com/spf13/viper"

// ApplyPreset seeds viper with one of the two named chaining presets.
// It must run after Defaults, so its defaults replace the module's. It
// only sets defaults, so an explicit flag still overrides the preset's
// value.
func ApplyPreset(name string) error {
	switch name {
	case "", "none":
		return nil
	case "ava":
		viper.SetDefault("k", 19)
		viper.SetDefault("w", 5)
		viper.SetDefault("m", 100)
		viper.SetDefault("g", 10000)
		viper.SetDefault("n", 4)
	case "map":
		viper.SetDefault("k", 19)
		viper.SetDefault("w", 10)
		viper.SetDefault("m", 40)
		viper.SetDefault("g", 5000)
		viper.SetDefault("n", 3)
		viper.SetDefault("best-n", 5)
	default:
		return &UnknownPresetError{Name: name}
	}
	return nil
}

// UnknownPresetError reports a --preset value that names neither "ava"
// nor "map".
type UnknownPresetError struct {
	Name string
}

func (e *UnknownPresetError) Error() string {
	return "config: unknown preset " + e.Name + " (want \"ava\" or \"map\")"
}
