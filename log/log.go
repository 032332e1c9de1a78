package log

// Config controls the default slog handler set up in cmd.
type Config struct {
	Level     int  `mapstructure:"level"`
	AddSource bool `mapstructure:"add_source"`
}
