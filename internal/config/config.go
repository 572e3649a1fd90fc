// Package config handles tool configuration loading and management.
package config

// Config holds all retargeting tool settings.
type Config struct {
	Retarget RetargetConfig `yaml:"retarget"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// RetargetConfig holds the retargeting run settings.
type RetargetConfig struct {
	FPS       float64 `yaml:"fps"`
	RestFrame int     `yaml:"rest_frame"`
	// Scale overrides the automatic proportion factor when positive.
	Scale float64 `yaml:"scale"`

	ConvertSpace bool `yaml:"convert_space"`
	// SourceAxes/TargetAxes name axis-system presets, overriding what
	// the scene files declare.
	SourceAxes string `yaml:"source_axes"`
	TargetAxes string `yaml:"target_axes"`

	SourceHips string `yaml:"source_hips"`
	TargetHips string `yaml:"target_hips"`
	TargetRoot string `yaml:"target_root"`

	RootMotionAxes string `yaml:"root_motion_axes"`
	HipsAxes       string `yaml:"hips_axes"`

	// Workers bounds frame parallelism; 0 uses all CPUs.
	Workers int `yaml:"workers"`
}

// OutputConfig holds output file settings.
type OutputConfig struct {
	// Take names the baked clip; empty reuses the source take name.
	Take string `yaml:"take"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Retarget: RetargetConfig{
			FPS:            30,
			RestFrame:      0,
			Scale:          0,
			ConvertSpace:   false,
			SourceHips:     "Hips",
			TargetHips:     "Hips",
			TargetRoot:     "Root",
			RootMotionAxes: "XZ",
			HipsAxes:       "Y",
			Workers:        0,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
