package config

import "flag"

// Flags holds the CLI flag values of one subcommand's flag set. Flags
// left at their zero value do not override the config file.
type Flags struct {
	config string
	debug  bool

	fps       float64
	restFrame int
	scale     float64

	convertSpace bool
	sourceAxes   string
	targetAxes   string

	sourceHips string
	targetHips string
	targetRoot string

	rootMotionAxes string
	hipsAxes       string

	outputTake string
	workers    int
}

// RegisterFlags declares the shared flags on a subcommand's flag set.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.config, "config", "", "Path to config file")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.Float64Var(&f.fps, "fps", 0, "Output sample rate in frames per second")
	fs.IntVar(&f.restFrame, "rest-frame", -1, "Reference pose frame index")
	fs.Float64Var(&f.scale, "scale", 0, "Explicit translation scale factor (skips auto-detection)")
	fs.BoolVar(&f.convertSpace, "convert-space", false, "Convert between source and target axis systems")
	fs.StringVar(&f.sourceAxes, "source-axes", "", "Source axis-system preset override")
	fs.StringVar(&f.targetAxes, "target-axes", "", "Target axis-system preset override")
	fs.StringVar(&f.sourceHips, "source-hips", "", "Source hips joint name")
	fs.StringVar(&f.targetHips, "target-hips", "", "Target hips joint name")
	fs.StringVar(&f.targetRoot, "target-root", "", "Target root joint name for root motion")
	fs.StringVar(&f.rootMotionAxes, "root-motion-axes", "", "Axes carried by the synthesized root (e.g. XZ)")
	fs.StringVar(&f.hipsAxes, "hips-axes", "", "Axes kept on the hips when root motion is split (e.g. Y)")
	fs.StringVar(&f.outputTake, "take", "", "Output take name")
	fs.IntVar(&f.workers, "workers", 0, "Frame worker count (0 = all CPUs)")
	return f
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	return f.config
}

// apply overrides config values with the flags that were set.
func (f *Flags) apply(cfg *Config) {
	if f.debug {
		cfg.Logging.Level = "debug"
	}
	if f.fps > 0 {
		cfg.Retarget.FPS = f.fps
	}
	if f.restFrame >= 0 {
		cfg.Retarget.RestFrame = f.restFrame
	}
	if f.scale > 0 {
		cfg.Retarget.Scale = f.scale
	}
	if f.convertSpace {
		cfg.Retarget.ConvertSpace = true
	}
	if f.sourceAxes != "" {
		cfg.Retarget.SourceAxes = f.sourceAxes
	}
	if f.targetAxes != "" {
		cfg.Retarget.TargetAxes = f.targetAxes
	}
	if f.sourceHips != "" {
		cfg.Retarget.SourceHips = f.sourceHips
	}
	if f.targetHips != "" {
		cfg.Retarget.TargetHips = f.targetHips
	}
	if f.targetRoot != "" {
		cfg.Retarget.TargetRoot = f.targetRoot
	}
	if f.rootMotionAxes != "" {
		cfg.Retarget.RootMotionAxes = f.rootMotionAxes
	}
	if f.hipsAxes != "" {
		cfg.Retarget.HipsAxes = f.hipsAxes
	}
	if f.outputTake != "" {
		cfg.Output.Take = f.outputTake
	}
	if f.workers > 0 {
		cfg.Retarget.Workers = f.workers
	}
}
