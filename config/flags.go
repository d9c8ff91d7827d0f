package config

import (
	"github.com/spf13/pflag"
)

// Flags are the command line overrides. Only flags set explicitly replace the values
// loaded from the configuration file.
type Flags struct {
	set *pflag.FlagSet

	ConfigPath     string
	Validation     bool
	FramesInFlight int
	Model          string
	Texture        string
	Shader         string
	PipelineCache  string
	LogLevel       string
	Width          int
	Height         int
}

func NewFlags(name string) *Flags {
	defaults := Default()
	f := &Flags{set: pflag.NewFlagSet(name, pflag.ContinueOnError)}

	f.set.StringVarP(&f.ConfigPath, "config", "c", "", "path to a TOML configuration file")
	f.set.BoolVar(&f.Validation, "validation", defaults.Renderer.Validation, "enable the Khronos validation layer")
	f.set.IntVar(&f.FramesInFlight, "frames", defaults.Renderer.FramesInFlight, "frames in flight")
	f.set.StringVarP(&f.Model, "model", "m", defaults.Assets.Model, "OBJ model to render")
	f.set.StringVarP(&f.Texture, "texture", "t", defaults.Assets.Texture, "texture image; empty renders untextured")
	f.set.StringVar(&f.Shader, "shader", defaults.Renderer.Shader, "shader pair name inside the shader directory")
	f.set.StringVar(&f.PipelineCache, "pipeline-cache", defaults.Renderer.PipelineCache, "file to persist the pipeline cache in")
	f.set.StringVar(&f.LogLevel, "log-level", defaults.Log.Level, "debug, info, warn or error")
	f.set.IntVar(&f.Width, "width", defaults.Window.Width, "initial window width")
	f.set.IntVar(&f.Height, "height", defaults.Window.Height, "initial window height")

	return f
}

func (f *Flags) Parse(args []string) error {
	return f.set.Parse(args)
}

func (f *Flags) Usage() string {
	return f.set.FlagUsages()
}

// Apply copies every explicitly set flag into cfg.
func (f *Flags) Apply(cfg *Config) {
	if f.set.Changed("validation") {
		cfg.Renderer.Validation = f.Validation
	}
	if f.set.Changed("frames") {
		cfg.Renderer.FramesInFlight = f.FramesInFlight
	}
	if f.set.Changed("model") {
		cfg.Assets.Model = f.Model
	}
	if f.set.Changed("texture") {
		cfg.Assets.Texture = f.Texture
	}
	if f.set.Changed("shader") {
		cfg.Renderer.Shader = f.Shader
	}
	if f.set.Changed("pipeline-cache") {
		cfg.Renderer.PipelineCache = f.PipelineCache
	}
	if f.set.Changed("log-level") {
		cfg.Log.Level = f.LogLevel
	}
	if f.set.Changed("width") {
		cfg.Window.Width = f.Width
	}
	if f.set.Changed("height") {
		cfg.Window.Height = f.Height
	}
}
