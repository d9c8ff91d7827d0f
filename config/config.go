// Package config loads vkforward's TOML configuration and applies command line overrides.
package config

import (
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
	"github.com/vkngwrapper/vkforward/assets"
	"github.com/vkngwrapper/vkforward/camera"
	"github.com/vkngwrapper/vkforward/renderer"
)

type Config struct {
	Window   Window   `toml:"window"`
	Renderer Renderer `toml:"renderer"`
	Assets   Assets   `toml:"assets"`
	Camera   Camera   `toml:"camera"`
	Log      Log      `toml:"log"`
}

type Window struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

type Renderer struct {
	Validation     bool       `toml:"validation"`
	FramesInFlight int        `toml:"frames_in_flight"`
	ShaderDir      string     `toml:"shader_dir"`
	Shader         string     `toml:"shader"`
	ClearColor     [4]float32 `toml:"clear_color"`
	PipelineCache  string     `toml:"pipeline_cache"`
	Mipmaps        bool       `toml:"mipmaps"`
}

type Assets struct {
	Model   string `toml:"model"`
	Texture string `toml:"texture"`
	FlipV   bool   `toml:"flip_v"`
	// MaxTextureSize bounds the larger texture side. 4096 is the smallest limit a Vulkan
	// device may report.
	MaxTextureSize int        `toml:"max_texture_size"`
	Translate      [3]float32 `toml:"translate"`
	Scale          float32    `toml:"scale"`
}

type Camera struct {
	Position    [3]float32 `toml:"position"`
	FOV         float32    `toml:"fov"`
	Near        float32    `toml:"near"`
	Far         float32    `toml:"far"`
	Speed       float32    `toml:"speed"`
	FastSpeed   float32    `toml:"fast_speed"`
	Sensitivity float32    `toml:"sensitivity"`
}

type Log struct {
	Level string `toml:"level"`
}

func Default() Config {
	cam := camera.Default()
	options := renderer.DefaultOptions()

	return Config{
		Window: Window{
			Title:  "vkforward",
			Width:  800,
			Height: 600,
		},
		Renderer: Renderer{
			FramesInFlight: options.FramesInFlight,
			ShaderDir:      options.ShaderDir,
			Shader:         options.ShaderName,
			ClearColor:     options.ClearColor,
			Mipmaps:        options.Mipmaps,
		},
		Assets: Assets{
			Model:          "assets/models/viking_room.obj",
			Texture:        "assets/textures/viking_room.png",
			FlipV:          true,
			MaxTextureSize: 4096,
			Scale:          1,
		},
		Camera: Camera{
			Position:    [3]float32(cam.Position),
			FOV:         cam.FOV,
			Near:        cam.Near,
			Far:         cam.Far,
			Speed:       cam.Speed,
			FastSpeed:   cam.FastSpeed,
			Sensitivity: cam.Sensitivity,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load reads path over the defaults. Keys the file leaves out keep their default values;
// unknown keys are an error. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrap(err, "open config")
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	err = decoder.Decode(&cfg)
	if err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return cfg, errors.Newf("%s: %s", path, strict.String())
		}
		return cfg, errors.Wrapf(err, "decode %s", path)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return errors.Newf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	case c.Renderer.FramesInFlight < 1:
		return errors.Newf("renderer.frames_in_flight must be at least 1, got %d", c.Renderer.FramesInFlight)
	case c.Renderer.Shader == "":
		return errors.New("renderer.shader must not be empty")
	case c.Assets.Model == "":
		return errors.New("assets.model must be set")
	case c.Assets.MaxTextureSize < 0:
		return errors.Newf("assets.max_texture_size must not be negative, got %d", c.Assets.MaxTextureSize)
	case c.Assets.Scale <= 0:
		return errors.Newf("assets.scale must be positive, got %g", c.Assets.Scale)
	case c.Camera.FOV <= 0 || c.Camera.FOV >= 180:
		return errors.Newf("camera.fov must be between 0 and 180 degrees, got %g", c.Camera.FOV)
	case c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near:
		return errors.Newf("camera planes near=%g far=%g must satisfy 0 < near < far", c.Camera.Near, c.Camera.Far)
	}

	for _, channel := range c.Renderer.ClearColor {
		if channel < 0 || channel > 1 {
			return errors.Newf("renderer.clear_color %v must be within [0, 1]", c.Renderer.ClearColor)
		}
	}

	_, err := c.LogLevel()
	return err
}

func (c Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.Log.Level))
	if err != nil {
		return level, errors.Wrapf(err, "log.level %q", c.Log.Level)
	}
	return level, nil
}

func (c Config) RendererOptions() renderer.Options {
	return renderer.Options{
		ApplicationName:   c.Window.Title,
		Validation:        c.Renderer.Validation,
		FramesInFlight:    c.Renderer.FramesInFlight,
		ShaderDir:         c.Renderer.ShaderDir,
		ShaderName:        c.Renderer.Shader,
		ClearColor:        c.Renderer.ClearColor,
		PipelineCachePath: c.Renderer.PipelineCache,
		Mipmaps:           c.Renderer.Mipmaps,
	}
}

func (c Config) SceneOptions() assets.SceneOptions {
	return assets.SceneOptions{
		ModelPath:   c.Assets.Model,
		TexturePath: c.Assets.Texture,
		Mesh:        assets.MeshOptions{FlipV: c.Assets.FlipV},
		Texture:     assets.TextureOptions{MaxDimension: c.Assets.MaxTextureSize},
	}
}

// ModelTransform places loaded meshes in the world.
func (c Config) ModelTransform() mgl32.Mat4 {
	translate := mgl32.Vec3(c.Assets.Translate)
	return mgl32.Translate3D(translate.X(), translate.Y(), translate.Z()).
		Mul4(mgl32.Scale3D(c.Assets.Scale, c.Assets.Scale, c.Assets.Scale))
}

func (c Config) NewCamera() camera.Camera {
	cam := camera.Default()
	cam.Position = mgl32.Vec3(c.Camera.Position)
	cam.FOV = c.Camera.FOV
	cam.Near = c.Camera.Near
	cam.Far = c.Camera.Far
	cam.Speed = c.Camera.Speed
	cam.FastSpeed = c.Camera.FastSpeed
	cam.Sensitivity = c.Camera.Sensitivity
	return cam
}
