package renderer

import (
	"github.com/cockroachdb/errors"
)

type Options struct {
	ApplicationName string
	Validation      bool
	FramesInFlight  int

	// ShaderDir holds <ShaderName>.vert.spv and <ShaderName>.frag.spv.
	ShaderDir  string
	ShaderName string

	ClearColor [4]float32
	// PipelineCachePath persists compiled pipelines between runs. Empty disables it.
	PipelineCachePath string
	Mipmaps           bool
}

func DefaultOptions() Options {
	return Options{
		ApplicationName: "vkforward",
		FramesInFlight:  2,
		ShaderDir:       "shaders",
		ShaderName:      "shader",
		ClearColor:      [4]float32{0.1, 0.1, 0.1, 1},
		Mipmaps:         true,
	}
}

func (o Options) Validate() error {
	if o.FramesInFlight < 1 {
		return errors.Newf("frames in flight must be at least 1, got %d", o.FramesInFlight)
	}
	if o.ShaderName == "" {
		return errors.New("shader name must not be empty")
	}
	return nil
}
