package renderer

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

const spirvMagic = 0x07230203

// ShaderPaths returns the vertex and fragment SPIR-V paths for a shader pair.
func ShaderPaths(dir, name string) (string, string) {
	return filepath.Join(dir, name+".vert.spv"), filepath.Join(dir, name+".frag.spv")
}

func loadShaderModule(driver core1_0.CoreDeviceDriver, path string) (core1_0.ShaderModule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core1_0.ShaderModule{}, errors.Wrap(err, "read shader")
	}

	code, err := bytesToBytecode(data)
	if err != nil {
		return core1_0.ShaderModule{}, errors.Wrapf(err, "shader %s", path)
	}

	module, _, err := driver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: code,
	})
	if err != nil {
		return core1_0.ShaderModule{}, errors.Wrapf(err, "create shader module from %s", path)
	}
	return module, nil
}

// bytesToBytecode reinterprets SPIR-V bytes as the words the driver expects.
func bytesToBytecode(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, errors.Newf("SPIR-V length %d is not a positive multiple of 4", len(b))
	}

	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = common.ByteOrder.Uint32(b[i*4:])
	}

	if byteCode[0] != spirvMagic {
		return nil, errors.Newf("bad SPIR-V magic number 0x%08x", byteCode[0])
	}
	return byteCode, nil
}
