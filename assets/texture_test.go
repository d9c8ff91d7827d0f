package assets

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, width, height int, fill func(x, y int) color.NRGBA) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, fill(x, y))
		}
	}

	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func TestDecodeTexturePixels(t *testing.T) {
	// Wider than tall to catch row/column mix-ups.
	data := encodePNG(t, 3, 2, func(x, y int) color.NRGBA {
		return color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: 7, A: 255}
	})

	texture, err := DecodeTexture(bytes.NewReader(data), TextureOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, texture.Width)
	assert.Equal(t, 2, texture.Height)
	require.Len(t, texture.Pixels, 3*2*4)

	// Pixel (2, 1) lives at row 1, column 2.
	offset := (1*3 + 2) * 4
	assert.Equal(t, []byte{20, 10, 7, 255}, texture.Pixels[offset:offset+4])
}

func TestDecodeTextureDownscales(t *testing.T) {
	data := encodePNG(t, 64, 16, func(x, y int) color.NRGBA {
		return color.NRGBA{R: 200, G: 100, B: 50, A: 255}
	})

	texture, err := DecodeTexture(bytes.NewReader(data), TextureOptions{MaxDimension: 16})
	require.NoError(t, err)

	assert.Equal(t, 16, texture.Width)
	assert.Equal(t, 4, texture.Height)
	assert.Len(t, texture.Pixels, 16*4*4)
}

func TestDecodeTextureRejectsGarbage(t *testing.T) {
	_, err := DecodeTexture(bytes.NewReader([]byte("not an image")), TextureOptions{})
	require.Error(t, err)
}

func TestScaledSize(t *testing.T) {
	tests := []struct {
		width, height, max int
		wantW, wantH       int
	}{
		{width: 100, height: 50, max: 0, wantW: 100, wantH: 50},
		{width: 100, height: 50, max: 200, wantW: 100, wantH: 50},
		{width: 8192, height: 4096, max: 4096, wantW: 4096, wantH: 2048},
		{width: 1000, height: 1, max: 10, wantW: 10, wantH: 1},
	}

	for _, tt := range tests {
		w, h := ScaledSize(tt.width, tt.height, tt.max)
		assert.Equal(t, tt.wantW, w)
		assert.Equal(t, tt.wantH, h)
	}
}

func TestLoadScene(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "quad.obj")
	texturePath := filepath.Join(dir, "checker.png")

	require.NoError(t, os.WriteFile(modelPath, []byte(quadOBJ), 0o644))
	require.NoError(t, os.WriteFile(texturePath, encodePNG(t, 2, 2, func(x, y int) color.NRGBA {
		return color.NRGBA{R: 255, A: 255}
	}), 0o644))

	scene, err := LoadScene(context.Background(), SceneOptions{ModelPath: modelPath, TexturePath: texturePath}, discardLogger())
	require.NoError(t, err)
	require.Len(t, scene.Meshes, 1)
	require.NotNil(t, scene.Texture)
	assert.Equal(t, 2, scene.Texture.Width)

	scene, err = LoadScene(context.Background(), SceneOptions{ModelPath: modelPath}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, []byte{255, 255, 255, 255}, scene.Texture.Pixels)

	_, err = LoadScene(context.Background(), SceneOptions{ModelPath: modelPath, TexturePath: filepath.Join(dir, "missing.png")}, discardLogger())
	require.Error(t, err)
}
