package assets

import (
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Texture is an image as tightly packed, non-premultiplied RGBA8 rows.
type Texture struct {
	Name   string
	Pixels []byte
	Width  int
	Height int
}

type TextureOptions struct {
	// MaxDimension downscales images whose larger side exceeds it, keeping the aspect
	// ratio. Zero disables scaling.
	MaxDimension int
}

func LoadTexture(path string, options TextureOptions) (*Texture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open texture")
	}
	defer file.Close()

	texture, err := DecodeTexture(file, options)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	texture.Name = path
	return texture, nil
}

// DecodeTexture decodes any registered image format (png, jpeg, gif, bmp, webp).
func DecodeTexture(r io.Reader, options TextureOptions) (*Texture, error) {
	decoded, format, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}

	bounds := decoded.Bounds()
	if bounds.Empty() {
		return nil, errors.Newf("%s image is empty", format)
	}

	width, height := ScaledSize(bounds.Dx(), bounds.Dy(), options.MaxDimension)
	rgba := image.NewNRGBA(image.Rect(0, 0, width, height))
	if width == bounds.Dx() && height == bounds.Dy() {
		draw.Draw(rgba, rgba.Bounds(), decoded, bounds.Min, draw.Src)
	} else {
		xdraw.CatmullRom.Scale(rgba, rgba.Bounds(), decoded, bounds, xdraw.Src, nil)
	}

	return &Texture{
		Pixels: rgba.Pix,
		Width:  width,
		Height: height,
	}, nil
}

// ScaledSize fits width and height within maxDimension, keeping at least one pixel per axis.
func ScaledSize(width, height, maxDimension int) (int, int) {
	largest := width
	if height > largest {
		largest = height
	}
	if maxDimension <= 0 || largest <= maxDimension {
		return width, height
	}

	scaledWidth := width * maxDimension / largest
	scaledHeight := height * maxDimension / largest
	if scaledWidth < 1 {
		scaledWidth = 1
	}
	if scaledHeight < 1 {
		scaledHeight = 1
	}
	return scaledWidth, scaledHeight
}

// SolidTexture is a 1x1 texture of a single color, bound when a scene has no texture so
// the fragment shader always has something to sample.
func SolidTexture(c color.NRGBA) *Texture {
	return &Texture{
		Name:   "solid",
		Pixels: []byte{c.R, c.G, c.B, c.A},
		Width:  1,
		Height: 1,
	}
}
