package assets

import (
	"context"
	"image/color"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

type SceneOptions struct {
	ModelPath   string
	TexturePath string
	Mesh        MeshOptions
	Texture     TextureOptions
}

type Scene struct {
	Meshes  []Mesh
	Texture *Texture
}

// LoadScene decodes the model and the texture concurrently. Without a texture path the
// scene gets a plain white texture.
func LoadScene(ctx context.Context, options SceneOptions, logger *slog.Logger) (*Scene, error) {
	scene := &Scene{}
	group, _ := errgroup.WithContext(ctx)

	group.Go(func() error {
		meshes, err := LoadMesh(options.ModelPath, options.Mesh)
		if err != nil {
			return err
		}

		scene.Meshes = meshes
		for _, mesh := range meshes {
			logger.Debug("loaded mesh", "name", mesh.Name, "vertices", len(mesh.Vertices), "indices", len(mesh.Indices))
		}
		return nil
	})

	group.Go(func() error {
		if options.TexturePath == "" {
			scene.Texture = SolidTexture(color.NRGBA{R: 255, G: 255, B: 255, A: 255})
			return nil
		}

		texture, err := LoadTexture(options.TexturePath, options.Texture)
		if err != nil {
			return err
		}

		scene.Texture = texture
		logger.Debug("loaded texture", "path", texture.Name, "width", texture.Width, "height", texture.Height)
		return nil
	})

	err := group.Wait()
	if err != nil {
		return nil, err
	}
	return scene, nil
}
