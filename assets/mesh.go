// Package assets decodes meshes and textures from disk into the flat forms the renderer
// uploads: deduplicated vertex and index lists, and tightly packed RGBA8 pixels.
package assets

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
	vkngmath "github.com/vkngwrapper/math"
)

// Vertex is the vertex layout the shaders consume. It is comparable so identical vertices
// can be merged with a map.
type Vertex struct {
	Position vkngmath.Vec3[float32]
	Color    vkngmath.Vec3[float32]
	TexCoord vkngmath.Vec2[float32]
}

type Mesh struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
	Model    mgl32.Mat4
}

type MeshOptions struct {
	// FlipV converts OBJ texture coordinates (origin bottom left) to Vulkan's (top left).
	FlipV bool
}

// LoadMesh decodes a Wavefront OBJ file into one mesh per object. A material library with
// the same base name is read when it exists.
func LoadMesh(path string, options MeshOptions) ([]Mesh, error) {
	meshFile, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open mesh")
	}
	defer meshFile.Close()

	var matReader io.Reader = strings.NewReader("")
	matFile, err := os.Open(strings.TrimSuffix(path, filepath.Ext(path)) + ".mtl")
	if err == nil {
		defer matFile.Close()
		matReader = matFile
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "open material library")
	}

	meshes, err := DecodeMesh(meshFile, matReader, options)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return meshes, nil
}

// DecodeMesh decodes OBJ data. Polygons are triangulated as fans and vertices that agree
// in position, color and texture coordinate share one index.
func DecodeMesh(objReader, mtlReader io.Reader, options MeshOptions) ([]Mesh, error) {
	decoder, err := obj.DecodeReader(objReader, mtlReader)
	if err != nil {
		return nil, errors.Wrap(err, "decode obj")
	}

	var meshes []Mesh
	for _, decodedObj := range decoder.Objects {
		builder := meshBuilder{
			decoder: decoder,
			flipV:   options.FlipV,
			unique:  make(map[Vertex]uint32),
			mesh:    Mesh{Name: decodedObj.Name, Model: mgl32.Ident4()},
		}

		for _, face := range decodedObj.Faces {
			for i := 2; i < len(face.Vertices); i++ {
				err = builder.addVertex(face, 0)
				if err == nil {
					err = builder.addVertex(face, i-1)
				}
				if err == nil {
					err = builder.addVertex(face, i)
				}
				if err != nil {
					return nil, errors.Wrapf(err, "object %q", decodedObj.Name)
				}
			}
		}

		if len(builder.mesh.Indices) > 0 {
			meshes = append(meshes, builder.mesh)
		}
	}

	if len(meshes) == 0 {
		return nil, errors.New("obj data contains no faces")
	}
	return meshes, nil
}

type meshBuilder struct {
	decoder *obj.Decoder
	flipV   bool
	unique  map[Vertex]uint32
	mesh    Mesh
}

func (b *meshBuilder) addVertex(face obj.Face, faceIndex int) error {
	vertInd := face.Vertices[faceIndex]
	if vertInd < 0 || vertInd*3+2 >= len(b.decoder.Vertices) {
		return errors.Newf("vertex index %d out of range", vertInd)
	}

	vert := Vertex{
		Position: vkngmath.Vec3[float32]{
			X: b.decoder.Vertices[vertInd*3],
			Y: b.decoder.Vertices[vertInd*3+1],
			Z: b.decoder.Vertices[vertInd*3+2],
		},
		Color: vkngmath.Vec3[float32]{X: 1, Y: 1, Z: 1},
	}

	if faceIndex < len(face.Uvs) {
		uvInd := face.Uvs[faceIndex]
		if uvInd >= 0 && uvInd*2+1 < len(b.decoder.Uvs) {
			v := b.decoder.Uvs[uvInd*2+1]
			if b.flipV {
				v = 1.0 - v
			}
			vert.TexCoord = vkngmath.Vec2[float32]{X: b.decoder.Uvs[uvInd*2], Y: v}
		}
	}

	index, vertexExists := b.unique[vert]
	if !vertexExists {
		index = uint32(len(b.mesh.Vertices))
		b.mesh.Vertices = append(b.mesh.Vertices, vert)
		b.unique[vert] = index
	}

	b.mesh.Indices = append(b.mesh.Indices, index)
	return nil
}
