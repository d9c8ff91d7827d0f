package assets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vkngmath "github.com/vkngwrapper/math"
)

const quadOBJ = `o quad
v -1 -1 0
v 1 -1 0
v 1 1 0
v -1 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
f 1/1 2/2 3/3
f 1/1 3/3 4/4
`

func TestDecodeMeshDeduplicatesVertices(t *testing.T) {
	meshes, err := DecodeMesh(strings.NewReader(quadOBJ), strings.NewReader(""), MeshOptions{})
	require.NoError(t, err)
	require.Len(t, meshes, 1)

	mesh := meshes[0]
	assert.Equal(t, "quad", mesh.Name)
	assert.Len(t, mesh.Vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, mesh.Indices)
	assert.Equal(t, mgl32.Ident4(), mesh.Model)

	for _, vertex := range mesh.Vertices {
		assert.Equal(t, vkngmath.Vec3[float32]{X: 1, Y: 1, Z: 1}, vertex.Color)
	}
	assert.Equal(t, vkngmath.Vec2[float32]{X: 1, Y: 1}, mesh.Vertices[2].TexCoord)
}

func TestDecodeMeshSplitsVerticesWithDifferentUVs(t *testing.T) {
	// Same position, two texture coordinates: both vertices must survive.
	data := `o seam
v 0 0 0
v 1 0 0
v 0 1 0
vt 0 0
vt 1 0
vt 0 1
vt 0.5 0.5
f 1/1 2/2 3/3
f 1/4 3/3 2/2
`
	meshes, err := DecodeMesh(strings.NewReader(data), strings.NewReader(""), MeshOptions{})
	require.NoError(t, err)
	require.Len(t, meshes, 1)
	assert.Len(t, meshes[0].Vertices, 4)
	assert.Len(t, meshes[0].Indices, 6)
}

func TestDecodeMeshTriangulatesPolygons(t *testing.T) {
	data := `o pentagon
v 0 1 0
v -1 0 0
v -0.5 -1 0
v 0.5 -1 0
v 1 0 0
f 1 2 3 4 5
`
	meshes, err := DecodeMesh(strings.NewReader(data), strings.NewReader(""), MeshOptions{})
	require.NoError(t, err)
	require.Len(t, meshes, 1)

	assert.Len(t, meshes[0].Vertices, 5)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3, 0, 3, 4}, meshes[0].Indices)
}

func TestDecodeMeshFlipsV(t *testing.T) {
	meshes, err := DecodeMesh(strings.NewReader(quadOBJ), strings.NewReader(""), MeshOptions{FlipV: true})
	require.NoError(t, err)

	assert.Equal(t, vkngmath.Vec2[float32]{X: 0, Y: 1}, meshes[0].Vertices[0].TexCoord)
	assert.Equal(t, vkngmath.Vec2[float32]{X: 1, Y: 0}, meshes[0].Vertices[2].TexCoord)
}

func TestDecodeMeshPerObject(t *testing.T) {
	data := quadOBJ + `o tri
v 0 0 1
v 1 0 1
v 0 1 1
f 5 6 7
`
	meshes, err := DecodeMesh(strings.NewReader(data), strings.NewReader(""), MeshOptions{})
	require.NoError(t, err)
	require.Len(t, meshes, 2)

	assert.Equal(t, "tri", meshes[1].Name)
	assert.Len(t, meshes[1].Vertices, 3)
	assert.Equal(t, []uint32{0, 1, 2}, meshes[1].Indices)
}

func TestDecodeMeshWithoutFaces(t *testing.T) {
	_, err := DecodeMesh(strings.NewReader("o empty\nv 0 0 0\n"), strings.NewReader(""), MeshOptions{})
	require.Error(t, err)
}

func TestLoadMeshMissingFile(t *testing.T) {
	_, err := LoadMesh(filepath.Join(t.TempDir(), "missing.obj"), MeshOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadMeshReadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.obj")
	require.NoError(t, os.WriteFile(path, []byte(quadOBJ), 0o644))

	meshes, err := LoadMesh(path, MeshOptions{})
	require.NoError(t, err)
	require.Len(t, meshes, 1)
	assert.Len(t, meshes[0].Indices, 6)
}
