package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/vkforward/assets"
	"github.com/vkngwrapper/vkforward/renderer/memory"
	"github.com/vkngwrapper/vkforward/renderer/render"
	"github.com/vkngwrapper/vkforward/renderer/upload"
)

// Mesh is a mesh resident in device-local vertex and index buffers.
type Mesh struct {
	Name       string
	Vertices   *memory.Buffer
	Indices    *memory.Buffer
	IndexCount int
	Model      mgl32.Mat4
}

func uploadMesh(uploader *upload.Uploader, mesh assets.Mesh) (*Mesh, error) {
	if len(mesh.Vertices) == 0 || len(mesh.Indices) == 0 {
		return nil, errors.Newf("mesh %q has no geometry", mesh.Name)
	}

	vertices, err := uploader.UploadBuffer(mesh.Name+" vertices", mesh.Vertices, core1_0.BufferUsageVertexBuffer)
	if err != nil {
		return nil, err
	}

	indices, err := uploader.UploadBuffer(mesh.Name+" indices", mesh.Indices, core1_0.BufferUsageIndexBuffer)
	if err != nil {
		vertices.Destroy()
		return nil, err
	}

	return &Mesh{
		Name:       mesh.Name,
		Vertices:   vertices,
		Indices:    indices,
		IndexCount: len(mesh.Indices),
		Model:      mesh.Model,
	}, nil
}

func (m *Mesh) Destroy() {
	m.Indices.Destroy()
	m.Vertices.Destroy()
}

func (m *Mesh) draw() render.Draw {
	return render.Draw{
		Vertices:   m.Vertices.Buffer,
		Indices:    m.Indices.Buffer,
		IndexCount: m.IndexCount,
		Model:      m.Model,
	}
}
