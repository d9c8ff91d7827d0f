package render

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

type barrierCall struct {
	src, dst core1_0.PipelineStageFlags
	barriers []core1_0.ImageMemoryBarrier
}

type recordingEncoder struct {
	calls       []string
	barriers    []barrierCall
	pass        core1_0.RenderPassBeginInfo
	pushed      [][]byte
	indexCounts []int
}

func (e *recordingEncoder) Begin() error {
	e.calls = append(e.calls, "begin")
	return nil
}

func (e *recordingEncoder) Barrier(src, dst core1_0.PipelineStageFlags, barriers ...core1_0.ImageMemoryBarrier) error {
	e.calls = append(e.calls, "barrier")
	e.barriers = append(e.barriers, barrierCall{src: src, dst: dst, barriers: barriers})
	return nil
}

func (e *recordingEncoder) BeginPass(info core1_0.RenderPassBeginInfo) error {
	e.calls = append(e.calls, "begin pass")
	e.pass = info
	return nil
}

func (e *recordingEncoder) BindPipeline(core1_0.Pipeline) {
	e.calls = append(e.calls, "bind pipeline")
}

func (e *recordingEncoder) BindDescriptorSet(core1_0.PipelineLayout, core1_0.DescriptorSet) {
	e.calls = append(e.calls, "bind descriptor set")
}

func (e *recordingEncoder) BindMesh(core1_0.Buffer, core1_0.Buffer) {
	e.calls = append(e.calls, "bind mesh")
}

func (e *recordingEncoder) PushConstants(_ core1_0.PipelineLayout, stages core1_0.ShaderStageFlags, data []byte) {
	e.calls = append(e.calls, fmt.Sprintf("push %d", len(data)))
	e.pushed = append(e.pushed, data)
}

func (e *recordingEncoder) DrawIndexed(indexCount int) {
	e.calls = append(e.calls, "draw")
	e.indexCounts = append(e.indexCounts, indexCount)
}

func (e *recordingEncoder) EndPass() {
	e.calls = append(e.calls, "end pass")
}

func (e *recordingEncoder) End() error {
	e.calls = append(e.calls, "end")
	return nil
}

func decodeMatrix(t *testing.T, data []byte) mgl32.Mat4 {
	var m [16]float32
	require.NoError(t, binary.Read(bytes.NewReader(data), common.ByteOrder, &m))
	return mgl32.Mat4(m)
}

func TestRecordWithDepthAndTexture(t *testing.T) {
	depth := core1_0.Image{}
	set := core1_0.DescriptorSet{}
	target := Target{
		Extent:      core1_0.Extent2D{Width: 800, Height: 600},
		Depth:       &depth,
		DepthAspect: core1_0.ImageAspectDepth,
	}
	draws := []Draw{
		{IndexCount: 36, Model: mgl32.Translate3D(1, 2, 3)},
		{IndexCount: 6, Model: mgl32.Ident4()},
	}
	scene := Scene{
		View:       mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}),
		Projection: mgl32.Perspective(mgl32.DegToRad(70), 4.0/3.0, 0.1, 200),
	}

	recorder := &Recorder{ClearColor: [4]float32{0.1, 0.1, 0.1, 1}, ClearDepth: 1}
	enc := &recordingEncoder{}
	require.NoError(t, recorder.Record(enc, target, Pipeline{DescriptorSet: &set}, draws, scene))

	assert.Equal(t, []string{
		"begin",
		"barrier",
		"barrier",
		"begin pass",
		"bind pipeline",
		"bind descriptor set",
		"bind mesh",
		"push 64",
		"draw",
		"bind mesh",
		"push 64",
		"draw",
		"end pass",
		"barrier",
		"end",
	}, enc.calls)

	require.Len(t, enc.barriers, 3)
	color := enc.barriers[0].barriers[0]
	assert.Equal(t, core1_0.ImageLayoutUndefined, color.OldLayout)
	assert.Equal(t, core1_0.ImageLayoutColorAttachmentOptimal, color.NewLayout)
	assert.Equal(t, core1_0.PipelineStageColorAttachmentOutput, enc.barriers[0].dst)

	depthBarrier := enc.barriers[1].barriers[0]
	assert.Equal(t, core1_0.ImageLayoutDepthStencilAttachmentOptimal, depthBarrier.NewLayout)
	assert.Equal(t, core1_0.ImageAspectDepth, depthBarrier.SubresourceRange.AspectMask)

	present := enc.barriers[2].barriers[0]
	assert.Equal(t, core1_0.ImageLayoutColorAttachmentOptimal, present.OldLayout)
	assert.Equal(t, khr_swapchain.ImageLayoutPresentSrc, present.NewLayout)
	assert.Equal(t, core1_0.PipelineStageBottomOfPipe, enc.barriers[2].dst)

	require.Len(t, enc.pass.ClearValues, 2)
	assert.Equal(t, core1_0.ClearValueFloat{0.1, 0.1, 0.1, 1}, enc.pass.ClearValues[0])
	assert.Equal(t, core1_0.ClearValueDepthStencil{Depth: 1}, enc.pass.ClearValues[1])
	assert.Equal(t, target.Extent, enc.pass.RenderArea.Extent)

	assert.Equal(t, []int{36, 6}, enc.indexCounts)

	want := scene.Projection.Mul4(scene.View).Mul4(draws[0].Model)
	assert.True(t, want.ApproxEqual(decodeMatrix(t, enc.pushed[0])))
	want = scene.Projection.Mul4(scene.View)
	assert.True(t, want.ApproxEqual(decodeMatrix(t, enc.pushed[1])))
}

func TestRecordWithoutDepthOrTexture(t *testing.T) {
	enc := &recordingEncoder{}
	recorder := &Recorder{ClearDepth: 1}
	draws := []Draw{{IndexCount: 0}, {IndexCount: 3, Model: mgl32.Ident4()}}

	require.NoError(t, recorder.Record(enc, Target{}, Pipeline{}, draws, Scene{View: mgl32.Ident4(), Projection: mgl32.Ident4()}))

	assert.NotContains(t, enc.calls, "bind descriptor set")
	assert.Len(t, enc.barriers, 2)
	assert.Len(t, enc.pass.ClearValues, 1)
	assert.Equal(t, []int{3}, enc.indexCounts)
}

func TestPushConstantBytesLayout(t *testing.T) {
	m := mgl32.Translate3D(7, 8, 9)
	data := PushConstantBytes(m)
	require.Len(t, data, PushConstantSize)

	// Column-major: the translation sits in elements 12..14.
	decoded := decodeMatrix(t, data)
	assert.Equal(t, float32(7), decoded[12])
	assert.Equal(t, float32(8), decoded[13])
	assert.Equal(t, float32(9), decoded[14])
}
