// Package render records the per-frame command buffer: attachment layout transitions,
// the render pass and one indexed draw per mesh.
package render

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// PushConstantSize is the size of the per-draw push constant block: one 4x4 float matrix.
const PushConstantSize = 64

// PushConstantStages are the shader stages that read the push constant block.
const PushConstantStages = core1_0.StageVertex

// Target is the set of attachments a frame renders into.
type Target struct {
	RenderPass  core1_0.RenderPass
	Framebuffer core1_0.Framebuffer
	Extent      core1_0.Extent2D

	Color core1_0.Image
	// Depth is nil when the pass has no depth attachment.
	Depth       *core1_0.Image
	DepthAspect core1_0.ImageAspectFlags
}

// Pipeline is the bound state shared by every draw in the frame.
type Pipeline struct {
	Pipeline core1_0.Pipeline
	Layout   core1_0.PipelineLayout
	// DescriptorSet holds the texture and sampler. Nil binds nothing.
	DescriptorSet *core1_0.DescriptorSet
}

// Draw is one indexed mesh draw.
type Draw struct {
	Vertices   core1_0.Buffer
	Indices    core1_0.Buffer
	IndexCount int
	Model      mgl32.Mat4
}

// Scene is the per-frame camera input. Projection is expected to already have its Y axis
// flipped for Vulkan clip space.
type Scene struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
}

type Recorder struct {
	ClearColor [4]float32
	ClearDepth float32
}

// Record writes one complete frame into enc.
func (r *Recorder) Record(enc Encoder, target Target, pipeline Pipeline, draws []Draw, scene Scene) error {
	err := enc.Begin()
	if err != nil {
		return err
	}

	err = enc.Barrier(core1_0.PipelineStageColorAttachmentOutput, core1_0.PipelineStageColorAttachmentOutput, ColorAttachmentBarrier(target.Color))
	if err != nil {
		return errors.Wrap(err, "transition color attachment")
	}

	clearValues := []core1_0.ClearValue{
		core1_0.ClearValueFloat{r.ClearColor[0], r.ClearColor[1], r.ClearColor[2], r.ClearColor[3]},
	}

	if target.Depth != nil {
		depthStages := core1_0.PipelineStageEarlyFragmentTests | core1_0.PipelineStageLateFragmentTests
		err = enc.Barrier(depthStages, depthStages, DepthAttachmentBarrier(*target.Depth, target.DepthAspect))
		if err != nil {
			return errors.Wrap(err, "transition depth attachment")
		}
		clearValues = append(clearValues, core1_0.ClearValueDepthStencil{Depth: r.ClearDepth, Stencil: 0})
	}

	err = enc.BeginPass(core1_0.RenderPassBeginInfo{
		RenderPass:  target.RenderPass,
		Framebuffer: target.Framebuffer,
		RenderArea: core1_0.Rect2D{
			Offset: core1_0.Offset2D{X: 0, Y: 0},
			Extent: target.Extent,
		},
		ClearValues: clearValues,
	})
	if err != nil {
		return err
	}

	enc.BindPipeline(pipeline.Pipeline)
	if pipeline.DescriptorSet != nil {
		enc.BindDescriptorSet(pipeline.Layout, *pipeline.DescriptorSet)
	}

	viewProjection := scene.Projection.Mul4(scene.View)
	for _, draw := range draws {
		if draw.IndexCount == 0 {
			continue
		}

		enc.BindMesh(draw.Vertices, draw.Indices)
		enc.PushConstants(pipeline.Layout, PushConstantStages, PushConstantBytes(viewProjection.Mul4(draw.Model)))
		enc.DrawIndexed(draw.IndexCount)
	}

	enc.EndPass()

	err = enc.Barrier(core1_0.PipelineStageColorAttachmentOutput, core1_0.PipelineStageBottomOfPipe, PresentBarrier(target.Color))
	if err != nil {
		return errors.Wrap(err, "transition color attachment for presentation")
	}

	return enc.End()
}

// PushConstantBytes encodes a column-major matrix the way the vertex shader reads it.
func PushConstantBytes(m mgl32.Mat4) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, PushConstantSize))
	// Writing a fixed-size array into a bytes.Buffer cannot fail.
	_ = binary.Write(buf, common.ByteOrder, [16]float32(m))
	return buf.Bytes()
}

func colorRange() core1_0.ImageSubresourceRange {
	return core1_0.ImageSubresourceRange{
		AspectMask:     core1_0.ImageAspectColor,
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

// ColorAttachmentBarrier discards the previous contents of a swapchain image and makes
// it writable as a color attachment.
func ColorAttachmentBarrier(image core1_0.Image) core1_0.ImageMemoryBarrier {
	return core1_0.ImageMemoryBarrier{
		SrcAccessMask:       0,
		DstAccessMask:       core1_0.AccessColorAttachmentWrite,
		OldLayout:           core1_0.ImageLayoutUndefined,
		NewLayout:           core1_0.ImageLayoutColorAttachmentOptimal,
		SrcQueueFamilyIndex: -1,
		DstQueueFamilyIndex: -1,
		Image:               image,
		SubresourceRange:    colorRange(),
	}
}

// DepthAttachmentBarrier discards the previous frame's depth and makes the image
// writable as a depth attachment.
func DepthAttachmentBarrier(image core1_0.Image, aspect core1_0.ImageAspectFlags) core1_0.ImageMemoryBarrier {
	return core1_0.ImageMemoryBarrier{
		SrcAccessMask:       core1_0.AccessDepthStencilAttachmentWrite,
		DstAccessMask:       core1_0.AccessDepthStencilAttachmentRead | core1_0.AccessDepthStencilAttachmentWrite,
		OldLayout:           core1_0.ImageLayoutUndefined,
		NewLayout:           core1_0.ImageLayoutDepthStencilAttachmentOptimal,
		SrcQueueFamilyIndex: -1,
		DstQueueFamilyIndex: -1,
		Image:               image,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
}

// PresentBarrier hands a rendered swapchain image to the presentation engine.
func PresentBarrier(image core1_0.Image) core1_0.ImageMemoryBarrier {
	return core1_0.ImageMemoryBarrier{
		SrcAccessMask:       core1_0.AccessColorAttachmentWrite,
		DstAccessMask:       0,
		OldLayout:           core1_0.ImageLayoutColorAttachmentOptimal,
		NewLayout:           khr_swapchain.ImageLayoutPresentSrc,
		SrcQueueFamilyIndex: -1,
		DstQueueFamilyIndex: -1,
		Image:               image,
		SubresourceRange:    colorRange(),
	}
}
