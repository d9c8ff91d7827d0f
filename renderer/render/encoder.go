package render

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Encoder is the subset of command buffer recording used by the Recorder.
type Encoder interface {
	Begin() error
	Barrier(srcStage, dstStage core1_0.PipelineStageFlags, barriers ...core1_0.ImageMemoryBarrier) error
	BeginPass(info core1_0.RenderPassBeginInfo) error
	BindPipeline(pipeline core1_0.Pipeline)
	BindDescriptorSet(layout core1_0.PipelineLayout, set core1_0.DescriptorSet)
	BindMesh(vertices, indices core1_0.Buffer)
	PushConstants(layout core1_0.PipelineLayout, stages core1_0.ShaderStageFlags, data []byte)
	DrawIndexed(indexCount int)
	EndPass()
	End() error
}

type commandEncoder struct {
	driver        core1_0.CoreDeviceDriver
	commandBuffer core1_0.CommandBuffer
}

// NewEncoder records into commandBuffer through driver.
func NewEncoder(driver core1_0.CoreDeviceDriver, commandBuffer core1_0.CommandBuffer) Encoder {
	return &commandEncoder{driver: driver, commandBuffer: commandBuffer}
}

func (e *commandEncoder) Begin() error {
	_, err := e.driver.BeginCommandBuffer(e.commandBuffer, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	return errors.Wrap(err, "begin command buffer")
}

func (e *commandEncoder) Barrier(srcStage, dstStage core1_0.PipelineStageFlags, barriers ...core1_0.ImageMemoryBarrier) error {
	err := e.driver.CmdPipelineBarrier(e.commandBuffer, srcStage, dstStage, 0, nil, nil, barriers)
	return errors.Wrap(err, "record pipeline barrier")
}

func (e *commandEncoder) BeginPass(info core1_0.RenderPassBeginInfo) error {
	err := e.driver.CmdBeginRenderPass(e.commandBuffer, core1_0.SubpassContentsInline, info)
	return errors.Wrap(err, "begin render pass")
}

func (e *commandEncoder) BindPipeline(pipeline core1_0.Pipeline) {
	e.driver.CmdBindPipeline(e.commandBuffer, core1_0.PipelineBindPointGraphics, pipeline)
}

func (e *commandEncoder) BindDescriptorSet(layout core1_0.PipelineLayout, set core1_0.DescriptorSet) {
	e.driver.CmdBindDescriptorSets(e.commandBuffer, core1_0.PipelineBindPointGraphics, layout, 0, []core1_0.DescriptorSet{set}, nil)
}

func (e *commandEncoder) BindMesh(vertices, indices core1_0.Buffer) {
	e.driver.CmdBindVertexBuffers(e.commandBuffer, 0, []core1_0.Buffer{vertices}, []int{0})
	e.driver.CmdBindIndexBuffer(e.commandBuffer, indices, 0, core1_0.IndexTypeUInt32)
}

func (e *commandEncoder) PushConstants(layout core1_0.PipelineLayout, stages core1_0.ShaderStageFlags, data []byte) {
	e.driver.CmdPushConstants(e.commandBuffer, layout, stages, 0, data)
}

func (e *commandEncoder) DrawIndexed(indexCount int) {
	e.driver.CmdDrawIndexed(e.commandBuffer, indexCount, 1, 0, 0, 0)
}

func (e *commandEncoder) EndPass() {
	e.driver.CmdEndRenderPass(e.commandBuffer)
}

func (e *commandEncoder) End() error {
	_, err := e.driver.EndCommandBuffer(e.commandBuffer)
	return errors.Wrap(err, "end command buffer")
}
