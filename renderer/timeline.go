package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/vkforward/renderer/frame"
)

// vkSync creates the frame synchronization primitives on the device.
type vkSync struct {
	driver core1_0.CoreDeviceDriver
}

func (s vkSync) NewSemaphore() (core1_0.Semaphore, error) {
	semaphore, _, err := s.driver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	return semaphore, err
}

func (s vkSync) NewFence(signaled bool) (core1_0.Fence, error) {
	var flags core1_0.FenceCreateFlags
	if signaled {
		flags = core1_0.FenceCreateSignaled
	}

	fence, _, err := s.driver.CreateFence(nil, core1_0.FenceCreateInfo{
		Flags: flags,
	})
	return fence, err
}

func (s vkSync) DestroySemaphore(semaphore core1_0.Semaphore) {
	s.driver.DestroySemaphore(semaphore, nil)
}

func (s vkSync) DestroyFence(fence core1_0.Fence) {
	s.driver.DestroyFence(fence, nil)
}

// timeline drives the engine's queues on behalf of the frame scheduler.
type timeline struct {
	e *Engine
}

var _ frame.Timeline = timeline{}

func (t timeline) WaitForSlot(slot int) error {
	_, err := t.e.ctx.Device.WaitForFences(true, common.NoTimeout, t.e.sync.InFlight[slot])
	return err
}

func (t timeline) ResetSlot(slot int) error {
	_, err := t.e.ctx.Device.ResetFences(t.e.sync.InFlight[slot])
	return err
}

func (t timeline) AcquireImage(slot int) (int, error) {
	imageIndex, res, err := t.e.ctx.SwapchainDriver.AcquireNextImage(t.e.swapchain.Swapchain, common.NoTimeout, &t.e.sync.ImageAvailable[slot], nil)
	if res == khr_swapchain.VKErrorOutOfDate {
		return 0, frame.ErrSurfaceStale
	} else if err != nil {
		return 0, err
	}

	// Suboptimal still delivers a usable image; presentation reports it again.
	return imageIndex, nil
}

func (t timeline) ResetCommands(slot int) error {
	_, err := t.e.ctx.Device.ResetCommandBuffer(t.e.commandBuffers[slot], 0)
	return err
}

func (t timeline) Submit(slot, image int) error {
	_, err := t.e.ctx.Device.QueueSubmit(t.e.ctx.GraphicsQueue, &t.e.sync.InFlight[slot],
		core1_0.SubmitInfo{
			WaitSemaphores:   []core1_0.Semaphore{t.e.sync.ImageAvailable[slot]},
			WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
			CommandBuffers:   []core1_0.CommandBuffer{t.e.commandBuffers[slot]},
			SignalSemaphores: []core1_0.Semaphore{t.e.sync.RenderFinished[image]},
		},
	)
	return err
}

func (t timeline) Present(slot, image int) error {
	res, err := t.e.ctx.SwapchainDriver.QueuePresent(t.e.ctx.PresentQueue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{t.e.sync.RenderFinished[image]},
		Swapchains:     []khr_swapchain.Swapchain{t.e.swapchain.Swapchain},
		ImageIndices:   []int{image},
	})
	if res == khr_swapchain.VKErrorOutOfDate || res == khr_swapchain.VKSuboptimal {
		return frame.ErrSurfaceStale
	} else if err != nil {
		return errors.Wrap(err, "queue present")
	}
	return nil
}

func (t timeline) SurfaceChanged() bool {
	return t.e.window.TakeResized()
}

func (t timeline) RecreateSurface() error {
	return t.e.recreateSwapchain()
}
