package upload

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/vkforward/renderer/device"
	"github.com/vkngwrapper/vkforward/renderer/memory"
)

// TextureFormat is the format every uploaded texture is stored in.
const TextureFormat = core1_0.FormatR8G8B8A8SRGB

// Uploader moves host data into device-local memory through short-lived command buffers
// that are submitted and waited on immediately. It is meant for load time only: every
// call blocks until the graphics queue is idle.
type Uploader struct {
	ctx       *device.Context
	allocator *memory.Allocator
	pool      core1_0.CommandPool
}

func New(ctx *device.Context, allocator *memory.Allocator) (*Uploader, error) {
	pool, _, err := ctx.Device.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateTransient,
		QueueFamilyIndex: ctx.Info.QueueFamilies.Graphics,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create upload command pool")
	}

	return &Uploader{
		ctx:       ctx,
		allocator: allocator,
		pool:      pool,
	}, nil
}

func (u *Uploader) Destroy() {
	if u.pool.Initialized() {
		u.ctx.Device.DestroyCommandPool(u.pool, nil)
		u.pool = core1_0.CommandPool{}
	}
}

// RunOnce records the commands written by record into a one-time-submit command buffer,
// submits it to the graphics queue and waits for the queue to drain.
func (u *Uploader) RunOnce(record func(commandBuffer core1_0.CommandBuffer) error) error {
	driver := u.ctx.Device

	buffers, _, err := driver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        u.pool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return errors.Wrap(err, "allocate upload command buffer")
	}
	commandBuffer := buffers[0]
	defer driver.FreeCommandBuffers(commandBuffer)

	_, err = driver.BeginCommandBuffer(commandBuffer, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		return errors.Wrap(err, "begin upload command buffer")
	}

	err = record(commandBuffer)
	if err != nil {
		return err
	}

	_, err = driver.EndCommandBuffer(commandBuffer)
	if err != nil {
		return errors.Wrap(err, "end upload command buffer")
	}

	_, err = driver.QueueSubmit(u.ctx.GraphicsQueue, nil,
		core1_0.SubmitInfo{
			CommandBuffers: []core1_0.CommandBuffer{commandBuffer},
		},
	)
	if err != nil {
		return errors.Wrap(err, "submit upload command buffer")
	}

	_, err = driver.QueueWaitIdle(u.ctx.GraphicsQueue)
	if err != nil {
		return errors.Wrap(err, "wait for upload to complete")
	}

	return nil
}

func (u *Uploader) staging(name string, data any) (*memory.Buffer, int, error) {
	size := binary.Size(data)
	if size <= 0 {
		return nil, 0, errors.Newf("upload %s: cannot determine a positive size for %T", name, data)
	}

	staging, err := u.allocator.CreateBuffer(memory.BufferCreateInfo{
		Name:        name + " staging",
		Size:        size,
		Usage:       core1_0.BufferUsageTransferSrc,
		MemoryUsage: memory.MemoryUsageCPUOnly,
	})
	if err != nil {
		return nil, 0, err
	}

	err = staging.Write(0, data)
	if err != nil {
		staging.Destroy()
		return nil, 0, errors.Wrapf(err, "fill %s staging buffer", name)
	}

	return staging, size, nil
}

// UploadBuffer creates a device-local buffer with the given usage and fills it with data,
// which must be a fixed-size value or slice accepted by encoding/binary.
func (u *Uploader) UploadBuffer(name string, data any, usage core1_0.BufferUsageFlags) (*memory.Buffer, error) {
	staging, size, err := u.staging(name, data)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	buffer, err := u.allocator.CreateBuffer(memory.BufferCreateInfo{
		Name:        name,
		Size:        size,
		Usage:       usage | core1_0.BufferUsageTransferDst,
		MemoryUsage: memory.MemoryUsageGPUOnly,
	})
	if err != nil {
		return nil, err
	}

	err = u.RunOnce(func(commandBuffer core1_0.CommandBuffer) error {
		return u.ctx.Device.CmdCopyBuffer(commandBuffer, staging.Buffer, buffer.Buffer,
			core1_0.BufferCopy{
				SrcOffset: 0,
				DstOffset: 0,
				Size:      size,
			},
		)
	})
	if err != nil {
		buffer.Destroy()
		return nil, errors.Wrapf(err, "copy %s to device memory", name)
	}

	return buffer, nil
}

// UploadTexture creates a sampled RGBA8 sRGB image from tightly packed pixels and leaves
// every mip level in the shader-read-only layout. When mipmaps is set and the format can
// be blitted with linear filtering, the remaining levels are generated on the GPU.
func (u *Uploader) UploadTexture(name string, pixels []byte, width, height int, mipmaps bool) (*memory.Image, error) {
	if width <= 0 || height <= 0 || len(pixels) != width*height*4 {
		return nil, errors.Newf("upload %s: %d bytes do not describe a %dx%d RGBA image", name, len(pixels), width, height)
	}

	mipLevels := 1
	if mipmaps {
		properties := u.ctx.Instance.GetPhysicalDeviceFormatProperties(u.ctx.PhysicalDevice, TextureFormat)
		if (properties.OptimalTilingFeatures & core1_0.FormatFeatureSampledImageFilterLinear) != 0 {
			mipLevels = MipLevels(width, height)
		}
	}

	staging, _, err := u.staging(name, pixels)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	usage := core1_0.ImageUsageTransferDst | core1_0.ImageUsageSampled
	if mipLevels > 1 {
		usage |= core1_0.ImageUsageTransferSrc
	}

	image, err := u.allocator.CreateImage(memory.ImageCreateInfo{
		Name:      name,
		Width:     width,
		Height:    height,
		MipLevels: mipLevels,
		Format:    TextureFormat,
		Usage:     usage,
		Aspect:    core1_0.ImageAspectColor,
	})
	if err != nil {
		return nil, err
	}

	err = u.RunOnce(func(commandBuffer core1_0.CommandBuffer) error {
		driver := u.ctx.Device

		toTransfer := LayoutTransition(image.Image, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal, 0, mipLevels)
		err := driver.CmdPipelineBarrier(commandBuffer, toTransfer.SrcStage, toTransfer.DstStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{toTransfer.Barrier})
		if err != nil {
			return errors.Wrap(err, "transition texture to transfer destination")
		}

		err = driver.CmdCopyBufferToImage(commandBuffer, staging.Buffer, image.Image, core1_0.ImageLayoutTransferDstOptimal, CopyRegion(width, height))
		if err != nil {
			return errors.Wrap(err, "copy texture pixels")
		}

		if mipLevels > 1 {
			return u.generateMipmaps(commandBuffer, image.Image, width, height, mipLevels)
		}

		toShader := LayoutTransition(image.Image, core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal, 0, mipLevels)
		err = driver.CmdPipelineBarrier(commandBuffer, toShader.SrcStage, toShader.DstStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{toShader.Barrier})
		if err != nil {
			return errors.Wrap(err, "transition texture to shader read")
		}
		return nil
	})
	if err != nil {
		image.Destroy()
		return nil, errors.Wrapf(err, "upload texture %s", name)
	}

	return image, nil
}
