package upload

import (
	"math/bits"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Transition is an image barrier together with the pipeline stages it sits between.
type Transition struct {
	SrcStage core1_0.PipelineStageFlags
	DstStage core1_0.PipelineStageFlags
	Barrier  core1_0.ImageMemoryBarrier
}

// LayoutTransition builds the barrier for the layout changes a texture goes through
// during upload. Unknown pairs fall back to a full pipeline barrier.
func LayoutTransition(image core1_0.Image, oldLayout, newLayout core1_0.ImageLayout, baseMip, levelCount int) Transition {
	transition := Transition{
		SrcStage: core1_0.PipelineStageAllCommands,
		DstStage: core1_0.PipelineStageAllCommands,
		Barrier: core1_0.ImageMemoryBarrier{
			OldLayout:           oldLayout,
			NewLayout:           newLayout,
			SrcQueueFamilyIndex: -1,
			DstQueueFamilyIndex: -1,
			Image:               image,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     core1_0.ImageAspectColor,
				BaseMipLevel:   baseMip,
				LevelCount:     levelCount,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			SrcAccessMask: core1_0.AccessMemoryWrite,
			DstAccessMask: core1_0.AccessMemoryRead | core1_0.AccessMemoryWrite,
		},
	}

	switch {
	case oldLayout == core1_0.ImageLayoutUndefined && newLayout == core1_0.ImageLayoutTransferDstOptimal:
		transition.SrcStage = core1_0.PipelineStageTopOfPipe
		transition.DstStage = core1_0.PipelineStageTransfer
		transition.Barrier.SrcAccessMask = 0
		transition.Barrier.DstAccessMask = core1_0.AccessTransferWrite
	case oldLayout == core1_0.ImageLayoutTransferDstOptimal && newLayout == core1_0.ImageLayoutTransferSrcOptimal:
		transition.SrcStage = core1_0.PipelineStageTransfer
		transition.DstStage = core1_0.PipelineStageTransfer
		transition.Barrier.SrcAccessMask = core1_0.AccessTransferWrite
		transition.Barrier.DstAccessMask = core1_0.AccessTransferRead
	case oldLayout == core1_0.ImageLayoutTransferDstOptimal && newLayout == core1_0.ImageLayoutShaderReadOnlyOptimal:
		transition.SrcStage = core1_0.PipelineStageTransfer
		transition.DstStage = core1_0.PipelineStageFragmentShader
		transition.Barrier.SrcAccessMask = core1_0.AccessTransferWrite
		transition.Barrier.DstAccessMask = core1_0.AccessShaderRead
	case oldLayout == core1_0.ImageLayoutTransferSrcOptimal && newLayout == core1_0.ImageLayoutShaderReadOnlyOptimal:
		transition.SrcStage = core1_0.PipelineStageTransfer
		transition.DstStage = core1_0.PipelineStageFragmentShader
		transition.Barrier.SrcAccessMask = core1_0.AccessTransferRead
		transition.Barrier.DstAccessMask = core1_0.AccessShaderRead
	}

	return transition
}

func CopyRegion(width, height int) core1_0.BufferImageCopy {
	return core1_0.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,

		ImageSubresource: core1_0.ImageSubresourceLayers{
			AspectMask:     core1_0.ImageAspectColor,
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: core1_0.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: core1_0.Extent3D{Width: width, Height: height, Depth: 1},
	}
}

// MipLevels is the length of the full mip chain for an image, down to and including 1x1.
func MipLevels(width, height int) int {
	largest := width
	if height > largest {
		largest = height
	}
	if largest < 1 {
		return 1
	}
	return bits.Len(uint(largest))
}

// MipBlit describes the blit that produces level from level-1.
func MipBlit(level, srcWidth, srcHeight int) (core1_0.ImageBlit, int, int) {
	dstWidth := srcWidth
	dstHeight := srcHeight
	if dstWidth > 1 {
		dstWidth /= 2
	}
	if dstHeight > 1 {
		dstHeight /= 2
	}

	return core1_0.ImageBlit{
		SrcSubresource: core1_0.ImageSubresourceLayers{
			AspectMask:     core1_0.ImageAspectColor,
			MipLevel:       level - 1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		SrcOffsets: [2]core1_0.Offset3D{
			{X: 0, Y: 0, Z: 0},
			{X: srcWidth, Y: srcHeight, Z: 1},
		},

		DstSubresource: core1_0.ImageSubresourceLayers{
			AspectMask:     core1_0.ImageAspectColor,
			MipLevel:       level,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		DstOffsets: [2]core1_0.Offset3D{
			{X: 0, Y: 0, Z: 0},
			{X: dstWidth, Y: dstHeight, Z: 1},
		},
	}, dstWidth, dstHeight
}

// generateMipmaps expects every level in transfer-dst layout with level 0 filled. Each
// level is blitted from the one above it, and every level ends in shader-read-only layout.
func (u *Uploader) generateMipmaps(commandBuffer core1_0.CommandBuffer, image core1_0.Image, width, height, mipLevels int) error {
	driver := u.ctx.Device

	mipWidth := width
	mipHeight := height
	for level := 1; level < mipLevels; level++ {
		toSource := LayoutTransition(image, core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutTransferSrcOptimal, level-1, 1)
		err := driver.CmdPipelineBarrier(commandBuffer, toSource.SrcStage, toSource.DstStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{toSource.Barrier})
		if err != nil {
			return errors.Wrapf(err, "transition mip level %d to transfer source", level-1)
		}

		blit, nextWidth, nextHeight := MipBlit(level, mipWidth, mipHeight)
		err = driver.CmdBlitImage(commandBuffer, image, core1_0.ImageLayoutTransferSrcOptimal, image, core1_0.ImageLayoutTransferDstOptimal, []core1_0.ImageBlit{blit}, core1_0.FilterLinear)
		if err != nil {
			return errors.Wrapf(err, "blit mip level %d", level)
		}

		toShader := LayoutTransition(image, core1_0.ImageLayoutTransferSrcOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal, level-1, 1)
		err = driver.CmdPipelineBarrier(commandBuffer, toShader.SrcStage, toShader.DstStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{toShader.Barrier})
		if err != nil {
			return errors.Wrapf(err, "transition mip level %d to shader read", level-1)
		}

		mipWidth = nextWidth
		mipHeight = nextHeight
	}

	last := LayoutTransition(image, core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal, mipLevels-1, 1)
	err := driver.CmdPipelineBarrier(commandBuffer, last.SrcStage, last.DstStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{last.Barrier})
	if err != nil {
		return errors.Wrapf(err, "transition mip level %d to shader read", mipLevels-1)
	}

	return nil
}
