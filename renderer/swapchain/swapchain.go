// Package swapchain builds the chain of presentable images for the context's surface.
package swapchain

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/vkforward/renderer/device"
	"github.com/vkngwrapper/vkforward/renderer/memory"
	"github.com/vkngwrapper/vkforward/renderer/surface"
)

// State is one generation of the swapchain together with a color view per image.
type State struct {
	Swapchain   khr_swapchain.Swapchain
	Images      []core1_0.Image
	Views       []core1_0.ImageView
	Format      core1_0.Format
	ColorSpace  khr_surface.ColorSpace
	Extent      core1_0.Extent2D
	PresentMode khr_surface.PresentMode
}

func (s *State) ImageCount() int {
	return len(s.Images)
}

// SharingMode returns the sharing mode and family list for swapchain images used by
// the given queue families.
func SharingMode(families device.QueueFamilies) (core1_0.SharingMode, []int) {
	if families.Shared() {
		return core1_0.SharingModeExclusive, nil
	}
	return core1_0.SharingModeConcurrent, []int{families.Graphics, families.Present}
}

// Create negotiates a configuration for the surface and builds the swapchain and its
// views. drawableWidth and drawableHeight are the window's current framebuffer size.
func Create(ctx *device.Context, drawableWidth, drawableHeight int) (*State, error) {
	support, err := surface.QuerySupport(ctx.SurfaceDriver, ctx.Surface, ctx.PhysicalDevice)
	if err != nil {
		return nil, err
	}

	config, err := surface.Negotiate(support, drawableWidth, drawableHeight)
	if err != nil {
		return nil, errors.Wrap(err, "negotiate swapchain")
	}

	sharingMode, queueFamilyIndices := SharingMode(ctx.Info.QueueFamilies)

	swapchain, _, err := ctx.SwapchainDriver.CreateSwapchain(nil, khr_swapchain.SwapchainCreateInfo{
		Surface: ctx.Surface,

		MinImageCount:    config.ImageCount,
		ImageFormat:      config.Format.Format,
		ImageColorSpace:  config.Format.ColorSpace,
		ImageExtent:      config.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: queueFamilyIndices,

		PreTransform:   config.Transform,
		CompositeAlpha: config.CompositeAlpha,
		PresentMode:    config.PresentMode,
		Clipped:        true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create swapchain")
	}

	state := &State{
		Swapchain:   swapchain,
		Format:      config.Format.Format,
		ColorSpace:  config.Format.ColorSpace,
		Extent:      config.Extent,
		PresentMode: config.PresentMode,
	}

	state.Images, _, err = ctx.SwapchainDriver.GetSwapchainImages(swapchain)
	if err != nil {
		state.Destroy(ctx)
		return nil, errors.Wrap(err, "get swapchain images")
	}

	for i, image := range state.Images {
		view, err := memory.CreateImageView(ctx.Device, image, state.Format, core1_0.ImageAspectColor, 1)
		if err != nil {
			state.Destroy(ctx)
			return nil, errors.Wrapf(err, "create view for swapchain image %d", i)
		}
		state.Views = append(state.Views, view)
	}

	return state, nil
}

// Destroy destroys the views and then the swapchain. The device must be idle.
func (s *State) Destroy(ctx *device.Context) {
	for _, view := range s.Views {
		ctx.Device.DestroyImageView(view, nil)
	}
	s.Views = nil
	s.Images = nil

	if s.Swapchain.Initialized() {
		ctx.SwapchainDriver.DestroySwapchain(s.Swapchain, nil)
		s.Swapchain = khr_swapchain.Swapchain{}
	}
}
