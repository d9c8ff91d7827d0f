package surface

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// UndefinedExtent is the width reported in CurrentExtent when the surface size is
// determined by the swapchain rather than the window system. The driver widens the
// uint32 0xFFFFFFFF into an int without sign extension.
const UndefinedExtent int = math.MaxUint32

type Support struct {
	Capabilities *khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

func (s Support) Adequate() bool {
	return s.Capabilities != nil && len(s.Formats) > 0 && len(s.PresentModes) > 0
}

// Config is the negotiated swapchain configuration.
type Config struct {
	Format         khr_surface.SurfaceFormat
	PresentMode    khr_surface.PresentMode
	Extent         core1_0.Extent2D
	ImageCount     int
	Transform      khr_surface.SurfaceTransformFlags
	CompositeAlpha khr_surface.CompositeAlphaFlags
}

// Negotiate picks format, present mode, extent and image count for the given
// support details. drawableWidth and drawableHeight are the window's framebuffer
// size in pixels and are only consulted when the surface leaves the extent undefined.
func Negotiate(support Support, drawableWidth, drawableHeight int) (Config, error) {
	if support.Capabilities == nil {
		return Config{}, errors.New("surface capabilities were not queried")
	}
	if len(support.Formats) == 0 {
		return Config{}, errors.New("surface reports no supported formats")
	}

	return Config{
		Format:         ChooseFormat(support.Formats),
		PresentMode:    ChoosePresentMode(support.PresentModes),
		Extent:         ChooseExtent(support.Capabilities, drawableWidth, drawableHeight),
		ImageCount:     ChooseImageCount(support.Capabilities),
		Transform:      support.Capabilities.CurrentTransform,
		CompositeAlpha: ChooseCompositeAlpha(support.Capabilities.SupportedCompositeAlpha),
	}, nil
}

func ChooseFormat(availableFormats []khr_surface.SurfaceFormat) khr_surface.SurfaceFormat {
	for _, format := range availableFormats {
		if format.Format == core1_0.FormatB8G8R8A8SRGB && format.ColorSpace == khr_surface.ColorSpaceSRGBNonlinear {
			return format
		}
	}

	return availableFormats[0]
}

// ChoosePresentMode prefers mailbox and otherwise falls back to FIFO, which every
// conforming implementation supports.
func ChoosePresentMode(availablePresentModes []khr_surface.PresentMode) khr_surface.PresentMode {
	for _, presentMode := range availablePresentModes {
		if presentMode == khr_surface.PresentModeMailbox {
			return presentMode
		}
	}

	return khr_surface.PresentModeFIFO
}

func ChooseExtent(capabilities *khr_surface.SurfaceCapabilities, drawableWidth, drawableHeight int) core1_0.Extent2D {
	if uint32(capabilities.CurrentExtent.Width) != math.MaxUint32 {
		return capabilities.CurrentExtent
	}

	return core1_0.Extent2D{
		Width:  clamp(drawableWidth, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
		Height: clamp(drawableHeight, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
	}
}

// ChooseImageCount requests one image more than the minimum. A MaxImageCount of
// zero means the surface puts no upper bound on the count.
func ChooseImageCount(capabilities *khr_surface.SurfaceCapabilities) int {
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}

	return imageCount
}

var compositeAlphaPreference = []khr_surface.CompositeAlphaFlags{
	khr_surface.CompositeAlphaOpaque,
	khr_surface.CompositeAlphaPreMultiplied,
	khr_surface.CompositeAlphaPostMultiplied,
	khr_surface.CompositeAlphaInherit,
}

func ChooseCompositeAlpha(supported khr_surface.CompositeAlphaFlags) khr_surface.CompositeAlphaFlags {
	for _, alpha := range compositeAlphaPreference {
		if supported&alpha != 0 {
			return alpha
		}
	}

	return khr_surface.CompositeAlphaOpaque
}

func clamp(value, minimum, maximum int) int {
	if value < minimum {
		value = minimum
	}
	if value > maximum {
		value = maximum
	}
	return value
}
