package renderer

import (
	"unsafe"

	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// Window is the presentation target the engine renders into. Implementations must be
// used from the thread that created them.
type Window interface {
	// VulkanProcAddr returns vkGetInstanceProcAddr as loaded by the windowing library.
	VulkanProcAddr() unsafe.Pointer
	// InstanceExtensions lists the instance extensions needed to create a surface.
	InstanceExtensions() []string
	CreateSurface(instance core1_0.Instance, driver khr_surface.ExtensionDriver) (khr_surface.Surface, error)
	// DrawableSize is the framebuffer size in pixels, which may differ from the window
	// size on high density displays. It is zero in either axis while minimized.
	DrawableSize() (int, int)
	// TakeResized reports whether the window was resized since the last call.
	TakeResized() bool
}
