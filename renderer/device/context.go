// Package device creates the Vulkan instance, picks a physical device and builds the
// logical device and queues that every other renderer component works against.
package device

import (
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

type QueueFamilies struct {
	Graphics int
	Present  int
}

// Shared reports whether graphics and presentation run on the same queue family.
func (f QueueFamilies) Shared() bool {
	return f.Graphics == f.Present
}

// Unique lists each family once, graphics first.
func (f QueueFamilies) Unique() []int {
	if f.Shared() {
		return []int{f.Graphics}
	}
	return []int{f.Graphics, f.Present}
}

// PhysicalDeviceInfo is what the renderer needs to know about the selected GPU. It is
// resolved once during selection and never changes afterwards.
type PhysicalDeviceInfo struct {
	Name              string
	Type              core1_0.PhysicalDeviceType
	VendorID          uint32
	DeviceID          uint32
	PipelineCacheUUID uuid.UUID
	QueueFamilies     QueueFamilies

	MaxImageDimension2D int
	SamplerAnisotropy   bool
}

func (i PhysicalDeviceInfo) Discrete() bool {
	return i.Type == core1_0.PhysicalDeviceTypeDiscreteGPU
}

// Context carries the drivers and handles shared by the renderer's components. It is
// built up in stages by CreateInstance, AttachSurface, Select and CreateDevice, and torn
// down in reverse by Destroy.
type Context struct {
	Global   core1_0.GlobalDriver
	Instance core1_0.CoreInstanceDriver
	Device   core1_0.CoreDeviceDriver

	DebugDriver    ext_debug_utils.ExtensionDriver
	DebugMessenger ext_debug_utils.DebugUtilsMessenger

	SurfaceDriver   khr_surface.ExtensionDriver
	Surface         khr_surface.Surface
	SwapchainDriver khr_swapchain.ExtensionDriver

	PhysicalDevice core1_0.PhysicalDevice
	Info           PhysicalDeviceInfo

	GraphicsQueue core1_0.Queue
	PresentQueue  core1_0.Queue
}

// DestroyDevice destroys the logical device. Everything created from it must already be gone.
func (c *Context) DestroyDevice() {
	if c.Device != nil {
		c.Device.DestroyDevice(nil)
		c.Device = nil
	}
}

func (c *Context) DestroySurface() {
	if c.Surface.Initialized() {
		c.SurfaceDriver.DestroySurface(c.Surface, nil)
		c.Surface = khr_surface.Surface{}
	}
}

// DestroyInstance destroys the debug messenger and then the instance.
func (c *Context) DestroyInstance() {
	if c.DebugMessenger.Initialized() {
		c.DebugDriver.DestroyDebugUtilsMessenger(c.DebugMessenger, nil)
		c.DebugMessenger = ext_debug_utils.DebugUtilsMessenger{}
	}

	if c.Instance != nil {
		c.Instance.DestroyInstance(nil)
		c.Instance = nil
	}
}
