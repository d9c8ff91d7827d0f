package device

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// CreateDevice creates the logical device with one queue per distinct queue family, the
// swapchain extension, the portability subset when the device advertises it, and sampler
// anisotropy when supported.
func (c *Context) CreateDevice(logger *slog.Logger) error {
	var queueFamilyOptions []core1_0.DeviceQueueCreateInfo
	queuePriority := float32(1.0)
	for _, queueFamily := range c.Info.QueueFamilies.Unique() {
		queueFamilyOptions = append(queueFamilyOptions, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: queueFamily,
			QueuePriorities:  []float32{queuePriority},
		})
	}

	var extensionNames []string
	extensionNames = append(extensionNames, RequiredDeviceExtensions...)

	extensions, _, err := c.Instance.EnumerateDeviceExtensionProperties(c.PhysicalDevice)
	if err != nil {
		return errors.Wrap(err, "enumerate device extensions")
	}

	// Required on MoltenVK and other portability implementations.
	_, supported := extensions[khr_portability_subset.ExtensionName]
	if supported {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	c.Device, _, err = c.Instance.CreateDevice(c.PhysicalDevice, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos: queueFamilyOptions,
		EnabledFeatures: &core1_0.PhysicalDeviceFeatures{
			SamplerAnisotropy: c.Info.SamplerAnisotropy,
		},
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return errors.Wrap(err, "create logical device")
	}

	c.GraphicsQueue = c.Device.GetQueue(c.Info.QueueFamilies.Graphics, 0)
	c.PresentQueue = c.Device.GetQueue(c.Info.QueueFamilies.Present, 0)
	c.SwapchainDriver = khr_swapchain.CreateExtensionDriverFromCoreDriver(c.Device)

	logger.Debug("created logical device", "extensions", extensionNames)
	return nil
}

// MemoryTypes lists the memory types of the selected physical device.
func (c *Context) MemoryTypes() []core1_0.MemoryType {
	properties := c.Instance.GetPhysicalDeviceMemoryProperties(c.PhysicalDevice)
	return properties.MemoryTypes
}

// FindSupportedFormat returns the first candidate whose optimal-tiling features include
// features.
func (c *Context) FindSupportedFormat(candidates []core1_0.Format, features core1_0.FormatFeatureFlags) (core1_0.Format, error) {
	for _, format := range candidates {
		props := c.Instance.GetPhysicalDeviceFormatProperties(c.PhysicalDevice, format)
		if (props.OptimalTilingFeatures & features) == features {
			return format, nil
		}
	}

	return 0, errors.Newf("none of %v supports %s with optimal tiling", candidates, features)
}
