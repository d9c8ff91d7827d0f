package device

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/vkforward/renderer/surface"
)

var RequiredDeviceExtensions = []string{khr_swapchain.ExtensionName}

// AttachSurface creates the presentation surface with the window's factory.
func (c *Context) AttachSurface(create func(core1_0.Instance, khr_surface.ExtensionDriver) (khr_surface.Surface, error)) error {
	s, err := create(c.Instance.Instance(), c.SurfaceDriver)
	if err != nil {
		return errors.Wrap(err, "create window surface")
	}
	c.Surface = s
	return nil
}

// Candidate is a probed physical device.
type Candidate struct {
	Device   core1_0.PhysicalDevice
	Info     PhysicalDeviceInfo
	Suitable bool
	// Reason explains why an unsuitable device was rejected.
	Reason string
}

// ChooseCandidate returns the index of the first suitable discrete GPU, or failing that
// the first suitable device of any kind.
func ChooseCandidate(candidates []Candidate) (int, error) {
	if len(candidates) == 0 {
		return -1, errors.New("no Vulkan physical devices found")
	}

	fallback := -1
	for i, candidate := range candidates {
		if !candidate.Suitable {
			continue
		}
		if candidate.Info.Discrete() {
			return i, nil
		}
		if fallback < 0 {
			fallback = i
		}
	}

	if fallback < 0 {
		return -1, errors.Newf("none of the %d physical devices can render to this surface", len(candidates))
	}
	return fallback, nil
}

// ChooseQueueFamilies picks queue families given, per family, whether it supports
// graphics and whether it can present to the surface. A single family that does both
// is preferred; otherwise the first of each is used.
func ChooseQueueFamilies(graphics, present []bool) (QueueFamilies, bool) {
	firstGraphics := -1
	firstPresent := -1

	for i := range graphics {
		canPresent := i < len(present) && present[i]
		if graphics[i] && canPresent {
			return QueueFamilies{Graphics: i, Present: i}, true
		}
		if graphics[i] && firstGraphics < 0 {
			firstGraphics = i
		}
		if canPresent && firstPresent < 0 {
			firstPresent = i
		}
	}
	for i := len(graphics); i < len(present); i++ {
		if present[i] && firstPresent < 0 {
			firstPresent = i
		}
	}

	if firstGraphics < 0 || firstPresent < 0 {
		return QueueFamilies{}, false
	}
	return QueueFamilies{Graphics: firstGraphics, Present: firstPresent}, true
}

// Select probes every physical device against the context's surface and records the
// chosen one in the context.
func (c *Context) Select(logger *slog.Logger) error {
	physicalDevices, _, err := c.Instance.EnumeratePhysicalDevices()
	if err != nil {
		return errors.Wrap(err, "enumerate physical devices")
	}

	candidates := make([]Candidate, 0, len(physicalDevices))
	for _, physicalDevice := range physicalDevices {
		candidate, err := c.probe(physicalDevice)
		if err != nil {
			return err
		}

		logger.Debug("probed physical device",
			"name", candidate.Info.Name,
			"type", candidate.Info.Type,
			"suitable", candidate.Suitable,
			"reason", candidate.Reason)
		candidates = append(candidates, candidate)
	}

	chosen, err := ChooseCandidate(candidates)
	if err != nil {
		return err
	}

	c.PhysicalDevice = candidates[chosen].Device
	c.Info = candidates[chosen].Info

	logger.Info("selected physical device",
		"name", c.Info.Name,
		"type", c.Info.Type,
		"graphicsFamily", c.Info.QueueFamilies.Graphics,
		"presentFamily", c.Info.QueueFamilies.Present)
	return nil
}

func (c *Context) probe(physicalDevice core1_0.PhysicalDevice) (Candidate, error) {
	candidate := Candidate{Device: physicalDevice}

	properties, err := c.Instance.GetPhysicalDeviceProperties(physicalDevice)
	if err != nil {
		return candidate, errors.Wrap(err, "query physical device properties")
	}
	features := c.Instance.GetPhysicalDeviceFeatures(physicalDevice)

	candidate.Info = PhysicalDeviceInfo{
		Name:                properties.DriverName,
		Type:                properties.DriverType,
		VendorID:            properties.VendorID,
		DeviceID:            properties.DeviceID,
		PipelineCacheUUID:   properties.PipelineCacheUUID,
		MaxImageDimension2D: int(properties.Limits.MaxImageDimension2D),
		SamplerAnisotropy:   features.SamplerAnisotropy,
	}

	families, ok, err := c.queueFamilies(physicalDevice)
	if err != nil {
		return candidate, err
	}
	if !ok {
		candidate.Reason = "no graphics or present queue family"
		return candidate, nil
	}
	candidate.Info.QueueFamilies = families

	extensions, _, err := c.Instance.EnumerateDeviceExtensionProperties(physicalDevice)
	if err != nil {
		return candidate, errors.Wrapf(err, "enumerate extensions of %s", candidate.Info.Name)
	}
	missing := MissingNames(extensions, RequiredDeviceExtensions)
	if len(missing) > 0 {
		candidate.Reason = "missing device extensions"
		return candidate, nil
	}

	support, err := surface.QuerySupport(c.SurfaceDriver, c.Surface, physicalDevice)
	if err != nil {
		return candidate, errors.Wrapf(err, "query surface support of %s", candidate.Info.Name)
	}
	if !support.Adequate() {
		candidate.Reason = "no surface formats or present modes"
		return candidate, nil
	}

	candidate.Suitable = true
	return candidate, nil
}

func (c *Context) queueFamilies(physicalDevice core1_0.PhysicalDevice) (QueueFamilies, bool, error) {
	queueFamilies := c.Instance.GetPhysicalDeviceQueueFamilyProperties(physicalDevice)

	graphics := make([]bool, len(queueFamilies))
	present := make([]bool, len(queueFamilies))
	for queueFamilyIdx, queueFamily := range queueFamilies {
		graphics[queueFamilyIdx] = (queueFamily.QueueFlags & core1_0.QueueGraphics) != 0

		supported, _, err := c.SurfaceDriver.GetPhysicalDeviceSurfaceSupport(c.Surface, physicalDevice, queueFamilyIdx)
		if err != nil {
			return QueueFamilies{}, false, errors.Wrapf(err, "query present support of queue family %d", queueFamilyIdx)
		}
		present[queueFamilyIdx] = supported
	}

	families, ok := ChooseQueueFamilies(graphics, present)
	return families, ok, nil
}
