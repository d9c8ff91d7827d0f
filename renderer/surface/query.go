package surface

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// QuerySupport reads the capabilities, formats and present modes that the physical
// device offers for the surface.
func QuerySupport(driver khr_surface.ExtensionDriver, surface khr_surface.Surface, device core1_0.PhysicalDevice) (Support, error) {
	var details Support
	var err error

	details.Capabilities, _, err = driver.GetPhysicalDeviceSurfaceCapabilities(surface, device)
	if err != nil {
		return details, errors.Wrap(err, "query surface capabilities")
	}

	details.Formats, _, err = driver.GetPhysicalDeviceSurfaceFormats(surface, device)
	if err != nil {
		return details, errors.Wrap(err, "query surface formats")
	}

	details.PresentModes, _, err = driver.GetPhysicalDeviceSurfacePresentModes(surface, device)
	if err != nil {
		return details, errors.Wrap(err, "query surface present modes")
	}

	return details, nil
}
