package device

import (
	"context"
	"log/slog"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

var ValidationLayers = []string{"VK_LAYER_KHRONOS_validation"}

// InstanceOptions configures instance creation.
type InstanceOptions struct {
	ApplicationName string
	// ProcAddr is vkGetInstanceProcAddr as provided by the windowing library.
	ProcAddr unsafe.Pointer
	// Extensions are the instance extensions the window needs to create a surface.
	Extensions []string
	Validation bool
	Logger     *slog.Logger
}

// CreateInstance loads the Vulkan loader through ProcAddr and creates an instance with
// the window's extensions, portability enumeration when the loader offers it and, when
// validation is requested, the Khronos validation layer plus a debug messenger that
// forwards to the logger. A missing validation layer is an error.
func CreateInstance(options InstanceOptions) (*Context, error) {
	globalDriver, err := core.CreateDriverFromProcAddr(options.ProcAddr)
	if err != nil {
		return nil, errors.Wrap(err, "load vulkan")
	}

	createInfo := core1_0.InstanceCreateInfo{
		ApplicationName:    options.ApplicationName,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "vkforward",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	extensions, _, err := globalDriver.AvailableExtensions()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate instance extensions")
	}

	for _, ext := range options.Extensions {
		_, hasExt := extensions[ext]
		if !hasExt {
			return nil, errors.Newf("missing instance extension %s required by the window", ext)
		}
		createInfo.EnabledExtensionNames = append(createInfo.EnabledExtensionNames, ext)
	}

	_, enumerationSupported := extensions[khr_portability_enumeration.ExtensionName]
	if enumerationSupported {
		createInfo.EnabledExtensionNames = append(createInfo.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		createInfo.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	logger := options.Logger
	if options.Validation {
		_, hasDebugUtils := extensions[ext_debug_utils.ExtensionName]
		if !hasDebugUtils {
			return nil, errors.Newf("validation requested but %s is not available", ext_debug_utils.ExtensionName)
		}
		createInfo.EnabledExtensionNames = append(createInfo.EnabledExtensionNames, ext_debug_utils.ExtensionName)

		layers, _, err := globalDriver.AvailableLayers()
		if err != nil {
			return nil, errors.Wrap(err, "enumerate instance layers")
		}

		missing := MissingNames(layers, ValidationLayers)
		if len(missing) > 0 {
			return nil, errors.Newf("validation layers %v not available; install the Vulkan SDK or disable validation", missing)
		}
		createInfo.EnabledLayerNames = append(createInfo.EnabledLayerNames, ValidationLayers...)

		// Chained so instance creation and destruction are also covered.
		createInfo.Next = debugMessengerOptions(logger)
	}

	ctx := &Context{Global: globalDriver}
	ctx.Instance, _, err = globalDriver.CreateInstance(nil, createInfo)
	if err != nil {
		return nil, errors.Wrap(err, "create instance")
	}

	if options.Validation {
		ctx.DebugDriver = ext_debug_utils.CreateExtensionDriverFromCoreDriver(ctx.Instance)
		ctx.DebugMessenger, _, err = ctx.DebugDriver.CreateDebugUtilsMessenger(nil, debugMessengerOptions(logger))
		if err != nil {
			ctx.DestroyInstance()
			return nil, errors.Wrap(err, "create debug messenger")
		}
	}

	ctx.SurfaceDriver = khr_surface.CreateExtensionDriverFromCoreDriver(ctx.Instance)
	return ctx, nil
}

// MissingNames returns the requested names absent from available, in request order.
func MissingNames[V any](available map[string]V, requested []string) []string {
	var missing []string
	for _, layer := range requested {
		_, ok := available[layer]
		if !ok {
			missing = append(missing, layer)
		}
	}
	return missing
}

func debugMessengerOptions(logger *slog.Logger) ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning | ext_debug_utils.SeverityInfo,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback: func(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
			logger.Log(context.Background(), SeverityLevel(severity), data.Message, "type", msgType.String())
			return false
		},
	}
}

// SeverityLevel maps a validation message severity onto a slog level.
func SeverityLevel(severity ext_debug_utils.DebugUtilsMessageSeverityFlags) slog.Level {
	switch {
	case severity&ext_debug_utils.SeverityError != 0:
		return slog.LevelError
	case severity&ext_debug_utils.SeverityWarning != 0:
		return slog.LevelWarn
	case severity&ext_debug_utils.SeverityInfo != 0:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
