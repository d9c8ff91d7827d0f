package renderer

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/vkforward/renderer/device"
)

// PipelineCacheHeaderSize is the length of a version one pipeline cache header.
const PipelineCacheHeaderSize = 32

// PipelineCacheHeader is the device identification block at the start of pipeline cache
// data. Data written by another driver or device must not be fed back to the driver.
type PipelineCacheHeader struct {
	Length   uint32
	Version  common.PipelineCacheHeaderVersion
	VendorID uint32
	DeviceID uint32
	UUID     uuid.UUID
}

func ParsePipelineCacheHeader(data []byte) (PipelineCacheHeader, error) {
	var wire struct {
		Length   uint32
		Version  uint32
		VendorID uint32
		DeviceID uint32
		UUID     [16]byte
	}

	err := binary.Read(bytes.NewReader(data), common.ByteOrder, &wire)
	if err != nil {
		return PipelineCacheHeader{}, errors.Wrap(err, "read pipeline cache header")
	}

	return PipelineCacheHeader{
		Length:   wire.Length,
		Version:  common.PipelineCacheHeaderVersion(wire.Version),
		VendorID: wire.VendorID,
		DeviceID: wire.DeviceID,
		UUID:     uuid.UUID(wire.UUID),
	}, nil
}

// Validate checks the header against the device the cache would be loaded into.
func (h PipelineCacheHeader) Validate(info device.PhysicalDeviceInfo) error {
	if h.Length < PipelineCacheHeaderSize {
		return errors.Newf("bad header length %d", h.Length)
	}
	if h.Version != common.PipelineCacheHeaderVersion1 {
		return errors.Newf("unsupported header version %d", h.Version)
	}
	if h.VendorID != info.VendorID {
		return errors.Newf("vendor ID 0x%x does not match device 0x%x", h.VendorID, info.VendorID)
	}
	if h.DeviceID != info.DeviceID {
		return errors.Newf("device ID 0x%x does not match device 0x%x", h.DeviceID, info.DeviceID)
	}
	if h.UUID != info.PipelineCacheUUID {
		return errors.Newf("cache UUID %s does not match device %s", h.UUID, info.PipelineCacheUUID)
	}
	return nil
}

// loadPipelineCacheData reads cached pipeline data for the device. A missing file is a
// cache miss; a file written for another device is deleted so the next run repopulates it.
func loadPipelineCacheData(path string, info device.PhysicalDeviceInfo, logger *slog.Logger) ([]byte, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Debug("pipeline cache miss", "path", path)
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "read pipeline cache")
	}

	header, err := ParsePipelineCacheHeader(data)
	if err == nil {
		err = header.Validate(info)
	}
	if err != nil {
		logger.Warn("discarding pipeline cache", "path", path, "reason", err)
		removeErr := os.Remove(path)
		if removeErr != nil {
			logger.Warn("could not delete pipeline cache", "path", path, "error", removeErr)
		}
		return nil, nil
	}

	logger.Debug("pipeline cache hit", "path", path, "bytes", len(data))
	return data, nil
}

func createPipelineCache(driver core1_0.CoreDeviceDriver, initialData []byte) (core1_0.PipelineCache, error) {
	cache, _, err := driver.CreatePipelineCache(nil, core1_0.PipelineCacheCreateInfo{
		InitialData: initialData,
	})
	if err != nil {
		return core1_0.PipelineCache{}, errors.Wrap(err, "create pipeline cache")
	}
	return cache, nil
}

func savePipelineCache(driver core1_0.CoreDeviceDriver, cache core1_0.PipelineCache, path string) error {
	if path == "" {
		return nil
	}

	data, _, err := driver.GetPipelineCacheData(cache)
	if err != nil {
		return errors.Wrap(err, "read back pipeline cache")
	}

	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		return errors.Wrap(err, "write pipeline cache")
	}
	return nil
}
