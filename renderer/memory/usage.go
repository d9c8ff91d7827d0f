package memory

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// MemoryUsage describes how the host intends to access an allocation.
type MemoryUsage uint32

const (
	// MemoryUsageGPUOnly places the allocation in device-local memory. The host never
	// touches it directly; data arrives through a staging copy.
	MemoryUsageGPUOnly MemoryUsage = iota
	// MemoryUsageCPUToGPU places the allocation in host-visible, coherent memory so it
	// can be mapped and written by the host. Device-local host-visible heaps are
	// preferred when they exist.
	MemoryUsageCPUToGPU
	// MemoryUsageCPUOnly places the allocation in host-visible, coherent memory outside
	// the device-local heaps when possible. Used for transfer sources.
	MemoryUsageCPUOnly
)

var memoryUsageMapping = map[MemoryUsage]string{
	MemoryUsageGPUOnly:  "MemoryUsageGPUOnly",
	MemoryUsageCPUToGPU: "MemoryUsageCPUToGPU",
	MemoryUsageCPUOnly:  "MemoryUsageCPUOnly",
}

func (u MemoryUsage) String() string {
	str, ok := memoryUsageMapping[u]
	if !ok {
		return fmt.Sprintf("MemoryUsage(%d)", uint32(u))
	}
	return str
}

func (u MemoryUsage) flags() (required, preferred, avoided core1_0.MemoryPropertyFlags) {
	hostVisible := core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent

	switch u {
	case MemoryUsageCPUToGPU:
		return hostVisible, core1_0.MemoryPropertyDeviceLocal, 0
	case MemoryUsageCPUOnly:
		return hostVisible, 0, core1_0.MemoryPropertyDeviceLocal
	default:
		return core1_0.MemoryPropertyDeviceLocal, 0, 0
	}
}

// FindMemoryType returns the index of the first memory type allowed by typeBits whose
// properties include required. Types that also include preferred win over those that
// don't, and types carrying any avoided property are only used when nothing else fits.
func FindMemoryType(memoryTypes []core1_0.MemoryType, typeBits uint32, required, preferred, avoided core1_0.MemoryPropertyFlags) (int, error) {
	passes := []struct {
		properties core1_0.MemoryPropertyFlags
		avoided    core1_0.MemoryPropertyFlags
	}{
		{properties: required | preferred, avoided: avoided},
		{properties: required, avoided: avoided},
		{properties: required},
	}

	for _, pass := range passes {
		index := searchMemoryTypes(memoryTypes, typeBits, pass.properties, pass.avoided)
		if index >= 0 {
			return index, nil
		}
	}

	return 0, errors.Newf("no memory type matches bits %#x with properties %s", typeBits, required)
}

func searchMemoryTypes(memoryTypes []core1_0.MemoryType, typeBits uint32, properties, avoided core1_0.MemoryPropertyFlags) int {
	for i, memoryType := range memoryTypes {
		typeBit := uint32(1 << i)

		if (typeBits&typeBit) != 0 && (memoryType.PropertyFlags&properties) == properties && (memoryType.PropertyFlags&avoided) == 0 {
			return i
		}
	}

	return -1
}
