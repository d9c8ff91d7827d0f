package memory

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Allocator owns every device memory allocation made for buffers and images. It must be
// created after the logical device and destroyed before it, and only once every buffer
// and image it handed out has been destroyed.
type Allocator struct {
	driver      core1_0.CoreDeviceDriver
	memoryTypes []core1_0.MemoryType
	logger      *slog.Logger

	allocations *tracker
	destroyed   bool
}

func NewAllocator(driver core1_0.CoreDeviceDriver, memoryTypes []core1_0.MemoryType, logger *slog.Logger) *Allocator {
	return &Allocator{
		driver:      driver,
		memoryTypes: memoryTypes,
		logger:      logger,
		allocations: newTracker(),
	}
}

// Live returns the number of buffers and images that have not been destroyed yet.
func (a *Allocator) Live() int {
	return a.allocations.count()
}

// Destroy tears down the allocator. It fails, and leaves everything untouched, while any
// allocation is still live.
func (a *Allocator) Destroy() error {
	if a.destroyed {
		return nil
	}

	err := a.allocations.check()
	if err != nil {
		return errors.Wrap(err, "destroy allocator")
	}

	a.destroyed = true
	return nil
}

func (a *Allocator) allocate(name string, size int, typeBits uint32, usage MemoryUsage) (core1_0.DeviceMemory, error) {
	if a.destroyed {
		return core1_0.DeviceMemory{}, errors.Newf("allocate %s: allocator already destroyed", name)
	}

	required, preferred, avoided := usage.flags()
	memoryTypeIndex, err := FindMemoryType(a.memoryTypes, typeBits, required, preferred, avoided)
	if err != nil {
		return core1_0.DeviceMemory{}, errors.Wrapf(err, "allocate %s as %s", name, usage)
	}

	memory, _, err := a.driver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		return core1_0.DeviceMemory{}, errors.Wrapf(err, "allocate %d bytes for %s", size, name)
	}

	a.logger.Debug("allocated device memory", "name", name, "size", size, "memoryType", memoryTypeIndex, "usage", usage)
	return memory, nil
}

// BufferCreateInfo describes a buffer and the memory that backs it.
type BufferCreateInfo struct {
	Name  string
	Size  int
	Usage core1_0.BufferUsageFlags

	MemoryUsage MemoryUsage
	// Mapped keeps a host-visible buffer persistently mapped for its whole lifetime.
	Mapped bool
}

type Buffer struct {
	allocator *Allocator
	id        int

	Buffer core1_0.Buffer
	Memory core1_0.DeviceMemory
	Size   int
	Usage  core1_0.BufferUsageFlags

	mapped unsafe.Pointer
}

func (a *Allocator) CreateBuffer(info BufferCreateInfo) (*Buffer, error) {
	if info.Size <= 0 {
		return nil, errors.Newf("create buffer %s: size must be positive, got %d", info.Name, info.Size)
	}
	if info.Mapped && info.MemoryUsage == MemoryUsageGPUOnly {
		return nil, errors.Newf("create buffer %s: %s buffers cannot be mapped", info.Name, MemoryUsageGPUOnly)
	}

	buffer, _, err := a.driver.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        info.Size,
		Usage:       info.Usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create buffer %s", info.Name)
	}

	requirements := a.driver.GetBufferMemoryRequirements(buffer)
	memory, err := a.allocate(info.Name, requirements.Size, requirements.MemoryTypeBits, info.MemoryUsage)
	if err != nil {
		a.driver.DestroyBuffer(buffer, nil)
		return nil, err
	}

	_, err = a.driver.BindBufferMemory(buffer, memory, 0)
	if err != nil {
		a.driver.DestroyBuffer(buffer, nil)
		a.driver.FreeMemory(memory, nil)
		return nil, errors.Wrapf(err, "bind memory for buffer %s", info.Name)
	}

	result := &Buffer{
		allocator: a,
		Buffer:    buffer,
		Memory:    memory,
		Size:      info.Size,
		Usage:     info.Usage,
	}

	if info.Mapped {
		result.mapped, _, err = a.driver.MapMemory(memory, 0, info.Size, 0)
		if err != nil {
			a.driver.DestroyBuffer(buffer, nil)
			a.driver.FreeMemory(memory, nil)
			return nil, errors.Wrapf(err, "map buffer %s", info.Name)
		}
	}

	result.id = a.allocations.add("buffer " + info.Name)
	return result, nil
}

// Write encodes data with encoding/binary in the device's byte order and copies it into
// the buffer at offset, mapping the memory for the duration of the call unless the buffer
// is persistently mapped.
func (b *Buffer) Write(offset int, data any) error {
	encoded, err := encode(data)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(encoded) > b.Size {
		return errors.Newf("write of %d bytes at offset %d overflows buffer of %d bytes", len(encoded), offset, b.Size)
	}

	if b.mapped != nil {
		copy(unsafe.Slice((*byte)(unsafe.Add(b.mapped, offset)), len(encoded)), encoded)
		return nil
	}

	driver := b.allocator.driver
	memoryPtr, _, err := driver.MapMemory(b.Memory, offset, len(encoded), 0)
	if err != nil {
		return errors.Wrap(err, "map buffer memory")
	}
	defer driver.UnmapMemory(b.Memory)

	copy(unsafe.Slice((*byte)(memoryPtr), len(encoded)), encoded)
	return nil
}

func (b *Buffer) Mapped() bool {
	return b.mapped != nil
}

// Destroy releases the buffer and its memory. Calling it more than once is a no-op.
func (b *Buffer) Destroy() {
	if b == nil || b.id == 0 {
		return
	}

	driver := b.allocator.driver
	if b.mapped != nil {
		driver.UnmapMemory(b.Memory)
		b.mapped = nil
	}
	driver.DestroyBuffer(b.Buffer, nil)
	driver.FreeMemory(b.Memory, nil)

	b.allocator.allocations.remove(b.id)
	b.id = 0
}

// ImageCreateInfo describes a 2D image, its memory and the view created over all of its
// mip levels.
type ImageCreateInfo struct {
	Name      string
	Width     int
	Height    int
	MipLevels int
	Format    core1_0.Format
	Usage     core1_0.ImageUsageFlags
	Aspect    core1_0.ImageAspectFlags
}

type Image struct {
	allocator *Allocator
	id        int

	Image     core1_0.Image
	Memory    core1_0.DeviceMemory
	View      core1_0.ImageView
	Format    core1_0.Format
	Width     int
	Height    int
	MipLevels int
	Aspect    core1_0.ImageAspectFlags
}

// CreateImage creates an optimally tiled, device-local image and a view over it.
func (a *Allocator) CreateImage(info ImageCreateInfo) (*Image, error) {
	mipLevels := info.MipLevels
	if mipLevels < 1 {
		mipLevels = 1
	}

	image, _, err := a.driver.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  info.Width,
			Height: info.Height,
			Depth:  1,
		},
		MipLevels:     mipLevels,
		ArrayLayers:   1,
		Format:        info.Format,
		Tiling:        core1_0.ImageTilingOptimal,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         info.Usage,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       core1_0.Samples1,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create image %s", info.Name)
	}

	requirements := a.driver.GetImageMemoryRequirements(image)
	memory, err := a.allocate(info.Name, requirements.Size, requirements.MemoryTypeBits, MemoryUsageGPUOnly)
	if err != nil {
		a.driver.DestroyImage(image, nil)
		return nil, err
	}

	_, err = a.driver.BindImageMemory(image, memory, 0)
	if err != nil {
		a.driver.DestroyImage(image, nil)
		a.driver.FreeMemory(memory, nil)
		return nil, errors.Wrapf(err, "bind memory for image %s", info.Name)
	}

	view, err := CreateImageView(a.driver, image, info.Format, info.Aspect, mipLevels)
	if err != nil {
		a.driver.DestroyImage(image, nil)
		a.driver.FreeMemory(memory, nil)
		return nil, errors.Wrapf(err, "create view for image %s", info.Name)
	}

	return &Image{
		allocator: a,
		id:        a.allocations.add("image " + info.Name),
		Image:     image,
		Memory:    memory,
		View:      view,
		Format:    info.Format,
		Width:     info.Width,
		Height:    info.Height,
		MipLevels: mipLevels,
		Aspect:    info.Aspect,
	}, nil
}

// Destroy releases the view, the image and its memory. Calling it more than once is a no-op.
func (i *Image) Destroy() {
	if i == nil || i.id == 0 {
		return
	}

	driver := i.allocator.driver
	driver.DestroyImageView(i.View, nil)
	driver.DestroyImage(i.Image, nil)
	driver.FreeMemory(i.Memory, nil)

	i.allocator.allocations.remove(i.id)
	i.id = 0
}

// CreateImageView creates a 2D view over the first layer and mipLevels levels of image.
// Swapchain images use it directly since their memory is owned by the swapchain.
func CreateImageView(driver core1_0.CoreDeviceDriver, image core1_0.Image, format core1_0.Format, aspect core1_0.ImageAspectFlags, mipLevels int) (core1_0.ImageView, error) {
	imageView, _, err := driver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    image,
		ViewType: core1_0.ImageViewType2D,
		Format:   format,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     mipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	return imageView, err
}

func encode(data any) ([]byte, error) {
	if raw, ok := data.([]byte); ok {
		return raw, nil
	}

	buf := &bytes.Buffer{}
	err := binary.Write(buf, common.ByteOrder, data)
	if err != nil {
		return nil, errors.Wrap(err, "encode buffer contents")
	}
	return buf.Bytes(), nil
}
