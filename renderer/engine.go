// Package renderer is a small forward renderer: it owns the Vulkan device, the swapchain
// and every GPU resource of a loaded scene, and draws that scene once per DrawFrame call.
package renderer

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/vkforward/assets"
	"github.com/vkngwrapper/vkforward/renderer/device"
	"github.com/vkngwrapper/vkforward/renderer/frame"
	"github.com/vkngwrapper/vkforward/renderer/memory"
	"github.com/vkngwrapper/vkforward/renderer/render"
	"github.com/vkngwrapper/vkforward/renderer/swapchain"
	"github.com/vkngwrapper/vkforward/renderer/upload"
)

type Engine struct {
	logger  *slog.Logger
	window  Window
	options Options

	ctx       *device.Context
	allocator *memory.Allocator
	uploader  *upload.Uploader

	commandPool    core1_0.CommandPool
	commandBuffers []core1_0.CommandBuffer

	meshes  []*Mesh
	draws   []render.Draw
	texture *memory.Image
	sampler core1_0.Sampler

	descriptorSetLayout core1_0.DescriptorSetLayout
	descriptorPool      core1_0.DescriptorPool
	descriptorSet       core1_0.DescriptorSet
	pipelineLayout      core1_0.PipelineLayout
	pipelineCache       core1_0.PipelineCache

	// Rebuilt with the swapchain.
	swapchain    *swapchain.State
	renderPass   core1_0.RenderPass
	depthFormat  core1_0.Format
	depth        *memory.Image
	framebuffers []core1_0.Framebuffer
	pipeline     core1_0.Pipeline

	sync      *frame.SyncSet[core1_0.Semaphore, core1_0.Fence]
	scheduler *frame.Scheduler
	recorder  render.Recorder
	scene     render.Scene

	pendingRecreate bool
	release         releaseStack
	closed          bool
}

// New brings up the device for window and uploads scene. On failure everything created
// so far is released again.
func New(window Window, options Options, scene *assets.Scene, logger *slog.Logger) (*Engine, error) {
	err := options.Validate()
	if err != nil {
		return nil, err
	}
	if scene == nil || len(scene.Meshes) == 0 || scene.Texture == nil {
		return nil, errors.New("scene needs at least one mesh and a texture")
	}

	e := &Engine{
		logger:  logger,
		window:  window,
		options: options,
		recorder: render.Recorder{
			ClearColor: options.ClearColor,
			ClearDepth: 1,
		},
		release: releaseStack{logger: logger},
	}

	err = e.init(scene)
	if err != nil {
		return nil, errors.CombineErrors(err, e.release.run())
	}
	return e, nil
}

func (e *Engine) init(scene *assets.Scene) error {
	ctx, err := device.CreateInstance(device.InstanceOptions{
		ApplicationName: e.options.ApplicationName,
		ProcAddr:        e.window.VulkanProcAddr(),
		Extensions:      e.window.InstanceExtensions(),
		Validation:      e.options.Validation,
		Logger:          e.logger,
	})
	if err != nil {
		return err
	}
	e.ctx = ctx
	e.release.push("instance", func() error {
		ctx.DestroyInstance()
		return nil
	})

	err = ctx.AttachSurface(e.window.CreateSurface)
	if err != nil {
		return err
	}
	e.release.push("surface", func() error {
		ctx.DestroySurface()
		return nil
	})

	err = ctx.Select(e.logger)
	if err != nil {
		return err
	}

	err = ctx.CreateDevice(e.logger)
	if err != nil {
		return err
	}
	e.release.push("device", func() error {
		ctx.DestroyDevice()
		return nil
	})
	// Swapchain-sized resources are rebuilt on resize, so their releases read the
	// current fields. The swapchain itself outlives the allocator.
	e.release.push("swapchain", func() error {
		e.destroySwapchain()
		return nil
	})

	e.allocator = memory.NewAllocator(ctx.Device, ctx.MemoryTypes(), e.logger)
	e.release.push("allocator", e.allocator.Destroy)

	err = e.createCommandBuffers()
	if err != nil {
		return err
	}

	e.uploader, err = upload.New(ctx, e.allocator)
	if err != nil {
		return err
	}
	e.release.push("uploader", func() error {
		e.uploader.Destroy()
		return nil
	})

	err = e.uploadScene(scene)
	if err != nil {
		return err
	}

	e.release.push("depth target", func() error {
		e.depth.Destroy()
		e.depth = nil
		return nil
	})

	err = e.createDescriptors()
	if err != nil {
		return err
	}

	err = e.createPipelineState()
	if err != nil {
		return err
	}

	e.depthFormat, err = ctx.FindSupportedFormat(depthFormatCandidates, core1_0.FormatFeatureDepthStencilAttachment)
	if err != nil {
		return errors.Wrap(err, "find depth format")
	}

	width, height := e.window.DrawableSize()
	if width == 0 || height == 0 {
		return errors.New("window has no drawable area")
	}

	e.release.push("swapchain targets", func() error {
		e.destroySwapchainTargets()
		return nil
	})
	err = e.createSwapchainResources(width, height)
	if err != nil {
		return err
	}

	e.sync, err = frame.NewSyncSet[core1_0.Semaphore, core1_0.Fence](vkSync{driver: ctx.Device}, e.options.FramesInFlight, e.swapchain.ImageCount())
	if err != nil {
		return errors.Wrap(err, "create frame synchronization")
	}
	e.release.push("frame sync", func() error {
		e.sync.Destroy()
		return nil
	})

	e.scheduler, err = frame.NewScheduler(timeline{e: e}, e.options.FramesInFlight)
	return err
}

func (e *Engine) createCommandBuffers() error {
	driver := e.ctx.Device

	var err error
	e.commandPool, _, err = driver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateResetBuffer,
		QueueFamilyIndex: e.ctx.Info.QueueFamilies.Graphics,
	})
	if err != nil {
		return errors.Wrap(err, "create command pool")
	}
	e.release.push("command pool", func() error {
		driver.DestroyCommandPool(e.commandPool, nil)
		return nil
	})

	e.commandBuffers, _, err = driver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        e.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: e.options.FramesInFlight,
	})
	if err != nil {
		return errors.Wrap(err, "allocate frame command buffers")
	}
	return nil
}

func (e *Engine) uploadScene(scene *assets.Scene) error {
	for _, sceneMesh := range scene.Meshes {
		mesh, err := uploadMesh(e.uploader, sceneMesh)
		if err != nil {
			return err
		}
		e.meshes = append(e.meshes, mesh)
		e.draws = append(e.draws, mesh.draw())
		e.release.push("mesh "+mesh.Name, func() error {
			mesh.Destroy()
			return nil
		})
	}

	texture := scene.Texture
	maxDimension := e.ctx.Info.MaxImageDimension2D
	if maxDimension > 0 && (texture.Width > maxDimension || texture.Height > maxDimension) {
		return errors.Newf("texture %s is %dx%d but the device allows at most %d per side", texture.Name, texture.Width, texture.Height, maxDimension)
	}

	var err error
	e.texture, err = e.uploader.UploadTexture("texture", texture.Pixels, texture.Width, texture.Height, e.options.Mipmaps)
	if err != nil {
		return err
	}
	e.release.push("texture", func() error {
		e.texture.Destroy()
		return nil
	})

	return e.createSampler()
}

func (e *Engine) createSampler() error {
	properties, err := e.ctx.Instance.GetPhysicalDeviceProperties(e.ctx.PhysicalDevice)
	if err != nil {
		return errors.Wrap(err, "query sampler limits")
	}

	maxAnisotropy := float32(1)
	if e.ctx.Info.SamplerAnisotropy {
		maxAnisotropy = properties.Limits.MaxSamplerAnisotropy
	}

	e.sampler, _, err = e.ctx.Device.CreateSampler(nil, core1_0.SamplerCreateInfo{
		MagFilter:    core1_0.FilterLinear,
		MinFilter:    core1_0.FilterLinear,
		AddressModeU: core1_0.SamplerAddressModeRepeat,
		AddressModeV: core1_0.SamplerAddressModeRepeat,
		AddressModeW: core1_0.SamplerAddressModeRepeat,

		AnisotropyEnable: e.ctx.Info.SamplerAnisotropy,
		MaxAnisotropy:    maxAnisotropy,

		BorderColor: core1_0.BorderColorIntOpaqueBlack,

		MipmapMode: core1_0.SamplerMipmapModeLinear,
		MinLod:     0,
		MaxLod:     float32(e.texture.MipLevels),
	})
	if err != nil {
		return errors.Wrap(err, "create sampler")
	}
	e.release.push("sampler", func() error {
		e.ctx.Device.DestroySampler(e.sampler, nil)
		return nil
	})
	return nil
}

func (e *Engine) createDescriptors() error {
	driver := e.ctx.Device

	var err error
	e.descriptorSetLayout, err = createDescriptorSetLayout(driver)
	if err != nil {
		return err
	}
	e.release.push("descriptor set layout", func() error {
		driver.DestroyDescriptorSetLayout(e.descriptorSetLayout, nil)
		return nil
	})

	e.descriptorPool, err = createDescriptorPool(driver)
	if err != nil {
		return err
	}
	e.release.push("descriptor pool", func() error {
		driver.DestroyDescriptorPool(e.descriptorPool, nil)
		return nil
	})

	e.descriptorSet, err = allocateTextureSet(driver, e.descriptorPool, e.descriptorSetLayout, e.texture.View, e.sampler)
	return err
}

func (e *Engine) createPipelineState() error {
	driver := e.ctx.Device

	var err error
	e.pipelineLayout, err = createPipelineLayout(driver, e.descriptorSetLayout)
	if err != nil {
		return err
	}
	e.release.push("pipeline layout", func() error {
		driver.DestroyPipelineLayout(e.pipelineLayout, nil)
		return nil
	})

	initialData, err := loadPipelineCacheData(e.options.PipelineCachePath, e.ctx.Info, e.logger)
	if err != nil {
		return err
	}

	e.pipelineCache, err = createPipelineCache(driver, initialData)
	if err != nil {
		return err
	}
	e.release.push("pipeline cache", func() error {
		err := savePipelineCache(driver, e.pipelineCache, e.options.PipelineCachePath)
		driver.DestroyPipelineCache(e.pipelineCache, nil)
		return err
	})
	return nil
}

func (e *Engine) createSwapchainResources(width, height int) error {
	driver := e.ctx.Device

	var err error
	e.swapchain, err = swapchain.Create(e.ctx, width, height)
	if err != nil {
		return err
	}

	e.renderPass, err = createRenderPass(driver, e.swapchain.Format, e.depthFormat)
	if err != nil {
		return err
	}

	extent := e.swapchain.Extent
	e.depth, err = e.allocator.CreateImage(memory.ImageCreateInfo{
		Name:      "depth",
		Width:     extent.Width,
		Height:    extent.Height,
		MipLevels: 1,
		Format:    e.depthFormat,
		Usage:     core1_0.ImageUsageDepthStencilAttachment,
		Aspect:    core1_0.ImageAspectDepth,
	})
	if err != nil {
		return err
	}

	for i, view := range e.swapchain.Views {
		framebuffer, _, err := driver.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
			RenderPass: e.renderPass,
			Layers:     1,
			Attachments: []core1_0.ImageView{
				view,
				e.depth.View,
			},
			Width:  extent.Width,
			Height: extent.Height,
		})
		if err != nil {
			return errors.Wrapf(err, "create framebuffer %d", i)
		}
		e.framebuffers = append(e.framebuffers, framebuffer)
	}

	e.pipeline, err = createGraphicsPipeline(driver, pipelineInfo{
		ShaderDir:  e.options.ShaderDir,
		ShaderName: e.options.ShaderName,
		Layout:     e.pipelineLayout,
		RenderPass: e.renderPass,
		Cache:      e.pipelineCache,
		Extent:     extent,
	}, e.logger)
	if err != nil {
		return err
	}

	e.logger.Info("created swapchain",
		"width", extent.Width,
		"height", extent.Height,
		"images", e.swapchain.ImageCount(),
		"format", e.swapchain.Format,
		"presentMode", e.swapchain.PresentMode)
	return nil
}

// destroySwapchainResources tears down whatever createSwapchainResources managed to
// build. The device must be idle.
func (e *Engine) destroySwapchainResources() {
	e.destroySwapchainTargets()

	e.depth.Destroy()
	e.depth = nil

	e.destroySwapchain()
}

func (e *Engine) destroySwapchainTargets() {
	driver := e.ctx.Device

	if e.pipeline.Initialized() {
		driver.DestroyPipeline(e.pipeline, nil)
		e.pipeline = core1_0.Pipeline{}
	}

	for _, framebuffer := range e.framebuffers {
		driver.DestroyFramebuffer(framebuffer, nil)
	}
	e.framebuffers = nil

	if e.renderPass.Initialized() {
		driver.DestroyRenderPass(e.renderPass, nil)
		e.renderPass = core1_0.RenderPass{}
	}
}

func (e *Engine) destroySwapchain() {
	if e.swapchain != nil {
		e.swapchain.Destroy(e.ctx)
		e.swapchain = nil
	}
}

// recreateSwapchain rebuilds everything that depends on the surface size. While the
// window has no drawable area the rebuild is deferred until it does.
func (e *Engine) recreateSwapchain() error {
	width, height := e.window.DrawableSize()
	if width == 0 || height == 0 {
		e.pendingRecreate = true
		e.logger.Debug("deferring swapchain recreation until the window has an area")
		return nil
	}

	_, err := e.ctx.Device.DeviceWaitIdle()
	if err != nil {
		return errors.Wrap(err, "wait for device idle")
	}

	e.destroySwapchainResources()

	err = e.createSwapchainResources(width, height)
	if err != nil {
		return err
	}

	err = e.sync.Resize(e.swapchain.ImageCount())
	if err != nil {
		return err
	}

	e.pendingRecreate = false
	return nil
}

// DrawFrame renders the scene from the given camera and presents it. Frames are skipped
// while the window is minimized.
func (e *Engine) DrawFrame(scene render.Scene) error {
	if e.closed {
		return errors.New("draw after close")
	}

	width, height := e.window.DrawableSize()
	if width == 0 || height == 0 {
		return nil
	}

	if e.pendingRecreate {
		err := e.recreateSwapchain()
		if err != nil {
			return err
		}
	}

	e.scene = scene
	return e.scheduler.DrawFrame(e.record)
}

func (e *Engine) record(slot, image int) error {
	target := render.Target{
		RenderPass:  e.renderPass,
		Framebuffer: e.framebuffers[image],
		Extent:      e.swapchain.Extent,
		Color:       e.swapchain.Images[image],
		Depth:       &e.depth.Image,
		DepthAspect: depthBarrierAspect(e.depthFormat),
	}

	pipeline := render.Pipeline{
		Pipeline:      e.pipeline,
		Layout:        e.pipelineLayout,
		DescriptorSet: &e.descriptorSet,
	}

	encoder := render.NewEncoder(e.ctx.Device, e.commandBuffers[slot])
	return e.recorder.Record(encoder, target, pipeline, e.draws, e.scene)
}

// Extent is the current swapchain size in pixels.
func (e *Engine) Extent() (int, int) {
	if e.swapchain == nil {
		return 0, 0
	}
	return e.swapchain.Extent.Width, e.swapchain.Extent.Height
}

func (e *Engine) DeviceInfo() device.PhysicalDeviceInfo {
	return e.ctx.Info
}

func (e *Engine) WaitIdle() error {
	_, err := e.ctx.Device.DeviceWaitIdle()
	return err
}

// Close waits for the GPU to finish and releases everything in reverse creation order.
// Calling it again is a no-op.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	err := e.WaitIdle()
	if err != nil {
		e.logger.Error("device did not go idle before teardown", "error", err)
	}

	return e.release.run()
}
