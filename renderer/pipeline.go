package renderer

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/vkforward/renderer/render"
)

var depthFormatCandidates = []core1_0.Format{
	core1_0.FormatD32SignedFloat,
	core1_0.FormatD32SignedFloatS8UnsignedInt,
	core1_0.FormatD24UnsignedNormalizedS8UnsignedInt,
}

func hasStencilComponent(format core1_0.Format) bool {
	return format == core1_0.FormatD32SignedFloatS8UnsignedInt || format == core1_0.FormatD24UnsignedNormalizedS8UnsignedInt
}

// depthBarrierAspect is the aspect a layout transition of a depth image must cover.
func depthBarrierAspect(format core1_0.Format) core1_0.ImageAspectFlags {
	if hasStencilComponent(format) {
		return core1_0.ImageAspectDepth | core1_0.ImageAspectStencil
	}
	return core1_0.ImageAspectDepth
}

// createRenderPass builds a single-subpass pass over a color and a depth attachment. The
// frame recorder moves both images into their attachment layouts before the pass and the
// color image into the present layout afterwards, so the pass itself keeps layouts fixed.
func createRenderPass(driver core1_0.CoreDeviceDriver, colorFormat, depthFormat core1_0.Format) (core1_0.RenderPass, error) {
	renderPass, _, err := driver.CreateRenderPass(nil, core1_0.RenderPassCreateInfo{
		Attachments: []core1_0.AttachmentDescription{
			{
				Format:         colorFormat,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutColorAttachmentOptimal,
				FinalLayout:    core1_0.ImageLayoutColorAttachmentOptimal,
			},
			{
				Format:         depthFormat,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpDontCare,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutDepthStencilAttachmentOptimal,
				FinalLayout:    core1_0.ImageLayoutDepthStencilAttachmentOptimal,
			},
		},
		Subpasses: []core1_0.SubpassDescription{
			{
				PipelineBindPoint: core1_0.PipelineBindPointGraphics,
				ColorAttachments: []core1_0.AttachmentReference{
					{
						Attachment: 0,
						Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
					},
				},
				DepthStencilAttachment: &core1_0.AttachmentReference{
					Attachment: 1,
					Layout:     core1_0.ImageLayoutDepthStencilAttachmentOptimal,
				},
			},
		},
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass: core1_0.SubpassExternal,
				DstSubpass: 0,

				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput | core1_0.PipelineStageEarlyFragmentTests,
				SrcAccessMask: 0,

				DstStageMask:  core1_0.PipelineStageColorAttachmentOutput | core1_0.PipelineStageEarlyFragmentTests,
				DstAccessMask: core1_0.AccessColorAttachmentWrite | core1_0.AccessDepthStencilAttachmentWrite,
			},
		},
	})
	if err != nil {
		return core1_0.RenderPass{}, errors.Wrap(err, "create render pass")
	}
	return renderPass, nil
}

// createDescriptorSetLayout declares the fragment shader's texture at binding 0.
func createDescriptorSetLayout(driver core1_0.CoreDeviceDriver) (core1_0.DescriptorSetLayout, error) {
	layout, _, err := driver.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: []core1_0.DescriptorSetLayoutBinding{
			{
				Binding:         0,
				DescriptorType:  core1_0.DescriptorTypeCombinedImageSampler,
				DescriptorCount: 1,

				StageFlags: core1_0.StageFragment,
			},
		},
	})
	if err != nil {
		return core1_0.DescriptorSetLayout{}, errors.Wrap(err, "create descriptor set layout")
	}
	return layout, nil
}

func createDescriptorPool(driver core1_0.CoreDeviceDriver) (core1_0.DescriptorPool, error) {
	pool, _, err := driver.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		MaxSets: 1,
		PoolSizes: []core1_0.DescriptorPoolSize{
			{
				Type:            core1_0.DescriptorTypeCombinedImageSampler,
				DescriptorCount: 1,
			},
		},
	})
	if err != nil {
		return core1_0.DescriptorPool{}, errors.Wrap(err, "create descriptor pool")
	}
	return pool, nil
}

// allocateTextureSet allocates the single descriptor set and points it at the texture.
func allocateTextureSet(driver core1_0.CoreDeviceDriver, pool core1_0.DescriptorPool, layout core1_0.DescriptorSetLayout, view core1_0.ImageView, sampler core1_0.Sampler) (core1_0.DescriptorSet, error) {
	sets, _, err := driver.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: pool,
		SetLayouts:     []core1_0.DescriptorSetLayout{layout},
	})
	if err != nil {
		return core1_0.DescriptorSet{}, errors.Wrap(err, "allocate descriptor set")
	}

	err = driver.UpdateDescriptorSets([]core1_0.WriteDescriptorSet{
		{
			DstSet:          sets[0],
			DstBinding:      0,
			DstArrayElement: 0,

			DescriptorType: core1_0.DescriptorTypeCombinedImageSampler,

			ImageInfo: []core1_0.DescriptorImageInfo{
				{
					ImageView:   view,
					Sampler:     sampler,
					ImageLayout: core1_0.ImageLayoutShaderReadOnlyOptimal,
				},
			},
		},
	}, nil)
	if err != nil {
		return core1_0.DescriptorSet{}, errors.Wrap(err, "write texture descriptor")
	}
	return sets[0], nil
}

func createPipelineLayout(driver core1_0.CoreDeviceDriver, setLayout core1_0.DescriptorSetLayout) (core1_0.PipelineLayout, error) {
	layout, _, err := driver.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		SetLayouts: []core1_0.DescriptorSetLayout{setLayout},
		PushConstantRanges: []core1_0.PushConstantRange{
			{
				StageFlags: render.PushConstantStages,
				Offset:     0,
				Size:       render.PushConstantSize,
			},
		},
	})
	if err != nil {
		return core1_0.PipelineLayout{}, errors.Wrap(err, "create pipeline layout")
	}
	return layout, nil
}

type pipelineInfo struct {
	ShaderDir  string
	ShaderName string
	Layout     core1_0.PipelineLayout
	RenderPass core1_0.RenderPass
	Cache      core1_0.PipelineCache
	Extent     core1_0.Extent2D
}

// createGraphicsPipeline builds the forward pipeline. Viewport and scissor are baked in
// for the extent, so the pipeline is rebuilt whenever the swapchain is.
func createGraphicsPipeline(driver core1_0.CoreDeviceDriver, info pipelineInfo, logger *slog.Logger) (core1_0.Pipeline, error) {
	vertPath, fragPath := ShaderPaths(info.ShaderDir, info.ShaderName)

	vertShader, err := loadShaderModule(driver, vertPath)
	if err != nil {
		return core1_0.Pipeline{}, err
	}
	defer driver.DestroyShaderModule(vertShader, nil)

	fragShader, err := loadShaderModule(driver, fragPath)
	if err != nil {
		return core1_0.Pipeline{}, err
	}
	defer driver.DestroyShaderModule(fragShader, nil)

	vertexInput := &core1_0.PipelineVertexInputStateCreateInfo{
		VertexBindingDescriptions:   vertexBindingDescriptions(),
		VertexAttributeDescriptions: vertexAttributeDescriptions(),
	}

	inputAssembly := &core1_0.PipelineInputAssemblyStateCreateInfo{
		Topology:               core1_0.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: false,
	}

	vertStage := core1_0.PipelineShaderStageCreateInfo{
		Stage:  core1_0.StageVertex,
		Module: vertShader,
		Name:   "main",
	}

	fragStage := core1_0.PipelineShaderStageCreateInfo{
		Stage:  core1_0.StageFragment,
		Module: fragShader,
		Name:   "main",
	}

	viewport := &core1_0.PipelineViewportStateCreateInfo{
		Viewports: []core1_0.Viewport{
			{
				X:        0,
				Y:        0,
				Width:    float32(info.Extent.Width),
				Height:   float32(info.Extent.Height),
				MinDepth: 0,
				MaxDepth: 1,
			},
		},
		Scissors: []core1_0.Rect2D{
			{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: info.Extent,
			},
		},
	}

	rasterization := &core1_0.PipelineRasterizationStateCreateInfo{
		DepthClampEnable:        false,
		RasterizerDiscardEnable: false,

		PolygonMode: core1_0.PolygonModeFill,
		CullMode:    core1_0.CullModeBack,
		FrontFace:   core1_0.FrontFaceCounterClockwise,

		DepthBiasEnable: false,

		LineWidth: 1.0,
	}

	multisample := &core1_0.PipelineMultisampleStateCreateInfo{
		SampleShadingEnable:  false,
		RasterizationSamples: core1_0.Samples1,
		MinSampleShading:     1.0,
	}

	depthStencil := &core1_0.PipelineDepthStencilStateCreateInfo{
		DepthTestEnable:  true,
		DepthWriteEnable: true,
		DepthCompareOp:   core1_0.CompareOpLess,
	}

	colorBlend := &core1_0.PipelineColorBlendStateCreateInfo{
		LogicOpEnabled: false,
		LogicOp:        core1_0.LogicOpCopy,

		BlendConstants: [4]float32{0, 0, 0, 0},
		Attachments: []core1_0.PipelineColorBlendAttachmentState{
			{
				BlendEnabled:   false,
				ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
			},
		},
	}

	var cache *core1_0.PipelineCache
	if info.Cache.Initialized() {
		cache = &info.Cache
	}

	start := hrtime.Now()
	pipelines, _, err := driver.CreateGraphicsPipelines(cache, nil,
		core1_0.GraphicsPipelineCreateInfo{
			Stages: []core1_0.PipelineShaderStageCreateInfo{
				vertStage,
				fragStage,
			},
			VertexInputState:   vertexInput,
			InputAssemblyState: inputAssembly,
			ViewportState:      viewport,
			RasterizationState: rasterization,
			MultisampleState:   multisample,
			DepthStencilState:  depthStencil,
			ColorBlendState:    colorBlend,
			Layout:             info.Layout,
			RenderPass:         info.RenderPass,
			Subpass:            0,
			BasePipelineIndex:  -1,
		},
	)
	if err != nil {
		return core1_0.Pipeline{}, errors.Wrap(err, "create graphics pipeline")
	}
	logger.Debug("created graphics pipeline", "shader", info.ShaderName, "elapsed", hrtime.Now()-start)

	return pipelines[0], nil
}
