// Package window is the SDL2 window and input collaborator of the renderer.
package window

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v3"
	"github.com/vkngwrapper/vkforward/camera"
)

// SDLWindow is a resizable Vulkan-capable SDL window. SDL must only be used from the
// thread that called Open.
type SDLWindow struct {
	window *sdl.Window

	resized bool
	closed  bool

	looking      bool
	lookX, lookY float32
}

func Open(title string, width, height int) (*SDLWindow, error) {
	err := sdl.Init(sdl.INIT_VIDEO)
	if err != nil {
		return nil, errors.Wrap(err, "initialize SDL")
	}

	window, err := sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, int32(width), int32(height), sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "create window")
	}

	return &SDLWindow{window: window}, nil
}

func (w *SDLWindow) VulkanProcAddr() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

func (w *SDLWindow) InstanceExtensions() []string {
	return w.window.VulkanGetInstanceExtensions()
}

func (w *SDLWindow) CreateSurface(instance core1_0.Instance, driver khr_surface.ExtensionDriver) (khr_surface.Surface, error) {
	return vkng_sdl2.CreateSurface(instance, driver, w.window)
}

func (w *SDLWindow) DrawableSize() (int, int) {
	if (w.window.GetFlags() & sdl.WINDOW_MINIMIZED) != 0 {
		return 0, 0
	}

	width, height := w.window.VulkanGetDrawableSize()
	return int(width), int(height)
}

func (w *SDLWindow) TakeResized() bool {
	resized := w.resized
	w.resized = false
	return resized
}

func (w *SDLWindow) ShouldClose() bool {
	return w.closed
}

// PollEvents drains the SDL event queue. It must be called once per frame.
func (w *SDLWindow) PollEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			w.closed = true
		case *sdl.WindowEvent:
			switch e.Event {
			case sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED, sdl.WINDOWEVENT_RESTORED:
				w.resized = true
			}
		case *sdl.KeyboardEvent:
			if e.Type == sdl.KEYDOWN && e.Keysym.Scancode == sdl.SCANCODE_ESCAPE {
				w.closed = true
			}
		case *sdl.MouseButtonEvent:
			if e.Button == sdl.BUTTON_RIGHT {
				w.setLooking(e.State == sdl.PRESSED)
			}
		case *sdl.MouseMotionEvent:
			if w.looking {
				w.lookX += float32(e.XRel)
				w.lookY += float32(e.YRel)
			}
		}
	}
}

func (w *SDLWindow) setLooking(looking bool) {
	if w.looking == looking {
		return
	}
	w.looking = looking
	sdl.SetRelativeMouseMode(looking)
}

// Input is the camera control state accumulated since the previous call.
type Input struct {
	Movement camera.Movement
	// LookX and LookY are mouse travel in pixels while the right button is held.
	LookX float32
	LookY float32
}

// TakeInput returns the movement keys currently held and the mouse travel since the last
// call. The camera only moves while the right mouse button is held.
func (w *SDLWindow) TakeInput() Input {
	input := Input{LookX: w.lookX, LookY: w.lookY}
	w.lookX, w.lookY = 0, 0

	if w.looking {
		keys := sdl.GetKeyboardState()
		input.Movement = MovementFromKeys(func(code sdl.Scancode) bool {
			return int(code) < len(keys) && keys[code] != 0
		})
	}
	return input
}

// MovementFromKeys maps WASD, Q/E and left shift onto camera movement.
func MovementFromKeys(pressed func(sdl.Scancode) bool) camera.Movement {
	axis := func(positive, negative sdl.Scancode) float32 {
		var value float32
		if pressed(positive) {
			value++
		}
		if pressed(negative) {
			value--
		}
		return value
	}

	return camera.Movement{
		Forward: axis(sdl.SCANCODE_W, sdl.SCANCODE_S),
		Right:   axis(sdl.SCANCODE_D, sdl.SCANCODE_A),
		Up:      axis(sdl.SCANCODE_E, sdl.SCANCODE_Q),
		Fast:    pressed(sdl.SCANCODE_LSHIFT),
	}
}

// Close destroys the window and shuts SDL down.
func (w *SDLWindow) Close() error {
	err := w.window.Destroy()
	sdl.Quit()
	return errors.Wrap(err, "destroy window")
}
