package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/vkforward/camera"
)

func held(codes ...sdl.Scancode) func(sdl.Scancode) bool {
	return func(code sdl.Scancode) bool {
		for _, c := range codes {
			if c == code {
				return true
			}
		}
		return false
	}
}

func TestMovementFromKeys(t *testing.T) {
	tests := []struct {
		name string
		keys []sdl.Scancode
		want camera.Movement
	}{
		{name: "none", want: camera.Movement{}},
		{name: "forward", keys: []sdl.Scancode{sdl.SCANCODE_W}, want: camera.Movement{Forward: 1}},
		{name: "opposing cancel", keys: []sdl.Scancode{sdl.SCANCODE_W, sdl.SCANCODE_S}, want: camera.Movement{}},
		{name: "strafe left", keys: []sdl.Scancode{sdl.SCANCODE_A}, want: camera.Movement{Right: -1}},
		{name: "down fast", keys: []sdl.Scancode{sdl.SCANCODE_Q, sdl.SCANCODE_LSHIFT}, want: camera.Movement{Up: -1, Fast: true}},
		{name: "diagonal up", keys: []sdl.Scancode{sdl.SCANCODE_D, sdl.SCANCODE_E}, want: camera.Movement{Right: 1, Up: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MovementFromKeys(held(tt.keys...)))
		})
	}
}

func TestTakeResizedClears(t *testing.T) {
	w := &SDLWindow{resized: true}
	assert.True(t, w.TakeResized())
	assert.False(t, w.TakeResized())
}

func TestTakeInputResetsLook(t *testing.T) {
	w := &SDLWindow{lookX: 4, lookY: -2}

	input := w.TakeInput()
	assert.Equal(t, float32(4), input.LookX)
	assert.Equal(t, float32(-2), input.LookY)
	assert.Equal(t, camera.Movement{}, input.Movement)

	input = w.TakeInput()
	assert.Zero(t, input.LookX)
	assert.Zero(t, input.LookY)
}
