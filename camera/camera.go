// Package camera provides a first-person fly camera producing Vulkan-ready view and
// projection matrices.
package camera

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/vkforward/renderer/render"
)

const maxPitch = 89.0

var worldUp = mgl32.Vec3{0, 1, 0}

type Camera struct {
	Position mgl32.Vec3
	// Yaw and Pitch are in degrees. Yaw -90 looks down negative Z.
	Yaw   float32
	Pitch float32

	FOV  float32
	Near float32
	Far  float32

	// Speeds are in world units per second, Sensitivity in degrees per pixel of mouse travel.
	Speed       float32
	FastSpeed   float32
	Sensitivity float32
}

func Default() Camera {
	return Camera{
		Position:    mgl32.Vec3{0, 0, 40.5},
		Yaw:         -90,
		FOV:         70,
		Near:        0.1,
		Far:         200,
		Speed:       2.5,
		FastSpeed:   10,
		Sensitivity: 0.1,
	}
}

func (c *Camera) Forward() mgl32.Vec3 {
	yaw := float64(mgl32.DegToRad(c.Yaw))
	pitch := float64(mgl32.DegToRad(c.Pitch))

	return mgl32.Vec3{
		float32(math.Cos(yaw) * math.Cos(pitch)),
		float32(math.Sin(pitch)),
		float32(math.Sin(yaw) * math.Cos(pitch)),
	}.Normalize()
}

func (c *Camera) Right() mgl32.Vec3 {
	return c.Forward().Cross(worldUp).Normalize()
}

func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Forward()), worldUp)
}

// Projection is a right-handed perspective projection with the Y axis flipped, since
// Vulkan's clip space points Y down.
func (c *Camera) Projection(aspect float32) mgl32.Mat4 {
	projection := mgl32.Perspective(mgl32.DegToRad(c.FOV), aspect, c.Near, c.Far)
	projection[5] *= -1
	return projection
}

// Scene returns the per-frame camera input for a framebuffer of the given size.
func (c *Camera) Scene(width, height int) render.Scene {
	aspect := float32(1)
	if width > 0 && height > 0 {
		aspect = float32(width) / float32(height)
	}

	return render.Scene{
		View:       c.View(),
		Projection: c.Projection(aspect),
	}
}

// Movement is the requested motion along each camera axis, each in [-1, 1].
type Movement struct {
	Forward float32
	Right   float32
	Up      float32
	// Fast moves at FastSpeed instead of Speed.
	Fast bool
}

func (c *Camera) Move(movement Movement, elapsed time.Duration) {
	speed := c.Speed
	if movement.Fast {
		speed = c.FastSpeed
	}
	distance := speed * float32(elapsed.Seconds())

	c.Position = c.Position.
		Add(c.Forward().Mul(movement.Forward * distance)).
		Add(c.Right().Mul(movement.Right * distance)).
		Add(worldUp.Mul(movement.Up * distance))
}

// Look turns the camera by a mouse delta in pixels. Pitch stops short of straight up or
// down so the view basis never degenerates.
func (c *Camera) Look(dx, dy float32) {
	c.Yaw += dx * c.Sensitivity
	c.Pitch -= dy * c.Sensitivity
	c.Pitch = mgl32.Clamp(c.Pitch, -maxPitch, maxPitch)
}
