package camera

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func assertVecNear(t *testing.T, expected, actual mgl32.Vec3) {
	t.Helper()
	for i := range expected {
		assert.InDeltaf(t, expected[i], actual[i], 1e-4, "component %d: expected %v, got %v", i, expected, actual)
	}
}

func TestProjectionFlipsY(t *testing.T) {
	cam := Default()

	projection := cam.Projection(16.0 / 9.0)
	reference := mgl32.Perspective(mgl32.DegToRad(cam.FOV), 16.0/9.0, cam.Near, cam.Far)

	assert.Equal(t, -reference[5], projection[5])
	for i := range projection {
		if i == 5 {
			continue
		}
		assert.Equal(t, reference[i], projection[i])
	}

	// A point above the camera lands in the upper half of Vulkan's clip space (negative Y).
	clip := projection.Mul4x1(mgl32.Vec4{0, 1, -10, 1})
	assert.Less(t, clip.Y()/clip.W(), float32(0))
}

func TestDefaultLooksDownNegativeZ(t *testing.T) {
	cam := Default()

	assertVecNear(t, mgl32.Vec3{0, 0, -1}, cam.Forward())
	assertVecNear(t, mgl32.Vec3{1, 0, 0}, cam.Right())

	origin := cam.View().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assertVecNear(t, mgl32.Vec3{0, 0, -40.5}, origin.Vec3())
}

func TestForwardOnAxisCarriesRoundingError(t *testing.T) {
	cam := Default()
	forward := cam.Forward()

	// cos(-90°) is not exactly zero in floating point.
	assert.NotZero(t, forward.X())
	assert.Less(t, math.Abs(float64(forward.X())), 1e-6)
	assertVecNear(t, mgl32.Vec3{0, 0, -1}, forward)
}

func TestMove(t *testing.T) {
	cam := Default()
	cam.Speed = 2

	cam.Move(Movement{Forward: 1}, time.Second)
	assertVecNear(t, mgl32.Vec3{0, 0, 38.5}, cam.Position)

	cam.Move(Movement{Right: -1, Up: 1}, 500*time.Millisecond)
	assertVecNear(t, mgl32.Vec3{-1, 1, 38.5}, cam.Position)

	cam.FastSpeed = 8
	cam.Move(Movement{Forward: -1, Fast: true}, 250*time.Millisecond)
	assertVecNear(t, mgl32.Vec3{-1, 1, 40.5}, cam.Position)
}

func TestLookClampsPitch(t *testing.T) {
	cam := Default()

	cam.Look(0, -10000)
	assert.Equal(t, float32(maxPitch), cam.Pitch)

	cam.Look(0, 10000)
	assert.Equal(t, float32(-maxPitch), cam.Pitch)

	cam.Look(100, 0)
	assert.InDelta(t, -80, cam.Yaw, 1e-4)
}

func TestSceneAspect(t *testing.T) {
	cam := Default()

	wide := cam.Scene(1600, 900)
	assert.Equal(t, cam.Projection(1600.0/900.0), wide.Projection)
	assert.Equal(t, cam.View(), wide.View)

	minimized := cam.Scene(0, 0)
	assert.Equal(t, cam.Projection(1), minimized.Projection)
}
