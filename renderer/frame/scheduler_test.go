package frame

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTimeline models a GPU queue in which a submission stays pending until the host
// waits on its slot.
type fakeTimeline struct {
	t *testing.T

	imageCount int
	nextImage  int

	pending  []bool
	signaled []bool

	staleAcquires int
	stalePresents int
	resized       bool
	submitErr     error

	recreations int
	events      []string
}

func newFakeTimeline(t *testing.T, slots, images int) *fakeTimeline {
	signaled := make([]bool, slots)
	for i := range signaled {
		signaled[i] = true
	}

	return &fakeTimeline{
		t:          t,
		imageCount: images,
		pending:    make([]bool, slots),
		signaled:   signaled,
	}
}

func (f *fakeTimeline) log(format string, args ...any) {
	f.events = append(f.events, fmt.Sprintf(format, args...))
}

func (f *fakeTimeline) WaitForSlot(slot int) error {
	f.log("wait %d", slot)
	if !f.signaled[slot] && !f.pending[slot] {
		f.t.Fatalf("wait on slot %d would never return: fence reset without a submission", slot)
	}
	f.pending[slot] = false
	f.signaled[slot] = true
	return nil
}

func (f *fakeTimeline) ResetSlot(slot int) error {
	f.log("reset fence %d", slot)
	if f.pending[slot] {
		f.t.Fatalf("fence of slot %d reset while its submission is still executing", slot)
	}
	f.signaled[slot] = false
	return nil
}

func (f *fakeTimeline) AcquireImage(slot int) (int, error) {
	f.log("acquire %d", slot)
	if f.staleAcquires > 0 {
		f.staleAcquires--
		return 0, ErrSurfaceStale
	}

	image := f.nextImage
	f.nextImage = (f.nextImage + 1) % f.imageCount
	return image, nil
}

func (f *fakeTimeline) ResetCommands(slot int) error {
	f.log("reset commands %d", slot)
	if f.pending[slot] {
		f.t.Fatalf("command buffer of slot %d reset while its previous submission is pending", slot)
	}
	return nil
}

func (f *fakeTimeline) Submit(slot, image int) error {
	f.log("submit %d %d", slot, image)
	if f.submitErr != nil {
		return f.submitErr
	}
	f.pending[slot] = true
	return nil
}

func (f *fakeTimeline) Present(slot, image int) error {
	f.log("present %d", image)
	if f.stalePresents > 0 {
		f.stalePresents--
		return ErrSurfaceStale
	}
	return nil
}

func (f *fakeTimeline) SurfaceChanged() bool {
	changed := f.resized
	f.resized = false
	return changed
}

func (f *fakeTimeline) RecreateSurface() error {
	f.log("recreate")
	f.recreations++
	return nil
}

func TestNewSchedulerRejectsZeroFrames(t *testing.T) {
	_, err := NewScheduler(newFakeTimeline(t, 1, 2), 0)
	require.Error(t, err)
}

func TestDrawFrameOrdering(t *testing.T) {
	timeline := newFakeTimeline(t, 2, 3)
	scheduler, err := NewScheduler(timeline, 2)
	require.NoError(t, err)

	var recorded [][2]int
	record := func(slot, image int) error {
		assert.Equal(t, Recording, scheduler.SlotState(slot))
		timeline.log("record %d %d", slot, image)
		recorded = append(recorded, [2]int{slot, image})
		return nil
	}

	require.NoError(t, scheduler.DrawFrame(record))
	assert.Equal(t, []string{
		"wait 0",
		"acquire 0",
		"reset fence 0",
		"reset commands 0",
		"record 0 0",
		"submit 0 0",
		"present 0",
	}, timeline.events)
	assert.Equal(t, 1, scheduler.CurrentSlot())
	assert.Equal(t, Idle, scheduler.SlotState(0))

	for i := 0; i < 11; i++ {
		require.NoError(t, scheduler.DrawFrame(record))
	}

	// Slots cycle modulo two while images cycle modulo three.
	require.Len(t, recorded, 12)
	for i, pair := range recorded {
		assert.Equal(t, i%2, pair[0], "frame %d slot", i)
		assert.Equal(t, i%3, pair[1], "frame %d image", i)
	}
	assert.Zero(t, timeline.recreations)
}

func TestDrawFrameStaleAcquireSkipsFrame(t *testing.T) {
	timeline := newFakeTimeline(t, 2, 2)
	scheduler, err := NewScheduler(timeline, 2)
	require.NoError(t, err)

	timeline.staleAcquires = 1
	called := false
	err = scheduler.DrawFrame(func(slot, image int) error {
		called = true
		return nil
	})
	require.NoError(t, err)

	assert.False(t, called)
	assert.Equal(t, 1, timeline.recreations)
	assert.Equal(t, 0, scheduler.CurrentSlot())
	assert.Equal(t, Idle, scheduler.SlotState(0))
	assert.True(t, timeline.signaled[0], "fence must stay signaled when nothing was submitted")

	// The retried frame goes through on the same slot.
	err = scheduler.DrawFrame(func(slot, image int) error {
		called = true
		assert.Equal(t, 0, slot)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, 1, scheduler.CurrentSlot())
}

func TestDrawFrameStalePresentRecreatesAfterAdvancing(t *testing.T) {
	timeline := newFakeTimeline(t, 2, 2)
	scheduler, err := NewScheduler(timeline, 2)
	require.NoError(t, err)

	timeline.stalePresents = 1
	require.NoError(t, scheduler.DrawFrame(func(slot, image int) error { return nil }))

	assert.Equal(t, 1, timeline.recreations)
	assert.Equal(t, 1, scheduler.CurrentSlot())
	assert.Equal(t, "recreate", timeline.events[len(timeline.events)-1])
}

func TestDrawFrameResizeRecreates(t *testing.T) {
	timeline := newFakeTimeline(t, 2, 2)
	scheduler, err := NewScheduler(timeline, 2)
	require.NoError(t, err)

	timeline.resized = true
	require.NoError(t, scheduler.DrawFrame(func(slot, image int) error { return nil }))
	assert.Equal(t, 1, timeline.recreations)

	require.NoError(t, scheduler.DrawFrame(func(slot, image int) error { return nil }))
	assert.Equal(t, 1, timeline.recreations)
}

func TestDrawFrameFatalErrors(t *testing.T) {
	boom := errors.New("device lost")

	t.Run("submit", func(t *testing.T) {
		timeline := newFakeTimeline(t, 2, 2)
		scheduler, err := NewScheduler(timeline, 2)
		require.NoError(t, err)

		timeline.submitErr = boom
		err = scheduler.DrawFrame(func(slot, image int) error { return nil })
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 0, scheduler.CurrentSlot())
		assert.Zero(t, timeline.recreations)
	})

	t.Run("record", func(t *testing.T) {
		timeline := newFakeTimeline(t, 2, 2)
		scheduler, err := NewScheduler(timeline, 2)
		require.NoError(t, err)

		err = scheduler.DrawFrame(func(slot, image int) error { return boom })
		require.ErrorIs(t, err, boom)
		assert.NotContains(t, timeline.events, "submit 0 0")
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Recording", Recording.String())
	assert.Equal(t, "State(42)", State(42).String())
}
