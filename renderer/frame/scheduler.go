package frame

import (
	"github.com/cockroachdb/errors"
)

// ErrSurfaceStale is returned by a Timeline when acquisition or presentation reports that
// the swapchain no longer matches the surface (out of date or suboptimal).
var ErrSurfaceStale = errors.New("swapchain is out of date with its surface")

// Timeline is the GPU side of the frame loop. Slots index the per-frame fence, command
// buffer and image-available semaphore; images index the swapchain and the per-image
// render-finished semaphore.
type Timeline interface {
	// WaitForSlot blocks until the slot's last submission has completed.
	WaitForSlot(slot int) error
	// ResetSlot returns the slot's fence to the unsignaled state.
	ResetSlot(slot int) error
	// AcquireImage signals the slot's image-available semaphore once the returned image
	// is ready. It returns ErrSurfaceStale when the swapchain must be rebuilt.
	AcquireImage(slot int) (int, error)
	ResetCommands(slot int) error
	// Submit waits on the slot's image-available semaphore, signals the image's
	// render-finished semaphore and arms the slot's fence.
	Submit(slot, image int) error
	// Present queues the image behind its render-finished semaphore. It may return
	// ErrSurfaceStale after the image was queued.
	Present(slot, image int) error
	// SurfaceChanged reports and clears an out-of-band resize notification.
	SurfaceChanged() bool
	RecreateSurface() error
}

// RecordFunc writes the commands for one frame into the slot's command buffer, targeting
// the given swapchain image.
type RecordFunc func(slot, image int) error

// Scheduler cycles a fixed number of frame slots through the frame protocol. It holds no
// GPU handles of its own.
type Scheduler struct {
	timeline Timeline
	states   []State
	current  int
}

func NewScheduler(timeline Timeline, framesInFlight int) (*Scheduler, error) {
	if framesInFlight < 1 {
		return nil, errors.Newf("frames in flight must be at least 1, got %d", framesInFlight)
	}

	return &Scheduler{
		timeline: timeline,
		states:   make([]State, framesInFlight),
	}, nil
}

func (s *Scheduler) FramesInFlight() int {
	return len(s.states)
}

// CurrentSlot is the slot the next DrawFrame will use.
func (s *Scheduler) CurrentSlot() int {
	return s.current
}

func (s *Scheduler) SlotState(slot int) State {
	return s.states[slot]
}

// DrawFrame runs one iteration of the frame protocol. A stale surface during acquisition
// rebuilds the swapchain and skips the frame without touching the slot's fence; a stale
// surface during presentation rebuilds after the slot has advanced. Any other failure is
// returned and the loop is expected to stop.
func (s *Scheduler) DrawFrame(record RecordFunc) error {
	slot := s.current

	err := s.timeline.WaitForSlot(slot)
	if err != nil {
		return errors.Wrapf(err, "wait for frame slot %d", slot)
	}

	s.states[slot] = Acquiring
	image, err := s.timeline.AcquireImage(slot)
	if errors.Is(err, ErrSurfaceStale) {
		s.states[slot] = Idle
		return s.recreate()
	} else if err != nil {
		return errors.Wrapf(err, "acquire image for frame slot %d", slot)
	}

	// The fence is only reset once work is certain to be submitted, otherwise the next
	// wait on this slot would never return.
	err = s.timeline.ResetSlot(slot)
	if err != nil {
		return errors.Wrapf(err, "reset fence for frame slot %d", slot)
	}

	s.states[slot] = Recording
	err = s.timeline.ResetCommands(slot)
	if err != nil {
		return errors.Wrapf(err, "reset command buffer for frame slot %d", slot)
	}

	err = record(slot, image)
	if err != nil {
		return errors.Wrapf(err, "record frame slot %d image %d", slot, image)
	}

	err = s.timeline.Submit(slot, image)
	if err != nil {
		return errors.Wrapf(err, "submit frame slot %d image %d", slot, image)
	}
	s.states[slot] = Submitted

	s.states[slot] = Presenting
	err = s.timeline.Present(slot, image)
	stale := errors.Is(err, ErrSurfaceStale)
	if err != nil && !stale {
		return errors.Wrapf(err, "present image %d", image)
	}

	s.states[slot] = Idle
	s.current = (slot + 1) % len(s.states)

	if stale || s.timeline.SurfaceChanged() {
		return s.recreate()
	}

	return nil
}

func (s *Scheduler) recreate() error {
	err := s.timeline.RecreateSurface()
	if err != nil {
		return errors.Wrap(err, "recreate swapchain")
	}
	return nil
}
