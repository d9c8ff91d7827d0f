package frame

import (
	"github.com/cockroachdb/errors"
)

// SyncFactory creates and destroys the synchronization primitives owned by a SyncSet.
type SyncFactory[S any, F any] interface {
	NewSemaphore() (S, error)
	NewFence(signaled bool) (F, error)
	DestroySemaphore(semaphore S)
	DestroyFence(fence F)
}

// SyncSet holds the frame-slot primitives (one image-available semaphore and one
// in-flight fence per slot) and the per-image render-finished semaphores. The latter are
// indexed by the acquired image, never by the slot, so their count follows the swapchain.
type SyncSet[S any, F any] struct {
	factory SyncFactory[S, F]

	ImageAvailable []S
	InFlight       []F
	RenderFinished []S
}

// NewSyncSet creates framesInFlight slot primitives, with fences created signaled so the
// first wait on every slot returns immediately, and imageCount render-finished semaphores.
func NewSyncSet[S any, F any](factory SyncFactory[S, F], framesInFlight, imageCount int) (*SyncSet[S, F], error) {
	set := &SyncSet[S, F]{factory: factory}

	for i := 0; i < framesInFlight; i++ {
		semaphore, err := factory.NewSemaphore()
		if err != nil {
			set.Destroy()
			return nil, errors.Wrapf(err, "create image-available semaphore %d", i)
		}
		set.ImageAvailable = append(set.ImageAvailable, semaphore)

		fence, err := factory.NewFence(true)
		if err != nil {
			set.Destroy()
			return nil, errors.Wrapf(err, "create in-flight fence %d", i)
		}
		set.InFlight = append(set.InFlight, fence)
	}

	err := set.Resize(imageCount)
	if err != nil {
		set.Destroy()
		return nil, err
	}

	return set, nil
}

// Resize rebuilds the render-finished semaphores for a new swapchain image count. The
// caller must ensure none of the old semaphores is still pending on the GPU.
func (s *SyncSet[S, F]) Resize(imageCount int) error {
	s.destroyRenderFinished()

	for i := 0; i < imageCount; i++ {
		semaphore, err := s.factory.NewSemaphore()
		if err != nil {
			return errors.Wrapf(err, "create render-finished semaphore %d", i)
		}
		s.RenderFinished = append(s.RenderFinished, semaphore)
	}

	return nil
}

func (s *SyncSet[S, F]) Destroy() {
	s.destroyRenderFinished()

	for _, fence := range s.InFlight {
		s.factory.DestroyFence(fence)
	}
	s.InFlight = nil

	for _, semaphore := range s.ImageAvailable {
		s.factory.DestroySemaphore(semaphore)
	}
	s.ImageAvailable = nil
}

func (s *SyncSet[S, F]) destroyRenderFinished() {
	for _, semaphore := range s.RenderFinished {
		s.factory.DestroySemaphore(semaphore)
	}
	s.RenderFinished = nil
}
