package frame

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFence struct {
	id       int
	signaled bool
}

type fakeSyncFactory struct {
	nextID         int
	liveSemaphores map[int]bool
	liveFences     map[int]bool
	failAfter      int
}

func newFakeSyncFactory() *fakeSyncFactory {
	return &fakeSyncFactory{
		liveSemaphores: map[int]bool{},
		liveFences:     map[int]bool{},
		failAfter:      -1,
	}
}

func (f *fakeSyncFactory) allocate() (int, error) {
	if f.failAfter == 0 {
		return 0, errors.New("out of device memory")
	}
	f.failAfter--
	f.nextID++
	return f.nextID, nil
}

func (f *fakeSyncFactory) NewSemaphore() (int, error) {
	id, err := f.allocate()
	if err != nil {
		return 0, err
	}
	f.liveSemaphores[id] = true
	return id, nil
}

func (f *fakeSyncFactory) NewFence(signaled bool) (fakeFence, error) {
	id, err := f.allocate()
	if err != nil {
		return fakeFence{}, err
	}
	f.liveFences[id] = true
	return fakeFence{id: id, signaled: signaled}, nil
}

func (f *fakeSyncFactory) DestroySemaphore(semaphore int) {
	delete(f.liveSemaphores, semaphore)
}

func (f *fakeSyncFactory) DestroyFence(fence fakeFence) {
	delete(f.liveFences, fence.id)
}

func TestSyncSetCountsFollowImagesNotFrames(t *testing.T) {
	for _, imageCount := range []int{2, 3} {
		factory := newFakeSyncFactory()
		set, err := NewSyncSet[int, fakeFence](factory, 2, imageCount)
		require.NoError(t, err)

		assert.Len(t, set.ImageAvailable, 2)
		assert.Len(t, set.InFlight, 2)
		assert.Len(t, set.RenderFinished, imageCount)
		assert.Len(t, factory.liveSemaphores, 2+imageCount)

		for _, fence := range set.InFlight {
			assert.True(t, fence.signaled)
		}

		set.Destroy()
		assert.Empty(t, factory.liveSemaphores)
		assert.Empty(t, factory.liveFences)
	}
}

func TestSyncSetResize(t *testing.T) {
	factory := newFakeSyncFactory()
	set, err := NewSyncSet[int, fakeFence](factory, 2, 3)
	require.NoError(t, err)

	slotSemaphores := append([]int{}, set.ImageAvailable...)
	oldImageSemaphores := append([]int{}, set.RenderFinished...)

	require.NoError(t, set.Resize(2))
	assert.Len(t, set.RenderFinished, 2)
	assert.Equal(t, slotSemaphores, set.ImageAvailable)
	for _, old := range oldImageSemaphores {
		assert.False(t, factory.liveSemaphores[old], "semaphore %d should have been destroyed", old)
	}
	assert.Len(t, factory.liveSemaphores, 4)

	require.NoError(t, set.Resize(4))
	assert.Len(t, set.RenderFinished, 4)
	assert.Len(t, factory.liveSemaphores, 6)

	set.Destroy()
	assert.Empty(t, factory.liveSemaphores)
}

func TestSyncSetCleansUpOnFailure(t *testing.T) {
	factory := newFakeSyncFactory()
	factory.failAfter = 5

	_, err := NewSyncSet[int, fakeFence](factory, 2, 3)
	require.Error(t, err)
	assert.Empty(t, factory.liveSemaphores)
	assert.Empty(t, factory.liveFences)
}
