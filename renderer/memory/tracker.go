package memory

import (
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// tracker records which allocations are still alive so the allocator can refuse to be
// torn down underneath them.
type tracker struct {
	lock   sync.Mutex
	nextID int
	live   map[int]string
}

func newTracker() *tracker {
	return &tracker{live: make(map[int]string)}
}

func (t *tracker) add(name string) int {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.nextID++
	t.live[t.nextID] = name
	return t.nextID
}

func (t *tracker) remove(id int) {
	t.lock.Lock()
	defer t.lock.Unlock()

	delete(t.live, id)
}

func (t *tracker) count() int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return len(t.live)
}

func (t *tracker) check() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if len(t.live) == 0 {
		return nil
	}

	names := make([]string, 0, len(t.live))
	for _, name := range t.live {
		names = append(names, name)
	}
	sort.Strings(names)

	return errors.Newf("%d allocations still live: %s", len(names), strings.Join(names, ", "))
}
