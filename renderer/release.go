package renderer

import (
	"log/slog"

	"github.com/cockroachdb/errors"
)

type release struct {
	name string
	fn   func() error
}

// releaseStack tears resources down in the reverse of the order they were registered.
// Registering each resource right after it is created makes teardown order follow
// construction order, including when construction fails halfway.
type releaseStack struct {
	logger  *slog.Logger
	entries []release
}

func (s *releaseStack) push(name string, fn func() error) {
	s.entries = append(s.entries, release{name: name, fn: fn})
}

// run releases everything, continuing past failures, and returns the combined error.
func (s *releaseStack) run() error {
	var result error
	for i := len(s.entries) - 1; i >= 0; i-- {
		entry := s.entries[i]

		err := entry.fn()
		if err != nil {
			s.logger.Error("release failed", "resource", entry.name, "error", err)
			result = errors.CombineErrors(result, errors.Wrapf(err, "release %s", entry.name))
			continue
		}
		s.logger.Debug("released", "resource", entry.name)
	}
	s.entries = nil

	return result
}
