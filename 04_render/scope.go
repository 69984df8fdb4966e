package render

import (
	"errors"
	"os"
	"sync"
)

// scope collects intermediates and releases all of them exactly once, in
// reverse order of acquisition.
type scope struct {
	mu       sync.Mutex
	releases []func() error
	done     bool
}

func (s *scope) add(release func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases = append(s.releases, release)
}

// track registers a file or directory for removal.
func (s *scope) track(path string) string {
	s.add(func() error {
		if err := os.RemoveAll(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	})
	return path
}

func (s *scope) release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	s.done = true

	var errs []error
	for i := len(s.releases) - 1; i >= 0; i-- {
		if err := s.releases[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.releases = nil
	return errors.Join(errs...)
}
