package tracker

import (
	"errors"
	"io"
	"sync"
)

// scope collects resources acquired together so they can be released together.
// Release runs in reverse acquisition order and happens at most once.
type scope struct {
	mu       sync.Mutex
	releases []func() error
	done     bool
}

func (s *scope) add(c io.Closer) {
	s.addFunc(c.Close)
}

func (s *scope) addFunc(f func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases = append(s.releases, f)
}

// release runs every registered release function and joins their errors.
func (s *scope) release() error {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return nil
	}
	s.done = true
	releases := s.releases
	s.releases = nil
	s.mu.Unlock()

	var errs []error
	for i := len(releases) - 1; i >= 0; i-- {
		if err := releases[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
