package taxonomy

import (
	"fmt"
	"os"
	"sync"
)

// Source loads a taxonomy file once per process. Every call to Load after the
// first returns the same table (or the same error) without touching the file.
type Source struct {
	path string
	load func() (*Taxonomy, error)
}

func NewSource(path string) *Source {
	s := &Source{path: path}
	s.load = sync.OnceValues(s.read)
	return s
}

func (s *Source) Load() (*Taxonomy, error) {
	return s.load()
}

func (s *Source) read() (*Taxonomy, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open taxonomy: %w", err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}
	return t, nil
}
