package memory

import (
	"sync"

	"github.com/rami3l/clavy/pkg/clavy"
)

// Store is the in-memory input source cache. Entries live for the whole
// process.
type Store struct {
	sources map[clavy.AppID]clavy.InputSourceID
	version uint64
	lock    sync.Mutex
}

func NewStore() *Store {
	return &Store{
		sources: make(map[clavy.AppID]clavy.InputSourceID),
	}
}

func (s *Store) Save(app clavy.AppID, source clavy.InputSourceID) {
	if app == "" {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if cur, ok := s.sources[app]; ok && cur == source {
		return
	}
	s.sources[app] = source
	s.version++
}

func (s *Store) Load(app clavy.AppID) (clavy.InputSourceID, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	source, ok := s.sources[app]
	return source, ok
}

func (s *Store) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.sources)
}

// Version increases on every change of the stored values.
func (s *Store) Version() uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.version
}

func (s *Store) Snapshot() map[clavy.AppID]clavy.InputSourceID {
	s.lock.Lock()
	defer s.lock.Unlock()

	out := make(map[clavy.AppID]clavy.InputSourceID, len(s.sources))
	for app, source := range s.sources {
		out[app] = source
	}
	return out
}

// Restore merges previously persisted entries without bumping the version.
func (s *Store) Restore(sources map[clavy.AppID]clavy.InputSourceID) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for app, source := range sources {
		if app == "" {
			continue
		}
		s.sources[app] = source
	}
}
