package clavy

import (
	"errors"
	"sync"
)

type fakeStore struct {
	lock  sync.Mutex
	data  map[AppID]InputSourceID
	saves []AppID
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[AppID]InputSourceID)}
}

func (s *fakeStore) Save(app AppID, src InputSourceID) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.data[app] = src
	s.saves = append(s.saves, app)
}

func (s *fakeStore) Load(app AppID) (InputSourceID, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	src, ok := s.data[app]
	return src, ok
}

func (s *fakeStore) saveCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.saves)
}

type fakeSources struct {
	lock      sync.Mutex
	current   InputSourceID
	installed map[InputSourceID]bool
	selects   []InputSourceID
	selectErr error
	// called after a successful switch, outside the lock
	onSwitch func(InputSourceID)
}

var errCurrentUnavailable = errors.New("current input source unavailable")

func newFakeSources(current InputSourceID, installed ...InputSourceID) *fakeSources {
	s := &fakeSources{
		current:   current,
		installed: map[InputSourceID]bool{current: true},
	}
	for _, id := range installed {
		s.installed[id] = true
	}
	return s
}

func (s *fakeSources) Current() (InputSourceID, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.current == "" {
		return "", errCurrentUnavailable
	}
	return s.current, nil
}

func (s *fakeSources) Select(id InputSourceID) (bool, error) {
	s.lock.Lock()
	s.selects = append(s.selects, id)
	if s.selectErr != nil {
		s.lock.Unlock()
		return false, s.selectErr
	}
	if !s.installed[id] {
		s.lock.Unlock()
		return false, nil
	}
	changed := s.current != id
	s.current = id
	onSwitch := s.onSwitch
	s.lock.Unlock()

	if changed && onSwitch != nil {
		onSwitch(id)
	}
	return true, nil
}

func (s *fakeSources) selected() []InputSourceID {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]InputSourceID(nil), s.selects...)
}

type fakeForeground struct {
	lock sync.Mutex
	app  AppID
}

func (f *fakeForeground) set(app AppID) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.app = app
}

func (f *fakeForeground) ForegroundApp() (AppID, bool) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.app, f.app != ""
}
