package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rami3l/clavy/pkg/clavy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RoundTrip(t *testing.T) {
	s := NewStore()

	for i, tc := range []struct {
		app clavy.AppID
		src clavy.InputSourceID
	}{
		{"com.apple.Terminal", "com.apple.keylayout.US"},
		{"com.apple.Safari", "com.apple.keylayout.French"},
		{"org.mozilla.firefox", "com.apple.inputmethod.Kotoeri.RomajiTyping.Japanese"},
		{"com.apple.Terminal", "com.apple.keylayout.German"},
	} {
		s.Save(tc.app, tc.src)
		got, ok := s.Load(tc.app)
		require.True(t, ok, "case %d", i)
		assert.Equal(t, tc.src, got, "case %d", i)
	}

	assert.Equal(t, 3, s.Len())
}

func TestStore_MissingAndEmptyKeys(t *testing.T) {
	s := NewStore()

	_, ok := s.Load("com.unknown")
	assert.False(t, ok)

	s.Save("", "com.apple.keylayout.US")
	assert.Zero(t, s.Len())
	assert.Zero(t, s.Version())
}

func TestStore_VersionTracksChanges(t *testing.T) {
	s := NewStore()

	s.Save("com.a", "us")
	s.Save("com.a", "us")
	assert.Equal(t, uint64(1), s.Version())

	s.Save("com.a", "fr")
	assert.Equal(t, uint64(2), s.Version())

	s.Restore(map[clavy.AppID]clavy.InputSourceID{"com.b": "de", "": "xx"})
	assert.Equal(t, uint64(2), s.Version())
	assert.Equal(t, map[clavy.AppID]clavy.InputSourceID{"com.a": "fr", "com.b": "de"}, s.Snapshot())
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := NewStore()
	s.Save("com.a", "us")

	snap := s.Snapshot()
	snap["com.a"] = "fr"

	got, _ := s.Load("com.a")
	assert.Equal(t, clavy.InputSourceID("us"), got)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				app := clavy.AppID(fmt.Sprintf("com.app%d", i%10))
				s.Save(app, clavy.InputSourceID(fmt.Sprintf("src%d", w)))
				_, _ = s.Load(app)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 10, s.Len())
}
