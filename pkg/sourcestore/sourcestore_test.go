package sourcestore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rami3l/clavy/pkg/sourcestore"
	"github.com/rami3l/clavy/pkg/sourcestore/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakePersister struct {
	lock    sync.Mutex
	stored  sourcestore.Sources
	saves   int
	loadErr error
}

func (p *fakePersister) Load(context.Context) (sourcestore.Sources, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	return p.stored, nil
}

func (p *fakePersister) Save(_ context.Context, sources sourcestore.Sources) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.stored = sources
	p.saves++
	return nil
}

func (p *fakePersister) Close() error { return nil }

func (p *fakePersister) saveCount() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.saves
}

func TestRestore(t *testing.T) {
	store := memory.NewStore()
	p := &fakePersister{stored: sourcestore.Sources{"com.a": "fr"}}

	n, err := sourcestore.Restore(context.Background(), store, p)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	src, ok := store.Load("com.a")
	require.True(t, ok)
	assert.Equal(t, "fr", string(src))

	p.loadErr = errors.New("broken")
	_, err = sourcestore.Restore(context.Background(), store, p)
	assert.ErrorContains(t, err, "broken")
}

func TestSaveLooper_FlushesOnlyChanges(t *testing.T) {
	store := memory.NewStore()
	p := &fakePersister{}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- sourcestore.SaveLooper(ctx, store, p, 5*time.Millisecond, zaptest.NewLogger(t).Sugar())
	}()

	store.Save("com.a", "us")
	require.Eventually(t, func() bool { return p.saveCount() == 1 }, time.Second, time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, p.saveCount(), "unchanged store must not be flushed again")

	store.Save("com.b", "de")
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	assert.Equal(t, sourcestore.Sources{"com.a": "us", "com.b": "de"}, p.stored)
}
