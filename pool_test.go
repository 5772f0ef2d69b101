package flatjson_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/flatjson"
)

func newMonsterPool(t *testing.T) *flatjson.Pool[Monster, *Monster] {
	t.Helper()
	p, err := flatjson.NewPool[Monster](monsterModules())
	require.NoError(t, err)
	return p
}

func TestPool_HeldDefaultIsNotShared(t *testing.T) {
	p := newMonsterPool(t)

	a := p.Get()
	b := p.Get()
	assert.NotSame(t, a.Codec(), b.Codec())
	assert.Equal(t, 2, p.Minted())

	b.Release()
	c := p.Get()
	assert.Same(t, b.Codec(), c.Codec())
	c.Release()
	a.Release()
}

func TestPool_ReleasedDefaultIsReused(t *testing.T) {
	p := newMonsterPool(t)

	a := p.Get()
	first := a.Codec()
	require.NoError(t, first.ParseString(`{"name":"Orc"}`))
	a.Release()

	b := p.Get()
	defer b.Release()
	assert.Same(t, first, b.Codec())
	assert.Equal(t, 1, p.Minted())
	assert.Equal(t, 1, p.Holders())
	// the schema stays loaded across leases
	assert.Equal(t, flatjson.Loaded, b.Codec().Registry().State())
}

func TestPool_ReleaseIsIdempotent(t *testing.T) {
	p := newMonsterPool(t)

	a := p.Get()
	b := p.Get()
	b.Release()
	b.Release()
	assert.Equal(t, 0, p.Holders())
	a.Release()
	assert.Equal(t, 0, p.Holders())
}

func TestPool_ConcurrentLeasesNeverShare(t *testing.T) {
	p := newMonsterPool(t)

	const workers = 8
	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			l := p.Get()
			defer l.Release()
			if err := l.Codec().ParseString(`{"name":"Orc","hp":3}`); err != nil {
				errs <- err
				return
			}
			if _, err := l.Codec().Text(); err != nil {
				errs <- err
			}
		}()
	}
	close(start)
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 0, p.Holders())
}

func TestNewPool_NoModules(t *testing.T) {
	_, err := flatjson.NewPool[Monster](nil)
	assert.ErrorIs(t, err, flatjson.ErrNoModules)
}
