package loading

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_StartStopPairs(t *testing.T) {
	var r Registry

	a := r.Start()
	b := r.Start()
	require.NotEqual(t, a, b, "tokens must be unique")

	snap := r.Snapshot()
	assert.Equal(t, 2, snap.Active)
	assert.True(t, snap.Busy())
	assert.False(t, snap.BusySince.IsZero())

	r.Stop(a)
	r.Stop(b)

	snap = r.Snapshot()
	assert.Equal(t, 0, snap.Active)
	assert.Equal(t, uint64(2), snap.Started)
	assert.Equal(t, uint64(2), snap.Stopped)
	assert.True(t, snap.BusySince.IsZero())
}

func TestRegistry_StopIsIdempotentPerToken(t *testing.T) {
	var r Registry

	a := r.Start()
	b := r.Start()

	r.Stop(a)
	r.Stop(a)
	r.Stop(Token("not-issued"))

	snap := r.Snapshot()
	assert.Equal(t, 1, snap.Active, "second stop of a must not release b")
	assert.Equal(t, uint64(1), snap.Stopped)

	r.Stop(b)
	assert.Equal(t, 0, r.Snapshot().Active)
}

func TestRegistry_ConcurrentUse(t *testing.T) {
	var r Registry
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token := r.Start()
			_ = r.Snapshot()
			r.Stop(token)
		}()
	}
	wg.Wait()

	snap := r.Snapshot()
	assert.Equal(t, 0, snap.Active)
	assert.Equal(t, snap.Started, snap.Stopped)
	assert.Equal(t, uint64(50), snap.Started)
}

func TestNop(t *testing.T) {
	var ind Indicator = Nop{}
	token := ind.Start()
	ind.Stop(token)
	assert.Equal(t, Token(""), token)
}
