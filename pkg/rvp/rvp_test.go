package rvp

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPost_FiresAfterExactlyNPredecessors(t *testing.T) {
	fired := 0
	var got Outcome = -1
	p := New("t1", Final, 3, func(o Outcome) {
		fired++
		got = o
	})

	p.Post(OK)
	assert.Equal(t, 0, fired)
	p.Post(OK)
	assert.Equal(t, 0, fired)
	p.Post(OK)
	assert.Equal(t, 1, fired)
	assert.Equal(t, OK, got)
}

func TestPost_AnyAbortedMakesAggregateAborted(t *testing.T) {
	var got Outcome = -1
	p := New("t1", Final, 2, func(o Outcome) { got = o })

	p.Post(OK)
	p.Post(Aborted)

	assert.Equal(t, Aborted, got)
	assert.Equal(t, Aborted, p.Outcome())
}

func TestPost_NeverFiresTwice(t *testing.T) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	fireCount := 0

	p := New("t1", Final, 50, func(o Outcome) {
		mu.Lock()
		fireCount++
		mu.Unlock()
	})

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Post(OK)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fireCount)
	assert.Equal(t, Released, p.State())
}

func TestReset_ReinitializesForReuse(t *testing.T) {
	fired := false
	p := New("t1", Midway, 1, func(o Outcome) { fired = true })
	p.Post(OK)
	require.True(t, fired)
	require.Equal(t, Released, p.State())

	fired2 := false
	p.Reset("t2", Final, 2, func(o Outcome) { fired2 = true })

	assert.Equal(t, Armed, p.State())
	assert.Equal(t, "t2", p.TxID)
	assert.Equal(t, Final, p.Kind)

	p.Post(OK)
	assert.False(t, fired2)
	p.Post(OK)
	assert.True(t, fired2)
}

func TestNewPool_ResetsKindAndPredecessorCountOnGiveback(t *testing.T) {
	pool := NewPool(2)
	p := pool.Borrow()
	p.Reset("dirty", Final, 5, func(Outcome) {})

	pool.Giveback(p)

	p2 := pool.Borrow()
	assert.Equal(t, "", p2.TxID)
	assert.Equal(t, Midway, p2.Kind)
	assert.Equal(t, Armed, p2.State())
}
