package router

import (
	"testing"

	"github.com/ipandis/dorakit/pkg/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accountsRouter(t *testing.T) *Router {
	t.Helper()
	r, err := NewRouter([]TableSpec{
		{Table: "accounts", Partitions: 4, Strategy: Range, KeysPerPartition: 25},
	})
	require.NoError(t, err)
	return r
}

func TestRoute_RangePartitioning(t *testing.T) {
	r := accountsRouter(t)

	p, err := r.Route("accounts", key.New("accounts", key.Int(42)))
	require.NoError(t, err)
	assert.Equal(t, 1, p)

	p, err = r.Route("accounts", key.New("accounts", key.Int(0)))
	require.NoError(t, err)
	assert.Equal(t, 0, p)

	// clamps to the last partition past the configured range
	p, err = r.Route("accounts", key.New("accounts", key.Int(999)))
	require.NoError(t, err)
	assert.Equal(t, 3, p)
}

func TestRoute_IsPure(t *testing.T) {
	r := accountsRouter(t)
	k := key.New("accounts", key.Int(60))

	p1, err1 := r.Route("accounts", k)
	p2, err2 := r.Route("accounts", k)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, p1, p2)
}

func TestRoute_UnknownTable(t *testing.T) {
	r := accountsRouter(t)
	_, err := r.Route("widgets", key.New("widgets", key.Int(1)))
	assert.Error(t, err)
}

func TestRoute_HashPartitioning(t *testing.T) {
	r, err := NewRouter([]TableSpec{
		{Table: "subscriber", Partitions: 8, Strategy: Hash},
	})
	require.NoError(t, err)

	k := key.New("subscriber", key.Str("sub-1234"))
	p1, err1 := r.Route("subscriber", k)
	p2, err2 := r.Route("subscriber", k)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, p1, p2)
	assert.GreaterOrEqual(t, p1, 0)
	assert.Less(t, p1, 8)
}

func TestPartitionRange(t *testing.T) {
	r := accountsRouter(t)
	rng, err := r.PartitionRange("accounts", 1)
	require.NoError(t, err)
	assert.True(t, rng.Contains(key.New("accounts", key.Int(42))))
	assert.False(t, rng.Contains(key.New("accounts", key.Int(24))))
}

func TestPartitionRange_HashTableErrors(t *testing.T) {
	r, err := NewRouter([]TableSpec{{Table: "subscriber", Partitions: 4, Strategy: Hash}})
	require.NoError(t, err)
	_, err = r.PartitionRange("subscriber", 0)
	assert.Error(t, err)
}

func TestNewRouter_RejectsZeroKeysPerPartitionForRange(t *testing.T) {
	_, err := NewRouter([]TableSpec{{Table: "accounts", Partitions: 4, Strategy: Range}})
	assert.Error(t, err)
}

func TestEstimateKeysPerPartition(t *testing.T) {
	kpp := EstimateKeysPerPartition(10, 3000, 4)
	assert.Equal(t, int64(7500), kpp)
}
