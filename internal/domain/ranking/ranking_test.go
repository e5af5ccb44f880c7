package ranking

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/BlindDock/internal/domain/cluster"
	"github.com/turtacn/BlindDock/internal/domain/pose"
	"github.com/turtacn/BlindDock/internal/domain/structure"
	"github.com/turtacn/BlindDock/pkg/errors"
)

func single(t *testing.T, seed int64, rank int, energy float64) cluster.Cluster {
	t.Helper()
	p, err := pose.New(pose.Source{RunID: fmt.Sprintf("j-s%d", seed), Seed: seed}, rank, energy, 0, 0,
		[]structure.Vec3{{float64(seed), float64(rank), 0}})
	require.NoError(t, err)
	return cluster.Cluster{Members: []*pose.Pose{p}}
}

func TestRank_TieBrokenBySeed(t *testing.T) {
	res, err := Rank([]cluster.Cluster{
		single(t, 3, 1, -9.2),
		single(t, 1, 1, -9.2),
	}, All)
	require.NoError(t, err)
	require.Equal(t, 2, res.Len())
	assert.Equal(t, int64(1), res.Entries[0].Cluster.Representative().Seed())
	assert.Equal(t, int64(3), res.Entries[1].Cluster.Representative().Seed())
	assert.Equal(t, 1, res.Entries[0].Rank)
	assert.Equal(t, 2, res.Entries[1].Rank)
}

func TestRank_TotalOrder(t *testing.T) {
	input := []cluster.Cluster{
		single(t, 2, 3, -7.1),
		single(t, 1, 2, -8.4),
		single(t, 2, 1, -8.4),
		single(t, 1, 1, -8.4),
		single(t, 3, 1, -10.0),
		single(t, 1, 4, -6.0),
	}
	res, err := Rank(input, All)
	require.NoError(t, err)
	require.Equal(t, len(input), res.Len())

	for i := 0; i+1 < res.Len(); i++ {
		a := res.Entries[i].Cluster.Representative()
		b := res.Entries[i+1].Cluster.Representative()
		assert.LessOrEqual(t, a.Energy(), b.Energy())
		assert.True(t, pose.Less(a, b), "%s must precede %s", a.ID(), b.ID())
	}
	var order []string
	for _, e := range res.Entries {
		order = append(order, e.Cluster.Representative().ID())
	}
	assert.Equal(t, []string{"j-s3#1", "j-s1#1", "j-s1#2", "j-s2#1", "j-s2#3", "j-s1#4"}, order)
}

func TestRank_TopK(t *testing.T) {
	input := []cluster.Cluster{single(t, 1, 1, -5), single(t, 1, 2, -6), single(t, 1, 3, -7)}

	res, err := Rank(input, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Len())
	assert.Equal(t, 3, res.Total)
	assert.True(t, res.Truncated())
	best, ok := res.Best()
	require.True(t, ok)
	assert.Equal(t, -7.0, best.Cluster.Energy())

	res, err = Rank(input, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Len())
	assert.False(t, res.Truncated())

	for _, bad := range []int{0, -2} {
		_, err = Rank(input, bad)
		assert.True(t, errors.IsCode(err, errors.CodeInvalidParam), "top_k %d", bad)
	}
}

func TestRank_Empty(t *testing.T) {
	res, err := Rank(nil, All)
	require.NoError(t, err)
	assert.True(t, res.Empty())
	_, ok := res.Best()
	assert.False(t, ok)

	_, err = Rank([]cluster.Cluster{{}}, All)
	assert.Error(t, err)
}

//Personal.AI order the ending
