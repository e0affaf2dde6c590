package bcsnet

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constRand always draws the same value, clamped to the requested range
type constRand struct {
	value int
	draws int
}

func (cr *constRand) RandInt(lo, hi int) int {
	cr.draws += 1
	if cr.value < lo {
		return lo
	}
	if cr.value > hi {
		return hi
	}
	return cr.value
}

func degrees(numHosts int, edges []Edge) []int {
	deg := make([]int, numHosts)
	for _, edge := range edges {
		deg[edge.A.Index] += 1
		deg[edge.B.Index] += 1
	}
	return deg
}

func hasDuplicate(edges []Edge) bool {
	for i := range edges {
		for j := i + 1; j < len(edges); j++ {
			if edges[i].Joins(edges[j].A, edges[j].B) {
				return true
			}
		}
	}
	return false
}

func TestCheckMinDegree(t *testing.T) {
	assert.NoError(t, CheckMinDegree(2, 1))
	assert.NoError(t, CheckMinDegree(5, 2))
	assert.NoError(t, CheckMinDegree(5, 4))

	assert.ErrorIs(t, CheckMinDegree(1, 1), ErrConstraint)
	assert.ErrorIs(t, CheckMinDegree(2, 0), ErrConstraint)
	assert.ErrorIs(t, CheckMinDegree(2, 2), ErrConstraint)
	assert.ErrorIs(t, CheckMinDegree(5, 1), ErrConstraint)
	assert.ErrorIs(t, CheckMinDegree(5, 5), ErrConstraint)
}

func TestGenerateRing(t *testing.T) {
	rng := &constRand{}
	edges, err := GenerateTopo(5, 2, rng)
	require.NoError(t, err)

	assert.Equal(t, "n0-n1,n1-n2,n2-n3,n3-n4,n4-n0", FormatEdges(edges))
	assert.Equal(t, []int{2, 2, 2, 2, 2}, degrees(5, edges))
	assert.Zero(t, rng.draws)

	dg := &DualGraph{NumHosts: 5, Physical: edges}
	assert.True(t, BuildRoutes(dg).IsConnected())
}

func TestGenerateTwoHosts(t *testing.T) {
	edges, err := GenerateTopo(2, 1, &constRand{})
	require.NoError(t, err)
	assert.Equal(t, "n0-n1", FormatEdges(edges))
}

func TestGenerateFallsBackToEnumeration(t *testing.T) {
	// every random draw names host 0, which is rejected for host 0 and for host 1
	rng := &constRand{value: 0}
	edges, err := GenerateTopo(4, 3, rng)
	require.NoError(t, err)

	assert.Equal(t, "n0-n1,n1-n2,n2-n3,n3-n0,n0-n2,n1-n3", FormatEdges(edges))
	assert.Equal(t, 2*(maxRandomDraws+1), rng.draws)
}

func TestGenerateRejectsBadDegree(t *testing.T) {
	_, err := GenerateTopo(4, 4, &constRand{})
	assert.ErrorIs(t, err, ErrConstraint)
}

func TestRandSourceSeeded(t *testing.T) {
	first := NewRandSource("alpha")
	NewRandSource("unrelated")
	second := NewRandSource("alpha")
	other := NewRandSource("completely-different")

	same, differ := true, false
	for range 32 {
		a, b, c := first.RandInt(0, 1<<20), second.RandInt(0, 1<<20), other.RandInt(0, 1<<20)
		same = same && a == b
		differ = differ || a != c
	}
	assert.True(t, same, "streams from one seed draw the same sequence")
	assert.True(t, differ, "streams from different seeds draw different sequences")
}

func TestGenerateTopoSeeded(t *testing.T) {
	build := func(seed string) string {
		edges, err := GenerateTopo(20, 5, NewRandSource(seed))
		require.NoError(t, err)
		return FormatEdges(edges)
	}
	alpha := build("alpha")
	assert.Equal(t, alpha, build("alpha"))
	assert.NotEqual(t, alpha, build("completely-different"))
}

func TestStreamSeedInRange(t *testing.T) {
	for _, name := range []string{"", "topology", "alpha", "completely-different"} {
		seed := streamSeed(name)
		require.Len(t, seed, 6)
		for idx, word := range seed {
			limit := uint64(seedMod1)
			if idx >= 3 {
				limit = seedMod2
			}
			assert.NotZero(t, word)
			assert.Less(t, word, limit)
		}
	}
	assert.NotEqual(t, streamSeed("alpha"), streamSeed("completely-different"))
}

// TestGeneratorProperties checks the generated topologies of many sizes
func TestGeneratorProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40
	properties := gopter.NewProperties(parameters)

	rng := NewRandSource("generator-properties")
	sizes := gopter.CombineGens(gen.IntRange(3, 24), gen.IntRange(0, 1000)).
		Map(func(v []interface{}) [2]int {
			numHosts := v[0].(int)
			return [2]int{numHosts, 2 + v[1].(int)%(numHosts-2)}
		})

	properties.Property("every host reaches the minimum degree", prop.ForAll(
		func(size [2]int) bool {
			edges, err := GenerateTopo(size[0], size[1], rng)
			if err != nil {
				return false
			}
			for _, deg := range degrees(size[0], edges) {
				if deg < size[1] {
					return false
				}
			}
			return true
		},
		sizes,
	))

	properties.Property("generated topologies are connected", prop.ForAll(
		func(size [2]int) bool {
			edges, err := GenerateTopo(size[0], size[1], rng)
			return err == nil && BuildRoutes(&DualGraph{NumHosts: size[0], Physical: edges}).IsConnected()
		},
		sizes,
	))

	properties.Property("no self loops or duplicated links", prop.ForAll(
		func(size [2]int) bool {
			edges, err := GenerateTopo(size[0], size[1], rng)
			if err != nil || hasDuplicate(edges) {
				return false
			}
			for _, edge := range edges {
				if edge.A == edge.B || !edge.HostOnly() {
					return false
				}
			}
			return true
		},
		sizes,
	))

	properties.TestingRun(t)
}
