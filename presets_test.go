package bcsnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetTopology(t *testing.T) {
	_, chosen, err := PresetTopology(NoPreset)
	require.NoError(t, err)
	assert.False(t, chosen)

	preset, chosen, err := PresetTopology(2)
	require.NoError(t, err)
	assert.True(t, chosen)
	assert.Equal(t, Preset{NumHosts: 2, NumRouters: 1, Links: "n0-r0,r0-n1", Connections: "n0-n1"}, preset)

	for _, id := range []int{0, -3, MaxPreset + 1} {
		_, _, err := PresetTopology(id)
		assert.ErrorIs(t, err, ErrConfig)
	}
}

// every preset must build, wire and resolve
func TestPresetsBuild(t *testing.T) {
	for id := NoPreset + 1; id <= MaxPreset; id++ {
		preset, _, err := PresetTopology(id)
		require.NoError(t, err)

		physical, err := ParseLinks(preset.Links, preset.NumHosts, preset.NumRouters)
		require.NoError(t, err, "preset %d links", id)
		overlay, err := ParseConnections(preset.Connections, preset.NumHosts)
		require.NoError(t, err, "preset %d connections", id)

		dg := &DualGraph{NumHosts: preset.NumHosts, NumRouters: preset.NumRouters,
			Physical: physical, Overlay: overlay, Same: preset.Links == preset.Connections}
		if dg.Same {
			dg.Overlay = hostOnlyEdges(physical)
		}
		assert.Empty(t, BuildRoutes(dg).CheckReachability(dg.Overlay), "preset %d", id)

		_, nbrs := wire(t, dg)
		for host := 0; host < dg.NumHosts; host++ {
			assert.Len(t, nbrs[host], dg.OverlayDegree(host), "preset %d host %d", id, host)
		}
	}
}

func TestPresetSizes(t *testing.T) {
	sizes := map[int][2]int{2: {2, 1}, 3: {2, 3}, 4: {5, 1}, 5: {8, 3}, 6: {13, 0}, 7: {13, 0}, 8: {21, 0}, 9: {21, 25}}
	for id, size := range sizes {
		preset, _, err := PresetTopology(id)
		require.NoError(t, err)
		assert.Equal(t, size, [2]int{preset.NumHosts, preset.NumRouters}, "preset %d", id)
	}
}
