package bcsnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDescs(t *testing.T) {
	tests := []struct {
		name         string
		links, conns string
		wantL, wantC string
		wantSame     bool
	}{
		{"both empty", "", "", DefaultLink, DefaultLink, true},
		{"links empty", "", "n0-n2", "n0-n2", "n0-n2", true},
		{"connections empty", "n0-r0,r0-n1", " ", "n0-r0,r0-n1", "n0-r0,r0-n1", true},
		{"identical", "n0-n1", "n0-n1", "n0-n1", "n0-n1", true},
		{"different", "n0-r0,r0-n1", "n0-n1", "n0-r0,r0-n1", "n0-n1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links, conns, same := resolveDescs(tt.links, tt.conns)
			assert.Equal(t, tt.wantL, links)
			assert.Equal(t, tt.wantC, conns)
			assert.Equal(t, tt.wantSame, same)
		})
	}
}

func TestBuildDualGraphDefault(t *testing.T) {
	dg, err := BuildDualGraph(DefaultSimCfg(), nil)
	require.NoError(t, err)

	assert.True(t, dg.Same)
	assert.False(t, dg.Generated)
	assert.Equal(t, "n0-n1", FormatEdges(dg.Physical))
	assert.Equal(t, "n0-n1", FormatEdges(dg.Overlay))
	assert.Equal(t, DefaultDataRate, dg.Physical[0].DataRate)
	assert.Equal(t, DefaultDelay, dg.Physical[0].Delay)
}

func TestBuildDualGraphSameDropsRouterLinks(t *testing.T) {
	cfg := DefaultSimCfg()
	cfg.Nodes, cfg.Routers = 3, 1
	cfg.Links = "n0-r0,r0-n1,n1-n2,n2-n0"
	dg, err := BuildDualGraph(cfg, nil)
	require.NoError(t, err)

	assert.True(t, dg.Same)
	assert.Equal(t, "n1-n2,n2-n0", FormatEdges(dg.Overlay))
	assert.Equal(t, []int{2}, dg.PhysicalHostPartners(0))
	assert.Equal(t, []int{2}, dg.OverlayPartners(0))
	assert.Equal(t, 2, dg.OverlayDegree(2))
	assert.Equal(t, 4, dg.NumDevices())
}

func TestBuildDualGraphDistinctOverlay(t *testing.T) {
	cfg := DefaultSimCfg()
	cfg.Nodes, cfg.Routers = 2, 1
	cfg.Links, cfg.BCConnections = "n0-r0,r0-n1", "n0-n1"
	dg, err := BuildDualGraph(cfg, nil)
	require.NoError(t, err)

	assert.False(t, dg.Same)
	assert.Len(t, dg.Physical, 2)
	assert.Equal(t, []Edge{{A: Host(0), B: Host(1)}}, dg.Overlay)
	assert.Empty(t, dg.PhysicalHostPartners(0))
	assert.Equal(t, 1, dg.OverlayDegree(0))
}

func TestBuildDualGraphErrors(t *testing.T) {
	cfg := DefaultSimCfg()
	cfg.Links = "x0-n1"
	_, err := BuildDualGraph(cfg, nil)
	assert.ErrorIs(t, err, ErrFormat)

	cfg = DefaultSimCfg()
	cfg.Nodes, cfg.Routers = 2, 1
	cfg.Links, cfg.BCConnections = "n0-r0,r0-n1", "n0-r0"
	_, err = BuildDualGraph(cfg, nil)
	assert.ErrorIs(t, err, ErrFormat)

	cfg = DefaultSimCfg()
	cfg.Delays = []string{"1ms", "2ms"}
	_, err = BuildDualGraph(cfg, nil)
	assert.ErrorIs(t, err, ErrConstraint)
}

func TestBuildDualGraphGenerated(t *testing.T) {
	cfg := DefaultSimCfg()
	cfg.Nodes, cfg.Routers = 5, 3
	cfg.MinConnectionsPerNode = 2
	cfg.Links = "n0-r0"

	rc, err := cfg.Resolved()
	require.NoError(t, err)
	dg, err := BuildDualGraph(rc, &constRand{})
	require.NoError(t, err)

	assert.True(t, dg.Generated)
	assert.True(t, dg.Same)
	assert.Zero(t, dg.NumRouters)
	assert.Equal(t, "n0-n1,n1-n2,n2-n3,n3-n4,n4-n0", FormatEdges(dg.Physical))
	assert.Equal(t, FormatEdges(dg.Physical), FormatEdges(dg.Overlay))
	for host := 0; host < 5; host++ {
		assert.Equal(t, 2, dg.OverlayDegree(host))
	}
}

func TestBuildDualGraphPreset(t *testing.T) {
	cfg := DefaultSimCfg()
	cfg.Topology = 9
	rc, err := cfg.Resolved()
	require.NoError(t, err)

	dg, err := BuildDualGraph(rc, nil)
	require.NoError(t, err)
	assert.False(t, dg.Same)
	assert.Equal(t, 21, dg.NumHosts)
	assert.Equal(t, 25, dg.NumRouters)
	assert.Equal(t, bigOverlay, FormatEdges(dg.Overlay))
}
