package bcsnet

import (
	"net/netip"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wire(t *testing.T, dg *DualGraph) (*Wiring, NeighborSets) {
	t.Helper()
	pool, err := NewAddrPool(DefaultAddrBase)
	require.NoError(t, err)
	w, err := WirePhysical(dg, pool)
	require.NoError(t, err)
	nbrs, err := ResolveNeighbors(w)
	require.NoError(t, err)
	return w, nbrs
}

func TestAddrPool(t *testing.T) {
	pool, err := NewAddrPool("10.1.2.200/30")
	require.NoError(t, err)

	first, err := pool.Next()
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("10.1.2.201"), first)

	for range 2 {
		_, err = pool.Next()
		require.NoError(t, err)
	}
	_, err = pool.Next()
	assert.ErrorIs(t, err, ErrConstraint)

	_, err = NewAddrPool("10.0.0.0")
	assert.ErrorIs(t, err, ErrConfig)
}

func TestTwoHostScenario(t *testing.T) {
	dg, err := BuildDualGraph(DefaultSimCfg(), nil)
	require.NoError(t, err)
	w, nbrs := wire(t, dg)

	addr0, addr1 := netip.MustParseAddr("10.0.0.1"), netip.MustParseAddr("10.0.0.2")
	assert.Equal(t, [][2]netip.Addr{{addr0, addr1}}, w.EdgeAddrs)
	assert.Equal(t, NeighborSets{{addr1}, {addr0}}, nbrs)
	assert.Equal(t, Host(1), w.AddrToNode[addr1])

	primary, ok := w.PrimaryAddr(Host(0))
	require.True(t, ok)
	assert.Equal(t, addr0, primary)
}

func TestOverlayAcrossRouter(t *testing.T) {
	dg := routedGraph(t, 2, 1, "n0-r0,r0-n1", "n0-n1")
	w, nbrs := wire(t, dg)
	require.False(t, dg.Same)

	assert.Equal(t, 4, w.NumAddrs())
	assert.Len(t, w.NodeAddrs[Router(0).Flat(2)], 2)

	host1, _ := w.PrimaryAddr(Host(1))
	assert.Equal(t, []netip.Addr{host1}, nbrs[0])
	assert.Equal(t, Host(1), w.AddrToNode[nbrs[0][0]])
	assert.Equal(t, Host(0), w.AddrToNode[nbrs[1][0]])

	addrPorts := nbrs.AddrPorts(0, DefaultPort)
	assert.Equal(t, netip.AddrPortFrom(host1, 8333), addrPorts[0])
}

func TestPrimaryIsFirstAssigned(t *testing.T) {
	dg := routedGraph(t, 3, 1, "n0-r0,n1-r0,n2-r0,n0-n1", "n0-n1,n1-n2,n2-n0")
	w, nbrs := wire(t, dg)

	// host 0 owns 10.0.0.1 from its router link and 10.0.0.7 from n0-n1
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("10.0.0.1"), netip.MustParseAddr("10.0.0.7")}, w.NodeAddrs[0])
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("10.0.0.3"), netip.MustParseAddr("10.0.0.5")}, nbrs[0])
}

func TestUnaddressedOverlayHost(t *testing.T) {
	dg := routedGraph(t, 3, 0, "n0-n1", "n0-n1,n1-n2")
	pool, err := NewAddrPool(DefaultAddrBase)
	require.NoError(t, err)
	w, err := WirePhysical(dg, pool)
	require.NoError(t, err)

	_, err = ResolveNeighbors(w)
	assert.ErrorIs(t, err, ErrConstraint)
}

func TestWirePoolExhausted(t *testing.T) {
	dg := routedGraph(t, 3, 0, "n0-n1,n1-n2", "")
	pool, err := NewAddrPool("192.168.0.0/30")
	require.NoError(t, err)
	_, err = WirePhysical(dg, pool)
	assert.ErrorIs(t, err, ErrConstraint)
}

// TestWiringProperties checks address and neighbor invariants over generated topologies
func TestWiringProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	rng := NewRandSource("wiring-properties")
	graphs := gen.IntRange(3, 16).Map(func(numHosts int) *DualGraph {
		edges, err := GenerateTopo(numHosts, 2+numHosts%(numHosts-2), rng)
		if err != nil {
			return nil
		}
		return &DualGraph{NumHosts: numHosts, Physical: edges, Overlay: hostOnlyEdges(edges), Same: true, Generated: true}
	})

	wireGraph := func(dg *DualGraph) (*Wiring, NeighborSets, bool) {
		if dg == nil {
			return nil, nil, false
		}
		pool, _ := NewAddrPool(DefaultAddrBase)
		w, err := WirePhysical(dg, pool)
		if err != nil {
			return nil, nil, false
		}
		nbrs, err := ResolveNeighbors(w)
		return w, nbrs, err == nil
	}

	properties.Property("address assignment is injective", prop.ForAll(
		func(dg *DualGraph) bool {
			w, _, ok := wireGraph(dg)
			if !ok {
				return false
			}
			seen := make(map[netip.Addr]bool)
			for _, pair := range w.EdgeAddrs {
				for _, addr := range pair {
					if seen[addr] {
						return false
					}
					seen[addr] = true
				}
			}
			return len(seen) == 2*len(dg.Physical) && len(w.AddrToNode) == len(seen)
		},
		graphs,
	))

	properties.Property("neighbors are the physical host partners", prop.ForAll(
		func(dg *DualGraph) bool {
			w, nbrs, ok := wireGraph(dg)
			if !ok {
				return false
			}
			for host := 0; host < dg.NumHosts; host++ {
				partners := dg.PhysicalHostPartners(host)
				if len(nbrs[host]) != len(partners) || len(nbrs[host]) != dg.OverlayDegree(host) {
					return false
				}
				for idx, addr := range nbrs[host] {
					if w.AddrToNode[addr] != Host(partners[idx]) {
						return false
					}
				}
			}
			return true
		},
		graphs,
	))

	properties.Property("a distinct overlay resolves to primary addresses", prop.ForAll(
		func(dg *DualGraph) bool {
			if dg == nil {
				return false
			}
			// reverse every overlay edge so the overlay differs from the physical links
			overlay := make([]Edge, len(dg.Overlay))
			for idx, edge := range dg.Overlay {
				overlay[idx] = Edge{A: edge.B, B: edge.A}
			}
			distinct := &DualGraph{NumHosts: dg.NumHosts, Physical: dg.Physical, Overlay: overlay}
			w, nbrs, ok := wireGraph(distinct)
			if !ok {
				return false
			}
			for host := 0; host < dg.NumHosts; host++ {
				partners := distinct.OverlayPartners(host)
				if len(nbrs[host]) != distinct.OverlayDegree(host) {
					return false
				}
				for idx, addr := range nbrs[host] {
					primary, _ := w.PrimaryAddr(Host(partners[idx]))
					if addr != primary || w.AddrToNode[addr] != Host(partners[idx]) {
						return false
					}
				}
			}
			return true
		},
		graphs,
	))

	properties.TestingRun(t)
}
