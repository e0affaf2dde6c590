package bcsnet

import (
	"net/netip"
)

// NeighborSets[i] is the ordered list of peer addresses host i gossips to
type NeighborSets [][]netip.Addr

// ResolveNeighbors derives the neighbor set of every host from a completed Wiring.
// When the overlay is the physical graph the lists built during wiring are returned.
// Otherwise each overlay edge adds the primary address of either host to the other's list,
// and a host in the overlay that owns no address is an error
func ResolveNeighbors(w *Wiring) (NeighborSets, error) {
	dg := w.graph
	nbrs := make(NeighborSets, dg.NumHosts)

	if dg.Same {
		for host := range nbrs {
			nbrs[host] = append([]netip.Addr{}, w.hostNbrs[host]...)
		}
		return nbrs, nil
	}

	for host := range nbrs {
		nbrs[host] = make([]netip.Addr, 0, dg.OverlayDegree(host))
	}

	for _, edge := range dg.Overlay {
		addrA, okA := w.PrimaryAddr(edge.A)
		if !okA {
			return nil, constraintErr(edge.String(), "host %d has no physical link and so no address", edge.A.Index)
		}
		addrB, okB := w.PrimaryAddr(edge.B)
		if !okB {
			return nil, constraintErr(edge.String(), "host %d has no physical link and so no address", edge.B.Index)
		}
		nbrs[edge.A.Index] = append(nbrs[edge.A.Index], addrB)
		nbrs[edge.B.Index] = append(nbrs[edge.B.Index], addrA)
	}
	return nbrs, nil
}

// AddrPorts pairs every address of the host's neighbor set with the port
func (ns NeighborSets) AddrPorts(host int, port uint16) []netip.AddrPort {
	addrPorts := make([]netip.AddrPort, len(ns[host]))
	for idx, addr := range ns[host] {
		addrPorts[idx] = netip.AddrPortFrom(addr, port)
	}
	return addrPorts
}
