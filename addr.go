package bcsnet

// addr.go gives out the addresses of physical link endpoints and records
// which device owns each one

import (
	"net/netip"

	log "github.com/sirupsen/logrus"
)

// AddrPool hands out the addresses of one subnet in increasing order
type AddrPool struct {
	prefix netip.Prefix
	next   netip.Addr
}

// NewAddrPool is a constructor.  The first address given out is the one
// following the network address, e.g. 10.0.0.1 for 10.0.0.0/8
func NewAddrPool(base string) (*AddrPool, error) {
	prefix, err := netip.ParsePrefix(base)
	if err != nil {
		return nil, configErr(base, "address base must be a prefix such as 10.0.0.0/8")
	}
	prefix = prefix.Masked()
	return &AddrPool{prefix: prefix, next: prefix.Addr().Next()}, nil
}

// Next returns the next unused address of the subnet
func (ap *AddrPool) Next() (netip.Addr, error) {
	addr := ap.next
	if !addr.IsValid() || !ap.prefix.Contains(addr) {
		return netip.Addr{}, constraintErr(ap.prefix.String(), "address pool is exhausted")
	}
	ap.next = addr.Next()
	return addr, nil
}

// Wiring is the outcome of giving addresses to both ends of every physical link.
// Only WirePhysical makes one, so holding a *Wiring means the physical phase is complete
type Wiring struct {
	graph *DualGraph

	// EdgeAddrs[e] holds the addresses of the A and B ends of physical link e
	EdgeAddrs [][2]netip.Addr

	// AddrToNode maps every assigned address to the device that owns it
	AddrToNode map[netip.Addr]NodeRef

	// NodeAddrs[flat] lists the addresses of a device in the order they were assigned
	NodeAddrs [][]netip.Addr

	// hostNbrs holds the neighbor lists built while wiring when the overlay is the physical graph
	hostNbrs [][]netip.Addr
}

// WirePhysical assigns two addresses to every physical link, in link order.  When the
// overlay is the physical graph each host learns the partner address of every host-to-host link as it is wired
func WirePhysical(dg *DualGraph, pool *AddrPool) (*Wiring, error) {
	w := &Wiring{graph: dg}
	w.EdgeAddrs = make([][2]netip.Addr, len(dg.Physical))
	w.AddrToNode = make(map[netip.Addr]NodeRef)
	w.NodeAddrs = make([][]netip.Addr, dg.NumDevices())
	w.hostNbrs = make([][]netip.Addr, dg.NumHosts)
	for idx := range w.NodeAddrs {
		w.NodeAddrs[idx] = make([]netip.Addr, 0)
	}
	for idx := range w.hostNbrs {
		w.hostNbrs[idx] = make([]netip.Addr, 0)
	}

	for edgeIdx, edge := range dg.Physical {
		for slot, end := range []NodeRef{edge.A, edge.B} {
			addr, err := pool.Next()
			if err != nil {
				return nil, err
			}
			w.EdgeAddrs[edgeIdx][slot] = addr
			w.AddrToNode[addr] = end
			flat := end.Flat(dg.NumHosts)
			w.NodeAddrs[flat] = append(w.NodeAddrs[flat], addr)
		}

		if dg.Same && edge.HostOnly() {
			addrA, addrB := w.EdgeAddrs[edgeIdx][0], w.EdgeAddrs[edgeIdx][1]
			w.hostNbrs[edge.A.Index] = append(w.hostNbrs[edge.A.Index], addrB)
			w.hostNbrs[edge.B.Index] = append(w.hostNbrs[edge.B.Index], addrA)
		}
		log.Debugf("link %s wired as %s - %s", edge, w.EdgeAddrs[edgeIdx][0], w.EdgeAddrs[edgeIdx][1])
	}
	return w, nil
}

// PrimaryAddr returns the first address assigned to the device
func (w *Wiring) PrimaryAddr(ref NodeRef) (netip.Addr, bool) {
	flat := ref.Flat(w.graph.NumHosts)
	if flat < 0 || flat >= len(w.NodeAddrs) || len(w.NodeAddrs[flat]) == 0 {
		return netip.Addr{}, false
	}
	return w.NodeAddrs[flat][0], true
}

// Graph returns the DualGraph that was wired
func (w *Wiring) Graph() *DualGraph {
	return w.graph
}

// NumAddrs is the number of addresses assigned
func (w *Wiring) NumAddrs() int {
	return len(w.AddrToNode)
}
