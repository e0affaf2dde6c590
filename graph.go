package bcsnet

// graph.go holds the two coupled views of a topology: the physical links
// over hosts and routers, which get wired and addressed, and the overlay
// peer connections over hosts, along which the peer agents gossip

import (
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// DualGraph holds the physical and overlay edge lists of a topology.
// When Same is true the overlay is exactly the host-to-host subset of the physical links
type DualGraph struct {
	NumHosts   int
	NumRouters int
	Physical   []Edge
	Overlay    []Edge
	Same       bool
	Generated  bool
}

// resolveDescs applies the defaulting rules to the two descriptions.  An empty
// description takes the value of the other, and when both are empty both become
// DefaultLink.  same reports whether the resolved descriptions are identical
func resolveDescs(links, conns string) (string, string, bool) {
	links = strings.TrimSpace(links)
	conns = strings.TrimSpace(conns)
	same := links == conns

	if len(links) == 0 {
		same = true
		if len(conns) == 0 {
			conns = DefaultLink
		}
		links = conns
	}
	if len(conns) == 0 {
		same = true
		conns = links
	}
	return links, conns, same
}

// BuildDualGraph creates the topology a resolved and validated SimCfg describes,
// generating the links when a minimum number of connections per node is given.
// rng is only drawn from when links are generated; if nil a stream named by cfg.Seed is used
func BuildDualGraph(cfg *SimCfg, rng RandSource) (*DualGraph, error) {
	dg := &DualGraph{NumHosts: cfg.Nodes, NumRouters: cfg.Routers}

	if cfg.Generated() {
		if rng == nil {
			rng = NewRandSource(cfg.Seed)
		}
		edges, err := GenerateTopo(cfg.Nodes, cfg.MinConnectionsPerNode, rng)
		if err != nil {
			return nil, err
		}
		dg.Physical = edges
		dg.NumRouters = 0
		dg.Same = true
		dg.Generated = true
		logGenerated(dg)
	} else {
		links, conns, same := resolveDescs(cfg.Links, cfg.BCConnections)
		if !same {
			log.Info("links and bcConnections are different")
		}
		physical, err := ParseLinks(links, dg.NumHosts, dg.NumRouters)
		if err != nil {
			return nil, fmt.Errorf("links description: %w", err)
		}
		dg.Physical = physical
		dg.Same = same

		if !same {
			overlay, err := ParseConnections(conns, dg.NumHosts)
			if err != nil {
				return nil, fmt.Errorf("bcConnections description: %w", err)
			}
			dg.Overlay = overlay
		}
	}

	if err := ApplyLinkAttrbs(dg.Physical, cfg.DataRates, cfg.Delays, cfg.DataRate, cfg.Delay); err != nil {
		return nil, err
	}
	if dg.Same {
		dg.Overlay = hostOnlyEdges(dg.Physical)
	}

	log.Debugf("topology has %d hosts, %d routers, %d links, %d peer connections",
		dg.NumHosts, dg.NumRouters, len(dg.Physical), len(dg.Overlay))
	return dg, nil
}

// hostOnlyEdges returns the edges with hosts at both ends, in order
func hostOnlyEdges(edges []Edge) []Edge {
	overlay := make([]Edge, 0, len(edges))
	for _, edge := range edges {
		if edge.HostOnly() {
			overlay = append(overlay, Edge{A: edge.A, B: edge.B})
		}
	}
	return overlay
}

// NumDevices is the size of the flat index space
func (dg *DualGraph) NumDevices() int {
	return dg.NumHosts + dg.NumRouters
}

// OverlayDegree counts the overlay edges that touch the host
func (dg *DualGraph) OverlayDegree(host int) int {
	degree := 0
	ref := Host(host)
	for _, edge := range dg.Overlay {
		if edge.A == ref || edge.B == ref {
			degree += 1
		}
	}
	return degree
}

// OverlayPartners lists, in overlay edge order, the hosts the given host gossips with
func (dg *DualGraph) OverlayPartners(host int) []int {
	partners := make([]int, 0)
	ref := Host(host)
	for _, edge := range dg.Overlay {
		if edge.A == ref {
			partners = append(partners, edge.B.Index)
		} else if edge.B == ref {
			partners = append(partners, edge.A.Index)
		}
	}
	return partners
}

// PhysicalHostPartners lists, in link order, the hosts joined to the given host
// by a host-to-host physical link
func (dg *DualGraph) PhysicalHostPartners(host int) []int {
	partners := make([]int, 0)
	ref := Host(host)
	for _, edge := range dg.Physical {
		if !edge.HostOnly() {
			continue
		}
		if edge.A == ref {
			partners = append(partners, edge.B.Index)
		} else if edge.B == ref {
			partners = append(partners, edge.A.Index)
		}
	}
	return partners
}

// logGenerated reports the links every host received from the generator
func logGenerated(dg *DualGraph) {
	log.Info("The generated topology: " + FormatEdges(dg.Physical))
	for host := 0; host < dg.NumHosts; host++ {
		partners := dg.physicalPartners(host)
		slices.Sort(partners)
		names := make([]string, len(partners))
		for idx, partner := range partners {
			names[idx] = strconv.Itoa(partner)
		}
		log.Infof("Node %d is connected to the following nodes: %s", host, strings.Join(names, ", "))
	}
}

// physicalPartners lists the flat ids of devices linked to the host
func (dg *DualGraph) physicalPartners(host int) []int {
	partners := make([]int, 0)
	ref := Host(host)
	for _, edge := range dg.Physical {
		if edge.A == ref {
			partners = append(partners, edge.B.Flat(dg.NumHosts))
		} else if edge.B == ref {
			partners = append(partners, edge.A.Flat(dg.NumHosts))
		}
	}
	return partners
}

// Transform converts a DualGraph into its serializable TopoDesc
func (dg *DualGraph) Transform(name string) TopoDesc {
	td := TopoDesc{Name: name, NumHosts: dg.NumHosts, NumRouters: dg.NumRouters, Same: dg.Same, Generated: dg.Generated}
	td.Links = make([]LinkDesc, len(dg.Physical))
	for idx, edge := range dg.Physical {
		td.Links[idx] = LinkDesc{Link: edge.String(), DataRate: edge.DataRate, Delay: edge.Delay}
	}
	td.Connections = make([]string, 0)
	if !dg.Same {
		for _, edge := range dg.Overlay {
			td.Connections = append(td.Connections, edge.String())
		}
	}
	return td
}
