package bcsnet

// agent.go provides a PeerRuntime whose agents do nothing but note when
// they run.  It stands in for a protocol runtime when only the
// deployment itself is to be exercised

import (
	"net/netip"

	"github.com/iti/evt/evtm"
	log "github.com/sirupsen/logrus"
)

// TraceApp is the PeerApp a TraceRuntime installs
type TraceApp struct {
	Host      NodeRef
	Cfg       PeerConfig
	Neighbors []netip.AddrPort

	Running   bool
	StartedAt float64
	StoppedAt float64

	addrToNode map[netip.Addr]NodeRef
}

// Start marks the agent as running
func (ta *TraceApp) Start(evtMgr *evtm.EventManager) {
	ta.Running = true
	ta.StartedAt = evtMgr.CurrentSeconds()
	log.Debugf("peer agent %s started at %f", ta.Host, ta.StartedAt)
}

// Stop marks the agent as stopped
func (ta *TraceApp) Stop(evtMgr *evtm.EventManager) {
	ta.Running = false
	ta.StoppedAt = evtMgr.CurrentSeconds()
	log.Debugf("peer agent %s stopped at %f", ta.Host, ta.StoppedAt)
}

// NeighborHosts resolves the neighbors of the agent back to the hosts owning them
func (ta *TraceApp) NeighborHosts() []NodeRef {
	hosts := make([]NodeRef, 0, len(ta.Neighbors))
	for _, nbr := range ta.Neighbors {
		if ref, present := ta.addrToNode[nbr.Addr()]; present {
			hosts = append(hosts, ref)
		}
	}
	return hosts
}

// TraceRuntime creates a TraceApp on every Install call and keeps them, in install order
type TraceRuntime struct {
	Apps []*TraceApp
}

// NewTraceRuntime is a constructor
func NewTraceRuntime() *TraceRuntime {
	return &TraceRuntime{Apps: make([]*TraceApp, 0)}
}

// Install creates the agent of one host
func (tr *TraceRuntime) Install(host NodeRef, nbrs []netip.AddrPort, addrToNode map[netip.Addr]NodeRef, cfg PeerConfig) (PeerApp, error) {
	if !host.IsHost() {
		return nil, constraintErr(host.String(), "peer agents are only installed on hosts")
	}
	ta := &TraceApp{Host: host, Cfg: cfg, Neighbors: nbrs, addrToNode: addrToNode}
	tr.Apps = append(tr.Apps, ta)
	return ta, nil
}
