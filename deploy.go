package bcsnet

// deploy.go builds a Network from a run configuration and hands every host
// its assembled configuration, installing a peer agent on it through an
// external runtime and scheduling the agent's start and stop

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
)

// DefaultLocation, DefaultLatitude and DefaultLongitude describe a host whose position is not configured
const (
	DefaultLocation  = "brisbane"
	DefaultLatitude  = 0.0
	DefaultLongitude = 0.0
)

// PeerConfig is everything a peer agent is told about itself and the run
type PeerConfig struct {
	NodeID         int        `json:"nodeid" yaml:"nodeid"`
	NumNodes       int        `json:"numnodes" yaml:"numnodes"`
	IPAddress      netip.Addr `json:"ipaddress" yaml:"ipaddress"`
	Port           uint16     `json:"port" yaml:"port"`
	Transport      Transport  `json:"transport" yaml:"transport"`
	BlockChainType string     `json:"blockchaintype" yaml:"blockchaintype"`
	Location       string     `json:"location" yaml:"location"`
	Latitude       float64    `json:"latitude" yaml:"latitude"`
	Longitude      float64    `json:"longitude" yaml:"longitude"`
	HashPower      int        `json:"hashpower" yaml:"hashpower"`
	TotalHashPower int        `json:"totalhashpower" yaml:"totalhashpower"`

	IncludeTransactions  bool    `json:"includetransactions" yaml:"includetransactions"`
	NumTransactionsBlock int     `json:"numtransactionsblock" yaml:"numtransactionsblock"` // 0: derived from BlockSize / TransactionSize
	BlockSize            int     `json:"blocksize" yaml:"blocksize"`
	TransactionSize      int     `json:"transactionsize" yaml:"transactionsize"`
	TransactionFee       float64 `json:"transactionfee" yaml:"transactionfee"`
	CompactBlocks        bool    `json:"compactblocks" yaml:"compactblocks"`

	TestForks                    bool `json:"testforks" yaml:"testforks"`
	TestOrphanBlock              bool `json:"testorphanblock" yaml:"testorphanblock"`
	TestCompactBlockTransactions bool `json:"testcompactblocktransactions" yaml:"testcompactblocktransactions"`
	GetDataTimeout               int  `json:"getdatatimeout" yaml:"getdatatimeout"`
	TestGetDataTimeout           bool `json:"testgetdatatimeout" yaml:"testgetdatatimeout"`

	BlockInterval       float64 `json:"blockinterval" yaml:"blockinterval"`
	TransactionInterval float64 `json:"transactioninterval" yaml:"transactioninterval"`
	BlockReward         float64 `json:"blockreward" yaml:"blockreward"`

	// NumNodes when no host is the get data timeout victim
	TestGetDataTimeoutVictim int `json:"testgetdatatimeoutvictim" yaml:"testgetdatatimeoutvictim"`

	EndTime int `json:"endtime" yaml:"endtime"`
}

// PeerApp is the handle a PeerRuntime returns for an installed peer agent
type PeerApp interface {
	Start(evtMgr *evtm.EventManager)
	Stop(evtMgr *evtm.EventManager)
}

// PeerRuntime installs peer agents on hosts.  nbrs lists the addresses the agent
// connects to, addrToNode tells it which device owns any assigned address
type PeerRuntime interface {
	Install(host NodeRef, nbrs []netip.AddrPort, addrToNode map[netip.Addr]NodeRef, cfg PeerConfig) (PeerApp, error)
}

// Network is a topology ready to be deployed: its graphs, their addresses,
// every host's neighbors and the configuration it came from
type Network struct {
	Cfg       *SimCfg
	Graph     *DualGraph
	Wiring    *Wiring
	Neighbors NeighborSets
	Routes    *Routes

	// Unreachable lists the peer connections with no physical route between their hosts
	Unreachable []Edge

	TraceMgr *TraceManager
	metrics  *Metrics
}

// BuildNetwork resolves and validates the configuration, builds the topology
// and wires it, and resolves every host's neighbors.  rng is drawn from only when links are generated
func BuildNetwork(cfg *SimCfg, rng RandSource) (*Network, error) {
	rc, err := cfg.Resolved()
	if err != nil {
		return nil, err
	}
	if err := rc.Validate(); err != nil {
		return nil, err
	}

	dg, err := BuildDualGraph(rc, rng)
	if err != nil {
		return nil, err
	}

	pool, err := NewAddrPool(rc.AddrBase)
	if err != nil {
		return nil, err
	}
	w, err := WirePhysical(dg, pool)
	if err != nil {
		return nil, err
	}
	nbrs, err := ResolveNeighbors(w)
	if err != nil {
		return nil, err
	}

	bn := &Network{Cfg: rc, Graph: dg, Wiring: w, Neighbors: nbrs, metrics: DefaultMetrics()}
	for host := 0; host < dg.NumHosts; host++ {
		if _, ok := bn.hostAddr(host); !ok {
			return nil, constraintErr(Host(host).String(), "host has no physical link and no configured address")
		}
	}

	bn.Routes = BuildRoutes(dg)
	bn.Unreachable = bn.Routes.CheckReachability(dg.Overlay)
	for _, edge := range bn.Unreachable {
		log.Warnf("peer connection %s has no physical route", edge)
	}
	if !bn.Routes.IsConnected() {
		log.Warn("the physical links do not connect every device")
	}

	bn.metrics.RecordTopology(dg)
	bn.metrics.RecordNeighbors(w, nbrs)
	bn.metrics.UnreachablePeer.Add(float64(len(bn.Unreachable)))
	return bn, nil
}

// SetMetrics directs the network's install counts to m instead of DefaultMetrics
func (bn *Network) SetMetrics(m *Metrics) {
	bn.metrics = m
}

// hostAddr returns the declared address of a host, or else its primary assigned address.
// ok is false when the host has neither
func (bn *Network) hostAddr(host int) (netip.Addr, bool) {
	if len(bn.Cfg.NodeIPAddresses) == bn.Cfg.Nodes {
		addr, err := netip.ParseAddr(strings.TrimSpace(bn.Cfg.NodeIPAddresses[host]))
		if err == nil {
			return addr, true
		}
	}
	return bn.Wiring.PrimaryAddr(Host(host))
}

// hostPlace returns the configured location of a host, or the defaults
func (bn *Network) hostPlace(host int) (string, float64, float64) {
	location, lat, long := DefaultLocation, DefaultLatitude, DefaultLongitude
	if len(bn.Cfg.NodeLocations) == bn.Cfg.Nodes {
		location = bn.Cfg.NodeLocations[host]
	}
	if len(bn.Cfg.NodeLatitudes) == bn.Cfg.Nodes && len(bn.Cfg.NodeLongitudes) == bn.Cfg.Nodes {
		lat, long = bn.Cfg.NodeLatitudes[host], bn.Cfg.NodeLongitudes[host]
	}
	return location, lat, long
}

// PeerConfigs assembles the configuration of every host, in host order
func (bn *Network) PeerConfigs() []PeerConfig {
	cfg := bn.Cfg
	powers, total := cfg.HashPowerShares()
	victim := cfg.VictimID()

	pcs := make([]PeerConfig, cfg.Nodes)
	for host := range pcs {
		location, lat, long := bn.hostPlace(host)
		addr, _ := bn.hostAddr(host)
		pcs[host] = PeerConfig{
			NodeID:                       host,
			NumNodes:                     cfg.Nodes,
			IPAddress:                    addr,
			Port:                         cfg.Port,
			Transport:                    cfg.Transport(),
			BlockChainType:               cfg.BlockChainType,
			Location:                     location,
			Latitude:                     lat,
			Longitude:                    long,
			HashPower:                    powers[host],
			TotalHashPower:               total,
			IncludeTransactions:          cfg.Transactions,
			NumTransactionsBlock:         cfg.NumberTransactionsBlock,
			BlockSize:                    cfg.BlockSize,
			TransactionSize:              cfg.TransactionSize,
			TransactionFee:               cfg.TransactionFee,
			CompactBlocks:                cfg.CompactBlocks,
			TestForks:                    cfg.TestForks,
			TestOrphanBlock:              cfg.TestOrphanBlock,
			TestCompactBlockTransactions: cfg.TestCompactBlockTransaction,
			GetDataTimeout:               cfg.GetDataTimeout,
			TestGetDataTimeout:           cfg.GetDataTimeoutAttacker == host,
			BlockInterval:                cfg.AverageBlockMineInterval,
			TransactionInterval:          cfg.AverageTransactionCreationInterval,
			BlockReward:                  cfg.BlockMineReward,
			TestGetDataTimeoutVictim:     victim,
			EndTime:                      cfg.EndTime,
		}
	}
	return pcs
}

// deployedApp is the context handed to the start and stop event handlers
type deployedApp struct {
	host     int
	app      PeerApp
	traceMgr *TraceManager
}

// startPeerApp is scheduled at time 0 for every installed agent
func startPeerApp(evtMgr *evtm.EventManager, context any, data any) any {
	da := context.(*deployedApp)
	da.app.Start(evtMgr)
	AddPeerTrace(da.traceMgr, evtMgr.CurrentTime(), da.host, "start", "", nil)
	return nil
}

// stopPeerApp is scheduled at the end time of the run for every installed agent
func stopPeerApp(evtMgr *evtm.EventManager, context any, data any) any {
	da := context.(*deployedApp)
	da.app.Stop(evtMgr)
	AddPeerTrace(da.traceMgr, evtMgr.CurrentTime(), da.host, "stop", "", nil)
	return nil
}

// Deploy installs a peer agent on every host, in host order, and schedules each
// to start at time 0 and stop at the end time.  Every host is installed exactly once;
// the first failed install ends the deployment and nothing is scheduled.
// Each install gets its own copy of the address map
func Deploy(evtMgr *evtm.EventManager, bn *Network, runtime PeerRuntime) ([]PeerApp, error) {
	pcs := bn.PeerConfigs()
	deployed := make([]*deployedApp, 0, len(pcs))

	for host, pc := range pcs {
		nbrs := bn.Neighbors.AddrPorts(host, pc.Port)
		app, err := runtime.Install(Host(host), nbrs, maps.Clone(bn.Wiring.AddrToNode), pc)
		bn.metrics.RecordInstall(err)
		if err != nil {
			return nil, fmt.Errorf("installing peer agent on host %d: %w", host, err)
		}
		if app == nil {
			return nil, fmt.Errorf("installing peer agent on host %d: runtime returned no application", host)
		}

		nbrNames := make([]string, len(nbrs))
		for idx, nbr := range nbrs {
			nbrNames[idx] = nbr.String()
		}
		AddPeerTrace(bn.TraceMgr, evtMgr.CurrentTime(), host, "install", pc.IPAddress.String(), nbrNames)
		log.Debugf("installed peer agent on host %d with %d neighbors", host, len(nbrs))

		deployed = append(deployed, &deployedApp{host: host, app: app, traceMgr: bn.TraceMgr})
	}

	apps := make([]PeerApp, len(deployed))
	for idx, da := range deployed {
		evtMgr.Schedule(da, nil, startPeerApp, vrtime.SecondsToTime(0.0))
		evtMgr.Schedule(da, nil, stopPeerApp, vrtime.SecondsToTime(float64(bn.Cfg.EndTime)))
		apps[idx] = da.app
	}
	log.Infof("deployed %d peer agents", len(apps))
	return apps, nil
}
