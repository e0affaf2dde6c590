package bcsnet

// param.go holds the run configuration: the topology inputs and every
// parameter handed on to the peer agents, their defaults, serialization and validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// validate is a singleton validator instance
var validate = validator.New()

// Transport selects the socket type every peer agent uses
type Transport int

const (
	TCP Transport = iota
	UDP
)

func (tr Transport) String() string {
	if tr == UDP {
		return "UDP"
	}
	return "TCP"
}

// ParseTransport accepts "TCP", "tcp", "UDP" or "udp"
func ParseTransport(protocol string) (Transport, error) {
	switch protocol {
	case "TCP", "tcp":
		return TCP, nil
	case "UDP", "udp":
		return UDP, nil
	}
	return TCP, configErr(protocol, "protocol must be TCP or UDP")
}

// DefaultHashPower is the hash power of every host when none are configured
const DefaultHashPower = 10

// DefaultPort is the port every peer agent listens on and connects to
const DefaultPort uint16 = 8333

// DefaultAddrBase is the subnet physical link addresses are drawn from
const DefaultAddrBase = "10.0.0.0/8"

// SimCfg holds the inputs of one run.  A value of -1 in MinConnectionsPerNode,
// GetDataTimeoutAttacker or GetDataTimeoutVictim means "not given"
type SimCfg struct {
	Nodes                 int    `json:"nodes" yaml:"nodes" validate:"gte=2"`
	Routers               int    `json:"routers" yaml:"routers" validate:"gte=0"`
	Links                 string `json:"links" yaml:"links"`
	BCConnections         string `json:"bcconnections" yaml:"bcconnections"`
	Topology              int    `json:"topology" yaml:"topology" validate:"gte=1,lte=9"`
	MinConnectionsPerNode int    `json:"minconnectionspernode" yaml:"minconnectionspernode"`
	Seed                  string `json:"seed" yaml:"seed"`

	Delay     string   `json:"delay" yaml:"delay"`
	DataRate  string   `json:"datarate" yaml:"datarate"`
	Delays    []string `json:"delays,omitempty" yaml:"delays,omitempty"`
	DataRates []string `json:"datarates,omitempty" yaml:"datarates,omitempty"`

	NodeLocations     []string  `json:"nodelocations,omitempty" yaml:"nodelocations,omitempty"`
	NodeLatitudes     []float64 `json:"nodelatitudes,omitempty" yaml:"nodelatitudes,omitempty"`
	NodeLongitudes    []float64 `json:"nodelongitudes,omitempty" yaml:"nodelongitudes,omitempty"`
	NodeIPAddresses   []string  `json:"nodeipaddresses,omitempty" yaml:"nodeipaddresses,omitempty"`
	RouterLocations   []string  `json:"routerlocations,omitempty" yaml:"routerlocations,omitempty"`
	RouterLatitudes   []float64 `json:"routerlatitudes,omitempty" yaml:"routerlatitudes,omitempty"`
	RouterLongitudes  []float64 `json:"routerlongitudes,omitempty" yaml:"routerlongitudes,omitempty"`
	RouterIPAddresses []string  `json:"routeripaddresses,omitempty" yaml:"routeripaddresses,omitempty"`

	Protocol       string `json:"protocol" yaml:"protocol" validate:"oneof=TCP tcp UDP udp"`
	Port           uint16 `json:"port" yaml:"port" validate:"gt=0"`
	AddrBase       string `json:"addrbase" yaml:"addrbase"`
	EndTime        int    `json:"endtime" yaml:"endtime" validate:"gt=0"`
	GetDataTimeout int    `json:"getdatatimeout" yaml:"getdatatimeout" validate:"gt=0"`

	HashPowers     []int  `json:"hashpowers,omitempty" yaml:"hashpowers,omitempty" validate:"dive,gte=0"`
	BlockChainType string `json:"blockchaintype" yaml:"blockchaintype" validate:"oneof=bitcoin"`

	CompactBlocks            bool    `json:"compactblocks" yaml:"compactblocks"`
	NumberTransactionsBlock  int     `json:"numbertransactionsblock" yaml:"numbertransactionsblock" validate:"gte=0"`
	BlockSize                int     `json:"blocksize" yaml:"blocksize" validate:"gte=0"`
	BlockMineReward          float64 `json:"blockminereward" yaml:"blockminereward" validate:"gt=0"`
	AverageBlockMineInterval float64 `json:"averageblockmineinterval" yaml:"averageblockmineinterval" validate:"gt=0"`

	Transactions                       bool    `json:"transactions" yaml:"transactions"`
	TransactionSize                    int     `json:"transactionsize" yaml:"transactionsize" validate:"gte=0,ltefield=BlockSize"`
	TransactionFee                     float64 `json:"transactionfee" yaml:"transactionfee" validate:"gte=0"`
	AverageTransactionCreationInterval float64 `json:"averagetransactioncreationinterval" yaml:"averagetransactioncreationinterval" validate:"gt=0"`

	GetDataTimeoutAttacker      int  `json:"getdatatimeoutattacker" yaml:"getdatatimeoutattacker"`
	GetDataTimeoutVictim        int  `json:"getdatatimeoutvictim" yaml:"getdatatimeoutvictim"`
	TestForks                   bool `json:"testforks" yaml:"testforks"`
	TestOrphanBlock             bool `json:"testorphanblock" yaml:"testorphanblock"`
	TestCompactBlockTransaction bool `json:"testcompactblocktransaction" yaml:"testcompactblocktransaction"`
}

// DefaultSimCfg returns the configuration of two hosts joined by one link
func DefaultSimCfg() *SimCfg {
	return &SimCfg{
		Nodes:                              2,
		Routers:                            0,
		Topology:                           NoPreset,
		MinConnectionsPerNode:              -1,
		Seed:                               "topology",
		Delay:                              DefaultDelay,
		DataRate:                           DefaultDataRate,
		Protocol:                           "TCP",
		Port:                               DefaultPort,
		AddrBase:                           DefaultAddrBase,
		EndTime:                            500,
		GetDataTimeout:                     30,
		BlockChainType:                     "bitcoin",
		CompactBlocks:                      true,
		NumberTransactionsBlock:            0,
		BlockSize:                          500,
		BlockMineReward:                    100000,
		AverageBlockMineInterval:           20,
		Transactions:                       true,
		TransactionSize:                    100,
		TransactionFee:                     25,
		AverageTransactionCreationInterval: 2,
		GetDataTimeoutAttacker:             -1,
		GetDataTimeoutVictim:               -1,
	}
}

// Generated is true when the links are to be synthesized from MinConnectionsPerNode
func (cfg *SimCfg) Generated() bool {
	return cfg.MinConnectionsPerNode > -1
}

// Resolved returns a copy of the configuration with a selected preset topology
// copied in, and with routers dropped when the links are to be generated
func (cfg *SimCfg) Resolved() (*SimCfg, error) {
	rc := *cfg
	preset, chosen, err := PresetTopology(cfg.Topology)
	if err != nil {
		return nil, err
	}
	if chosen {
		rc.Nodes = preset.NumHosts
		rc.Routers = preset.NumRouters
		rc.Links = preset.Links
		rc.BCConnections = preset.Connections
	}
	if rc.Generated() {
		rc.Routers = 0
	}
	return &rc, nil
}

// Validate checks every parameter for an out-of-domain value, returning the first failure found
func (cfg *SimCfg) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	if _, err := ParseTransport(cfg.Protocol); err != nil {
		return err
	}
	if cfg.Generated() {
		if err := CheckMinDegree(cfg.Nodes, cfg.MinConnectionsPerNode); err != nil {
			return err
		}
	}
	if _, err := netip.ParsePrefix(cfg.AddrBase); err != nil {
		return configErr(cfg.AddrBase, "address base must be a prefix such as 10.0.0.0/8")
	}

	errs := []error{
		cfg.checkTimeoutTest(),
		checkVecLen("nodelocations", len(cfg.NodeLocations), cfg.Nodes, "nodes"),
		checkVecLen("nodelatitudes", len(cfg.NodeLatitudes), cfg.Nodes, "nodes"),
		checkVecLen("nodelongitudes", len(cfg.NodeLongitudes), cfg.Nodes, "nodes"),
		checkVecLen("nodeipaddresses", len(cfg.NodeIPAddresses), cfg.Nodes, "nodes"),
		checkVecLen("routerlocations", len(cfg.RouterLocations), cfg.Routers, "routers"),
		checkVecLen("routerlatitudes", len(cfg.RouterLatitudes), cfg.Routers, "routers"),
		checkVecLen("routerlongitudes", len(cfg.RouterLongitudes), cfg.Routers, "routers"),
		checkVecLen("routeripaddresses", len(cfg.RouterIPAddresses), cfg.Routers, "routers"),
		checkVecLen("hashpowers", len(cfg.HashPowers), cfg.Nodes, "nodes"),
		checkPaired("node", len(cfg.NodeLatitudes), len(cfg.NodeLongitudes)),
		checkPaired("router", len(cfg.RouterLatitudes), len(cfg.RouterLongitudes)),
		checkAddrs("nodeipaddresses", cfg.NodeIPAddresses),
		checkAddrs("routeripaddresses", cfg.RouterIPAddresses),
	}
	return ReportErrs(errs)
}

// checkTimeoutTest requires that the get data timeout attacker and victim be given
// together, name distinct hosts, or both be omitted
func (cfg *SimCfg) checkTimeoutTest() error {
	attacker, victim := cfg.GetDataTimeoutAttacker, cfg.GetDataTimeoutVictim
	if attacker < 0 && victim < 0 {
		return nil
	}
	if attacker < 0 || attacker >= cfg.Nodes {
		return configErr("getdatatimeoutattacker", "must provide a valid node number for get data timeout attacker")
	}
	if victim < 0 || victim >= cfg.Nodes {
		return configErr("getdatatimeoutvictim", "must provide a valid node number for get data timeout victim")
	}
	if attacker == victim {
		return configErr("getdatatimeoutvictim", "get data timeout attacker cannot also be the victim")
	}
	return nil
}

// checkVecLen tests a per-device list: empty is allowed, otherwise one entry per device
func checkVecLen(name string, have, want int, devices string) error {
	if have == 0 || have == want {
		return nil
	}
	return constraintErr(name, "%d values given for %d %s", have, want, devices)
}

// checkPaired requires latitudes and longitudes to be given together
func checkPaired(devType string, lats, longs int) error {
	if (lats > 0) == (longs > 0) {
		return nil
	}
	return constraintErr(devType+"latitudes", "%s latitudes and longitudes must be specified together", devType)
}

func checkAddrs(name string, addrs []string) error {
	for _, addr := range addrs {
		if _, err := netip.ParseAddr(strings.TrimSpace(addr)); err != nil {
			return configErr(name, "%q is not an IP address", addr)
		}
	}
	return nil
}

// formatValidationError reports the first failed struct-tag rule as a configuration error
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return configErr("", "%s", err.Error())
	}

	for _, e := range validationErrs {
		field := strings.ToLower(e.Field())
		param := e.Param()

		switch e.Tag() {
		case "gt":
			return configErr(field, "must be greater than %s", param)
		case "gte":
			return configErr(field, "cannot be less than %s", param)
		case "lte":
			return configErr(field, "cannot be more than %s", param)
		case "ltefield":
			return configErr(field, "cannot be larger than %s", strings.ToLower(param))
		case "oneof":
			return configErr(field, "must be one of %s", param)
		default:
			return configErr(field, "validation failed (%s)", e.Tag())
		}
	}
	return nil
}

// Transport returns the socket type selected by Protocol
func (cfg *SimCfg) Transport() Transport {
	tr, _ := ParseTransport(cfg.Protocol)
	return tr
}

// HashPowerShares returns the hash power of every host and their sum
func (cfg *SimCfg) HashPowerShares() ([]int, int) {
	powers := make([]int, cfg.Nodes)
	total := 0
	for idx := range powers {
		powers[idx] = DefaultHashPower
		if len(cfg.HashPowers) == cfg.Nodes {
			powers[idx] = cfg.HashPowers[idx]
		}
		total += powers[idx]
	}
	return powers, total
}

// VictimID returns the get data timeout victim, or Nodes when none is designated.
// Hosts are numbered below Nodes so the sentinel never matches one
func (cfg *SimCfg) VictimID() int {
	if cfg.GetDataTimeoutVictim < 0 {
		return cfg.Nodes
	}
	return cfg.GetDataTimeoutVictim
}

// WriteToFile stores the SimCfg struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (cfg *SimCfg) WriteToFile(filename string) error {
	return writeByExt(filename, *cfg)
}

// ReadSimCfg deserializes a byte slice holding a representation of a SimCfg.
// If dict is empty the file whose name is given is read to acquire them.
// Parameters absent from the input keep their DefaultSimCfg values
func ReadSimCfg(filename string, useYAML bool, dict []byte) (*SimCfg, error) {
	dict, err := readDict(filename, dict)
	if err != nil {
		return nil, err
	}

	cfg := DefaultSimCfg()
	if useYAML {
		err = yaml.Unmarshal(dict, cfg)
	} else {
		err = json.Unmarshal(dict, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("reading run configuration %s: %w", filename, err)
	}
	return cfg, nil
}
