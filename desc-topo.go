package bcsnet

// file desc-topo.go holds the structs and functions that turn the textual
// description of links ("n0-r0,r0-n1") into structured edge lists, and the
// serializable description of a built topology

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// DefaultDataRate and DefaultDelay are applied to every link that does not
// carry its own value
const (
	DefaultDataRate = "25Mbps"
	DefaultDelay    = "10ms"
	DefaultLink     = "n0-n1"
)

// NodeKind says whether a NodeRef names a host or a router
type NodeKind int

const (
	HostKind NodeKind = iota
	RouterKind
)

// A NodeRef identifies a host or a router by its index among devices of its kind
type NodeRef struct {
	Kind  NodeKind
	Index int
}

// Host is a constructor for a NodeRef naming host i
func Host(i int) NodeRef {
	return NodeRef{Kind: HostKind, Index: i}
}

// Router is a constructor for a NodeRef naming router i
func Router(i int) NodeRef {
	return NodeRef{Kind: RouterKind, Index: i}
}

// IsHost is true when the reference names a host
func (nr NodeRef) IsHost() bool {
	return nr.Kind == HostKind
}

// Flat returns the position of the device in the single index space
// [0, numHosts+numRouters), routers following hosts
func (nr NodeRef) Flat(numHosts int) int {
	if nr.Kind == RouterKind {
		return numHosts + nr.Index
	}
	return nr.Index
}

// refFromFlat inverts Flat
func refFromFlat(id, numHosts int) NodeRef {
	if id >= numHosts {
		return Router(id - numHosts)
	}
	return Host(id)
}

// String renders the reference the way the topology descriptions write it
func (nr NodeRef) String() string {
	if nr.Kind == RouterKind {
		return "r" + strconv.Itoa(nr.Index)
	}
	return "n" + strconv.Itoa(nr.Index)
}

// An Edge is a link (or a peer connection) between two distinct devices.
// DataRate and Delay are only meaningful on physical links
type Edge struct {
	A, B     NodeRef
	DataRate string
	Delay    string
}

// String renders the edge as a description token
func (e Edge) String() string {
	return e.A.String() + "-" + e.B.String()
}

// HostOnly is true when both ends of the edge are hosts
func (e Edge) HostOnly() bool {
	return e.A.IsHost() && e.B.IsHost()
}

// Joins reports whether the edge connects a and b, in either order
func (e Edge) Joins(a, b NodeRef) bool {
	return (e.A == a && e.B == b) || (e.A == b && e.B == a)
}

// ParseLinks turns a physical link description into edges over hosts and routers.
// Host indices must lie in [0,numHosts) and router indices in [0,numRouters)
func ParseLinks(desc string, numHosts, numRouters int) ([]Edge, error) {
	return parseEdgeList(desc, numHosts, numRouters, false)
}

// ParseConnections turns an overlay peer-connection description into edges.
// Only hosts may appear
func ParseConnections(desc string, numHosts int) ([]Edge, error) {
	return parseEdgeList(desc, numHosts, 0, true)
}

// parseEdgeList splits the description at commas and parses every non-empty token
func parseEdgeList(desc string, numHosts, numRouters int, hostsOnly bool) ([]Edge, error) {
	edges := make([]Edge, 0)
	for _, token := range strings.Split(desc, ",") {
		token = strings.TrimSpace(token)
		if len(token) == 0 {
			continue
		}
		edge, err := parseEdge(token, numHosts, numRouters, hostsOnly)
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

// parseEdge parses a single "<kind><index>-<kind><index>" token
func parseEdge(token string, numHosts, numRouters int, hostsOnly bool) (Edge, error) {
	ends := strings.Split(token, "-")
	if len(ends) != 2 {
		return Edge{}, formatErr(token, "a link names exactly two endpoints separated by '-'")
	}

	var refs [2]NodeRef
	for idx, end := range ends {
		ref, err := parseEndpoint(token, strings.TrimSpace(end), numHosts, numRouters, hostsOnly)
		if err != nil {
			return Edge{}, err
		}
		refs[idx] = ref
	}

	if refs[0] == refs[1] {
		if refs[0].IsHost() {
			return Edge{}, selfLoopErr(token, "cannot link host %d to itself", refs[0].Index)
		}
		return Edge{}, selfLoopErr(token, "cannot link router %d to itself", refs[0].Index)
	}
	return Edge{A: refs[0], B: refs[1]}, nil
}

// parseEndpoint parses one side of a link token, e.g. "n3" or "r0"
func parseEndpoint(token, end string, numHosts, numRouters int, hostsOnly bool) (NodeRef, error) {
	if len(end) == 0 {
		return NodeRef{}, formatErr(token, "empty endpoint")
	}

	kind := end[0]
	if kind != 'n' && kind != 'r' {
		return NodeRef{}, formatErr(token, "endpoint %q must start with 'n' or 'r'", end)
	}
	if kind == 'r' && hostsOnly {
		return NodeRef{}, formatErr(token, "peer connections may only name hosts")
	}

	digits := end[1:]
	if len(digits) == 0 {
		return NodeRef{}, formatErr(token, "endpoint %q has no index", end)
	}
	for _, ch := range digits {
		if ch < '0' || ch > '9' {
			return NodeRef{}, formatErr(token, "endpoint %q has a non-numeric index", end)
		}
	}

	value, err := strconv.Atoi(digits)
	if err != nil {
		// only overflow gets here, the digits have been checked
		return NodeRef{}, rangeErr(token, "index of %q does not fit an int", end)
	}

	if kind == 'n' {
		if value >= numHosts {
			return NodeRef{}, rangeErr(token, "host number %d not in [0,%d)", value, numHosts)
		}
		return Host(value), nil
	}

	if value >= numRouters {
		return NodeRef{}, rangeErr(token, "router number %d not in [0,%d)", value, numRouters)
	}
	return Router(value), nil
}

// FormatEdges writes an edge list back into the description language
func FormatEdges(edges []Edge) string {
	tokens := make([]string, len(edges))
	for idx, edge := range edges {
		tokens[idx] = edge.String()
	}
	return strings.Join(tokens, ",")
}

// rateRE accepts the data rate spellings used in link descriptions, e.g. "25Mbps", "1.5Gb/s"
var rateRE = regexp.MustCompile(`^[0-9]*\.?[0-9]+\s*(bps|b/s|kbps|kb/s|Kbps|Kb/s|Mbps|Mb/s|Gbps|Gb/s|Bps|KBps|MBps|GBps|KiBps|MiBps|GiBps)$`)

// ValidDataRate is true for strings like "25Mbps"
func ValidDataRate(rate string) bool {
	return rateRE.MatchString(rate)
}

// ValidDelay is true for strings like "10ms" that give a non-negative duration
func ValidDelay(delay string) bool {
	d, err := time.ParseDuration(delay)
	return err == nil && d >= 0
}

// ApplyLinkAttrbs sets DataRate and Delay on every edge.  A non-empty dataRates (or delays)
// list must carry one value per edge; an empty one means every edge gets the default
func ApplyLinkAttrbs(edges []Edge, dataRates, delays []string, defaultRate, defaultDelay string) error {
	if len(dataRates) > 0 && len(dataRates) != len(edges) {
		return constraintErr("datarates", "%d data rates given for %d links", len(dataRates), len(edges))
	}
	if len(delays) > 0 && len(delays) != len(edges) {
		return constraintErr("delays", "%d delays given for %d links", len(delays), len(edges))
	}
	if !ValidDataRate(defaultRate) {
		return configErr(defaultRate, "data rate is not of the form <number><unit>")
	}
	if !ValidDelay(defaultDelay) {
		return configErr(defaultDelay, "delay is not a duration")
	}

	for idx := range edges {
		rate := defaultRate
		if len(dataRates) > 0 {
			rate = strings.TrimSpace(dataRates[idx])
			if !ValidDataRate(rate) {
				return configErr(rate, "data rate of link %s is not of the form <number><unit>", edges[idx])
			}
		}
		delay := defaultDelay
		if len(delays) > 0 {
			delay = strings.TrimSpace(delays[idx])
			if !ValidDelay(delay) {
				return configErr(delay, "delay of link %s is not a duration", edges[idx])
			}
		}
		edges[idx].DataRate = rate
		edges[idx].Delay = delay
	}
	return nil
}

// LinkDesc is the serializable description of one physical link
type LinkDesc struct {
	Link     string `json:"link" yaml:"link"`
	DataRate string `json:"datarate" yaml:"datarate"`
	Delay    string `json:"delay" yaml:"delay"`
}

// TopoDesc is a pointer-free description of a DualGraph, used to save
// (and reload) a topology, in particular a generated one
type TopoDesc struct {
	Name        string     `json:"name" yaml:"name"`
	NumHosts    int        `json:"hosts" yaml:"hosts"`
	NumRouters  int        `json:"routers" yaml:"routers"`
	Same        bool       `json:"same" yaml:"same"`
	Generated   bool       `json:"generated" yaml:"generated"`
	Links       []LinkDesc `json:"links" yaml:"links"`
	Connections []string   `json:"connections" yaml:"connections"`
}

// Graph rebuilds the DualGraph a TopoDesc describes, validating every link again
func (td *TopoDesc) Graph() (*DualGraph, error) {
	dg := &DualGraph{NumHosts: td.NumHosts, NumRouters: td.NumRouters, Same: td.Same, Generated: td.Generated}
	dg.Physical = make([]Edge, 0, len(td.Links))
	for _, link := range td.Links {
		edge, err := parseEdge(strings.TrimSpace(link.Link), td.NumHosts, td.NumRouters, false)
		if err != nil {
			return nil, err
		}
		edge.DataRate = link.DataRate
		edge.Delay = link.Delay
		if !ValidDataRate(edge.DataRate) {
			return nil, configErr(edge.DataRate, "data rate of link %s is not of the form <number><unit>", edge)
		}
		if !ValidDelay(edge.Delay) {
			return nil, configErr(edge.Delay, "delay of link %s is not a duration", edge)
		}
		dg.Physical = append(dg.Physical, edge)
	}

	if td.Same {
		dg.Overlay = hostOnlyEdges(dg.Physical)
		return dg, nil
	}

	dg.Overlay = make([]Edge, 0, len(td.Connections))
	for _, conn := range td.Connections {
		edge, err := parseEdge(strings.TrimSpace(conn), td.NumHosts, 0, true)
		if err != nil {
			return nil, err
		}
		dg.Overlay = append(dg.Overlay, edge)
	}
	return dg, nil
}

// marshalByExt serializes obj to yaml or json, selected by the file name extension
func marshalByExt(filename string, obj any) ([]byte, error) {
	pathExt := path.Ext(filename)
	yamlExts := []string{".yaml", ".YAML", ".yml"}
	jsonExts := []string{".json", ".JSON"}

	if slices.Contains(yamlExts, pathExt) {
		return yaml.Marshal(obj)
	}
	if slices.Contains(jsonExts, pathExt) {
		return json.MarshalIndent(obj, "", "\t")
	}
	return nil, fmt.Errorf("cannot tell serialization format of %s from its extension", filename)
}

// writeByExt serializes obj and writes it to filename
func writeByExt(filename string, obj any) error {
	bytes, err := marshalByExt(filename, obj)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, bytes, 0o644)
}

// readDict returns dict if it is non-empty, otherwise the contents of the named file
func readDict(filename string, dict []byte) ([]byte, error) {
	if len(dict) > 0 {
		return dict, nil
	}
	fileInfo, err := os.Stat(filename)
	if os.IsNotExist(err) || (err == nil && fileInfo.IsDir()) {
		return nil, errors.New(fmt.Sprintf("%s does not exist or cannot be read", filename))
	}
	return os.ReadFile(filename)
}

// WriteToFile stores the TopoDesc struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (td *TopoDesc) WriteToFile(filename string) error {
	return writeByExt(filename, *td)
}

// ReadTopoDesc deserializes a byte slice holding a representation of a TopoDesc struct.
// If the input argument of dict (those bytes) is empty, the file whose name is given is read
// to acquire them.
func ReadTopoDesc(filename string, useYAML bool, dict []byte) (*TopoDesc, error) {
	dict, err := readDict(filename, dict)
	if err != nil {
		return nil, err
	}

	example := TopoDesc{}
	if useYAML {
		err = yaml.Unmarshal(dict, &example)
	} else {
		err = json.Unmarshal(dict, &example)
	}
	if err != nil {
		return nil, err
	}
	return &example, nil
}
