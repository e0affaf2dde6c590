package bcsnet

// trace.go gathers a timestamped record of a deployment: which peer agents
// were installed, started and stopped, and with what neighbors

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/iti/evt/vrtime"
	"gopkg.in/yaml.v3"
)

// TraceInst is one serialized trace record
type TraceInst struct {
	TraceTime string `json:"tracetime" yaml:"tracetime"`
	TraceType string `json:"tracetype" yaml:"tracetype"`
	TraceStr  string `json:"tracestr" yaml:"tracestr"`
}

// NameType is a an entry in a dictionary created for a trace
// that maps object id numbers to a (name,type) pair
type NameType struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// TraceManager gathers information about a deployment and the execution that follows it
type TraceManager struct {
	// experiment uses trace
	InUse bool `json:"inuse" yaml:"inuse"`

	// name of experiment
	ExpName string `json:"expname" yaml:"expname"`

	// identifies this run among runs of the same experiment
	RunID string `json:"runid" yaml:"runid"`

	// text name associated with each objID
	NameByID map[int]NameType `json:"namebyid" yaml:"namebyid"`

	// all trace records for this experiment, by the flat id of the device they concern
	Traces map[int][]TraceInst `json:"traces" yaml:"traces"`
}

// CreateTraceManager is a constructor.  It saves the name of the experiment
// and a flag indicating whether the trace manager is active.  By testing this
// flag we can inhibit the activity of gathering a trace when we don't want it,
// while embedding calls to its methods everywhere we need them when it is
func CreateTraceManager(expName string, active bool) *TraceManager {
	tm := new(TraceManager)
	tm.InUse = active
	tm.ExpName = expName
	tm.RunID = uuid.New().String()
	tm.NameByID = make(map[int]NameType)
	tm.Traces = make(map[int][]TraceInst)
	return tm
}

// Active tells the caller whether the Trace Manager is actively being used
func (tm *TraceManager) Active() bool {
	return tm != nil && tm.InUse
}

// AddTrace stores a trace record of the device with the given id
func (tm *TraceManager) AddTrace(vrt vrtime.Time, objID int, trace TraceInst) {
	if !tm.Active() {
		return
	}
	tm.Traces[objID] = append(tm.Traces[objID], trace)
}

// AddName is used to add an element to the id -> (name,type) dictionary for the trace file
func (tm *TraceManager) AddName(id int, name string, objDesc string) error {
	if !tm.Active() {
		return nil
	}
	if _, present := tm.NameByID[id]; present {
		return fmt.Errorf("duplicated id %d in trace dictionary", id)
	}
	tm.NameByID[id] = NameType{Name: name, Type: objDesc}
	return nil
}

// NumTraces is the number of records gathered, over all devices
func (tm *TraceManager) NumTraces() int {
	total := 0
	for _, traces := range tm.Traces {
		total += len(traces)
	}
	return total
}

// WriteToFile stores the TraceManager struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
// With globalOrder set every record is merged into one list ordered by time
func (tm *TraceManager) WriteToFile(filename string, globalOrder bool) error {
	if !tm.Active() {
		return nil
	}
	if !globalOrder {
		return writeByExt(filename, *tm)
	}

	ntm := new(TraceManager)
	ntm.InUse = tm.InUse
	ntm.ExpName = tm.ExpName
	ntm.RunID = tm.RunID
	ntm.NameByID = make(map[int]NameType)
	for key, value := range tm.NameByID {
		ntm.NameByID[key] = value
	}

	// gather the devices in id order so the stable sort keeps ties deterministic
	ids := make([]int, 0, len(tm.Traces))
	for id := range tm.Traces {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	merged := make([]TraceInst, 0)
	for _, id := range ids {
		merged = append(merged, tm.Traces[id]...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		v1, _ := strconv.ParseFloat(merged[i].TraceTime, 64)
		v2, _ := strconv.ParseFloat(merged[j].TraceTime, 64)
		return v1 < v2
	})
	ntm.Traces = map[int][]TraceInst{0: merged}
	return writeByExt(filename, *ntm)
}

// PeerTrace records one step in the life of a peer agent
type PeerTrace struct {
	Time      float64  `yaml:"time"`
	Ticks     int64    `yaml:"ticks"`
	Priority  int64    `yaml:"priority"`
	NodeID    int      `yaml:"nodeid"`
	Op        string   `yaml:"op"` // "install", "start", "stop"
	Addr      string   `yaml:"addr,omitempty"`
	Neighbors []string `yaml:"neighbors,omitempty"`
}

// Serialize renders the record as yaml
func (ptr *PeerTrace) Serialize() string {
	bytes, merr := yaml.Marshal(*ptr)
	if merr != nil {
		return ""
	}
	return string(bytes[:])
}

// AddPeerTrace creates a record of the trace using its calling arguments, and stores it
func AddPeerTrace(tm *TraceManager, vrt vrtime.Time, nodeID int, op string, addr string, nbrs []string) {
	if !tm.Active() {
		return
	}
	ptr := &PeerTrace{Time: vrt.Seconds(), Ticks: vrt.Ticks(), Priority: vrt.Pri(),
		NodeID: nodeID, Op: op, Addr: addr, Neighbors: nbrs}

	traceTime := strconv.FormatFloat(vrt.Seconds(), 'f', -1, 64)
	trcInst := TraceInst{TraceTime: traceTime, TraceType: "peer", TraceStr: ptr.Serialize()}
	tm.AddTrace(vrt, nodeID, trcInst)
}
