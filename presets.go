package bcsnet

// A Preset is one of the canned topologies selectable by number
type Preset struct {
	NumHosts    int
	NumRouters  int
	Links       string
	Connections string
}

// the 21-host overlay shared by presets 8 and 9
const bigOverlay = "n0-n4,n1-n5,n2-n6,n3-n4,n4-n5,n5-n6,n6-n7,n4-n8,n5-n9,n6-n10,n10-n11,n10-n12,n0-n1," +
	"n3-n13,n13-n14,n13-n8,n11-n15,n8-n16,n14-n16,n16-n15,n3-n17,n17-n18,n18-n19,n19-n14,n20-n0,n20-n16,n8-n12,n9-n10"

const (
	tree13   = "n0-n4,n1-n5,n2-n6,n3-n4,n4-n5,n5-n6,n6-n7,n4-n8,n5-n9,n6-n10,n10-n11,n10-n12"
	meshed13 = tree13 + ",n9-n10,n8-n12"
	routed21 = "r0-r4,r1-r5,r2-r6,r3-r4,r4-r5,r5-r6,r6-r7,r4-r8,r5-r9,r6-r10,r10-r11,r10-r12,r3-r13,r14-r3,r3-r15,r12-r16,r12-r17,r9-r18,r9-r19,r8-r20,r8-r21,r22-r13,r23-r13,r13-r24,n0-n15,r24-n1,n2-r23,n3-r14,r22-n4,r21-n5,n6-r0,r23-n7,r9-n8,r18-n9,n10-r1,r16-n11,r20-n12,n13-r2,r11-n14,r17-n15,r22-n16,r7-n17,r2-n18,r24-n19,r16-n20"
)

// the range of topology identifiers
const (
	NoPreset  = 1
	MaxPreset = 9
)

// presets 2 through 9; preset 1 means the topology comes from the configuration
var presets = map[int]Preset{
	2: {NumHosts: 2, NumRouters: 1, Links: "n0-r0,r0-n1", Connections: "n0-n1"},
	3: {NumHosts: 2, NumRouters: 3, Links: "n0-r0,r0-r1,r1-n1,n0-r2,r2-n1", Connections: "n0-n1"},
	4: {NumHosts: 5, NumRouters: 1, Links: "n0-r0,n1-r0,n2-r0,n3-r0,n4-r0", Connections: "n0-n1,n1-n2,n2-n3,n3-n4,n4-n0"},
	5: {NumHosts: 8, NumRouters: 3, Links: "n0-r2,n1-r1,n2-r0,n3-r0,n4-r0,n5-r1,n6-r2,n7-r2,r0-r1,r1-r2",
		Connections: "n0-n6,n4-n5,n5-n1,n3-n5,n5-n6,n6-n2,n6-n7"},
	6: {NumHosts: 13, NumRouters: 0, Links: tree13, Connections: tree13},
	7: {NumHosts: 13, NumRouters: 0, Links: meshed13, Connections: meshed13},
	8: {NumHosts: 21, NumRouters: 0, Links: bigOverlay, Connections: bigOverlay},
	9: {NumHosts: 21, NumRouters: 25, Links: routed21, Connections: bigOverlay},
}

// PresetTopology returns the canned topology with the given number.
// The boolean result is false for NoPreset, which selects nothing
func PresetTopology(id int) (Preset, bool, error) {
	if id < NoPreset || id > MaxPreset {
		return Preset{}, false, configErr("topology", "there is no provided topology with value %d", id)
	}
	if id == NoPreset {
		return Preset{}, false, nil
	}
	return presets[id], true, nil
}
