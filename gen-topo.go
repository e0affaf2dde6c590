package bcsnet

// gen-topo.go synthesizes a connected host-only topology in which every
// host has at least a given number of links

import (
	"hash/fnv"

	"github.com/iti/rngstream"
)

// RandSource supplies integers drawn uniformly from [lo, hi].
// *rngstream.RngStream satisfies it
type RandSource interface {
	RandInt(lo, hi int) int
}

// NewRandSource returns a random stream whose seed is derived from name.
// Streams built from the same name deliver the same sequence, whatever other
// streams the process has created
func NewRandSource(name string) RandSource {
	rng := rngstream.New(name)
	rng.SetSeed(streamSeed(name))
	return rng
}

// the largest values the two halves of an rngstream seed may take, exclusive
const (
	seedMod1 = 4294967087
	seedMod2 = 4294944443
)

// streamSeed hashes name into six seed words, each in [1, m) so the seed is
// always one rngstream accepts
func streamSeed(name string) []uint64 {
	seed := make([]uint64, 6)
	for idx := range seed {
		h := fnv.New64a()
		h.Write([]byte{byte(idx)})
		h.Write([]byte(name))
		mod := uint64(seedMod1)
		if idx >= 3 {
			mod = seedMod2
		}
		seed[idx] = h.Sum64()%(mod-1) + 1
	}
	return seed
}

// maxRandomDraws bounds the rejected draws spent looking for one new neighbor
// before the remaining candidates are enumerated
const maxRandomDraws = 64

// CheckMinDegree validates a minimum-connections constraint against the number of hosts
func CheckMinDegree(numHosts, minDegree int) error {
	if numHosts < 2 {
		return constraintErr("nodes", "number of nodes cannot be less than two")
	}
	if numHosts != 2 && minDegree < 2 {
		return constraintErr("minConnectionsPerNode", "minimum connections per node must be at least 2")
	}
	if numHosts == 2 && minDegree < 1 {
		return constraintErr("minConnectionsPerNode", "minimum connections per node must be at least 1 for a topology with 2 nodes")
	}
	if minDegree >= numHosts {
		return constraintErr("minConnectionsPerNode", "the largest number of connections per node is one less than the number of nodes")
	}
	return nil
}

// GenerateTopo builds a ring over the hosts, which makes the graph connected,
// and then gives each host below minDegree links to randomly chosen hosts it is not
// yet linked to.  No self loops or duplicated links are produced
func GenerateTopo(numHosts, minDegree int, rng RandSource) ([]Edge, error) {
	if err := CheckMinDegree(numHosts, minDegree); err != nil {
		return nil, err
	}

	// adj[i] holds the hosts i is linked to
	adj := make([]map[int]bool, numHosts)
	for idx := range adj {
		adj[idx] = make(map[int]bool)
	}

	edges := make([]Edge, 0, numHosts*minDegree/2+1)
	link := func(i, j int) {
		adj[i][j] = true
		adj[j][i] = true
		edges = append(edges, Edge{A: Host(i), B: Host(j)})
	}

	// ring.  With two hosts the second step finds the link already there
	for i := 0; i < numHosts; i++ {
		succ := (i + 1) % numHosts
		if !adj[i][succ] {
			link(i, succ)
		}
	}

	for i := 0; i < numHosts; i++ {
		for len(adj[i]) < minDegree {
			j, found := drawNeighbor(i, adj, numHosts, rng)
			if !found {
				return nil, constraintErr("minConnectionsPerNode", "host %d has no host left to link to", i)
			}
			link(i, j)
		}
	}
	return edges, nil
}

// drawNeighbor chooses a host that i may be newly linked to.  Random draws are tried
// first; if maxRandomDraws are rejected the valid candidates are listed and one of them chosen
func drawNeighbor(i int, adj []map[int]bool, numHosts int, rng RandSource) (int, bool) {
	succ := (i + 1) % numHosts
	valid := func(j int) bool {
		return j >= 0 && j < numHosts && j != i && j != succ && !adj[i][j]
	}

	for draw := 0; draw < maxRandomDraws; draw++ {
		j := rng.RandInt(0, numHosts-1)
		if valid(j) {
			return j, true
		}
	}

	candidates := make([]int, 0)
	for j := 0; j < numHosts; j++ {
		if valid(j) {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return -1, false
	}
	pick := rng.RandInt(0, len(candidates)-1)
	if pick < 0 || pick >= len(candidates) {
		pick = 0
	}
	return candidates[pick], true
}
