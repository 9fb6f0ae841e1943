// Package partition implements the partition planner (spec §4.H): for a
// document hash, decides which corpus partition and which cluster node
// owns it.
package partition

// Planner answers ownership questions for a fixed (P partitions, K nodes)
// cluster shape.
type Planner struct {
	partitions uint64 // P
	nodes      uint64 // K
}

// New returns a Planner for P partitions spread across K cluster nodes.
func New(partitions, nodes uint64) *Planner {
	if partitions == 0 {
		partitions = 1
	}
	if nodes == 0 {
		nodes = 1
	}
	return &Planner{partitions: partitions, nodes: nodes}
}

// OwnerNode returns the node id that owns hash h: (h / P) mod K.
func (p *Planner) OwnerNode(h uint64) uint64 {
	return (h / p.partitions) % p.nodes
}

// OwnerPartition returns the partition id that owns hash h: h mod P.
func (p *Planner) OwnerPartition(h uint64) uint64 {
	return h % p.partitions
}

// ShouldIndex reports whether nodeID, building partitionID, should index
// hash h: both partition and node ownership must hold.
func (p *Planner) ShouldIndex(h, partitionID, nodeID uint64) bool {
	return p.OwnerPartition(h) == partitionID && p.OwnerNode(h) == nodeID
}

// Partitions returns P.
func (p *Planner) Partitions() uint64 { return p.partitions }

// Nodes returns K.
func (p *Planner) Nodes() uint64 { return p.nodes }
