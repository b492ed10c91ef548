package id

import (
	"hash/fnv"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// NodeIDFor maps a consumer name onto the snowflake node range. The range
// has 1024 slots, so hashed nodes start colliding in practice once a group
// runs a few dozen workers; deployments that large assign nodes explicitly.
func NodeIDFor(name string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	mask := int64(1)<<snowflake.NodeBits - 1
	return int64(h.Sum32()) & mask
}

// ResolveNodeID prefers an explicitly assigned node and falls back to
// hashing the consumer name when configured is negative.
func ResolveNodeID(configured int64, consumer string) int64 {
	if configured >= 0 {
		return configured
	}
	return NodeIDFor(consumer)
}

// New generates a new globally unique int64 ID using the Snowflake algorithm.
// IDs are time-ordered and unique across distributed instances.
func New() int64 {
	return node.Generate().Int64()
}
