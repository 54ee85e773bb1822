package utilities

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string. KSUIDs sort by
// creation time, which keeps history ids roughly ordered.
func NewKSUID() string {
	return ksuid.New().String()
}

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

// defaultNode lazily builds the process-wide snowflake node. A single node
// is shared so ids generated within the same millisecond use its sequence
// counter instead of colliding.
func defaultNode() *snowflake.Node {
	nodeOnce.Do(func() {
		nodeID := int64(1)
		if v, err := strconv.ParseInt(os.Getenv("SNOWFLAKE_NODE"), 10, 64); err == nil {
			nodeID = v
		}
		n, err := snowflake.NewNode(nodeID)
		if err != nil {
			// out of range node id: fall back to node 1
			n, _ = snowflake.NewNode(1)
		}
		node = n
	})
	return node
}

// NewSnowflakeID generates a snowflake ID using the node configured by the
// SNOWFLAKE_NODE environment variable (default 1).
func NewSnowflakeID() int64 {
	return defaultNode().Generate().Int64()
}
