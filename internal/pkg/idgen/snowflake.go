package idgen

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Initialize sets up the Snowflake ID generator with a node ID
func Initialize(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

func defaultNode() *snowflake.Node {
	if node == nil {
		_ = Initialize(1)
	}
	return node
}

// NextID returns a new numeric ID, used for records served by the dev backend
func NextID() int64 {
	return defaultNode().Generate().Int64()
}

// NewToken returns an opaque, URL-safe token such as a refresh token
func NewToken(prefix string) string {
	return prefix + defaultNode().Generate().Base58()
}
