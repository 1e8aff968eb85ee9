package id

import (
	"fmt"
	"os"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/cespare/xxhash"
)

type Unique = int64

var generator = new(idGenerator)

type idGenerator struct {
	node *snowflake.Node
	once sync.Once
}

func (g *idGenerator) nextID() int64 {
	g.once.Do(func() {
		node, err := snowflake.NewNode(nodeID())
		if err != nil {
			panic(fmt.Sprintf("failed to initialize snowflake node: %s", err))
		}
		g.node = node
	})
	return g.node.Generate().Int64()
}

// New returns an id unique within (and reasonably across) processes on the
// same host. Selection requests derive their scratch property names from it
// so concurrent calls never touch each other's X server state.
func New() Unique {
	return generator.nextID()
}

func nodeID() int64 {
	host, err := os.Hostname()
	if err != nil {
		return int64(os.Getpid() % 1024)
	}
	return int64((xxhash.Sum64String(host) ^ uint64(os.Getpid())) % 1024)
}
