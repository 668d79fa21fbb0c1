package application

import (
	"github.com/codecurrent-sandbox/pgregistry/internal/config"
)

// Config returns the node's configuration.
func (n *Node) Config() *config.Config {
	return n.config
}
