package process

import (
	"os"
	"sync"
)

// Connector is one anonymous pipe joining a stage's stdout to the next
// stage's stdin. It holds the parent-side read/write descriptor pair;
// children receive their own duplicated copies at spawn time. Connectors
// are created and closed exclusively by the owning Pipeline.
type Connector struct {
	mu     sync.Mutex
	read   *os.File
	write  *os.File
	closed bool
}

// NewConnector creates a fresh OS pipe.
func NewConnector() (*Connector, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	return &Connector{read: r, write: w}, nil
}

// Close closes both parent-side descriptors. It is idempotent; the first
// error encountered is returned.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	err := c.read.Close()
	if werr := c.write.Close(); err == nil {
		err = werr
	}
	return err
}
