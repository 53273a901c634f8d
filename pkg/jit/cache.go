package jit

import "github.com/cespare/xxhash/v2"

// cache maps the xxhash of a module's generated QBE IR text to the shared object already
// linked for it, so re-evaluating an identical top-level node in a REPL session (a
// realistic scenario: re-running a definition unchanged) skips assemble+link entirely.
type cache struct {
	bySum map[uint64]string
}

func newCache() *cache { return &cache{bySum: make(map[uint64]string)} }

func (c *cache) lookup(irText string) (string, bool) {
	path, ok := c.bySum[xxhash.Sum64String(irText)]
	return path, ok
}

func (c *cache) store(irText, soPath string) {
	c.bySum[xxhash.Sum64String(irText)] = soPath
}
