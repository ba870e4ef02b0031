// Package liveness implements the staged liveness signal the Verdict engine
// consults at each probe: process/container existence, plus an optional EVM
// precompile sanity sub-probe (spec §4.5, §11.4).
package liveness

import (
	"context"

	"github.com/jihwankim/cfgfuzz/pkg/noderunner"
)

// Checker composes a NodeRunner's IsAlive with an optional EVM sanity
// sub-probe. EVM is nil when the node is not EVM-compatible (the common
// case) or the node.evm_rpc_url config setting is empty.
type Checker struct {
	Runner noderunner.Runner
	EVM    *EVMProbe
}

// Probe reports whether the node is alive. If EVM is configured, a process
// that is alive at the OS level but fails the precompile sanity check is
// still reported as not alive — a stronger liveness signal than process
// existence for EVM nodes (spec §11.4).
func (c *Checker) Probe(ctx context.Context) (bool, error) {
	alive, err := c.Runner.IsAlive(ctx)
	if err != nil || !alive {
		return alive, err
	}
	if c.EVM == nil {
		return true, nil
	}
	return c.EVM.SanityCheck(ctx)
}
