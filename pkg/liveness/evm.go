package liveness

import (
	"bytes"
	"context"
	"fmt"
)

// EVMProbe issues one eth_call per registered precompile entry and treats a
// mismatch on a Critical entry as a liveness failure, giving EVM-compatible
// nodes a stronger signal than process/container existence alone (spec
// §11.4).
type EVMProbe struct {
	client *rpcClient
}

// NewEVMProbe constructs an EVMProbe against the node's JSON-RPC endpoint.
func NewEVMProbe(rpcURL string) *EVMProbe {
	return &EVMProbe{client: newRPCClient(rpcURL)}
}

// SanityCheck calls every registered precompile and reports whether all
// Critical entries returned their expected value. A transport error (the
// node not answering RPC at all) is itself evidence of a liveness problem
// and is reported as a failed check, not a fatal error, so the sustain
// check's process-liveness signal is not masked by a flaky RPC dial.
func (p *EVMProbe) SanityCheck(ctx context.Context) (bool, error) {
	for _, entry := range All() {
		result, err := p.client.EthCall(ctx, entry.addressHex(), entry.inputHex())
		if err != nil {
			if entry.Critical {
				return false, fmt.Errorf("liveness: evm precompile %s unreachable: %w", entry.Name, err)
			}
			continue
		}
		if !bytes.Equal(result, entry.Expected) {
			if entry.Critical {
				return false, fmt.Errorf("liveness: evm precompile %s returned unexpected output", entry.Name)
			}
		}
	}
	return true, nil
}
