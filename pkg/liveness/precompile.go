package liveness

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"
)

// Entry is one EVM precompile sanity-check vector: call Address with Input
// via eth_call and expect Expected back. Adapted from the teacher's
// pkg/fuzz/precompile/registry.go, trimmed to the two precompiles whose
// expected output this package can compute independently at runtime
// (identity and SHA-256) rather than hand-transcribing hex vectors for the
// more exotic ones (ecrecover, modexp, the bn256 curve ops, blake2f) — a
// wrong transcription there would silently turn a sanity check into a
// false-positive RuntimeFailure generator, which is worse than a smaller
// but trustworthy table. Address reuses go-ethereum's common.Address, the
// same precompile-address representation the teacher's registry.go uses,
// rather than a bare hex string.
type Entry struct {
	Address  common.Address
	Name     string
	Input    []byte
	Expected []byte
	Critical bool // a mismatch counts as an additional RuntimeFailure signal
}

// KnownPrecompiles are the sanity-check vectors issued every sustain-check
// round when the EVM sub-probe is enabled (spec §11.4).
var KnownPrecompiles = []Entry{
	{
		Address:  common.BytesToAddress([]byte{0x04}),
		Name:     "identity",
		Input:    []byte("cfgfuzz-liveness-sanity"),
		Expected: []byte("cfgfuzz-liveness-sanity"),
		Critical: true,
	},
	{
		Address:  common.BytesToAddress([]byte{0x02}),
		Name:     "sha256",
		Input:    []byte("cfgfuzz-liveness-sanity"),
		Expected: sha256Of([]byte("cfgfuzz-liveness-sanity")),
		Critical: true,
	},
}

func sha256Of(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

// All returns every registered precompile sanity-check entry.
func All() []Entry { return KnownPrecompiles }

func (e Entry) inputHex() string    { return "0x" + hex.EncodeToString(e.Input) }
func (e Entry) expectedHex() string { return "0x" + hex.EncodeToString(e.Expected) }
func (e Entry) addressHex() string  { return e.Address.Hex() }
