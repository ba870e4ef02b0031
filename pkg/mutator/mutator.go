// Package mutator produces mutation candidates for a (key, current_value)
// pair using the name- and type-based rule tables of spec §4.2.
package mutator

import (
	"math/rand"
	"strings"

	"github.com/jihwankim/cfgfuzz/pkg/category"
	"github.com/jihwankim/cfgfuzz/pkg/configtree"
)

// innerRetryBound is the mutator's own bounded retry loop: any candidate
// equal to current_value is rejected and redrawn, up to this many times,
// before ErrMutationExhausted is raised (spec §4.2: "at least 5").
const innerRetryBound = 5

// generator produces one candidate leaf. Called fresh on each retry so
// random-offset candidates get a new draw rather than repeating a rejected
// one verbatim.
type generator func(rng *rand.Rand, current configtree.Leaf) configtree.Leaf

// Mutator draws mutation candidates. Not safe for concurrent use from
// multiple goroutines without external synchronization — each Worker owns
// its own Mutator instance, matching the per-worker-lock model of spec §5.
type Mutator struct {
	rng *rand.Rand
}

// New constructs a Mutator seeded from seed, so a single run's candidate
// draws are auditable (spec §10.1 --seed).
func New(seed int64) *Mutator {
	return &Mutator{rng: rand.New(rand.NewSource(seed))}
}

// Mutate returns a value distinct from current for key under cat, or
// ErrMutationExhausted if the inner retry bound is exceeded (spec §4.2).
func (m *Mutator) Mutate(key string, current configtree.Leaf, cat category.Category) (configtree.Leaf, error) {
	lower := strings.ToLower(key)
	gen := tierA(cat, lower)
	if gen == nil {
		gen = tierB(current)
	}
	for i := 0; i < innerRetryBound; i++ {
		candidate := gen(m.rng, current)
		if !configtree.Equal(candidate, current) {
			return candidate, nil
		}
	}
	return configtree.Leaf{}, ErrMutationExhausted
}

// negate is a generator producing the boolean negation of current
// (falling back to `true` if current is not itself boolean, e.g. when a
// marker like "enable" matches a string-typed leaf).
func negate(rng *rand.Rand, current configtree.Leaf) configtree.Leaf {
	if current.Kind == configtree.KindBool {
		return configtree.BoolLeaf(!current.Bool)
	}
	return configtree.BoolLeaf(true)
}

// pick returns a generator that selects uniformly among a fixed pool of
// candidates, used for markers whose pool does not depend on current_value.
func pick(pool ...configtree.Leaf) generator {
	return func(rng *rand.Rand, current configtree.Leaf) configtree.Leaf {
		return pool[rng.Intn(len(pool))]
	}
}

// currentInt/currentFloat extract a numeric base for offset-style rules,
// tolerating a current value of a different kind by treating it as 0.
func currentInt(l configtree.Leaf) int64 {
	switch l.Kind {
	case configtree.KindInt:
		return l.Int
	case configtree.KindFloat:
		return int64(l.Float)
	default:
		return 0
	}
}

func currentFloat(l configtree.Leaf) float64 {
	switch l.Kind {
	case configtree.KindFloat:
		return l.Float
	case configtree.KindInt:
		return float64(l.Int)
	default:
		return 0
	}
}

// intPoolWithOffset builds a generator over {0, -1, 2v, v+rand[-spread,
// spread]} plus any extra fixed candidates, the recurring shape of most
// Tier A integer markers.
func intPoolWithOffset(spread int64, extra ...int64) generator {
	return func(rng *rand.Rand, current configtree.Leaf) configtree.Leaf {
		v := currentInt(current)
		pool := append([]int64{0, -1, 2 * v, intOffset(rng, v, spread)}, extra...)
		return configtree.IntLeaf(pool[rng.Intn(len(pool))])
	}
}

// timeoutPool builds the {0, 1, N*v, v+rand[-spread,spread]} shape used by
// interval/timeout-style markers, which differ from the generic integer
// shape by excluding -1 (negative durations are a less interesting failure
// mode than zero/huge) and using a multiplier rather than a fixed doubling.
func timeoutPool(multiplier int64, spread int64) generator {
	return func(rng *rand.Rand, current configtree.Leaf) configtree.Leaf {
		v := currentInt(current)
		pool := []int64{0, 1, multiplier * v, intOffset(rng, v, spread)}
		return configtree.IntLeaf(pool[rng.Intn(len(pool))])
	}
}

// invalidPathPool builds the {invalid paths, "", NOT_PRESENT, random
// /tmp/test_path_<N>} shape shared by every *_path marker.
func invalidPathPool(randPrefix string) generator {
	invalid := []string{"/nonexistent/path", "/dev/null/not_a_dir", "relative/path/that/does/not/resolve"}
	return func(rng *rand.Rand, current configtree.Leaf) configtree.Leaf {
		choice := rng.Intn(len(invalid) + 3)
		switch {
		case choice < len(invalid):
			return configtree.StringLeaf(invalid[choice])
		case choice == len(invalid):
			return configtree.StringLeaf("")
		case choice == len(invalid)+1:
			return configtree.NotPresent
		default:
			return configtree.StringLeaf(randPrefix + "_" + itoa(intRange(rng, 0, 1_000_000)))
		}
	}
}

// invalidAddressPool builds the {invalid IPs, random host:port} shape
// shared by the address/addr/listen_ip/bind_ip and backup_service_address
// markers.
func invalidAddressPool() generator {
	invalid := []string{"999.999.999.999", "not-an-ip", "256.1.1.1:70000", ""}
	return func(rng *rand.Rand, current configtree.Leaf) configtree.Leaf {
		if rng.Intn(2) == 0 {
			return configtree.StringLeaf(invalid[rng.Intn(len(invalid))])
		}
		host := intRange(rng, 0, 255)
		port := intRange(rng, 1, 65535)
		return configtree.StringLeaf(randHostPort(host, port))
	}
}

func randHostPort(octet, port int64) string {
	return "192.168." + itoa(octet%256) + ".1:" + itoa(port)
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
