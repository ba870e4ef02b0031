package mutator

import (
	"math/rand"
	"strings"

	"github.com/jihwankim/cfgfuzz/pkg/category"
	"github.com/jihwankim/cfgfuzz/pkg/configtree"
)

// marker is one Tier A name-based rule: if its substring appears in the
// lowercased key, gen produces candidates for that marker. Markers are
// probed in table order; the first match wins (spec §4.2).
type marker struct {
	substr string
	gen    generator
}

// tierA returns the generator for the first matching marker in cat's table,
// or nil if no marker matches (falling through to Tier B).
func tierA(cat category.Category, lowerKey string) generator {
	table := tierATables[cat]
	for _, m := range table {
		if strings.Contains(lowerKey, m.substr) {
			return m.gen
		}
	}
	return nil
}

var tierATables = map[category.Category][]marker{
	category.Consensus: {
		{"backend", pick(
			configtree.StringLeaf("raft"), configtree.StringLeaf("pbft"), configtree.StringLeaf("solo"),
			configtree.StringLeaf("invalid_backend"), configtree.StringLeaf(""), configtree.NotPresent,
		)},
		{"identity_blob_path", invalidPathPool("/tmp/test_identity")},
		{"path", invalidPathPool("/tmp/test_path")},
		{"type", pick(
			configtree.StringLeaf("thread"), configtree.StringLeaf("process"),
			configtree.StringLeaf("invalid_type"), configtree.StringLeaf(""),
		)},
		{"timeout", intPoolWithOffset(500)},
		{"namespace", func(rng *rand.Rand, current configtree.Leaf) configtree.Leaf {
			pool := []configtree.Leaf{
				configtree.StringLeaf("invalid_namespace"), configtree.StringLeaf(""), configtree.NotPresent,
				configtree.StringLeaf("namespace_" + itoa(intRange(rng, 0, 1_000_000))),
			}
			return pool[rng.Intn(len(pool))]
		}},
		{"gas", func(rng *rand.Rand, current configtree.Leaf) configtree.Leaf {
			v := currentInt(current)
			pool := []int64{0, -1, 2 * v, intOffset(rng, v, 100000), 1_000_000_000_000_000_000}
			return configtree.IntLeaf(pool[rng.Intn(len(pool))])
		}},
		{"discovery", negate},
		{"enable", negate},
		{"min_seal_time", timeoutPool(10, 1000)},
		{"snap_count", intPoolWithOffset(500)},
		{"ticker", timeoutPool(10, 1000)},
	},
	category.Network: {
		{"port", func(rng *rand.Rand, current configtree.Leaf) configtree.Leaf {
			v := currentInt(current)
			pool := []int64{0, 65536, intOffset(rng, v, 100), intRange(rng, 1, 65535)}
			return configtree.IntLeaf(pool[rng.Intn(len(pool))])
		}},
		{"listen_ip", invalidAddressPool()},
		{"bind_ip", invalidAddressPool()},
		{"address", invalidAddressPool()},
		{"addr", invalidAddressPool()},
		{"seeds", listPerturbation()},
		{"peers", listPerturbation()},
		{"rate_limit", intPoolWithOffset(500)},
		{"max_connection", intPoolWithOffset(500)},
		{"ping_interval", timeoutPool(10, 1000)},
		{"buffer_size_bytes", intPoolWithOffset(1024)},
		{"compression", negate},
		{"sm_ssl", negate},
		{"ssl", negate},
		{"tls", func(rng *rand.Rand, current configtree.Leaf) configtree.Leaf {
			if current.Kind == configtree.KindBool {
				return negate(rng, current)
			}
			return invalidPathPool("/tmp/test_tls")(rng, current)
		}},
		{"key", invalidPathPool("/tmp/test_key")},
		{"cert", invalidPathPool("/tmp/test_cert")},
		{"enable", negate},
	},
	category.Storage: {
		{"store_path", invalidPathPool("/tmp/test_path")},
		{"db_path", invalidPathPool("/tmp/test_path")},
		{"path", invalidPathPool("/tmp/test_path")},
		{"backup_service_address", invalidAddressPool()},
		{"max_frame_size", intPoolWithOffset(500)},
		{"max_message_size", intPoolWithOffset(500)},
		{"write_buffer_size", intPoolWithOffset(500)},
		{"cache_size", intPoolWithOffset(500)},
		{"flush_interval", timeoutPool(10, 1000)},
		{"gc_interval", timeoutPool(10, 1000)},
		{"timeout", timeoutPool(10, 1000)},
		{"interval", timeoutPool(10, 1000)},
		{"provider", pick(
			configtree.StringLeaf("leveldb"), configtree.StringLeaf("badger"),
			configtree.StringLeaf("invalid_provider"), configtree.StringLeaf(""),
		)},
		{"disable", negate},
		{"compression", negate},
		{"enable", negate},
		{"max_open_files", intPoolWithOffset(500)},
	},
	category.Transaction: {
		{"max_txpool_size", intPoolWithOffset(5000, 1_000_000)},
		{"txpool", intPoolWithOffset(5000, 1_000_000)},
		{"limit", intPoolWithOffset(5000, 1_000_000)},
		{"batch_create_timeout", timeoutPool(10, 100)},
		{"batch_timeout", timeoutPool(10, 100)},
		{"batch_max_size", intPoolWithOffset(500)},
		{"batch_size", intPoolWithOffset(500)},
		{"queue.common_queue_num", intPoolWithOffset(500)},
		{"is_dump_txs_in_queue", negate},
		{"tx_rate_limit", intPoolWithOffset(500, 1_000_000)},
		{"tx_timeout", txTimeoutPool()},
		{"tx_expiration", txTimeoutPool()},
		{"send_txs_by_tree", negate},
		{"sync_block_by_tree", negate},
		{"tree_width", func(rng *rand.Rand, current configtree.Leaf) configtree.Leaf {
			v := currentInt(current)
			pool := []int64{0, -1, 2 * v, v + intRange(rng, -5, 10)}
			return configtree.IntLeaf(pool[rng.Intn(len(pool))])
		}},
	},
}

func txTimeoutPool() generator {
	return func(rng *rand.Rand, current configtree.Leaf) configtree.Leaf {
		v := currentInt(current)
		pool := []int64{1, 10 * v, intOffset(rng, v, 500), 0, -1}
		return configtree.IntLeaf(pool[rng.Intn(len(pool))])
	}
}

func listPerturbation() generator {
	return func(rng *rand.Rand, current configtree.Leaf) configtree.Leaf {
		var items []configtree.Leaf
		if current.Kind == configtree.KindList {
			items = append(items, current.List...)
		}
		switch rng.Intn(3) {
		case 0:
			return configtree.ListLeaf(append(append([]configtree.Leaf{}, items...), configtree.StringLeaf("invalid_entry")))
		case 1:
			if len(items) > 0 {
				return configtree.ListLeaf(items[:len(items)-1])
			}
			return configtree.ListLeaf([]configtree.Leaf{})
		default:
			return configtree.ListLeaf([]configtree.Leaf{})
		}
	}
}

// tierB is the type-based fallback used when no Tier A marker matches
// (spec §4.2 table).
func tierB(current configtree.Leaf) generator {
	switch current.Kind {
	case configtree.KindBool:
		return negate
	case configtree.KindInt:
		return intPoolWithOffset(500, 99999)
	case configtree.KindFloat:
		return func(rng *rand.Rand, current configtree.Leaf) configtree.Leaf {
			v := currentFloat(current)
			pool := []float64{0.0, -1.0, floatOffset(rng, v, 0.1, 10), roundTo(rng.Float64()*2000-1000, 3)}
			return configtree.FloatLeaf(pool[rng.Intn(len(pool))])
		}
	case configtree.KindString:
		return func(rng *rand.Rand, current configtree.Leaf) configtree.Leaf {
			v := current.String
			pool := []configtree.Leaf{
				configtree.StringLeaf(reverseString(v)),
				configtree.StringLeaf(v + "_mutated"),
				configtree.StringLeaf("invalid_string"),
				configtree.StringLeaf(""),
				configtree.NotPresent,
			}
			return pool[rng.Intn(len(pool))]
		}
	case configtree.KindList:
		return listPerturbation()
	case configtree.KindMap:
		return func(rng *rand.Rand, current configtree.Leaf) configtree.Leaf {
			if rng.Intn(2) == 0 {
				out := make(map[string]configtree.Leaf, len(current.Map)+1)
				for k, v := range current.Map {
					out[k] = v
				}
				out["invalid_key"] = configtree.StringLeaf("invalid_value")
				return configtree.MapLeaf(out)
			}
			return configtree.MapLeaf(map[string]configtree.Leaf{})
		}
	default:
		return func(rng *rand.Rand, current configtree.Leaf) configtree.Leaf {
			pool := []configtree.Leaf{configtree.StringLeaf(current.GoString()), configtree.IntLeaf(0), configtree.NotPresent}
			return pool[rng.Intn(len(pool))]
		}
	}
}

func reverseString(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
