package mutator

import (
	"math"
	"math/rand"
)

// triangular, logUniform and weightedChoice are ported from the teacher's
// pkg/fuzz/sampler.go Sampler, which uses exactly these three shapes to draw
// fault-injection parameters. Here they back the Tier A/B "v+rand[...]"
// style numeric offsets instead of fault magnitudes.

// triangular draws from a triangular distribution over [lo, hi] peaked at
// mode, the same formula the teacher's sampler uses for skewed-magnitude
// parameters (e.g. latency injection).
func triangular(rng *rand.Rand, lo, hi, mode float64) float64 {
	if hi <= lo {
		return lo
	}
	u := rng.Float64()
	f := (mode - lo) / (hi - lo)
	if u < f {
		return lo + (hi-lo)*math.Sqrt(u*f)
	}
	return hi - (hi-lo)*math.Sqrt((1-u)*(1-f))
}

// logUniform draws a value log-uniformly over [lo, hi] (both > 0), matching
// the teacher's sampler usage for parameters that span multiple orders of
// magnitude (e.g. bandwidth/buffer sizes).
func logUniform(rng *rand.Rand, lo, hi float64) float64 {
	if lo <= 0 {
		lo = 1e-9
	}
	if hi <= lo {
		return lo
	}
	logLo, logHi := math.Log(lo), math.Log(hi)
	return math.Exp(logLo + rng.Float64()*(logHi-logLo))
}

// weightedChoice picks an index into weights proportional to its weight,
// the same idiom the teacher's sampler uses to pick among non-uniform fault
// candidate pools.
func weightedChoice(rng *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return rng.Intn(len(weights))
	}
	r := rng.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return i
		}
	}
	return len(weights) - 1
}

// intOffset returns v + a uniform random integer in [-spread, spread],
// backing the "v+rand[-N,N]" pool entries throughout the Tier A tables.
func intOffset(rng *rand.Rand, v int64, spread int64) int64 {
	if spread <= 0 {
		return v
	}
	delta := rng.Int63n(2*spread+1) - spread
	return v + delta
}

// intRange returns a uniform random integer in [lo, hi].
func intRange(rng *rand.Rand, lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Int63n(hi-lo+1)
}

// floatOffset returns v scaled by a uniform factor in [loFactor, hiFactor].
func floatOffset(rng *rand.Rand, v float64, loFactor, hiFactor float64) float64 {
	return v * (loFactor + rng.Float64()*(hiFactor-loFactor))
}

func roundTo(v float64, places int) float64 {
	scale := 1.0
	for i := 0; i < places; i++ {
		scale *= 10
	}
	return float64(int64(v*scale+sign(v)*0.5)) / scale
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
