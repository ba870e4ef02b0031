// Package worker implements the per-node round loop of spec §4.6: select a
// base config, pick a key and mode, generate a candidate that evades the
// shared knowledge base, drive it through the Verdict engine, and record
// the outcome.
package worker

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/jihwankim/cfgfuzz/pkg/category"
	"github.com/jihwankim/cfgfuzz/pkg/configtree"
	"github.com/jihwankim/cfgfuzz/pkg/knowledge"
	"github.com/jihwankim/cfgfuzz/pkg/mutator"
	"github.com/jihwankim/cfgfuzz/pkg/reporting"
	"github.com/jihwankim/cfgfuzz/pkg/verdict"
)

// Role is one of the two worker policies of spec §4.6 / GLOSSARY.
type Role int

const (
	RoleFuzzing Role = iota
	RoleExploration
)

func (r Role) String() string {
	if r == RoleExploration {
		return "exploration"
	}
	return "fuzzing"
}

// mode is the per-round action chosen in step 2 of spec §4.6.
type mode int

const (
	modeChange mode = iota
	modeDelete
)

// policyRetryBound is the worker-level retry bound of spec §6 ("worker
// policy retry bound (5)"), distinct from the mutator's own inner bound.
const policyRetryBound = 5

// keyRedrawProbability is the probability a fuzzing worker rejects a key
// already in consistent_items and redraws (spec §4.6 step 3, §6).
const keyRedrawProbability = 0.9

// Worker owns one node: its config_pool, its mutation policy, and the
// Verdict engine that drives restarts for that node.
type Worker struct {
	Name       string
	Role       Role
	Classifier *category.Classifier
	Mutator    *mutator.Mutator
	Knowledge  *knowledge.KnowledgeBase
	Engine     *verdict.Engine
	Logger     *reporting.Logger

	rng *rand.Rand

	mu         sync.Mutex // per-worker mutex, spec §5: serializes this worker's rounds
	configPool []*configtree.Tree
	round      int
	// fellBack is set by genCandidate when it returns the pristine
	// original value instead of a mutator candidate.
	fellBack bool
}

// New constructs a Worker seeded with the node's initial tree as the sole
// member of its config_pool.
func New(name string, role Role, seed int64, initial *configtree.Tree, classifier *category.Classifier, m *mutator.Mutator, kb *knowledge.KnowledgeBase, engine *verdict.Engine, logger *reporting.Logger) *Worker {
	return &Worker{
		Name:       name,
		Role:       role,
		Classifier: classifier,
		Mutator:    m,
		Knowledge:  kb,
		Engine:     engine,
		Logger:     logger.WithFields(map[string]interface{}{"worker": name, "role": role.String()}),
		rng:        rand.New(rand.NewSource(seed)),
		configPool: []*configtree.Tree{initial},
	}
}

// ConfigPoolSize reports the current config_pool size, used by cmd/cfgfuzz
// to feed the cfgfuzz_config_pool_size gauge (spec §11.3).
func (w *Worker) ConfigPoolSize() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.configPool)
}

// RoundOutcome is returned by Round for the caller's bookkeeping (metrics,
// report scheduling); the Worker itself has already applied every KB and
// config_pool side effect before returning.
type RoundOutcome struct {
	Classification verdict.Classification
	Key            string
	Category       category.Category
	Round          int
}

// Round executes exactly one iteration of the state machine in spec §4.7,
// serialized against this worker's own concurrent callers by mu (spec §5:
// "each worker has a per-worker mutex").
func (w *Worker) Round(ctx context.Context) (RoundOutcome, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.round++
	round := w.round

	// 1. SELECT_BASE.
	base := w.configPool[w.rng.Intn(len(w.configPool))]
	newTree := base.Clone()

	// 2. PICK_MODE.
	selectedMode := modeChange
	if w.rng.Float64() < 0.5 {
		selectedMode = modeDelete
	}

	// 3. PICK_KEY.
	key, ok := w.pickKey(newTree)
	if !ok {
		w.Logger.Debug("round: no eligible key", "round", round)
		return RoundOutcome{Classification: verdict.Survived, Round: round}, nil
	}
	cat := category.Other
	if w.Classifier != nil {
		cat = w.Classifier.Classify(key)
	}

	var candidate configtree.Leaf
	w.fellBack = false
	switch {
	case selectedMode == modeChange:
		candidate = w.genCandidate(newTree, key, cat)
		newTree.Set(key, candidate)
	case selectedMode == modeDelete && w.Knowledge.IsKnownFailure(key, configtree.DeleteSentinel):
		candidate = w.genCandidate(newTree, key, cat)
		newTree.Set(key, candidate)
	default:
		// 5. mode = delete, and deleting is not a known failure: delete a
		// fresh random key outright.
		delKey, ok := w.pickDeleteKey(newTree)
		if !ok {
			return RoundOutcome{Classification: verdict.Survived, Round: round}, nil
		}
		key = delKey
		cat = category.Other
		if w.Classifier != nil {
			cat = w.Classifier.Classify(key)
		}
		newTree.Delete(key)
		candidate = configtree.DeleteSentinel
	}

	w.Logger.Debug("round: candidate selected", "round", round, "key", key, "mode", selectedMode, "category", cat)

	// 6. Invoke the Verdict engine.
	result := w.Engine.Run(ctx, newTree, time.Now())

	// 7-8. Record outcome. A round whose candidate is the exhaustion
	// fallback is neutral: the KnowledgeBase is left untouched.
	if result.Classification == verdict.Survived {
		if !w.fellBack {
			w.Knowledge.RecordSuccess(key, candidate)
		}
		w.configPool = append(w.configPool, newTree)
		w.Logger.Debug("round: survived", "round", round, "key", key, "pool_size", len(w.configPool))
	} else {
		if !w.fellBack {
			w.Knowledge.RecordFailure(key, candidate)
		}
		w.Logger.Debug("round: failed", "round", round, "key", key, "classification", result.Classification.String())
	}

	return RoundOutcome{Classification: result.Classification, Key: key, Category: cat, Round: round}, nil
}

// pickKey implements step 3: a uniform key draw over non-list leaves, with
// the fuzzing role's 0.9 consistent_items rejection, bounded by
// policyRetryBound redraws.
func (w *Worker) pickKey(tree *configtree.Tree) (string, bool) {
	keys := eligibleKeys(tree)
	if len(keys) == 0 {
		return "", false
	}
	for attempt := 0; attempt < policyRetryBound; attempt++ {
		key := keys[w.rng.Intn(len(keys))]
		if w.Role == RoleFuzzing && w.Knowledge.IsConsistentItem(key) && w.rng.Float64() < keyRedrawProbability {
			continue
		}
		return key, true
	}
	return keys[w.rng.Intn(len(keys))], true
}

// pickDeleteKey draws a fresh random key for the delete branch, which spec
// §4.6 step 5 states is unconstrained by the list-type filter in some
// dialects; we still exclude list leaves since this implementation's
// dialects always treat arrays as opaque (spec §6).
func (w *Worker) pickDeleteKey(tree *configtree.Tree) (string, bool) {
	keys := eligibleKeys(tree)
	if len(keys) == 0 {
		return "", false
	}
	return keys[w.rng.Intn(len(keys))], true
}

// eligibleKeys returns all_keys minus list-typed leaves (spec §4.6 step 3).
func eligibleKeys(tree *configtree.Tree) []string {
	all := tree.AllKeys()
	keys := make([]string, 0, len(all))
	for _, k := range all {
		if tree.Get(k).Kind == configtree.KindList {
			continue
		}
		keys = append(keys, k)
	}
	return keys
}

// genCandidate implements step 4: generate via Mutator, retrying up to
// policyRetryBound times against the role-specific KB rejection policy,
// falling back to the pristine original value on exhaustion.
func (w *Worker) genCandidate(tree *configtree.Tree, key string, cat category.Category) configtree.Leaf {
	current := tree.Get(key)
	for attempt := 0; attempt < policyRetryBound; attempt++ {
		candidate, err := w.Mutator.Mutate(key, current, cat)
		if err != nil {
			break
		}
		if w.rejectedByPolicy(key, candidate) {
			continue
		}
		return candidate
	}
	// Exhaustion fallback: the pristine original value, a no-op relative to
	// the original file (spec §7 MutationExhausted).
	w.fellBack = true
	return tree.Original(key)
}

// rejectedByPolicy implements the role-specific KB rejection of spec §4.6
// step 4.
func (w *Worker) rejectedByPolicy(key string, candidate configtree.Leaf) bool {
	if w.Knowledge.IsKnownFailure(key, candidate) {
		return true
	}
	if w.Role == RoleExploration && w.Knowledge.IsKnownSuccess(key, candidate) {
		return true
	}
	return false
}
