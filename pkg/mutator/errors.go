package mutator

import "errors"

// ErrMutationExhausted is raised when the inner retry loop cannot produce a
// candidate distinct from the current value within the bound (spec §4.2,
// §7). The worker recovers from it by falling back to the pristine original
// value (spec §4.6 step 4, §9 design note 3).
var ErrMutationExhausted = errors.New("mutator: exhausted retries without producing a distinct value")
