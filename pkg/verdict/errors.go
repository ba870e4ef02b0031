package verdict

import "errors"

// Four of the five error kinds of spec §7; MutationExhausted is
// mutator.ErrMutationExhausted. The Engine wraps these into Result.Err;
// the Worker decides the KnowledgeBase update from Result.Classification,
// not from these errors, and none of them propagate past its round boundary.
var (
	ErrStartupFailure      = errors.New("verdict: node did not become alive within the post-restart delay")
	ErrRuntimeFailure      = errors.New("verdict: node died during a sustain probe")
	ErrScriptError         = errors.New("verdict: restart script exited non-zero")
	ErrPoolWorkerException = errors.New("verdict: worker round panicked")
)
