// Package noderunner implements the NodeRunner contract of spec §4.4: start
// and stop a node process (or container), restart it under a fixed
// post-stop quiescence, and answer liveness queries.
package noderunner

import (
	"context"
	"fmt"
	"time"
)

// Quiescence is the fixed post-stop delay restart() waits before issuing
// start(), per spec §4.4 ("restart() = stop; sleep(3); start"). It is a
// var rather than a const solely so tests can shrink it.
var Quiescence = 3 * time.Second

// Runner is the NodeRunner contract. Start/Stop are idempotent; IsAlive
// checks for a process (or container) matching the node's identity
// established at construction.
type Runner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	IsAlive(ctx context.Context) (bool, error)
	PanicLogPath() string
}

// restartSequence implements the shared stop -> sleep(Quiescence) -> start
// sequencing both Runner implementations share, so the fixed 3s quiescence
// is defined in exactly one place. Per spec §5 this sleep is not an
// interruptible suspension point: a cancelled context does not shorten it.
func restartSequence(ctx context.Context, stop, start func(context.Context) error) error {
	if err := stop(ctx); err != nil {
		return fmt.Errorf("noderunner: stop: %w", err)
	}
	time.Sleep(Quiescence)
	if err := start(ctx); err != nil {
		return fmt.Errorf("noderunner: start: %w", err)
	}
	return nil
}
