package engineloop

import (
	"context"

	"lupine/internal/domain"
)

// Submitter sends a command onto the engine's command channel and blocks
// for its CommandResult, the synchronous half of the otherwise
// fully-asynchronous engine loop. It implements wire.Submitter without this
// package importing wire (front ends are callers, never dependencies).
type Submitter struct {
	commands chan<- domain.EngineCommand
}

func NewSubmitter(commands chan<- domain.EngineCommand) Submitter {
	return Submitter{commands: commands}
}

// Submit attaches a fresh reply channel to cmd, sends it, and waits for
// either the reply or ctx cancellation. A cancelled context still leaves the
// command in flight — the engine loop always processes what it dequeued —
// so a cancelled Submit can race a command that in fact went on to apply.
func (s Submitter) Submit(ctx context.Context, cmd domain.EngineCommand) domain.CommandResult {
	reply := make(chan domain.CommandResult, 1)
	cmd.Reply = reply

	select {
	case s.commands <- cmd:
	case <-ctx.Done():
		return domain.CommandResult{Err: ctx.Err()}
	}

	select {
	case result := <-reply:
		return result
	case <-ctx.Done():
		return domain.CommandResult{Err: ctx.Err()}
	}
}
