package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/gabe/mobwatch/internal/protocol"
)

// Result is the outcome of one outbound command
type Result struct {
	Command protocol.Command

	// Local is set when the command was acknowledged without transport
	// confirmation; Cause then holds the transport error, if any.
	Local bool
	Cause error

	Err error
}

// Accepted reports whether the command counts as delivered
func (r Result) Accepted() bool {
	return r.Err == nil
}

// Rejected reports whether the transport explicitly refused the command
func (r Result) Rejected() bool {
	return errors.Is(r.Err, ErrCommandRejected)
}

// SendCommand delivers a command in the background and hands the result to
// done on the owner goroutine. The command is returned immediately so the
// caller can show it as pending. done may be nil.
func (b *Bridge) SendCommand(ctx context.Context, target, command string, args []string, done func(Result)) protocol.Command {
	cmd := protocol.NewCommand(target, command, args, b.clock.Now())
	gen := b.gen.Load()

	go func() {
		res := b.Deliver(ctx, cmd)
		if done == nil {
			return
		}
		b.post(func() {
			if gen != b.gen.Load() {
				return
			}
			done(res)
		})
	}()
	return cmd
}

// Deliver sends cmd synchronously. Commands are accepted locally when the
// bridge is simulated or disconnected; only a connected bridge reports
// transport errors, and an explicit refusal wraps ErrCommandRejected.
func (b *Bridge) Deliver(ctx context.Context, cmd protocol.Command) Result {
	res := Result{Command: cmd}
	if _, err := b.validator.EncodeCommand(cmd); err != nil {
		res.Err = fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		return res
	}
	if b.commander == nil {
		res.Local = true
		return res
	}

	connected := b.connected.Load()
	ctx, cancel := context.WithTimeout(ctx, b.commandTimeout)
	defer cancel()
	err := b.commander.Send(ctx, cmd)
	if err == nil {
		return res
	}

	if b.simulated || !connected {
		b.logger.Printf("Bridge: command %s for %s accepted locally: %v\n", cmd.Command, cmd.TargetAgent, err)
		res.Local = true
		res.Cause = err
		return res
	}
	res.Err = fmt.Errorf("failed to send %s to %s: %w", cmd.Command, cmd.TargetAgent, err)
	return res
}
