// Package submitter implements the one-shot submit client from spec
// §4.6: connect, send a single notify frame, await exactly one reply,
// report it, and exit.
package submitter

import (
	"context"
	"fmt"
	"io"

	"github.com/heyu-project/heyud/internal/protocol"
	"github.com/heyu-project/heyud/internal/transport"
)

// Result describes the single reply frame a submission received.
type Result struct {
	// ID is set when the hub replied accepted{id}.
	ID string
	// ErrorReason is set when the hub replied error{reason}.
	ErrorReason string
	// Other holds a diagnostic string for any other reply type.
	Other string
}

// Submit dials network/addr via manager, sends msg as a single frame,
// and reports the hub's one reply. The manager's handler is overwritten
// by Submit for the duration of the call.
func Submit(ctx context.Context, manager *transport.Manager, network, addr string, msg *protocol.Message) (Result, error) {
	var result Result
	var handleErr error

	manager.SetHandler(func(ctx context.Context, conn *transport.Conn) {
		frame, err := msg.Encode(protocol.CurrentVersion)
		if err != nil {
			handleErr = fmt.Errorf("submitter: encoding notify: %w", err)
			return
		}
		if err := conn.WriteFrame(frame); err != nil {
			handleErr = fmt.Errorf("submitter: sending notify: %w", err)
			return
		}

		reply, err := conn.ReadFrame()
		if err != nil {
			if err == io.EOF {
				handleErr = fmt.Errorf("submitter: hub closed the connection without a reply")
			} else {
				handleErr = fmt.Errorf("submitter: reading reply: %w", err)
			}
			return
		}
		replyMsg, err := protocol.Decode(reply)
		if err != nil {
			handleErr = fmt.Errorf("submitter: decoding reply: %w", err)
			return
		}

		switch replyMsg.Type() {
		case protocol.TypeAccepted:
			args, _ := replyMsg.Accepted()
			result.ID = args.ID
		case protocol.TypeError:
			reason, _ := replyMsg.ErrorReason()
			result.ErrorReason = reason
		default:
			result.Other = "unexpected reply: " + replyMsg.RawType()
		}
	})

	if err := manager.Dial(ctx, network, addr); err != nil {
		return Result{}, fmt.Errorf("submitter: connecting to %s: %w", addr, err)
	}
	if handleErr != nil {
		return Result{}, handleErr
	}
	return result, nil
}
