// Package approval implements the human gate in front of mutating
// tools: which calls need sign-off, and how a client's decision is
// read back out of a resubmitted message.
package approval

import (
	"github.com/arbor-chat/arbor/internal/tool"
	"github.com/arbor-chat/arbor/pkg/types"
)

// Required reports whether a call to t must be approved by the user
// before it executes. Unknown tools are treated as mutating.
func Required(t tool.Tool) bool {
	if t == nil {
		return true
	}
	return t.Mutating()
}

// Decision extracts the user's verdict from a tool part. ok is false
// until the client has responded.
func Decision(p *types.ToolPart) (approved bool, ok bool) {
	if p == nil || p.State != types.ToolStateApprovalResponded || p.Approved == nil {
		return false, false
	}
	return *p.Approved, true
}

// Pending returns the tool parts of msg still waiting for a decision.
func Pending(msg *types.Message) []*types.ToolPart {
	return partsInState(msg, types.ToolStateAwaitingApproval)
}

// Responded returns the tool parts of msg that carry a decision but
// have not executed yet.
func Responded(msg *types.Message) []*types.ToolPart {
	return partsInState(msg, types.ToolStateApprovalResponded)
}

func partsInState(msg *types.Message, state string) []*types.ToolPart {
	if msg == nil {
		return nil
	}
	var out []*types.ToolPart
	for _, p := range msg.ToolParts() {
		if p.State == state {
			out = append(out, p)
		}
	}
	return out
}

// HasPending reports whether any message in the history still has a
// tool call waiting for approval.
func HasPending(msgs []types.Message) bool {
	for i := range msgs {
		if len(Pending(&msgs[i])) > 0 {
			return true
		}
	}
	return false
}
