package wire

import (
	"encoding/json"

	"github.com/pilotlab-dev/webpilot/pkg/core"
)

// callMessage is the envelope for an outbound command.
type callMessage struct {
	ID     int64       `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// replyMessage is the envelope for an inbound reply, matched by ID.
type replyMessage struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RemoteError    `json:"error,omitempty"`
}

// RemoteError is an error reported by the remote target for a single call.
type RemoteError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	return e.Message
}

// Remote error codes the client gives special meaning to. Anything else is
// surfaced verbatim.
const (
	RemoteCodeDetached   = "element_detached"
	RemoteCodeNotFound   = "element_not_found"
	RemoteCodeBadRequest = "bad_request"
)

// asCoreError maps protocol-level error codes onto the client taxonomy so the
// action engine can classify stale-element replies as transient.
func asCoreError(e *RemoteError) error {
	switch e.Code {
	case RemoteCodeDetached:
		return core.ErrDetached.WithCause(e)
	case RemoteCodeNotFound:
		return core.ErrNotFound.WithCause(e)
	default:
		return e
	}
}
