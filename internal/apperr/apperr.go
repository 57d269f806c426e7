// Package apperr maps the control plane's error taxonomy onto JSON-RPC error
// codes and tool-level error shapes.
package apperr

import "fmt"

// JSON-RPC 2.0 error codes used by the RPC substrate.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// CodeSessionRequired is the reserved application-level code for a
	// missing or unknown mcp-session-id. -32000 is the
	// first slot in the JSON-RPC "reserved for implementation-defined
	// server-errors" range.
	CodeSessionRequired = -32000
)

// RPCError is a JSON-RPC-level error (framework failures),
// distinct from a tool-level {error:...} result or a business refusal
// {success:false, reason:...}.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// NewInvalidParams builds a CodeInvalidParams RPCError.
func NewInvalidParams(msg string) *RPCError {
	return &RPCError{Code: CodeInvalidParams, Message: msg}
}

// NewMethodNotFound builds a CodeMethodNotFound RPCError.
func NewMethodNotFound(method string) *RPCError {
	return &RPCError{Code: CodeMethodNotFound, Message: "method not found: " + method}
}

// NewSessionRequired builds a CodeSessionRequired RPCError.
func NewSessionRequired() *RPCError {
	return &RPCError{Code: CodeSessionRequired, Message: "mcp-session-id header required"}
}

// ToolError is the {error:<msg>} shape returned INSIDE a successful tool
// result for transport/upstream failures. It must never
// be promoted to an HTTP or JSON-RPC level error.
type ToolError struct {
	Error  string `json:"error"`
	Symbol string `json:"symbol,omitempty"`
}

// Refusal is the {success:false, reason:...} shape for business refusals
// and internal faults.
type Refusal struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
}

// InternalFault builds the Refusal emitted when a handler recovers from an
// unexpected panic or error; the caller is additionally responsible for
// logging a critical "error" AuditEvent to the compliance service.
func InternalFault(err error) Refusal {
	return Refusal{Success: false, Reason: fmt.Sprintf("Execution error: %v", err)}
}
