// Package rpcserver implements the JSON-RPC-over-HTTP+SSE transport shared
// by every service. It is the only inter-service edge:
// peer services never import one another directly.
package rpcserver

import "encoding/json"

// Envelope is the JSON-RPC 2.0 request body.
type Envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is the JSON-RPC 2.0 response body, framed as a single SSE
// "data: " line by the transport.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// ResponseError is the JSON-RPC error object.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// InitializeParams is the payload of the `initialize` method.
type InitializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      map[string]any `json:"clientInfo"`
}

// InitializeResult is the payload returned by `initialize`.
type InitializeResult struct {
	ServerInfo   ServerInfo     `json:"serverInfo"`
	Capabilities map[string]any `json:"capabilities"`
}

// ServerInfo names the responding service.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ToolDescriptor describes one registered tool for `tools/list`.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ToolsListResult is the payload returned by `tools/list`.
type ToolsListResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// ToolsCallParams is the payload of the `tools/call` method.
type ToolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolsCallResult wraps a handler's return value: both
// a text-content form and a structured-content form are always present so
// either kind of client can consume it.
type ToolsCallResult struct {
	Content           []ContentBlock `json:"content"`
	StructuredContent StructuredWrap `json:"structuredContent"`
}

// ContentBlock is one element of ToolsCallResult.Content.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// StructuredWrap wraps a tool's raw return value.
type StructuredWrap struct {
	Result any `json:"result"`
}

// WrapToolResult builds the dual text/structured envelope for a handler's
// return value.
func WrapToolResult(value any) (ToolsCallResult, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return ToolsCallResult{}, err
	}
	return ToolsCallResult{
		Content:           []ContentBlock{{Type: "text", Text: string(raw)}},
		StructuredContent: StructuredWrap{Result: value},
	}, nil
}
