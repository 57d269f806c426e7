// Package rpcclient is the server-to-server and monitor-to-server caller
// for the JSON-RPC-over-HTTP+SSE substrate, grounded in
// original_source/alert_monitor.py's MCPClient.
package rpcclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Client calls tools on one peer service, carrying a single session across
// calls ("client issues initialize once, reuses mcp-session-id").
type Client struct {
	baseURL    string
	httpClient *http.Client
	clientName string

	mu        sync.Mutex
	sessionID string
	nextID    int
}

// New builds a Client for baseURL (e.g. "http://localhost:9001/mcp") with
// the given per-call timeout. Quote fetches use ~3s; LLM-backed calls
// use up to 60s; most peer calls fall in between.
func New(baseURL, clientName string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		clientName: clientName,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type responseEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Initialize performs the handshake and stores the returned session_id.
// Safe to call more than once; subsequent calls no-op once a session is
// held.
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.sessionID != "" {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	_, err := c.call(ctx, "initialize", map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": c.clientName, "version": "1.0"},
	})
	return err
}

// CallTool invokes tools/call for name with arguments, unmarshalling the
// handler's structured result into out. A transport failure
// produces a Go error; callers that must match the Python {"error": ...}
// convention should instead inspect the raw map via CallToolRaw.
func (c *Client) CallTool(ctx context.Context, name string, arguments any, out any) error {
	raw, err := c.CallToolRaw(ctx, name, arguments)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// CallToolRaw invokes tools/call and returns the tool's structured result
// as raw JSON (the structuredContent.result field).
func (c *Client) CallToolRaw(ctx context.Context, name string, arguments any) (json.RawMessage, error) {
	if err := c.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("rpcclient: initialize failed: %w", err)
	}
	result, err := c.call(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": arguments,
	})
	if err != nil {
		return nil, err
	}
	var wrapped struct {
		StructuredContent struct {
			Result json.RawMessage `json:"result"`
		} `json:"structuredContent"`
	}
	if err := json.Unmarshal(result, &wrapped); err != nil {
		return nil, fmt.Errorf("rpcclient: malformed tool result: %w", err)
	}
	return wrapped.StructuredContent.Result, nil
}

func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	sessionID := c.sessionID
	c.mu.Unlock()

	body, err := json.Marshal(envelope{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if sessionID != "" {
		req.Header.Set("mcp-session-id", sessionID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpcclient: %s unreachable: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if sid := resp.Header.Get("mcp-session-id"); sid != "" {
		c.mu.Lock()
		c.sessionID = sid
		c.mu.Unlock()
	}

	env, err := parseSSE(resp.Body)
	if err != nil {
		return nil, err
	}
	if env.Error != nil {
		return nil, &RPCError{Code: env.Error.Code, Message: env.Error.Message}
	}
	return env.Result, nil
}

// RPCError surfaces a JSON-RPC-level error from a peer.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("peer rpc error %d: %s", e.Code, e.Message)
}

func parseSSE(body io.Reader) (*responseEnvelope, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			var env responseEnvelope
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &env); err != nil {
				return nil, fmt.Errorf("rpcclient: malformed SSE payload: %w", err)
			}
			return &env, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("rpcclient: no data line in SSE response")
}
