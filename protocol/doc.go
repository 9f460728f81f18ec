// Package protocol defines the slunk JSON-RPC 2.0 message types, error
// codes, and the line-delimited codec used on the wire.
//
// This package provides the low-level protocol structures used by slunk-mcp.
// Most users should use the higher-level slunk package instead.
//
// # Wire Format
//
// Every protocol message occupies exactly one newline-terminated line of
// UTF-8 JSON. The request stream carries Request objects, the response
// stream carries Response objects. The response stream may also carry
// non-JSON diagnostic text; Decoder skips such lines rather than failing.
//
// # Request and Response Types
//
//	type Request struct {
//	    JSONRPC string          `json:"jsonrpc"`
//	    ID      json.RawMessage `json:"id,omitempty"`
//	    Method  string          `json:"method"`
//	    Params  json.RawMessage `json:"params,omitempty"`
//	}
//
//	type Response struct {
//	    JSONRPC string          `json:"jsonrpc"`
//	    ID      json.RawMessage `json:"id,omitempty"`
//	    Result  any             `json:"result,omitempty"`
//	    Error   *Error          `json:"error,omitempty"`
//	}
//
// Exactly one of Result and Error is set on a well-formed response, and the
// ID always echoes the request that produced it.
//
// # Error Codes
//
// Standard JSON-RPC 2.0 error codes are defined as constants:
//
//	CodeParseError     = -32700  // Invalid JSON
//	CodeInvalidRequest = -32600  // Invalid Request object
//	CodeMethodNotFound = -32601  // Method not found
//	CodeInvalidParams  = -32602  // Invalid method parameters
//	CodeInternalError  = -32603  // Internal server error
//
// Protocol-specific codes cover tool dispatch and the handshake:
//
//	CodeToolNotFound   = -32001  // tools/call named an unregistered tool
//	CodeNotInitialized = -32002  // method used before the initialize handshake
//	CodeRateLimited    = -32003  // request rejected by rate limiting
//
// Helper functions create properly formatted errors:
//
//	err := protocol.NewToolNotFound("tool not found: frobnicate")
//	err := protocol.NewInvalidParams("missing required field: query")
//
// # Method Constants
//
// The method names understood by the server:
//
//	MethodInitialize  = "initialize"
//	MethodInitialized = "notifications/initialized"
//	MethodToolsList   = "tools/list"
//	MethodToolsCall   = "tools/call"
//	MethodPing        = "ping"
package protocol
