// Package transport provides slunk protocol transport implementations.
//
// Two transports are available:
//
//   - Stdio: the primary transport. One JSON object per newline-terminated
//     line on stdin/stdout, serial request-at-a-time processing, diagnostics
//     on stderr. This is the mode drivers select with --mcp or MCP_MODE=1.
//   - WebSocket: the same one-object-per-message framing over a WebSocket
//     connection, for network drivers.
//
// Both transports deliver requests to a Handler and write exactly one
// response per request; notifications receive no response.
package transport
