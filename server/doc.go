// Package server provides the core slunk tool server implementation.
//
// This package implements the server-side logic for the slunk protocol:
// the tool registry, argument validation, and the handshake session state.
// Most users should use the higher-level slunk package instead of using
// this package directly.
//
// # Server
//
// The Server type holds the tool registry. The registry is populated at
// startup and immutable afterwards; tools/list returns descriptors in
// registration order, stable for the process lifetime:
//
//	srv := server.New(server.Info{
//	    Name:    "slunk",
//	    Version: "1.0.0",
//	    Capabilities: server.Capabilities{Tools: true},
//	})
//
// # Tools
//
// Tools are registered using the fluent builder API. The input schema is
// generated from the handler's input type and arguments are validated
// against it before the handler runs:
//
//	type SearchInput struct {
//	    Query string `json:"query" jsonschema:"required"`
//	}
//
//	srv.Tool("search_messages").
//	    Description("Search indexed messages").
//	    Handler(func(ctx context.Context, input SearchInput) (string, error) {
//	        return "...", nil
//	    })
//
// # Session
//
// Session tracks the initialize handshake for one connection. The request
// loop is the session's only writer, so no synchronization beyond the
// session's own guard is needed.
package server
