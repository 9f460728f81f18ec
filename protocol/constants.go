package protocol

// Version is the tool-invocation protocol version negotiated during the
// initialize handshake.
const Version = "2024-11-05"

// Method names understood by the server.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
	MethodPing        = "ping"
)

// Notification methods emitted by the server.
const (
	MethodProgress = "notifications/progress"
)
