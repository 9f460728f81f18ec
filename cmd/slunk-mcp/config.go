package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

const (
	serverName    = "slunk"
	serverVersion = "1.0.0"
)

// Config carries the binary's runtime settings. Everything is taken from
// the environment: drivers pass MCP_MODE=1, operators tune the SLUNK_*
// variables.
type Config struct {
	InstanceID       string
	MCPMode          bool
	LogLevel         string
	LenientHandshake bool
	RequestTimeout   time.Duration
	WebSocketAddr    string
}

// LoadConfig reads configuration from the environment.
func LoadConfig() *Config {
	v := viper.New()
	v.SetEnvPrefix("SLUNK")
	v.AutomaticEnv()

	v.SetDefault("log_level", "info")
	v.SetDefault("lenient_handshake", false)
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("ws_addr", "")

	// MCP_MODE is the unprefixed switch drivers historically set.
	_ = v.BindEnv("mcp_mode", "MCP_MODE")

	return &Config{
		InstanceID:       uuid.NewString(),
		MCPMode:          v.GetBool("mcp_mode"),
		LogLevel:         v.GetString("log_level"),
		LenientHandshake: v.GetBool("lenient_handshake"),
		RequestTimeout:   v.GetDuration("request_timeout"),
		WebSocketAddr:    v.GetString("ws_addr"),
	}
}
