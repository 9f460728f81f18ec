// Command slunk-mcp runs the slunk tool server. Drivers spawn it with the
// --mcp flag or MCP_MODE=1; the protocol runs on stdin/stdout and every
// diagnostic goes to stderr.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	slunk "github.com/slunk/slunk-mcp"
)

func main() {
	var mcpMode bool

	rootCmd := &cobra.Command{
		Use:   "slunk-mcp",
		Short: "slunk tool server speaking line-delimited JSON-RPC over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig()

			if !mcpMode && !cfg.MCPMode {
				return cmd.Help()
			}

			return run(cmd.Context(), cfg)
		},
	}

	rootCmd.Flags().BoolVar(&mcpMode, "mcp", false, "serve the tool protocol on stdin/stdout")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config) error {
	logger := NewLogger(os.Stderr, cfg.LogLevel)

	srv := slunk.NewServer(slunk.ServerInfo{
		Name:    serverName,
		Version: serverVersion,
		Capabilities: slunk.Capabilities{
			Tools: true,
		},
	})

	store := NewStore()
	SeedStore(store)

	if err := RegisterTools(srv, store); err != nil {
		return fmt.Errorf("register tools: %w", err)
	}

	logger.Info("starting server",
		slunk.LogF("instance_id", cfg.InstanceID),
		slunk.LogF("tools", len(srv.Tools())),
	)

	serveOpts := []slunk.ServeOption{
		slunk.WithMiddleware(slunk.DefaultMiddlewareWithTimeout(logger, cfg.RequestTimeout)...),
	}
	if cfg.LenientHandshake {
		serveOpts = append(serveOpts, slunk.WithLenientHandshake())
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return slunk.ServeStdio(ctx, srv, serveOpts...)
	})

	// Optional network listener for drivers that prefer WebSocket framing.
	if cfg.WebSocketAddr != "" {
		g.Go(func() error {
			logger.Info("websocket listener enabled", slunk.LogF("addr", cfg.WebSocketAddr))
			return slunk.ServeWebSocket(ctx, srv, cfg.WebSocketAddr, nil, serveOpts...)
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}

	logger.Info("server stopped", slunk.LogF("instance_id", cfg.InstanceID))
	return nil
}
