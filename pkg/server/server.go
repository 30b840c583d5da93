package server

import (
	"log/slog"

	internalserver "github.com/SmitUplenchwar2687/Spigot/internal/server"
	"github.com/SmitUplenchwar2687/Spigot/pkg/clock"
	"github.com/SmitUplenchwar2687/Spigot/pkg/limiter"
)

// Server is the Spigot HTTP server.
type Server = internalserver.Server

// Options configures optional server features.
type Options = internalserver.Options

// Hub manages WebSocket clients and broadcasts decision events.
type Hub = internalserver.Hub

// New creates a new Spigot server.
func New(addr string, lim limiter.Limiter, clk clock.Clock, opts ...Options) *Server {
	return internalserver.New(addr, lim, clk, opts...)
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *slog.Logger) *Hub {
	return internalserver.NewHub(logger)
}
