// Package mcp exposes the discovery service as Model Context Protocol tools.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/urmzd/lanscout/pkg/discovery"
	"github.com/urmzd/lanscout/pkg/schema"
)

// Version is reported to MCP clients during initialization.
const Version = "0.1.0"

const instructions = `lanscout finds devices on the local network. Call discover_devices to run
the discovery methods, then list_devices or get_device to read the cache.
Method ordering and cache lifetime can be tuned with the set_* tools.`

// Server serves lanscout's discovery tools over MCP.
type Server struct {
	mcpServer *server.MCPServer
	service   *discovery.Service
	validator *schema.Validator
}

// NewServer registers the discovery tools against service. Tool arguments
// are checked with validator before they reach a handler.
func NewServer(service *discovery.Service, validator *schema.Validator) *Server {
	s := &Server{service: service, validator: validator}
	s.mcpServer = server.NewMCPServer("lanscout", Version,
		server.WithToolCapabilities(true),
		server.WithInstructions(instructions),
		server.WithRecovery(),
	)
	s.registerTools()
	return s
}

// ServeStdio blocks serving requests on stdin and stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
