package mcp

import (
	"database/sql"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	alive "github.com/unowned-ai/alive/pkg"
	pkgdb "github.com/unowned-ai/alive/pkg/db"
	"github.com/unowned-ai/alive/pkg/kv"
	"github.com/unowned-ai/alive/pkg/moments"
	"github.com/unowned-ai/alive/pkg/utils"
)

// Options controls how the server opens its database.
type Options struct {
	DBPath       string
	WAL          bool
	Sync         string
	Logger       *zap.Logger
	StoreOptions []moments.Option
}

type AliveMCPServer struct {
	mcpServer *server.MCPServer
	kv        *kv.SQLiteStore
	store     *moments.Store
	DbPath    string
}

// NewAliveMCPServer opens (and if needed migrates) the SQLite database and
// builds an MCP server whose tools operate on the moment store in it.
func NewAliveMCPServer(opts Options) (*AliveMCPServer, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Sync == "" {
		opts.Sync = "FULL"
	}

	dbPath, err := utils.ResolveAndEnsureDBPath(opts.DBPath)
	if err != nil {
		return nil, err
	}

	dbConn, err := pkgdb.OpenDBConnection(dbPath, opts.WAL, opts.Sync)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := pkgdb.UpgradeDB(dbConn, dbPath, pkgdb.TargetSchemaVersion, logger); err != nil {
		dbConn.Close()
		return nil, fmt.Errorf("failed to initialize/upgrade database schema for '%s': %w", dbPath, err)
	}

	backing := kv.NewSQLiteStore(dbConn)
	storeOpts := append([]moments.Option{moments.WithLogger(logger)}, opts.StoreOptions...)

	s := server.NewMCPServer(
		"Alive MCP Server",
		alive.Version,
		server.WithResourceCapabilities(true, true),
		server.WithLogging(),
		server.WithRecovery(),
	)

	return &AliveMCPServer{
		mcpServer: s,
		kv:        backing,
		store:     moments.NewStore(backing, storeOpts...),
		DbPath:    dbPath,
	}, nil
}

// RegisterTools adds every moment tool to the server.
func (s *AliveMCPServer) RegisterTools() {
	RegisterAllTools(s.mcpServer, s.store)
}

// Start runs the stdio event loop. Make sure to register tools beforehand.
func (s *AliveMCPServer) Start() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *AliveMCPServer) DB() *sql.DB {
	return s.kv.DB()
}

func (s *AliveMCPServer) Store() *moments.Store {
	return s.store
}

// MCPRawServer exposes the raw mcp-go server (useful for additional configuration).
func (s *AliveMCPServer) MCPRawServer() *server.MCPServer {
	return s.mcpServer
}

// Close checkpoints the WAL and closes the database.
func (s *AliveMCPServer) Close() error {
	if s.kv == nil {
		return nil
	}
	return s.kv.Close()
}
