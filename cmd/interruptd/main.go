// cmd/interruptd/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/colebrumley/interruptd/internal/daemon"
	"github.com/colebrumley/interruptd/internal/mcp"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "mcp-server" {
		runMCPServer()
		return
	}

	runDaemon()
}

func stateDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error getting home directory: %v\n", err)
		os.Exit(1)
	}
	return filepath.Join(homeDir, ".interruptd")
}

func runMCPServer() {
	dbPath := os.Getenv("INTERRUPTD_STATE_DB")
	if dbPath == "" {
		dbPath = filepath.Join(stateDir(), "triggers.db")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	server, err := mcp.NewServer(dbPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating MCP server: %v\n", err)
		os.Exit(1)
	}
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := server.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func runDaemon() {
	configPath := os.Getenv("INTERRUPTD_CONFIG")
	if configPath == "" {
		configPath = filepath.Join(stateDir(), "config.yaml")
	}

	triggersDir := os.Getenv("INTERRUPTD_TRIGGERS_DIR")
	if triggersDir == "" {
		triggersDir = filepath.Join(stateDir(), "triggers")
	}

	d := daemon.New(configPath, triggersDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nReceived shutdown signal")
		cancel()
	}()

	if err := d.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "daemon error: %v\n", err)
		os.Exit(1)
	}
}
