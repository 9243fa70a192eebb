package server

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"webscope/pkg/config"
	"webscope/pkg/logger"
)

// shutdownTimeout bounds graceful shutdown
const shutdownTimeout = 30 * time.Second

// Main is the server entrypoint.
func Main() {
	// Handle subcommands: start|stop|restart|status (default: start)
	command := "start"
	if len(os.Args) > 1 {
		first := os.Args[1]
		if first == "start" || first == "stop" || first == "restart" || first == "status" {
			command = first
			// Remove subcommand from args before flag parsing
			os.Args = append([]string{os.Args[0]}, os.Args[2:]...)
		}
	}

	instanceMgr := NewInstanceManager()

	switch command {
	case "status":
		if running, pid := instanceMgr.IsRunning(); running {
			fmt.Printf("Server running (PID %d)\n", pid)
		} else {
			fmt.Println("Server not running")
		}
		return
	case "stop":
		if err := instanceMgr.Kill(); err != nil {
			fmt.Printf("Stop failed: %v\n", err)
		} else {
			fmt.Println("Server stopped")
		}
		return
	case "restart":
		_ = instanceMgr.Kill() // Ignore error; may not be running
		fmt.Println("Restarting server...")
	case "start":
		if running, pid := instanceMgr.IsRunning(); running {
			fmt.Printf("Server already running (PID %d)\n", pid)
			return
		}
	}

	// Parse command line flags
	addr := flag.String("addr", "", "Listen address (overrides config)")
	configPath := flag.String("config", "", "Config file path (optional)")
	staticDir := flag.String("static", "", "Static assets directory (overrides config)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "", "Log format: text or json")
	flag.Parse()

	// Load configuration (from file or defaults)
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		return
	}

	// Override config with command-line flags if provided
	if *addr != "" {
		cfg.Address = *addr
	}
	if *staticDir != "" {
		cfg.StaticDir = *staticDir
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Logging.Format = *logFormat
	}

	// Initialize structured logger
	logger.Init(logger.LogLevel(cfg.Logging.Level), cfg.Logging.Format)
	log := logger.Get()

	log.InfoWith("server starting", "config", cfg.String())

	srv, err := NewServer(cfg)
	if err != nil {
		log.ErrorWithErr("failed to create server", err)
		return
	}

	// Write PID file for instance management
	if err := instanceMgr.WritePID(); err != nil {
		log.WarnWith("failed to write PID file", "error", err)
	}
	defer instanceMgr.RemovePID()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	// Start server in a goroutine
	errorChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorChan <- err
		}
	}()

	log.InfoWith("server is running", "address", cfg.Address)

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		log.InfoWith("received signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.ErrorWithErr("error during shutdown", err)
		}
		log.InfoWith("server stopped")

	case err := <-errorChan:
		log.ErrorWithErr("server encountered fatal error", err)
	}
}
