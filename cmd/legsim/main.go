package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/legsim/legsim/internal/config"
	"github.com/legsim/legsim/internal/server"
	"github.com/legsim/legsim/internal/simulator"
)

func main() {
	configPath := flag.String("config", "configs/default.yaml", "Path to the configuration file")
	verbose := flag.Bool("v", false, "Enable verbose output")
	addr := flag.String("addr", "", "Listen address, overriding the config file")
	programPath := flag.String("program", "", "Program to flash at startup, overriding the config file")
	flag.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags)
	if *verbose {
		logger.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	}

	logger.Println("LEG Pipeline Simulator")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *programPath != "" {
		cfg.ProgramPath = *programPath
	}

	fmt.Println("\nConfiguration Summary:")
	fmt.Printf("	Listen Address: %s\n", cfg.ListenAddr)
	fmt.Printf("	Startup Program: %s\n", cfg.ProgramPath)

	fmt.Println("\nMemory Hierarchy:")
	fmt.Printf("	RAM: %d lines, %d words/line, %d bytes/word, %d cycle latency\n",
		cfg.RAMLines, cfg.RAMBlockSize, cfg.RAMWordSize, cfg.RAMLatency)
	fmt.Printf("	L1 Cache: %d lines, %d-way, %d cycle latency\n",
		cfg.CacheLines, cfg.CacheAssociativity, cfg.CacheLatency)

	sim, err := simulator.New(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize simulator: %v", err)
	}

	srv := server.New(sim, logger)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Printf("Listening on %s...", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	<-sigChan
	logger.Println("Received termination signal. Shutting down...")
	if err := httpServer.Close(); err != nil {
		logger.Printf("Error during shutdown: %v", err)
	}
	logger.Println("Simulation terminated successfully")
}
