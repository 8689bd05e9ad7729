// EmberDB - An in-memory Redis-compatible key-value server
//
// Usage:
//
//	emberdb [flags]
//
// Flags:
//
//	-config string     Path to YAML config file (default: none)
//	-addr string       Server address (overrides config)
//	-loglevel string   Log level: debug, info, warn, error (overrides config)
//	-maxclients int    Maximum number of clients (overrides config)
//	-timeout int       Client timeout in seconds (overrides config)
//	-webaddr string    Monitoring API address (default ":8080")
//	-noweb             Disable the monitoring API
//	-version           Show version and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/emberdb/emberdb/internal/config"
	"github.com/emberdb/emberdb/internal/logging"
	"github.com/emberdb/emberdb/internal/server"
	"github.com/emberdb/emberdb/internal/store"
	"github.com/emberdb/emberdb/internal/version"
	"github.com/emberdb/emberdb/internal/web"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", "", "Server address")
	logLevel := flag.String("loglevel", "", "Log level: debug, info, warn, error")
	maxClients := flag.Int("maxclients", -1, "Maximum number of clients")
	timeout := flag.Int("timeout", -1, "Client timeout in seconds (0 = no timeout)")
	webAddr := flag.String("webaddr", ":8080", "Monitoring API address")
	noWeb := flag.Bool("noweb", false, "Disable the monitoring API")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("EmberDB v%s (built %s)\n", version.Version, version.BuildTime)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flags beat both file and environment.
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *maxClients >= 0 {
		cfg.MaxClients = *maxClients
	}
	if *timeout >= 0 {
		cfg.Timeout = time.Duration(*timeout) * time.Second
	}

	log, err := logging.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// ASCII art banner
	fmt.Println(`
  _____           _               ____  ____
 | ____|_ __ ___ | |__   ___ _ __|  _ \| __ )
 |  _| | '_ ' _ \| '_ \ / _ \ '__| | | |  _ \
 | |___| | | | | | |_) |  __/ |  | |_| | |_) |
 |_____|_| |_| |_|_.__/ \___|_|  |____/|____/
                                             `)
	log.Info("EmberDB starting",
		zap.String("version", version.Version),
		zap.String("addr", cfg.Addr),
		zap.Int("max_clients", cfg.MaxClients))

	db := store.New()
	defer db.Close()

	srv := server.NewWithConfig(cfg.Addr, db, log, server.Config{
		MaxClients:  cfg.MaxClients,
		Timeout:     cfg.Timeout,
		HotKeyLimit: cfg.HotKeyLimit,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", zap.Stringer("signal", sig))
		cancel()
	}()

	if !*noWeb {
		log.Info("monitoring API listening", zap.String("addr", *webAddr))
		webSrv := web.New(*webAddr, db, srv)
		go func() {
			if err := webSrv.Start(ctx); err != nil {
				log.Error("web server error", zap.Error(err))
			}
		}()
	}

	if err := srv.Start(ctx); err != nil {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("EmberDB shutdown complete")
}
