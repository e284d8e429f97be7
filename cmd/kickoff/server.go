package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/imagvfx/kickoff"
)

func cmdServer(args []string) {
	fset := flag.NewFlagSet("server", flag.ExitOnError)
	port := fset.Int("port", kickoff.DefaultPort, "TCP port to listen on")
	metricsAddr := fset.String("metrics", "", "optional address to serve prometheus metrics on, e.g. :9090")
	configPath := fset.String("config", "", "optional TOML config file")
	fset.Parse(args)

	var cfg serverConfig
	if *configPath != "" {
		var err error
		cfg, err = loadServerConfig(*configPath)
		if err != nil {
			fatal("Failed to load config: %v", err)
		}
	}
	seen := flagsSeen(fset)
	if !seen["port"] && cfg.Port > 0 {
		*port = cfg.Port
	}
	if !seen["metrics"] && cfg.Metrics != "" {
		*metricsAddr = cfg.Metrics
	}
	if *port <= 0 || *port > 65535 {
		fatal("Invalid port number.")
	}

	server := kickoff.NewServer()
	if cfg.CleanupIntervalSeconds > 0 {
		server.CleanupInterval = time.Duration(cfg.CleanupIntervalSeconds) * time.Second
	}
	if cfg.HeartbeatTimeoutSeconds > 0 {
		server.HeartbeatTimeout = time.Duration(cfg.HeartbeatTimeoutSeconds) * time.Second
	}
	if server.HeartbeatTimeout < 3*kickoff.DefaultHeartbeatInterval {
		fatal("Heartbeat timeout %v is too aggressive; workers heartbeat every %v.",
			server.HeartbeatTimeout, kickoff.DefaultHeartbeatInterval)
	}

	if *metricsAddr != "" {
		metrics := kickoff.NewMetrics(server.DB())
		server.Metrics = metrics
		go func() {
			log.Printf("serving metrics on %v", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, metrics.Handler()); err != nil {
				log.Printf("metrics listener: %v", err)
			}
		}()
	}

	if err := server.Listen(fmt.Sprintf(":%d", *port)); err != nil {
		fatal("%v", err)
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	go func() {
		<-sigc
		server.Shutdown()
	}()

	log.Printf("task server listening on port %d", *port)
	if err := server.Serve(); err != nil {
		fatal("Server failed: %v", err)
	}
	color.HiGreen("Server was gracefully shut down!")
}
