package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/imagvfx/kickoff"
)

func cmdWorker(args []string) {
	fset := flag.NewFlagSet("worker", flag.ExitOnError)
	server := fset.String("server", defaultServer(), "task server address as HOST[:PORT]")
	have := fset.String("have", "", "resource tags this worker advertises")
	configPath := fset.String("config", "", "optional TOML config file")
	fset.Parse(args)

	var cfg workerConfig
	if *configPath != "" {
		var err error
		cfg, err = loadWorkerConfig(*configPath)
		if err != nil {
			fatal("Failed to load config: %v", err)
		}
	}
	seen := flagsSeen(fset)
	if !seen["server"] && cfg.Server != "" {
		*server = cfg.Server
	}
	tags := parseResourceTags(*have)
	if !seen["have"] && len(cfg.Have) > 0 {
		tags = cfg.Have
	}

	client := dialClient(*server)
	worker := kickoff.NewWorker(client, tags)
	if cfg.HeartbeatIntervalSeconds > 0 {
		worker.HeartbeatInterval = time.Duration(cfg.HeartbeatIntervalSeconds) * time.Second
	}

	// The first interrupt asks the worker to stop taking work and let
	// the running task complete; the second one terminates everything
	// on the spot.
	ctx, cancel := context.WithCancel(context.Background())
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	go func() {
		<-sigc
		color.Yellow("Control-C was detected while the worker is running; shutting down " +
			"gracefully now. Trying Control-C again will immediately terminate the worker " +
			"and the task running within.")
		cancel()
		<-sigc
		color.Red("Control-C was detected again while the worker is running. Terminating immediately!")
		os.Exit(-2)
	}()

	color.Cyan("Starting worker.")
	worker.Run(ctx)
	color.HiGreen("Worker was gracefully shut down!")
}
