package main

import (
	"flag"

	"github.com/pelletier/go-toml"
)

// serverConfig is the optional TOML config for the server subcommand.
// Flags given on the command line win over config values.
type serverConfig struct {
	Port                    int    `toml:"port"`
	Metrics                 string `toml:"metrics"`
	CleanupIntervalSeconds  int64  `toml:"cleanup_interval_seconds"`
	HeartbeatTimeoutSeconds int64  `toml:"heartbeat_timeout_seconds"`
}

// workerConfig is the optional TOML config for the worker subcommand.
type workerConfig struct {
	Server                   string   `toml:"server"`
	Have                     []string `toml:"have"`
	HeartbeatIntervalSeconds int64    `toml:"heartbeat_interval_seconds"`
}

func loadServerConfig(path string) (serverConfig, error) {
	var cfg serverConfig
	tree, err := toml.LoadFile(path)
	if err != nil {
		return cfg, err
	}
	err = tree.Unmarshal(&cfg)
	return cfg, err
}

func loadWorkerConfig(path string) (workerConfig, error) {
	var cfg workerConfig
	tree, err := toml.LoadFile(path)
	if err != nil {
		return cfg, err
	}
	err = tree.Unmarshal(&cfg)
	return cfg, err
}

// flagsSeen reports which flags were given explicitly, so config file
// values only fill the gaps.
func flagsSeen(fset *flag.FlagSet) map[string]bool {
	seen := make(map[string]bool)
	fset.Visit(func(f *flag.Flag) { seen[f.Name] = true })
	return seen
}
