package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/akamensky/argparse"
	"github.com/coreos/go-systemd/daemon"
	"github.com/cyclopcam/leafscan/server"
	"github.com/cyclopcam/leafscan/server/config"
	"github.com/cyclopcam/logs"
)

func main() {
	parser := argparse.NewParser("leafscan", "Leaf disease detection and classification service")
	configFile := parser.String("c", "config", &argparse.Options{Help: "JSON configuration file. If omitted, built-in defaults are used", Default: ""})
	listen := parser.String("l", "listen", &argparse.Options{Help: "HTTP listen address (overrides the config file)", Default: ""})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if *configFile != "" {
		cfg, err = config.LoadConfig(*configFile)
		if err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	backends, err := server.LoadBackends(logger, cfg)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	srv, err := server.NewServer(logger, cfg, backends)
	if err != nil {
		for _, b := range backends {
			b.Close()
		}
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	srv.ListenForKillSignals()

	// Tell systemd that we're alive
	daemon.SdNotify(false, daemon.SdNotifyReady)

	err = srv.ListenHTTP(cfg.Listen)
	if !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("ListenHTTP returned: %v", err)
		srv.Shutdown()
		logger.Close()
		os.Exit(1)
	}
	// Wait for the shutdown that closed the listener to finish
	srv.Shutdown()
	logger.Close()
}
