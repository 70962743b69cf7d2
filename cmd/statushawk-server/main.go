package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ResistanceIsUseless/StatusHawk/internal/config"
	"github.com/ResistanceIsUseless/StatusHawk/internal/logging"
	"github.com/ResistanceIsUseless/StatusHawk/pkg/server"
)

var version = "dev"

func main() {
	addr := flag.String("addr", ":8888", "API/WebSocket listen address")
	configFile := flag.String("config", "config.yaml", "Path to config file")
	watch := flag.Bool("watch", false, "Reload configuration on file change")
	logFormat := flag.String("log-format", "text", "Log format (text, json)")
	verbose := flag.Bool("v", false, "Enable verbose (debug) logging")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("statushawk-server %s\n", version)
		return
	}

	logLevel := logging.LevelInfo
	if *verbose {
		logLevel = logging.LevelDebug
	}
	logger := logging.NewLogger(logging.Config{Level: logLevel, Format: *logFormat, Output: os.Stdout})

	cfg, validation, err := config.ValidateAndLoad(*configFile)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	for _, warning := range validation.Warnings {
		logger.Warn("Configuration warning", "warning", warning)
	}
	if !validation.Valid {
		for _, validationErr := range validation.Errors {
			logger.Error("Configuration error", "error", validationErr.Error())
		}
		os.Exit(1)
	}
	logger.ConfigLoaded(*configFile)

	service := server.NewService(cfg, logger)

	if *watch {
		watcherConfig := config.DefaultWatcherConfig()
		watcherConfig.OnReload = func(newConfig *config.Config, result *config.ValidationResult) {
			for _, warning := range result.Warnings {
				logger.Warn("Configuration warning", "warning", warning)
			}
			service.UpdateConfig(newConfig)
		}
		watcherConfig.OnError = func(err error) {
			logger.Error("Configuration reload failed", "error", err)
		}

		watcher, err := config.NewWatcher(*configFile, watcherConfig)
		if err != nil {
			logger.Error("Failed to start config watcher", "error", err)
			os.Exit(1)
		}
		defer watcher.Stop()
		logger.Info("Watching configuration for changes", "file", *configFile)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- service.Start(*addr)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	case <-sigChan:
		logger.ShutdownReceived()
		if err := service.Stop(); err != nil {
			logger.Error("Shutdown failed", "error", err)
			os.Exit(1)
		}
		logger.ShutdownComplete()
	}
}
