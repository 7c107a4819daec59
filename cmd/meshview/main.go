// Package main is the entry point for the MeshView model viewer.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/internal/viewer"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== MeshView ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if len(cfg.Models) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: meshview [flags] <model>...")
		fmt.Fprintln(os.Stderr, "No models given on the command line or in "+config.FileName)
		os.Exit(1)
	}

	// Import on the CPU before the window exists so bad assets fail fast
	models, err := viewer.LoadModels(cfg.Models)
	if err != nil {
		logger.Error("failed to load models", zap.Error(err))
		os.Exit(1)
	}

	v, err := viewer.New(cfg, models)
	if err != nil {
		logger.Error("failed to create viewer", zap.Error(err))
		os.Exit(1)
	}
	defer v.Close()

	if err := v.Run(); err != nil {
		logger.Error("viewer error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("viewer closed normally")
}
