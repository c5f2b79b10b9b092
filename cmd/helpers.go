package cmd

import (
	"fmt"

	"github.com/flowcanvas/flowcanvas/internal/config"
	"github.com/flowcanvas/flowcanvas/internal/sync"
)

// apiClient loads the config and returns a client for the configured
// server.
func apiClient() (*sync.Client, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return sync.NewClient(cfg.ServerURL), nil
}
