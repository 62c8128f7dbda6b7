package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/polistern/pboted/internal/config"
	"github.com/polistern/pboted/internal/logging"
	"github.com/polistern/pboted/internal/node"
)

func newRunCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "start the pboted node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(configFile)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "f", "pboted.toml",
		"path to the node configuration file (TOML format)")
	return cmd
}

// runNode loads cfgPath and blocks running the node until SIGINT/SIGTERM,
// per spec.md §7's "Configuration error at startup: fatal; process exits
// with non-zero status" — a non-nil return here is that fatal condition.
func runNode(cfgPath string) error {
	cfg, err := config.LoadFile(cfgPath)
	if err != nil {
		return fmt.Errorf("pboted: load config: %w", err)
	}

	logBackend, err := logging.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable)
	if err != nil {
		return fmt.Errorf("pboted: init logging: %w", err)
	}
	log := logBackend.GetLogger("pboted")

	n, err := node.New(cfg, logBackend)
	if err != nil {
		return fmt.Errorf("pboted: init node: %w", err)
	}
	defer func() {
		if err := n.Close(); err != nil {
			log.Warningf("shutdown: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	halt := make(chan os.Signal, 1)
	signal.Notify(halt, os.Interrupt, syscall.SIGTERM)

	rotate := make(chan os.Signal, 1)
	signal.Notify(rotate, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-rotate:
				if err := logBackend.Rotate(); err != nil {
					log.Warningf("rotate log: %v", err)
				}
			}
		}
	}()

	go func() {
		<-halt
		log.Notice("received shutdown signal")
		cancel()
	}()

	log.Notice("pboted starting")
	n.Run(ctx)
	log.Notice("pboted stopped")
	return nil
}
