// Command node is the turtlecoin-v2 node binary: it parses the CLI
// surface spec.md §6 names, builds the logger and configuration, and
// runs internal/node until an interrupt/terminate signal arrives
// (spec.md §6's CLI surface, §7's "Exit 0 on clean shutdown, 1 on
// startup failure"). The overall startup/shutdown shape is grounded on
// ardanlabs-blockchain's app/services/node/main.go; the flag set is
// cobra+pflag, as SPEC_FULL.md's AMBIENT STACK specifies.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ivantse/turtlecoin-v2/internal/config"
	"github.com/ivantse/turtlecoin-v2/internal/node"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "turtlecoin-node",
		Short: "privacy-preserving proof-of-stake node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}
	opts = config.Flags(root.Flags())
	return root
}

var opts *config.Options

func run(opts *config.Options) error {
	cfg, err := opts.Build()
	if err != nil {
		return err
	}

	log, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	n, err := node.New(cfg, log)
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		return err
	}
	if err := n.Run(); err != nil {
		log.Error("startup failed", zap.Error(err))
		return err
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdown
	log.Info("shutdown requested", zap.String("signal", sig.String()))
	n.Stop()
	log.Info("shutdown complete")
	return nil
}

// buildLogger maps spec.md §6's --log-level (0 silent .. 6 trace) onto
// a zap level, following EveShark-CyberMesh's enforcement-agent
// buildLogger shape (a zap.NewProductionConfig with the level swapped
// in) rather than the teacher's package-level ANSI-color Logger.
func buildLogger(level int) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	switch {
	case level <= 0:
		cfg.Level = zap.NewAtomicLevelAt(zap.FatalLevel + 1)
	case level == 1:
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	case level == 2:
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case level == 3:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}
