// Command hpca builds the vocabulary and the target/context cooccurrence
// matrix consumed by the HPCA word-embedding decomposition.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/pkg/logger"
)

type globalFlags struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "hpca: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "hpca",
		Short:         "Vocabulary and cooccurrence construction for HPCA embeddings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			if g.logLevel != "" {
				cfg.Logging.Level = g.logLevel
			}
			logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
			g.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		newVocabCmd(g),
		newCooccurCmd(g),
		newRunCmd(g),
		newStatsCmd(g),
		newInspectCmd(g),
	)
	return root
}
