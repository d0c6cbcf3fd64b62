package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newVocabCmd(g *globalFlags) *cobra.Command {
	var vf vocabFlags
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Count tokens and write the frequency-sorted vocabulary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			cfg := g.cfg
			vf.apply(cmd.Flags(), cfg)
			if err := cfg.ValidateVocab(); err != nil {
				return err
			}

			ctx, s, err := openSession(cmd.Context(), cfg, "vocab", "", stageVocab)
			if err != nil {
				return err
			}
			defer func() { s.close(err) }()

			return s.stage(ctx, stageVocab, func(ctx context.Context) (stageOutcome, error) {
				return buildVocab(ctx, cfg, s.metrics)
			})
		},
	}
	vf.register(cmd.Flags())
	return cmd
}
