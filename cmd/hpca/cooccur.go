package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newCooccurCmd(g *globalFlags) *cobra.Command {
	var (
		vf vocabFlags
		cf cooccurFlags
	)
	cmd := &cobra.Command{
		Use:   "cooccur",
		Short: "Count target/context cooccurrences against an existing vocabulary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			cfg := g.cfg
			vf.apply(cmd.Flags(), cfg)
			if err := cf.apply(cmd.Flags(), cfg); err != nil {
				return err
			}
			if err := cfg.ValidateCooccur(); err != nil {
				return err
			}

			ctx, s, err := openSession(cmd.Context(), cfg, "cooccur", cfg.Cooccur.OutputDir, stageCooccur)
			if err != nil {
				return err
			}
			defer func() { s.close(err) }()

			return s.stage(ctx, stageCooccur, func(ctx context.Context) (stageOutcome, error) {
				return countCooccurrences(ctx, cfg, s.metrics)
			})
		},
	}
	vf.register(cmd.Flags())
	cf.register(cmd.Flags())
	return cmd
}
