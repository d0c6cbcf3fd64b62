package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	var (
		vf vocabFlags
		cf cooccurFlags
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the vocabulary, then count cooccurrences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			cfg := g.cfg
			vf.apply(cmd.Flags(), cfg)
			if err := cf.apply(cmd.Flags(), cfg); err != nil {
				return err
			}
			if err := cfg.ValidateRun(); err != nil {
				return err
			}

			ctx, s, err := openSession(cmd.Context(), cfg, "run", cfg.Cooccur.OutputDir, stageVocab, stageCooccur)
			if err != nil {
				return err
			}
			defer func() { s.close(err) }()

			err = s.stage(ctx, stageVocab, func(ctx context.Context) (stageOutcome, error) {
				return buildVocab(ctx, cfg, s.metrics)
			})
			if err != nil {
				return err
			}
			return s.stage(ctx, stageCooccur, func(ctx context.Context) (stageOutcome, error) {
				return countCooccurrences(ctx, cfg, s.metrics)
			})
		},
	}
	vf.register(cmd.Flags())
	cf.register(cmd.Flags())
	return cmd
}
