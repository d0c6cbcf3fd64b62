package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/cooccur"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/matrix"
	"github.com/Adithya-Monish-Kumar-K/hpca-cooccur/internal/vocab"
)

func newStatsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [vocab-file]",
		Short: "Print type counts by frequency decade for a vocabulary file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.cfg.Vocab.File
			if len(args) == 1 {
				path = args[0]
			}
			entries, err := vocab.ReadFile(path)
			if err != nil {
				return err
			}
			return vocab.Describe(entries).Write(cmd.OutOrStdout())
		},
	}
}

func newInspectCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [cooccurrence-file]",
		Short: "Summarise a cooccurrence file as a sparse matrix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(g.cfg.Cooccur.OutputDir, cooccur.FinalName)
			if len(args) == 1 {
				path = args[0]
			}
			s, err := matrix.Summarize(path)
			if err != nil {
				return err
			}
			return s.Write(cmd.OutOrStdout())
		},
	}
}
