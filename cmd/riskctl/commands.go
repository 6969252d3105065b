package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-risk/internal/model"
)

func scoreCmd(opts *globalOptions) *cobra.Command {
	var module string
	cmd := &cobra.Command{
		Use:   "score <student-id>",
		Short: "Estimate a student's failure probability, optionally for a target module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.engine(cmd.Context())
			if err != nil {
				return err
			}
			p, err := e.Score(cmd.Context(), args[0], module)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			return printPrediction(cmd.OutOrStdout(), p)
		},
	}
	cmd.Flags().StringVarP(&module, "module", "m", "", "Target module")
	return cmd
}

func featuresCmd(opts *globalOptions) *cobra.Command {
	var module string
	cmd := &cobra.Command{
		Use:   "features <student-id>",
		Short: "Show the feature vector fed to the model and where each value came from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.engine(cmd.Context())
			if err != nil {
				return err
			}
			r, err := e.AssembleFeatures(cmd.Context(), args[0], module)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), r)
			}
			return printFeatures(cmd.OutOrStdout(), r)
		},
	}
	cmd.Flags().StringVarP(&module, "module", "m", "", "Target module")
	return cmd
}

func similarCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "similar <student-id>",
		Short: "List modules failed by the most similar students",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.engine(cmd.Context())
			if err != nil {
				return err
			}
			mods, err := e.RecommendSimilarRisks(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"student_id": args[0], "modules": mods})
			}
			return printSimilar(cmd.OutOrStdout(), mods)
		},
	}
}

func forecastCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "forecast <student-id>",
		Short: "Score the modules of the student's program not taken yet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.engine(cmd.Context())
			if err != nil {
				return err
			}
			f, err := e.ForecastModules(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), f)
			}
			return printForecast(cmd.OutOrStdout(), f)
		},
	}
}

func bundleCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Model bundle utilities",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "inspect <path>",
		Short: "Validate a model bundle and print its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := model.Load(args[0])
			if err != nil {
				return fmt.Errorf("inspect %s: %w", args[0], err)
			}
			info := m.Info()
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			return printBundle(cmd.OutOrStdout(), info)
		},
	})
	return cmd
}
