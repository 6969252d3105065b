package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-risk/internal/cache"
	"github.com/yungbote/neurobridge-risk/internal/ingest"
	"github.com/yungbote/neurobridge-risk/internal/platform/logger"
	"github.com/yungbote/neurobridge-risk/internal/riskd/app"
	"github.com/yungbote/neurobridge-risk/internal/riskd/config"
	"github.com/yungbote/neurobridge-risk/internal/scoring"
	"github.com/yungbote/neurobridge-risk/internal/snapshot"
)

type globalOptions struct {
	configPath string
	data       []string
	bundle     string
	asJSON     bool
	verbose    bool
}

func rootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "riskctl",
		Short: "Score student failure risk from the command line",
		Long: `riskctl loads grade exports and a model bundle the same way riskd does,
then answers one question and exits. Sources come from --config, RISK_DATA_PATHS
or repeated --data flags.`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Config file path (JSON or YAML)")
	pf.StringArrayVar(&opts.data, "data", nil, "Grade export (csv, csv.zst, xlsx); repeatable, replaces configured sources")
	pf.StringVar(&opts.bundle, "bundle", "", "Model bundle path; overrides the configured one")
	pf.BoolVar(&opts.asJSON, "json", false, "Print JSON instead of a table")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Log loading progress to stderr")

	cmd.AddCommand(
		scoreCmd(opts),
		featuresCmd(opts),
		similarCmd(opts),
		forecastCmd(opts),
		bundleCmd(opts),
		versionCmd(),
	)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "riskctl version %s\n", app.Version)
		},
	}
}

func (o *globalOptions) loadConfig() (*config.Config, error) {
	return config.Load(o.configPath, func(c *config.Config) {
		if len(o.data) > 0 {
			c.Data.Sources = make([]ingest.Source, 0, len(o.data))
			for _, p := range o.data {
				c.Data.Sources = append(c.Data.Sources, ingest.FileSource(p))
			}
		}
		if b := strings.TrimSpace(o.bundle); b != "" {
			c.Model.BundlePath = b
		}
		// One-shot runs gain nothing from a cache.
		c.Cache.Mode = cache.KindNone
		c.Data.Watch = false
	})
}

func (o *globalOptions) logger() *logger.Logger {
	if !o.verbose {
		return logger.Nop()
	}
	log, err := logger.New("development")
	if err != nil {
		return logger.Nop()
	}
	return log
}

// engine loads one snapshot and returns an engine over it.
func (o *globalOptions) engine(ctx context.Context) (*scoring.Engine, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	log := o.logger()
	store := snapshot.NewStore()
	loader := snapshot.NewLoader(log, cfg.SnapshotConfig(), store, nil)
	s, err := loader.Reload(ctx)
	if err != nil {
		return nil, err
	}
	if s.ModelErr != nil {
		log.Warn("model bundle unavailable, scores use the heuristic", "error", s.ModelErr)
	}
	return scoring.New(log, store, cfg.ScoringOptions()), nil
}
