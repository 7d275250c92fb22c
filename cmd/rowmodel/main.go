package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/koustreak/rowmodel/internal/catalog"
	"github.com/koustreak/rowmodel/internal/config"
	"github.com/koustreak/rowmodel/internal/logger"
	"github.com/koustreak/rowmodel/internal/source"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs once the root has run.
type app struct {
	configPath string
	envFile    string
	logLevel   string
	models     string

	cfg *config.Config
	log *logger.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "rowmodel",
		Short: "Derive validation schemas from table mappings",
		Long: `rowmodel turns table mappings into validation schemas.

Models come from a YAML declaration file, YAML objects in MinIO, or a live
PostgreSQL or MySQL catalog. Every column becomes a field with the same name;
nullable columns are optional and default to null.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to rowmodel YAML config")
	flags.StringVarP(&a.envFile, "env-file", "e", ".env", "Path to .env file")
	flags.StringVarP(&a.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	flags.StringVarP(&a.models, "models", "m", "", "Read models from this YAML file, overriding the configured source")

	root.AddCommand(
		newSchemaCmd(a),
		newFieldsCmd(a),
		newValidateCmd(a),
		newCheckCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnv(a.envFile); err != nil {
		return err
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.models != "" {
		cfg.Source = config.SourceConfig{Kind: config.SourceFile, Path: a.models}
	}

	a.cfg = cfg
	a.log = logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	logger.SetGlobal(a.log)
	cmd.SetContext(a.log.WithContext(cmd.Context()))
	return nil
}

// catalog loads the configured models and derives their schemas.
func (a *app) catalog(ctx context.Context) (*catalog.Catalog, error) {
	base, err := source.New().Load(ctx, a.cfg.Source)
	if err != nil {
		return nil, err
	}
	vc, err := a.cfg.ValidationConfig()
	if err != nil {
		return nil, err
	}
	return catalog.Build(base, vc, a.cfg.Derive.Exclude)
}
