package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/koustreak/rowmodel/internal/catalog"
	"github.com/koustreak/rowmodel/internal/check"
	"github.com/koustreak/rowmodel/internal/config"
	"github.com/koustreak/rowmodel/internal/errs"
	"github.com/koustreak/rowmodel/internal/orm"
	"github.com/koustreak/rowmodel/internal/server"
	"github.com/koustreak/rowmodel/internal/source"
	"github.com/koustreak/rowmodel/internal/validation"
)

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema [model...]",
		Short: "Print the JSON Schema of models (all models when none are named)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.catalog(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = c.Names()
			}

			out := cmd.OutOrStdout()
			for _, name := range args {
				schema, err := c.Get(name)
				if err != nil {
					return err
				}
				doc, err := schema.JSONSchema()
				if err != nil {
					return err
				}
				if err := writeIndented(out, doc); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newFieldsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fields <model>",
		Short: "List the fields derived for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.catalog(cmd.Context())
			if err != nil {
				return err
			}
			schema, err := c.Get(args[0])
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FIELD\tALIAS\tTYPE\tREQUIRED\tDEFAULT")
			for _, f := range schema.Fields() {
				def := "-"
				if !f.Required {
					def = formatDefault(f.Default)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", f.Name, schema.Alias(f.Name), f.Type, f.Required, def)
			}
			return tw.Flush()
		},
	}
}

func formatDefault(v any) string {
	if v == nil {
		return "null"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func newValidateCmd(a *app) *cobra.Command {
	var byAlias, excludeNone bool

	cmd := &cobra.Command{
		Use:   "validate <model> [file]",
		Short: "Validate a JSON document against a model and print the result",
		Long: `Validate reads a JSON object from file, or from stdin when no file or "-"
is given, validates it against the model's schema and prints the validated
values. Every validation problem is reported and the command exits non-zero.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.catalog(cmd.Context())
			if err != nil {
				return err
			}
			schema, err := c.Get(args[0])
			if err != nil {
				return err
			}

			var data []byte
			if len(args) == 2 && args[1] != "-" {
				data, err = os.ReadFile(args[1])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return errs.Wrap(errs.ErrKindInvalidInput, "reading input", err)
			}

			inst, err := schema.ValidateJSON(data)
			if err != nil {
				return err
			}

			var opts []validation.DumpOption
			if byAlias {
				opts = append(opts, validation.ByAlias())
			}
			if excludeNone {
				opts = append(opts, validation.ExcludeNone())
			}
			doc, err := inst.DumpJSON(opts...)
			if err != nil {
				return err
			}
			return writeIndented(cmd.OutOrStdout(), doc)
		},
	}

	cmd.Flags().BoolVar(&byAlias, "by-alias", false, "Key the output by field alias")
	cmd.Flags().BoolVar(&excludeNone, "exclude-none", false, "Leave null fields out of the output")
	return cmd
}

func newCheckCmd(a *app) *cobra.Command {
	var opts check.Options

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Sample rows from the configured database and validate them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			src := a.cfg.Source
			if src.Kind != config.SourcePostgres && src.Kind != config.SourceMySQL {
				return errs.Newf(errs.ErrKindInvalidInput, "check needs a postgres or mysql source, got %q", src.Kind)
			}

			ctx := cmd.Context()
			db, err := source.OpenDB(ctx, src.Database())
			if err != nil {
				return err
			}
			defer db.Close()

			base, err := orm.Reflect(ctx, db, orm.ReflectOptions{Tables: src.Tables, ModelNames: src.ModelNames})
			if err != nil {
				return err
			}
			vc, err := a.cfg.ValidationConfig()
			if err != nil {
				return err
			}
			c, err := catalog.Build(base, vc, a.cfg.Derive.Exclude)
			if err != nil {
				return err
			}

			reports, err := check.Run(ctx, db, c, opts)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(reports); err != nil {
				return err
			}

			failed := 0
			for _, r := range reports {
				failed += r.Rows - r.Valid
			}
			if failed > 0 {
				return errs.Newf(errs.ErrKindInvalidInput, "%d sampled rows failed validation", failed)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", check.DefaultLimit, "Rows to sample per table")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Rows to skip per table before sampling")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve derived schemas and validation over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := a.catalog(ctx)
			if err != nil {
				return err
			}

			cfg := a.cfg.Server
			if addr != "" {
				cfg.Addr = addr
			}
			return server.New(c, a.log).ListenAndServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overriding server.addr")
	return cmd
}

func writeIndented(w io.Writer, doc []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, doc, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
