package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formadvisor/pkg/render"
	"github.com/goliatone/go-formadvisor/pkg/renderers/html"
	"github.com/goliatone/go-formadvisor/pkg/renderers/tui"
	"github.com/goliatone/go-formadvisor/pkg/schema"
	"github.com/goliatone/go-formadvisor/pkg/submission"
	"github.com/goliatone/go-formadvisor/pkg/validation"
)

// errReported makes the process exit non-zero once the failure has already
// been printed.
var errReported = errors.New("failure reported")

type rootFlags struct {
	envFile     string
	operation   string
	metrics     bool
	asJSON      bool
	maxAttempts int
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	flags := &rootFlags{}
	var a *app

	root := &cobra.Command{
		Use:           "formadvisor",
		Short:         "Validate schema-driven forms with structural and advisory checks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags.envFile)
			if err != nil {
				return err
			}
			a, err = newApp(cfg, out, errOut)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if flags.metrics && a != nil {
				return a.writeMetrics(errOut)
			}
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file with FORMADVISOR_* settings")
	pf.StringVar(&flags.operation, "operation", "", "operation id when the source is an OpenAPI document")
	pf.BoolVar(&flags.metrics, "metrics", false, "print Prometheus metrics to stderr on exit")

	current := func() *app { return a }
	root.AddCommand(
		newValidateCmd(current, flags),
		newCheckCmd(current, flags),
		newFillCmd(current, flags),
		newRenderCmd(current, flags),
		newJSONSchemaCmd(current),
		newWatchCmd(current),
	)
	return root
}

func newValidateCmd(app func() *app, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <schema>",
		Short: "Compile a schema and report every defect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			req, err := a.request(args[0], flags.operation)
			if err != nil {
				return err
			}
			v, err := a.service.Validator(cmd.Context(), req)
			if err != nil {
				schemaErr, ok := validation.AsSchemaError(err)
				if !ok {
					return err
				}
				for _, issue := range schemaErr.Issues {
					fmt.Fprintf(a.out, "✗ %s\n", issue.Error())
				}
				return errReported
			}
			s := v.Schema()
			fmt.Fprintf(a.out, "✓ %s: %d fields, fingerprint %s\n", s.ID, len(s.Fields), v.Fingerprint()[:12])
			return nil
		},
	}
}

func newCheckCmd(app func() *app, flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <schema> [field=value ...]",
		Short: "Run structural and advisory checks and decide whether the values would be accepted",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			req, err := a.request(args[0], flags.operation)
			if err != nil {
				return err
			}
			v, err := a.service.Validator(cmd.Context(), req)
			if err != nil {
				return err
			}
			values, err := parseAssignments(v, args[1:])
			if err != nil {
				return err
			}

			result, err := a.submitter(v, nil).Submit(cmd.Context(), values)
			if err != nil {
				return err
			}
			if flags.asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else {
				printResult(a.out, v, values, result)
			}
			if !result.Accepted {
				return errReported
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "print the submission result as JSON")
	return cmd
}

func newFillCmd(app func() *app, flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fill <schema>",
		Short: "Fill a form interactively in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			req, err := a.request(args[0], flags.operation)
			if err != nil {
				return err
			}
			s, err := a.service.Session(cmd.Context(), req)
			if err != nil {
				return err
			}
			defer s.Close()

			maxAttempts := flags.maxAttempts
			if maxAttempts <= 0 {
				maxAttempts = a.cfg.MaxAttempts
			}
			renderer := tui.New(
				tui.WithOutput(a.out),
				tui.WithLogger(a.logger),
				tui.WithMaxAttempts(maxAttempts),
			)
			if err := renderer.Fill(cmd.Context(), s); err != nil {
				return err
			}

			values := s.Values()
			result, err := a.submitter(s.Validator(), nil).Submit(cmd.Context(), values)
			if err != nil {
				return err
			}
			printDecision(a.out, s.Validator(), result)
			if !result.Accepted {
				return errReported
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&flags.maxAttempts, "max-attempts", 0, "re-prompts per field before giving up (default from FORMADVISOR_MAX_ATTEMPTS)")
	return cmd
}

func newRenderCmd(app func() *app, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "render <schema> [field=value ...]",
		Short: "Render the form as HTML, optionally prefilled",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			req, err := a.request(args[0], flags.operation)
			if err != nil {
				return err
			}
			s, err := a.service.Session(cmd.Context(), req)
			if err != nil {
				return err
			}
			defer s.Close()

			values, err := parseAssignments(s.Validator(), args[1:])
			if err != nil {
				return err
			}
			for _, id := range s.Validator().Schema().FieldIDs() {
				if value, ok := values[id]; ok {
					if _, err := s.Set(id, value); err != nil {
						return err
					}
				}
			}
			if err := s.Flush(); err != nil {
				return err
			}
			if err := s.Wait(cmd.Context()); err != nil {
				return err
			}

			toolkit, err := html.New()
			if err != nil {
				return err
			}
			page, err := toolkit.RenderSession(cmd.Context(), s)
			if err != nil {
				return err
			}
			_, err = a.out.Write(page)
			return err
		},
	}
}

func newJSONSchemaCmd(app func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "jsonschema",
		Short: "Print the JSON Schema of the form schema document format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := schema.DocumentJSONSchemaBytes()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(app().out, string(data))
			return err
		},
	}
}

func newWatchCmd(app func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <schema>",
		Short: "Recompile a schema file whenever it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			watcher, err := schema.NewWatcher(args[0], func(s schema.FormSchema, err error) {
				if err != nil {
					a.logger.Error("schema reload failed", "path", args[0], "error", err)
					return
				}
				v, err := validation.Compile(s)
				if err != nil {
					a.logger.Error("schema compile failed", "schema", s.ID, "error", err)
					return
				}
				a.logger.Info("schema compiled",
					"schema", s.ID,
					"fields", len(s.Fields),
					"fingerprint", v.Fingerprint(),
				)
			})
			if err != nil {
				return err
			}
			return watcher.Run(ctx)
		},
	}
}

func printResult(w io.Writer, v *validation.Validator, values map[string]any, result submission.Result) {
	report := v.CheckAll(values)
	for _, field := range v.Fields() {
		outcome := report.Outcomes[field.ID]
		if outcome.Valid {
			fmt.Fprintf(w, "✓ %s\n", field.DisplayLabel())
		} else {
			fmt.Fprintf(w, "✗ %s: %s\n", field.DisplayLabel(), outcome.Message)
		}
		for _, f := range result.Advisories[field.ID] {
			fmt.Fprintf(w, "    [%s] %s (%.0f%%)\n", f.Severity, f.Message, f.Confidence*100)
		}
	}
	printDecision(w, v, result)
}

func printDecision(w io.Writer, v *validation.Validator, result submission.Result) {
	if result.Accepted {
		fmt.Fprintln(w, "accepted")
		return
	}
	mapping := render.MapResult(v.Schema().FieldIDs(), result)
	fmt.Fprintf(w, "rejected: %s\n", strings.Join(result.BlockingErrors, ", "))
	for _, id := range result.BlockingErrors {
		for _, message := range mapping.Fields[id] {
			fmt.Fprintf(w, "  %s: %s\n", id, message)
		}
	}
	for _, message := range mapping.Form {
		fmt.Fprintf(w, "  %s\n", message)
	}
}

func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	root := newRootCmd(out, errOut)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
		return 1
	}
	return 0
}
