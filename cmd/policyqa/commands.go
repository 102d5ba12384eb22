package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jask/policyqa/internal/backend"
	"github.com/jask/policyqa/internal/config"
	"github.com/jask/policyqa/internal/document"
	"github.com/jask/policyqa/internal/service"
)

func newUploadCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE.pdf",
		Short: "Upload a policy PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			sel, err := document.Select(args[0])
			if err != nil {
				return err
			}
			if !sel.IsPDF() {
				rt.logger.Warn("upload.not_pdf", "file", sel.Name, "media_type", sel.MediaType)
			}
			if _, err := rt.upload.Upload(cmd.Context(), sel); err != nil {
				return errors.New("upload failed: " + backend.Describe(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "PDF uploaded successfully!")
			return nil
		},
	}
}

func newAskCmd(flags *rootFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ask [QUERY...]",
		Short: "Submit a query and print the decision",
		Long:  "Submit a query and print the decision. With no arguments the query is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = strings.TrimRight(string(raw), "\r\n")
			}
			if text == "" {
				return backend.ErrEmptyQuery
			}

			rt, err := openRuntime(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			ans, err := rt.query.Ask(cmd.Context(), text)
			if err != nil {
				return errors.New("query failed: " + backend.Describe(err))
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(ans.Result)
			}
			printResult(out, ans.Result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw result as JSON")
	return cmd
}

func printResult(w io.Writer, r backend.QueryResult) {
	fmt.Fprintf(w, "Decision: %s\n", r.Decision)
	fmt.Fprintf(w, "%s\n\n", r.Justification)
	fmt.Fprintln(w, "Policy Clauses:")
	for _, c := range r.PolicyClauses {
		fmt.Fprintf(w, "  - %s\n", c)
	}
}

func newHistoryCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the local query history",
	}

	var limit int
	var similar string
	list := &cobra.Command{
		Use:   "list",
		Short: "List past queries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			if similar != "" {
				rows, err := rt.history.Similar(cmd.Context(), similar, limit)
				if err != nil {
					return err
				}
				for _, r := range rows {
					fmt.Fprintf(out, "%3.0f%%  %s  %-12s %s\n", (1-r.Distance)*100, r.Record.CreatedAt.Local().Format("2006-01-02 15:04"), r.Record.Decision, r.Record.Title())
				}
				return nil
			}
			recs, err := rt.history.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, r := range recs {
				fmt.Fprintf(out, "%s  %s  %-12s %s\n", r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Decision, r.Title())
			}
			return nil
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "maximum rows (0 for all)")
	list.Flags().StringVar(&similar, "similar", "", "rank by similarity to this text")

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Print one stored answer in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			rec, err := rt.history.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Query: %s\nAsked: %s\n", rec.QueryText, rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			if rec.RequestID != nil {
				fmt.Fprintf(out, "Request: %s\n", *rec.RequestID)
			}
			fmt.Fprintln(out)
			printResult(out, backend.QueryResult{
				Decision:      rec.Decision,
				Justification: rec.Justification,
				PolicyClauses: rec.PolicyClauses,
			})
			return nil
		},
	}

	var uploadLimit int
	uploads := &cobra.Command{
		Use:   "uploads",
		Short: "List uploaded documents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			recs, err := rt.history.Uploads(cmd.Context(), uploadLimit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, u := range recs {
				fmt.Fprintf(out, "%s  %8s  %s\n", u.CreatedAt.Local().Format("2006-01-02 15:04"), document.HumanSize(u.SizeBytes), u.FileName)
			}
			return nil
		},
	}
	uploads.Flags().IntVarP(&uploadLimit, "limit", "n", 20, "maximum rows (0 for all)")

	export := &cobra.Command{
		Use:   "export FILE.xlsx",
		Short: "Export the query history as a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			n, err := rt.history.ExportXLSX(cmd.Context(), f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(args[0])
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d queries to %s\n", n, args[0])
			return nil
		},
	}

	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all stored queries and uploads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to clear history without --yes")
			}
			rt, err := openRuntime(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()
			if rt.maint == nil {
				return service.ErrHistoryDisabled
			}
			if err := rt.maint.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&yes, "yes", false, "confirm")

	cmd.AddCommand(list, show, uploads, export, clearCmd)
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.Path()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force)", path)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := config.Save(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}
