package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/taproot"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Inspect stored analysis results",
}

func init() {
	showCmd.AddCommand(showTypeCmd)
	showCmd.AddCommand(showValueCmd)
	showCmd.AddCommand(showDiagsCmd)
	showCmd.AddCommand(showRunsCmd)
	showCmd.AddCommand(showSummaryCmd)
}

// openQuery opens the database for the current directory (or --db) and
// returns its QueryBuilder plus a close function.
func openQuery() (*taproot.QueryBuilder, func(), error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, err
	}
	engine, err := taproot.New(resolveDBPath(cwd))
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return engine.Query(), func() { engine.Close() }, nil
}

// resultEnvelope is the JSON shape of every show subcommand's output.
type resultEnvelope struct {
	Command string `json:"command"`
	Path    string `json:"path,omitempty"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// outputResult marshals an envelope to stdout in the selected format. In
// text mode textFn renders the result.
func outputResult(env resultEnvelope, textFn func()) error {
	if flagFormat == "text" {
		textFn()
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error goes to stdout as an
// envelope; in text mode to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(resultEnvelope{Command: command, Error: err.Error()})
	return err
}

func absArg(args []string) (string, error) {
	return filepath.Abs(args[0])
}

var showTypeCmd = &cobra.Command{
	Use:   "type <file>",
	Short: "Show the inferred result type of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := absArg(args)
		if err != nil {
			return err
		}
		q, closeFn, err := openQuery()
		if err != nil {
			return err
		}
		defer closeFn()

		typ, err := q.TypeOf(path)
		if err != nil {
			return outputError("show type", err)
		}
		return outputResult(
			resultEnvelope{Command: "show type", Path: path, Result: typ},
			func() { fmt.Println(typ) },
		)
	},
}

var showValueCmd = &cobra.Command{
	Use:   "value <file>",
	Short: "Show the concretely computed result of a file",
	Long:  "Shows the value stored by a previous `taproot analyze --exec` run.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := absArg(args)
		if err != nil {
			return err
		}
		q, closeFn, err := openQuery()
		if err != nil {
			return err
		}
		defer closeFn()

		val, err := q.ValueOf(path)
		if err != nil {
			return outputError("show value", err)
		}
		return outputResult(
			resultEnvelope{Command: "show value", Path: path, Result: val},
			func() { fmt.Println(val) },
		)
	},
}

var showDiagsCmd = &cobra.Command{
	Use:   "diags [file]",
	Short: "Show diagnostics, optionally for one file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, closeFn, err := openQuery()
		if err != nil {
			return err
		}
		defer closeFn()

		var diags []*taproot.Diagnostic
		var path string
		if len(args) == 1 {
			path, err = absArg(args)
			if err != nil {
				return err
			}
			diags, err = q.FileDiagnostics(path)
		} else {
			diags, err = q.Diagnostics()
		}
		if err != nil {
			var na *taproot.NotAnalyzedError
			if errors.As(err, &na) {
				return outputError("show diags", err)
			}
			return err
		}

		return outputResult(
			resultEnvelope{Command: "show diags", Path: path, Result: diags},
			func() { formatDiagnosticsText(diags) },
		)
	},
}

func formatDiagnosticsText(diags []*taproot.Diagnostic) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE_ID\tDOMAIN\tKIND\tMESSAGE")
	for _, d := range diags {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", d.FileID, d.Domain, d.Kind, d.Message)
	}
	tw.Flush()
}

var flagRunsLimit int

var showRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent analysis runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, closeFn, err := openQuery()
		if err != nil {
			return err
		}
		defer closeFn()

		runs, err := q.Runs(flagRunsLimit)
		if err != nil {
			return err
		}
		return outputResult(
			resultEnvelope{Command: "show runs", Result: runs},
			func() { formatRunsText(runs) },
		)
	},
}

func init() {
	showRunsCmd.Flags().IntVar(&flagRunsLimit, "limit", 10, "maximum number of runs to show")
}

func formatRunsText(runs []*taproot.Run) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tDURATION\tCOMMIT\tBRANCH\tDIRTY\tFILES\tFAILED")
	for _, r := range runs {
		commit := r.CommitHash
		if len(commit) > 8 {
			commit = commit[:8]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%d\t%d\n",
			r.StartedAt.Format(time.RFC3339),
			r.Duration.Round(time.Millisecond),
			commit, r.Branch, r.Dirty, r.FilesTotal, r.FilesFailed)
	}
	tw.Flush()
}

var showSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show database-wide counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, closeFn, err := openQuery()
		if err != nil {
			return err
		}
		defer closeFn()

		sum, err := q.Summary()
		if err != nil {
			return err
		}
		return outputResult(
			resultEnvelope{Command: "show summary", Result: sum},
			func() { formatSummaryText(sum) },
		)
	},
}

func formatSummaryText(sum *taproot.Summary) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Files\t%d\n", sum.Files)
	for lang, n := range sum.ByLanguage {
		fmt.Fprintf(tw, "  %s\t%d\n", lang, n)
	}
	fmt.Fprintf(tw, "Analyses\t%d\n", sum.Analyses)
	fmt.Fprintf(tw, "Diagnostics\t%d\n", sum.Diagnostics)
	tw.Flush()
}
