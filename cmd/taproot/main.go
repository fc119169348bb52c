package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/taproot"
)

var (
	flagDB     string
	flagFormat string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "taproot",
	Short:         "Multi-language static analysis over one abstract evaluator",
	Long:          "Taproot lowers Go, Python, and JavaScript files to a shared term language and evaluates them under a type-inference domain and an optional concrete domain, writing results to SQLite.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .taproot/analysis.db relative to the analyzed root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(replCmd)
}

func validateFormat(format string) error {
	switch format {
	case "json", "text":
		return nil
	}
	return fmt.Errorf("invalid --format %q (want json or text)", format)
}

// resolveDBPath returns the database path: --db when set, otherwise
// .taproot/analysis.db under root.
func resolveDBPath(root string) string {
	if flagDB != "" {
		return flagDB
	}
	return filepath.Join(root, ".taproot", "analysis.db")
}

var (
	flagForce     bool
	flagLanguages string
	flagSerial    bool
	flagExec      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Analyze a directory of source files",
	Long:  "Parses source files with tree-sitter, lowers them to terms, runs type inference (and optionally concrete execution), and writes results to the SQLite database.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&flagForce, "force", false, "re-analyze files whose content is unchanged")
	analyzeCmd.Flags().StringVar(&flagLanguages, "languages", "", "comma-separated language filter (e.g. go,python)")
	analyzeCmd.Flags().BoolVar(&flagSerial, "serial", false, "disable the parallel analysis pipeline")
	analyzeCmd.Flags().BoolVar(&flagExec, "exec", false, "also run files under the concrete domain (executes analyzed code)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	start := time.Now()

	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	dbPath := resolveDBPath(root)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}

	opts := []taproot.Option{
		taproot.WithParallel(!flagSerial),
		taproot.WithExecution(flagExec),
		taproot.WithForce(flagForce),
	}
	if flagLanguages != "" {
		langs := strings.Split(flagLanguages, ",")
		for i := range langs {
			langs[i] = strings.TrimSpace(langs[i])
		}
		opts = append(opts, taproot.WithLanguages(langs...))
	}

	engine, err := taproot.New(dbPath, opts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	stats, err := engine.AnalyzeDirectory(context.Background(), root)
	if err != nil {
		return fmt.Errorf("analyzing: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Analyzed %s in %s (%d files, %d analyzed, %d failed)\n",
		root,
		time.Since(start).Round(time.Millisecond),
		stats.FilesTotal, stats.FilesAnalyzed, stats.FilesFailed,
	)
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	return nil
}

var flagPolicyDir string

var checkCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Run policy scripts against stored results",
	Long:  "Executes every .risor script in the policy directory against the analysis database. Findings are recorded as diagnostics with domain \"policy\".",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&flagPolicyDir, "policies", "policies", "directory containing .risor policy scripts")
}

func runCheck(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	engine, err := taproot.New(resolveDBPath(root), taproot.WithPolicyDir(flagPolicyDir))
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	if err := engine.CheckPolicies(context.Background()); err != nil {
		return fmt.Errorf("checking policies: %w", err)
	}

	diags, err := engine.Query().Diagnostics()
	if err != nil {
		return err
	}
	var findings int
	for _, d := range diags {
		if d.Domain == "policy" {
			findings++
		}
	}
	fmt.Fprintf(os.Stderr, "Policies passed; %d finding(s) recorded\n", findings)
	return nil
}
