// Package cli defines the command surface. The commands only parse flags
// and delegate; all wiring lives in the host process.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// ErrVersionRequested indicates the user requested the CLI version and no
// further work should be done.
var ErrVersionRequested = errors.New("version requested")

// ReviewOptions carries the resolved flags of the review command.
type ReviewOptions struct {
	// Pull request coordinates. PRNumber == 0 means a local review.
	Owner    string
	Repo     string
	PRNumber int

	// Local review coordinates.
	RepoDir string
	BaseRef string
	HeadRef string

	// Engine overrides.
	Model     string
	Streaming bool

	// Review posture.
	Strictness   string
	Instructions string

	// Post publishes the review to the pull request instead of only
	// writing the local artifact.
	Post bool

	OutputDir string
}

// EvalOptions carries the resolved flags of the eval command.
type EvalOptions struct {
	ExpectedPath string
	RecordedPath string

	// RunID selects recorded findings from the store instead of a file.
	RunID int64
}

// Runners captures the operations the commands delegate to.
type Runners struct {
	RunReview func(ctx context.Context, opts ReviewOptions) error
	RunEval   func(ctx context.Context, opts EvalOptions) error
	ListRuns  func(ctx context.Context, limit int) error
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	Runners Runners
	Args    Arguments
	Version string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "patchreview",
		Short: "Engine-backed code review for diffs and pull requests",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(reviewCommand(deps.Runners.RunReview))
	root.AddCommand(evalCommand(deps.Runners.RunEval))
	root.AddCommand(runsCommand(deps.Runners.ListRuns))

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func reviewCommand(run func(ctx context.Context, opts ReviewOptions) error) *cobra.Command {
	var opts ReviewOptions

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review a pull request or a local branch",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.PRNumber != 0 && (opts.Owner == "" || opts.Repo == "") {
				return fmt.Errorf("--pr requires --owner and --repo")
			}
			if opts.PRNumber == 0 && opts.Post {
				return fmt.Errorf("--post requires a pull request (--pr)")
			}
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Owner, "owner", "", "Repository owner for pull request reviews")
	cmd.Flags().StringVar(&opts.Repo, "repo", "", "Repository name for pull request reviews")
	cmd.Flags().IntVar(&opts.PRNumber, "pr", 0, "Pull request number to review")
	cmd.Flags().StringVar(&opts.RepoDir, "repo-dir", ".", "Local repository directory")
	cmd.Flags().StringVar(&opts.BaseRef, "base", "main", "Base ref for local reviews")
	cmd.Flags().StringVar(&opts.HeadRef, "head", "", "Head ref for local reviews (default: checked-out branch)")
	cmd.Flags().StringVar(&opts.Model, "model", "", "Engine model override")
	cmd.Flags().BoolVar(&opts.Streaming, "streaming", false, "Use the long-horizon streaming engine mode")
	cmd.Flags().StringVar(&opts.Strictness, "strictness", "", "Review posture: strict, normal, or lenient")
	cmd.Flags().StringVar(&opts.Instructions, "instructions", "", "Extra review instructions")
	cmd.Flags().BoolVar(&opts.Post, "post", false, "Post the review to the pull request")
	cmd.Flags().StringVar(&opts.OutputDir, "output", "", "Directory for the local review artifact")

	return cmd
}

func evalCommand(run func(ctx context.Context, opts EvalOptions) error) *cobra.Command {
	var opts EvalOptions

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score recorded findings against a labelled fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.ExpectedPath == "" {
				return fmt.Errorf("--expected is required")
			}
			if (opts.RecordedPath == "") == (opts.RunID == 0) {
				return fmt.Errorf("exactly one of --recorded or --run is required")
			}
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.ExpectedPath, "expected", "", "Path to the labelled expectations JSON")
	cmd.Flags().StringVar(&opts.RecordedPath, "recorded", "", "Path to recorded findings JSON")
	cmd.Flags().Int64Var(&opts.RunID, "run", 0, "Stored run id to score")

	return cmd
}

func runsCommand(run func(ctx context.Context, limit int) error) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded review runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")

	return cmd
}
