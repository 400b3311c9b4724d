package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dfarrell/patchreview/internal/adapter/cli"
	gitadapter "github.com/dfarrell/patchreview/internal/adapter/git"
	githubadapter "github.com/dfarrell/patchreview/internal/adapter/github"
	"github.com/dfarrell/patchreview/internal/adapter/output/markdown"
	"github.com/dfarrell/patchreview/internal/adapter/store/sqlite"
	"github.com/dfarrell/patchreview/internal/config"
	"github.com/dfarrell/patchreview/internal/domain"
	"github.com/dfarrell/patchreview/internal/engine"
	"github.com/dfarrell/patchreview/internal/eval"
	"github.com/dfarrell/patchreview/internal/logging"
	"github.com/dfarrell/patchreview/internal/redaction"
	"github.com/dfarrell/patchreview/internal/usecase/review"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		var engErr *engine.Error
		if errors.As(err, &engErr) {
			fmt.Fprintln(os.Stderr, engErr.Guidance())
		}
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "patchreview",
		EnvPrefix:   "PATCHREVIEW",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	logger := logging.NewDefaultLogger(
		logging.ParseLevel(cfg.Logging.Level),
		logging.ParseFormat(cfg.Logging.Format),
	)

	// Engine subprocesses must not outlive an interrupted run.
	registry := engine.NewProcessRegistry()
	defer registry.KillAll()
	go func() {
		<-ctx.Done()
		registry.KillAll()
	}()

	app := &app{cfg: cfg, logger: logger, registry: registry}

	root := cli.NewRootCommand(cli.Dependencies{
		Runners: cli.Runners{
			RunReview: app.runReview,
			RunEval:   app.runEval,
			ListRuns:  app.listRuns,
		},
		Version: version,
	})
	return root.ExecuteContext(ctx)
}

type app struct {
	cfg      config.Config
	logger   logging.Logger
	registry *engine.ProcessRegistry
}

func (a *app) runReview(ctx context.Context, opts cli.ReviewOptions) error {
	cfg := a.cfg
	scrubber := redaction.NewScrubber()

	timeout, err := cfg.Engine.EngineTimeout()
	if err != nil {
		return err
	}
	engineOpts := engine.Options{
		Binary:          cfg.Engine.Binary,
		Model:           cfg.Engine.Model,
		MaxOutputBytes:  cfg.Engine.MaxOutputBytes,
		ExtraAllowedEnv: cfg.Engine.AllowEnv,
	}
	streaming := opts.Streaming || cfg.Engine.Streaming
	if streaming {
		engineOpts.StreamTimeout = timeout
		engineOpts.StreamMaxTurns = cfg.Engine.MaxTurns
	} else {
		engineOpts.BoundedTimeout = timeout
		engineOpts.BoundedMaxTurns = cfg.Engine.MaxTurns
	}

	analyzer := engine.NewAnalyzer(engineOpts, a.logger, scrubber, a.registry)
	if streaming && review.IsTTY(os.Stderr.Fd()) {
		analyzer.ForwardStderrTo(os.Stderr)
	}

	strictness := opts.Strictness
	if strictness == "" {
		strictness = cfg.Review.Strictness
	}
	instructions := opts.Instructions
	if instructions == "" {
		instructions = cfg.Review.Instructions
	}
	prompts := review.NewPromptBuilder(strictness, instructions, cfg.Review.MaxDiffChars)

	var source review.ChangeSource
	var poster review.Poster
	if opts.PRNumber != 0 {
		client := githubadapter.NewClient(cfg.GitHub.Token)
		if cfg.GitHub.APIBaseURL != "" {
			client.SetBaseURL(cfg.GitHub.APIBaseURL)
		}
		source = githubadapter.NewSource(client, opts.Owner, opts.Repo, opts.PRNumber)
		if opts.Post {
			poster = githubadapter.NewPoster(client, opts.Owner, opts.Repo, opts.PRNumber, a.logger)
		}
	} else {
		repoDir := opts.RepoDir
		if repoDir == "" || repoDir == "." {
			if cfg.Git.RepositoryDir != "" {
				repoDir = cfg.Git.RepositoryDir
			}
		}
		source = gitadapter.NewSource(repoDir, opts.BaseRef, opts.HeadRef)
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = cfg.Output.Directory
	}
	writer := markdown.NewWriter(outputDir, func() string {
		return time.Now().UTC().Format("20060102T150405Z")
	})

	var store review.Store
	if cfg.Store.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
		sqlStore, err := sqlite.NewStore(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer sqlStore.Close()
		store = sqlStore
	}

	orchestrator := review.NewOrchestrator(
		source,
		engineAnalyzer{analyzer: analyzer, model: opts.Model, streaming: streaming},
		prompts,
		poster,
		writer,
		store,
		a.logger,
	)

	result, err := orchestrator.Execute(ctx)
	if err != nil {
		return err
	}

	fmt.Println(result.Body)
	// Pointer lines are operator hints; redirected output stays body-only
	// so the artifact remains clean markdown.
	if review.IsOutputTerminal() {
		if result.ArtifactPath != "" {
			fmt.Println("artifact:", result.ArtifactPath)
		}
		if result.ReviewURL != "" {
			fmt.Println("review:", result.ReviewURL)
		}
	}
	return nil
}

func (a *app) runEval(ctx context.Context, opts cli.EvalOptions) error {
	expected, err := eval.LoadExpected(opts.ExpectedPath)
	if err != nil {
		return err
	}

	var recorded []domain.Finding
	if opts.RunID != 0 {
		if a.cfg.Store.Path == "" {
			return fmt.Errorf("--run requires store.path to be configured")
		}
		store, err := sqlite.NewStore(a.cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer store.Close()
		recorded, err = store.GetFindings(ctx, opts.RunID)
		if err != nil {
			return err
		}
	} else {
		recorded, err = eval.LoadRecorded(opts.RecordedPath)
		if err != nil {
			return err
		}
	}

	metrics := eval.ComputeMetrics(eval.Match(recorded, expected))
	fmt.Printf("true positives:     %d\n", metrics.TruePositives)
	fmt.Printf("false positives:    %d\n", metrics.FalsePositives)
	fmt.Printf("false negatives:    %d\n", metrics.FalseNegatives)
	fmt.Printf("hallucinations:     %d\n", metrics.Hallucinations)
	fmt.Printf("precision:          %.3f\n", metrics.Precision)
	fmt.Printf("recall:             %.3f\n", metrics.Recall)
	fmt.Printf("hallucination rate: %.3f\n", metrics.HallucinationRate)
	return nil
}

func (a *app) listRuns(ctx context.Context, limit int) error {
	if a.cfg.Store.Path == "" {
		return fmt.Errorf("store.path is not configured")
	}
	store, err := sqlite.NewStore(a.cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%d\t%s\t%s\t%s -> %s\t%d findings\t$%.4f\n",
			r.ID, r.StartedAt.UTC().Format(time.RFC3339), r.Title,
			r.HeadBranch, r.BaseBranch, r.NumFindings, r.CostUSD)
	}
	return nil
}

// engineAnalyzer adapts the engine to the pipeline's analyzer port with
// fixed model and mode.
type engineAnalyzer struct {
	analyzer  *engine.Analyzer
	model     string
	streaming bool
}

func (e engineAnalyzer) Analyze(ctx context.Context, prompt string) (domain.AnalysisResult, error) {
	result, err := e.analyzer.Analyze(ctx, engine.Request{
		Prompt:    prompt,
		Model:     e.model,
		Streaming: e.streaming,
	})
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	return *result, nil
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "patchreview"))
	}
	return paths
}
