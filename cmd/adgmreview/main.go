package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/complium/adgmreview/internal/classify"
	"github.com/complium/adgmreview/internal/config"
	"github.com/complium/adgmreview/internal/docstore"
	"github.com/complium/adgmreview/internal/embedding"
	"github.com/complium/adgmreview/internal/gate"
	"github.com/complium/adgmreview/internal/knowledge"
	"github.com/complium/adgmreview/internal/llm"
	"github.com/complium/adgmreview/internal/logging"
	"github.com/complium/adgmreview/internal/redflag"
	"github.com/complium/adgmreview/internal/rewrite"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

// codeError returns an exitErr for the given code.
func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// rootFlags are shared across subcommands.
type rootFlags struct {
	configPath string
	verbose    bool
}

// RunReport is the top-level JSON document emitted by the review command.
type RunReport struct {
	Tool           string                 `json:"tool"`
	Version        string                 `json:"version"`
	Classification gate.Result            `json:"classification"`
	Findings       *redflag.Findings      `json:"findings,omitempty"`
	Edits          *rewrite.AppliedReport `json:"edits,omitempty"`
}

func main() {
	var flags rootFlags

	root := &cobra.Command{
		Use:   "adgmreview",
		Short: "Compliance review of ADGM incorporation documents",
		Long: "adgmreview classifies ADGM corporate incorporation documents, checks completeness,\n" +
			"detects regulatory violations against a retrieval-backed knowledge base, and\n" +
			"rewrites documents with annotated fixes.",
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "Config file path (default adgmreview.yaml if present)")
	root.PersistentFlags().BoolVar(&flags.verbose, "verbose", false, "Enable debug logging")

	reviewCmd := &cobra.Command{
		Use:   "review <documents-dir>",
		Short: "Run the full compliance review pipeline",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(argOrEmpty(args), flags)
		},
	}

	classifyCmd := &cobra.Command{
		Use:   "classify <documents-dir>",
		Short: "Classify documents and report completeness only",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(argOrEmpty(args), flags)
		},
	}

	askCmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Query the regulatory knowledge base directly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(args[0], flags)
		},
	}

	var rebuild bool
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Build the regulatory knowledge index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(rebuild, flags)
		},
	}
	indexCmd.Flags().BoolVar(&rebuild, "rebuild", false, "Discard and rebuild the existing collection")

	root.AddCommand(reviewCmd, classifyCmd, askCmd, indexCmd)

	if err := root.Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		// cobra already printed the error
		os.Exit(1)
	}
}

func argOrEmpty(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// setup loads config and builds the logger, applying the positional
// documents-dir override when present.
func setup(documentsDir string, flags rootFlags) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, nil, codeError(3, "loading config: %s", err)
	}
	if documentsDir != "" {
		cfg.DocumentsDir = documentsDir
	}

	logger, err := logging.New(flags.verbose)
	if err != nil {
		return config.Config{}, nil, codeError(3, "initializing logger: %s", err)
	}
	return cfg, logger, nil
}

func runClassify(documentsDir string, flags rootFlags) error {
	cfg, logger, err := setup(documentsDir, flags)
	if err != nil {
		return err
	}
	defer logger.Sync()

	result, _, err := classifyDocuments(context.Background(), cfg, logger)
	if err != nil {
		return err
	}

	if err := emitJSON(result); err != nil {
		return err
	}
	if result.Decision == gate.Stop {
		return codeError(2, "%s", result.Reason)
	}
	return nil
}

func runReview(documentsDir string, flags rootFlags) error {
	cfg, logger, err := setup(documentsDir, flags)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()

	gateResult, docs, err := classifyDocuments(ctx, cfg, logger)
	if err != nil {
		return err
	}

	report := RunReport{
		Tool:           "adgmreview",
		Version:        version,
		Classification: gateResult,
	}

	if gateResult.Decision == gate.Stop {
		if err := emitJSON(report); err != nil {
			return err
		}
		return codeError(2, "%s", gateResult.Reason)
	}

	retriever, cleanup, err := buildRetriever(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	provider, err := llm.NewProvider(cfg.Model)
	if err != nil {
		return codeError(4, "creating LLM provider: %s", err)
	}

	detector := redflag.NewDetector(retriever, provider, cfg.QueryLimit, logger,
		redflag.WithMaxTokens(cfg.MaxTokens))
	findings := detector.Analyze(ctx, docs, gateResult.Report.ClassifiedDocuments)
	report.Findings = &findings

	rewriter := rewrite.NewRewriter(cfg.OutputDir, logger, rewrite.WithPerDocumentReports())
	edits := rewriter.Apply(docs, findings.Instructions)
	report.Edits = &rewrite.AppliedReport{
		Report:     edits,
		ReportPath: cfg.OutputDir + "/" + rewrite.ReportFilename,
	}

	return emitJSON(report)
}

func runAsk(query string, flags rootFlags) error {
	cfg, logger, err := setup("", flags)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()
	retriever, cleanup, err := buildRetriever(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	answer, err := retriever.Ask(ctx, query)
	if err != nil {
		return codeError(5, "retrieval query failed: %s", err)
	}
	return emitJSON(answer)
}

func runIndex(rebuild bool, flags rootFlags) error {
	cfg, logger, err := setup("", flags)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()

	engine, err := embedding.NewEngine(cfg.Embedding)
	if err != nil {
		return codeError(4, "creating embedding engine: %s", err)
	}

	index, err := knowledge.OpenIndex(cfg.IndexPath, cfg.Collection)
	if err != nil {
		return codeError(3, "opening index: %s", err)
	}
	defer index.Close()

	// Answer synthesis is not needed for index builds.
	retriever := knowledge.NewRetriever(index, engine, nil, cfg.CorpusDir, logger)
	if rebuild {
		err = retriever.Rebuild(ctx)
	} else {
		err = retriever.Initialize(ctx)
	}
	if err != nil {
		return codeError(5, "building index: %s", err)
	}

	count, err := index.Count(ctx)
	if err != nil {
		return codeError(3, "counting index chunks: %s", err)
	}
	return emitJSON(map[string]any{
		"collection": cfg.Collection,
		"chunks":     count,
		"status":     "ready",
	})
}

// classifyDocuments runs read → classify → gate and returns the gate result
// with the raw documents for downstream stages.
func classifyDocuments(ctx context.Context, cfg config.Config, logger *zap.Logger) (gate.Result, []docstore.Document, error) {
	reader := docstore.NewReader(logger)
	docs, err := reader.ReadDir(cfg.DocumentsDir)
	if err != nil {
		return gate.Result{}, nil, codeError(3, "reading documents: %s", err)
	}

	// The classifier only reaches for the model when rules miss, so a
	// provider construction failure downgrades to rules-only operation.
	var provider llm.Provider
	if p, err := llm.NewProvider(cfg.Model); err == nil {
		provider = p
	} else {
		logger.Warn("classification fallback disabled", zap.Error(err))
	}

	classifier := classify.New(provider, logger)
	results := classifier.ClassifyAll(ctx, docs)
	return gate.Evaluate(results), docs, nil
}

// buildRetriever opens the index and initializes the retriever, returning a
// cleanup function for the index handle.
func buildRetriever(ctx context.Context, cfg config.Config, logger *zap.Logger) (*knowledge.Retriever, func(), error) {
	engine, err := embedding.NewEngine(cfg.Embedding)
	if err != nil {
		return nil, nil, codeError(4, "creating embedding engine: %s", err)
	}

	provider, err := llm.NewProvider(cfg.Model)
	if err != nil {
		return nil, nil, codeError(4, "creating LLM provider: %s", err)
	}

	index, err := knowledge.OpenIndex(cfg.IndexPath, cfg.Collection)
	if err != nil {
		return nil, nil, codeError(3, "opening index: %s", err)
	}

	retriever := knowledge.NewRetriever(index, engine, provider, cfg.CorpusDir, logger,
		knowledge.WithAnswerTemperature(cfg.Temperature))
	if err := retriever.Initialize(ctx); err != nil {
		index.Close()
		if errors.Is(err, knowledge.ErrEmptyIndex) {
			return nil, nil, codeError(3, "knowledge index is empty: %s", err)
		}
		return nil, nil, codeError(5, "initializing retriever: %s", err)
	}
	return retriever, func() { index.Close() }, nil
}

// emitJSON writes v to stdout as indented JSON with a trailing newline.
func emitJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return codeError(3, "rendering output: %s", err)
	}
	os.Stdout.Write(data)
	fmt.Println()
	return nil
}
