// Command clauseguard serves the contract clause risk analysis API and
// manages the precedent corpus.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/clauseguard/internal/config"
	"github.com/fyrsmithlabs/clauseguard/internal/extraction"
	"github.com/fyrsmithlabs/clauseguard/internal/genai"
	"github.com/fyrsmithlabs/clauseguard/internal/logging"
	"github.com/fyrsmithlabs/clauseguard/internal/playbook"
	"github.com/fyrsmithlabs/clauseguard/internal/precedent"
	"github.com/fyrsmithlabs/clauseguard/internal/report"
	"github.com/fyrsmithlabs/clauseguard/internal/risk"
	"github.com/fyrsmithlabs/clauseguard/internal/server"
	"github.com/fyrsmithlabs/clauseguard/internal/vectorindex"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "clauseguard",
		Short: "Contract clause risk analysis service",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newSeedCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP analysis API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Embed and upsert the built-in precedent corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context())
		},
	}
}

// deps holds the wired pipeline shared between serve and seed.
type deps struct {
	cfg      *config.Config
	logger   *logging.Logger
	gemini   *genai.GeminiClient
	embedder genai.Embedder
	index    vectorindex.Index
}

func buildDeps(ctx context.Context) (*deps, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	gemini, err := genai.NewGeminiClient(ctx, genai.GeminiConfig{
		APIKey:     cfg.Gemini.APIKey.Value(),
		Model:      cfg.Gemini.Model,
		EmbedModel: cfg.Embeddings.Model,
		Dimension:  cfg.Embeddings.Dimension,
		Timeout:    cfg.Gemini.Timeout.Duration(),
		RateLimit:  cfg.Gemini.RateLimit,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	var embedder genai.Embedder = gemini
	if cfg.Embeddings.Provider == "openai" {
		embedder, err = genai.NewOpenAIEmbedder(genai.OpenAIEmbedConfig{
			BaseURL:   cfg.Embeddings.BaseURL,
			Model:     cfg.Embeddings.Model,
			APIKey:    cfg.Embeddings.APIKey.Value(),
			Dimension: cfg.Embeddings.Dimension,
		})
		if err != nil {
			return nil, fmt.Errorf("creating embedder: %w", err)
		}
	}

	var index vectorindex.Index
	if cfg.Qdrant.Embedded {
		index, err = vectorindex.NewChromemIndex(cfg.Qdrant.Collection)
	} else {
		index, err = vectorindex.NewQdrantIndex(ctx, vectorindex.QdrantConfig{
			Host:           cfg.Qdrant.Host,
			Port:           cfg.Qdrant.Port,
			UseTLS:         cfg.Qdrant.UseTLS,
			APIKey:         cfg.Qdrant.APIKey.Value(),
			Collection:     cfg.Qdrant.Collection,
			RequestTimeout: cfg.Qdrant.RequestTimeout.Duration(),
			MaxRetries:     cfg.Qdrant.MaxRetries,
		}, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("creating vector index: %w", err)
	}

	return &deps{
		cfg:      cfg,
		logger:   logger,
		gemini:   gemini,
		embedder: embedder,
		index:    index,
	}, nil
}

func (d *deps) close() {
	if err := d.index.Close(); err != nil {
		d.logger.Warn(context.Background(), "closing index", zap.Error(err))
	}
	if err := d.gemini.Close(); err != nil {
		d.logger.Warn(context.Background(), "closing gemini client", zap.Error(err))
	}
	_ = d.logger.Sync()
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := buildDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	// The embedded index starts empty each process; seed it so local runs
	// retrieve precedents without a separate seed step.
	if d.cfg.Qdrant.Embedded {
		seeder := precedent.NewSeeder(d.embedder, d.index, d.logger)
		if err := seeder.Seed(ctx, precedent.SeedCorpus); err != nil {
			return fmt.Errorf("seeding embedded index: %w", err)
		}
	}

	retriever := precedent.NewRetriever(d.embedder, d.index, precedent.RetrieverConfig{
		FallbackClauseTypeOnly: d.cfg.Analysis.FallbackClauseTypeOnly,
	}, d.logger)

	synthesizer, err := risk.NewSynthesizer(playbook.Default(), retriever, d.gemini, risk.SynthesizerConfig{
		PrecedentLimit: d.cfg.Analysis.PrecedentLimit,
	}, d.logger)
	if err != nil {
		return fmt.Errorf("creating synthesizer: %w", err)
	}

	analyzer := risk.NewAnalyzer(synthesizer, d.cfg.Analysis.Concurrency, d.logger)

	extractor, err := extraction.NewExtractor(d.gemini, d.logger)
	if err != nil {
		return fmt.Errorf("creating extractor: %w", err)
	}

	reporter, err := report.NewBuilder(d.gemini, d.logger)
	if err != nil {
		return fmt.Errorf("creating report builder: %w", err)
	}

	srv, err := server.New(server.Config{
		Addr:            d.cfg.Server.Addr,
		ShutdownTimeout: d.cfg.Server.ShutdownTimeout.Duration(),
		MaxUploadBytes:  d.cfg.Server.MaxUploadBytes,
	}, extractor, analyzer, reporter, d.index, d.logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		d.logger.Info(ctx, "serving", zap.String("addr", d.cfg.Server.Addr))
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	d.logger.Info(context.Background(), "shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func runSeed(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := buildDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	seeder := precedent.NewSeeder(d.embedder, d.index, d.logger)
	if err := seeder.Seed(ctx, precedent.SeedCorpus); err != nil {
		return err
	}

	d.logger.Info(ctx, "precedent corpus seeded",
		zap.String("collection", d.cfg.Qdrant.Collection),
		zap.Int("records", len(precedent.SeedCorpus)),
	)
	return nil
}
