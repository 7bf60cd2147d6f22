package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/seekerhut/docvault/internal/ai"
	"github.com/seekerhut/docvault/internal/chunker"
	"github.com/seekerhut/docvault/internal/config"
	"github.com/seekerhut/docvault/internal/db"
	"github.com/seekerhut/docvault/internal/embedcache"
	"github.com/seekerhut/docvault/internal/extract"
	"github.com/seekerhut/docvault/internal/filestore"
	"github.com/seekerhut/docvault/internal/handler"
	"github.com/seekerhut/docvault/internal/job"
	"github.com/seekerhut/docvault/internal/middleware"
	"github.com/seekerhut/docvault/internal/pkg/jwt"
	"github.com/seekerhut/docvault/internal/repo"
	"github.com/seekerhut/docvault/internal/schedule"
	"github.com/seekerhut/docvault/internal/service"
	"github.com/seekerhut/docvault/internal/vectorstore"
	"github.com/seekerhut/docvault/internal/vectorstore/memory"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "docvault",
		Short: "docvault document ingestion and retrieval server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run docvault server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}
	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")

	var tokenCompany string
	var tokenSubject string
	var tokenTTLHours int
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "mint a tenant access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			if tokenCompany == "" {
				return fmt.Errorf("--company is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ttl := cfg.JWTTTLHours
			if tokenTTLHours > 0 {
				ttl = tokenTTLHours
			}
			token, err := jwt.GenerateToken(tokenCompany, tokenSubject, []byte(cfg.JWTSecret), time.Duration(ttl)*time.Hour)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	tokenCmd.Flags().StringVar(&tokenCompany, "company", "", "tenant company id")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "optional token subject")
	tokenCmd.Flags().IntVar(&tokenTTLHours, "ttl", 0, "token ttl in hours, defaults to jwt_ttl_hours")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("chunk_store", cfg.Store.Type),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("embed_provider", cfg.Embed.Provider),
	)

	var docRepo service.DocumentStore
	var pendingDocs job.PendingLister
	var chunkStore vectorstore.Store
	var cacheRepo *repo.EmbeddingCacheRepo
	switch cfg.Store.Type {
	case "postgres":
		conn, err := db.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		if err := db.ApplyMigrations(conn); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		documents := repo.NewDocumentRepo(conn)
		docRepo = documents
		pendingDocs = documents
		chunkStore = repo.NewChunkRepo(conn)
		cacheRepo = repo.NewEmbeddingCacheRepo(conn)
	case "memory":
		documents := repo.NewMemoryDocumentRepo()
		docRepo = documents
		pendingDocs = documents
		chunkStore = memory.NewStorage()
	default:
		return fmt.Errorf("unsupported store type: %s", cfg.Store.Type)
	}

	embedder, err := buildEmbedder(cfg.Embed, cacheRepo)
	if err != nil {
		return fmt.Errorf("init embedder: %w", err)
	}

	var ocr extract.OCR
	if cfg.Extract.OCREndpoint != "" {
		ocr = extract.NewOCRClient(cfg.Extract.OCREndpoint, time.Duration(cfg.Extract.OCRTimeoutSeconds)*time.Second)
	}
	chain := extract.NewChain(extract.Config{MinTextLength: cfg.Extract.MinTextLength}, ocr)
	splitter := chunker.New(cfg.Chunk.MaxChunkSize, cfg.Chunk.OverlapSize)

	files, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	ingestService := service.NewIngestService(docRepo, chunkStore, chain, embedder, splitter, files, service.IngestConfig{
		MaxRetries: cfg.Embed.MaxRetries,
		Workers:    cfg.ReprocessWorkers,
	})
	searchService := service.NewSearchService(embedder, chunkStore)

	deps := handler.RouterDeps{
		Documents:       handler.NewDocumentHandler(files, docRepo, ingestService),
		Search:          handler.NewSearchHandler(searchService),
		JWTSecret:       []byte(cfg.JWTSecret),
		ReprocessWindow: time.Minute,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if cfg.Jobs.PendingSweepSpec != "" {
		if err := scheduler.AddJob(job.NewPendingSweepJob(pendingDocs, ingestService, 50), cfg.Jobs.PendingSweepSpec); err != nil {
			return err
		}
	}
	if cfg.Jobs.CacheCleanupSpec != "" && cacheRepo != nil {
		if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(cacheRepo, cfg.Jobs.CacheKeepDays), cfg.Jobs.CacheCleanupSpec); err != nil {
			return err
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func buildEmbedder(cfg config.EmbedConfig, cacheRepo *repo.EmbeddingCacheRepo) (ai.IEmbedder, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	primary, err := newProviderEmbedder(cfg.Provider, cfg.Model, cfg.Data, timeout)
	if err != nil {
		return nil, err
	}
	embedder := primary
	if len(cfg.Fallbacks) > 0 {
		entries := []ai.EmbedderEntry{{Name: cfg.Model, Embedder: primary}}
		for _, fallback := range cfg.Fallbacks {
			next, err := newProviderEmbedder(fallback.Provider, fallback.Model, fallback.Data, timeout)
			if err != nil {
				return nil, err
			}
			entries = append(entries, ai.EmbedderEntry{Name: fallback.Model, Embedder: next})
		}
		embedder = ai.NewGroupEmbedder(entries)
	}
	if cacheRepo != nil {
		embedder = embedcache.WrapDBCacheToEmbedder(embedder, cacheRepo)
	}
	embedder = embedcache.WrapLruCacheToEmbedder(embedder, cfg.CacheSize, time.Duration(cfg.CacheTTLHours)*time.Hour)
	return embedder, nil
}

func newProviderEmbedder(providerName, modelName string, args interface{}, timeout time.Duration) (ai.IEmbedder, error) {
	provider, err := ai.NewProvider(providerName, args)
	if err != nil {
		return nil, err
	}
	return ai.NewTimeoutEmbedder(ai.NewEmbedder(provider, modelName), timeout), nil
}
