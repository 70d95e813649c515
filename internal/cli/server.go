package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"mindvault/internal/app"
	"mindvault/internal/config"
	"mindvault/internal/infra/blob"
	"mindvault/internal/infra/memory"
	mongostore "mindvault/internal/infra/mongo"
	"mindvault/internal/infra/ocr"
	"mindvault/internal/infra/openai"
	pgstore "mindvault/internal/infra/postgres"
	"mindvault/internal/infra/rabbitmq"
	redisstore "mindvault/internal/infra/redis"
	transport "mindvault/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// stores bundles the three repositories; every backend implements all of them.
type stores interface {
	app.FolderRepository
	app.ConceptRepository
	app.ResultRepository
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.RequireJWTSecret(); err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	store, err := openStore(ctx, cfg, &closers)
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, redisClient)
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)

	loader := app.NewAssembler(store)
	var quizRepo app.QuizRepository
	var attempts app.AttemptRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
		attempts = redisstore.NewAttemptStore(redisClient, redisTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		attempts = memory.NewAttemptStore()
	}

	images, uploadsDir, err := openImageStore(ctx, cfg)
	if err != nil {
		return err
	}

	var events app.EventPublisher = app.NopPublisher{}
	if cfg.Events.URL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.Events.URL, cfg.Events.Exchange)
		if err != nil {
			return err
		}
		closers = append(closers, publisher)
		events = publisher
	}

	generator := openai.NewGenerator(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     config.TTLDuration(cfg.LLM.Timeout, 30*time.Second),
	})
	if cfg.LLM.APIKey == "" {
		log.Printf("no llm api key configured, concepts will get fallback questions")
	}
	extractor := ocr.NewClient(ocr.Config{
		BaseURL: cfg.OCR.BaseURL,
		Timeout: config.TTLDuration(cfg.OCR.Timeout, 30*time.Second),
	})

	folders := app.NewFolderService(store, store, store, quizRepo, attempts, app.WithFolderEvents(events))
	concepts := app.NewConceptService(store, store, quizRepo, generator, extractor, images, app.WithConceptEvents(events))
	quiz := app.NewQuizService(quizRepo, store, attempts,
		app.WithHistoryLimit(cfg.Quiz.HistoryLimit),
		app.WithQuizEvents(events),
	)

	handler := transport.NewRouter(transport.Deps{
		Folders:        folders,
		Concepts:       concepts,
		Quiz:           quiz,
		Auth:           transport.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour)),
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadBytes: cfg.Uploads.MaxBytes,
		UploadsDir:     uploadsDir,
	})

	// No write timeout: concept creation waits on OCR and the LLM, and live
	// quiz connections stay open.
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting mindvault on :%s (store=%s)", finalPort, cfg.Store.Driver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.Config, closers *[]io.Closer) (stores, error) {
	switch cfg.Store.Driver {
	case "", "memory":
		log.Printf("using in-memory store, data is lost on restart")
		return memory.NewStore(), nil
	case "postgres":
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, closerFunc(func() error { pool.Close(); return nil }))
		return pgstore.NewStore(pool), nil
	case "mongo":
		if cfg.Mongo.URI == "" {
			return nil, fmt.Errorf("mongo uri not configured")
		}
		client, err := mongostore.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, closerFunc(func() error { return client.Disconnect(context.Background()) }))
		store := mongostore.NewStore(client.Database(cfg.Mongo.Database))
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// openImageStore returns the upload backend and, for the filesystem backend,
// the directory to serve under /uploads/.
func openImageStore(ctx context.Context, cfg config.Config) (app.ImageStore, string, error) {
	switch cfg.Uploads.Driver {
	case "", "fs":
		store, err := blob.NewFSStore(cfg.Uploads.Dir, cfg.Server.PublicURL)
		if err != nil {
			return nil, "", err
		}
		return store, store.Dir(), nil
	case "minio":
		store, err := blob.NewMinioStore(ctx, blob.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
			Region:    cfg.Minio.Region,
			PublicURL: cfg.Minio.PublicURL,
		})
		if err != nil {
			return nil, "", err
		}
		return store, "", nil
	default:
		return nil, "", fmt.Errorf("unknown uploads driver %q", cfg.Uploads.Driver)
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
