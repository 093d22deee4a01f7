package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	adviceclient "github.com/PabloGalante/ask-michael/internal/adapters/advice"
	httpadapter "github.com/PabloGalante/ask-michael/internal/adapters/http"
	firestorestore "github.com/PabloGalante/ask-michael/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/ask-michael/internal/adapters/storage/memory"
	mongostore "github.com/PabloGalante/ask-michael/internal/adapters/storage/mongo"
	"github.com/PabloGalante/ask-michael/internal/app/advice"
	"github.com/PabloGalante/ask-michael/internal/app/conversation"
	"github.com/PabloGalante/ask-michael/internal/config"
	"github.com/PabloGalante/ask-michael/internal/domain"
	"github.com/PabloGalante/ask-michael/internal/observability"
	"github.com/PabloGalante/ask-michael/internal/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := observability.Setup(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("askmichael api stopped", "error", err)
		os.Exit(1)
	}
}

type stores struct {
	convs domain.ConversationStore
	usage domain.UsageStore
	close func(context.Context)
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		st.close(closeCtx)
	}()

	backend, err := newAdviceClient(ctx, cfg, log)
	if err != nil {
		return err
	}

	if cfg.Mode == config.ModeCloud {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := httpadapter.NewServer(
		conversation.NewService(st.convs),
		advice.NewService(st.usage, st.convs, backend, cfg.DailyLimit),
		httpadapter.Options{
			UserHeader:     cfg.UserHeader,
			AllowedOrigins: cfg.CORSOrigins,
		},
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("askmichael api listening", "port", cfg.Port, "mode", cfg.Mode)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error) {
	switch cfg.StorageBackend {
	case config.StorageMongo:
		log.Info("using mongo storage", "database", cfg.MongoDatabase)
		mgr := mongostore.NewManager(mongostore.Options{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
		})

		var store *mongostore.Store
		err := retry.Do(ctx, retry.Startup.WithAttempts(cfg.ConnectAttempts), "mongo connect", func(ctx context.Context) error {
			db, err := mgr.Acquire(ctx)
			if err != nil {
				return err
			}
			store = mongostore.NewStore(db)
			return store.EnsureIndexes(ctx)
		})
		if err != nil {
			_ = mgr.Close(context.Background())
			return nil, fmt.Errorf("error initializing mongo store: %w", err)
		}

		return &stores{
			convs: store,
			usage: store,
			close: func(ctx context.Context) {
				if err := mgr.Close(ctx); err != nil {
					log.Warn("mongo disconnect failed", "error", err)
				}
			},
		}, nil

	case config.StorageFirestore:
		log.Info("using firestore storage", "project", cfg.GCPProjectID)
		store, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, fmt.Errorf("error initializing firestore store: %w", err)
		}

		// 1 store, implements 2 interfaces
		return &stores{
			convs: store,
			usage: store,
			close: func(context.Context) { _ = store.Close() },
		}, nil

	default:
		log.Info("using in-memory storage")
		return &stores{
			convs: memstore.NewConversationStore(),
			usage: memstore.NewUsageStore(),
			close: func(context.Context) {},
		}, nil
	}
}

func newAdviceClient(ctx context.Context, cfg *config.Config, log *slog.Logger) (domain.AdviceClient, error) {
	switch cfg.AdviceBackend {
	case config.AdviceHTTP:
		log.Info("using remote advice backend", "url", cfg.AdviceURL, "timeout", cfg.AdviceTimeout)
		return adviceclient.NewHTTPClient(cfg.AdviceURL, cfg.AdviceTimeout), nil

	case config.AdviceVertex:
		log.Info("using vertex advice backend", "project", cfg.GCPProjectID, "location", cfg.GCPLocation, "model", cfg.ModelName)
		client, err := adviceclient.NewVertexClient(ctx, adviceclient.VertexOptions{
			ProjectID: cfg.GCPProjectID,
			Location:  cfg.GCPLocation,
			ModelName: cfg.ModelName,
		})
		if err != nil {
			return nil, fmt.Errorf("error initializing vertex advice client: %w", err)
		}
		return client, nil

	default:
		log.Info("using mock advice backend")
		return adviceclient.NewMockClient(), nil
	}
}
