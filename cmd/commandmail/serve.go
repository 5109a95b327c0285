package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"commandmail/internal/handler"
	"commandmail/internal/httpserver"
	"commandmail/internal/llm"
	"commandmail/internal/repository"
	"commandmail/internal/service/agent"
	"commandmail/internal/service/draft"
	"commandmail/internal/service/email"
	"commandmail/internal/service/processor"
	"commandmail/internal/service/prompt"
	"commandmail/pkg/circuitbreaker"
	"commandmail/pkg/db"
	"commandmail/pkg/mq"
	"commandmail/pkg/redis"
	"commandmail/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	// 1. Database
	pool, err := db.NewConnection(ctx, cfg.DB, log)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	emailRepo := repository.NewEmailRepository(pool)
	promptRepo := repository.NewPromptRepository(pool)
	draftRepo := repository.NewDraftRepository(pool)

	// 2. Event publisher (optional)
	publisher := newPublisher()
	if closer, ok := publisher.(*mq.Publisher); ok {
		defer closer.Close()
	}

	// 3. Redis guard for process-all (optional)
	rdb := redis.NewRedisClient(cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
	}
	locker := util.NewDeduper(rdb, cfg.Batch.LockTTL, log)

	// 4. LLM gateway
	gateway, err := newGateway(ctx)
	if err != nil {
		return err
	}

	// 5. Services
	proc := processor.NewProcessor(promptRepo, gateway, log)
	batch := processor.NewBatchRunner(proc, processor.NewGate(cfg.Batch.Delay, cfg.Batch.Rate, cfg.Batch.Burst), log)

	emailSvc := email.NewService(emailRepo, proc, batch, publisher, locker, log)
	agentSvc := agent.NewService(emailRepo, promptRepo, gateway, log)
	promptSvc := prompt.NewService(promptRepo, publisher, log)
	draftSvc := draft.NewService(draftRepo, emailRepo, publisher, log)

	// 6. Router
	router := httpserver.NewRouter(httpserver.Handlers{
		Email:  handler.NewEmailHandler(emailSvc),
		Agent:  handler.NewAgentHandler(agentSvc),
		Prompt: handler.NewPromptHandler(promptSvc),
		Draft:  handler.NewDraftHandler(draftSvc),
	}, httpserver.Options{
		Logger:         log,
		DB:             pool,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})
	srv := httpserver.NewServer(cfg.Server.Addr(), router)

	// 7. Run until signal
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr()))
		return srv.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newPublisher() mq.EventPublisher {
	if cfg.MQ.URL == "" {
		log.Info("MQ URL not set, events disabled")
		return mq.NopPublisher{}
	}
	p, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange)
	if err != nil {
		log.Warn("MQ unavailable, events disabled", zap.Error(err))
		return mq.NopPublisher{}
	}
	return p
}

func newGateway(ctx context.Context) (*llm.Client, error) {
	breaker := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.LLM.FailureThreshold,
		Timeout:          cfg.LLM.OpenTimeout,
		OnStateChange: func(from, to circuitbreaker.State) {
			log.Warn("LLM circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	var provider llm.Provider = llm.UnconfiguredProvider{}
	if cfg.LLM.APIKey != "" {
		p, err := llm.NewGenAIProvider(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		provider = p
	} else {
		log.Warn("GEMINI_API_KEY not set, LLM calls will fail")
	}
	return llm.NewClient(provider, breaker, log), nil
}
