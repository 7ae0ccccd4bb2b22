package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"deckforge/internal/app"
	"deckforge/internal/archive"
	"deckforge/internal/bot"
	"deckforge/internal/config"
	"deckforge/internal/content"
	"deckforge/internal/events"
	"deckforge/internal/flow"
	"deckforge/internal/images"
	"deckforge/internal/quota"
	"deckforge/internal/ratelimit"
	"deckforge/internal/render"
	"deckforge/internal/store"
	"deckforge/internal/util"
	"deckforge/pkg/ai"
)

func main() {
	// Optional: local development convenience only.
	_ = godotenv.Load()

	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := util.InitLogger(cfg.LogLevel)

	st, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		util.Fatal("failed to init store", "err", err)
	}

	window, err := config.ParseQuotaWindow(cfg.QuotaWindow)
	if err != nil {
		util.Fatal("failed to parse quota window", "err", err)
	}
	ledger := quota.New(st, cfg.QuotaLimit, window)
	recovered, err := ledger.RecoverOrphanedOnStartup()
	if err != nil {
		util.Fatal("failed to recover orphaned reservations", "err", err)
	}
	if recovered > 0 {
		logger.Warn("failed orphaned pending reservations from previous run", "count", recovered)
	}

	var primary ai.TextGenerator
	if cfg.GeminiAPIKey != "" {
		client, err := ai.NewGeminiClient(cfg.GeminiAPIKey)
		if err != nil {
			util.Fatal("failed to init gemini client", "err", err)
		}
		primary = ai.NewGeminiGenerator(client, cfg.GeminiModel)
	}
	var secondary []ai.TextGenerator
	for _, key := range cfg.OpenAIAPIKeys {
		gen, err := ai.NewOpenAIGenerator(key, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		if err != nil {
			util.Fatal("failed to init openai generator", "err", err)
		}
		secondary = append(secondary, gen)
	}
	contentGen := content.NewGenerator(primary, secondary, logger)

	var enricher *images.Enricher
	if len(cfg.PexelsAPIKeys) > 0 {
		providers, err := images.NewPexelsClients(cfg.PexelsAPIKeys)
		if err != nil {
			util.Fatal("failed to init image providers", "err", err)
		}
		enricher = images.NewEnricher(providers, contentGen, logger)
	} else {
		logger.Warn("no image provider keys configured, decks render without images")
	}

	renderer, err := render.NewHTMLRenderer(cfg.OutputDir)
	if err != nil {
		util.Fatal("failed to init renderer", "err", err)
	}

	var deckArchive *archive.DeckArchive
	if cfg.MinioEndpoint != "" {
		deckArchive, err = archive.New(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			util.Fatal("failed to init deck archive", "err", err)
		}
	}

	var publisher *events.Publisher
	if cfg.AMQPURL != "" {
		publisher, err = events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			util.Fatal("failed to init event publisher", "err", err)
		}
		defer publisher.Close()
	}

	var flood *ratelimit.FloodLimiter
	if cfg.RedisAddr != "" {
		flood, err = ratelimit.NewFloodLimiter(cfg.RedisAddr, cfg.RedisPassword, "deckforge:flood", cfg.FloodLimitPerMin, time.Minute)
		if err != nil {
			util.Fatal("failed to init flood limiter", "err", err)
		}
	}

	application, err := app.New(app.Config{
		Store:    st,
		Ledger:   ledger,
		Content:  contentGen,
		Images:   enricher,
		Renderer: renderer,
		Archive:  deckArchive,
		Events:   publisher,
		Log:      logger,
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	flows := flow.NewMachine(flow.NewStore())
	tgBot, err := bot.New(cfg.TelegramToken, application, flows, flood, logger)
	if err != nil {
		util.Fatal("failed to init telegram bot", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tgBot.Start(ctx)
	})

	logger.Info("bot started", "quota_limit", ledger.Limit(), "quota_window", ledger.Window().String())
	if err := g.Wait(); err != nil {
		logger.Error("bot stopped with error", "err", err)
		os.Exit(1)
	}
	logger.Info("bot stopped")
}
