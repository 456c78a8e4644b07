// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"content-pipeline/internal/config"
	"content-pipeline/internal/domain/model"
	"content-pipeline/internal/domain/ports/adapter"
	"content-pipeline/internal/domain/ports/repository"
	"content-pipeline/internal/infra/adapters/image"
	"content-pipeline/internal/infra/adapters/notify"
	"content-pipeline/internal/infra/adapters/social"
	"content-pipeline/internal/infra/adapters/translate"
	pg "content-pipeline/internal/infra/db/postgres"
	"content-pipeline/internal/infra/i18n"
	"content-pipeline/internal/infra/logging"
	"content-pipeline/internal/infra/metrics"
	red "content-pipeline/internal/infra/redis"
	"content-pipeline/internal/infra/sched"
	"content-pipeline/internal/infra/web"
	"content-pipeline/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop adapters for missing credentials)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.PoolSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	tm := pg.NewTxManager(pool)
	contentRepo := pg.NewContentRepo(pool, tm)
	auditRepo := pg.NewApprovalLogRepo(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer func() { _ = redisClient.Close() }()
	limiter := red.NewRateLimiter(redisClient)

	// ---- Notifier ----
	var notifier adapter.Notifier
	if cfg.Telegram.Token != "" {
		tr, err := i18n.NewTranslator(i18n.LocalesFS, "uk")
		if err != nil {
			logger.Fatal().Err(err).Msg("i18n catalog failed")
		}
		notifier, err = notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID, tr, *logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram notifier failed")
		}
	} else {
		if !cfg.Runtime.Dev {
			logger.Warn().Msg("telegram.token not set; moderator notifications disabled")
		}
		notifier = notify.NewNoopNotifier(*logger)
	}

	// ---- Platform posters ----
	posters := make(map[model.Platform]adapter.PlatformPoster)
	if cfg.Facebook.PageID != "" && cfg.Facebook.PageAccessToken != "" {
		fb, err := social.NewFacebookPoster(cfg.Facebook.PageID, cfg.Facebook.PageAccessToken, cfg.Facebook.GraphVersion, *logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("facebook poster failed")
		}
		posters[model.PlatformFacebook] = fb
	} else if cfg.Runtime.Dev {
		posters[model.PlatformFacebook] = social.NewNoopPoster(model.PlatformFacebook)
	}
	if cfg.LinkedIn.AccessToken != "" && cfg.LinkedIn.OrganizationURN != "" {
		li, err := social.NewLinkedInPoster(cfg.LinkedIn.AccessToken, cfg.LinkedIn.OrganizationURN, *logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("linkedin poster failed")
		}
		posters[model.PlatformLinkedIn] = li
	} else if cfg.Runtime.Dev {
		posters[model.PlatformLinkedIn] = social.NewNoopPoster(model.PlatformLinkedIn)
	}
	if len(posters) == 0 {
		logger.Fatal().Msg("no platform credentials configured; nothing to publish to")
	}
	platforms := make([]model.Platform, 0, len(posters))
	for _, p := range model.AllPlatforms {
		if _, ok := posters[p]; ok {
			platforms = append(platforms, p)
		}
	}

	// ---- Content collaborators ----
	var textTranslator adapter.Translator
	if cfg.Translation.OpenAIKey != "" {
		textTranslator, err = translate.NewOpenAITranslator(cfg.Translation.OpenAIKey, cfg.Translation.Model)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai translator failed")
		}
	} else {
		logger.Warn().Msg("translation.openai_key not set; using noop translator")
		textTranslator = translate.NewNoopTranslator()
	}

	var imageGen adapter.ImageGenerator
	if cfg.Image.GeminiKey != "" {
		imageGen, err = image.NewGeminiGenerator(ctx, cfg.Image.GeminiKey, cfg.Image.Model)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini generator failed")
		}
	} else {
		logger.Warn().Msg("image.gemini_key not set; using noop image generator")
		imageGen = image.NewNoopGenerator()
	}

	// ---- Use cases ----
	publishUC := usecase.NewPublishUseCase(
		contentRepo, posters, notifier, limiter,
		cfg.Scheduler.StaleClaimAge, cfg.RateLimit.PerPlatformPerHour, cfg.API.PublicBaseURL,
		logger,
	)
	approvalUC := usecase.NewApprovalUseCase(contentRepo, auditRepo, tm, notifier, publishUC, logger)
	pipelineUC := usecase.NewPipelineUseCase(contentRepo, textTranslator, imageGen, notifier, cfg.Translation.TargetLang, logger)
	maintenanceUC := usecase.NewMaintenanceUseCase(contentRepo, publishUC, notifier, platforms, cfg.Scheduler.CleanupAfter, logger)
	statsUC := usecase.NewStatsUseCase(contentRepo, platforms, logger)

	// ---- Scheduler ----
	scheduler, err := sched.New(cfg.Scheduler.Timezone, *logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler init failed")
	}
	registerJobs(cfg, scheduler, logger, posters, publishUC, pipelineUC, maintenanceUC)

	// Missed-schedule catch-up runs before the cron loop starts, so a
	// restart after downtime repairs the backlog immediately.
	sched.RunCatchUp(ctx, *logger, catchUpRules(cfg, contentRepo, posters, publishUC, pipelineUC))
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// ---- Moderation API ----
	auth := web.NewAuthManager(cfg.API.JWTSecret, cfg.API.Moderators, !cfg.Runtime.Dev, "", cfg.API.SessionTTL)
	apiServer := web.NewServer(approvalUC, statsUC, scheduler, auth, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.API.Port),
		Handler: apiServer.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("moderation api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	cancel()
}

func registerJobs(
	cfg *config.Config,
	scheduler *sched.Service,
	logger *zerolog.Logger,
	posters map[model.Platform]adapter.PlatformPoster,
	publishUC usecase.PublishUseCase,
	pipelineUC usecase.PipelineUseCase,
	maintenanceUC usecase.MaintenanceUseCase,
) {
	mustRegister := func(spec sched.JobSpec, run func(ctx context.Context) error) {
		if err := scheduler.Register(spec, run); err != nil {
			logger.Fatal().Err(err).Str("job", spec.ID).Str("spec", spec.Spec).Msg("job registration failed")
		}
	}

	if _, ok := posters[model.PlatformFacebook]; ok {
		mustRegister(sched.JobSpec{
			ID:      "post_facebook",
			Name:    "facebook publish sweep",
			Spec:    cfg.Facebook.PostCron,
			Timeout: cfg.Scheduler.SweepTimeout,
			Grace:   cfg.Scheduler.MisfireGrace,
		}, func(ctx context.Context) error {
			_, err := publishUC.SweepPlatform(ctx, model.PlatformFacebook)
			return err
		})
	}
	if _, ok := posters[model.PlatformLinkedIn]; ok {
		mustRegister(sched.JobSpec{
			ID:      "post_linkedin",
			Name:    "linkedin publish sweep",
			Spec:    cfg.LinkedIn.PostCron,
			Timeout: cfg.Scheduler.SweepTimeout,
			Grace:   cfg.Scheduler.MisfireGrace,
		}, func(ctx context.Context) error {
			_, err := publishUC.SweepPlatform(ctx, model.PlatformLinkedIn)
			return err
		})
	}

	mustRegister(sched.JobSpec{
		ID:      "translate",
		Name:    "translation sweep",
		Spec:    cfg.Scheduler.TranslateCron,
		Timeout: cfg.Scheduler.SweepTimeout,
		Grace:   cfg.Scheduler.MisfireGrace,
	}, func(ctx context.Context) error {
		_, err := pipelineUC.TranslatePending(ctx, 0)
		return err
	})
	mustRegister(sched.JobSpec{
		ID:      "illustrate",
		Name:    "image generation sweep",
		Spec:    cfg.Scheduler.ImageCron,
		Timeout: cfg.Scheduler.SweepTimeout,
		Grace:   cfg.Scheduler.MisfireGrace,
	}, func(ctx context.Context) error {
		_, err := pipelineUC.GenerateImages(ctx, 0)
		return err
	})
	mustRegister(sched.JobSpec{
		ID:    "cleanup",
		Name:  "rejected item cleanup",
		Spec:  cfg.Scheduler.CleanupCron,
		Grace: cfg.Scheduler.MisfireGrace,
	}, func(ctx context.Context) error {
		_, err := maintenanceUC.CleanupRejected(ctx)
		return err
	})
	mustRegister(sched.JobSpec{
		ID:    "health",
		Name:  "platform credential check",
		Spec:  cfg.Scheduler.HealthCron,
		Grace: cfg.Scheduler.MisfireGrace,
	}, func(ctx context.Context) error {
		// Failures alert through the notifier; the job itself succeeds.
		maintenanceUC.CheckPlatformHealth(ctx)
		return nil
	})
}

// catchUpRules repairs missed work after downtime: stale processing
// backlogs get a sweep, and platforms that have not published within their
// expected cadence get an immediate publish tick.
func catchUpRules(
	cfg *config.Config,
	contents repository.ContentRepository,
	posters map[model.Platform]adapter.PlatformPoster,
	publishUC usecase.PublishUseCase,
	pipelineUC usecase.PipelineUseCase,
) []sched.CatchUpRule {
	rules := []sched.CatchUpRule{
		{
			Name:      "processing",
			Threshold: cfg.Scheduler.CatchUpContent,
			LastActivity: func(ctx context.Context) (time.Time, error) {
				return contents.LatestCreatedAt(ctx, repository.NoTX)
			},
			Run: func(ctx context.Context) error {
				if _, err := pipelineUC.TranslatePending(ctx, 0); err != nil {
					return err
				}
				_, err := pipelineUC.GenerateImages(ctx, 0)
				return err
			},
		},
	}

	thresholds := map[model.Platform]time.Duration{
		model.PlatformFacebook: cfg.Scheduler.CatchUpFB,
		model.PlatformLinkedIn: cfg.Scheduler.CatchUpLI,
	}
	for _, platform := range model.AllPlatforms {
		if _, ok := posters[platform]; !ok {
			continue
		}
		p := platform
		rules = append(rules, sched.CatchUpRule{
			Name:      "publish_" + string(p),
			Threshold: thresholds[p],
			LastActivity: func(ctx context.Context) (time.Time, error) {
				return contents.LatestPostedAt(ctx, repository.NoTX, p)
			},
			Run: func(ctx context.Context) error {
				_, err := publishUC.SweepPlatform(ctx, p)
				return err
			},
		})
	}
	return rules
}
