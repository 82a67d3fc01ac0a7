package main // entry point: wires configuration, storage, services and HTTP

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/iliyamo/domain-marketplace/internal/config"
	"github.com/iliyamo/domain-marketplace/internal/database"
	"github.com/iliyamo/domain-marketplace/internal/gateway"
	"github.com/iliyamo/domain-marketplace/internal/handler"
	"github.com/iliyamo/domain-marketplace/internal/lock"
	"github.com/iliyamo/domain-marketplace/internal/logger"
	"github.com/iliyamo/domain-marketplace/internal/middleware"
	"github.com/iliyamo/domain-marketplace/internal/payment"
	"github.com/iliyamo/domain-marketplace/internal/queue"
	"github.com/iliyamo/domain-marketplace/internal/repository"
	"github.com/iliyamo/domain-marketplace/internal/router"
	"github.com/iliyamo/domain-marketplace/internal/service"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)
	zerolog.DefaultContextLogger = &log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	// Redis is optional: without it locking is process-local and the
	// response cache and rate limiter are disabled.
	rdb := config.NewRedisClient()
	var locker lock.Locker
	if rdb != nil {
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, "lock:onboarding")
	} else {
		log.Warn().Msg("redis unavailable; using in-process locks, cache and rate limit disabled")
		locker = lock.NewLocalLocker()
	}
	cacheCfg := config.LoadCacheConfig()
	invalidator := middleware.NewCacheInvalidator(cacheCfg.Prefix, rdb)

	domainRepo := repository.NewDomainRepo(db)
	offerRepo := repository.NewOfferRepo(db)
	profileRepo := repository.NewProfileRepo(db)
	purchaseRepo := repository.NewPurchaseRepo(db)

	hosting := gateway.NewHostingClient(cfg.HostingAPIURL, cfg.HostingAPIToken, cfg.HostingProjectID, cfg.HostingTeamID, cfg.ExternalTimeout)
	mailer := gateway.NewEmailClient(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailFrom, cfg.ExternalTimeout)
	registrar := gateway.NewRegistrarClient(cfg.RegistrarAPIURL, cfg.RegistrarAPIKey, cfg.ExternalTimeout)
	stripeGW := payment.NewGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	onboarding := service.NewOnboarding(service.OnboardingDeps{
		Domains:  domainRepo,
		Profiles: profileRepo,
		Hosting:  hosting,
		Mailer:   mailer,
		Cache:    invalidator,
		Locker:   locker,
		LockTTL:  cfg.OnboardingLockTTL,
		Log:      log,
	})
	domains := service.NewDomains(domainRepo, hosting, invalidator, log)
	offers := service.NewOffers(domainRepo, offerRepo, profileRepo, mailer, invalidator, log)
	reconciler := service.NewReconciler(service.ReconcilerDeps{
		Purchases:  purchaseRepo,
		Profiles:   profileRepo,
		Domains:    domainRepo,
		Registrar:  registrar,
		Billing:    stripeGW,
		PriceTiers: cfg.StripePriceTiers,
		Log:        log,
	})
	runner := service.NewEventRunner(reconciler, cfg.WebhookMaxAttempts, cfg.WebhookRetryInterval, log)

	// Background work outlives individual requests but stops with the
	// process.
	workCtx, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()
	background := service.NewBackgroundDispatcher(workCtx, runner, log)
	var dispatcher service.Dispatcher = background
	if cfg.RabbitMQURL != "" {
		pub := queue.NewPublisher(cfg.RabbitMQURL, log)
		defer pub.Close()
		dispatcher = service.NewQueueDispatcher(pub, background, log)
		consumer := queue.NewConsumer(cfg.RabbitMQURL, runner, log)
		go func() {
			if err := consumer.Run(workCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("billing consumer stopped")
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(logger.RequestLogger(log))
	if len(cfg.AllowedOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
			AllowCredentials: true,
		}))
	}

	domainHandler := handler.NewDomainHandler(onboarding, domains, offers, log)
	offerHandler := handler.NewOfferHandler(offers, log)
	webhookHandler := handler.NewWebhookHandler(stripeGW, dispatcher, log)

	router.RegisterRoutes(e, db)
	router.RegisterPublic(e, offerHandler, webhookHandler, cfg.AllowedOrigins,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))
	router.RegisterOwner(e, router.OwnerDeps{
		Domains:   domainHandler,
		Offers:    offerHandler,
		JWTSecret: cfg.JWTSecret,
		Origins:   cfg.AllowedOrigins,
		Cache:     middleware.NewRedisCache(cacheCfg, rdb),
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := background.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("in-flight events did not finish before shutdown")
	}
}
