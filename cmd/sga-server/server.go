package main

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
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/sga/sga/internal/config"
	"github.com/sga/sga/internal/domain/account"
	"github.com/sga/sga/internal/domain/agenda"
	"github.com/sga/sga/internal/domain/medication"
	"github.com/sga/sga/internal/domain/patient"
	"github.com/sga/sga/internal/domain/visit"
	"github.com/sga/sga/internal/platform/apperr"
	"github.com/sga/sga/internal/platform/auth"
	"github.com/sga/sga/internal/platform/db"
	"github.com/sga/sga/internal/platform/kv"
	"github.com/sga/sga/internal/platform/middleware"
	"github.com/sga/sga/internal/platform/notification"
	"github.com/sga/sga/internal/platform/outbox"
)

const requestTimeout = 30 * time.Second

// deps is everything the router needs. Tests fill it with stubs.
type deps struct {
	cfg    *config.Config
	logger zerolog.Logger
	pool   db.Querier
	tx     db.TxRunner
	health echo.HandlerFunc
	tokens *auth.TokenService
	codes  kv.KV
	mailer account.Mailer
	loc    *time.Location
}

func newRouter(d deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.ErrorHandler(d.logger)

	e.Use(middleware.Recovery(d.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(d.logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(requestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     d.cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID},
		AllowCredentials: true,
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	if d.health != nil {
		e.GET("/health/db", d.health)
	}

	visits := visit.NewVisitRepoPG(d.pool)
	admins := visit.NewAdministrationRepoPG(d.pool)

	accountHandler := account.NewHandler(
		account.NewService(account.NewUserRepoPG(d.pool), d.tokens, d.codes, d.mailer, d.cfg.ResetCodeTTL, d.logger),
		!d.cfg.IsDev(),
	)
	patientHandler := patient.NewHandler(patient.NewService(patient.NewPatientRepoPG(d.pool)))
	medicationHandler := medication.NewHandler(medication.NewService(medication.NewMedicationRepoPG(d.pool)))
	visitHandler := visit.NewHandler(visit.NewService(d.tx, visits, admins, d.logger))
	agendaHandler := agenda.NewHandler(agenda.NewService(d.tx, agenda.Stores{
		Prescriptions:   agenda.NewPrescriptionRepoPG(d.pool),
		Events:          agenda.NewEventRepoPG(d.pool),
		Visits:          visits,
		Administrations: admins,
	}, outbox.NewRecorder(d.pool), d.loc, d.logger))

	api := e.Group("/api")
	accountHandler.RegisterPublicRoutes(api)

	protected := api.Group("", auth.Authenticate(d.tokens))
	accountHandler.RegisterRoutes(protected)
	patientHandler.RegisterRoutes(protected)
	medicationHandler.RegisterRoutes(protected)
	visitHandler.RegisterRoutes(protected)
	agendaHandler.RegisterRoutes(protected)

	return e
}

func newEmailSender(cfg *config.Config, logger zerolog.Logger) notification.EmailSender {
	if cfg.SMTPAddr == "" {
		logger.Warn().Msg("SMTP_ADDR not set; emails are written to the log")
		return notification.NewLogSender(logger)
	}
	return notification.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPassword)
}

func newCodeStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (kv.KV, func(), error) {
	if cfg.RedisURL == "" {
		logger.Warn().Msg("REDIS_URL not set; reset codes are kept in process memory")
		return kv.NewMemoryKV(), func() {}, nil
	}
	r, err := kv.Dial(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Msg("connected to redis")
	return r, func() { _ = r.Close() }, nil
}

// stoppedCleanly reports whether err is the normal end of a background loop
// or of the HTTP server during shutdown.
func stoppedCleanly(err error) bool {
	return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, http.ErrServerClosed)
}

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	codes, closeCodes, err := newCodeStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer closeCodes()

	e := newRouter(deps{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		tx:     db.NewTransactor(pool),
		health: db.HealthHandler(pool, func() *db.PoolStats { return db.GetPoolStats(pool) }),
		tokens: auth.NewTokenService([]byte(cfg.JWTSecret), cfg.JWTTTL),
		codes:  codes,
		mailer: notification.NewMailer(newEmailSender(cfg, logger), notification.NewTemplateEngine(), logger),
		loc:    loc,
	})

	store := outbox.NewStorePG(pool)
	if len(cfg.KafkaBrokers) > 0 {
		publisher := outbox.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		relay := outbox.NewRelay(store, publisher, logger)
		go func() {
			if err := relay.Run(ctx); !stoppedCleanly(err) {
				logger.Error().Err(err).Msg("outbox relay stopped")
			}
		}()
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", publisher.Topic()).Msg("outbox relay enabled")
	} else {
		logger.Warn().Msg("KAFKA_BROKERS not set; outbox events are kept in the database only")
	}

	scheduler := cron.New(cron.WithLocation(loc))
	if err := outbox.NewCleanup(store, cfg.OutboxRetentionDays, logger).Schedule(scheduler); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("clinic_timezone", loc.String()).Msg("starting server")
		if err := e.Start(addr); !stoppedCleanly(err) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
