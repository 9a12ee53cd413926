package main

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/medbook/api/internal/config"
	"github.com/medbook/api/internal/domain/admin"
	"github.com/medbook/api/internal/domain/identity"
	"github.com/medbook/api/internal/domain/recommend"
	"github.com/medbook/api/internal/domain/scheduling"
	"github.com/medbook/api/internal/platform/auth"
	"github.com/medbook/api/internal/platform/db"
	"github.com/medbook/api/internal/platform/metrics"
	"github.com/medbook/api/internal/platform/middleware"
	"github.com/medbook/api/internal/platform/notification"
)

const maxBodySize = "1M"

// app holds the wired services of one server process.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
	issuer  *auth.TokenIssuer

	identity   *identity.Service
	scheduling *scheduling.Service
	admin      *admin.Service
	recommend  *recommend.Service
}

func newApp(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool) *app {
	m := metrics.New()
	if pool != nil {
		m.RegisterPool(pool)
	}
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)

	users := identity.NewUserRepoPG(pool)
	appts := scheduling.NewAppointmentRepoPG(pool)
	mailer := notification.NewMailer(newEmailSender(cfg, logger), notification.NewTemplateEngine(),
		notification.WithRetry(2, 500*time.Millisecond),
		notification.WithObserver(m))

	var external recommend.Classifier
	if cfg.OpenAIAPIKey != "" {
		external = recommend.NewOpenAIClassifier(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	}

	schedSvc := scheduling.NewService(appts, users, db.NewTransactor(pool), mailer, m, logger)
	return &app{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		metrics:    m,
		issuer:     issuer,
		identity:   identity.NewService(users, issuer, m, logger),
		scheduling: schedSvc,
		admin:      admin.NewService(users, schedSvc, logger),
		recommend:  recommend.NewService(external, m, logger),
	}
}

func newEmailSender(cfg *config.Config, logger zerolog.Logger) notification.EmailSender {
	if !cfg.MailEnabled() {
		logger.Warn().Msg("MAIL_USERNAME not set, appointment emails will only be logged")
		return notification.NewLogSender(logger)
	}
	return notification.NewSMTPSender(notification.SMTPConfig{
		Host:     cfg.MailServer,
		Port:     cfg.MailPort,
		Username: cfg.MailUsername,
		Password: cfg.MailPassword,
		From:     cfg.MailDefaultSender,
		UseTLS:   cfg.MailUseTLS,
	})
}

func (a *app) router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Pre(echomw.RemoveTrailingSlash())

	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(a.metrics.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: a.cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(maxBodySize))
	e.Use(middleware.RequestTimeout(a.cfg.RequestTimeout))
	e.Use(auth.JWTMiddleware(auth.JWTConfig{Issuer: a.issuer, Skipper: auth.AuthSkipper}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(a.pool))
	e.GET("/metrics", echo.WrapHandler(a.metrics.Handler()))

	rateCfg := middleware.RateLimitConfig{
		RequestsPerSecond: a.cfg.RateLimitRPS,
		BurstSize:         a.cfg.RateLimitBurst,
		IdleTTL:           middleware.DefaultRateLimitConfig().IdleTTL,
	}
	if rateCfg.RequestsPerSecond <= 0 {
		rateCfg = middleware.DefaultRateLimitConfig()
	}

	api := e.Group("/api")
	identity.NewHandler(a.identity).RegisterRoutes(api, middleware.RateLimit(rateCfg))
	scheduling.NewHandler(a.scheduling).RegisterRoutes(api)
	admin.NewHandler(a.admin).RegisterRoutes(api)
	recommend.NewHandler(a.recommend).RegisterRoutes(api)

	return e
}
