package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/broker"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/infra"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/notification/internal/mail"
	"github.com/Alturino/storefront/notification/internal/service"
)

func newMailer(c context.Context, cfg config.Mail) (mail.Mailer, error) {
	if cfg.APIKey == "" {
		zerolog.Ctx(c).Warn().Str(log.KeyTag, "newMailer").Msg("mail api key is empty, emails are only logged")
		return mail.LogMailer{}, nil
	}
	return mail.NewResendMailer(cfg)
}

// RunNotification consumes order events and sends emails until c is cancelled.
func RunNotification(c context.Context, cfg *config.Config) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyAppName, constants.AppNotification).
		Str(log.KeyTag, "main RunNotification").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing otel sdk").Logger()
	logger.Info().Msg("initializing otel sdk")
	c = logger.WithContext(c)
	shutdownFuncs, err := otel.InitOtelSdk(c, constants.AppNotification, cfg.Otel)
	if err != nil {
		err = fmt.Errorf("failed initializing otel sdk with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer func() {
		logger.Info().Msg("shutting down otel")
		if err := otel.ShutdownOtel(context.WithoutCancel(c), shutdownFuncs); err != nil {
			err = fmt.Errorf("failed shutting down otel with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("shutdown otel")
	}()
	logger.Info().Msg("initialized otel sdk")

	logger = logger.With().Str(log.KeyProcess, "initializing cache").Logger()
	logger.Info().Msg("initializing cache")
	cacheClient, err := infra.NewCacheClient(c, cfg.Cache)
	if err != nil {
		err = fmt.Errorf("failed initializing cache with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer cacheClient.Close()
	logger.Info().Msg("initialized cache")

	logger = logger.With().Str(log.KeyProcess, "initializing subscriber").Logger()
	logger.Info().Msg("initializing subscriber")
	subscriber, err := broker.NewSubscriber(cfg.Broker, cacheClient)
	if err != nil {
		err = fmt.Errorf("failed initializing subscriber with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer subscriber.Close()
	logger.Info().Str("kind", cfg.Broker.Kind).Msg("initialized subscriber")

	logger = logger.With().Str(log.KeyProcess, "initializing mailer").Logger()
	logger.Info().Msg("initializing mailer")
	mailer, err := newMailer(c, cfg.Mail)
	if err != nil {
		err = fmt.Errorf("failed initializing mailer with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	notificationService := service.NewNotificationService(cacheClient, mailer, cfg.Payment.Currency)
	logger.Info().Msg("initialized mailer")

	logger = logger.With().Str(log.KeyProcess, "initializing server").Logger()
	logger.Info().Msg("initializing server")
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	server := http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Application.Host, cfg.Application.MetricsPort),
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(c) },
		Handler:      router,
		ReadTimeout:  45 * time.Second,
		WriteTimeout: 45 * time.Second,
	}
	logger.Info().Msg("initialized server")

	go func() {
		logger := logger.With().Str(log.KeyProcess, "start server").Logger()
		logger.Info().Msgf("start listening request at %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			err = fmt.Errorf("error=%w occured while server is running", err)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("shutdown server")
	}()

	logger = logger.With().Str(log.KeyProcess, "consuming events").Logger()
	logger.Info().Strs(log.KeyTopic, service.Topics).Msg("consuming events")
	if err := notificationService.Run(c, subscriber); err != nil {
		err = fmt.Errorf("failed consuming events with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
	}

	logger = logger.With().Str(log.KeyProcess, "shutdown server").Logger()
	logger.Info().Msg("received interuption signal shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(c), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		err = fmt.Errorf("failed shutting down server with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Info().Msg("notification completely shutdown")
}
