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
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	cartCmd "github.com/Alturino/storefront/cart/cmd"
	"github.com/Alturino/storefront/internal/auth"
	"github.com/Alturino/storefront/internal/broker"
	"github.com/Alturino/storefront/internal/cache"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/infra"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/middleware"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/outbox"
	"github.com/Alturino/storefront/internal/repository"
	orderCmd "github.com/Alturino/storefront/order/cmd"
	"github.com/Alturino/storefront/payment"
	productCmd "github.com/Alturino/storefront/product/cmd"
	userCmd "github.com/Alturino/storefront/user/cmd"
)

func runServe(c context.Context, cfg *config.Config) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyAppName, constants.AppAPI).
		Str(log.KeyTag, "main runServe").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing otel sdk").Logger()
	logger.Info().Msg("initializing otel sdk")
	c = logger.WithContext(c)
	shutdownFuncs, err := otel.InitOtelSdk(c, constants.AppAPI, cfg.Otel)
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

	logger = logger.With().Str(log.KeyProcess, "initializing database").Logger()
	logger.Info().Msg("initializing database")
	pool, err := infra.NewDatabaseClient(c, cfg.Database)
	if err != nil {
		err = fmt.Errorf("failed initializing database with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer pool.Close()
	logger.Info().Msg("initialized database")

	logger = logger.With().Str(log.KeyProcess, "migrating database").Logger()
	logger.Info().Msg("migrating database")
	if err := infra.Migrate(c, cfg.Database, infra.MigrationUp); err != nil {
		err = fmt.Errorf("failed migrating database with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Info().Msg("migrated database")

	logger = logger.With().Str(log.KeyProcess, "initializing cache").Logger()
	logger.Info().Msg("initializing cache")
	cacheClient, err := infra.NewCacheClient(c, cfg.Cache)
	if err != nil {
		err = fmt.Errorf("failed initializing cache with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer cacheClient.Close()
	productCache := cache.NewProductCache(cacheClient, cfg.Cache.ProductTTL)
	logger.Info().Msg("initialized cache")

	logger = logger.With().Str(log.KeyProcess, "initializing publisher").Logger()
	logger.Info().Msg("initializing publisher")
	publisher, err := broker.NewPublisher(cfg.Broker, cacheClient)
	if err != nil {
		err = fmt.Errorf("failed initializing publisher with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer publisher.Close()
	logger.Info().Str("kind", cfg.Broker.Kind).Msg("initialized publisher")

	store := repository.NewStore(pool)
	issuer := auth.NewTokenIssuer(cfg.Application.SecretKey, cfg.Application.TokenTTL)
	gateway := payment.NewStripeGateway(c, cfg.Payment, cfg.Application.BaseURL)

	logger = logger.With().Str(log.KeyProcess, "initializing router").Logger()
	logger.Info().Msg("initializing router")
	router := mux.NewRouter()
	router.Use(otelmux.Middleware(constants.AppAPI), middleware.Logging, middleware.RecoverPanic)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	authenticated := middleware.Auth(issuer)
	userCmd.AttachUser(router, authenticated, store, issuer)
	productCmd.AttachProduct(router, authenticated, store, productCache)
	cartCmd.AttachCart(router, authenticated, store)
	orderCmd.AttachOrder(router, authenticated, store, productCache, gateway)
	logger.Info().Msg("initialized router")

	logger = logger.With().Str(log.KeyProcess, "starting outbox relay").Logger()
	logger.Info().Msg("starting outbox relay")
	relay := outbox.NewRelay(store, publisher, cfg.Outbox.Interval, cfg.Outbox.BatchSize)
	relayCtx, stopRelay := context.WithCancel(c)
	defer stopRelay()
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relayLogger := logger.With().Str(log.KeyAppName, constants.AppOutboxRelay).Logger()
		relay.Run(relayLogger.WithContext(relayCtx))
	}()

	logger = logger.With().Str(log.KeyProcess, "initializing server").Logger()
	logger.Info().Msg("initializing server")
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Application.Host, cfg.Application.Port),
		BaseContext:  detachedBaseContext(c),
		Handler:      router,
		ReadTimeout:  45 * time.Second,
		WriteTimeout: 45 * time.Second,
	}
	logger.Info().Msg("initialized server")

	if err := serveHTTP(c, server, 30*time.Second); err != nil {
		logger.Error().Err(err).Msg(err.Error())
	}
	stopRelay()

	<-relayDone
	logger.Info().Msg("server completely shutdown")
}

// detachedBaseContext keeps the values of c for every request but not its cancellation, so
// in-flight requests finish during a graceful shutdown.
func detachedBaseContext(c context.Context) func(net.Listener) context.Context {
	return func(net.Listener) context.Context { return context.WithoutCancel(c) }
}

// serveHTTP runs server until c is cancelled or the listener fails, then shuts it down and
// waits up to timeout for in-flight requests.
func serveHTTP(c context.Context, server *http.Server, timeout time.Duration) error {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "main serveHTTP").
		Str(log.KeyProcess, "start server").
		Logger()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Msgf("start listening request at %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("error=%w occured while server is running", err)
			return
		}
		logger.Info().Msg("shutdown server")
	}()

	logger = logger.With().Str(log.KeyProcess, "shutdown server").Logger()
	var runErr error
	select {
	case <-c.Done():
		logger.Info().Msg("received interuption signal shutting down")
	case runErr = <-serverErr:
		logger.Error().Err(runErr).Msg("server stopped unexpectedly shutting down")
	}

	logger.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(c), timeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		err = fmt.Errorf("failed shutting down server with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return errors.Join(runErr, err)
	}
	logger.Info().Msg("shutdown http server")

	return runErr
}
