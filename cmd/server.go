package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	wire "droneapi/internal/pkg/drone"
	"droneapi/internal/pkg/logging"
	"droneapi/internal/pkg/metrics"
	"droneapi/internal/pkg/upstream"
	"droneapi/pkg/config"
)

const shutdownGracePeriod = 10 * time.Second

type (
	configLister interface {
		ListConfigs(ctx context.Context) ([]wire.Config, error)
	}

	logStore interface {
		ListLogs(ctx context.Context, q upstream.LogQuery) (*wire.LogPage, error)
		CreateLog(ctx context.Context, entry wire.NewLog) (*wire.Log, error)
	}

	environment struct {
		HttpServer *http.Server
		Router     *mux.Router
		Config     *config.Config
		Logger     *zap.Logger
		Metrics    *metrics.Metrics
		configs    configLister
		logs       logStore
		now        func() time.Time
	}
)

func newEnvironment(cfg *config.Config, logger *zap.Logger) (*environment, error) {

	env := &environment{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
		now:     time.Now,
	}

	httpClient := &http.Client{Timeout: cfg.UpstreamTimeout}

	configs, err := upstream.NewConfigStore(cfg.ConfigServerURL, httpClient, env.Metrics)
	if err != nil {
		return nil, errors.Wrap(err, "could not create config store client")
	}
	env.configs = configs

	logs, err := upstream.NewLogStore(cfg.LogURL, cfg.LogAPIToken, httpClient, env.Metrics)
	if err != nil {
		return nil, errors.Wrap(err, "could not create log store client")
	}
	env.logs = logs

	env.Router = env.routes()

	env.HttpServer = &http.Server{
		Handler:           env.handler(),
		Addr:              fmt.Sprintf(":%s", cfg.ApiPort),
		WriteTimeout:      60 * time.Second,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return env, nil
}

func (env *environment) routes() *mux.Router {

	router := mux.NewRouter()

	router.HandleFunc("/health", env.GetHealth).Methods(http.MethodGet)
	router.HandleFunc("/configs/{droneId}", env.GetConfig).Methods(http.MethodGet)
	router.HandleFunc("/status/{droneId}", env.GetStatus).Methods(http.MethodGet)
	router.HandleFunc("/logs/{droneId}", env.GetLogs).Methods(http.MethodGet)
	router.HandleFunc("/logs", env.CreateLog).Methods(http.MethodPost)
	router.Handle("/metrics", env.Metrics.Handler()).Methods(http.MethodGet)

	// preflights without an Origin never reach the CORS handler
	router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return router
}

// handler wraps the router with metrics and request logging, and with CORS
// for requests carrying an Origin.
func (env *environment) handler() http.Handler {

	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(env.Config.CORSOrigins),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", "Authorization", logging.RequestIDHeader}),
		gorillahandlers.ExposedHeaders([]string{logging.RequestIDHeader}),
		gorillahandlers.OptionStatusCode(http.StatusNoContent),
	)

	instrumented := env.Metrics.Instrument(env.Router)
	withCORS := cors(instrumented)
	router := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Origin") == "" {
			instrumented.ServeHTTP(w, r)
			return
		}
		withCORS.ServeHTTP(w, r)
	})

	return logging.Middleware(env.Logger)(router)
}

// serve listens until ctx is done, then drains in-flight requests.
func (env *environment) serve(ctx context.Context) error {

	errCh := make(chan error, 1)
	go func() {
		env.Logger.Info("drone api is live", zap.String("addr", env.HttpServer.Addr))
		errCh <- env.HttpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "could not serve")
	case <-ctx.Done():
	}

	env.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()

	if err := env.HttpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "could not shut down cleanly")
	}

	return nil
}
