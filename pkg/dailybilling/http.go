package dailybilling

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const (
	APIV1RunEndpoint = "/api/v1/run"
	HealthyEndpoint  = "/healthy"
	MetricsEndpoint  = "/metrics"
)

type server struct {
	logger    log.FieldLogger
	scheduler *Scheduler
}

type requestLogger struct {
	log.FieldLogger
}

func (l *requestLogger) Print(v ...interface{}) {
	l.FieldLogger.Info(v...)
}

type statusResponse struct {
	Status  string      `json:"status"`
	Details interface{} `json:"details,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter serves health, prometheus metrics and on-demand runs.
func NewRouter(logger log.FieldLogger, scheduler *Scheduler) chi.Router {
	router := chi.NewRouter()
	logger = logger.WithField("component", "api")
	router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: &requestLogger{logger}}))

	srv := &server{
		logger:    logger,
		scheduler: scheduler,
	}

	router.Get(HealthyEndpoint, srv.healthyHandler)
	router.Method(http.MethodGet, MetricsEndpoint, promhttp.Handler())
	router.Post(APIV1RunEndpoint, srv.runHandler)
	return router
}

func (srv *server) healthyHandler(w http.ResponseWriter, r *http.Request) {
	writeResponseAsJSON(srv.logger, w, http.StatusOK, statusResponse{Status: "ok"})
}

func (srv *server) runHandler(w http.ResponseWriter, r *http.Request) {
	logger := srv.logger.WithFields(log.Fields{
		"method":  r.Method,
		"url":     r.URL.String(),
		"trigger": "api",
	})
	result, err := srv.scheduler.Trigger(r.Context())
	if err != nil {
		logger.WithError(err).Errorf("run failed")
		writeErrorResponse(logger, w, http.StatusInternalServerError, "run failed: %v", err)
		return
	}
	writeResponseAsJSON(logger, w, http.StatusOK, result)
}

func writeErrorResponse(logger log.FieldLogger, w http.ResponseWriter, status int, message string, args ...interface{}) {
	msg := fmt.Sprintf(message, args...)
	writeResponseAsJSON(logger, w, status, errorResponse{Error: msg})
}

// writeResponseAsJSON attempts to marshal an arbitrary thing to JSON then write
// it to the http.ResponseWriter
func writeResponseAsJSON(logger log.FieldLogger, w http.ResponseWriter, code int, resp interface{}) {
	enc, err := json.Marshal(resp)
	if err != nil {
		logger.WithError(err).Error("failed JSON-encoding HTTP response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err = w.Write(enc); err != nil {
		logger.WithError(err).Error("failed writing HTTP response")
	}
}

// Serve runs the scheduler and the HTTP server on addr until ctx is done.
func Serve(ctx context.Context, logger log.FieldLogger, addr string, scheduler *Scheduler) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: NewRouter(logger, scheduler),
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("HTTP server listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server failed: %v", err)
		}
	}()
	go func() {
		errCh <- scheduler.Run(ctx)
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := httpServer.Shutdown(shutdownCtx); serr != nil {
		logger.WithError(serr).Errorf("HTTP server shutdown failed")
	}
	return err
}
