package servehttp

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"procurement/account"
	"procurement/bizerror"
	"procurement/infra/tracing"
	"procurement/requests"
	"procurement/session"
	"procurement/sessions"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 3 * time.Second

// NewEngine wires every route of the service onto a new gin engine.
func NewEngine(accounts *account.Service, reqs *requests.Service) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.LoggerWithWriter(logrus.StandardLogger().WriterLevel(logrus.DebugLevel)))
	engine.Use(tracing.TracingIngress())
	engine.Use(bizerror.ErrorHandling())

	read := []gin.HandlerFunc{session.RequireSession(accounts)}
	write := []gin.HandlerFunc{session.RequirePrivileged(accounts)}

	RegisterStatusHandler(engine, accounts, reqs)
	sessions.RegisterSessionHandler(engine, accounts)
	account.RegisterUsersHandler(engine, accounts, write...)
	account.RegisterSectorsHandler(engine, accounts, read, write)
	requests.RegisterRequestsHandler(engine, reqs, read, write)
	requests.RegisterFormFieldsHandler(engine, reqs, read, write)
	requests.RegisterStatusesHandler(engine, reqs, read, write)

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return engine
}

// StartHTTPServer serves until SIGINT or SIGTERM, then shuts down gracefully.
func StartHTTPServer(addr string, engine *gin.Engine) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Serve(ctx, addr, engine)
}

// Serve serves until ctx is done.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	failed := make(chan error, 1)
	go func() {
		logrus.WithField("addr", addr).Info("http server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
		close(failed)
	}()

	select {
	case err, ok := <-failed:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logrus.Info("[QUIT] shutdown signal has been received, the service will exit")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logrus.Info("[QUIT] http server is shutdown gracefully, new request will be rejected")
	return nil
}
