package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/akolanti/irbench/internal/adapter/utils"
	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/middleware"
	"github.com/akolanti/irbench/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

var (
	server  *http.Server
	_logger = logger_i.NewLogger("Server")
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
}

// Routes mounts the job API on top of the swagger and metrics router.
func Routes() *chi.Mux {
	r := utils.NewRouter()
	r.Get("/health", middleware.GetHandler)
	r.Post("/jobs", middleware.PostJobHandler)
	r.Get("/status/{id}", middleware.GetStatusHandler)
	return r
}

func CreateServer(listenAddr string) {
	_logger = logger_i.NewLogger("Server")

	server = &http.Server{
		Addr:         listenAddr,
		Handler:      Routes(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err.Error(), "addr", listenAddr)
	}
}

// ShutDownHandler waits for a signal, drains the server, stops the workers
// once their current job returns and closes external services.
func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		if server != nil {
			server.SetKeepAlivesEnabled(false)
			if err := server.Shutdown(ctx); err != nil {
				_logger.Error("Could not shutdown gracefully", "error", err)
			}
		}

		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Shut down gracefully")
	case <-ctx.Done():
		_logger.Warn("Forced shut down")
		os.Exit(1)
	}
}
