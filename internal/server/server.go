package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/laxjovial/assistant-core/internal/adapter/utils"
	"github.com/laxjovial/assistant-core/internal/config"
	"github.com/laxjovial/assistant-core/internal/middleware"
	"github.com/laxjovial/assistant-core/pkg/logger_i"
)

var (
	server  *http.Server
	_logger *logger_i.Logger
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
}

func CreateServer(listenAddr string) {
	_logger = logger_i.NewLogger("Server")

	r := utils.GetRouter()

	r.Router.Get("/health", middleware.GetHandler)

	r.Router.Post("/auth/register", middleware.PostRegisterHandler)
	r.Router.Post("/auth/login", middleware.PostLoginHandler)
	r.Router.Post("/auth/logout", middleware.PostLogoutHandler)
	r.Router.Post("/auth/otp/request", middleware.PostOTPRequestHandler)
	r.Router.Post("/auth/otp/verify", middleware.PostOTPVerifyHandler)
	r.Router.Post("/auth/reset/request", middleware.PostResetRequestHandler)
	r.Router.Post("/auth/reset/confirm", middleware.PostResetConfirmHandler)

	r.Router.Post("/ingest", middleware.PostIngestHandler)
	r.Router.Post("/query", middleware.PostQueryHandler)
	r.Router.Get("/status/{id}", middleware.GetStatusHandler)
	r.Router.Post("/clear", middleware.PostClearHandler)
	r.Router.Post("/summarize", middleware.PostSummarizeHandler)
	r.Router.Post("/export", middleware.PostExportHandler)

	r.Router.Post("/tools/search", middleware.PostSearchHandler)
	r.Router.Post("/tools/fetch", middleware.PostFetchHandler)
	r.Router.Post("/tools/exec", middleware.PostExecHandler)

	server = &http.Server{
		Addr:         listenAddr,
		Handler:      r.Router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error :", err.Error(), "addr", listenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		server.SetKeepAlivesEnabled(false)

		if err := server.Shutdown(ctx); err != nil {
			_logger.Error("Could not shutdown gracefully: %s", err)
		}

		//close workers
		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully shut down")
	case <-ctx.Done():
		_logger.Info("Force Shut down")
		os.Exit(1)
	}
}
