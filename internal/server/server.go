// Пакет server — HTTP-сервер ChallengeUp с graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Vladimir-Titov/challengeup/internal/config"
)

// RouteRegistrar регистрирует маршруты API в роутере.
// auth оборачивает изменяющие запросы; nil — без аутентификации.
type RouteRegistrar interface {
	Routes(r chi.Router, auth func(http.Handler) http.Handler)
}

// Server — HTTP-сервер ChallengeUp.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер. middlewares применяются ко всем маршрутам
// в порядке переданного среза, auth — только к изменяющим запросам.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	api RouteRegistrar,
	auth func(http.Handler) http.Handler,
	middlewares ...func(http.Handler) http.Handler,
) *Server {
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID, chimw.Recoverer)
	for _, mw := range middlewares {
		router.Use(mw)
	}
	api.Routes(router, auth)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger.With(slog.String("component", "http_server")),
		cfg:        cfg,
	}
}

// Handler возвращает корневой обработчик сервера.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run запускает сервер и ждёт SIGINT/SIGTERM или отмены ctx,
// после чего выполняет graceful shutdown с таймаутом cfg.ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP-сервер запущен", slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Получен сигнал завершения")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
