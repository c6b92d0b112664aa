// serve.go — команда serve: миграции, пул PostgreSQL, сервисы и HTTP-сервер.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/Vladimir-Titov/challengeup/internal/api/handlers"
	"github.com/Vladimir-Titov/challengeup/internal/api/middleware"
	"github.com/Vladimir-Titov/challengeup/internal/config"
	"github.com/Vladimir-Titov/challengeup/internal/database"
	"github.com/Vladimir-Titov/challengeup/internal/domain/model"
	"github.com/Vladimir-Titov/challengeup/internal/repository"
	"github.com/Vladimir-Titov/challengeup/internal/server"
	"github.com/Vladimir-Titov/challengeup/internal/service"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	// 1. Конфигурация и логгер
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}
	logger := config.SetupLogger(cfg)
	logger.Info("ChallengeUp запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// 2. Пул соединений PostgreSQL (с повторами) и миграции
	pool, err := database.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	// 3. Репозитории и сервисы
	repos := repository.NewRepositories(pool, logger)
	users := service.NewUserService(repos.Users,
		service.NewEntityCache[model.User]("user", cfg.CacheSize, cfg.CacheTTL), logger)
	services := handlers.Services{
		Challenges: service.NewChallengeService(repos.Challenges,
			service.NewEntityCache[model.Challenge]("challenge", cfg.CacheSize, cfg.CacheTTL), logger),
		Users: users,
		UserContacts: service.NewUserContactService(repos.UserContacts, users,
			service.NewEntityCache[model.UserContact]("user_contact", cfg.CacheSize, cfg.CacheTTL), logger),
		UserChallenges: service.NewUserChallengeService(repos.UserChallenges,
			service.NewEntityCache[model.UserChallenge]("user_challenge", cfg.CacheSize, cfg.CacheTTL), logger),
	}

	// 4. topologymetrics — мониторинг PostgreSQL (опционально)
	if cfg.DephealthEnabled {
		pgDB := stdlib.OpenDBFromPool(pool)
		defer pgDB.Close()
		dephealthSvc, dhErr := service.NewDephealthService(
			"challengeup",
			cfg.DephealthGroup,
			pgDB,
			cfg.DependencyURL(),
			cfg.DephealthCheckInterval,
			cfg.DephealthIsEntry,
			logger,
		)
		if dhErr != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", dhErr.Error()),
			)
		} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		} else {
			defer dephealthSvc.Stop()
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 5. Обработчики
	health := handlers.NewHealthHandler(map[string]handlers.ReadinessChecker{
		"postgresql": database.NewReadinessChecker(pool),
	})
	api, err := handlers.NewAPIHandler(health, services, logger)
	if err != nil {
		return fmt.Errorf("ошибка построения OpenAPI-документа: %w", err)
	}

	// 6. JWT (опционально)
	var auth func(http.Handler) http.Handler
	if cfg.AuthEnabled() {
		jwtAuth, err := middleware.NewJWTAuth(ctx, cfg.JWTJWKSURL, cfg.JWTIssuer, cfg.JWTLeeway, logger)
		if err != nil {
			return err
		}
		auth = jwtAuth.Middleware()
		logger.Info("JWT-аутентификация включена", slog.String("jwks_url", cfg.JWTJWKSURL))
	} else {
		logger.Warn("JWT-аутентификация выключена: CU_JWT_JWKS_URL не задан")
	}

	// 7. HTTP-сервер (блокирующий вызов с graceful shutdown)
	srv := server.New(cfg, logger, api, auth,
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	)
	if err := srv.Run(ctx); err != nil {
		return err
	}

	logger.Info("ChallengeUp остановлен")
	return nil
}
