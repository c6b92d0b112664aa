// Пакет config — загрузка и валидация конфигурации ChallengeUp
// из переменных окружения и необязательного .env-файла.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации ChallengeUp.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string
	// Максимальный размер пула соединений
	DBMaxConns int
	// Минимальное число открытых соединений
	DBMinConns int
	// Сколько ждать доступности БД при старте (повторы с экспоненциальной паузой)
	DBConnectTimeout time.Duration

	// --- HTTP Server Timeouts ---

	// Таймаут чтения HTTP-сервера (по умолчанию 30s)
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера (по умолчанию 60s)
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера (по умолчанию 120s)
	HTTPIdleTimeout time.Duration

	// --- Кэш ---

	// Размер LRU-кэша сущностей на каждую сущность (0 — кэш выключен)
	CacheSize int
	// Время жизни записи в кэше
	CacheTTL time.Duration

	// --- JWT ---

	// URL JWKS endpoint; пустое значение выключает проверку токенов
	JWTJWKSURL string
	// Ожидаемый issuer (пустой — не проверяется)
	JWTIssuer string
	// Допустимое расхождение часов при проверке exp/nbf
	JWTLeeway time.Duration

	// --- topologymetrics ---

	// Включить мониторинг зависимостей (CU_DEPHEALTH_ENABLED)
	DephealthEnabled bool
	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration
	// Лейбл isentry=yes для всех зависимостей (DEPHEALTH_ISENTRY)
	DephealthIsEntry bool

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// LoadEnvFile загружает переменные из .env-файла. Уже заданные
// переменные окружения не перезаписываются. Отсутствие файла
// по умолчанию (.env) ошибкой не считается.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && path == ".env" {
			return nil
		}
		return fmt.Errorf("ошибка загрузки %s: %w", path, err)
	}
	return nil
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
//
//nolint:cyclop,funlen // линейный разбор переменных
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// CU_PORT — порт HTTP-сервера (по умолчанию 5000)
	cfg.Port, err = getEnvInt("CU_PORT", 5000)
	if err != nil {
		return nil, fmt.Errorf("CU_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("CU_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// CU_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("CU_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("CU_LOG_LEVEL: %w", err)
	}

	// CU_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("CU_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("CU_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	if cfg.DBHost, err = getEnvRequired("CU_DB_HOST"); err != nil {
		return nil, err
	}
	if cfg.DBName, err = getEnvRequired("CU_DB_NAME"); err != nil {
		return nil, err
	}
	if cfg.DBUser, err = getEnvRequired("CU_DB_USER"); err != nil {
		return nil, err
	}
	if cfg.DBPassword, err = getEnvRequired("CU_DB_PASSWORD"); err != nil {
		return nil, err
	}

	// CU_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("CU_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("CU_DB_PORT: %w", err)
	}

	// CU_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("CU_DB_SSL_MODE", "disable")
	switch cfg.DBSSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return nil, fmt.Errorf("CU_DB_SSL_MODE: недопустимое значение %q", cfg.DBSSLMode)
	}

	// CU_DB_MAX_CONNS — размер пула (по умолчанию 10)
	cfg.DBMaxConns, err = getEnvInt("CU_DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("CU_DB_MAX_CONNS: %w", err)
	}
	if cfg.DBMaxConns < 1 {
		return nil, fmt.Errorf("CU_DB_MAX_CONNS: значение должно быть >= 1")
	}

	// CU_DB_MIN_CONNS — минимум соединений (по умолчанию 0)
	cfg.DBMinConns, err = getEnvInt("CU_DB_MIN_CONNS", 0)
	if err != nil {
		return nil, fmt.Errorf("CU_DB_MIN_CONNS: %w", err)
	}
	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		return nil, fmt.Errorf("CU_DB_MIN_CONNS: значение %d вне диапазона 0-%d", cfg.DBMinConns, cfg.DBMaxConns)
	}

	// CU_DB_CONNECT_TIMEOUT — ожидание БД при старте (по умолчанию 30s)
	cfg.DBConnectTimeout, err = getEnvDuration("CU_DB_CONNECT_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CU_DB_CONNECT_TIMEOUT: %w", err)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("CU_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CU_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("CU_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CU_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("CU_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CU_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- Кэш ---

	// CU_CACHE_SIZE — размер кэша (по умолчанию 1000, 0 — выключен)
	cfg.CacheSize, err = getEnvInt("CU_CACHE_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("CU_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize < 0 {
		return nil, fmt.Errorf("CU_CACHE_SIZE: значение должно быть >= 0")
	}
	cfg.CacheTTL, err = getEnvDuration("CU_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CU_CACHE_TTL: %w", err)
	}

	// --- JWT ---

	cfg.JWTJWKSURL = getEnvDefault("CU_JWT_JWKS_URL", "")
	if cfg.JWTJWKSURL != "" {
		if _, err := url.ParseRequestURI(cfg.JWTJWKSURL); err != nil {
			return nil, fmt.Errorf("CU_JWT_JWKS_URL: некорректный URL %q", cfg.JWTJWKSURL)
		}
	}
	cfg.JWTIssuer = getEnvDefault("CU_JWT_ISSUER", "")
	cfg.JWTLeeway, err = getEnvDuration("CU_JWT_LEEWAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CU_JWT_LEEWAY: %w", err)
	}

	// --- topologymetrics ---

	cfg.DephealthEnabled, err = getEnvBool("CU_DEPHEALTH_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("CU_DEPHEALTH_ENABLED: %w", err)
	}
	// CU_DEPHEALTH_GROUP — имя группы (по умолчанию challengeup)
	cfg.DephealthGroup = getEnvDefault("CU_DEPHEALTH_GROUP", "challengeup")
	// CU_DEPHEALTH_CHECK_INTERVAL — интервал проверки (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("CU_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CU_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	if cfg.DephealthCheckInterval < time.Second {
		return nil, fmt.Errorf("CU_DEPHEALTH_CHECK_INTERVAL: значение должно быть >= 1s")
	}
	cfg.DephealthIsEntry, err = getEnvBool("DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("DEPHEALTH_ISENTRY: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("CU_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CU_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает URL подключения к PostgreSQL для pgxpool.
// Учётные данные экранируются, поэтому пароль может содержать любые символы.
func (c *Config) DatabaseDSN() string {
	return c.postgresURL("postgres")
}

// MigrateURL возвращает URL для golang-migrate (драйвер pgx5).
func (c *Config) MigrateURL() string {
	return c.postgresURL("pgx5")
}

func (c *Config) postgresURL(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

// DependencyURL возвращает URL PostgreSQL без учётных данных.
// Используется только для лейблов метрик topologymetrics.
func (c *Config) DependencyURL() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:   "/" + c.DBName,
	}
	return u.String()
}

// AuthEnabled сообщает, включена ли проверка JWT.
func (c *Config) AuthEnabled() bool {
	return c.JWTJWKSURL != ""
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	if d < 0 {
		return 0, fmt.Errorf("длительность не может быть отрицательной: %q", val)
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
