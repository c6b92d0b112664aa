// auth.go — JWT middleware для изменяющих запросов.
// Проверяет Bearer-токен по JWKS (RS256), кладёт claims в контекст запроса.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/Vladimir-Titov/challengeup/internal/api/errors"
)

// contextKey — тип для ключей контекста.
type contextKey string

// ContextKeyClaims — извлечённые claims в контексте запроса.
const ContextKeyClaims contextKey = "jwt_claims"

// Параметры загрузки JWKS.
const (
	jwksClientTimeout   = 10 * time.Second
	jwksRefreshInterval = 15 * time.Minute
)

// AuthClaims — claims аутентифицированного субъекта.
type AuthClaims struct {
	Subject           string
	PreferredUsername string
	Email             string
	Scopes            []string
}

// HasScope проверяет наличие указанного scope.
func (c *AuthClaims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

type tokenClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	// Scope — scopes через пробел
	Scope string `json:"scope,omitempty"`
}

// JWTAuth — middleware JWT-аутентификации.
type JWTAuth struct {
	jwks      keyfunc.Keyfunc
	issuer    string
	jwtLeeway time.Duration
	logger    *slog.Logger
}

// NewJWTAuth создаёт JWT middleware с JWKS по URL.
// Ключи обновляются в фоне; недоступность JWKS при старте не является ошибкой.
// issuer может быть пустым — issuer не проверяется.
func NewJWTAuth(ctx context.Context, jwksURL, issuer string, jwtLeeway time.Duration, logger *slog.Logger) (*JWTAuth, error) {
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    &http.Client{Timeout: jwksClientTimeout},
		Ctx:                       ctx,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           jwksRefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{Ctx: ctx, Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}
	return NewJWTAuthWithKeyfunc(k, issuer, jwtLeeway, logger), nil
}

// NewJWTAuthWithKeyfunc создаёт JWT middleware с готовой keyfunc.
func NewJWTAuthWithKeyfunc(kf keyfunc.Keyfunc, issuer string, jwtLeeway time.Duration, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		jwks:      kf,
		issuer:    issuer,
		jwtLeeway: jwtLeeway,
		logger:    logger.With(slog.String("component", "jwt_auth")),
	}
}

// Middleware возвращает HTTP middleware JWT-аутентификации.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierrors.Unauthorized(w, "Отсутствует заголовок Authorization")
				return
			}

			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") {
				apierrors.Unauthorized(w, "Неверный формат Authorization: ожидается Bearer <token>")
				return
			}
			if tokenString == "" {
				apierrors.Unauthorized(w, "Пустой Bearer token")
				return
			}

			raw := &tokenClaims{}
			parserOpts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"RS256"}),
				jwt.WithExpirationRequired(),
				jwt.WithLeeway(j.jwtLeeway),
			}
			if j.issuer != "" {
				parserOpts = append(parserOpts, jwt.WithIssuer(j.issuer))
			}

			token, err := jwt.ParseWithClaims(tokenString, raw, j.jwks.KeyfuncCtx(r.Context()), parserOpts...)
			if err != nil || !token.Valid {
				j.logger.Debug("JWT валидация не пройдена",
					slog.Any("error", err),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}

			if raw.Subject == "" {
				apierrors.Unauthorized(w, "Отсутствует sub в токене")
				return
			}

			claims := &AuthClaims{
				Subject:           raw.Subject,
				PreferredUsername: raw.PreferredUsername,
				Email:             raw.Email,
				Scopes:            strings.Fields(raw.Scope),
			}
			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext возвращает claims из контекста или nil.
func ClaimsFromContext(ctx context.Context) *AuthClaims {
	claims, _ := ctx.Value(ContextKeyClaims).(*AuthClaims)
	return claims
}

// SubjectFromContext возвращает sub из контекста или пустую строку.
func SubjectFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.Subject
	}
	return ""
}
