package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testKeyID  = "test-key-cu"
	testIssuer = "https://auth.test/realms/challengeup"
)

func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

// buildJWKSetJSON строит JWKS JSON из RSA публичного ключа.
func buildJWKSetJSON(pub *rsa.PublicKey, kid string) json.RawMessage {
	jwks := map[string]any{
		"keys": []map[string]any{{
			"kty": "RSA",
			"kid": kid,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
	data, _ := json.Marshal(jwks)
	return data
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestJWTAuth(t *testing.T, key *rsa.PrivateKey) *JWTAuth {
	t.Helper()
	kf, err := keyfunc.NewJWKSetJSON(buildJWKSetJSON(&key.PublicKey, testKeyID))
	if err != nil {
		t.Fatalf("не удалось создать keyfunc: %v", err)
	}
	return NewJWTAuthWithKeyfunc(kf, testIssuer, 0, testLogger())
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	s, err := token.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func validClaims(exp time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":                "user-123",
		"preferred_username": "runner",
		"email":              "runner@test.com",
		"scope":              "openid challenges:write",
		"iss":                testIssuer,
		"exp":                jwt.NewNumericDate(exp),
		"iat":                jwt.NewNumericDate(time.Now()),
	}
}

func serve(auth *JWTAuth, header string, next http.HandlerFunc) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/challenges", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	auth.Middleware()(next).ServeHTTP(rec, req)
	return rec
}

// TestJWTAuth_ValidToken — валидный токен, claims в контексте.
func TestJWTAuth_ValidToken(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestJWTAuth(t, key)
	token := signToken(t, key, validClaims(time.Now().Add(time.Hour)))

	rec := serve(auth, "Bearer "+token, func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			t.Fatal("claims не найдены в контексте")
		}
		if claims.Subject != "user-123" {
			t.Errorf("ожидался sub=user-123, получен %s", claims.Subject)
		}
		if claims.PreferredUsername != "runner" || claims.Email != "runner@test.com" {
			t.Errorf("неожиданные claims: %+v", claims)
		}
		if !claims.HasScope("challenges:write") || claims.HasScope("admin") {
			t.Errorf("неожиданные scopes: %v", claims.Scopes)
		}
		if SubjectFromContext(r.Context()) != "user-123" {
			t.Error("SubjectFromContext не вернул sub")
		}
		w.WriteHeader(http.StatusOK)
	})

	if rec.Code != http.StatusOK {
		t.Errorf("ожидался статус 200, получен %d, тело: %s", rec.Code, rec.Body.String())
	}
}

// TestJWTAuth_Rejected — запросы без валидного токена получают 401.
func TestJWTAuth_Rejected(t *testing.T) {
	key := generateTestKey(t)
	otherKey := generateTestKey(t)
	auth := newTestJWTAuth(t, key)

	wrongIssuer := validClaims(time.Now().Add(time.Hour))
	wrongIssuer["iss"] = "https://evil.test"
	noSub := validClaims(time.Now().Add(time.Hour))
	delete(noSub, "sub")
	noExp := validClaims(time.Now().Add(time.Hour))
	delete(noExp, "exp")

	tests := []struct {
		name   string
		header string
	}{
		{"нет заголовка", ""},
		{"не Bearer", "Basic dXNlcjpwYXNz"},
		{"пустой токен", "Bearer "},
		{"мусор", "Bearer not.a.jwt"},
		{"просрочен", "Bearer " + signToken(t, key, validClaims(time.Now().Add(-time.Hour)))},
		{"чужой ключ", "Bearer " + signToken(t, otherKey, validClaims(time.Now().Add(time.Hour)))},
		{"чужой issuer", "Bearer " + signToken(t, key, wrongIssuer)},
		{"нет sub", "Bearer " + signToken(t, key, noSub)},
		{"нет exp", "Bearer " + signToken(t, key, noExp)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			rec := serve(auth, tt.header, func(http.ResponseWriter, *http.Request) { called = true })
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("ожидался статус 401, получен %d", rec.Code)
			}
			if called {
				t.Error("следующий обработчик не должен вызываться")
			}
		})
	}
}

// TestJWTAuth_HS256Rejected — подпись не RS256 отклоняется.
func TestJWTAuth_HS256Rejected(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestJWTAuth(t, key)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims(time.Now().Add(time.Hour)))
	token.Header["kid"] = testKeyID
	s, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	rec := serve(auth, "Bearer "+s, func(http.ResponseWriter, *http.Request) {
		t.Error("следующий обработчик не должен вызываться")
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ожидался статус 401, получен %d", rec.Code)
	}
}

func TestClaimsFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if ClaimsFromContext(req.Context()) != nil {
		t.Error("ожидался nil без middleware")
	}
	if SubjectFromContext(req.Context()) != "" {
		t.Error("ожидался пустой sub без middleware")
	}
}
