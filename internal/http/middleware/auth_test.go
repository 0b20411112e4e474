package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(testSecret))
	r.GET("/whoami", func(c *gin.Context) {
		name, _ := Username(c)
		c.String(http.StatusOK, name)
	})
	return r
}

func doAuth(r *gin.Engine, header string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_ValidToken(t *testing.T) {
	r := authRouter()
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	w := doAuth(r, "Bearer "+token)
	if w.Code != http.StatusOK || w.Body.String() != "alice" {
		t.Fatalf("code=%d body=%q", w.Code, w.Body.String())
	}
}

func TestAuth_BearerPrefixCaseInsensitive(t *testing.T) {
	r := authRouter()
	token := signToken(t, testSecret, jwt.MapClaims{"sub": "alice"})
	if w := doAuth(r, "bearer "+token); w.Code != http.StatusOK {
		t.Fatalf("lowercase bearer prefix rejected: %d", w.Code)
	}
}

func TestAuth_Rejections(t *testing.T) {
	r := authRouter()

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not a bearer scheme", "Basic abc"},
		{"garbage token", "Bearer not.a.jwt"},
		{"wrong secret", "Bearer " + signToken(t, "other-secret", jwt.MapClaims{"sub": "alice"})},
		{"expired token", "Bearer " + signToken(t, testSecret, jwt.MapClaims{
			"sub": "alice",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})},
		{"no subject claim", "Bearer " + signToken(t, testSecret, jwt.MapClaims{"aud": "x"})},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doAuth(r, tc.header)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON body: %v", err)
			}
			if body["code"] != "unauthorized" {
				t.Fatalf("unexpected error code: %v", body)
			}
		})
	}
}

func TestUsername_AbsentOrWrongType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if _, ok := Username(c); ok {
		t.Fatalf("expected no username on fresh context")
	}
	c.Set(usernameKey, 42)
	if _, ok := Username(c); ok {
		t.Fatalf("non-string username value must read as absent")
	}
	c.Set(usernameKey, "alice")
	if name, ok := Username(c); !ok || name != "alice" {
		t.Fatalf("Username = %q, %v", name, ok)
	}
}
