package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"gorm.io/gorm"

	"github.com/dtsiaousis/go-learning-tracker/internal/config"
	"github.com/dtsiaousis/go-learning-tracker/internal/domain"
	"github.com/dtsiaousis/go-learning-tracker/internal/http/middleware"
	"github.com/dtsiaousis/go-learning-tracker/internal/repo"
)

const testSecret = "router-test-secret"

func testConfig() config.Config {
	return config.Config{
		GinMode:        "test",
		APIBasePath:    "/api/v1",
		JWTSecret:      testSecret,
		AppendLockWait: time.Second,
		RateRPS:        1000,
		RateBurst:      1000,
		IdempotencyTTL: time.Hour,
		Security: config.SecurityConfig{
			EnableHSTS: false,
		},
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "router.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	r := gin.New()
	RegisterRoutes(r, db, testConfig())
	return r, db
}

func bearerFor(t *testing.T, username string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": username,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + s
}

func mustCreateUser(t *testing.T, db *gorm.DB, username string) *domain.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), db, username)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func do(r *gin.Engine, method, path, auth, body string, hdr map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var rd *strings.Reader
	if body != "" {
		rd = strings.NewReader(body)
	} else {
		rd = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, rd)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	r, _ := newTestRouter(t)

	if w := do(r, http.MethodGet, "/health", "", "", nil); w.Code != http.StatusOK {
		t.Fatalf("health: %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/metrics", "", "", nil); w.Code != http.StatusOK {
		t.Fatalf("metrics: %d", w.Code)
	}
}

func TestRouter_FallbacksAndHeaders(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/nope", "", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("no-route: %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected permissive CORS default, got %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected generated request id")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected security headers")
	}

	if w := do(r, http.MethodDelete, "/health", "", "", nil); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("no-method: %d", w.Code)
	}
}

func TestRouter_AuthRequiredOnAPI(t *testing.T) {
	r, db := newTestRouter(t)
	u := mustCreateUser(t, db, "alice")

	path := fmt.Sprintf("/api/v1/users/%d/stats", u.ID)
	if w := do(r, http.MethodGet, path, "", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: %d", w.Code)
	}
	if w := do(r, http.MethodGet, path, "Bearer garbage", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", w.Code)
	}
}

func TestRouter_FullFactLifecycle(t *testing.T) {
	r, db := newTestRouter(t)
	u := mustCreateUser(t, db, "alice")
	auth := bearerFor(t, "alice")
	base := fmt.Sprintf("/api/v1/users/%d", u.ID)

	// Append a fact.
	w := do(r, http.MethodPost, base+"/facts", auth, `{"content":"SQLite is a library, not a server","category":"db"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("append: %d body=%s", w.Code, w.Body.String())
	}
	var fact map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &fact); err != nil {
		t.Fatalf("fact JSON: %v", err)
	}
	if fact["content"] != "SQLite is a library, not a server" || fact["category"] != "db" {
		t.Fatalf("unexpected fact: %v", fact)
	}
	learnedAt, _ := fact["learned_at"].(string)
	if _, err := time.Parse("2006-01-02T15:04:05Z", learnedAt); err != nil {
		t.Fatalf("learned_at %q not canonical: %v", learnedAt, err)
	}

	// List it back, newest first, with an ETag.
	w = do(r, http.MethodGet, base+"/facts", auth, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d body=%s", w.Code, w.Body.String())
	}
	etag := w.Header().Get("ETag")
	if etag == "" || !strings.HasPrefix(etag, `W/"`) {
		t.Fatalf("expected weak ETag, got %q", etag)
	}
	var list struct {
		Items []map[string]any `json:"items"`
		Total int              `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("list JSON: %v", err)
	}
	if list.Total != 1 || len(list.Items) != 1 {
		t.Fatalf("unexpected list: %+v", list)
	}

	// Conditional re-read short-circuits.
	w = do(r, http.MethodGet, base+"/facts", auth, "", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusNotModified {
		t.Fatalf("conditional list: %d", w.Code)
	}

	// Category filter with no matches.
	w = do(r, http.MethodGet, base+"/facts?category=history", auth, "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"total":0`) {
		t.Fatalf("filtered list: %d body=%s", w.Code, w.Body.String())
	}

	// Stats reflect the append.
	w = do(r, http.MethodGet, base+"/stats", auth, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats: %d body=%s", w.Code, w.Body.String())
	}
	var stats map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("stats JSON: %v", err)
	}
	if stats["total_facts_count"] != float64(1) || stats["current_streak"] != float64(1) || stats["facts_this_week"] != float64(1) {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestRouter_OwnershipEnforced(t *testing.T) {
	r, db := newTestRouter(t)
	alice := mustCreateUser(t, db, "alice")
	mustCreateUser(t, db, "bob")

	path := fmt.Sprintf("/api/v1/users/%d/facts", alice.ID)
	w := do(r, http.MethodPost, path, bearerFor(t, "bob"), `{"content":"sneaky"}`, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("cross-user append: %d body=%s", w.Code, w.Body.String())
	}

	// Unknown target id is a 404, even for a valid caller.
	w = do(r, http.MethodGet, "/api/v1/users/99999/stats", bearerFor(t, "bob"), "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown user: %d", w.Code)
	}
}

func TestRouter_LimitValidation(t *testing.T) {
	r, db := newTestRouter(t)
	u := mustCreateUser(t, db, "alice")
	auth := bearerFor(t, "alice")
	base := fmt.Sprintf("/api/v1/users/%d/facts", u.ID)

	for _, q := range []string{"?limit=0", "?limit=501", "?limit=abc"} {
		w := do(r, http.MethodGet, base+q, auth, "", nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("query %q: %d", q, w.Code)
		}
		if !strings.Contains(w.Body.String(), "invalid_argument") {
			t.Fatalf("query %q body: %s", q, w.Body.String())
		}
	}
	if w := do(r, http.MethodGet, base+"?limit=500", auth, "", nil); w.Code != http.StatusOK {
		t.Fatalf("limit=500 should pass: %d", w.Code)
	}
}

func TestRouter_IdempotentAppendReplays(t *testing.T) {
	r, db := newTestRouter(t)
	u := mustCreateUser(t, db, "alice")
	auth := bearerFor(t, "alice")
	path := fmt.Sprintf("/api/v1/users/%d/facts", u.ID)
	hdr := map[string]string{middleware.HeaderIdempotencyKey: "append-once-1"}

	w1 := do(r, http.MethodPost, path, auth, `{"content":"only once"}`, hdr)
	if w1.Code != http.StatusCreated {
		t.Fatalf("first append: %d body=%s", w1.Code, w1.Body.String())
	}

	w2 := do(r, http.MethodPost, path, auth, `{"content":"only once"}`, hdr)
	if w2.Code != http.StatusCreated {
		t.Fatalf("replay: %d body=%s", w2.Code, w2.Body.String())
	}
	if w1.Body.String() != w2.Body.String() {
		t.Fatalf("replay body differs:\n%s\n%s", w1.Body.String(), w2.Body.String())
	}

	// The ledger must not have grown on the replay.
	got, err := repo.GetUserByID(context.Background(), db, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.TotalFactsCount != 1 {
		t.Fatalf("replay must not append: total=%d", got.TotalFactsCount)
	}

	// Malformed keys are rejected before reaching the handler.
	w := do(r, http.MethodPost, path, auth, `{"content":"x"}`, map[string]string{middleware.HeaderIdempotencyKey: "bad key!"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed key: %d", w.Code)
	}
}
