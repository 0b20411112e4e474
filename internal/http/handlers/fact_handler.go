// Fact HTTP handlers.
//
// This file exposes the REST endpoints for the learning ledger:
//   - POST /users/{id}/facts  (append a learned fact, idempotency-aware)
//   - GET  /users/{id}/facts  (list, newest first, filtered, ETag support)
//   - GET  /users/{id}/stats  (streak counters and weekly activity)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dtsiaousis/go-learning-tracker/internal/http/middleware"
	"github.com/dtsiaousis/go-learning-tracker/internal/ledger"
	"github.com/dtsiaousis/go-learning-tracker/internal/repo"
	"github.com/dtsiaousis/go-learning-tracker/internal/services"
)

// defaultListLimit applies when the limit query parameter is absent.
const defaultListLimit = 50

//
// Service contract (context-aware)
//

// FactsService defines the ledger operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type FactsService interface {
	// AddFact appends a learned fact for userID and advances the streak.
	AddFact(ctx context.Context, caller string, userID uint, content string, category, sourceURL *string) (*ledger.Fact, error)
	// ListFacts returns up to limit facts (newest first) and the filtered total.
	ListFacts(ctx context.Context, caller string, userID uint, limit int, category *string) ([]ledger.Fact, int, error)
	// GetStats reports streak counters and the facts-this-week count.
	GetStats(ctx context.Context, caller string, userID uint) (*services.StatsView, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for the fact ledger. It depends on an
// abstract service interface to keep transport concerns separate from
// business logic.
type Handlers struct {
	factsSvc FactsService

	// IdemTTL bounds how long a stored append result can be replayed via
	// Idempotency-Key. Values <= 0 default to 24h.
	IdemTTL time.Duration
}

// New constructs and returns a Handlers instance bound to the given service.
func New(factsSvc FactsService) *Handlers {
	return &Handlers{factsSvc: factsSvc, IdemTTL: 24 * time.Hour}
}

// db exposes the GORM handle of the concrete service, when available, for
// best-effort extras (ETag precheck, idempotency persistence). A nil return
// simply disables those extras.
func (h *Handlers) db() *gorm.DB {
	if svc, ok := h.factsSvc.(*services.FactsService); ok {
		return svc.DB
	}
	return nil
}

// caller returns the verified username or writes a 401 and reports false.
func caller(c *gin.Context) (string, bool) {
	name, ok := middleware.Username(c)
	if !ok {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return "", false
	}
	return name, true
}

// targetUserID parses the :id path parameter or writes a 400 and reports false.
func targetUserID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user id must be an integer")
		return 0, false
	}
	return uint(id), true
}

//
// DTOs
//

// CreateFactRequest is the JSON payload for recording a learned fact.
type CreateFactRequest struct {
	// Content is the fact text; it must not be blank.
	Content string `json:"content" example:"Spaced repetition beats cramming"`
	// Category optionally tags the fact for exact-match filtering.
	Category *string `json:"category,omitempty" example:"memory"`
	// SourceURL optionally records where the fact was learned.
	SourceURL *string `json:"source_url,omitempty" example:"https://example.com/article"`
}

// ListFactsResponse wraps a page of facts and the filtered total, enabling
// "N of M" reporting. Total is the post-filter, pre-truncation count.
type ListFactsResponse struct {
	Items []ledger.Fact `json:"items"`
	Total int           `json:"total"`
}

//
// Handlers
//

// AddFact godoc
// @ID          addFact
// @Summary     Record a learned fact
// @Description Appends a fact to the caller's ledger and advances the daily streak. Supports Idempotency-Key replays.
// @Tags        Facts
// @Accept      json
// @Produce     json
//
// @Param       Authorization    header  string  true  "Bearer token"
// @Param       Idempotency-Key  header  string  false "Replay-safe retry key"
// @Param       id               path    int     true  "User ID"
// @Param       body             body    handlers.CreateFactRequest  true  "Fact payload"
//
// @Success     201  {object}  ledger.Fact
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or invalid token"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the record owner"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     422  {object}  handlers.ErrorResponse  "Empty content"
// @Failure     503  {object}  handlers.ErrorResponse  "Concurrent append in progress"
// @Router      /users/{id}/facts [post]
func (h *Handlers) AddFact(c *gin.Context) {
	ctx := c.Request.Context()
	name, authed := caller(c)
	if !authed {
		return
	}
	userID, valid := targetUserID(c)
	if !valid {
		return
	}

	var req CreateFactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	// Serve a stored result when this is a replay of a completed append.
	idemKey, hasKey := middleware.GetIdempotencyKey(c)
	if hasKey && middleware.IsReplay(c) {
		if h.serveReplay(c, name, userID, idemKey) {
			return
		}
	}

	entry, err := h.factsSvc.AddFact(ctx, name, userID, req.Content, req.Category, req.SourceURL)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		case errors.Is(err, services.ErrForbidden):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "cannot access other user's data")
		case errors.Is(err, services.ErrEmptyContent):
			fail(c, http.StatusUnprocessableEntity, ErrCodeValidation, "content must not be empty")
		case errors.Is(err, services.ErrBusy):
			c.Header("Retry-After", "1")
			fail(c, http.StatusServiceUnavailable, ErrCodeBusy, "another append for this user is in progress")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeStorageFailure, err.Error())
		}
		return
	}

	middleware.CountFactAppend()

	// Persist the outcome for future replays (best effort).
	if hasKey {
		h.storeReplay(ctx, userID, idemKey, entry)
	}

	ok(c, http.StatusCreated, entry)
}

// serveReplay writes the stored response for (userID, key) when one exists
// and the caller owns the target user. It reports whether the request was
// served; when it returns false the append proceeds normally and the service
// layer repeats the ownership check.
func (h *Handlers) serveReplay(c *gin.Context, callerName string, userID uint, key string) bool {
	db := h.db()
	if db == nil {
		return false
	}
	ctx := c.Request.Context()
	u, err := repo.GetUserByID(ctx, db, userID)
	if err != nil || u.Username != callerName {
		return false
	}
	rec, err := repo.GetIdempotency(ctx, db, userID, key, time.Now().UTC())
	if err != nil || rec == nil {
		return false
	}
	c.Data(rec.Status, "application/json; charset=utf-8", []byte(rec.Body))
	return true
}

// storeReplay records a completed append so retries with the same key can be
// replayed. Failures are logged and otherwise ignored; the append succeeded.
func (h *Handlers) storeReplay(ctx context.Context, userID uint, key string, entry *ledger.Fact) {
	db := h.db()
	if db == nil {
		return
	}
	body, err := json.Marshal(entry)
	if err != nil {
		return
	}
	ttl := h.IdemTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	_, _ = repo.CreateIdempotency(ctx, db, userID, key, string(body), http.StatusCreated, ttl)
}

// ListFacts godoc
// @ID          listFacts
// @Summary     List learned facts
// @Description Returns up to limit facts, newest first, optionally filtered by exact category. Supports weak ETag via If-None-Match.
// @Tags        Facts
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       id             path    int     true  "User ID"
// @Param       limit          query   int     false "Max items to return"  minimum(1) maximum(500) default(50)
// @Param       category       query   string  false "Exact category filter"
//
// @Success     200  {object} handlers.ListFactsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Invalid limit"
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     403  {object} handlers.ErrorResponse "Not the record owner"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Router      /users/{id}/facts [get]
func (h *Handlers) ListFacts(c *gin.Context) {
	ctx := c.Request.Context()
	name, authed := caller(c)
	if !authed {
		return
	}
	userID, valid := targetUserID(c)
	if !valid {
		return
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeInvalidArgument, "limit must be an integer between 1 and 500")
			return
		}
		limit = n
	}

	var category *string
	if v := c.Query("category"); v != "" {
		category = &v
	}

	items, total, err := h.factsSvc.ListFacts(ctx, name, userID, limit, category)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidLimit):
			fail(c, http.StatusBadRequest, ErrCodeInvalidArgument, "limit must be an integer between 1 and 500")
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		case errors.Is(err, services.ErrForbidden):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "cannot access other user's data")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeStorageFailure, err.Error())
		}
		return
	}

	// Conditional response (best effort), only after the ownership check has
	// passed so the tag never leaks another user's ledger version. The tag
	// covers the ledger version and the query shape so different filters never
	// share a cache entry.
	if db := h.db(); db != nil {
		if count, maxTS, serr := repo.UserLedgerStats(ctx, db, userID); serr == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"facts:%d:%d:%d:%d:%s"`, userID, count, ts, limit, c.Query("category"))
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	ok(c, http.StatusOK, ListFactsResponse{Items: items, Total: total})
}

// GetStats godoc
// @ID          getStats
// @Summary     Get streak and activity stats
// @Description Returns the stored streak counters plus a freshly computed facts-this-week count.
// @Tags        Stats
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       id             path    int     true  "User ID"
//
// @Success     200  {object} services.StatsView
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     403  {object} handlers.ErrorResponse "Not the record owner"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Router      /users/{id}/stats [get]
func (h *Handlers) GetStats(c *gin.Context) {
	name, authed := caller(c)
	if !authed {
		return
	}
	userID, valid := targetUserID(c)
	if !valid {
		return
	}

	view, err := h.factsSvc.GetStats(c.Request.Context(), name, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		case errors.Is(err, services.ErrForbidden):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "cannot access other user's data")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeStorageFailure, err.Error())
		}
		return
	}

	ok(c, http.StatusOK, view)
}
