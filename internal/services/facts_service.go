// Package services – FactsService
//
// This file implements FactsService, the application-level component that
// owns the fact ledger and the streak counters. It enforces ownership before
// every operation, advances the streak state on append, and answers the
// filtered/sorted/paginated reads over a user's history.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// user identifiers and list parameters where applicable.
package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/dtsiaousis/go-learning-tracker/internal/domain"
	"github.com/dtsiaousis/go-learning-tracker/internal/ledger"
	"github.com/dtsiaousis/go-learning-tracker/internal/streak"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// UserRepo defines the repository contract required by FactsService.
// Implementations are responsible for persistence of the user row that
// carries the ledger and the streak fields.
type UserRepo interface {
	// GetUserByID fetches one user row, returning gorm.ErrRecordNotFound
	// when the id does not exist.
	GetUserByID(ctx context.Context, db *gorm.DB, id uint) (*domain.User, error)

	// UpdateUserProgress writes the ledger and streak fields of one user as
	// a single atomic update.
	UpdateUserProgress(ctx context.Context, db *gorm.DB, id uint, fields map[string]any) error
}

// StatsView is the aggregate report returned by GetStats. Stored counters are
// passed through verbatim; FactsThisWeek is derived fresh on every read.
type StatsView struct {
	CurrentStreak    int     `json:"current_streak"`
	LongestStreak    int     `json:"longest_streak"`
	TotalFactsCount  int     `json:"total_facts_count"`
	FactsThisWeek    int     `json:"facts_this_week"`
	LastActivityDate *string `json:"last_activity_date"`
}

// FactsService provides the fact-ledger entry points: append a fact, list
// facts, and report stats. Every operation verifies that the caller's
// verified username owns the target user id before touching its data.
type FactsService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the user repository used by this service.
	Repo UserRepo
	// Clock supplies "now"; injectable for deterministic tests.
	Clock streak.Clock

	// LockWait bounds how long an append waits for the per-user slot
	// before failing with ErrBusy.
	LockWait time.Duration

	locksOnce sync.Once
	locks     *userLocks
}

// NewFactsService constructs a FactsService with the production clock and a
// default per-user lock wait.
func NewFactsService(db *gorm.DB, r UserRepo) *FactsService {
	return &FactsService{
		DB:       db,
		Repo:     r,
		Clock:    streak.UTCClock{},
		LockWait: 2 * time.Second,
	}
}

// authorize loads the target user and verifies the caller owns it. It is the
// access guard every entry point runs before touching ledger data.
func (s *FactsService) authorize(ctx context.Context, caller string, userID uint) (*domain.User, error) {
	u, err := s.Repo.GetUserByID(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if u.Username != caller {
		return nil, ErrForbidden
	}
	return u, nil
}

// AddFact validates the entry, serializes against concurrent appends for the
// same user, advances the streak counters, and persists the grown ledger plus
// the new counters as one atomic row update. It returns the created entry.
func (s *FactsService) AddFact(ctx context.Context, caller string, userID uint, content string, category, sourceURL *string) (*ledger.Fact, error) {
	tr := otel.Tracer("services/FactsService")
	ctx, span := tr.Start(ctx, "AddFact",
		trace.WithAttributes(
			attribute.Int("user.id", int(userID)),
			attribute.String("caller", caller),
		),
	)
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	if _, err := s.authorize(ctx, caller, userID); err != nil {
		return nil, err
	}

	// Serialize the read-modify-write per user id; a bounded wait keeps a
	// stuck writer from blocking callers forever.
	release, err := s.lockRegistry().acquire(ctx, userID, s.lockWait())
	if err != nil {
		return nil, err
	}
	defer release()

	// Re-read inside the lock so the computation starts from the latest
	// committed state.
	u, err := s.Repo.GetUserByID(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	now := s.clock().Now().UTC()
	newCurrent, newLongest, newLastActivity := streak.ComputeNewStreak(
		u.CurrentStreak, u.LongestStreak, u.LastActivityDate, now)

	entry := ledger.Fact{
		Content:   content,
		Category:  category,
		SourceURL: sourceURL,
		LearnedAt: ledger.FormatTimestamp(now),
	}
	grown := ledger.Append(ledger.Decode(u.FactsLearned), entry)

	fields := map[string]any{
		"facts_learned":      ledger.Encode(grown),
		"total_facts_count":  u.TotalFactsCount + 1,
		"current_streak":     newCurrent,
		"longest_streak":     newLongest,
		"last_activity_date": newLastActivity,
	}
	if err := s.Repo.UpdateUserProgress(ctx, s.DB, userID, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &entry, nil
}

// ListFacts returns up to limit facts for the user, newest first, optionally
// restricted to an exact category. total reflects the filtered list before
// truncation. limit must be within [1, 500]; out-of-range values are a
// caller error, never clamped.
func (s *FactsService) ListFacts(ctx context.Context, caller string, userID uint, limit int, category *string) ([]ledger.Fact, int, error) {
	tr := otel.Tracer("services/FactsService")
	ctx, span := tr.Start(ctx, "ListFacts",
		trace.WithAttributes(
			attribute.Int("user.id", int(userID)),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	if limit < ledger.MinLimit || limit > ledger.MaxLimit {
		return nil, 0, ErrInvalidLimit
	}

	u, err := s.authorize(ctx, caller, userID)
	if err != nil {
		return nil, 0, err
	}

	facts := ledger.Decode(u.FactsLearned)
	if category != nil && *category != "" {
		facts = ledger.FilterByCategory(facts, *category)
	}
	facts = ledger.SortByRecency(facts)

	items, total, err := ledger.Paginate(facts, limit)
	if err != nil {
		return nil, 0, ErrInvalidLimit
	}
	return items, total, nil
}

// GetStats reports the stored streak counters plus the facts-this-week count,
// which is recomputed from the ledger on every call rather than cached.
func (s *FactsService) GetStats(ctx context.Context, caller string, userID uint) (*StatsView, error) {
	tr := otel.Tracer("services/FactsService")
	ctx, span := tr.Start(ctx, "GetStats",
		trace.WithAttributes(attribute.Int("user.id", int(userID))),
	)
	defer span.End()

	u, err := s.authorize(ctx, caller, userID)
	if err != nil {
		return nil, err
	}

	view := &StatsView{
		CurrentStreak:   u.CurrentStreak,
		LongestStreak:   u.LongestStreak,
		TotalFactsCount: u.TotalFactsCount,
		FactsThisWeek:   ledger.CountThisWeek(ledger.Decode(u.FactsLearned), s.clock().Now()),
	}
	if u.LastActivityDate != "" {
		d := u.LastActivityDate
		view.LastActivityDate = &d
	}
	return view, nil
}

// clock returns the configured clock or the production UTC clock.
func (s *FactsService) clock() streak.Clock {
	if s.Clock != nil {
		return s.Clock
	}
	return streak.UTCClock{}
}

// lockWait returns the configured per-user lock wait or a sane default.
func (s *FactsService) lockWait() time.Duration {
	if s.LockWait > 0 {
		return s.LockWait
	}
	return 2 * time.Second
}

// lockRegistry lazily initializes the per-user lock registry so that a
// FactsService built as a plain struct literal still serializes appends.
func (s *FactsService) lockRegistry() *userLocks {
	s.locksOnce.Do(func() {
		if s.locks == nil {
			s.locks = newUserLocks()
		}
	})
	return s.locks
}
