// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides a small aggregate query used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dtsiaousis/go-learning-tracker/internal/domain"
)

// UserLedgerStats returns the metadata a weak ETag for a user's fact list is
// derived from: the stored total fact count and the row's UpdatedAt. Both
// change on every append, so an unchanged pair means an unchanged ledger.
//
// Returns ErrNotFound when the user does not exist.
func UserLedgerStats(ctx context.Context, db *gorm.DB, id uint) (totalFacts int64, updatedAt *time.Time, err error) {
	var row struct {
		TotalFactsCount int64
		UpdatedAt       time.Time
	}
	err = db.WithContext(ctx).
		Model(&domain.User{}).
		Select("total_facts_count", "updated_at").
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		return 0, nil, err
	}
	return row.TotalFactsCount, &row.UpdatedAt, nil
}
