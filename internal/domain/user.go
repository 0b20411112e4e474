// Package domain defines the persistence models for the learning tracker.
// These types are mapped with GORM and form the core data layer of the
// application.
package domain

import "time"

// User is the account row that carries the learning ledger and the streak
// counters. The core only ever reads and writes the gamification fields;
// identity fields (ID, Username) are immutable from its perspective.
//
// Fields:
//   - ID: integer primary key, immutable.
//   - Username: unique login name; ownership checks compare it against the
//     caller's verified identity.
//   - FactsLearned: the fact ledger, stored as one compact JSON array per row.
//     Mutated only by whole-value replacement during an append.
//   - CurrentStreak: consecutive active days ending at LastActivityDate.
//   - LongestStreak: historical maximum of CurrentStreak; never below it.
//   - TotalFactsCount: count of facts ever appended; monotonically non-decreasing.
//   - LastActivityDate: calendar date ("2006-01-02") of the most recent append,
//     or empty when the user has never recorded a fact.
type User struct {
	ID               uint      `json:"id"                 gorm:"primaryKey;autoIncrement"`
	Username         string    `json:"username"           gorm:"type:varchar(64);not null;uniqueIndex"`
	FactsLearned     string    `json:"-"                  gorm:"type:text;not null;default:'[]'"`
	CurrentStreak    int       `json:"current_streak"     gorm:"not null;default:0"`
	LongestStreak    int       `json:"longest_streak"     gorm:"not null;default:0"`
	TotalFactsCount  int       `json:"total_facts_count"  gorm:"not null;default:0"`
	LastActivityDate string    `json:"last_activity_date" gorm:"type:varchar(10);not null;default:''"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }
