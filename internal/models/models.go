package models

import (
	"time"

	"github.com/google/uuid"
)

// GrantRecord is a persisted grant. Structured source values (lists, maps)
// are serialized to their textual JSON form before reaching the store.
type GrantRecord struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Timeline   string    `json:"timeline"`
	Applicants string    `json:"applicants"`
	Budget     string    `json:"budget"`
	SourceURL  string    `json:"source_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProjectRecord is a confirmed project.
type ProjectRecord struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Timeline   string    `json:"timeline"`
	Budget     string    `json:"budget"`
	Directions string    `json:"directions"`
	SourceURL  string    `json:"source_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// MatchRow is one joined row of matches x grants x projects.
type MatchRow struct {
	MatchID         uuid.UUID `json:"match_id"`
	MatchScore      int       `json:"match_score"`
	IsUrgent        bool      `json:"is_urgent"`
	GrantID         uuid.UUID `json:"grant_id"`
	GrantName       string    `json:"grant_name"`
	GrantTimeline   string    `json:"grant_timeline"`
	GrantBudget     string    `json:"grant_budget"`
	ProjectID       uuid.UUID `json:"project_id"`
	ProjectName     string    `json:"project_name"`
	ProjectTimeline string    `json:"project_timeline"`
	ProjectBudget   string    `json:"project_budget"`
	CreatedAt       time.Time `json:"created_at"`
}

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
