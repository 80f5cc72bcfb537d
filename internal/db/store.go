package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/beingthebridges/grantpal/internal/models"
)

// ErrNoGrant is returned when a match is confirmed before any grant exists.
var ErrNoGrant = errors.New("no grant found in database")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InsertGrant stores a serialized grant record. embedding may be nil when no
// embedder is configured.
func (s *Store) InsertGrant(ctx context.Context, g models.GrantRecord, embedding []float32) (uuid.UUID, error) {
	var vec any
	if len(embedding) > 0 {
		vec = pgvector.NewVector(embedding)
	}

	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO grants (name, timeline, applicants, budget, source_url, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, g.Name, g.Timeline, g.Applicants, g.Budget, g.SourceURL, vec).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert grant: %w", err)
	}
	return id, nil
}

const grantCols = "id, name, timeline, applicants, budget, source_url, created_at"

func scanGrant(row pgx.Row) (*models.GrantRecord, error) {
	var g models.GrantRecord
	err := row.Scan(&g.ID, &g.Name, &g.Timeline, &g.Applicants, &g.Budget, &g.SourceURL, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// LatestGrant returns the most recently inserted grant.
func (s *Store) LatestGrant(ctx context.Context) (*models.GrantRecord, error) {
	g, err := scanGrant(s.pool.QueryRow(ctx,
		"SELECT "+grantCols+" FROM grants ORDER BY created_at DESC, id DESC LIMIT 1"))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoGrant
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest grant: %w", err)
	}
	return g, nil
}

func (s *Store) GetGrant(ctx context.Context, id uuid.UUID) (*models.GrantRecord, error) {
	g, err := scanGrant(s.pool.QueryRow(ctx,
		"SELECT "+grantCols+" FROM grants WHERE id = $1", id))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch grant %s: %w", id, err)
	}
	return g, nil
}

type GrantListParams struct {
	QueryEmbedding []float32
	Limit          int
	Offset         int
}

// ListGrants returns grants newest first, or by embedding distance when a
// query embedding is provided.
func (s *Store) ListGrants(ctx context.Context, params GrantListParams) ([]models.GrantRecord, error) {
	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	var rows pgx.Rows
	var err error
	if len(params.QueryEmbedding) > 0 {
		rows, err = s.pool.Query(ctx, `
			SELECT `+grantCols+` FROM grants
			ORDER BY embedding <=> $1 NULLS LAST, created_at DESC
			LIMIT $2 OFFSET $3
		`, pgvector.NewVector(params.QueryEmbedding), limit, offset)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT `+grantCols+` FROM grants
			ORDER BY created_at DESC
			LIMIT $1 OFFSET $2
		`, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	var grants []models.GrantRecord
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, *g)
	}
	return grants, rows.Err()
}

type SaveMatchParams struct {
	// GrantID selects the grant explicitly. When nil the most recently
	// inserted grant is used (legacy binding).
	GrantID    *uuid.UUID
	Project    models.ProjectRecord
	MatchScore int
	IsUrgent   bool
}

type SavedMatch struct {
	MatchID   uuid.UUID `json:"match_id"`
	GrantID   uuid.UUID `json:"grant_id"`
	ProjectID uuid.UUID `json:"project_id"`
}

// SaveMatch inserts the confirmed project and its match row in one
// transaction, so a failure never leaves an orphan project.
func (s *Store) SaveMatch(ctx context.Context, params SaveMatchParams) (*SavedMatch, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var grantID uuid.UUID
	if params.GrantID != nil {
		if err := tx.QueryRow(ctx,
			"SELECT id FROM grants WHERE id = $1", *params.GrantID,
		).Scan(&grantID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrNoGrant
			}
			return nil, fmt.Errorf("failed to resolve grant: %w", err)
		}
	} else {
		err := tx.QueryRow(ctx,
			"SELECT id FROM grants ORDER BY created_at DESC, id DESC LIMIT 1",
		).Scan(&grantID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoGrant
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve latest grant: %w", err)
		}
	}

	p := params.Project
	var projectID uuid.UUID
	if err := tx.QueryRow(ctx, `
		INSERT INTO projects (name, timeline, budget, directions, source_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, p.Name, p.Timeline, p.Budget, p.Directions, p.SourceURL).Scan(&projectID); err != nil {
		return nil, fmt.Errorf("failed to insert project: %w", err)
	}

	var matchID uuid.UUID
	if err := tx.QueryRow(ctx, `
		INSERT INTO matches (grant_id, project_id, match_score, is_urgent)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, grantID, projectID, params.MatchScore, params.IsUrgent).Scan(&matchID); err != nil {
		return nil, fmt.Errorf("failed to insert match: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit match: %w", err)
	}

	return &SavedMatch{MatchID: matchID, GrantID: grantID, ProjectID: projectID}, nil
}

// ListMatches returns all matches joined with their grant and project rows,
// newest first.
func (s *Store) ListMatches(ctx context.Context) ([]models.MatchRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			m.id, m.match_score, m.is_urgent, m.created_at,
			g.id, g.name, g.timeline, g.budget,
			p.id, p.name, p.timeline, p.budget
		FROM matches m
		JOIN grants g ON m.grant_id = g.id
		JOIN projects p ON m.project_id = p.id
		ORDER BY m.created_at DESC, m.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var result []models.MatchRow
	for rows.Next() {
		var r models.MatchRow
		if err := rows.Scan(
			&r.MatchID, &r.MatchScore, &r.IsUrgent, &r.CreatedAt,
			&r.GrantID, &r.GrantName, &r.GrantTimeline, &r.GrantBudget,
			&r.ProjectID, &r.ProjectName, &r.ProjectTimeline, &r.ProjectBudget,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
