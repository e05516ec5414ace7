// Package store persists assessments, messages, and candidate records, and
// rebuilds the in-memory registry on startup.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"candidate-risk-engine/internal/common/errors"
	"candidate-risk-engine/internal/common/logger"
	"candidate-risk-engine/internal/engine/journey"
	"candidate-risk-engine/internal/models"
)

// PostgresStore is the durable system of record. The in-memory registry is
// authoritative at runtime; this store exists for audit and warm start.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "store"}),
	}
}

// RecordAssessment appends an assessment row. Factors are stored as JSONB so
// the dashboard can group by factor name without schema churn.
func (s *PostgresStore) RecordAssessment(ctx context.Context, a models.RiskAssessment) error {
	factors, err := json.Marshal(a.Factors)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO risk_assessments (id, candidate_id, probability, level, factors, assessed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := s.db.ExecContext(ctx, query,
		a.ID, a.CandidateID, a.Probability, string(a.Level), factors, a.AssessedAt,
	); err != nil {
		return errors.NewDatabaseWriteFailedError(err)
	}
	return nil
}

// RecordMessage appends an accepted activity event. The primary key on id
// makes replays idempotent at the database level too.
func (s *PostgresStore) RecordMessage(ctx context.Context, m models.Message) error {
	query := `
		INSERT INTO candidate_messages (id, candidate_id, direction, content, sentiment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	if _, err := s.db.ExecContext(ctx, query,
		m.ID, m.CandidateID, string(m.Direction), m.Content, m.Sentiment, m.Timestamp,
	); err != nil {
		return errors.NewDatabaseWriteFailedError(err)
	}
	return nil
}

// SaveCandidate upserts the candidate's current journey position.
func (s *PostgresStore) SaveCandidate(ctx context.Context, c *models.Candidate) error {
	query := `
		INSERT INTO candidates (id, name, email, current_state, state_entered_at, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			current_state = EXCLUDED.current_state,
			state_entered_at = EXCLUDED.state_entered_at,
			last_activity_at = EXCLUDED.last_activity_at`

	if _, err := s.db.ExecContext(ctx, query,
		c.ID, c.Name, c.Email, string(c.CurrentState), c.StateEnteredAt, nullableTime(c.LastActivityAt),
	); err != nil {
		return errors.NewDatabaseWriteFailedError(err)
	}
	return nil
}

// LoadActiveCandidates rebuilds the monitored population for a warm start.
// Terminal candidates are excluded; they are done being monitored.
func (s *PostgresStore) LoadActiveCandidates(ctx context.Context) ([]*models.Candidate, error) {
	query := `
		SELECT id, name, email, current_state, state_entered_at, last_activity_at
		FROM candidates
		WHERE current_state NOT IN ($1, $2)`

	rows, err := s.db.QueryContext(ctx, query,
		string(journey.StateHired), string(journey.StateDisqualified))
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	defer rows.Close()

	var out []*models.Candidate
	for rows.Next() {
		var c models.Candidate
		var state string
		var lastActivity sql.NullTime
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &state, &c.StateEnteredAt, &lastActivity); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.CurrentState = journey.State(state)
		if lastActivity.Valid {
			c.LastActivityAt = lastActivity.Time
		}
		if !journey.IsValid(c.CurrentState) {
			s.logger.Warn("skipping candidate with unknown state", map[string]interface{}{
				"candidateId": c.ID,
				"state":       state,
			})
			continue
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// RecentMessages returns up to limit messages for a candidate, newest last,
// used to seed the activity window on warm start.
func (s *PostgresStore) RecentMessages(ctx context.Context, candidateID string, limit int) ([]models.Message, error) {
	query := `
		SELECT id, candidate_id, direction, content, sentiment, created_at
		FROM candidate_messages
		WHERE candidate_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, candidateID, limit)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		var direction string
		if err := rows.Scan(&m.ID, &m.CandidateID, &direction, &m.Content, &m.Sentiment, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Direction = models.Direction(direction)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to oldest-first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
