package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InsertEpisodic stores a new episodic memory and returns its ID. Episodic
// memories are immutable after creation; only the embedding flag may flip.
func (s *Store) InsertEpisodic(ctx context.Context, m EpisodicMemory) (string, error) {
	id := m.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO episodic_memories
			(id, summary, narrative, emotion, importance, emotional_weight, decay_rate, has_embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, m.Summary, m.Narrative, m.Emotion, m.Importance,
		m.EmotionalWeight, m.DecayRate, m.HasEmbedding, m.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert episodic memory: %w", err)
	}
	return id, nil
}

// MarkEmbedded records that the vector for an episodic memory landed in
// the index.
func (s *Store) MarkEmbedded(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE episodic_memories SET has_embedding = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark embedded %s: %w", id, err)
	}
	return nil
}

// RecentEpisodic returns the latest episodic memories as ranking candidates.
func (s *Store) RecentEpisodic(ctx context.Context, limit int) ([]EpisodicMemory, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, summary, narrative, emotion, importance,
		       COALESCE(emotional_weight,''), COALESCE(decay_rate,''), has_embedding, created_at
		FROM episodic_memories
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent episodic: %w", err)
	}
	defer rows.Close()

	var out []EpisodicMemory
	for rows.Next() {
		var m EpisodicMemory
		if err := rows.Scan(&m.ID, &m.Summary, &m.Narrative, &m.Emotion, &m.Importance,
			&m.EmotionalWeight, &m.DecayRate, &m.HasEmbedding, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan episodic: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetTrace returns the trace for a pattern, or ErrNotFound.
func (s *Store) GetTrace(ctx context.Context, pattern string) (*EmotionalTrace, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, pattern, confidence, evidence_count, last_updated
		FROM emotional_traces WHERE pattern = $1`, pattern)

	var tr EmotionalTrace
	err := row.Scan(&tr.ID, &tr.Pattern, &tr.Confidence, &tr.EvidenceCount, &tr.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get trace %s: %w", pattern, err)
	}
	return &tr, nil
}

// SaveTrace upserts a trace keyed by its pattern.
func (s *Store) SaveTrace(ctx context.Context, tr EmotionalTrace) error {
	id := tr.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO emotional_traces (id, pattern, confidence, evidence_count, last_updated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (pattern) DO UPDATE SET
			confidence = EXCLUDED.confidence,
			evidence_count = EXCLUDED.evidence_count,
			last_updated = EXCLUDED.last_updated`,
		id, tr.Pattern, tr.Confidence, tr.EvidenceCount, tr.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("save trace %s: %w", tr.Pattern, err)
	}
	return nil
}

// ListTraces returns all traces ordered by confidence.
func (s *Store) ListTraces(ctx context.Context) ([]EmotionalTrace, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, pattern, confidence, evidence_count, last_updated
		FROM emotional_traces
		ORDER BY confidence DESC`)
	if err != nil {
		return nil, fmt.Errorf("list traces: %w", err)
	}
	defer rows.Close()

	var out []EmotionalTrace
	for rows.Next() {
		var tr EmotionalTrace
		if err := rows.Scan(&tr.ID, &tr.Pattern, &tr.Confidence, &tr.EvidenceCount, &tr.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan trace: %w", err)
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

// UpsertSemantic replaces the value for a fact key.
func (s *Store) UpsertSemantic(ctx context.Context, key, value string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO semantic_memories (id, key, value, updated_at)
		VALUES (gen_random_uuid(), $1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("upsert semantic %s: %w", key, err)
	}
	return nil
}

// ListSemantic returns all known facts.
func (s *Store) ListSemantic(ctx context.Context) ([]SemanticMemory, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, key, value, updated_at FROM semantic_memories ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list semantic: %w", err)
	}
	defer rows.Close()

	var out []SemanticMemory
	for rows.Next() {
		var m SemanticMemory
		if err := rows.Scan(&m.ID, &m.Key, &m.Value, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan semantic: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpsertIdentity stores a belief about the user. Re-stating a belief keeps
// the higher confidence.
func (s *Store) UpsertIdentity(ctx context.Context, statement string, confidence float64) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO identity_memories (id, statement, confidence, updated_at)
		VALUES (gen_random_uuid(), $1, $2, NOW())
		ON CONFLICT (statement) DO UPDATE SET
			confidence = GREATEST(identity_memories.confidence, EXCLUDED.confidence),
			updated_at = EXCLUDED.updated_at`,
		statement, confidence,
	)
	if err != nil {
		return fmt.Errorf("upsert identity: %w", err)
	}
	return nil
}

// ListIdentity returns all beliefs about the user ordered by confidence.
func (s *Store) ListIdentity(ctx context.Context) ([]IdentityMemory, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, statement, confidence, updated_at
		FROM identity_memories ORDER BY confidence DESC`)
	if err != nil {
		return nil, fmt.Errorf("list identity: %w", err)
	}
	defer rows.Close()

	var out []IdentityMemory
	for rows.Next() {
		var m IdentityMemory
		if err := rows.Scan(&m.ID, &m.Statement, &m.Confidence, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// InsertSelfBelief stores a statement the companion now holds about itself.
func (s *Store) InsertSelfBelief(ctx context.Context, statement string, confidence float64) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO self_beliefs (id, statement, confidence, created_at)
		VALUES (gen_random_uuid(), $1, $2, NOW())
		ON CONFLICT (statement) DO UPDATE SET
			confidence = GREATEST(self_beliefs.confidence, EXCLUDED.confidence)`,
		statement, confidence,
	)
	if err != nil {
		return fmt.Errorf("insert self belief: %w", err)
	}
	return nil
}

// ListSelfBeliefs returns what the companion believes about itself.
func (s *Store) ListSelfBeliefs(ctx context.Context) ([]SelfBelief, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, statement, confidence, created_at
		FROM self_beliefs ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list self beliefs: %w", err)
	}
	defer rows.Close()

	var out []SelfBelief
	for rows.Next() {
		var b SelfBelief
		if err := rows.Scan(&b.ID, &b.Statement, &b.Confidence, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan self belief: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
