package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// InsertSelfState stores the self-state read-back parsed from one turn.
func (s *Store) InsertSelfState(ctx context.Context, st SelfState) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO self_states (id, current_state, intensity, shift, notable, created_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, NOW())`,
		st.CurrentState, st.Intensity, st.Shift, st.Notable,
	)
	if err != nil {
		return fmt.Errorf("insert self state: %w", err)
	}
	return nil
}

// LatestSelfState returns the most recent self-state, or ErrNotFound when
// the companion has not declared one yet.
func (s *Store) LatestSelfState(ctx context.Context) (*SelfState, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, current_state, intensity, COALESCE(shift,''), COALESCE(notable,''), created_at
		FROM self_states ORDER BY created_at DESC LIMIT 1`)

	var st SelfState
	err := row.Scan(&st.ID, &st.CurrentState, &st.Intensity, &st.Shift, &st.Notable, &st.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest self state: %w", err)
	}
	return &st, nil
}

// InsertMonologue stores a private reflection. It starts unsurfaced.
func (s *Store) InsertMonologue(ctx context.Context, m Monologue) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO monologues (id, text, tone, surfaced, created_at)
		VALUES (gen_random_uuid(), $1, $2, FALSE, $3)`,
		m.Text, m.Tone, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert monologue: %w", err)
	}
	return nil
}

// UnsurfacedMonologues returns private reflections no turn has consumed
// yet, oldest first.
func (s *Store) UnsurfacedMonologues(ctx context.Context, limit int) ([]Monologue, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, text, tone, surfaced, created_at
		FROM monologues
		WHERE surfaced = FALSE
		ORDER BY created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("unsurfaced monologues: %w", err)
	}
	defer rows.Close()

	var out []Monologue
	for rows.Next() {
		var m Monologue
		if err := rows.Scan(&m.ID, &m.Text, &m.Tone, &m.Surfaced, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan monologue: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkSurfaced flips the surfaced flag for consumed monologues. The flag
// only ever goes one way.
func (s *Store) MarkSurfaced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.Exec(ctx,
		`UPDATE monologues SET surfaced = TRUE WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("mark surfaced: %w", err)
	}
	return nil
}

// ListMonologues returns recent monologues regardless of surfaced state.
func (s *Store) ListMonologues(ctx context.Context, limit int) ([]Monologue, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, text, tone, surfaced, created_at
		FROM monologues
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list monologues: %w", err)
	}
	defer rows.Close()

	var out []Monologue
	for rows.Next() {
		var m Monologue
		if err := rows.Scan(&m.ID, &m.Text, &m.Tone, &m.Surfaced, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan monologue: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
