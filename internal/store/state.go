package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/SignHolo/companion/internal/emotion"
	"github.com/SignHolo/companion/internal/session"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// LoadEmotion returns the persisted emotion state, or the default state
// when the companion has never run before.
func (s *Store) LoadEmotion(ctx context.Context, now time.Time) (emotion.State, error) {
	row := s.db.QueryRow(ctx, `
		SELECT mood, energy, attachment, social_battery, sleepiness,
		       irritation, volatility, curiosity, last_updated
		FROM companion_state WHERE id = 1`)

	var st emotion.State
	var mood string
	err := row.Scan(&mood, &st.Energy, &st.Attachment, &st.SocialBattery,
		&st.Sleepiness, &st.Irritation, &st.Volatility, &st.Curiosity, &st.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return emotion.DefaultState(now), nil
	}
	if err != nil {
		return emotion.State{}, fmt.Errorf("load emotion state: %w", err)
	}
	st.Mood = emotion.Mood(mood)
	return st, nil
}

// SaveEmotion persists the emotion state. There is exactly one companion,
// so the table holds one row.
func (s *Store) SaveEmotion(ctx context.Context, st emotion.State) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO companion_state (id, mood, energy, attachment, social_battery,
		                             sleepiness, irritation, volatility, curiosity, last_updated)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			mood = EXCLUDED.mood,
			energy = EXCLUDED.energy,
			attachment = EXCLUDED.attachment,
			social_battery = EXCLUDED.social_battery,
			sleepiness = EXCLUDED.sleepiness,
			irritation = EXCLUDED.irritation,
			volatility = EXCLUDED.volatility,
			curiosity = EXCLUDED.curiosity,
			last_updated = EXCLUDED.last_updated`,
		string(st.Mood), st.Energy, st.Attachment, st.SocialBattery,
		st.Sleepiness, st.Irritation, st.Volatility, st.Curiosity, st.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("save emotion state: %w", err)
	}
	return nil
}

// LoadSession returns the working session memory for a conversation, or a
// fresh one when none exists.
func (s *Store) LoadSession(ctx context.Context, conversationID string) (session.Memory, error) {
	row := s.db.QueryRow(ctx, `
		SELECT summary, dominant_intent, dominant_emotion, unresolved, significance, updated_at
		FROM sessions WHERE conversation_id = $1`, conversationID)

	var mem session.Memory
	var dominantEmotion string
	var updatedAt time.Time
	err := row.Scan(&mem.Summary, &mem.DominantIntent, &dominantEmotion,
		&mem.Unresolved, &mem.Significance, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return session.New(), nil
	}
	if err != nil {
		return session.Memory{}, fmt.Errorf("load session %s: %w", conversationID, err)
	}
	mem.DominantEmotion = emotion.Mood(dominantEmotion)
	mem.UpdatedAt = updatedAt
	return mem, nil
}

// SaveSession persists the working session memory for a conversation.
func (s *Store) SaveSession(ctx context.Context, conversationID string, mem session.Memory) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO sessions (conversation_id, summary, dominant_intent, dominant_emotion,
		                      unresolved, significance, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (conversation_id) DO UPDATE SET
			summary = EXCLUDED.summary,
			dominant_intent = EXCLUDED.dominant_intent,
			dominant_emotion = EXCLUDED.dominant_emotion,
			unresolved = EXCLUDED.unresolved,
			significance = EXCLUDED.significance,
			updated_at = EXCLUDED.updated_at`,
		conversationID, mem.Summary, mem.DominantIntent, string(mem.DominantEmotion),
		mem.Unresolved, mem.Significance, mem.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", conversationID, err)
	}
	return nil
}

// ResetSession clears the working session memory for a conversation.
func (s *Store) ResetSession(ctx context.Context, conversationID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE conversation_id = $1`, conversationID)
	if err != nil {
		return fmt.Errorf("reset session %s: %w", conversationID, err)
	}
	return nil
}
