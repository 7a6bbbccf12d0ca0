// Package orchestrator runs the companion's turn pipeline: one user input
// in, one reply out, with every state mutation sequenced in between.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SignHolo/companion/internal/assembler"
	"github.com/SignHolo/companion/internal/embedding"
	"github.com/SignHolo/companion/internal/emotion"
	"github.com/SignHolo/companion/internal/intent"
	"github.com/SignHolo/companion/internal/promotion"
	"github.com/SignHolo/companion/internal/provider"
	"github.com/SignHolo/companion/internal/reflection"
	"github.com/SignHolo/companion/internal/session"
	"github.com/SignHolo/companion/internal/store"
)

// sessionIdleReset ends a working session after this much silence; the
// next turn starts from a fresh session memory.
const sessionIdleReset = 6 * time.Hour

// placeholderReply is returned when generation fails. State mutations from
// earlier in the turn still persist.
const placeholderReply = "Sorry, I lost my train of thought for a second. Say that again?"

// taughtBeliefConfidence seeds beliefs the user teaches explicitly.
const taughtBeliefConfidence = 0.8

// observedIdentityConfidence seeds identity statements the extraction model
// infers from a session. Repeated observations merge upward, never down.
const observedIdentityConfidence = 0.6

// candidateFetchLimit bounds how many episodic rows feed the ranker.
const candidateFetchLimit = 50

// promotionTimeout bounds the background extraction and indexing work that
// runs after the reply is committed.
const promotionTimeout = 30 * time.Second

// Storage is the persistence surface the pipeline needs. *store.Store
// satisfies it; tests substitute fakes.
type Storage interface {
	LoadEmotion(ctx context.Context, now time.Time) (emotion.State, error)
	SaveEmotion(ctx context.Context, st emotion.State) error
	LoadSession(ctx context.Context, conversationID string) (session.Memory, error)
	SaveSession(ctx context.Context, conversationID string, mem session.Memory) error
	ResetSession(ctx context.Context, conversationID string) error
	AppendMessage(ctx context.Context, conversationID, role, content string) error
	RecentMessages(ctx context.Context, conversationID string, n int) ([]store.Message, error)
	RecentEpisodic(ctx context.Context, limit int) ([]store.EpisodicMemory, error)
	InsertEpisodic(ctx context.Context, m store.EpisodicMemory) (string, error)
	MarkEmbedded(ctx context.Context, id string) error
	ListTraces(ctx context.Context) ([]store.EmotionalTrace, error)
	GetTrace(ctx context.Context, pattern string) (*store.EmotionalTrace, error)
	SaveTrace(ctx context.Context, tr store.EmotionalTrace) error
	ListSemantic(ctx context.Context) ([]store.SemanticMemory, error)
	UpsertSemantic(ctx context.Context, key, value string) error
	ListIdentity(ctx context.Context) ([]store.IdentityMemory, error)
	UpsertIdentity(ctx context.Context, statement string, confidence float64) error
	InsertSelfBelief(ctx context.Context, statement string, confidence float64) error
	InsertSelfState(ctx context.Context, st store.SelfState) error
	LatestSelfState(ctx context.Context) (*store.SelfState, error)
	InsertMonologue(ctx context.Context, m store.Monologue) error
	UnsurfacedMonologues(ctx context.Context, limit int) ([]store.Monologue, error)
	MarkSurfaced(ctx context.Context, ids []string) error
}

// VectorIndex is the similarity surface over episodic memories.
type VectorIndex interface {
	IndexMemory(ctx context.Context, memoryID string, vector []float32, summary string) error
	SimilarTo(ctx context.Context, vector []float32, topK uint64) (map[string]float64, error)
}

// Classifier labels user input.
type Classifier interface {
	Classify(ctx context.Context, text string) intent.Label
}

// Generator is the slice of the provider router the pipeline calls.
type Generator interface {
	Generate(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error)
}

// Persona shapes the companion's voice in the generation prompt.
type Persona struct {
	Name         string
	SystemPrompt string
	Traits       []string
}

// Orchestrator wires the full turn pipeline together.
type Orchestrator struct {
	storage     Storage
	gate        Gate
	buffer      *Buffer
	classifier  Classifier
	generator   Generator
	embedder    embedding.Provider
	index       VectorIndex
	monologist  *reflection.Monologist
	persona     Persona
	logger      *zap.Logger
	clock       func() time.Time

	mu          sync.Mutex
	lastConvoID string // conversation the idle cycle reflects over

	bg sync.WaitGroup // background promotion work in flight
}

// Options carries the optional collaborators. Embedder and Index may be
// nil; the pipeline then skips similarity scoring and vector indexing.
type Options struct {
	Embedder   embedding.Provider
	Index      VectorIndex
	Monologist *reflection.Monologist
	Clock      func() time.Time
}

// New creates an orchestrator.
func New(storage Storage, gate Gate, classifier Classifier, generator Generator, persona Persona, logger *zap.Logger, opts Options) *Orchestrator {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Orchestrator{
		storage:    storage,
		gate:       gate,
		buffer:     NewBuffer(12),
		classifier: classifier,
		generator:  generator,
		embedder:   opts.Embedder,
		index:      opts.Index,
		monologist: opts.Monologist,
		persona:    persona,
		logger:     logger,
		clock:      clock,
	}
}

// HandleTurn runs one full turn for a conversation and returns the visible
// reply. Concurrent turns for the same conversation return ErrTurnInFlight.
func (o *Orchestrator) HandleTurn(ctx context.Context, conversationID, input string) (string, error) {
	release, err := o.gate.Acquire(ctx, conversationID)
	if err != nil {
		return "", err
	}
	defer release()

	now := o.clock()
	o.mu.Lock()
	o.lastConvoID = conversationID
	o.mu.Unlock()

	// Explicit identity teaching short-circuits the whole pipeline.
	if statement, ok := teachBelief(input); ok {
		return o.handleTaughtBelief(ctx, conversationID, input, statement)
	}

	// The raw input lands in the transcript first. The transcript is the
	// system of record; losing it fails the whole turn.
	if err := o.storage.AppendMessage(ctx, conversationID, "user", input); err != nil {
		return "", fmt.Errorf("append user message: %w", err)
	}

	// Phase 1: time-driven decay over the interaction gap.
	state, err := o.storage.LoadEmotion(ctx, now)
	if err != nil {
		return "", err
	}
	gap := now.Sub(state.LastUpdated)
	if gap < 0 {
		gap = 0
	}
	state = emotion.Decay(state, now)

	// Classification never fails; worst case is the keyword fallback.
	label := o.classifier.Classify(ctx, input)

	// Phase 2: event-driven update from this turn, persisted immediately so
	// a later failure cannot lose the emotional effect.
	state = emotion.Apply(state, label, o.persona.Traits, now)
	if err := o.storage.SaveEmotion(ctx, state); err != nil {
		o.logger.Error("emotion state not persisted", zap.Error(err))
	}

	mem, err := o.loadSessionWithIdleReset(ctx, conversationID, now)
	if err != nil {
		return "", err
	}
	mem = session.Update(mem, label, state, input)
	mem.UpdatedAt = now

	// Promotion is decided now; the episodic write itself waits until
	// after the reply, where extraction can dress it up. A captured
	// moment discharges the session so the next promotion needs fresh
	// buildup.
	promo := promotion.Evaluate(mem)
	if promo.Episodic != nil {
		mem.Significance = promotion.PostPromotionSignificance
	}
	if err := o.storage.SaveSession(ctx, conversationID, mem); err != nil {
		o.logger.Error("session not persisted", zap.Error(err))
	}
	if promo.Trace != nil {
		o.reinforceTrace(ctx, promo.Trace.Pattern, now)
	}

	candidates, similarity, monologues, prevSelf := o.fetchContext(ctx, input)

	bundle := assembler.Assemble(assembler.Input{
		State:         state,
		Session:       mem,
		Candidates:    candidates,
		Gap:           gap,
		Now:           now,
		Similarity:    similarity,
		Monologues:    monologues,
		PrevSelfState: prevSelf,
	})

	visible, selfState := o.generateReply(ctx, conversationID, bundle, input)

	if err := o.storage.AppendMessage(ctx, conversationID, "companion", visible); err != nil {
		return "", fmt.Errorf("append companion message: %w", err)
	}
	o.buffer.Append(conversationID, store.Message{Role: "user", Content: input, CreatedAt: now})
	o.buffer.Append(conversationID, store.Message{Role: "companion", Content: visible, CreatedAt: now})

	// Everything past this point is best effort: the reply is already
	// committed. The episodic write runs off the turn entirely so the
	// extraction model call and index writes never delay the reply.
	if promo.Episodic != nil {
		o.bg.Add(1)
		go func() {
			defer o.bg.Done()
			bgCtx, cancel := context.WithTimeout(context.Background(), promotionTimeout)
			defer cancel()
			o.promoteEpisodic(bgCtx, conversationID, promo.Episodic, now)
		}()
	}
	if selfState != nil {
		if err := o.storage.InsertSelfState(ctx, *selfState); err != nil {
			o.logger.Warn("self state not persisted", zap.Error(err))
		}
	}
	o.markConsumedMonologues(ctx, monologues)

	return visible, nil
}

func (o *Orchestrator) handleTaughtBelief(ctx context.Context, conversationID, input, statement string) (string, error) {
	if err := o.storage.InsertSelfBelief(ctx, statement, taughtBeliefConfidence); err != nil {
		return "", err
	}
	reply := "I'll hold onto that. It feels true when you say it."
	if err := o.storage.AppendMessage(ctx, conversationID, "user", input); err != nil {
		return "", fmt.Errorf("append user message: %w", err)
	}
	if err := o.storage.AppendMessage(ctx, conversationID, "companion", reply); err != nil {
		return "", fmt.Errorf("append companion message: %w", err)
	}
	o.logger.Info("self belief taught", zap.String("statement", statement))
	return reply, nil
}

func (o *Orchestrator) loadSessionWithIdleReset(ctx context.Context, conversationID string, now time.Time) (session.Memory, error) {
	mem, err := o.storage.LoadSession(ctx, conversationID)
	if err != nil {
		return session.Memory{}, err
	}
	if !mem.UpdatedAt.IsZero() && now.Sub(mem.UpdatedAt) > sessionIdleReset {
		if err := o.storage.ResetSession(ctx, conversationID); err != nil {
			o.logger.Warn("session reset failed", zap.Error(err))
		}
		o.buffer.Reset(conversationID)
		o.logger.Info("session reset after idle gap",
			zap.Duration("idle", now.Sub(mem.UpdatedAt)))
		return session.New(), nil
	}
	return mem, nil
}

// fetchContext gathers ranking candidates and the input similarity scores
// concurrently. Each piece degrades to empty on failure; a turn never
// aborts because recall was unavailable.
func (o *Orchestrator) fetchContext(ctx context.Context, input string) (assembler.Candidates, map[string]float64, []store.Monologue, *store.SelfState) {
	var (
		wg         sync.WaitGroup
		candidates assembler.Candidates
		similarity map[string]float64
		monologues []store.Monologue
		prevSelf   *store.SelfState
	)

	fetch := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				o.logger.Warn("context fetch degraded",
					zap.String("part", name), zap.Error(err))
			}
		}()
	}

	fetch("episodic", func() (err error) {
		candidates.Episodic, err = o.storage.RecentEpisodic(ctx, candidateFetchLimit)
		return err
	})
	fetch("traces", func() (err error) {
		candidates.Traces, err = o.storage.ListTraces(ctx)
		return err
	})
	fetch("semantic", func() (err error) {
		candidates.Semantic, err = o.storage.ListSemantic(ctx)
		return err
	})
	fetch("identity", func() (err error) {
		candidates.Identity, err = o.storage.ListIdentity(ctx)
		return err
	})
	fetch("monologues", func() (err error) {
		monologues, err = o.storage.UnsurfacedMonologues(ctx, 2)
		return err
	})
	fetch("self_state", func() error {
		st, err := o.storage.LatestSelfState(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		prevSelf = st
		return err
	})
	if o.embedder != nil && o.index != nil {
		fetch("similarity", func() error {
			vec, err := embedding.EmbedOne(ctx, o.embedder, input)
			if err != nil {
				return err
			}
			similarity, err = o.index.SimilarTo(ctx, vec, candidateFetchLimit)
			return err
		})
	}

	wg.Wait()
	return candidates, similarity, monologues, prevSelf
}

// generateReply renders the prompt, calls the model, and splits off the
// self-state block. Generation failure yields the placeholder reply.
func (o *Orchestrator) generateReply(ctx context.Context, conversationID string, bundle assembler.Bundle, input string) (string, *store.SelfState) {
	var prompt strings.Builder
	prompt.WriteString(bundle.Render())
	prompt.WriteString("\n")
	for _, msg := range o.buffer.Window(conversationID) {
		prompt.WriteString(msg.Role + ": " + msg.Content + "\n")
	}
	prompt.WriteString("user: " + input + "\n" + o.persona.Name + ":")

	system := o.persona.SystemPrompt + "\n\n" + reflection.SelfStateInstruction

	resp, err := o.generator.Generate(ctx, &provider.GenerateRequest{
		System:      system,
		Prompt:      prompt.String(),
		MaxTokens:   1024,
		Temperature: 0.8,
	})
	if err != nil {
		o.logger.Error("reply generation failed", zap.Error(err))
		return placeholderReply, nil
	}
	return reflection.ParseSelfState(resp.Content)
}

func (o *Orchestrator) markConsumedMonologues(ctx context.Context, monologues []store.Monologue) {
	if len(monologues) == 0 {
		return
	}
	ids := make([]string, 0, len(monologues))
	for _, m := range monologues {
		ids = append(ids, m.ID)
	}
	if err := o.storage.MarkSurfaced(ctx, ids); err != nil {
		o.logger.Warn("monologues not marked surfaced", zap.Error(err))
	}
}

func (o *Orchestrator) promoteEpisodic(ctx context.Context, conversationID string, cand *promotion.EpisodicCandidate, now time.Time) {
	mem := store.EpisodicMemory{
		Summary:         cand.Summary,
		Emotion:         string(cand.Emotion),
		Importance:      cand.Importance,
		EmotionalWeight: weightFor(cand.Importance),
		DecayRate:       decayFor(cand.Importance),
		CreatedAt:       now,
	}

	// The narrative is a model nicety; the templated summary stands in
	// whenever extraction fails.
	if ex, ok := o.extractMemory(ctx, o.windowTranscript(conversationID)); ok {
		mem.Narrative = ex.Narrative
		if ex.Emotion != "" {
			mem.Emotion = ex.Emotion
		}
		for _, f := range ex.Facts {
			if f.Key == "" || f.Value == "" {
				continue
			}
			if err := o.storage.UpsertSemantic(ctx, f.Key, f.Value); err != nil {
				o.logger.Warn("fact not persisted", zap.String("key", f.Key), zap.Error(err))
			}
		}
		for _, obs := range ex.Observations {
			obs = strings.TrimSpace(obs)
			if obs == "" {
				continue
			}
			if err := o.storage.UpsertIdentity(ctx, obs, observedIdentityConfidence); err != nil {
				o.logger.Warn("identity observation not persisted", zap.Error(err))
			}
		}
	}

	id, err := o.storage.InsertEpisodic(ctx, mem)
	if err != nil {
		o.logger.Error("episodic memory not persisted", zap.Error(err))
		return
	}
	o.logger.Info("episodic memory promoted",
		zap.String("id", id), zap.Float64("importance", mem.Importance))

	if o.embedder == nil || o.index == nil {
		return
	}
	text := mem.Narrative
	if text == "" {
		text = mem.Summary
	}
	vec, err := embedding.EmbedOne(ctx, o.embedder, text)
	if err != nil {
		o.logger.Warn("memory not embedded", zap.String("id", id), zap.Error(err))
		return
	}
	if err := o.index.IndexMemory(ctx, id, vec, mem.Summary); err != nil {
		o.logger.Warn("memory not indexed", zap.String("id", id), zap.Error(err))
		return
	}
	if err := o.storage.MarkEmbedded(ctx, id); err != nil {
		o.logger.Warn("embedding flag not set", zap.String("id", id), zap.Error(err))
	}
}

func (o *Orchestrator) reinforceTrace(ctx context.Context, pattern string, now time.Time) {
	var existing *promotion.Trace
	stored, err := o.storage.GetTrace(ctx, pattern)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		o.logger.Error("trace lookup failed", zap.String("pattern", pattern), zap.Error(err))
		return
	}
	if stored != nil {
		existing = &promotion.Trace{
			Pattern:       stored.Pattern,
			Confidence:    stored.Confidence,
			EvidenceCount: stored.EvidenceCount,
		}
	}

	next := promotion.ReinforceTrace(existing, pattern)
	rec := store.EmotionalTrace{
		Pattern:       next.Pattern,
		Confidence:    next.Confidence,
		EvidenceCount: next.EvidenceCount,
		LastUpdated:   now,
	}
	if stored != nil {
		rec.ID = stored.ID
	}
	if err := o.storage.SaveTrace(ctx, rec); err != nil {
		o.logger.Error("trace not persisted", zap.String("pattern", pattern), zap.Error(err))
		return
	}
	o.logger.Info("trace reinforced",
		zap.String("pattern", pattern), zap.Float64("confidence", next.Confidence))
}

func (o *Orchestrator) windowTranscript(conversationID string) string {
	var sb strings.Builder
	for _, msg := range o.buffer.Window(conversationID) {
		sb.WriteString(msg.Role + ": " + msg.Content + "\n")
	}
	return sb.String()
}

// weightFor and decayFor derive storage classes from importance: heavier
// moments fade slower.
func weightFor(importance float64) string {
	switch {
	case importance >= 0.85:
		return store.WeightHigh
	case importance >= 0.7:
		return store.WeightMedium
	default:
		return store.WeightLow
	}
}

func decayFor(importance float64) string {
	switch {
	case importance >= 0.85:
		return store.DecaySlow
	case importance >= 0.7:
		return store.DecayNormal
	default:
		return store.DecayFast
	}
}

// Wait blocks until in-flight background promotion work has finished.
// Shutdown calls it so a final episodic write is not cut off mid-flight.
func (o *Orchestrator) Wait() {
	o.bg.Wait()
}

// ReflectIdle runs one monologue cycle. The heartbeat calls this between
// conversations.
func (o *Orchestrator) ReflectIdle(ctx context.Context) error {
	o.mu.Lock()
	convoID := o.lastConvoID
	o.mu.Unlock()
	if o.monologist == nil || convoID == "" {
		return nil
	}
	now := o.clock()

	state, err := o.storage.LoadEmotion(ctx, now)
	if err != nil {
		return err
	}
	state = emotion.Decay(state, now)

	history, err := o.storage.RecentMessages(ctx, convoID, 10)
	if err != nil {
		return err
	}

	// Long-term context for the inner voice. Each piece degrades to empty;
	// only missing history cancels the cycle.
	in := reflection.ReflectInput{History: history, State: state}
	if st, serr := o.storage.LatestSelfState(ctx); serr == nil {
		in.LastSelf = st
	} else if !errors.Is(serr, store.ErrNotFound) {
		o.logger.Warn("reflection input degraded", zap.String("part", "self_state"), zap.Error(serr))
	}
	if eps, eerr := o.storage.RecentEpisodic(ctx, 3); eerr == nil {
		in.Episodic = eps
	} else {
		o.logger.Warn("reflection input degraded", zap.String("part", "episodic"), zap.Error(eerr))
	}
	if facts, ferr := o.storage.ListSemantic(ctx); ferr == nil {
		in.Facts = facts
	} else {
		o.logger.Warn("reflection input degraded", zap.String("part", "facts"), zap.Error(ferr))
	}
	if monos, merr := o.storage.UnsurfacedMonologues(ctx, 2); merr == nil {
		in.Unsurfaced = monos
	} else {
		o.logger.Warn("reflection input degraded", zap.String("part", "monologues"), zap.Error(merr))
	}

	mono, err := o.monologist.Reflect(ctx, in)
	if err != nil || mono == nil {
		return err
	}
	if err := o.storage.InsertMonologue(ctx, *mono); err != nil {
		return err
	}
	o.logger.Info("monologue recorded", zap.String("tone", mono.Tone))
	return nil
}
