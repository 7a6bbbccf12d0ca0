// Package gateway connects the companion to chat surfaces. Each adapter
// normalizes one platform's direct messages into turns.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SignHolo/companion/internal/orchestrator"
)

// Adapter is one platform surface.
type Adapter interface {
	Platform() string
	Connect(ctx context.Context) error
	Send(ctx context.Context, msg *Outbound) error
	OnMessage(handler InboundHandler)
	Close() error
}

// InboundHandler processes a normalized inbound message.
type InboundHandler func(msg *Inbound)

// Inbound is a normalized direct message from any platform.
type Inbound struct {
	Platform  string    `json:"platform"`
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Outbound is a reply sent back to a platform channel.
type Outbound struct {
	Platform  string `json:"platform"`
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
}

// TurnFunc runs one turn and returns the companion's reply.
type TurnFunc func(ctx context.Context, conversationID, input string) (string, error)

// Gateway fans inbound messages from all adapters into the turn pipeline
// and routes replies back to their origin.
type Gateway struct {
	adapters map[string]Adapter
	turn     TurnFunc
	mu       sync.RWMutex
	logger   *zap.Logger
}

// New creates a gateway over the given turn function.
func New(turn TurnFunc, logger *zap.Logger) *Gateway {
	return &Gateway{
		adapters: make(map[string]Adapter),
		turn:     turn,
		logger:   logger,
	}
}

// Register adds an adapter and wires its inbound messages into the turn
// pipeline.
func (g *Gateway) Register(adapter Adapter) {
	g.mu.Lock()
	defer g.mu.Unlock()

	platform := adapter.Platform()
	g.adapters[platform] = adapter
	adapter.OnMessage(g.handleInbound)
	g.logger.Info("gateway adapter registered", zap.String("platform", platform))
}

func (g *Gateway) handleInbound(msg *Inbound) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Conversation identity is platform-scoped so the same user on two
	// surfaces stays two transcript streams.
	conversationID := msg.Platform + ":" + msg.ChannelID

	reply, err := g.turn(ctx, conversationID, msg.Content)
	if errors.Is(err, orchestrator.ErrTurnInFlight) {
		g.logger.Debug("dropped message, turn in flight",
			zap.String("conversation", conversationID))
		return
	}
	if err != nil {
		g.logger.Error("turn failed",
			zap.String("conversation", conversationID), zap.Error(err))
		return
	}

	if err := g.Send(ctx, &Outbound{
		Platform:  msg.Platform,
		ChannelID: msg.ChannelID,
		Content:   reply,
	}); err != nil {
		g.logger.Error("reply not delivered",
			zap.String("conversation", conversationID), zap.Error(err))
	}
}

// Send delivers a message through the adapter for its platform.
func (g *Gateway) Send(ctx context.Context, msg *Outbound) error {
	g.mu.RLock()
	adapter, ok := g.adapters[msg.Platform]
	g.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no adapter for platform: %s", msg.Platform)
	}
	return adapter.Send(ctx, msg)
}

// ConnectAll starts every registered adapter.
func (g *Gateway) ConnectAll(ctx context.Context) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for platform, adapter := range g.adapters {
		if err := adapter.Connect(ctx); err != nil {
			return fmt.Errorf("connect %s: %w", platform, err)
		}
		g.logger.Info("adapter connected", zap.String("platform", platform))
	}
	return nil
}

// Close shuts down all adapters.
func (g *Gateway) Close() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for platform, adapter := range g.adapters {
		if err := adapter.Close(); err != nil {
			g.logger.Error("adapter close failed",
				zap.String("platform", platform), zap.Error(err))
		}
	}
	return nil
}
