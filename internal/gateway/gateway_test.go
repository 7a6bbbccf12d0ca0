package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/SignHolo/companion/internal/orchestrator"
)

type stubAdapter struct {
	platform string
	handler  InboundHandler
	mu       sync.Mutex
	sent     []*Outbound
}

func (s *stubAdapter) Platform() string                { return s.platform }
func (s *stubAdapter) Connect(_ context.Context) error { return nil }
func (s *stubAdapter) OnMessage(h InboundHandler)      { s.handler = h }
func (s *stubAdapter) Close() error                    { return nil }
func (s *stubAdapter) Send(_ context.Context, msg *Outbound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *stubAdapter) sentMessages() []*Outbound {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

func TestInboundRunsTurnAndRepliesToOrigin(t *testing.T) {
	var gotConvo, gotInput string
	turn := func(_ context.Context, conversationID, input string) (string, error) {
		gotConvo, gotInput = conversationID, input
		return "hi there", nil
	}

	g := New(turn, zap.NewNop())
	adapter := &stubAdapter{platform: "discord"}
	g.Register(adapter)

	adapter.handler(&Inbound{Platform: "discord", ChannelID: "ch-9", Content: "hello"})

	if gotConvo != "discord:ch-9" || gotInput != "hello" {
		t.Errorf("turn called with %q, %q", gotConvo, gotInput)
	}
	sent := adapter.sentMessages()
	if len(sent) != 1 || sent[0].Content != "hi there" {
		t.Errorf("sent = %+v", sent)
	}
}

func TestInFlightTurnDropsSilently(t *testing.T) {
	turn := func(_ context.Context, _, _ string) (string, error) {
		return "", orchestrator.ErrTurnInFlight
	}
	g := New(turn, zap.NewNop())
	adapter := &stubAdapter{platform: "slack"}
	g.Register(adapter)

	adapter.handler(&Inbound{Platform: "slack", ChannelID: "D1", Content: "spam"})
	if len(adapter.sentMessages()) != 0 {
		t.Error("dropped turn must not produce a reply")
	}
}

func TestTurnErrorProducesNoReply(t *testing.T) {
	turn := func(_ context.Context, _, _ string) (string, error) {
		return "", errors.New("storage down")
	}
	g := New(turn, zap.NewNop())
	adapter := &stubAdapter{platform: "discord"}
	g.Register(adapter)

	adapter.handler(&Inbound{Platform: "discord", ChannelID: "ch", Content: "hi"})
	if len(adapter.sentMessages()) != 0 {
		t.Error("failed turn must not produce a reply")
	}
}

func TestSendUnknownPlatform(t *testing.T) {
	g := New(nil, zap.NewNop())
	if err := g.Send(context.Background(), &Outbound{Platform: "telegram"}); err == nil {
		t.Error("unknown platform should error")
	}
}
