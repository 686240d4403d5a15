package transport

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/openai/openai-go/v3"
	"github.com/sealor/chat-relay/pkg/chat"
	"github.com/sealor/chat-relay/pkg/gateway"
	"github.com/sealor/chat-relay/pkg/relay"
	"github.com/sealor/chat-relay/pkg/tooling"
)

type scriptedGateway struct {
	script func(call int) (gateway.Outcome, error)
	calls  int
}

func (g *scriptedGateway) Infer(ctx context.Context, history []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolUnionParam) (gateway.Outcome, error) {
	g.calls++
	return g.script(g.calls)
}

func newRelayServer(t *testing.T, g gateway.Gateway) (*httptest.Server, *relay.Manager) {
	t.Helper()

	registry, err := tooling.NewRegistry(tooling.OrderStatus{})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	manager := relay.NewManager(relay.ManagerOptions{
		Orchestrator: &relay.Orchestrator{Gateway: g, Registry: registry},
	})
	ws := NewServer(manager, nil)
	manager.SetEmitter(ws)

	server := httptest.NewServer(ws)
	t.Cleanup(server.Close)
	return server, manager
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var envelope Envelope
	if err := conn.ReadJSON(&envelope); err != nil {
		t.Fatalf("read: %v", err)
	}
	return envelope
}

func sendText(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	data, err := json.Marshal(relay.ChatMessage{Text: text})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.WriteJSON(Envelope{Event: relay.EventChatMessage, Data: data}); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestRelayOverWebSocket(t *testing.T) {
	g := &scriptedGateway{script: func(call int) (gateway.Outcome, error) {
		if call == 1 {
			calls := []chat.ToolCall{{ID: "call_1", Name: "getOrderStatus", Arguments: `{"orderId":"12345"}`}}
			assistant := openai.AssistantMessage("")
			assistant.OfAssistant.ToolCalls = chat.ToolCallParams(calls)
			return gateway.Outcome{ToolCalls: calls, Assistant: assistant}, nil
		}
		return gateway.Outcome{Text: "Your order 12345 has shipped."}, nil
	}}
	server, _ := newRelayServer(t, g)
	conn := dial(t, server)

	if envelope := readEnvelope(t, conn); envelope.Event != relay.EventChatBacklog {
		t.Fatalf("first event = %s", envelope.Event)
	}

	sendText(t, conn, "What's the order status for 12345?")

	envelope := readEnvelope(t, conn)
	if envelope.Event != relay.EventChatMessage {
		t.Fatalf("event = %s", envelope.Event)
	}
	var reply relay.ChatMessage
	if err := json.Unmarshal(envelope.Data, &reply); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if reply.Role != chat.RoleAssistant {
		t.Fatalf("role = %s", reply.Role)
	}
	if reply.Text != "Your order 12345 has shipped." {
		t.Fatalf("text = %q", reply.Text)
	}
}

func TestMalformedPayloadsIgnored(t *testing.T) {
	g := &scriptedGateway{script: func(call int) (gateway.Outcome, error) {
		return gateway.Outcome{Text: "pong"}, nil
	}}
	server, _ := newRelayServer(t, g)
	conn := dial(t, server)
	readEnvelope(t, conn) // backlog

	// Empty text, non-string text and junk framing never produce a
	// reply.
	sendText(t, conn, "")
	if err := conn.WriteJSON(Envelope{Event: relay.EventChatMessage, Data: json.RawMessage(`{"text":123}`)}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}

	sendText(t, conn, "ping")

	var reply relay.ChatMessage
	envelope := readEnvelope(t, conn)
	if err := json.Unmarshal(envelope.Data, &reply); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if reply.Text != "pong" {
		t.Fatalf("text = %q", reply.Text)
	}
	if g.calls != 1 {
		t.Fatalf("gateway calls = %d", g.calls)
	}
}

func TestDisconnectRemovesSession(t *testing.T) {
	g := &scriptedGateway{script: func(call int) (gateway.Outcome, error) {
		return gateway.Outcome{Text: "ok"}, nil
	}}
	server, manager := newRelayServer(t, g)
	conn := dial(t, server)
	readEnvelope(t, conn) // backlog

	if manager.Store().Len() != 1 {
		t.Fatalf("sessions = %d", manager.Store().Len())
	}

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for manager.Store().Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session not removed, %d left", manager.Store().Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
