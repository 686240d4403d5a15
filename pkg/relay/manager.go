package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/sealor/chat-relay/pkg/chat"
)

// DefaultSystemPrompt seeds every new session's history.
const DefaultSystemPrompt = `You are a helpful, concise AI assistant.
If the user wants to know the current time, you MUST check the user timezone.
You have to call getCurrentTime and userTimeZone tools in parallel if possible.`

// User-visible failure texts. Failures are always delivered as ordinary
// assistant messages, never as protocol errors.
const (
	apologyText   = "Oops, something went wrong on the server."
	exhaustedText = "I wasn't able to finish that request."
)

// ManagerOptions configures a Manager. Zero values fall back to the
// defaults noted per field.
type ManagerOptions struct {
	Orchestrator *Orchestrator
	Emitter      Emitter
	SystemPrompt string       // DefaultSystemPrompt
	DebugHistory bool         // emit debug:history after each turn
	Logger       *slog.Logger // slog.Default
	Now          func() time.Time
}

// Manager binds connection lifecycle events to sessions and runs the
// orchestrator for every inbound user message. The transport must
// deliver events for one session sequentially; distinct sessions may be
// driven fully concurrently.
type Manager struct {
	store        *Store
	orchestrator *Orchestrator
	emitter      Emitter
	systemPrompt string
	debugHistory bool
	logger       *slog.Logger
	now          func() time.Time
}

func NewManager(opts ManagerOptions) *Manager {
	m := &Manager{
		store:        NewStore(),
		orchestrator: opts.Orchestrator,
		emitter:      opts.Emitter,
		systemPrompt: opts.SystemPrompt,
		debugHistory: opts.DebugHistory,
		logger:       opts.Logger,
		now:          opts.Now,
	}
	if m.systemPrompt == "" {
		m.systemPrompt = DefaultSystemPrompt
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// SetEmitter attaches the outbound side of the transport. Called once
// during wiring, before any connection event.
func (m *Manager) SetEmitter(emitter Emitter) {
	m.emitter = emitter
}

// Store exposes the session store, e.g. for health reporting.
func (m *Manager) Store() *Store {
	return m.store
}

// OnConnect creates the session with a fresh system-prefixed history.
// When the ID is already known the existing session is kept and its
// backlog replayed instead.
func (m *Manager) OnConnect(sessionID string) {
	if session, ok := m.store.Get(sessionID); ok {
		m.logger.Info("client rejoined", "session", sessionID)
		m.emit(sessionID, EventChatBacklog, session.Backlog)
		return
	}

	m.logger.Info("client connected", "session", sessionID)
	m.store.Put(&Session{
		ID:      sessionID,
		History: []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(m.systemPrompt)},
	})
	m.emit(sessionID, EventChatBacklog, []ChatMessage{})
}

// OnUserMessage appends the user message, runs the orchestration loop
// and emits the reply. Empty text is ignored without touching the
// session. Any failure becomes a user-visible assistant message and
// leaves the session usable for the next message.
func (m *Manager) OnUserMessage(ctx context.Context, sessionID, text string) {
	if text == "" {
		return
	}

	session, ok := m.store.Get(sessionID)
	if !ok {
		m.logger.Warn("message for unknown session", "session", sessionID)
		return
	}

	history := append(session.History, openai.UserMessage(text))
	backlog := append(session.Backlog, ChatMessage{
		ID:   uuid.NewString(),
		Role: chat.RoleUser,
		Text: text,
		TS:   m.now().UnixMilli(),
	})
	m.store.Commit(sessionID, history, backlog)

	turn, err := m.orchestrator.Run(ctx, history)
	if err != nil {
		m.logger.Error("turn failed", "session", sessionID, "error", err)
		m.store.Commit(sessionID, turn.History, backlog)
		m.reply(sessionID, fmt.Sprintf("%s:err:%d", sessionID, m.now().UnixMilli()), apologyText, backlog)
		return
	}

	replyText := turn.Text
	history = turn.History
	if turn.Exhausted {
		m.logger.Warn("turn budget exhausted", "session", sessionID)
		replyText = exhaustedText
	} else {
		history = append(history, openai.AssistantMessage(turn.Text))
	}

	reply := ChatMessage{
		ID:   fmt.Sprintf("%s:%d", sessionID, m.now().UnixMilli()),
		Role: chat.RoleAssistant,
		Text: replyText,
		TS:   m.now().UnixMilli(),
	}
	backlog = append(backlog, reply)

	if !m.store.Commit(sessionID, history, backlog) {
		// Session closed while the turn was in flight.
		m.logger.Info("discarding result for closed session", "session", sessionID)
		return
	}

	m.emit(sessionID, EventChatMessage, reply)
	if m.debugHistory {
		m.emit(sessionID, EventDebugHistory, chat.FromParams(history))
	}
}

// OnDisconnect removes the session. Safe to call more than once.
func (m *Manager) OnDisconnect(sessionID string) {
	m.logger.Info("client disconnected", "session", sessionID)
	m.store.Delete(sessionID)
}

// reply emits a failure message without requiring a live session; the
// emitter drops it if the connection is already gone.
func (m *Manager) reply(sessionID, id, text string, backlog []ChatMessage) {
	msg := ChatMessage{
		ID:   id,
		Role: chat.RoleAssistant,
		Text: text,
		TS:   m.now().UnixMilli(),
	}
	if session, ok := m.store.Get(sessionID); ok {
		m.store.Commit(sessionID, session.History, append(backlog, msg))
	}
	m.emit(sessionID, EventChatMessage, msg)
}

func (m *Manager) emit(sessionID, event string, payload any) {
	if m.emitter == nil {
		return
	}
	m.emitter.Emit(sessionID, event, payload)
}
