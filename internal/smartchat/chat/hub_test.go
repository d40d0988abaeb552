package chat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/chevai/smartchat/internal/smartchat/ai"
	"github.com/chevai/smartchat/internal/smartchat/store"
)

type fakeTranscript struct {
	mu       sync.Mutex
	messages []store.Message
}

func (t *fakeTranscript) SaveMessage(_ context.Context, m *store.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if m.ID == "" {
		m.ID = "id"
	}
	t.messages = append(t.messages, *m)
	return nil
}

func (t *fakeTranscript) RecentMessages(_ context.Context, roomID string, _ int) ([]store.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []store.Message
	for _, m := range t.messages {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (t *fakeTranscript) saved() []store.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]store.Message(nil), t.messages...)
}

type fakeResponder struct {
	mu    sync.Mutex
	calls []string
	block chan struct{}
}

func (r *fakeResponder) Chat(_ context.Context, message, _, _ string) ai.Response {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.calls = append(r.calls, message)
	r.mu.Unlock()
	return ai.Response{Message: "reply to: " + message, Provider: ai.ProviderCore}
}

func (r *fakeResponder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func newTestHub(responder Responder, transcript Transcript) *Hub {
	h := NewHub(responder, transcript)
	h.delay = func() time.Duration { return 0 }
	return h
}

func newTestClient(userID, roomID string, isAdmin bool) *client {
	return &client{
		userID:  userID,
		name:    userID,
		roomID:  roomID,
		isAdmin: isAdmin,
		out:     make(chan Envelope, 64),
	}
}

// receive pulls envelopes until one matches the event or the timeout hits.
func receive(t *testing.T, c *client, event string) Envelope {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case env := <-c.out:
			if env.Event == event {
				return env
			}
		case <-deadline:
			t.Fatalf("no %q envelope within deadline", event)
		}
	}
}

func TestHubFanOutWithinRoom(t *testing.T) {
	transcript := &fakeTranscript{}
	hub := newTestHub(&fakeResponder{}, transcript)
	ctx := context.Background()

	alice := newTestClient("alice", "room-1", false)
	bob := newTestClient("bob", "room-1", false)
	eve := newTestClient("eve", "room-2", false)
	hub.join(ctx, alice)
	hub.join(ctx, bob)
	hub.join(ctx, eve)

	hub.handleMessage(ctx, alice, "chào shop")

	for _, c := range []*client{alice, bob} {
		env := receive(t, c, EventChatMessage)
		var msg store.Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.Body != "chào shop" || msg.SenderID != "alice" {
			t.Fatalf("message = %+v", msg)
		}
	}

	select {
	case env := <-eve.out:
		if env.Event == EventChatMessage {
			t.Fatal("message leaked into another room")
		}
	default:
	}
}

func TestHubAIRepliesWhenNoAdminOnline(t *testing.T) {
	transcript := &fakeTranscript{}
	responder := &fakeResponder{}
	hub := newTestHub(responder, transcript)
	ctx := context.Background()

	alice := newTestClient("alice", "room-1", false)
	hub.join(ctx, alice)

	hub.handleMessage(ctx, alice, "có hoodie không")

	// First the echo of alice's message, then the AI reply.
	receive(t, alice, EventChatMessage)
	env := receive(t, alice, EventChatMessage)
	var msg store.Message
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Role != store.RoleAssistant {
		t.Fatalf("role = %q, want assistant", msg.Role)
	}
	if msg.Body != "reply to: có hoodie không" {
		t.Fatalf("body = %q", msg.Body)
	}

	saved := transcript.saved()
	if len(saved) != 2 {
		t.Fatalf("saved %d messages, want customer + assistant", len(saved))
	}
}

func TestHubAdminPresenceGatesAI(t *testing.T) {
	transcript := &fakeTranscript{}
	responder := &fakeResponder{}
	hub := newTestHub(responder, transcript)
	ctx := context.Background()

	alice := newTestClient("alice", "room-1", false)
	admin := newTestClient("staff", "", true)
	hub.join(ctx, alice)
	hub.join(ctx, admin)

	receive(t, alice, EventAdminOnline)

	hub.handleMessage(ctx, alice, "có hoodie không")
	receive(t, alice, EventChatMessage)

	time.Sleep(50 * time.Millisecond)
	if calls := responder.seen(); len(calls) != 0 {
		t.Fatalf("AI answered %v while staff was online", calls)
	}

	// The admin mirror still sees the customer message.
	env := receive(t, admin, EventChatMessage)
	var msg store.Message
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.SenderID != "alice" {
		t.Fatalf("mirrored sender = %q", msg.SenderID)
	}

	// Staff leaving re-arms the AI.
	hub.leave(admin)
	receive(t, alice, EventAdminOffline)

	hub.handleMessage(ctx, alice, "còn size L không")
	receive(t, alice, EventChatMessage)
	receive(t, alice, EventChatMessage)

	if calls := responder.seen(); len(calls) != 1 || calls[0] != "còn size L không" {
		t.Fatalf("AI calls = %v", calls)
	}
}

func TestHubMentionOverridesAdminGate(t *testing.T) {
	transcript := &fakeTranscript{}
	responder := &fakeResponder{}
	hub := newTestHub(responder, transcript)
	ctx := context.Background()

	alice := newTestClient("alice", "room-1", false)
	admin := newTestClient("staff", "", true)
	hub.join(ctx, alice)
	hub.join(ctx, admin)

	hub.handleMessage(ctx, alice, "@ai có hoodie không")

	receive(t, alice, EventChatMessage)
	env := receive(t, alice, EventChatMessage)
	var msg store.Message
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Role != store.RoleAssistant {
		t.Fatalf("role = %q, want assistant despite staff online", msg.Role)
	}
	// The mention tag is stripped before the brain sees the message.
	if calls := responder.seen(); len(calls) != 1 || calls[0] != "có hoodie không" {
		t.Fatalf("AI calls = %v", calls)
	}
}

func TestHubAdminMessagesNeverTriggerAI(t *testing.T) {
	transcript := &fakeTranscript{}
	responder := &fakeResponder{}
	hub := newTestHub(responder, transcript)
	ctx := context.Background()

	admin := newTestClient("staff", "room-1", true)
	hub.join(ctx, admin)

	hub.handleMessage(ctx, admin, "shop đây, mình tư vấn cho bạn nha")

	time.Sleep(50 * time.Millisecond)
	if calls := responder.seen(); len(calls) != 0 {
		t.Fatalf("AI answered a staff message: %v", calls)
	}
	if saved := transcript.saved(); len(saved) != 1 || saved[0].Role != store.RoleAdmin {
		t.Fatalf("saved = %+v", saved)
	}
}

func TestHubSerializesAITurnsPerRoom(t *testing.T) {
	transcript := &fakeTranscript{}
	responder := &fakeResponder{block: make(chan struct{})}
	hub := newTestHub(responder, transcript)
	ctx := context.Background()

	alice := newTestClient("alice", "room-1", false)
	hub.join(ctx, alice)

	// Three quick messages: the first turn blocks in the responder, the
	// second is queued, the third replaces it.
	hub.handleMessage(ctx, alice, "câu một")
	time.Sleep(20 * time.Millisecond)
	hub.handleMessage(ctx, alice, "câu hai")
	hub.handleMessage(ctx, alice, "câu ba")

	close(responder.block)

	deadline := time.After(2 * time.Second)
	for {
		calls := responder.seen()
		if len(calls) >= 2 {
			if calls[0] != "câu một" || calls[1] != "câu ba" {
				t.Fatalf("AI calls = %v, want first then newest", calls)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("AI calls = %v, want 2", responder.seen())
		case <-time.After(10 * time.Millisecond):
		}
	}

	time.Sleep(50 * time.Millisecond)
	if calls := responder.seen(); len(calls) != 2 {
		t.Fatalf("AI calls = %v, dropped message should not be answered", calls)
	}
}

func TestHubAITypingBracketsReply(t *testing.T) {
	transcript := &fakeTranscript{}
	hub := newTestHub(&fakeResponder{}, transcript)
	ctx := context.Background()

	alice := newTestClient("alice", "room-1", false)
	hub.join(ctx, alice)

	hub.handleMessage(ctx, alice, "có hoodie không")

	// Echo of alice's message, then the typing bracket around the reply.
	receive(t, alice, EventChatMessage)
	receive(t, alice, EventAITypingStart)
	receive(t, alice, EventAITypingStop)
	env := receive(t, alice, EventChatMessage)
	var msg store.Message
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Role != store.RoleAssistant {
		t.Fatalf("role = %q, want assistant after the typing stop", msg.Role)
	}
}

func TestHubRelaysTypingToRoom(t *testing.T) {
	transcript := &fakeTranscript{}
	hub := newTestHub(&fakeResponder{}, transcript)
	ctx := context.Background()

	alice := newTestClient("alice", "room-1", false)
	bob := newTestClient("bob", "room-1", false)
	hub.join(ctx, alice)
	hub.join(ctx, bob)

	hub.relayTyping(alice, true)

	env := receive(t, bob, EventTyping)
	var payload TypingPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.UserID != "alice" || !payload.Typing {
		t.Fatalf("payload = %+v", payload)
	}

	// The typist never hears their own signal back.
	select {
	case env := <-alice.out:
		if env.Event == EventTyping {
			t.Fatal("typing echoed back to the typist")
		}
	default:
	}
}

func TestHubAdminTypingGetsOwnEvent(t *testing.T) {
	transcript := &fakeTranscript{}
	hub := newTestHub(&fakeResponder{}, transcript)
	ctx := context.Background()

	alice := newTestClient("alice", "room-1", false)
	admin := newTestClient("staff", "room-1", true)
	hub.join(ctx, alice)
	hub.join(ctx, admin)

	hub.relayTyping(admin, true)

	env := receive(t, alice, EventAdminTyping)
	var payload TypingPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.UserID != "staff" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestHubAnswersAdminStatusCheck(t *testing.T) {
	transcript := &fakeTranscript{}
	hub := newTestHub(&fakeResponder{}, transcript)
	ctx := context.Background()

	alice := newTestClient("alice", "room-1", false)
	hub.join(ctx, alice)

	hub.sendAdminStatus(alice)
	receive(t, alice, EventAdminOffline)

	admin := newTestClient("staff", "", true)
	hub.join(ctx, admin)
	receive(t, alice, EventAdminOnline)

	hub.sendAdminStatus(alice)
	env := receive(t, alice, EventAdminOnline)
	var payload PresencePayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.Online != 1 {
		t.Fatalf("online = %d, want 1", payload.Online)
	}
}

func TestHubHistoryBackfillOnJoin(t *testing.T) {
	transcript := &fakeTranscript{}
	hub := newTestHub(&fakeResponder{}, transcript)
	ctx := context.Background()

	seed := &store.Message{RoomID: "room-1", SenderID: "alice", Role: store.RoleCustomer, Body: "tin cũ"}
	if err := transcript.SaveMessage(ctx, seed); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}

	bob := newTestClient("bob", "room-1", false)
	hub.join(ctx, bob)

	env := receive(t, bob, EventChatHistory)
	var payload HistoryPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(payload.Messages) != 1 || payload.Messages[0].Body != "tin cũ" {
		t.Fatalf("history = %+v", payload.Messages)
	}
}

func TestHubIgnoresEmptyMessages(t *testing.T) {
	transcript := &fakeTranscript{}
	hub := newTestHub(&fakeResponder{}, transcript)
	ctx := context.Background()

	alice := newTestClient("alice", "room-1", false)
	hub.join(ctx, alice)

	hub.handleMessage(ctx, alice, "   ")

	if saved := transcript.saved(); len(saved) != 0 {
		t.Fatalf("saved = %+v, want nothing for a blank message", saved)
	}
}
