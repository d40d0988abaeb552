package chat

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/chevai/smartchat/internal/smartchat/ai"
	"github.com/chevai/smartchat/internal/smartchat/store"
)

// Responder is the AI brain behind the hub, served by the ai router.
type Responder interface {
	Chat(ctx context.Context, message, userID, roomID string) ai.Response
}

// Transcript persists and replays chat lines.
type Transcript interface {
	SaveMessage(ctx context.Context, m *store.Message) error
	RecentMessages(ctx context.Context, roomID string, limit int) ([]store.Message, error)
}

// historyLimit is how many lines a joining client is backfilled with.
const historyLimit = 50

// assistantSenderID is the synthetic sender of AI replies.
const assistantSenderID = "smartchat-ai"

// aiMention forces an AI reply even while staff is online.
const aiMention = "@ai"

// client is one connected websocket. The hub owns the registry; the
// handler owns the connection and drains out.
type client struct {
	userID  string
	name    string
	roomID  string
	isAdmin bool
	out     chan Envelope
}

// aiTurn serializes AI work per room: at most one in-flight turn, and at
// most one queued message. A newer message replaces the queued one, so
// after a burst the AI answers the latest message instead of the backlog.
type aiTurn struct {
	inFlight bool
	pending  *store.Message
}

// Hub routes chat traffic between customers, staff and the AI.
type Hub struct {
	responder  Responder
	transcript Transcript

	mu     sync.Mutex
	rooms  map[string]map[*client]bool
	admins map[*client]bool
	turns  map[string]*aiTurn

	// delay returns the typing pause before an AI reply. Injectable so
	// tests run without sleeping.
	delay func() time.Duration
}

// NewHub wires a hub over the AI responder and the transcript store.
func NewHub(responder Responder, transcript Transcript) *Hub {
	return &Hub{
		responder:  responder,
		transcript: transcript,
		rooms:      make(map[string]map[*client]bool),
		admins:     make(map[*client]bool),
		turns:      make(map[string]*aiTurn),
		delay:      typingDelay,
	}
}

// typingDelay is a randomized 1.5-3.5s pause so AI replies read like a
// human typing rather than an instant bot.
func typingDelay() time.Duration {
	return 1500*time.Millisecond + time.Duration(rand.Int63n(2000))*time.Millisecond
}

// join registers the client and backfills history. Admin joins flip the
// AI gate for every room and are announced to all customers.
func (h *Hub) join(ctx context.Context, c *client) {
	h.mu.Lock()
	if c.isAdmin {
		h.admins[c] = true
	}
	if c.roomID != "" {
		room, ok := h.rooms[c.roomID]
		if !ok {
			room = make(map[*client]bool)
			h.rooms[c.roomID] = room
		}
		room[c] = true
	}
	h.mu.Unlock()

	if c.roomID != "" {
		history, err := h.transcript.RecentMessages(ctx, c.roomID, historyLimit)
		if err != nil {
			slog.Warn("history backfill failed", "room", c.roomID, "err", err)
		} else {
			c.deliver(NewEnvelope(EventChatHistory, HistoryPayload{RoomID: c.roomID, Messages: history}))
		}
	}

	if c.isAdmin {
		h.broadcastPresence(EventAdminOnline, c.userID)
		slog.Info("admin online", "admin", c.userID, "online", h.adminCount())
	}
}

// leave unregisters the client. The last admin leaving re-arms the AI and
// is announced as admin_offline.
func (h *Hub) leave(c *client) {
	h.mu.Lock()
	wasAdmin := h.admins[c]
	delete(h.admins, c)
	if room, ok := h.rooms[c.roomID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.roomID)
		}
	}
	h.mu.Unlock()

	if wasAdmin {
		h.broadcastPresence(EventAdminOffline, c.userID)
		slog.Info("admin offline", "admin", c.userID, "online", h.adminCount())
	}
}

func (h *Hub) adminCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.admins)
}

// adminOnline reports whether any staff member is connected.
func (h *Hub) adminOnline() bool {
	return h.adminCount() > 0
}

// handleMessage processes one send_message: persist, fan out, and hand the
// message to the AI when no staff member is covering the room (or the
// customer explicitly tags the AI).
func (h *Hub) handleMessage(ctx context.Context, c *client, body string) {
	body = strings.TrimSpace(body)
	if body == "" || c.roomID == "" {
		return
	}

	role := store.RoleCustomer
	if c.isAdmin {
		role = store.RoleAdmin
	}
	msg := &store.Message{
		RoomID:     c.roomID,
		SenderID:   c.userID,
		SenderName: c.name,
		Role:       role,
		Body:       body,
	}
	if err := h.transcript.SaveMessage(ctx, msg); err != nil {
		slog.Warn("message save failed", "room", c.roomID, "err", err)
	}
	h.fanOut(c.roomID, NewEnvelope(EventChatMessage, msg))

	if c.isAdmin {
		return
	}
	mentioned := strings.Contains(strings.ToLower(body), aiMention)
	if h.adminOnline() && !mentioned {
		return
	}
	h.scheduleAI(msg)
}

// fanOut delivers the envelope to every client in the room and mirrors it
// to online staff regardless of the room they joined.
func (h *Hub) fanOut(roomID string, env Envelope) {
	h.fanOutExcept(roomID, env, nil)
}

// fanOutExcept is fanOut minus one client, used to keep typing echoes away
// from the typist.
func (h *Hub) fanOutExcept(roomID string, env Envelope, except *client) {
	h.mu.Lock()
	targets := make([]*client, 0, 8)
	for c := range h.rooms[roomID] {
		if c != except {
			targets = append(targets, c)
		}
	}
	for a := range h.admins {
		if a.roomID != roomID && a != except {
			targets = append(targets, a)
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		c.deliver(env)
	}
}

// relayTyping forwards a typing signal to the rest of the room. Staff
// typing is surfaced as its own event so the storefront can label it.
func (h *Hub) relayTyping(c *client, typing bool) {
	if c.roomID == "" {
		return
	}
	event := EventTyping
	if c.isAdmin {
		event = EventAdminTyping
	}
	env := NewEnvelope(event, TypingPayload{UserID: c.userID, Name: c.name, Typing: typing})
	h.fanOutExcept(c.roomID, env, c)
}

// sendAdminStatus answers a check_admin_status request with the current
// staff presence, delivered only to the asking client.
func (h *Hub) sendAdminStatus(c *client) {
	event := EventAdminOffline
	if h.adminOnline() {
		event = EventAdminOnline
	}
	c.deliver(NewEnvelope(event, PresencePayload{Online: h.adminCount()}))
}

// broadcastPresence tells every connected client about staff availability.
func (h *Hub) broadcastPresence(event, adminID string) {
	env := NewEnvelope(event, PresencePayload{AdminID: adminID, Online: h.adminCount()})

	h.mu.Lock()
	targets := make([]*client, 0, 16)
	for _, room := range h.rooms {
		for c := range room {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		c.deliver(env)
	}
}

// scheduleAI queues one AI turn for the room. While a turn is in flight a
// newer message overwrites the pending slot; the newest message wins.
func (h *Hub) scheduleAI(msg *store.Message) {
	h.mu.Lock()
	turn, ok := h.turns[msg.RoomID]
	if !ok {
		turn = &aiTurn{}
		h.turns[msg.RoomID] = turn
	}
	if turn.inFlight {
		turn.pending = msg
		h.mu.Unlock()
		return
	}
	turn.inFlight = true
	h.mu.Unlock()

	go h.runAITurn(msg)
}

func (h *Hub) runAITurn(msg *store.Message) {
	h.fanOut(msg.RoomID, NewEnvelope(EventAITypingStart, TypingPayload{UserID: assistantSenderID, Typing: true}))
	time.Sleep(h.delay())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	resp := h.responder.Chat(ctx, strings.TrimSpace(strings.ReplaceAll(msg.Body, aiMention, "")), msg.SenderID, msg.RoomID)
	cancel()
	h.fanOut(msg.RoomID, NewEnvelope(EventAITypingStop, TypingPayload{UserID: assistantSenderID, Typing: false}))

	reply := &store.Message{
		RoomID:     msg.RoomID,
		SenderID:   assistantSenderID,
		SenderName: resp.Provider,
		Role:       store.RoleAssistant,
		Body:       resp.Message,
		Image:      resp.Image,
		Provider:   resp.Provider,
	}
	saveCtx, saveCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := h.transcript.SaveMessage(saveCtx, reply); err != nil {
		slog.Warn("ai reply save failed", "room", msg.RoomID, "err", err)
	}
	saveCancel()

	h.fanOut(msg.RoomID, NewEnvelope(EventChatMessage, reply))

	// Pick up a message that arrived while this turn ran.
	h.mu.Lock()
	turn := h.turns[msg.RoomID]
	next := turn.pending
	turn.pending = nil
	if next == nil {
		turn.inFlight = false
	}
	h.mu.Unlock()

	if next != nil {
		go h.runAITurn(next)
	}
}

func (c *client) deliver(env Envelope) {
	select {
	case c.out <- env:
	default:
		// Slow consumer: drop rather than block the hub.
	}
}
