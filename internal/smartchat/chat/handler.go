package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// writeTimeout bounds one outbound frame.
const writeTimeout = 10 * time.Second

// Handler upgrades HTTP requests to websocket chat sessions.
type Handler struct {
	hub *Hub
	// adminKey authorizes staff joins. Empty disables staff access.
	adminKey       string
	originPatterns []string
}

// NewHandler creates the websocket entry point.
func NewHandler(hub *Hub, adminKey string, originPatterns []string) *Handler {
	if len(originPatterns) == 0 {
		originPatterns = []string{"*"}
	}
	return &Handler{hub: hub, adminKey: adminKey, originPatterns: originPatterns}
}

// ServeHTTP accepts the websocket and runs the session until the peer
// disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Warn("websocket accept failed", "err", err, "remote", r.RemoteAddr)
		return
	}
	defer ws.Close(websocket.StatusNormalClosure, "session ended")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c, err := h.waitForJoin(ctx, ws)
	if err != nil {
		slog.Debug("websocket session ended before join", "err", err, "remote", r.RemoteAddr)
		writeEnvelope(ctx, ws, NewEnvelope(EventError, ErrorPayload{Message: "join_room required"}))
		return
	}

	h.hub.join(ctx, c)
	defer h.hub.leave(c)
	slog.Info("chat session started",
		"user", c.userID, "room", c.roomID, "admin", c.isAdmin, "remote", r.RemoteAddr)

	// Writer drains the hub's envelopes; the read loop below feeds the hub.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case env := <-c.out:
				if err := writeEnvelope(ctx, ws, env); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	for {
		env, err := readEnvelope(ctx, ws)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				slog.Debug("websocket read ended", "user", c.userID, "err", err)
			}
			return
		}

		switch env.Event {
		case EventSendMessage:
			var req SendRequest
			if err := json.Unmarshal(env.Data, &req); err != nil {
				c.deliver(NewEnvelope(EventError, ErrorPayload{Message: "malformed send_message"}))
				continue
			}
			h.hub.handleMessage(ctx, c, req.Body)
		case EventTyping:
			var req TypingPayload
			if err := json.Unmarshal(env.Data, &req); err != nil {
				c.deliver(NewEnvelope(EventError, ErrorPayload{Message: "malformed typing"}))
				continue
			}
			h.hub.relayTyping(c, req.Typing)
		case EventCheckAdminStatus:
			h.hub.sendAdminStatus(c)
		case EventJoinRoom:
			// Re-joins are ignored; one room per connection.
			c.deliver(NewEnvelope(EventError, ErrorPayload{Message: "already joined"}))
		default:
			c.deliver(NewEnvelope(EventError, ErrorPayload{Message: "unknown event " + env.Event}))
		}
	}
}

// waitForJoin reads frames until a valid join_room arrives.
func (h *Handler) waitForJoin(ctx context.Context, ws *websocket.Conn) (*client, error) {
	env, err := readEnvelope(ctx, ws)
	if err != nil {
		return nil, err
	}
	if env.Event != EventJoinRoom {
		return nil, errors.New("first event must be join_room")
	}

	var req JoinRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		return nil, err
	}
	if req.UserID == "" {
		req.UserID = uuid.NewString()
	}

	isAdmin := req.IsAdmin && h.adminKey != "" && req.AdminKey == h.adminKey
	if req.IsAdmin && !isAdmin {
		return nil, errors.New("admin join rejected")
	}
	if !isAdmin && req.RoomID == "" {
		return nil, errors.New("join_room requires a roomId")
	}

	return &client{
		userID:  req.UserID,
		name:    req.Name,
		roomID:  req.RoomID,
		isAdmin: isAdmin,
		out:     make(chan Envelope, 32),
	}, nil
}

func readEnvelope(ctx context.Context, ws *websocket.Conn) (Envelope, error) {
	var env Envelope
	_, data, err := ws.Read(ctx)
	if err != nil {
		return env, err
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return env, err
	}
	return env, nil
}

func writeEnvelope(ctx context.Context, ws *websocket.Conn, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(wctx, websocket.MessageText, data)
}
