package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/waveradio/realtime-api/internal/application/channel"
	"github.com/waveradio/realtime-api/internal/application/chat"
	"github.com/waveradio/realtime-api/internal/application/feed"
	"github.com/waveradio/realtime-api/internal/application/typing"
	"github.com/waveradio/realtime-api/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Event is an outbound frame.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Frame is an inbound frame; Data is decoded per Type.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type attachRequest struct {
	ConversationID string `json:"conversation_id"`
	PeerID         string `json:"peer_id"`
}

type typingRequest struct {
	IsTyping bool `json:"is_typing"`
}

type readRequest struct {
	NotificationID string `json:"notification_id"`
}

type typingEvent struct {
	IsTyping bool   `json:"is_typing"`
	UserName string `json:"user_name,omitempty"`
}

type attachedEvent struct {
	ConversationID string           `json:"conversation_id"`
	Messages       []domain.Message `json:"messages"`
}

// Session is one websocket connection owning one client session: message
// store, typing tracker, notification feed, and the channel manager that
// feeds them. It is the channel manager's sink, so accepted push events flow
// straight back out on the socket.
type Session struct {
	userID  string
	conn    *websocket.Conn
	store   *chat.Store
	tracker *typing.Tracker
	feed    *feed.Feed
	manager *channel.Manager

	send chan Event
	done chan struct{}
	once sync.Once
}

func newSession(conn *websocket.Conn, userID string, store *chat.Store, tracker *typing.Tracker, fd *feed.Feed) *Session {
	return &Session{
		userID:  userID,
		conn:    conn,
		store:   store,
		tracker: tracker,
		feed:    fd,
		send:    make(chan Event, sendBuffer),
		done:    make(chan struct{}),
	}
}

// MessageArrived implements channel.Sink.
func (s *Session) MessageArrived(m domain.Message) {
	s.enqueue(Event{Type: "message", Data: m})
}

// NotificationArrived implements channel.Sink.
func (s *Session) NotificationArrived(n domain.Notification) {
	s.enqueue(Event{Type: "notification", Data: n})
}

// enqueue drops the event when the send buffer is full; a stalled reader
// falls behind rather than stalling the drain loops.
func (s *Session) enqueue(ev Event) {
	select {
	case s.send <- ev:
	default:
		log.Warn().Str("user_id", s.userID).Str("event", ev.Type).Msg("ws send buffer full, event dropped")
	}
}

func (s *Session) sendError(msg string) {
	s.enqueue(Event{Type: "error", Data: map[string]string{"message": msg}})
}

func (s *Session) readPump() {
	defer s.teardown()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Str("user_id", s.userID).Err(err).Msg("ws read failed")
			}
			return
		}
		s.dispatch(data)
	}
}

func (s *Session) dispatch(data []byte) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Warn().Str("user_id", s.userID).Err(err).Msg("malformed ws frame dropped")
		s.sendError("malformed frame")
		return
	}

	ctx := context.Background()
	switch frame.Type {
	case "attach":
		s.handleAttach(ctx, frame.Data)
	case "send":
		s.handleSend(ctx, frame.Data)
	case "typing":
		s.handleTyping(ctx, frame.Data)
	case "read":
		s.handleRead(ctx, frame.Data)
	case "read_all":
		if err := s.feed.MarkAllRead(ctx); err != nil {
			s.sendError("mark all read failed")
		}
	default:
		log.Warn().Str("user_id", s.userID).Str("frame", frame.Type).Msg("unknown ws frame type dropped")
		s.sendError("unknown frame type")
	}
}

func (s *Session) handleAttach(ctx context.Context, data json.RawMessage) {
	var req attachRequest
	if err := json.Unmarshal(data, &req); err != nil || req.ConversationID == "" || req.PeerID == "" {
		s.sendError("attach requires conversation_id and peer_id")
		return
	}
	if err := s.manager.Attach(ctx, req.ConversationID, req.PeerID); err != nil {
		// Degraded session: history still loads, live updates are gone until
		// the client attaches again.
		log.Warn().Str("user_id", s.userID).Str("conversation_id", req.ConversationID).
			Err(err).Msg("conversation subscription failed")
		s.sendError("live updates unavailable")
	}
	if err := s.store.Fetch(ctx); err != nil {
		s.sendError("history fetch failed")
		return
	}
	s.enqueue(Event{Type: "attached", Data: attachedEvent{
		ConversationID: req.ConversationID,
		Messages:       s.store.Messages(),
	}})
}

func (s *Session) handleSend(ctx context.Context, data json.RawMessage) {
	var req domain.SendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendError("malformed send frame")
		return
	}
	m, err := s.store.Send(ctx, req)
	if err != nil {
		s.sendError("send failed: " + err.Error())
		return
	}
	s.tracker.MessageSent(ctx)
	// The push echo of this message dedupes against the confirmed record, so
	// the sink stays silent for it; confirm on the socket directly.
	s.enqueue(Event{Type: "message", Data: *m})
}

func (s *Session) handleTyping(ctx context.Context, data json.RawMessage) {
	var req typingRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendError("malformed typing frame")
		return
	}
	if req.IsTyping {
		s.tracker.KeystrokeObserved(ctx)
	} else {
		s.tracker.InputCleared(ctx)
	}
}

func (s *Session) handleRead(ctx context.Context, data json.RawMessage) {
	var req readRequest
	if err := json.Unmarshal(data, &req); err != nil || req.NotificationID == "" {
		s.sendError("read requires notification_id")
		return
	}
	if err := s.feed.MarkRead(ctx, req.NotificationID); err != nil {
		s.sendError("mark read failed")
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case ev := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(ev); err != nil {
				log.Warn().Str("user_id", s.userID).Err(err).Msg("ws write failed, closing session")
				s.teardown()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.teardown()
				return
			}
		}
	}
}

// teardown closes subscriptions, the typing burst (via the tracker reset
// inside manager.Close) and the socket. Safe to call from either pump.
func (s *Session) teardown() {
	s.once.Do(func() {
		close(s.done)
		s.manager.Close(context.Background())
		_ = s.conn.Close()
		log.Debug().Str("user_id", s.userID).Msg("ws session closed")
	})
}
