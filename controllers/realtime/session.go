package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"pawsewa/apperrors"
	"pawsewa/services/chat"
	"pawsewa/services/events"
	"pawsewa/services/policy"
)

// Client events.
const (
	JoinRequestRoom  = "join_request_room"
	LeaveRequestRoom = "leave_request_room"
	SendMessage      = "send_message"
	IsTyping         = "is_typing"
)

// Inbound is one frame sent by a client. Ref is echoed back on the ack.
type Inbound struct {
	Event     string `json:"event"`
	Ref       string `json:"ref,omitempty"`
	RequestID uint   `json:"requestId"`
	Text      string `json:"text,omitempty"`
	IsTyping  bool   `json:"isTyping,omitempty"`
}

// Ack answers every inbound frame.
type Ack struct {
	Ref     string      `json:"ref,omitempty"`
	Event   string      `json:"event"`
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// TypingPayload is relayed to the room and never stored.
type TypingPayload struct {
	RequestID uint   `json:"requestId"`
	UserID    uint   `json:"userId"`
	Name      string `json:"name"`
	IsTyping  bool   `json:"isTyping"`
}

// Session is the server side of one websocket connection.
type Session struct {
	hub    *events.Hub
	chat   *chat.ChatService
	actor  policy.Actor
	client *events.Client
	rooms  map[uint]struct{}
}

func NewSession(hub *events.Hub, chatService *chat.ChatService, actor policy.Actor) *Session {
	return &Session{
		hub:    hub,
		chat:   chatService,
		actor:  actor,
		client: hub.Register(actor.ID),
		rooms:  make(map[uint]struct{}),
	}
}

func (s *Session) Client() *events.Client {
	return s.client
}

func (s *Session) Close() {
	s.hub.Unregister(s.client)
}

// Handle processes one raw frame and queues the ack on the client.
func (s *Session) Handle(ctx context.Context, raw []byte) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		s.ack(Ack{Event: events.ErrorEvent, Message: "Invalid frame"})
		return
	}

	data, err := s.dispatch(ctx, in)
	if err != nil {
		s.ack(Ack{Ref: in.Ref, Event: in.Event, Message: messageOf(err)})
		return
	}
	if in.Event == IsTyping {
		return
	}
	s.ack(Ack{Ref: in.Ref, Event: in.Event, Success: true, Data: data})
}

func (s *Session) dispatch(ctx context.Context, in Inbound) (interface{}, error) {
	switch in.Event {
	case JoinRequestRoom:
		if in.RequestID == 0 {
			return nil, apperrors.Validation("Invalid requestId")
		}
		res, err := s.chat.Join(ctx, s.actor, in.RequestID)
		if err != nil {
			return nil, err
		}
		s.hub.Join(s.client, res.Room)
		s.rooms[in.RequestID] = struct{}{}
		return res, nil

	case LeaveRequestRoom:
		s.hub.Leave(s.client, events.RequestTopic(in.RequestID))
		delete(s.rooms, in.RequestID)
		return nil, nil

	case SendMessage:
		msg, err := s.chat.Send(ctx, s.actor, in.RequestID, in.Text)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"messageId": msg.ID}, nil

	case IsTyping:
		if _, ok := s.rooms[in.RequestID]; !ok {
			return nil, apperrors.Forbidden("Join the room first")
		}
		payload := TypingPayload{RequestID: in.RequestID, UserID: s.actor.ID, Name: s.actor.Name, IsTyping: in.IsTyping}
		events.Emit(ctx, s.hub, events.Typing, payload, events.RequestTopic(in.RequestID))
		return nil, nil

	default:
		return nil, apperrors.Validation("Unknown event %q", in.Event)
	}
}

func (s *Session) ack(a Ack) {
	_ = s.hub.Direct(s.client, events.Event{Name: events.Ack, Data: a, At: time.Now()})
}

// messageOf hides internal failures from the client.
func messageOf(err error) string {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Kind != apperrors.KindInternal {
		return appErr.Message
	}
	return "Server error"
}
