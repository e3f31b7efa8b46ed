package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meDataEngLearner/rock-paper-scissors-multiplayer/internal/game"
	"github.com/meDataEngLearner/rock-paper-scissors-multiplayer/internal/hub"
	"github.com/meDataEngLearner/rock-paper-scissors-multiplayer/internal/metrics"
	"github.com/meDataEngLearner/rock-paper-scissors-multiplayer/internal/session"
	"github.com/meDataEngLearner/rock-paper-scissors-multiplayer/pkg/types"
)

// Handler upgrades a client to the persistent gameplay connection. One
// outbox per connection feeds a single writer goroutine; both the session
// loops and the read loop below enqueue into it, so there is never a second
// writer on the socket.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		outbox := make(chan session.Event, 16)
		clog := log.With(zap.String("conn", connID))
		clog.Debug("client connected")

		defer func() {
			metrics.Disconnects.Inc()
			h.Disconnect(connID)
			clog.Debug("client disconnected")
		}()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case evt := <-outbox:
					payload, _ := json.Marshal(toWire(evt))
					ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
					_ = conn.Write(ctx, websocket.MessageText, payload)
					cancel()
				case <-writeCtx.Done():
					return
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				outbox <- session.Event{Type: session.EvtError, Message: "bad json"}
				continue
			}

			dispatch(h, connID, outbox, cm, clog)
		}
	}
}

// dispatch validates one intent and routes it. Rejections are named events;
// an intent against a session that vanished is dropped silently only when
// the sender itself is no longer tracked.
func dispatch(h *hub.Hub, connID string, outbox chan session.Event, cm types.ClientMessage, log *zap.Logger) {
	if cm.SessionID == "" {
		outbox <- session.Event{Type: session.EvtError, Message: "missing session_id"}
		return
	}

	switch cm.Type {
	case types.MsgCreateSession:
		if _, err := h.Create(cm.SessionID, connID, outbox); err != nil {
			outbox <- session.Event{Type: session.EvtSessionExists, SessionID: cm.SessionID}
		}

	case types.MsgJoinSession:
		if _, err := h.Join(cm.SessionID, connID, outbox); err != nil {
			outbox <- session.Event{Type: session.EvtSessionNotFound, SessionID: cm.SessionID}
		}

	case types.MsgSubmitChoice:
		choice, err := game.ParseChoice(cm.Choice)
		if err != nil {
			outbox <- session.Event{Type: session.EvtError, SessionID: cm.SessionID, Message: "unknown choice"}
			return
		}
		s := h.Lookup(cm.SessionID)
		if s == nil || !s.Deliver(session.Submit{Conn: connID, Outbox: outbox, Choice: choice}) {
			if h.Tracked(connID) {
				outbox <- session.Event{Type: session.EvtSessionNotFound, SessionID: cm.SessionID}
			}
			return
		}

	case types.MsgLeaveSession:
		h.Leave(connID, cm.SessionID)

	case types.MsgQueryState:
		s := h.Lookup(cm.SessionID)
		if s == nil || !s.Deliver(session.QueryState{Conn: connID, Outbox: outbox}) {
			// Unknown session reads as a match that never started.
			outbox <- session.Event{Type: session.EvtSessionState, SessionID: cm.SessionID, Started: false}
		}

	default:
		outbox <- session.Event{Type: session.EvtError, Message: "unknown type"}
		log.Debug("unknown intent", zap.String("type", cm.Type))
	}
}

func toWire(evt session.Event) types.ServerMessage {
	msg := types.ServerMessage{SessionID: evt.SessionID}

	switch evt.Type {
	case session.EvtSessionCreated:
		msg.Type = types.MsgSessionCreated
	case session.EvtParticipantNumber:
		msg.Type = types.MsgParticipantNumber
		msg.PlayerNumber = evt.Number
	case session.EvtMembershipChanged:
		msg.Type = types.MsgMembershipChanged
		msg.Count = evt.Count
	case session.EvtSessionFull:
		msg.Type = types.MsgSessionFull
	case session.EvtSessionNotFound:
		msg.Type = types.MsgSessionNotFound
	case session.EvtSessionExists:
		msg.Type = types.MsgSessionAlreadyExists
	case session.EvtMatchStart:
		msg.Type = types.MsgMatchStart
	case session.EvtRoundResolved:
		msg.Type = types.MsgRoundResolved
		msg.Result = string(evt.Result)
		msg.Moves = make(map[string]string, len(evt.Moves))
		for n, c := range evt.Moves {
			msg.Moves[strconv.Itoa(n)] = string(c)
		}
	case session.EvtMoveTimedOut:
		msg.Type = types.MsgMoveTimedOut
	case session.EvtSessionExpired:
		msg.Type = types.MsgSessionExpired
	case session.EvtOpponentLeft:
		msg.Type = types.MsgOpponentLeft
	case session.EvtSessionState:
		msg.Type = types.MsgSessionState
		started := evt.Started
		msg.Started = &started
	case session.EvtError:
		msg.Type = types.MsgError
		msg.Error = evt.Message
	}
	return msg
}
