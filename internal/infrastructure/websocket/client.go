package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/letser/plotplay-sub001/internal/domain"
	"github.com/letser/plotplay-sub001/internal/infrastructure/storage"
	"github.com/letser/plotplay-sub001/internal/orchestrator"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096 // larger than the teacher's 512: "say"/"do" free text can run long
	sendBufferSize = 64
)

// Client is one WebSocket connection bound to a single play session. Unlike
// the teacher's multi-subscription client, a PlotPlay connection always
// streams exactly one session's turns.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan *WSEvent

	id        string
	playerID  string
	sessionID string

	rt    *orchestrator.Runtime
	store storage.SessionStore
}

// NewClient creates a new Client instance.
func NewClient(id, playerID, sessionID string, hub *Hub, conn *websocket.Conn, rt *orchestrator.Runtime, store storage.SessionStore) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan *WSEvent, sendBufferSize),
		id:        id,
		playerID:  playerID,
		sessionID: sessionID,
		rt:        rt,
		store:     store,
	}
}

// readPump pumps commands from the WebSocket connection and drives turns.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket unexpected close", "client_id", c.id, "error", err)
			}
			break
		}

		var cmd WSCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.sendResponse(NewErrorResponse(EventError, "invalid command format"))
			continue
		}

		c.handleCommand(&cmd)
	}
}

// writePump pumps events from the hub to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.writeJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleCommand(cmd *WSCommand) {
	switch cmd.Action {
	case CmdAction:
		c.handleAction(cmd)
	case CmdPing:
		c.sendResponse(NewSuccessResponse(CmdPing, "pong"))
	default:
		c.sendResponse(NewErrorResponse(EventError, "unknown command: "+cmd.Action))
	}
}

// handleAction loads the session, runs the submitted action through the
// orchestrator, and streams every StreamEvent back over c.send.
func (c *Client) handleAction(cmd *WSCommand) {
	action, err := toAction(cmd)
	if err != nil {
		c.sendResponse(NewErrorResponse(EventError, err.Error()))
		return
	}

	ctx := context.Background()
	sessID, err := uuid.Parse(c.sessionID)
	if err != nil {
		c.sendResponse(NewErrorResponse(EventError, "invalid session id"))
		return
	}

	sess, err := c.store.GetSession(ctx, sessID)
	if err != nil {
		c.sendResponse(NewErrorResponse(EventError, err.Error()))
		return
	}

	events := c.rt.RunTurnStream(ctx, sess.State, action)
	for se := range events {
		evt := fromStreamEvent(c.sessionID, se)
		select {
		case c.send <- evt:
		default:
			c.hub.logger.Warn("client buffer full, dropping message", "client_id", c.id, "event_type", evt.Type)
		}
		if se.Kind == orchestrator.EventComplete {
			if err := c.store.SaveSession(ctx, sess); err != nil {
				c.hub.logger.Error("failed to persist session after turn", "session_id", c.sessionID, "error", err)
			}
		}
	}
}

// toAction translates a wire WSCommand into a domain.Action.
func toAction(cmd *WSCommand) (domain.Action, error) {
	kind := domain.ActionKind(cmd.Kind)
	switch kind {
	case domain.ActionSay, domain.ActionDo, domain.ActionChoice, domain.ActionUse,
		domain.ActionGive, domain.ActionMove, domain.ActionGoto, domain.ActionTravel,
		domain.ActionPurchase, domain.ActionSell:
	default:
		return domain.Action{}, errUnknownActionKind(cmd.Kind)
	}

	return domain.Action{
		Kind:           kind,
		Text:           cmd.Text,
		ChoiceID:       cmd.ChoiceID,
		ItemID:         cmd.ItemID,
		Target:         cmd.Target,
		Direction:      cmd.Direction,
		Location:       cmd.Location,
		WithCharacters: cmd.WithCharacters,
		Price:          cmd.Price,
		SkipAI:         cmd.SkipAI,
	}, nil
}

type errUnknownActionKind string

func (e errUnknownActionKind) Error() string { return "unknown action kind: " + string(e) }

func (c *Client) sendResponse(resp *WSResponse) {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.writeJSON(resp)
}

func (c *Client) writeJSON(v interface{}) error {
	return c.conn.WriteJSON(v)
}
