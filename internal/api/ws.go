package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/sprite-ai/adreview/internal/review"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024 * 16,
	WriteBufferSize: 1024 * 64,
	CheckOrigin: func(r *http.Request) bool {
		return true // console is served on localhost
	},
}

const wsWriteWait = 10 * time.Second

// WebSocket message types from client.
const (
	wsMsgTrigger = "trigger"
	wsMsgApprove = "approve"
	wsMsgReject  = "reject"
	wsMsgRefresh = "refresh"
)

// WebSocket message types to client.
const (
	wsMsgSnapshot = "snapshot"
	wsMsgNotice   = "notice"
	wsMsgResult   = "result"
	wsMsgError    = "error"
)

// wsMessage is the envelope for WebSocket messages in both directions.
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// wsActionMsg is the payload for trigger/approve/reject messages.
type wsActionMsg struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason,omitempty"`
}

// wsResultResponse reports the outcome of a client action.
type wsResultResponse struct {
	Action  string `json:"action"`
	ID      int64  `json:"id,omitempty"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type wsNoticeResponse struct {
	Level      string    `json:"level"`
	Message    string    `json:"message"`
	MaterialID int64     `json:"material_id,omitempty"`
	At         time.Time `json:"at"`
}

func noticeFrom(n review.Notice) wsNoticeResponse {
	return wsNoticeResponse{
		Level:      n.Level.String(),
		Message:    n.Message,
		MaterialID: n.MaterialID,
		At:         n.At,
	}
}

// wsConn serializes writes to one connection.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(log logrus.FieldLogger, msgType string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.WithError(err).Warn("ws marshal")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := c.conn.WriteJSON(wsMessage{Type: msgType, Data: raw}); err != nil {
		log.WithError(err).Debug("ws write")
	}
}

func (c *wsConn) sendError(log logrus.FieldLogger, msg string) {
	c.send(log, wsMsgError, map[string]string{"message": msg})
}

// hub tracks open connections for broadcasts.
type hub struct {
	mu    sync.Mutex
	conns map[*wsConn]struct{}
	log   logrus.FieldLogger
}

func newHub(log logrus.FieldLogger) *hub {
	return &hub{conns: make(map[*wsConn]struct{}), log: log}
}

func (h *hub) add(c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

func (h *hub) remove(c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

func (h *hub) broadcast(msgType string, data any) {
	h.mu.Lock()
	conns := make([]*wsConn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.send(h.log, msgType, data)
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		c.mu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.mu.Unlock()
		c.conn.Close()
		delete(h.conns, c)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade")
		return
	}
	defer raw.Close()

	conn := &wsConn{conn: raw}
	s.hub.add(conn)
	defer s.hub.remove(conn)

	conn.send(s.log, wsMsgSnapshot, s.snapshot())

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.WithError(err).Warn("websocket read")
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.sendError(s.log, "invalid message format")
			continue
		}

		switch msg.Type {
		case wsMsgTrigger, wsMsgApprove, wsMsgReject:
			s.handleWSAction(r, conn, msg)
		case wsMsgRefresh:
			err := s.ctrl.Refresh(r.Context())
			conn.send(s.log, wsMsgResult, resultFor(wsMsgRefresh, 0, "", err))
		default:
			conn.sendError(s.log, "unknown message type: "+msg.Type)
		}
	}
}

func (s *Server) handleWSAction(r *http.Request, conn *wsConn, msg wsMessage) {
	var req wsActionMsg
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.ID <= 0 {
		conn.sendError(s.log, "invalid "+msg.Type+" data")
		return
	}

	var (
		text string
		err  error
	)
	switch msg.Type {
	case wsMsgTrigger:
		text, err = s.client.TriggerAI(r.Context(), req.ID)
	case wsMsgApprove:
		err = s.client.SubmitManual(r.Context(), req.ID, review.Approve{})
	case wsMsgReject:
		err = s.client.SubmitManual(r.Context(), req.ID, review.Reject{Reason: req.Reason})
	}
	conn.send(s.log, wsMsgResult, resultFor(msg.Type, req.ID, text, err))
}

func resultFor(action string, id int64, text string, err error) wsResultResponse {
	res := wsResultResponse{Action: action, ID: id, OK: err == nil, Message: text}
	if err != nil {
		res.Message = err.Error()
	}
	return res
}
