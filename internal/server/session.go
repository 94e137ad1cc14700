package server

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lox/pokertable/internal/game"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

var ErrSendBufferFull = errors.New("send buffer full")

// Session is one websocket connection. It may watch or sit at one table.
type Session struct {
	id     string
	conn   *websocket.Conn
	server *Server
	logger zerolog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	runner *TableRunner
}

func newSession(conn *websocket.Conn, s *Server) *Session {
	id := uuid.NewString()
	return &Session{
		id:     id,
		conn:   conn,
		server: s,
		logger: s.logger.With().Str("session_id", id).Logger(),
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

// Send queues msg for the write pump without blocking.
func (s *Session) Send(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case <-s.done:
		return ErrSubscriberGone
	default:
	}
	select {
	case s.send <- data:
		return nil
	case <-s.done:
		return ErrSubscriberGone
	default:
		return ErrSendBufferFull
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.detach()
		_ = s.conn.Close()
		s.logger.Debug().Msg("Session closed")
	})
}

func (s *Session) detach() {
	s.mu.Lock()
	runner := s.runner
	s.runner = nil
	s.mu.Unlock()
	if runner != nil {
		runner.Leave(s)
	}
}

func (s *Session) readPump() {
	defer s.close()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("Unexpected websocket close")
			}
			return
		}
		s.handle(data)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case data := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (s *Session) handle(data []byte) {
	if err := s.server.validator.Validate(data); err != nil {
		_ = s.Send(errorMessage("invalid_message", err))
		return
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		_ = s.Send(errorMessage("invalid_message", err))
		return
	}

	switch msg.Type {
	case MessageTypePing:
		pong, _ := NewMessage(MessageTypePong, nil)
		_ = s.Send(pong)
	case MessageTypeJoin:
		s.join(msg)
	case MessageTypeLeave:
		s.detach()
	case MessageTypeAction:
		s.act(msg)
	}
}

func (s *Session) join(msg Message) {
	var data JoinData
	if err := msg.Decode(&data); err != nil {
		_ = s.Send(errorMessage("invalid_message", err))
		return
	}
	runner, err := s.server.Runner(data.Table)
	if err != nil {
		_ = s.Send(errorMessage("unknown_table", err))
		return
	}

	seat := -1
	if data.Seat != nil {
		seat = *data.Seat
	}

	s.mu.Lock()
	previous := s.runner
	s.mu.Unlock()
	if previous != nil && previous != runner {
		s.detach()
	}

	if err := runner.Join(s, seat); err != nil {
		_ = s.Send(errorMessage("join_failed", err))
		return
	}
	s.attach(runner)
}

// attach records the table the session joined. A session that closed while
// joining has already detached, so it leaves the table again here.
func (s *Session) attach(runner *TableRunner) {
	s.mu.Lock()
	s.runner = runner
	s.mu.Unlock()

	select {
	case <-s.done:
		s.detach()
	default:
	}
}

func (s *Session) act(msg Message) {
	var data ActionData
	if err := msg.Decode(&data); err != nil {
		_ = s.Send(errorMessage("invalid_message", err))
		return
	}
	action, err := game.ParseAction(data.Action)
	if err != nil {
		_ = s.Send(errorMessage("invalid_action", err))
		return
	}

	s.mu.Lock()
	runner := s.runner
	s.mu.Unlock()
	if runner == nil {
		_ = s.Send(errorMessage("not_seated", ErrNotSeated))
		return
	}
	if err := runner.Submit(s, game.Decision{Action: action, Amount: data.Amount}, data.TurnID); err != nil {
		_ = s.Send(errorMessage("action_rejected", err))
	}
}
