package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 65536

	// sendQueueSize is the per-session outgoing frame buffer.
	sendQueueSize = 256
)

// session is a single WebSocket connection. Outgoing frames pass through a
// bounded queue; on overflow the oldest frame is dropped first, since a
// newer bid list supersedes any older one.
type session struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newSession(h *Hub, conn *websocket.Conn) *session {
	return &session{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
}

// close signals the write pump to exit. Safe to call more than once.
func (s *session) close() {
	s.once.Do(func() {
		close(s.done)
	})
}

// enqueue queues an outgoing frame, evicting the oldest queued frame when
// the buffer is full. Never blocks.
func (s *session) enqueue(frame []byte) {
	for {
		select {
		case <-s.done:
			return
		case s.send <- frame:
			return
		default:
		}

		select {
		case <-s.send:
			FramesDroppedTotal.Inc()
		default:
		}
	}
}

// readPump reads messages from the connection and dispatches them. A
// malformed message from this session never disturbs another.
func (s *session) readPump() {
	defer func() {
		s.hub.unregister <- s
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.logger.Warn("ws-unexpected-close", zap.Error(err))
			}
			return
		}

		s.hub.handleMessage(s, message)
	}
}

// writePump pumps queued frames to the connection and sends keepalive
// pings.
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case frame := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := s.conn.WriteMessage(websocket.TextMessage, frame)
			if err != nil {
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			if err != nil {
				return
			}
		}
	}
}
