package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"teamsync/internal/app/realtime"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)

// Conn is a websocket transport implementing Emitter.
type Conn struct {
	ws *websocket.Conn

	// gorilla allows one concurrent writer.
	writeMu sync.Mutex

	closeOnce sync.Once
}

// Dial opens a websocket to url.
func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	ws.SetPingHandler(func(data string) error {
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		return ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	return &Conn{ws: ws}, nil
}

// Emit sends one event.
func (c *Conn) Emit(eventType realtime.EventType, payload any) error {
	frame, err := realtime.EncodeEnvelope(eventType, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", eventType, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

// Close sends a close frame and closes the socket.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()

		err = c.ws.Close()
	})
	return err
}

// ReadLoop feeds frames to r until the socket fails or ctx is done.
func (c *Conn) ReadLoop(ctx context.Context, r *Reconciler) error {
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			return err
		}

		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		if err := r.HandleFrame(frame); err != nil {
			r.logger.Warn().Err(err).Msg("Dropping undecodable frame")
		}
	}
}

// Connect dials url, attaches the connection to r and reads until it closes. r is left
// disconnected on return.
func Connect(ctx context.Context, url string, r *Reconciler) error {
	r.OnConnecting()

	conn, err := Dial(ctx, url)
	if err != nil {
		r.OnDisconnect()
		return err
	}
	defer r.OnDisconnect()

	if err := r.OnConnect(conn); err != nil {
		_ = conn.Close()
		return fmt.Errorf("rejoin: %w", err)
	}

	err = conn.ReadLoop(ctx, r)
	_ = conn.Close()
	return err
}
