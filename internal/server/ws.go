package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"main/internal/schema"
)

const writeWait = 10 * time.Second

// wsChannel adapts one websocket connection to the sink channel
// contract. The pipeline delivers sequentially per order, but the hello
// frame and the read pump share the connection, so writes stay locked.
type wsChannel struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSChannel(conn *websocket.Conn) *wsChannel {
	return &wsChannel{conn: conn}
}

// hello acknowledges the subscription before any lifecycle frame.
func (c *wsChannel) hello(orderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(map[string]string{
		"orderId": orderID,
		"message": "subscribed",
	})
}

// Send pushes one status frame. After a terminal frame the server side
// closes the stream; there is nothing further to deliver.
func (c *wsChannel) Send(update schema.StatusUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(update); err != nil {
		return err
	}
	if update.Status.IsTerminal() {
		deadline := time.Now().Add(time.Second)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "order "+update.Status.String()), deadline)
	}
	return nil
}

// Close implements io.Closer so the registry can drain the stream at
// shutdown.
func (c *wsChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}
