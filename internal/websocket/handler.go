package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// Snapshot returns the current encoded task message and whether the task has ended.
type Snapshot func() (data []byte, terminal bool)

// ServeWs registers the connection as a watcher of taskID, queues the current snapshot and
// blocks until the connection closes. The snapshot is taken after registering, so an update
// racing with the handshake is either in the snapshot or delivered afterwards.
func ServeWs(hub *Hub, c *websocket.Conn, taskID string, snapshot Snapshot) {
	client := &Client{Hub: hub, Conn: c, TaskID: taskID, Send: make(chan []byte, 256)}
	hub.register(client)

	if data, terminal := snapshot(); data != nil {
		hub.deliver(taskID, data, terminal)
	}

	go client.writePump()
	client.readPump()
}
