package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"exoplanet-classifier-be/internal/dto"
	"exoplanet-classifier-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func watch(t *testing.T, h *Hub, taskID string) *Client {
	t.Helper()
	c := &Client{Hub: h, TaskID: taskID, Send: make(chan []byte, 8)}
	h.register(c)
	require.Equal(t, 1, h.Watchers(taskID))
	return c
}

func TestHubDeliversOnlyToWatchersOfTask(t *testing.T) {
	h := NewHub(nil, "i1", logger.NewNopLogger())
	go h.Run()

	a := watch(t, h, "a")
	b := watch(t, h, "b")

	h.NotifyTask(dto.TaskResponse{Id: "a", Status: "running", Progress: 40})

	select {
	case msg := <-a.Send:
		var body struct {
			Type string           `json:"type"`
			Data dto.TaskResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg, &body))
		assert.Equal(t, "task", body.Type)
		assert.Equal(t, 40, body.Data.Progress)
	case <-time.After(time.Second):
		t.Fatal("no message for watcher")
	}
	assert.Empty(t, b.Send)
}

func TestHubClosesWatchersOnTerminalUpdate(t *testing.T) {
	h := NewHub(nil, "i1", logger.NewNopLogger())
	go h.Run()

	c := watch(t, h, "t")
	h.NotifyTask(dto.TaskResponse{Id: "t", Status: "succeeded", Progress: 100})

	_, ok := <-c.Send
	assert.True(t, ok, "final snapshot is flushed first")
	_, ok = <-c.Send
	assert.False(t, ok)
	assert.Equal(t, 0, h.Watchers("t"))
}
