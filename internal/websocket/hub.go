package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"exoplanet-classifier-be/internal/constant"
	"exoplanet-classifier-be/internal/dto"
	"exoplanet-classifier-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const clusterChannel = "cluster_events"

// Hub pushes task progress to websocket clients. With redis, updates produced on one
// instance reach clients connected to any other instance.
type Hub struct {
	// taskID -> watching clients
	clients map[string][]*Client

	unregister chan *Client

	mu sync.RWMutex

	rdb        *redis.Client
	instanceID string
	logger     logger.ILogger
}

type clusterMessage struct {
	Origin       string          `json:"origin"`
	TargetTaskID string          `json:"target_task_id"`
	Terminal     bool            `json:"terminal"`
	Message      json.RawMessage `json:"message"`
}

func NewHub(rdb *redis.Client, instanceID string, log logger.ILogger) *Hub {
	return &Hub{
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		instanceID: instanceID,
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		client := <-h.unregister
		h.mu.Lock()
		h.remove(client)
		h.mu.Unlock()
	}
}

// register adds the client synchronously so that no update sent after it returns is missed.
func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client.TaskID] = append(h.clients[client.TaskID], client)
	h.mu.Unlock()
	h.logger.Debug(constant.LogModuleTask, "Websocket client registered", map[string]interface{}{"task_id": client.TaskID})
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.TaskID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.TaskID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.TaskID]) == 0 {
		delete(h.clients, client.TaskID)
	}
}

// NotifyTask sends a task snapshot to its watchers here and, through redis, elsewhere.
func (h *Hub) NotifyTask(task dto.TaskResponse) {
	data, err := json.Marshal(map[string]interface{}{
		"type": "task",
		"data": task,
	})
	if err != nil {
		return
	}
	terminal := constant.TaskStatus(task.Status).Terminal()

	h.deliver(task.Id, data, terminal)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterMessage{
			Origin:       h.instanceID,
			TargetTaskID: task.Id,
			Terminal:     terminal,
			Message:      data,
		})
		if err := h.rdb.Publish(context.Background(), clusterChannel, payload).Err(); err != nil {
			h.logger.Warn(constant.LogModuleTask, "Failed to publish task update", map[string]interface{}{"error": err.Error()})
		}
	}
}

// deliver writes data to local watchers of taskID. Terminal updates close the connections
// once the buffered messages are flushed.
func (h *Hub) deliver(taskID string, data []byte, terminal bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range append([]*Client(nil), h.clients[taskID]...) {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn(constant.LogModuleTask, "Client Send buffer full, dropping message", map[string]interface{}{"task_id": taskID})
		}
		if terminal {
			h.remove(client)
		}
	}
}

// Watchers returns the number of local clients watching taskID.
func (h *Hub) Watchers(taskID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[taskID])
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload clusterMessage
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn(constant.LogModuleTask, "Redis message parse error", map[string]interface{}{"error": err.Error()})
			continue
		}
		if payload.Origin == h.instanceID {
			continue
		}
		h.deliver(payload.TargetTaskID, payload.Message, payload.Terminal)
	}
}
