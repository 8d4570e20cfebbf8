// Package sse provides Server-Sent Events support for real-time notifications.
package sse

import (
	"encoding/json"
	"net/http"
	"sync"

	"salesops_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventType represents different types of SSE events
type EventType string

const (
	EventNotification EventType = "notification"
	EventUnreadCount  EventType = "unread_count"
)

const clientBuffer = 32

// Event represents an SSE event payload
type Event struct {
	Type    EventType   `json:"type"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// client represents a connected SSE client
type client struct {
	agentID uuid.UUID
	events  chan Event
}

// Service manages SSE connections, one private channel per agent.
type Service struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]*client
	log     *logger.Logger
}

// New creates a new SSE service
func New(log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		clients: make(map[uuid.UUID][]*client),
		log:     log,
	}
}

// Subscribe registers a listener for agentID. The returned func must be
// called to release it; the channel is closed afterwards.
func (s *Service) Subscribe(agentID uuid.UUID) (<-chan Event, func()) {
	c := &client{agentID: agentID, events: make(chan Event, clientBuffer)}

	s.mu.Lock()
	s.clients[agentID] = append(s.clients[agentID], c)
	s.mu.Unlock()

	var once sync.Once
	return c.events, func() { once.Do(func() { s.removeClient(c) }) }
}

// removeClient unregisters a client connection
func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := s.clients[c.agentID]
	for i, cl := range clients {
		if cl == c {
			s.clients[c.agentID] = append(clients[:i], clients[i+1:]...)
			close(c.events)
			break
		}
	}
	if len(s.clients[c.agentID]) == 0 {
		delete(s.clients, c.agentID)
	}
}

// Connected reports how many streams agentID has open on this instance.
func (s *Service) Connected(agentID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients[agentID])
}

// Publish sends an event to every open stream of one agent. Slow clients
// drop events rather than block the publisher.
func (s *Service) Publish(agentID uuid.UUID, event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.clients[agentID] {
		select {
		case c.events <- event:
		default:
			s.log.Warn("sse buffer full", "agentId", agentID, "type", event.Type)
		}
	}
}

// Handler returns a Gin handler streaming the caller's events.
func (s *Service) Handler(getAgentID func(*gin.Context) (uuid.UUID, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		agentID, ok := getAgentID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		events, release := s.Subscribe(agentID)
		defer release()

		c.SSEvent("connected", gin.H{"agentId": agentID})
		c.Writer.Flush()
		s.log.Debug("sse client connected", "agentId", agentID)

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				s.log.Debug("sse client disconnected", "agentId", agentID)
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close drops every open stream.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, clients := range s.clients {
		for _, c := range clients {
			close(c.events)
		}
	}
	s.clients = make(map[uuid.UUID][]*client)
}
