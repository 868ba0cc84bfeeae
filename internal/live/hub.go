// Package live pushes wash-job events to connected dashboards over websockets.
package live

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"carwash-backend/internal/metrics"
	"carwash-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const EventJobCreated = "job.created"

type Event struct {
	Type      string          `json:"type"`
	BranchID  int             `json:"branch_id"`
	Job       *models.WashJob `json:"job"`
	Timestamp time.Time       `json:"timestamp"`
}

// Hub fans events out to subscribers. A subscriber with branch 0 receives
// every branch.
type Hub struct {
	logger     *logrus.Logger
	clients    map[*websocket.Conn]int
	clientsMux sync.Mutex
	broadcast  chan Event
	upgrader   websocket.Upgrader
	origins    []string
}

func NewHub(logger *logrus.Logger) *Hub {
	h := &Hub{
		logger:    logger,
		clients:   make(map[*websocket.Conn]int),
		broadcast: make(chan Event, 256),
	}
	h.upgrader.CheckOrigin = h.checkOrigin
	return h
}

// AllowOrigins sets the browser origins, besides the server's own host,
// that may open a socket. "*" allows any origin, as in the CORS settings.
func (h *Hub) AllowOrigins(origins []string) *Hub {
	h.origins = origins
	return h
}

// checkOrigin accepts requests without an Origin header (non-browser
// clients), same-host origins and the configured list.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range h.origins {
		if allowed == "*" || strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin) {
			return true
		}
	}
	h.logger.WithField("origin", origin).Warn("websocket origin rejected")
	return false
}

// PublishJob queues a job.created event. It never blocks; events are dropped
// when the queue is full.
func (h *Hub) PublishJob(job *models.WashJob) {
	ev := Event{Type: EventJobCreated, BranchID: job.BranchID, Job: job, Timestamp: time.Now()}
	select {
	case h.broadcast <- ev:
	default:
		h.logger.WithField("branch_id", job.BranchID).Warn("live event queue full, dropping event")
	}
}

// Run delivers queued events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case ev := <-h.broadcast:
			h.deliver(ev)
		}
	}
}

func (h *Hub) deliver(ev Event) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	for client, branchID := range h.clients {
		if branchID != 0 && branchID != ev.BranchID {
			continue
		}
		client.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := client.WriteJSON(ev); err != nil {
			client.Close()
			delete(h.clients, client)
		}
	}
	metrics.LiveClients.Set(float64(len(h.clients)))
}

func (h *Hub) closeAll() {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
	metrics.LiveClients.Set(0)
}

// Clients returns the number of connected subscribers
func (h *Hub) Clients() int {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	return len(h.clients)
}

// Serve upgrades the request and subscribes the connection to branchID
// until the client disconnects.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, branchID int) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	h.clientsMux.Lock()
	h.clients[conn] = branchID
	metrics.LiveClients.Set(float64(len(h.clients)))
	h.clientsMux.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.clientsMux.Lock()
			delete(h.clients, conn)
			metrics.LiveClients.Set(float64(len(h.clients)))
			h.clientsMux.Unlock()
			return
		}
	}
}
