package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ResistanceIsUseless/StatusHawk/internal/checker"
	"github.com/ResistanceIsUseless/StatusHawk/internal/config"
	"github.com/ResistanceIsUseless/StatusHawk/internal/logging"
	"github.com/ResistanceIsUseless/StatusHawk/internal/status"
	"github.com/ResistanceIsUseless/StatusHawk/internal/worker"
)

// Service serves availability checks over WebSocket for clients that
// want streamed verdicts, plus a small REST surface for health and
// stats.
type Service struct {
	cfg    *config.Config
	cfgMux sync.RWMutex
	logger *logging.Logger

	clients    map[*Client]bool
	clientsMux sync.RWMutex

	register   chan *Client
	unregister chan *Client

	server *http.Server

	// Lifetime counters for /api/stats.
	checksServed  atomic.Int64
	clientsServed atomic.Int64

	startedAt time.Time
}

// NewService creates a check-streaming service bound to the given
// configuration snapshot.
func NewService(cfg *config.Config, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	return &Service{
		cfg:        cfg,
		logger:     logger,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		startedAt:  time.Now(),
	}
}

// UpdateConfig swaps the configuration snapshot. Checks already in
// flight keep the snapshot they started with.
func (s *Service) UpdateConfig(cfg *config.Config) {
	s.cfgMux.Lock()
	s.cfg = cfg
	s.cfgMux.Unlock()
	s.logger.Info("Service configuration updated")
}

func (s *Service) config() *config.Config {
	s.cfgMux.RLock()
	defer s.cfgMux.RUnlock()
	return s.cfg
}

// Handler returns the service's HTTP routes.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/stats", s.handleStats)
	return mux
}

// Start starts the HTTP server and blocks until it stops.
func (s *Service) Start(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	go s.run()

	s.logger.Info("Starting check service", "addr", addr)
	return s.server.ListenAndServe()
}

// Stop shuts the server down gracefully.
func (s *Service) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// run manages client registration.
func (s *Service) run() {
	for {
		select {
		case client := <-s.register:
			s.clientsMux.Lock()
			s.clients[client] = true
			total := len(s.clients)
			s.clientsMux.Unlock()

			s.clientsServed.Add(1)
			s.logger.Info("Client connected", "id", client.ID, "addr", client.remoteAddr, "total_clients", total)

		case client := <-s.unregister:
			s.clientsMux.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			total := len(s.clients)
			s.clientsMux.Unlock()

			s.logger.Info("Client disconnected",
				"id", client.ID,
				"duration", time.Since(client.connectedAt),
				"total_clients", total)
		}
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	s.clientsMux.RLock()
	connected := len(s.clients)
	s.clientsMux.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"uptime_seconds":    time.Since(s.startedAt).Seconds(),
		"connected_clients": connected,
		"clients_served":    s.clientsServed.Load(),
		"checks_served":     s.checksServed.Load(),
	})
}

// checkOne runs a single subject through a fresh checker.
func (s *Service) checkOne(subject string) (*status.Status, error) {
	c, err := checker.Build(s.config(), s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build checker: %w", err)
	}
	s.checksServed.Add(1)
	return c.Check(subject), nil
}

// checkBatch fans a subject list over a worker pool, streaming each
// verdict to the handler as it lands.
func (s *Service) checkBatch(ctx context.Context, subjects []string, handler worker.ResultHandler) error {
	cfg := s.config()
	factory := func() (*checker.Checker, error) {
		return checker.Build(cfg, s.logger)
	}

	manager := worker.NewManager(cfg.Concurrency, factory, s.logger, nil)
	err := manager.Run(ctx, subjects, func(st *status.Status) {
		s.checksServed.Add(1)
		handler(st)
	})
	return err
}
