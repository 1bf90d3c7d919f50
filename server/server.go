// Package server streams simulation snapshots to renderer clients over
// websockets and exposes a control endpoint for per-connection tunables.
package server

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"github.com/rs/zerolog/log"

	"roadsim/backend/sim"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait    = 1 * time.Second
	pingInterval = 5 * time.Second
)

// ctrlAdapter bridges connControl to sim.Control.
type ctrlAdapter struct{ c *connControl }

func (a ctrlAdapter) Speed() float64 {
	if a.c == nil {
		return 1
	}
	v := a.c.speed.Load()
	if v == nil {
		return 1
	}
	f := v.(float64)
	if f < 0.1 {
		f = 0.1
	}
	if f > 10 {
		f = 10
	}
	return f
}

func (a ctrlAdapter) Paused() bool {
	if a.c == nil {
		return false
	}
	v := a.c.paused.Load()
	if v == nil {
		return false
	}
	return v.(bool)
}

// connControl holds per-stream tunables.
type connControl struct {
	speed  atomic.Value // float64
	paused atomic.Value // bool
}

// Options configures the server instance.
type Options struct {
	Addr          string
	SnapshotEvery int
	DefaultSpeed  float64
}

// Factory builds a fresh simulation (plus its ui settings) for each
// stream connection, so every client drives an isolated run.
type Factory func() (*sim.Simulation, map[string]any, error)

type Server struct {
	factory Factory
	opt     Options

	scene sim.Scene
	ui    map[string]any

	streamControls sync.Map // map[connID]*connControl
}

// New builds a server, pre-rendering the static scene from one factory
// instance.
func New(factory Factory, opt Options) (*Server, error) {
	if opt.SnapshotEvery < 1 {
		opt.SnapshotEvery = 3
	}
	if opt.DefaultSpeed <= 0 {
		opt.DefaultSpeed = 1
	}
	template, ui, err := factory()
	if err != nil {
		return nil, fmt.Errorf("server factory: %w", err)
	}
	return &Server{
		factory: factory,
		opt:     opt,
		scene:   template.SceneDescription(),
		ui:      ui,
	}, nil
}

// Serve registers handlers and blocks on ListenAndServe.
func (s *Server) Serve() error {
	http.HandleFunc("/api/scene", s.handleScene)
	http.HandleFunc("/api/control", s.handleControl)
	http.HandleFunc("/api/ws", s.handleStream)
	log.Info().Msgf("serving on %s", s.opt.Addr)
	if err := http.ListenAndServe(s.opt.Addr, nil); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	payload := map[string]any{"scene": s.scene, "ui": s.ui}
	j, _ := json.Marshal(payload)
	w.Write(j)
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(204)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ConnID string  `json:"conn_id"`
		Speed  float64 `json:"speed"`
		Paused *bool   `json:"paused"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", 400)
		return
	}
	v, ok := s.streamControls.Load(req.ConnID)
	if !ok {
		http.Error(w, "connection not found", 404)
		return
	}
	c := v.(*connControl)
	if req.Speed != 0 {
		sp := req.Speed
		if sp < 0.1 {
			sp = 0.1
		}
		if sp > 10.0 {
			sp = 10.0
		}
		c.speed.Store(sp)
		log.Info().Msgf("control: conn=%s speed=%.2fx", req.ConnID, sp)
	}
	if req.Paused != nil {
		c.paused.Store(*req.Paused)
		log.Info().Msgf("control: conn=%s paused=%v", req.ConnID, *req.Paused)
	}
	w.WriteHeader(204)
}

// streamMessage is one websocket frame sent to the client.
type streamMessage struct {
	Type     string         `json:"type"` // "init" or "snapshot"
	ConnID   string         `json:"conn_id,omitempty"`
	Scene    *sim.Scene     `json:"scene,omitempty"`
	UI       map[string]any `json:"ui,omitempty"`
	Snapshot *sim.Snapshot  `json:"snapshot,omitempty"`
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer ws.Close()

	// Fresh simulation per connection.
	simu, ui, err := s.factory()
	if err != nil {
		log.Error().Err(err).Msg("stream factory failed")
		return
	}

	connID := fmt.Sprintf("%d-%d", time.Now().UnixNano(), rand.Int63())
	ctrl := &connControl{}
	ctrl.speed.Store(s.opt.DefaultSpeed)
	ctrl.paused.Store(false)
	s.streamControls.Store(connID, ctrl)
	defer s.streamControls.Delete(connID)

	scene := simu.SceneDescription()
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteJSON(streamMessage{Type: "init", ConnID: connID, Scene: &scene, UI: ui}); err != nil {
		log.Warn().Err(err).Msg("init write failed")
		return
	}
	log.Info().Msgf("stream connected conn=%s", connID)

	snapshots, stopFn, waitFn := sim.StartRunner(simu, ctrlAdapter{c: ctrl}, s.opt.SnapshotEvery)
	defer waitFn()
	defer stopFn()

	// Reader goroutine: the client sends nothing we interpret, but a read
	// error is the disconnect signal.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pings := channerics.NewTicker(done, pingInterval)
	for {
		select {
		case <-done:
			log.Info().Msgf("stream closed conn=%s", connID)
			return
		case <-pings:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(streamMessage{Type: "snapshot", Snapshot: &snap}); err != nil {
				log.Warn().Err(err).Msgf("snapshot write failed conn=%s", connID)
				return
			}
		}
	}
}
