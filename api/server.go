package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/perpterm/sim"
)

// Server is the renderer's transport: a JSON view of the engine contract
// plus a websocket snapshot stream. It holds no simulation state.
type Server struct {
	engine   *sim.Engine
	logger   *logrus.Logger
	addr     string
	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

func NewServer(engine *sim.Engine, logger *logrus.Logger, addr string) *Server {
	return &Server{
		engine: engine,
		logger: logger,
		addr:   addr,
		upgrader: websocket.Upgrader{
			// The terminal front end is served from anywhere in dev.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/orders", s.handlePlaceOrder)
	mux.HandleFunc("/api/orders/cancel", s.handleCancelOrder)
	mux.HandleFunc("/api/positions/close", s.handleClosePosition)
	mux.HandleFunc("/api/instrument", s.handleSelectInstrument)
	mux.HandleFunc("/ws", s.handleStream)

	return corsMiddleware(mux)
}

func (s *Server) Start() error {
	s.httpSrv = &http.Server{Addr: s.addr, Handler: s.Handler()}
	s.logger.Infof("starting API server on %s", s.addr)
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

type placeOrderRequest struct {
	Side     string   `json:"side"`
	Type     string   `json:"type"`
	Price    *float64 `json:"price,omitempty"`
	Quantity float64  `json:"quantity"`
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeNote(w, http.StatusBadRequest, sim.ErrorNote("bad request: %v", err))
		return
	}

	res, err := s.engine.PlaceOrder(sim.Side(req.Side), sim.OrderType(req.Type), req.Price, req.Quantity)
	if err != nil {
		s.writeNote(w, statusFor(err), sim.ErrorNote("%v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeNote(w, http.StatusBadRequest, sim.ErrorNote("bad request: %v", err))
		return
	}

	if err := s.engine.CancelOrder(req.ID); err != nil {
		s.writeNote(w, statusFor(err), sim.ErrorNote("%v", err))
		return
	}
	s.writeNote(w, http.StatusOK, sim.SuccessNote("order %s cancelled", req.ID))
}

func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Symbol string `json:"symbol"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeNote(w, http.StatusBadRequest, sim.ErrorNote("bad request: %v", err))
		return
	}

	if err := s.engine.ClosePosition(req.Symbol); err != nil {
		s.writeNote(w, statusFor(err), sim.ErrorNote("%v", err))
		return
	}
	s.writeNote(w, http.StatusOK, sim.SuccessNote("closed %s", req.Symbol))
}

func (s *Server) handleSelectInstrument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeNote(w, http.StatusBadRequest, sim.ErrorNote("bad request: %v", err))
		return
	}

	if err := s.engine.SelectInstrument(req.Index); err != nil {
		s.writeNote(w, statusFor(err), sim.ErrorNote("%v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

// handleStream pushes one snapshot per tick over a websocket. The engine
// drops frames for slow consumers; this handler just forwards whatever
// arrives.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	snaps, cancel := s.engine.Subscribe()
	defer cancel()

	// Prime the client so it renders before the first tick lands.
	if err := conn.WriteJSON(s.engine.Snapshot()); err != nil {
		return
	}

	for snap := range snaps {
		if err := conn.WriteJSON(snap); err != nil {
			return
		}
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sim.ErrOrderNotFound), errors.Is(err, sim.ErrPositionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) writeNote(w http.ResponseWriter, status int, note sim.Note) {
	s.writeJSON(w, status, map[string]interface{}{"note": note})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("encode response")
	}
}
