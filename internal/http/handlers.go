package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/rota-parceira/internal/models"
	"github.com/example/rota-parceira/internal/session"
)

// Server exposes the session controller over REST plus a websocket snapshot
// stream. Every mutating endpoint answers with the full post-mutation
// snapshot, so clients render state instead of tracking deltas.
type Server struct {
	session *session.Controller
	stream  *Stream
	logger  *slog.Logger
	mux     *mux.Router
}

func NewServer(ctrl *session.Controller, logger *slog.Logger) *Server {
	s := &Server{
		session: ctrl,
		stream:  NewStream(logger),
		logger:  logger,
		mux:     mux.NewRouter(),
	}
	ctrl.SetNotify(s.stream.Broadcast)
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/session/login", s.handleLogin).Methods("POST")
	api.HandleFunc("/session/logout", s.handleLogout).Methods("POST")
	api.HandleFunc("/session", s.handleSnapshot).Methods("GET")
	api.HandleFunc("/rides/request", s.handleRideRequest).Methods("POST")
	api.HandleFunc("/rides/search/cancel", s.handleCancelSearch).Methods("POST")
	api.HandleFunc("/rides/status", s.handleRideStatus).Methods("POST")
	api.HandleFunc("/rides/cancel", s.handleCancelRide).Methods("POST")
	api.HandleFunc("/offers/{offer_id}/accept", s.handleAcceptOffer).Methods("POST")
	api.HandleFunc("/offers/propose", s.handleProposeOffer).Methods("POST")
	api.HandleFunc("/driver/online", s.handleDriverOnline).Methods("POST")
	api.HandleFunc("/admin/pricing", s.handlePricing).Methods("PUT")

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	snap, err := s.session.Login(req.Phone, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSnapshot(w, snap)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	writeSnapshot(w, s.session.Logout())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeSnapshot(w, s.session.Snapshot())
}

func (s *Server) handleRideRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To          string             `json:"to"`
		VehicleType models.VehicleType `json:"vehicle_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	if req.VehicleType == "" {
		req.VehicleType = models.VehicleCar
	}
	snap, err := s.session.CreateRideRequest(req.To, req.VehicleType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSnapshot(w, snap)
}

func (s *Server) handleCancelSearch(w http.ResponseWriter, r *http.Request) {
	writeSnapshot(w, s.session.CancelSearch())
}

func (s *Server) handleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	snap, err := s.session.AcceptOffer(mux.Vars(r)["offer_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeSnapshot(w, snap)
}

func (s *Server) handleProposeOffer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DriverID string  `json:"driver_id"`
		Fare     float64 `json:"fare"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	snap, err := s.session.ProposeOffer(req.DriverID, req.Fare)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSnapshot(w, snap)
}

func (s *Server) handleRideStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.RideStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	writeSnapshot(w, s.session.UpdateRideStatus(req.Status))
}

func (s *Server) handleCancelRide(w http.ResponseWriter, r *http.Request) {
	writeSnapshot(w, s.session.CancelRide())
}

func (s *Server) handleDriverOnline(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Online bool `json:"online"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	snap, err := s.session.ToggleDriverOnline(req.Online)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSnapshot(w, snap)
}

func (s *Server) handlePricing(w http.ResponseWriter, r *http.Request) {
	var cfg models.PricingConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, err)
		return
	}
	snap, err := s.session.SavePricingConfig(cfg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSnapshot(w, snap)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", 400)
		return
	}
	s.stream.Add(conn, s.session.Snapshot())
}

func writeSnapshot(w http.ResponseWriter, snap models.Snapshot) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(err))
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// statusFor maps controller errors onto HTTP statuses in one place. Stale
// offers and ineligible drivers are conflicts; everything unrecognized is
// treated as a bad request.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotLoggedIn):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrNotPassenger),
		errors.Is(err, session.ErrNotDriver),
		errors.Is(err, session.ErrNotAdmin):
		return http.StatusForbidden
	case errors.Is(err, session.ErrOfferExpired),
		errors.Is(err, session.ErrDriverNotEligible):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
