package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/wricardo/skytrack/game/config"
	"github.com/wricardo/skytrack/game/engine"
	"github.com/wricardo/skytrack/game/service"
	"github.com/wricardo/skytrack/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service     service.GameService
	hub         *websocket.Hub
	router      *mux.Router
	healthCheck func(ctx context.Context) error
}

// NewServer creates a new API server. hub may be nil.
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// SetHealthCheck installs a probe run by /api/health, usually the database ping
func (s *Server) SetHealthCheck(fn func(ctx context.Context) error) {
	s.healthCheck = fn
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("", s.handleIndex).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Session management
	api.HandleFunc("/sessions", s.handleStartGame).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/sessions/{id}/destinations", s.handleDestinations).Methods("GET")
	api.HandleFunc("/sessions/{id}/plan", s.handlePlanTrip).Methods("GET")
	api.HandleFunc("/sessions/{id}/travel", s.handleTravel).Methods("POST")
	api.HandleFunc("/sessions/{id}/refuel", s.handleRefuel).Methods("POST")
	api.HandleFunc("/sessions/{id}/investigate", s.handleInvestigate).Methods("GET")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error     string  `json:"error"`
	Code      string  `json:"code,omitempty"`
	Required  float64 `json:"required,omitempty"`
	Available float64 `json:"available,omitempty"`
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondServiceError maps a service or engine error to an HTTP status and
// a body carrying the rejection code
func respondServiceError(w http.ResponseWriter, err error) {
	body := ErrorResponse{Error: err.Error()}

	var rejection *engine.Error
	if errors.As(err, &rejection) {
		body.Code = string(rejection.Code)
		body.Required = rejection.Required
		body.Available = rejection.Available
	}
	if errors.Is(err, service.ErrSessionNotFound) || errors.Is(err, service.ErrConfigNotFound) {
		body.Code = string(engine.CodeNotFound)
	}
	if errors.Is(err, config.ErrInvalidConfig) {
		body.Code = string(engine.CodeInvalidInput)
	}

	respondJSON(w, statusForCode(engine.Code(body.Code)), body)
}

func statusForCode(code engine.Code) int {
	switch code {
	case engine.CodeNotFound:
		return http.StatusNotFound
	case engine.CodeInvalidInput, engine.CodeInvalidAirport:
		return http.StatusBadRequest
	case engine.CodeInsufficientFuel, engine.CodeMaxAttemptsExceeded, engine.CodeLimitExceeded, engine.CodeFuelUnavailable:
		return http.StatusUnprocessableEntity
	case engine.CodeAlreadyConcluded, engine.CodeAlreadyExists:
		return http.StatusConflict
	case engine.CodeStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"name": "Operation Skytrack",
		"endpoints": []string{
			"POST /api/sessions",
			"GET /api/sessions",
			"GET /api/sessions/{id}/status",
			"GET /api/sessions/{id}/destinations",
			"GET /api/sessions/{id}/plan?destination={airport_id}",
			"POST /api/sessions/{id}/travel",
			"POST /api/sessions/{id}/refuel",
			"GET /api/sessions/{id}/investigate",
			"GET /api/sessions/{id}/history",
			"GET /api/configs",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.healthCheck != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.healthCheck(ctx); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Session Handlers

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScreenName string `json:"screen_name"`
		ConfigID   string `json:"config_id,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := s.service.StartGame(r.Context(), req.ScreenName, req.ConfigID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	fmt.Printf("[START] session=%s player=%s config=%s\n", session.ID, session.ScreenName, session.ConfigName)
	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.service.Status(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleDestinations(w http.ResponseWriter, r *http.Request) {
	destinations, err := s.service.Destinations(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, destinations)
}

func (s *Server) handlePlanTrip(w http.ResponseWriter, r *http.Request) {
	destinationID, err := strconv.ParseInt(r.URL.Query().Get("destination"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "destination query parameter must be an airport id")
		return
	}

	plan, err := s.service.PlanTrip(r.Context(), mux.Vars(r)["id"], destinationID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, plan)
}

func (s *Server) handleTravel(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		DestinationID int64 `json:"destination_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.Travel(r.Context(), sessionID, req.DestinationID)
	if err != nil {
		fmt.Printf("[TRAVEL] session=%s REJECTED to=%d code=%s\n", sessionID, req.DestinationID, engine.CodeOf(err))
		s.broadcastStatus(r.Context(), sessionID, nil)
		respondServiceError(w, err)
		return
	}

	plan := result.Report.Outcome.Plan
	fmt.Printf("[TRAVEL] session=%s %s->%s dist=%.1f fuel=%.2f status=%s\n",
		sessionID, plan.From.Ident, plan.To.Ident, plan.DistanceKm, result.Report.Outcome.FuelAfter, result.Report.Result.Status)

	s.broadcastStatus(r.Context(), sessionID, result.Events)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRefuel(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Units float64 `json:"units"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.Refuel(r.Context(), sessionID, req.Units)
	if err != nil {
		fmt.Printf("[REFUEL] session=%s REJECTED units=%.2f code=%s\n", sessionID, req.Units, engine.CodeOf(err))
		s.broadcastStatus(r.Context(), sessionID, nil)
		respondServiceError(w, err)
		return
	}

	fmt.Printf("[REFUEL] session=%s at=%s units=%.2f fuel=%.2f left=%d\n",
		sessionID, result.Report.Airport.Ident, result.Report.Result.Units, result.Report.Result.Fuel, result.Report.Remaining)

	s.broadcastStatus(r.Context(), sessionID, result.Events)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleInvestigate(w http.ResponseWriter, r *http.Request) {
	found, err := s.service.Investigate(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, found)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}

	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetTravelHistory(r.Context(), mux.Vars(r)["id"], opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// broadcastStatus pushes the session's current status to websocket watchers.
// A rejected action can still end the game, so it is sent after those too.
func (s *Server) broadcastStatus(ctx context.Context, sessionID string, events []service.GameEvent) {
	if s.hub == nil {
		return
	}
	status, err := s.service.Status(ctx, sessionID)
	if err != nil {
		return
	}
	s.hub.BroadcastToSession(sessionID, status, events)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configName := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	rules, err := s.service.LoadConfig(r.Context(), configName)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rules)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var rules engine.Rules

	if err := json.NewDecoder(r.Body).Decode(&rules); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if rules.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	// ?id= picks the file name; otherwise it is derived from the display name
	configID := r.URL.Query().Get("id")
	if configID == "" {
		configID = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(rules.Name), " ", "_"))
	}

	if err := s.service.SaveConfig(r.Context(), configID, &rules); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": configID,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "WebSocket updates are disabled", http.StatusNotFound)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}
