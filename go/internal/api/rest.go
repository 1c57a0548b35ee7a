package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// TeacherLoginResponse is returned by POST /teacher-login
type TeacherLoginResponse struct {
	Username string `json:"username"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RESTHandler handles the plain HTTP routes
type RESTHandler struct {
	state StateProvider
	namer *ModeratorNamer
	stats map[string]StatsProvider
}

// NewRESTHandler creates a REST handler. stats sections are keyed by name in
// the /info response.
func NewRESTHandler(state StateProvider, namer *ModeratorNamer, stats map[string]StatsProvider) *RESTHandler {
	return &RESTHandler{
		state: state,
		namer: namer,
		stats: stats,
	}
}

// HandleTeacherLogin handles POST /teacher-login
func (h *RESTHandler) HandleTeacherLogin(w http.ResponseWriter, r *http.Request) {
	name := h.namer.Mint()
	log.Info().Str("display_name", name).Msg("minted moderator name")
	writeJSON(w, http.StatusOK, TeacherLoginResponse{Username: name})
}

// HandlePollHistory handles GET /poll-history
func (h *RESTHandler) HandlePollHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.state.History(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to get poll history")
		http.Error(w, "Failed to get poll history", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// HandleHealth handles GET /health
func (h *RESTHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "OK", Message: "Server is running"})
}

// HandleInfo handles GET /info
func (h *RESTHandler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	info := make(map[string]interface{}, len(h.stats)+1)
	for name, provider := range h.stats {
		info[name] = provider.GetStats()
	}

	participants, err := h.state.Participants(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to get participants")
		http.Error(w, "Failed to get room info", http.StatusServiceUnavailable)
		return
	}
	info["participants"] = len(participants)

	writeJSON(w, http.StatusOK, info)
}

// RegisterRoutes registers the REST routes
func (h *RESTHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /teacher-login", h.HandleTeacherLogin)
	mux.HandleFunc("GET /poll-history", h.HandlePollHistory)
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /info", h.HandleInfo)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
