package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fortuna/halfline/internal/service"
	"github.com/fortuna/halfline/internal/store"
	"github.com/gorilla/mux"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	HealthCheck() error
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	db          HealthChecker
	gameService *service.GameService
	teamService *service.TeamService
}

// NewHandler creates a new handler
func NewHandler(db HealthChecker, games *service.GameService, teams *service.TeamService) *Handler {
	return &Handler{
		db:          db,
		gameService: games,
		teamService: teams,
	}
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	if h.db != nil {
		if err := h.db.HealthCheck(); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	respondJSON(w, code, map[string]string{
		"status":  status,
		"service": "halfline",
		"sport":   "basketball_ncaab",
	})
}

// GetGamesByDate returns all games on a calendar day, defaulting to today
func (h *Handler) GetGamesByDate(w http.ResponseWriter, r *http.Request) {
	day := h.gameService.Today()
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := h.gameService.ParseDay(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		day = d
	}

	games, err := h.gameService.GetGamesByDate(r.Context(), day)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch games", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":  day.Format("2006-01-02"),
		"games": games,
		"count": len(games),
	})
}

// GetGame returns a specific game by its feed id
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(w, r, "gameID")
	if !ok {
		return
	}

	game, err := h.gameService.GetGame(r.Context(), gameID)
	if err != nil {
		respondLookupError(w, "Game not found", "Failed to fetch game", err)
		return
	}

	respondJSON(w, http.StatusOK, game)
}

// GetRecord returns the graded win/loss record between two days. Both
// bounds default to today.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	from, to := h.gameService.Today(), h.gameService.Today()
	q := r.URL.Query()

	if v := q.Get("from"); v != "" {
		d, err := h.gameService.ParseDay(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
			return
		}
		from = d
		if q.Get("to") == "" {
			to = d
		}
	}
	if v := q.Get("to"); v != "" {
		d, err := h.gameService.ParseDay(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
			return
		}
		to = d
	}
	if to.Before(from) {
		respondError(w, http.StatusBadRequest, "to must not be before from", nil)
		return
	}

	record, err := h.gameService.GetRecord(r.Context(), from, to)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch record", err)
		return
	}

	respondJSON(w, http.StatusOK, record)
}

// GetTeams returns all teams
func (h *Handler) GetTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teamService.ListTeams(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch teams", err)
		return
	}

	respondJSON(w, http.StatusOK, teams)
}

// GetTeam returns a specific team
func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}

	team, err := h.teamService.GetTeam(r.Context(), teamID)
	if err != nil {
		respondLookupError(w, "Team not found", "Failed to fetch team", err)
		return
	}

	respondJSON(w, http.StatusOK, team)
}

// GetTeamAverages returns a team's first-half averages
func (h *Handler) GetTeamAverages(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}
	season, ok := querySeason(w, r)
	if !ok {
		return
	}

	avg, err := h.teamService.GetTeamAverages(r.Context(), teamID, season)
	if err != nil {
		respondLookupError(w, "Team not found", "Failed to compute averages", err)
		return
	}

	respondJSON(w, http.StatusOK, avg)
}

// GetAllAverages returns the averages table for every team
func (h *Handler) GetAllAverages(w http.ResponseWriter, r *http.Request) {
	season, ok := querySeason(w, r)
	if !ok {
		return
	}

	rows, err := h.teamService.ListAverages(r.Context(), season)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to compute averages", err)
		return
	}

	respondJSON(w, http.StatusOK, rows)
}

// GetTeamSchedule returns a team's games
func (h *Handler) GetTeamSchedule(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 200 {
			limit = l
		}
	}

	games, err := h.gameService.GetTeamSchedule(r.Context(), teamID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch team schedule", err)
		return
	}

	respondJSON(w, http.StatusOK, games)
}

// GetMatchup projects a hypothetical game between two teams
func (h *Handler) GetMatchup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	homeID, err := strconv.ParseInt(q.Get("home"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "home must be a team id", err)
		return
	}
	awayID, err := strconv.ParseInt(q.Get("away"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "away must be a team id", err)
		return
	}
	if homeID == awayID {
		respondError(w, http.StatusBadRequest, "home and away must be different teams", nil)
		return
	}

	var line *float64
	if v := q.Get("line"); v != "" {
		l, err := strconv.ParseFloat(v, 64)
		if err != nil || l <= 0 {
			respondError(w, http.StatusBadRequest, "line must be a positive number", err)
			return
		}
		line = &l
	}

	season, ok := querySeason(w, r)
	if !ok {
		return
	}

	m, err := h.teamService.GetMatchup(r.Context(), homeID, awayID, line, season)
	if err != nil {
		respondLookupError(w, "Team not found", "Failed to compute matchup", err)
		return
	}

	respondJSON(w, http.StatusOK, m)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid "+name, err)
		return 0, false
	}
	return id, true
}

// querySeason returns nil when no season was requested so the configured
// default applies. season=0 asks for every season.
func querySeason(w http.ResponseWriter, r *http.Request) (*int, bool) {
	v := r.URL.Query().Get("season")
	if v == "" {
		return nil, true
	}
	season, err := strconv.Atoi(v)
	if err != nil || season < 0 {
		respondError(w, http.StatusBadRequest, "season must be a year", err)
		return nil, false
	}
	return &season, true
}

// respondLookupError maps a missing row to 404 and anything else to 500.
func respondLookupError(w http.ResponseWriter, notFound, failed string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, notFound, err)
		return
	}
	respondError(w, http.StatusInternalServerError, failed, err)
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}
