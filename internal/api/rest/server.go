package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Server represents the REST API server
type Server struct {
	port   string
	server *http.Server
}

// NewServer creates a new REST API server
func NewServer(port string, handler *Handler, backfillHandler *BackfillHandler) *Server {
	return &Server{
		port: port,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           NewRouter(handler, backfillHandler),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// NewRouter builds the route table. A nil backfill handler leaves the
// backfill routes unregistered.
func NewRouter(handler *Handler, backfillHandler *BackfillHandler) *mux.Router {
	router := mux.NewRouter()

	router.Use(RecoveryMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(CORSMiddleware)

	// Preflight requests only need the CORS headers.
	router.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	// Games
	api.HandleFunc("/games", handler.GetGamesByDate).Methods("GET")
	api.HandleFunc("/games/{gameID:[0-9]+}", handler.GetGame).Methods("GET")
	api.HandleFunc("/record", handler.GetRecord).Methods("GET")

	// Teams
	api.HandleFunc("/teams", handler.GetTeams).Methods("GET")
	api.HandleFunc("/teams/averages", handler.GetAllAverages).Methods("GET")
	api.HandleFunc("/teams/{teamID:[0-9]+}", handler.GetTeam).Methods("GET")
	api.HandleFunc("/teams/{teamID:[0-9]+}/averages", handler.GetTeamAverages).Methods("GET")
	api.HandleFunc("/teams/{teamID:[0-9]+}/schedule", handler.GetTeamSchedule).Methods("GET")
	api.HandleFunc("/matchup", handler.GetMatchup).Methods("GET")

	if backfillHandler != nil {
		api.HandleFunc("/backfill", backfillHandler.HandleBackfillRequest).Methods("POST")
		api.HandleFunc("/backfill/status", backfillHandler.HandleBackfillStatus).Methods("GET")
		api.HandleFunc("/backfill/{jobID}", backfillHandler.HandleBackfillJob).Methods("GET")
	}

	return router
}

// Start starts the REST API server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
