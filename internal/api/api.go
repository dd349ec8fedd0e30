// Package api exposes the room coordinator over HTTP JSON for the
// dashboard and chat layers.
//
// Handlers translate between boundary representations (decimal amount
// strings, plain response structs) and the integer minor units the ledger
// computes with; internal types never cross the wire.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/finsight/fairsplit/internal/config"
	"github.com/finsight/fairsplit/internal/predict"
	"github.com/finsight/fairsplit/internal/room"
)

type API struct {
	router    *mux.Router
	rooms     *room.Manager
	predictor predict.Predictor
	config    *config.Config
	logger    *slog.Logger
}

func New(cfg *config.Config, rooms *room.Manager, predictor predict.Predictor, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	a := &API{
		router:    mux.NewRouter(),
		rooms:     rooms,
		predictor: predictor,
		config:    cfg,
		logger:    logger,
	}
	a.setupRoutes()
	return a
}

func (a *API) setupRoutes() {
	// Room lifecycle
	a.router.HandleFunc("/api/rooms", a.handleCreateRoom).Methods("POST")
	a.router.HandleFunc("/api/rooms", a.handleListRooms).Methods("GET")
	a.router.HandleFunc("/api/rooms/{room_id}", a.handleGetRoom).Methods("GET")
	a.router.HandleFunc("/api/rooms/{room_id}/settle", a.handleMarkSettled).Methods("POST")
	a.router.HandleFunc("/api/rooms/{room_id}/archive", a.handleArchive).Methods("POST")

	// Participants
	a.router.HandleFunc("/api/rooms/{room_id}/participants", a.handleJoin).Methods("POST")
	a.router.HandleFunc("/api/rooms/{room_id}/participants/{participant_id}", a.handleLeave).Methods("DELETE")

	// Events
	a.router.HandleFunc("/api/rooms/{room_id}/contributions", a.handleContribute).Methods("POST")
	a.router.HandleFunc("/api/rooms/{room_id}/expenses", a.handleAddExpense).Methods("POST")
	a.router.HandleFunc("/api/rooms/{room_id}/distributions", a.handleDistribute).Methods("POST")

	// Derived views
	a.router.HandleFunc("/api/rooms/{room_id}/events", a.handleQueryEvents).Methods("GET")
	a.router.HandleFunc("/api/rooms/{room_id}/balances", a.handleBalances).Methods("GET")
	a.router.HandleFunc("/api/rooms/{room_id}/settlement", a.handleSettlement).Methods("GET")
	a.router.HandleFunc("/api/rooms/{room_id}/expenses", a.handleAnnotatedExpenses).Methods("GET")

	// Spend prediction passthrough
	a.router.HandleFunc("/api/predict/spend", a.handlePredictSpend).Methods("POST")
}

// Handler returns the fully wrapped http.Handler, for tests and embedding.
func (a *API) Handler() http.Handler {
	corsOptions := cors.Options{
		AllowedOrigins: a.config.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}
	return cors.New(corsOptions).Handler(a.router)
}

func (a *API) Start() error {
	a.logger.Info("api server listening", "bind", a.config.Bind)
	return http.ListenAndServe(a.config.Bind, a.Handler())
}
